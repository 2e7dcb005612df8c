package main

import "github.com/distribox/atlas/cmd/atlas/cmd"

func main() {
	cmd.Execute()
}
