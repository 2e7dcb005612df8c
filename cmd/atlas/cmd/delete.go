package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <image...>",
	Aliases: []string{"rm"},
	Short:   "Remove images from the registry",
	Long: `Remove images and their metadata from the registry. Images that are not
published are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	report, err := s.engine.Remove(cmd.Context(), args...)
	if report != nil {
		printSummary(os.Stderr, report)
	}
	return err
}
