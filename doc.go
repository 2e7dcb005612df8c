// Package atlas keeps a registry of qcow2 virtual machine images in an
// object store bucket.
//
// Every image object "distribox-<name>.qcow2" is paired with a YAML sidecar
// "distribox-<name>.metadata.yaml" describing it. The registry is the set of
// sidecars found by listing the bucket. Images are published again whenever
// the local sidecar revision differs from the published one.
//
// Basic usage:
//
//	engine, _ := atlas.Open("registry", atlas.WithStore(atlas.NewMemoryStore()))
//
//	// Publish one image, or every managed image in a directory
//	report, err := engine.Sync(ctx, "./images")
//	fmt.Println(report.Count(atlas.StatusUploaded), "uploaded")
//
//	// Inspect the registry
//	records, _ := engine.List(ctx)
//	for _, m := range records {
//	    fmt.Println(m.Image, m.Revision)
//	}
//
//	// Remove images, absent ones are skipped
//	engine.Remove(ctx, "distribox-debian-12.qcow2")
//
// Within one image, the image object is always written before its sidecar
// and deleted before it, so a partial failure leaves an image without
// metadata and never metadata pointing at a missing image. The object store
// has no transactions; nothing stronger is promised.
package atlas
