package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/distribox/atlas"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List published images",
	Long:    "List every image record published in the registry bucket.",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	listCmd.Flags().StringP("output", "o", "table", "output format: table or yaml")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) (err error) {
	output, _ := cmd.Flags().GetString("output")
	if output != "table" && output != "yaml" {
		return fmt.Errorf("unknown output format %q", output)
	}

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

	records, err := s.engine.List(cmd.Context())
	if err != nil && records == nil {
		return err
	}
	if err != nil {
		// Invalid records are left out of the listing.
		log.Warn().Err(err).Msg("Registry holds invalid metadata")
	}

	if output == "yaml" {
		return writeYAML(cmd.OutOrStdout(), records)
	}
	return writeTable(cmd.OutOrStdout(), records)
}

func writeTable(out io.Writer, records []*atlas.ImageMetadata) error {
	if len(records) == 0 {
		fmt.Fprintln(out, "(no images)")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tIMAGE\tVERSION\tDISTRIBUTION\tFAMILY\tREVISION")
	for _, m := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", m.Name, m.Image, m.Version, m.Distribution, m.Family, m.Revision)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d image(s)\n", len(records))
	return nil
}

func writeYAML(out io.Writer, records []*atlas.ImageMetadata) error {
	if records == nil {
		records = []*atlas.ImageMetadata{}
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return err
	}
	return enc.Close()
}
