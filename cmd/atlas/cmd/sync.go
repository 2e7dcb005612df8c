package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/distribox/atlas"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var syncCmd = &cobra.Command{
	Use:     "sync <path>",
	Aliases: []string{"upload"},
	Short:   "Publish images to the registry",
	Long: `Publish a qcow2 image, or every distribox-*.qcow2 image in a directory,
together with its .metadata.yaml sidecar. Images whose published revision
matches the local sidecar are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Bool("dry-run", false, "print the upload plan without writing anything")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) (err error) {
	path := args[0]

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	s, err := openSession(cfg)
	if err != nil {
		return err
	}

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		return planSync(cmd, s.engine, path)
	}

	defer func() {
		if cerr := s.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	report, err := s.engine.Sync(cmd.Context(), path)
	if report != nil {
		printSummary(os.Stderr, report)
	}
	return err
}

func planSync(cmd *cobra.Command, engine *atlas.Engine, path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}

	var plans []*atlas.Plan
	if fi.IsDir() {
		plans, err = engine.PlanDir(cmd.Context(), path)
	} else {
		var p *atlas.Plan
		p, err = engine.PlanFile(cmd.Context(), path)
		plans = []*atlas.Plan{p}
	}
	if plans == nil || plans[0] == nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IMAGE\tLOCAL\tREMOTE\tACTION")
	for _, p := range plans {
		local, remote, action := "-", "-", p.Decision.String()
		if p.Local != nil {
			local = fmt.Sprint(p.Local.Revision)
		}
		if p.Remote != nil {
			remote = fmt.Sprint(p.Remote.Revision)
		}
		if p.Err != nil {
			action = "error: " + atlas.KindOf(p.Err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Image(), local, remote, action)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func printSummary(w io.Writer, report *atlas.Report) {
	for _, o := range report.Outcomes {
		if o.Status == atlas.StatusFailed {
			fmt.Fprintf(w, "  %s: %s (%s)\n", o.Image, o.Status, o.Err)
		}
	}
	fmt.Fprintf(w, "Done. %d uploaded (%s), %d skipped, %d deleted, %d absent, %d failed\n",
		report.Count(atlas.StatusUploaded),
		humanize.IBytes(uint64(report.Bytes())),
		report.Count(atlas.StatusSkipped),
		report.Count(atlas.StatusDeleted),
		report.Count(atlas.StatusAbsent),
		report.Count(atlas.StatusFailed),
	)
}
