package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"platemap_metadata/internal/app"
	"platemap_metadata/internal/config"
	"platemap_metadata/internal/platemap"
	"platemap_metadata/internal/workbook"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	app.SetupEnvironment()
	log.Debug().Msg("Starting application")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("Run failed")
	}
}

func newRootCmd() *cobra.Command {
	opts := app.OptionsFromEnv()

	rootCmd := &cobra.Command{
		Use:   "platemap-metadata",
		Short: "Generate per-sample metadata from 96-well plate-map workbooks",
		Long: `Reads plate-map worksheets, resolves a unique name for every well and
enriches each sample with subject dates, ages and locations from the study config.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Workbook == "" {
				return fmt.Errorf("a workbook is required (--workbook or PLATEMAP_WORKBOOK)")
			}
			report, err := app.Execute(cmd.Context(), opts, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			log.Info().
				Int("samples", report.Result.Summary.Samples).
				Int("plates", report.Result.Summary.PlatesKept).
				Msg("Metadata generated")
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.Workbook, "workbook", "w", opts.Workbook, "plate-map workbook: .xlsx path, s3://, gs:// or gsheets://<id>")
	flags.StringSliceVarP(&opts.SheetNames, "sheets", "s", opts.SheetNames, "worksheets to scan, in order (default all)")
	flags.StringVarP(&opts.ConfigPath, "config", "c", opts.ConfigPath, "study config YAML")

	runFlags := rootCmd.Flags()
	runFlags.StringVar(&opts.SubjectsPath, "subjects", opts.SubjectsPath, "subject metadata CSV keyed by subject_shorthand")
	runFlags.StringVarP(&opts.Output, "output", "o", opts.Output, `output TSV path, "-" for stdout, or gsheets://<id>/<tab>`)
	runFlags.StringVar(&opts.LedgerDSN, "ledger", opts.LedgerDSN, "run ledger: SQLite path or postgres:// DSN")
	runFlags.StringVar(&opts.MetricsTextfile, "metrics-textfile", opts.MetricsTextfile, "write Prometheus metrics to this textfile")
	runFlags.StringVar(&opts.CredentialsFile, "credentials", opts.CredentialsFile, "Google service account credentials for gsheets://")
	runFlags.BoolVar(&opts.Notify.Enabled, "notify", opts.Notify.Enabled, "send an ntfy notification when the run ends")
	runFlags.StringVar(&opts.Notify.Topic, "ntfy-topic", opts.Notify.Topic, "ntfy topic (default $NTFY_TOPIC, required with --notify)")

	rootCmd.AddCommand(newPlatesCmd(&opts))
	return rootCmd
}

// newPlatesCmd lists the plates a workbook contains without generating metadata.
func newPlatesCmd(opts *app.RunOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plates",
		Short: "List the plates found in a workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			wb, err := app.OpenWorkbook(cmd.Context(), *opts)
			if err != nil {
				return err
			}
			sheetNames := opts.SheetNames
			if len(sheetNames) == 0 {
				sheetNames = wb.SheetNames()
			}
			blocks, err := platemap.Scan(wb, sheetNames, workbook.NewPalette(cfg.ColorTags), platemap.Options{
				PlaceholderID:      cfg.PlaceholderPlateID,
				Delimiter:          cfg.PlateIDDelimiter,
				AssumeDatesPresent: cfg.AssumeDatesPresent,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, b := range blocks {
				fmt.Fprintf(out, "%s\t%s\t%s\n", b.PlateID, b.PlaterInitials, b.PlatingDate)
			}
			return nil
		},
	}
}
