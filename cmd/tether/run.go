package main

import (
	"os"

	"github.com/aretw0/tether/internal/cli"
	"github.com/aretw0/tether/internal/presentation/tui"
	"github.com/aretw0/tether/pkg/transport"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <transcript>",
	Short: "Replay a host-event transcript through the reference host",
	Long: `Loads a YAML transcript of host events (prepare, parameter changes, MIDI,
UI commands, persistence) and replays it against a fresh host, printing the UI
console as it changes and a summary at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		quiet, _ := cmd.Flags().GetBool("quiet")
		recordPath, _ := cmd.Flags().GetString("record")

		transcript, err := cli.LoadTranscript(args[0])
		if err != nil {
			return err
		}

		h, cleanup, err := cli.NewHost(cfg, logger, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		printer := tui.NewPrinter(cmd.OutOrStdout())
		if !quiet {
			printer.PrintBanner()
		}

		var opts []cli.ReplayOption
		if !quiet {
			opts = append(opts, cli.WithPrinter(printer))
		}
		if recordPath != "" {
			f, err := os.Create(recordPath)
			if err != nil {
				return err
			}
			defer f.Close()
			opts = append(opts, cli.WithRecorder(transport.NewEncoder(f)))
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		report, err := cli.NewReplayer(h, opts...).Run(ctx, transcript)
		cli.PrintReport(printer, report)
		if err != nil && ctx.Signal() != nil {
			printer.Info("Interrupted after %d step(s).", report.Steps)
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("quiet", "q", false, "Print only the summary")
	runCmd.Flags().String("record", "", "Write the notifications the UI receives to this JSON-lines file")
}
