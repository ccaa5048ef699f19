package main

import (
	"os"

	"github.com/aretw0/tether"
	"github.com/aretw0/tether/internal/cli"
	"github.com/spf13/cobra"
)

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Run one script context as a JSON-lines process",
	Long: `Reads host notifications ({"kind": ..., "payload": ...}) from stdin, one per
line, and writes the commands the context posts ({"command": ..., "payload": ...})
to stdout. A headless context also posts every instruction batch as renderBatch.
Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		role, _ := cmd.Flags().GetString("role")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		n, err := cli.Attach(ctx, cli.AttachOptions{
			Role:   tether.Role(role),
			Config: cfg,
			In:     os.Stdin,
			Out:    cmd.OutOrStdout(),
			Logger: logger,
		})
		logger.Info("context detached", "role", role, "notifications", n, "signal", ctx.Signal())
		return err
	},
}

func init() {
	rootCmd.AddCommand(attachCmd)
	attachCmd.Flags().String("role", string(tether.RoleHeadless), "Context role: headless or ui")
}
