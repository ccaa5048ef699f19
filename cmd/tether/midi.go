package main

import (
	"fmt"

	"github.com/aretw0/tether/pkg/midi"
	"github.com/spf13/cobra"
)

var midiCmd = &cobra.Command{
	Use:   "midi <hex>...",
	Short: "Validate and decode MIDI hex messages",
	Long: `Checks each argument against the three-byte hex format the contexts accept
("90 3C 64" or "903C64") and prints the decoded message.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		invalid := 0
		for _, text := range args {
			msg, err := midi.Parse(text)
			if err != nil {
				invalid++
				fmt.Fprintf(out, "%-10s invalid: %v\n", text, err)
				continue
			}
			fmt.Fprintf(out, "%-10s %s %s\n", msg, midi.FormatList(msg), msg.Describe())
		}
		if invalid > 0 {
			return fmt.Errorf("%d invalid message(s)", invalid)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(midiCmd)
}
