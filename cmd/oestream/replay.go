package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danmuck/oestream/internal/observability"
	"github.com/danmuck/oestream/internal/sink"
)

func replayCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "Replay a recorded record log",
		Long: `Decode a record log written by the recorder and print each record
through the log sink.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var out sink.Sink = sink.Nop{}
			if !quiet {
				out = sink.NewLog(observability.Component("replay"))
			}
			n, err := sink.Replay(f, out)
			if err != nil {
				return fmt.Errorf("replay %s after %d records: %w", args[0], n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d records\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only print the record count")
	return cmd
}
