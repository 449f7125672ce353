package ingestcmder

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/papers/pkg/cliui"
	"github.com/papercomputeco/papers/pkg/config"
)

const resetLongDesc string = `Reset the ingestion checkpoint.

Moves the checkpoint to the given corpus line (default 0). Moving it backwards
is safe: papers that are already stored are skipped as duplicates on the next
run.

Examples:
  papers ingest reset
  papers ingest reset 1200`

const resetShortDesc string = "Reset the ingestion checkpoint"

func newResetCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "reset [position]",
		Short: resetShortDesc,
		Long:  resetLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.resolve(cmd, resetFlags)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			position := 0
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 0 {
					return fmt.Errorf("invalid position %q: must be a non-negative integer", args[0])
				}
				position = n
			}

			svc, pipeline, err := cmder.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := pipeline.ResetCheckpoint(cmd.Context(), position); err != nil {
				return err
			}

			fmt.Fprintf(cmder.out, "  %s Checkpoint %s reset to %s\n",
				cliui.SuccessMark,
				cliui.KeyStyle.Render(cmder.cfg.Ingest.CheckpointName),
				cliui.ValueStyle.Render(strconv.Itoa(position)),
			)
			return nil
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagCorpus, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagCheckpointName, new(string))
	config.AddServiceFlags(cmd)

	return cmd
}

var resetFlags = []string{config.FlagCorpus, config.FlagCheckpointName}
