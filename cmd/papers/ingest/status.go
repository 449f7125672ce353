package ingestcmder

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/papers/pkg/cliui"
	"github.com/papercomputeco/papers/pkg/config"
)

const statusShortDesc string = "Show the ingestion checkpoint and record count"

func newStatusCmd() *cobra.Command {
	cmder := &ingestCommander{}
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusShortDesc + ".",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.resolve(cmd, resetFlags)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, pipeline, err := cmder.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			status, err := pipeline.Status(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmder.out)
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			checkpoint := strconv.Itoa(status.Checkpoint)
			if !status.Found {
				checkpoint += " " + cliui.DimStyle.Render("(not set)")
			}

			fmt.Fprintln(cmder.out)
			fmt.Fprintf(cmder.out, "  %s %s\n", cliui.KeyStyle.Render("Source:    "), cliui.ValueStyle.Render(status.Source))
			fmt.Fprintf(cmder.out, "  %s %s\n", cliui.KeyStyle.Render("Checkpoint:"), cliui.ValueStyle.Render(status.CheckpointName))
			fmt.Fprintf(cmder.out, "  %s %s\n", cliui.KeyStyle.Render("Position:  "), checkpoint)
			fmt.Fprintf(cmder.out, "  %s %s\n\n", cliui.KeyStyle.Render("Records:   "), cliui.ValueStyle.Render(strconv.Itoa(status.Records)))
			return nil
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagCorpus, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagCheckpointName, new(string))
	config.AddServiceFlags(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")

	return cmd
}
