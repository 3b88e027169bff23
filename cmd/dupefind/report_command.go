package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dupegraph "github.com/mattkeenan/dupegraph/pkg"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var dupesOnlyFlag bool

	cmd := &cobra.Command{
		Use:   "report <snapshot>",
		Short: "Emit the JSON hash→paths report from an existing snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := dupegraph.LoadSnapshot(args[0])
			if err != nil {
				return err
			}
			ctx.logger.Info("snapshot loaded",
				zap.String("root", snapshot.Root),
				zap.Int("entries", snapshot.Len()))

			if !dupesOnlyFlag {
				return snapshot.WriteReport(os.Stdout)
			}

			report := snapshot.Report()
			for hash, paths := range report {
				if len(paths) < 2 {
					delete(report, hash)
				}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dupesOnlyFlag, "dupes-only", false, "Only include hashes shared by more than one path")

	return cmd
}
