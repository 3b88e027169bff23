package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	dupegraph "github.com/mattkeenan/dupegraph/pkg"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	var (
		outputFlag    string
		reportFlag    string
		blockSizeFlag string
		threadsFlag   int
		algorithmFlag string
	)

	cmd := &cobra.Command{
		Use:   "cache <path>",
		Short: "Hash a tree without the dependency graph and persist a path→hash snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := ctx.scannerOptions()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("block-size") {
				size, err := dupegraph.ParseHumanSize(blockSizeFlag)
				if err != nil {
					return fmt.Errorf("invalid block size: %w", err)
				}
				opts.BlockSize = size
			}
			if cmd.Flags().Changed("threads") {
				opts.Threads = threadsFlag
			}
			if cmd.Flags().Changed("algorithm") {
				if err := dupegraph.ValidateHashAlgorithm(algorithmFlag); err != nil {
					return err
				}
				opts.Algorithm = algorithmFlag
			}

			snapshot, err := dupegraph.BuildSnapshot(args[0], opts)
			if err != nil {
				return err
			}

			output := outputFlag
			if output == "" {
				output = args[0] + ".dgsn"
			}
			if err := snapshot.WriteFile(output); err != nil {
				return err
			}
			fmt.Printf("wrote %d entries to %s\n", snapshot.Len(), output)

			switch reportFlag {
			case "":
				return nil
			case "-":
				return snapshot.WriteReport(os.Stdout)
			default:
				file, err := os.Create(reportFlag)
				if err != nil {
					return fmt.Errorf("failed to create report file %s: %w", reportFlag, err)
				}
				defer file.Close()
				return snapshot.WriteReport(file)
			}
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Snapshot output path (default <path>.dgsn)")
	cmd.Flags().StringVar(&reportFlag, "report", "", "Write the JSON hash→paths report to this file, - for stdout")
	cmd.Flags().StringVarP(&blockSizeFlag, "block-size", "b", "4M", "Block size to read files in")
	cmd.Flags().IntVarP(&threadsFlag, "threads", "j", dupegraph.DefaultThreads, "Maximum number of threads to use, 0 for all cores")
	cmd.Flags().StringVar(&algorithmFlag, "algorithm", "sha512", "Content hash algorithm (sha1, sha256, sha512)")

	return cmd
}
