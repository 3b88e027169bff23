package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	dupegraph "github.com/mattkeenan/dupegraph/pkg"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var (
		blockSizeFlag string
		threadsFlag   int
		crossFlag     bool
		symlinksFlag  string
		algorithmFlag string
		formatFlag    string
	)

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Walk directory trees and report duplicate files and directories",
		Args:  cobra.MinimumNArgs(1),
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
			if cmd.Flags().Changed("cross-filesystems") {
				opts.CrossFilesystem = crossFlag
			}
			if cmd.Flags().Changed("symlinks") {
				mode, err := dupegraph.ParseSymlinkMode(symlinksFlag)
				if err != nil {
					return err
				}
				opts.SymlinkMode = mode
			}
			if cmd.Flags().Changed("algorithm") {
				if err := dupegraph.ValidateHashAlgorithm(algorithmFlag); err != nil {
					return err
				}
				opts.Algorithm = algorithmFlag
			}
			if err := dupegraph.ValidateOutputFormat(formatFlag); err != nil {
				return err
			}

			scanner, err := dupegraph.NewScanner(opts)
			if err != nil {
				return err
			}

			roots := dupegraph.DeduplicateRoots(args)
			summary, err := scanner.Run(roots)
			if err != nil {
				return err
			}

			groups := scanner.Worker().DuplicateGroups()

			if formatFlag == "json" {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Summary    *dupegraph.Summary         `json:"summary"`
					Duplicates []dupegraph.DuplicateGroup `json:"duplicates"`
				}{summary, groups})
			}

			renderDuplicates(os.Stdout, groups)
			fmt.Printf("\n%d files and %d directories processed, %d duplicate groups\n",
				summary.FilesDone, summary.DirsDone, len(groups))
			if summary.JobErrors > 0 {
				fmt.Printf("%d jobs failed (see log output)\n", summary.JobErrors)
			}
			if summary.Invariants > 0 {
				fmt.Printf("%d invariant violations detected (see log output)\n", summary.Invariants)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&blockSizeFlag, "block-size", "b", "4M", "Block size to read files in")
	cmd.Flags().IntVarP(&threadsFlag, "threads", "j", dupegraph.DefaultThreads, "Maximum number of threads to use, 0 for all cores")
	cmd.Flags().BoolVarP(&crossFlag, "cross-filesystems", "x", false, "Allow the directory search to cross filesystem boundaries")
	cmd.Flags().StringVar(&symlinksFlag, "symlinks", "none", "Symlink policy (none, target)")
	cmd.Flags().StringVar(&algorithmFlag, "algorithm", "sha512", "Content hash algorithm (sha1, sha256, sha512)")
	cmd.Flags().StringVar(&formatFlag, "format", "human", "Output format (human, json)")

	return cmd
}
