package dupegraph

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Options configures a graph scan run
type Options struct {
	// BlockSize is the per-read chunk size for hashing (default 4 MiB)
	BlockSize int
	// Threads is the worker pool size; 0 uses all available cores
	Threads int
	// CrossFilesystem disables device boundary pruning entirely
	CrossFilesystem bool
	// SymlinkMode selects the symlink policy (default: skip)
	SymlinkMode SymlinkMode
	// Algorithm names the content hash (default sha512)
	Algorithm string
	// Logger receives structured diagnostics; nil discards them
	Logger *zap.Logger
}

// Summary reports terminal counts after a full graph drain
type Summary struct {
	FilesDone  uint64
	TotalFiles uint64
	DirsDone   uint64
	TotalDirs  uint64
	JobErrors  uint64
	Invariants uint64
}

// Scanner drives one duplicate-detection run: it walks the given roots,
// hashes every admissible regular file concurrently and finalizes each
// directory bottom-up once all of its descendants completed.
type Scanner struct {
	opts   Options
	worker *Worker
	log    *zap.Logger
}

// NewScanner validates options and builds the run context. Failures here are
// initialization errors and abort the run before the graph starts.
func NewScanner(opts Options) (*Scanner, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = "sha512"
	}
	algorithm, err := GetHashAlgorithm(opts.Algorithm)
	if err != nil {
		return nil, err
	}

	mode, err := ParseSymlinkMode(string(opts.SymlinkMode))
	if err != nil {
		return nil, err
	}
	opts.SymlinkMode = mode

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Scanner{
		opts:   opts,
		worker: NewWorker(opts.BlockSize, algorithm, mode, opts.Logger),
		log:    opts.Logger,
	}, nil
}

// Worker exposes the run's shared context, mainly for progress reporting
func (s *Scanner) Worker() *Worker {
	return s.worker
}

// Run walks the given root paths to completion and returns the terminal
// summary. Each root captures its own device id once unless cross-filesystem
// traversal is enabled. Root resolution failures are fatal; errors inside the
// graph are logged, counted and never cancel the run, so Run always proceeds
// to full drain.
func (s *Scanner) Run(roots []string) (*Summary, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("no root paths given")
	}

	sched := NewScheduler(s.opts.Threads, s.log, s.worker.Process)

	for _, root := range roots {
		root = filepath.Clean(root)

		info, err := os.Lstat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat root path %s: %w", root, err)
		}

		rootDev := DeviceID{}
		if !s.opts.CrossFilesystem {
			rootDev, err = ResolveDeviceID(root, info)
			if err != nil {
				return nil, fmt.Errorf("failed to get root device id for %s: %w", root, err)
			}
		}

		job, ok, err := s.worker.newItemJob(root, info, rootDev)
		if err != nil {
			return nil, fmt.Errorf("failed to admit root path %s: %w", root, err)
		}
		if !ok {
			s.log.Warn("root path not admissible", zap.String("root", root))
			continue
		}
		sched.Submit(job)
	}

	jobErrors, invariants := sched.RunToCompletion()

	filesDone, totalFiles, dirsDone, totalDirs := s.worker.Progress()
	summary := &Summary{
		FilesDone:  filesDone,
		TotalFiles: totalFiles,
		DirsDone:   dirsDone,
		TotalDirs:  totalDirs,
		JobErrors:  jobErrors,
		Invariants: invariants + s.worker.invariants.Load(),
	}

	s.log.Info("scan complete",
		zap.Uint64("files", summary.FilesDone),
		zap.Uint64("dirs", summary.DirsDone),
		zap.Uint64("job_errors", summary.JobErrors),
		zap.Uint64("invariant_violations", summary.Invariants))

	return summary, nil
}

// DeduplicateRoots sorts roots and drops any path nested under an earlier
// one; scanning the parent reaches it anyway and the seen set would turn the
// nested traversal into no-ops.
func DeduplicateRoots(roots []string) []string {
	if len(roots) <= 1 {
		return roots
	}

	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		cleaned = append(cleaned, filepath.Clean(root))
	}
	sort.Strings(cleaned)

	var deduplicated []string
	for _, root := range cleaned {
		redundant := false
		for _, kept := range deduplicated {
			if strings.HasPrefix(root, kept+string(filepath.Separator)) || root == kept {
				redundant = true
				break
			}
		}
		if !redundant {
			deduplicated = append(deduplicated, root)
		}
	}
	return deduplicated
}
