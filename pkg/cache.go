package dupegraph

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// cacheHashJob is one file queued for hashing during a batch snapshot build
type cacheHashJob struct {
	RelPath string
	AbsPath string
}

// cacheHashResult carries a completed hash back to the collector
type cacheHashResult struct {
	RelPath string
	Digest  Digest
	Err     error
}

// BuildSnapshot runs the simple batch mode: a flat walk of root feeding a
// pool of hash workers, collected into a sorted path→hash snapshot. There is
// no dependency graph, no per-directory aggregation and no device boundary
// pruning here; symlinks and non-regular files are skipped. Unreadable files
// are logged and left out of the snapshot, the walk continues.
func BuildSnapshot(root string, opts Options) (*Snapshot, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.Algorithm == "" {
		opts.Algorithm = "sha512"
	}
	algorithm, err := GetHashAlgorithm(opts.Algorithm)
	if err != nil {
		return nil, err
	}

	root = filepath.Clean(root)
	info, err := os.Lstat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root path %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("snapshot root %s is not a directory", root)
	}

	workers := opts.Threads
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	jobs := make(chan cacheHashJob, workers*2)
	results := make(chan cacheHashResult, workers*2)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for job := range jobs {
				digest, err := HashFile(job.AbsPath, algorithm, opts.BlockSize)
				results <- cacheHashResult{RelPath: job.RelPath, Digest: digest, Err: err}
			}
		}()
	}

	// Close the results channel once every worker has drained the job queue
	go func() {
		wg.Wait()
		close(results)
	}()

	walkErr := make(chan error, 1)
	go func() {
		defer close(jobs)
		walkErr <- filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				logger.Error("error while walking", zap.String("path", path), zap.Error(err))
				return nil // skip unreadable subtrees, keep walking
			}
			if !entry.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				logger.Error("error resolving relative path", zap.String("path", path), zap.Error(err))
				return nil
			}
			jobs <- cacheHashJob{RelPath: rel, AbsPath: path}
			return nil
		})
	}()

	snapshot := NewSnapshot(root, algorithm.TypeID)
	for result := range results {
		if result.Err != nil {
			logger.Error("failed to hash file", zap.String("path", result.RelPath), zap.Error(result.Err))
			continue
		}
		snapshot.Add(result.RelPath, result.Digest)
	}

	if err := <-walkErr; err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	logger.Info("snapshot built",
		zap.String("root", root),
		zap.Int("entries", snapshot.Len()),
		zap.String("hash", algorithm.Name))

	return snapshot, nil
}
