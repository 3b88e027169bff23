package dupegraph

import (
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
)

// SymlinkMode selects the symlink policy for a run
type SymlinkMode string

const (
	// SymlinkNone skips symlinks at enumeration time (default). Skipping is
	// a policy decision like device pruning: not counted, not an error.
	SymlinkNone SymlinkMode = "none"
	// SymlinkTarget hashes the link's target path string, so links pointing
	// at the same target are reported as duplicates of each other. Targets
	// are never resolved or followed.
	SymlinkTarget SymlinkMode = "target"
)

// ParseSymlinkMode validates a symlink mode string
func ParseSymlinkMode(mode string) (SymlinkMode, error) {
	switch SymlinkMode(mode) {
	case SymlinkNone, SymlinkTarget:
		return SymlinkMode(mode), nil
	case "":
		return SymlinkNone, nil
	default:
		return "", fmt.Errorf("unknown symlink mode %q (want none or target)", mode)
	}
}

// Worker is the shared context handed to every job in a run: immutable
// configuration, the concurrent content index, relaxed progress counters and
// the diagnostic sink. One Worker lives for the whole graph drain; there is
// no package-level state.
type Worker struct {
	blockSize   int
	algorithm   *HashAlgorithm
	symlinkMode SymlinkMode

	filesDone  atomic.Uint64
	dirsDone   atomic.Uint64
	totalFiles atomic.Uint64
	totalDirs  atomic.Uint64
	invariants atomic.Uint64

	index *ContentIndex
	log   *zap.Logger
}

// NewWorker builds the shared context for one run
func NewWorker(blockSize int, algorithm *HashAlgorithm, symlinkMode SymlinkMode, logger *zap.Logger) *Worker {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		blockSize:   blockSize,
		algorithm:   algorithm,
		symlinkMode: symlinkMode,
		index:       NewContentIndex(),
		log:         logger,
	}
}

// Index exposes the run's content index
func (w *Worker) Index() *ContentIndex {
	return w.index
}

// Progress returns the four relaxed counters: files done/total, dirs
// done/total. Display only; the values are monotone but approximate while
// the graph is draining.
func (w *Worker) Progress() (filesDone, totalFiles, dirsDone, totalDirs uint64) {
	return w.filesDone.Load(), w.totalFiles.Load(), w.dirsDone.Load(), w.totalDirs.Load()
}

// newItemJob classifies path and decides admissibility against the traversal
// root's device id. An inadmissible child (other filesystem, or a symlink
// under the "none" policy) yields ok=false with no error: pruning is policy,
// not a fault, and pruned entries are never counted. Admissible items are
// counted toward the run totals here, at job-creation time.
func (w *Worker) newItemJob(path string, info os.FileInfo, rootDev DeviceID) (Job, bool, error) {
	if !rootDev.IsZero() {
		pathDev, err := ResolveDeviceID(path, info)
		if err != nil {
			return Job{}, false, fmt.Errorf("failed to get device id for %s: %w", path, err)
		}
		if !rootDev.SameDevice(pathDev) {
			w.log.Debug("pruning filesystem boundary", zap.String("path", path))
			return Job{}, false, nil
		}
	}

	item, err := ClassifyItem(path, info)
	if err != nil {
		return Job{}, false, err
	}

	if item.Kind == ItemSymlink && w.symlinkMode == SymlinkNone {
		w.log.Debug("skipping symlink", zap.String("path", path))
		return Job{}, false, nil
	}

	switch item.Kind {
	case ItemFile, ItemSymlink:
		w.totalFiles.Add(1)
	case ItemDir:
		w.totalDirs.Add(1)
	}

	return processItemJob(item, rootDev), true, nil
}

// tally bumps the done counter for the job and admits its path into the seen
// set. Only the first admission proceeds; a false return means a duplicate or
// overlapping enumeration already claimed the path and the job is a no-op.
// Finalize jobs bypass the check, they are created exactly once per directory
// by construction. Done counters are bumped before the job does real work so
// failed jobs still count as processed.
func (w *Worker) tally(job Job) bool {
	if job.Kind == JobFinalizeDir {
		return true
	}
	switch job.Item.Kind {
	case ItemFile, ItemSymlink:
		w.filesDone.Add(1)
	case ItemDir:
		w.dirsDone.Add(1)
	}
	return w.index.AdmitPath(job.Item.Path)
}

// Process executes one job. It is the scheduler's exec callback: errors are
// returned for the scheduler to log and drop without cancelling anything
// else in the graph.
func (w *Worker) Process(job Job, h *Handle[Job]) error {
	w.log.Debug("job", zap.String("job", job.String()))

	if !w.tally(job) {
		return nil // nothing to do, path already admitted elsewhere
	}

	switch job.Kind {
	case JobProcessItem:
		switch job.Item.Kind {
		case ItemFile:
			return w.hashItem(job.Item)
		case ItemSymlink:
			return w.hashSymlink(job.Item)
		case ItemDir:
			return w.enumerate(job.Item, job.RootDev, h)
		}
	case JobFinalizeDir:
		return w.finalize(job.Dir, job.Snapshot, job.Spawned)
	}
	return &InvariantError{Op: "process", Detail: fmt.Sprintf("unhandled job %s", job)}
}

// hashItem streams the file through the configured digest and registers the
// result in the content index. An unreadable file is an I/O error: the path
// is marked failed, excluded from both maps and the error bubbles up to be
// logged, while the done counter (already bumped) still records progress.
func (w *Worker) hashItem(item Item) error {
	digest, err := HashFile(item.Path, w.algorithm, w.blockSize)
	if err != nil {
		w.index.MarkFailed(item.Path)
		return err
	}
	return w.index.AddContentHash(item.Path, digest, item.Info)
}

// hashSymlink registers a digest of the link's target path (not the target's
// contents), domain-prefixed so it can never collide with file content.
func (w *Worker) hashSymlink(item Item) error {
	target, err := os.Readlink(item.Path)
	if err != nil {
		w.index.MarkFailed(item.Path)
		return fmt.Errorf("failed to read symlink target of %s: %w", item.Path, err)
	}
	digest := HashString(symlinkDigestPrefix+target, w.algorithm)
	return w.index.AddContentHash(item.Path, digest, item.Info)
}
