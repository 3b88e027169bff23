package dupegraph

import (
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
)

// DuplicateInfo is the set of other currently-known paths sharing identical
// content with one child, as of the finalize step that consumed it.
type DuplicateInfo map[string]os.FileInfo

// finalize re-validates a directory against the child set captured at
// enumeration time, consumes each child's content-index bucket entry into a
// per-child duplicate map, folds the aggregate into a directory fingerprint
// and surfaces the result via diagnostics. The dependency graph guarantees
// every job descended from this directory's enumeration, including nested
// finalizes, has completed before this runs; that ordering is what makes
// the two-step bucket reads safe.
func (w *Worker) finalize(dirPath string, snapshot childSet, spawned map[string]struct{}) error {
	if err := w.verifyChildSet(dirPath, snapshot); err != nil {
		// Best-effort staleness detection: warn and proceed on the original
		// snapshot, no retry.
		w.log.Warn("failed to verify file list for directory",
			zap.String("dir", dirPath), zap.Error(err))
	}

	aggregate := make(map[string]DuplicateInfo, len(snapshot))
	resolved := 0

	for path, child := range snapshot {
		_, ours := spawned[path]
		switch child.Kind {
		case ItemFile, ItemSymlink:
			info, ok, err := w.consumeChild(path, ours)
			if err != nil {
				return err
			}
			if !ok {
				continue // hash job failed or symlink skipped, child absent from the index
			}
			aggregate[path] = info
			resolved++

		case ItemDir:
			// A subdirectory's fingerprint is written by its own finalize,
			// which is guaranteed complete. Absence is not a fault here: the
			// child enumeration may have failed, or the path may have been
			// claimed by an overlapping root.
			digest, ok := w.index.DigestFor(path)
			if !ok {
				w.log.Debug("no fingerprint for subdirectory", zap.String("path", path))
				continue
			}
			info, err := w.index.ConsumeBucketEntry(digest, path)
			if err != nil {
				return err
			}
			aggregate[path] = info
			resolved++
		}
	}

	w.foldDirectoryFingerprint(dirPath, snapshot)

	w.log.Info("directory finalized",
		zap.String("dir", dirPath),
		zap.Int("resolved", resolved),
		zap.Int("children", len(snapshot)))
	if ce := w.log.Check(zap.DebugLevel, "directory aggregate"); ce != nil {
		ce.Write(zap.String("dir", dirPath), zap.Any("aggregate", aggregateForLog(aggregate)))
	}

	return nil
}

// consumeChild takes a hashed child's bucket entry, returning ok=false when
// the child is legitimately absent: its hash job failed, it was skipped
// under the current symlink policy, or it was admitted by an overlapping
// enumeration whose work carries no ordering guarantee here. A missing
// entry for a child this enumeration spawned itself means the graph
// released this finalize too early, which is an invariant violation.
func (w *Worker) consumeChild(path string, ours bool) (DuplicateInfo, bool, error) {
	digest, ok := w.index.DigestFor(path)
	if !ok {
		if !ours || w.index.Failed(path) {
			return nil, false, nil
		}
		return nil, false, &InvariantError{
			Op:     "finalize",
			Path:   path,
			Detail: "no content hash for successfully processed child",
		}
	}
	info, err := w.index.ConsumeBucketEntry(digest, path)
	if err != nil {
		return nil, false, err
	}
	return DuplicateInfo(info), true, nil
}

// verifyChildSet re-lists the directory and compares the fresh child set
// against the enumeration snapshot
func (w *Worker) verifyChildSet(dirPath string, snapshot childSet) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to open directory %s: %w", dirPath, err)
	}

	fresh := make(childSet, len(entries))
	for _, entry := range entries {
		childPath := dirPath + string(os.PathSeparator) + entry.Name()
		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("error while reading directory %s: %w", dirPath, err)
		}
		child, err := ClassifyItem(childPath, info)
		if err != nil {
			return err
		}
		fresh[child.Path] = child
	}

	if !fresh.Equal(snapshot) {
		return fmt.Errorf("file list changed")
	}
	return nil
}

// foldDirectoryFingerprint derives a digest for the directory from its
// children, ordered by name: kind marker, name and the child's own digest
// (or an absent marker for children with none). The fingerprint goes through
// the same content-index write protocol as a file hash, so an ancestor
// finalize consumes directory children exactly like file children and
// identical directory trees land in the same bucket.
func (w *Worker) foldDirectoryFingerprint(dirPath string, snapshot childSet) {
	names := make([]string, 0, len(snapshot))
	for path := range snapshot {
		names = append(names, path)
	}
	sort.Strings(names)

	input := dirDigestPrefix
	for _, path := range names {
		child := snapshot[path]
		digest, ok := w.index.DigestFor(path)
		if !ok {
			digest = "\x01"
		}
		input += fmt.Sprintf("%d:%s\x00%s\x00", child.Kind, child.Info.Name(), digest)
	}

	info, err := os.Lstat(dirPath)
	if err != nil {
		w.log.Debug("skipping directory fingerprint", zap.String("dir", dirPath), zap.Error(err))
		return
	}

	if err := w.index.AddContentHash(dirPath, HashString(input, w.algorithm), info); err != nil {
		w.invariants.Add(1)
		w.log.Error("failed to register directory fingerprint",
			zap.String("dir", dirPath), zap.Error(err))
	}
}

// aggregateForLog flattens the aggregate into hex-free path lists so debug
// output stays readable
func aggregateForLog(aggregate map[string]DuplicateInfo) map[string][]string {
	out := make(map[string][]string, len(aggregate))
	for path, info := range aggregate {
		dupes := make([]string, 0, len(info))
		for p := range info {
			dupes = append(dupes, p)
		}
		sort.Strings(dupes)
		out[path] = dupes
	}
	return out
}
