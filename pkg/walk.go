package dupegraph

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// enumerate lists a directory's children, classifies each, and spawns a
// ProcessItem job for every admissible child that has not already been
// admitted to the graph. It records the full as-observed child set and
// registers one FinalizeDir node whose fan-in equals the number of child
// jobs created; every child job is bound as a dependency of that node within
// this same walker step, so the finalize cannot run until the whole subtree
// under each child has completed.
func (w *Worker) enumerate(item Item, rootDev DeviceID, h *Handle[Job]) error {
	entries, err := os.ReadDir(item.Path)
	if err != nil {
		return fmt.Errorf("failed to open directory %s: %w", item.Path, err)
	}

	snapshot := make(childSet, len(entries))
	spawned := make(map[string]struct{}, len(entries))
	var children []Job

	for _, entry := range entries {
		childPath := filepath.Join(item.Path, entry.Name())

		info, err := entry.Info()
		if err != nil {
			// Child-level I/O failure: log and move on, the directory is
			// still finalized over the children we could observe.
			w.log.Error("error while reading directory",
				zap.String("dir", item.Path), zap.String("child", childPath), zap.Error(err))
			continue
		}

		child, err := ClassifyItem(childPath, info)
		if err != nil {
			w.invariants.Add(1)
			w.log.Error("unclassifiable directory entry",
				zap.String("dir", item.Path), zap.String("child", childPath), zap.Error(err))
			continue
		}

		snapshot[child.Path] = child

		if w.index.Seen(child.Path) {
			continue
		}

		job, ok, err := w.newItemJob(child.Path, info, rootDev)
		if err != nil {
			w.log.Error("error admitting directory entry",
				zap.String("dir", item.Path), zap.String("child", childPath), zap.Error(err))
			continue
		}
		if ok {
			children = append(children, job)
			spawned[child.Path] = struct{}{}
		}
	}

	finalize := h.CreateNode(finalizeDirJob(item.Path, snapshot, spawned), len(children))
	for _, job := range children {
		h.PushDependency(job, finalize)
	}

	return nil
}
