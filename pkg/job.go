package dupegraph

import "fmt"

// JobKind discriminates the two units of scheduled work
type JobKind uint8

const (
	// JobProcessItem hashes a file or enumerates a directory
	JobProcessItem JobKind = iota
	// JobFinalizeDir aggregates a directory after all descendants completed
	JobFinalizeDir
)

// Job is a unit of scheduled work: process one classified Item, or finalize
// one directory against the child set observed during its enumeration. Jobs
// are created by the walker (or root submission), owned by the scheduler and
// executed exactly once.
type Job struct {
	Kind JobKind

	// ProcessItem fields
	Item    Item
	RootDev DeviceID // device id captured at the traversal root; zero when cross-filesystem traversal is enabled

	// FinalizeDir fields
	Dir      string
	Snapshot childSet
	// Spawned holds the child paths this enumeration actually created jobs
	// for. Children admitted by an overlapping enumeration are not in it;
	// their index entries carry no ordering guarantee relative to this
	// finalize.
	Spawned map[string]struct{}
}

func processItemJob(item Item, rootDev DeviceID) Job {
	return Job{Kind: JobProcessItem, Item: item, RootDev: rootDev}
}

func finalizeDirJob(dir string, snapshot childSet, spawned map[string]struct{}) Job {
	return Job{Kind: JobFinalizeDir, Dir: dir, Snapshot: snapshot, Spawned: spawned}
}

// String renders the job for diagnostics
func (j Job) String() string {
	switch j.Kind {
	case JobProcessItem:
		return j.Item.String()
	case JobFinalizeDir:
		return fmt.Sprintf("finalize directory (%d) %q", len(j.Snapshot), j.Dir)
	default:
		return fmt.Sprintf("unknown job kind %d", j.Kind)
	}
}
