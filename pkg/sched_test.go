package dupegraph

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// testJob is a minimal scheduler job: a name plus an optional body that may
// extend the graph through the handle
type testJob struct {
	name string
	run  func(h *Handle[testJob]) error
}

func (j testJob) String() string { return j.name }

// runRecorder captures job completion order across workers
type runRecorder struct {
	mu    sync.Mutex
	order []string
}

func (r *runRecorder) record(name string) {
	r.mu.Lock()
	r.order = append(r.order, name)
	r.mu.Unlock()
}

func (r *runRecorder) completed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func (r *runRecorder) indexOf(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.order {
		if n == name {
			return i
		}
	}
	return -1
}

func newTestScheduler(workers int, rec *runRecorder) *Scheduler[testJob] {
	return NewScheduler(workers, nil, func(j testJob, h *Handle[testJob]) error {
		var err error
		if j.run != nil {
			err = j.run(h)
		}
		rec.record(j.name)
		return err
	})
}

func TestSchedulerRunsAllSubmittedJobs(t *testing.T) {
	rec := &runRecorder{}
	sched := newTestScheduler(4, rec)

	for i := 0; i < 20; i++ {
		sched.Submit(testJob{name: fmt.Sprintf("job-%d", i)})
	}

	jobErrors, invariants := sched.RunToCompletion()
	require.Zero(t, jobErrors)
	require.Zero(t, invariants)
	require.Len(t, rec.completed(), 20)
}

func TestSchedulerLIFOOrder(t *testing.T) {
	rec := &runRecorder{}
	sched := newTestScheduler(1, rec)

	sched.Submit(testJob{name: "root", run: func(h *Handle[testJob]) error {
		h.Push(testJob{name: "a"})
		h.Push(testJob{name: "b"})
		return nil
	}})

	sched.RunToCompletion()

	// A single worker drains the ready stack last-in-first-out, so the job
	// pushed last runs first
	require.Equal(t, []string{"root", "b", "a"}, rec.completed())
}

func TestSchedulerFanInWaitsForSubtrees(t *testing.T) {
	rec := &runRecorder{}
	sched := newTestScheduler(4, rec)

	// Each dependency spawns further work while running; the fan-in node must
	// wait for those transitive spawns too, not just its direct dependencies
	child := func(name, spawnName string) func(h *Handle[testJob]) error {
		return func(h *Handle[testJob]) error {
			h.Push(testJob{name: spawnName})
			return nil
		}
	}

	sched.Submit(testJob{name: "root", run: func(h *Handle[testJob]) error {
		fin := h.CreateNode(testJob{name: "finalize"}, 2)
		h.PushDependency(testJob{name: "a", run: child("a", "a-spawn")}, fin)
		h.PushDependency(testJob{name: "b", run: child("b", "b-spawn")}, fin)
		return nil
	}})

	jobErrors, invariants := sched.RunToCompletion()
	require.Zero(t, jobErrors)
	require.Zero(t, invariants)

	order := rec.completed()
	require.Len(t, order, 6)
	require.Equal(t, "finalize", order[len(order)-1])
}

func TestSchedulerNestedFanIn(t *testing.T) {
	rec := &runRecorder{}
	sched := newTestScheduler(4, rec)

	sched.Submit(testJob{name: "root", run: func(h *Handle[testJob]) error {
		outer := h.CreateNode(testJob{name: "outer-finalize"}, 1)
		h.PushDependency(testJob{name: "child", run: func(h *Handle[testJob]) error {
			inner := h.CreateNode(testJob{name: "inner-finalize"}, 1)
			h.PushDependency(testJob{name: "grandchild"}, inner)
			return nil
		}}, outer)
		return nil
	}})

	jobErrors, invariants := sched.RunToCompletion()
	require.Zero(t, jobErrors)
	require.Zero(t, invariants)

	// The inner fan-in is part of the child's subtree, so the outer fan-in
	// must complete strictly after it
	require.Less(t, rec.indexOf("grandchild"), rec.indexOf("inner-finalize"))
	require.Less(t, rec.indexOf("inner-finalize"), rec.indexOf("outer-finalize"))
}

func TestSchedulerZeroDependencyNode(t *testing.T) {
	rec := &runRecorder{}
	sched := newTestScheduler(2, rec)

	sched.Submit(testJob{name: "root", run: func(h *Handle[testJob]) error {
		h.CreateNode(testJob{name: "empty-finalize"}, 0)
		return nil
	}})

	sched.RunToCompletion()
	require.Contains(t, rec.completed(), "empty-finalize")
}

func TestSchedulerErrorIsolation(t *testing.T) {
	rec := &runRecorder{}
	sched := newTestScheduler(2, rec)

	sched.Submit(testJob{name: "ok-1"})
	sched.Submit(testJob{name: "boom", run: func(h *Handle[testJob]) error {
		return fmt.Errorf("synthetic failure")
	}})
	sched.Submit(testJob{name: "ok-2"})

	jobErrors, invariants := sched.RunToCompletion()

	// The failing job is logged and dropped; everything else still runs
	require.Equal(t, uint64(1), jobErrors)
	require.Zero(t, invariants)
	require.Len(t, rec.completed(), 3)
}

func TestSchedulerCountsInvariantViolations(t *testing.T) {
	rec := &runRecorder{}
	sched := newTestScheduler(1, rec)

	sched.Submit(testJob{name: "violator", run: func(h *Handle[testJob]) error {
		return &InvariantError{Op: "test", Detail: "synthetic"}
	}})

	jobErrors, invariants := sched.RunToCompletion()
	require.Equal(t, uint64(1), jobErrors)
	require.Equal(t, uint64(1), invariants)
}

func TestSchedulerOverSatisfiedFanIn(t *testing.T) {
	rec := &runRecorder{}
	sched := newTestScheduler(1, rec)

	sched.Submit(testJob{name: "root", run: func(h *Handle[testJob]) error {
		fin := h.CreateNode(testJob{name: "finalize"}, 1)
		h.PushDependency(testJob{name: "dep-1"}, fin)
		h.PushDependency(testJob{name: "dep-2"}, fin)
		return nil
	}})

	jobErrors, invariants := sched.RunToCompletion()

	// The second dependency exceeds the declared fan-in: it is rejected and
	// counted, never executed
	require.Zero(t, jobErrors)
	require.Equal(t, uint64(1), invariants)
	require.NotContains(t, rec.completed(), "dep-2")
	require.Contains(t, rec.completed(), "dep-1")
	require.Contains(t, rec.completed(), "finalize")
}

func TestSchedulerFanInUnderLoad(t *testing.T) {
	rec := &runRecorder{}
	sched := newTestScheduler(8, rec)

	const width = 50
	sched.Submit(testJob{name: "root", run: func(h *Handle[testJob]) error {
		fin := h.CreateNode(testJob{name: "finalize"}, width)
		for i := 0; i < width; i++ {
			name := fmt.Sprintf("dep-%d", i)
			h.PushDependency(testJob{name: name, run: func(h *Handle[testJob]) error {
				h.Push(testJob{name: name + "-spawn"})
				return nil
			}}, fin)
		}
		return nil
	}})

	jobErrors, invariants := sched.RunToCompletion()
	require.Zero(t, jobErrors)
	require.Zero(t, invariants)

	order := rec.completed()
	require.Len(t, order, 2+2*width)
	require.Equal(t, "finalize", order[len(order)-1])
}
