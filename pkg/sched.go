package dupegraph

import (
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// Scheduler executes a dynamically grown dependency graph of jobs on a fixed
// worker pool. Jobs may create further jobs while running, including fan-in
// "finalize" nodes that become ready only after an exact number of dependency
// jobs, and everything those jobs transitively create, has completed.
//
// The graph is an explicit node table keyed by integer id. Each node carries
// a pending-predecessor count and a list of refcounted release tokens owed to
// successor nodes. Every node created during a job's execution inherits the
// creating node's tokens, so a dependency edge is released only when the
// entire subtree hanging off the dependency is done. Decrementing a node's
// pending count to zero pushes it onto a shared last-in-first-out ready
// stack; LIFO order drains deep subtrees before expanding siblings, which
// bounds how many open enumerations are in flight at once.
//
// A job returning an error is logged with job context and dropped; it never
// cancels sibling or dependent nodes. Invariant violations are additionally
// counted so callers can treat any occurrence as a failure.
type Scheduler[J fmt.Stringer] struct {
	exec    func(J, *Handle[J]) error
	workers int
	log     *zap.Logger

	mu          sync.Mutex
	cond        *sync.Cond
	nodes       map[uint64]*schedNode[J]
	nextID      uint64
	ready       []*schedNode[J]
	outstanding int
	jobErrors   uint64
	invariants  uint64
}

type schedNode[J fmt.Stringer] struct {
	id      uint64
	job     J
	pending int
	tokens  []*depToken[J]
}

// depToken is one release owed to a successor node. refs counts the live
// holders (the original dependency job plus every node it transitively
// spawned); the successor's pending count drops by one when refs reaches
// zero.
type depToken[J fmt.Stringer] struct {
	succID uint64
	refs   int
}

// PendingNode is a not-yet-ready fan-in node returned by CreateNode; it hands
// out one release token per declared dependency.
type PendingNode[J fmt.Stringer] struct {
	node      *schedNode[J]
	remaining int
}

// Handle lets an executing job extend the graph. It is only valid for the
// duration of that job's execution.
type Handle[J fmt.Stringer] struct {
	s    *Scheduler[J]
	node *schedNode[J]
}

// NewScheduler builds a scheduler running exec on workers goroutines.
// workers <= 0 uses all available cores.
func NewScheduler[J fmt.Stringer](workers int, logger *zap.Logger, exec func(J, *Handle[J]) error) *Scheduler[J] {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler[J]{
		exec:    exec,
		workers: workers,
		log:     logger,
		nodes:   make(map[uint64]*schedNode[J]),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Submit enqueues a root-level job with no predecessors. It must be called
// before RunToCompletion.
func (s *Scheduler[J]) Submit(job J) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.newNodeLocked(job, 0, nil)
	s.pushReadyLocked(n)
}

// RunToCompletion blocks until the graph is fully drained: every submitted
// job and every job dynamically created during execution has run. It returns
// the number of job errors and invariant violations observed.
func (s *Scheduler[J]) RunToCompletion() (jobErrors, invariants uint64) {
	var wg sync.WaitGroup
	wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func() {
			defer wg.Done()
			s.workerLoop()
		}()
	}
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobErrors, s.invariants
}

func (s *Scheduler[J]) workerLoop() {
	s.mu.Lock()
	for {
		for len(s.ready) == 0 && s.outstanding > 0 {
			s.cond.Wait()
		}
		if len(s.ready) == 0 {
			break // drained
		}
		n := s.ready[len(s.ready)-1]
		s.ready = s.ready[:len(s.ready)-1]
		s.mu.Unlock()

		err := s.exec(n.job, &Handle[J]{s: s, node: n})

		s.mu.Lock()
		if err != nil {
			s.jobErrors++
			if IsInvariantError(err) {
				s.invariants++
				s.log.Error("job aborted on invariant violation",
					zap.Uint64("node", n.id), zap.String("job", n.job.String()), zap.Error(err))
			} else {
				s.log.Error("job failed",
					zap.Uint64("node", n.id), zap.String("job", n.job.String()), zap.Error(err))
			}
		}
		s.retireLocked(n)
	}
	s.mu.Unlock()
}

// newNodeLocked adds a node to the table. tokens are taken as-is; callers
// have already accounted their refs.
func (s *Scheduler[J]) newNodeLocked(job J, pending int, tokens []*depToken[J]) *schedNode[J] {
	s.nextID++
	n := &schedNode[J]{id: s.nextID, job: job, pending: pending, tokens: tokens}
	s.nodes[n.id] = n
	s.outstanding++
	return n
}

func (s *Scheduler[J]) pushReadyLocked(n *schedNode[J]) {
	s.ready = append(s.ready, n)
	s.cond.Signal()
}

// retireLocked releases the node's tokens and removes it from the table.
// Any successor whose pending count reaches zero becomes ready immediately.
func (s *Scheduler[J]) retireLocked(n *schedNode[J]) {
	for _, t := range n.tokens {
		t.refs--
		if t.refs > 0 {
			continue
		}
		succ, ok := s.nodes[t.succID]
		if !ok {
			continue // successor already retired; cannot happen with exact fan-in
		}
		succ.pending--
		if succ.pending == 0 {
			s.pushReadyLocked(succ)
		}
	}
	delete(s.nodes, n.id)
	s.outstanding--
	if s.outstanding == 0 {
		s.cond.Broadcast() // wake idle workers so they can exit
	}
}

// inheritLocked clones the creating node's tokens for a newly spawned node
func inheritLocked[J fmt.Stringer](creator *schedNode[J]) []*depToken[J] {
	if len(creator.tokens) == 0 {
		return nil
	}
	tokens := make([]*depToken[J], len(creator.tokens))
	for i, t := range creator.tokens {
		t.refs++
		tokens[i] = t
	}
	return tokens
}

// Push enqueues an independent job. The new node inherits the executing
// node's release obligations, so ancestors still wait for it.
func (h *Handle[J]) Push(job J) {
	s := h.s
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.newNodeLocked(job, 0, inheritLocked(h.node))
	s.pushReadyLocked(n)
}

// CreateNode registers a fan-in node that becomes ready once deps dependency
// jobs, registered with PushDependency, have fully completed. The fan-in
// count is fixed here and must be matched exactly by subsequent
// PushDependency calls. With deps == 0 the node is ready immediately.
func (h *Handle[J]) CreateNode(job J, deps int) *PendingNode[J] {
	s := h.s
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.newNodeLocked(job, deps, inheritLocked(h.node))
	if deps == 0 {
		s.pushReadyLocked(n)
	}
	return &PendingNode[J]{node: n, remaining: deps}
}

// PushDependency enqueues job as one of pn's declared dependencies. The new
// node holds a release token for pn in addition to the executing node's
// inherited obligations; pn's pending count drops only when the job and
// everything it transitively spawns have completed.
func (h *Handle[J]) PushDependency(job J, pn *PendingNode[J]) {
	s := h.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if pn.remaining <= 0 {
		// Over-satisfying the declared fan-in is a caller bug.
		s.invariants++
		s.log.Error("dependency pushed beyond declared fan-in",
			zap.Uint64("node", pn.node.id), zap.String("job", job.String()))
		return
	}
	pn.remaining--
	tokens := inheritLocked(h.node)
	tokens = append(tokens, &depToken[J]{succID: pn.node.id, refs: 1})
	n := s.newNodeLocked(job, 0, tokens)
	s.pushReadyLocked(n)
}
