// Package coordinator implements the distributed work-queue of §4.5: a
// single authoritative process handing out disjoint scalar ranges to
// remote workers, deduplicating completions, and reassigning units whose
// worker goes quiet. Transport framing is left to callers (REGISTER/NEXT/
// COMPLETE/HEARTBEAT, per §6); this package only holds the state machine.
package coordinator

import (
	"fmt"
	"sync"
	"time"

	"btc_bsgs/internal/obslog"
	"btc_bsgs/internal/rangekey"
)

// WorkUnit is one assignable slice of the overall scalar range.
type WorkUnit struct {
	ID            uint64
	Range         rangekey.Range
	AssignedTo    string
	AssignedAt    time.Time
	Completed     bool
	CompletedAt   time.Time
	Result        *Result
}

// Result is a found private key reported against a work unit.
type Result struct {
	PrivateKey string
	TargetHash string
	FoundAtMs  uint64
}

// WorkerStatus tracks a registered worker's liveness and throughput.
type WorkerStatus struct {
	ID             string
	Host           string
	Device         string
	Connected      bool
	Busy           bool
	UnitsCompleted uint64
	KeysPerSecond  float64
	LastHeartbeat  time.Time
}

// ResultSink is invoked at most once per distinct key value. It runs after
// ReportCompletion has released the coordinator's mutex, so the order of
// deliveries from concurrent completions is not defined.
type ResultSink func(unit WorkUnit, result Result)

// Coordinator holds the pending queue, in-progress map, completed list,
// and worker registry described in §4.5. All methods are safe for
// concurrent use.
type Coordinator struct {
	mu sync.Mutex

	workTimeout time.Duration
	resultSink  ResultSink
	store       *Store
	logger      *obslog.Logger

	pending    []*WorkUnit
	inProgress map[uint64]*WorkUnit
	completed  []*WorkUnit
	workers    map[string]*WorkerStatus
	seenKeys   map[string]bool

	nextID uint64

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// New builds a Coordinator that partitions r into n equal work units and
// reassigns any unit not completed within workTimeout.
func New(r rangekey.Range, n int, workTimeout time.Duration) (*Coordinator, error) {
	parts, err := rangekey.Partitioner{}.SplitEqual(r, n)
	if err != nil {
		return nil, fmt.Errorf("coordinator: partitioning range: %w", err)
	}

	c := &Coordinator{
		workTimeout: workTimeout,
		logger:      obslog.New(nil, "coordinator"),
		pending:     make([]*WorkUnit, 0, len(parts)),
		inProgress:  make(map[uint64]*WorkUnit),
		workers:     make(map[string]*WorkerStatus),
		seenKeys:    make(map[string]bool),
		stopSweep:   make(chan struct{}),
	}
	for _, p := range parts {
		c.nextID++
		c.pending = append(c.pending, &WorkUnit{ID: c.nextID, Range: p})
	}
	return c, nil
}

// SetResultSink installs the callback report_completion invokes on a
// first-seen result. Must be called before Start for deterministic
// delivery of early completions.
func (c *Coordinator) SetResultSink(sink ResultSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resultSink = sink
}

// Start launches the timeout sweeper goroutine at the given cadence
// (1 Hz per §5 is sufficient for most deployments).
func (c *Coordinator) Start(cadence time.Duration) {
	go func() {
		ticker := time.NewTicker(cadence)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweepTimeouts()
			case <-c.stopSweep:
				return
			}
		}
	}()
}

// Stop halts the timeout sweeper. It does not discard any queue state.
func (c *Coordinator) Stop() {
	c.sweepOnce.Do(func() { close(c.stopSweep) })
}

// RegisterWorker inserts or updates a WorkerStatus; idempotent.
func (c *Coordinator) RegisterWorker(id, host, device string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.workers[id]
	if !ok {
		w = &WorkerStatus{ID: id}
		c.workers[id] = w
	}
	w.Host = host
	w.Device = device
	w.Connected = true
	w.LastHeartbeat = time.Now()
}

// GetNextWork pops the head of pending for worker id, or reports none
// available. The worker_id is trusted only for accounting.
func (c *Coordinator) GetNextWork(workerID string) (WorkUnit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return WorkUnit{}, false
	}

	u := c.pending[0]
	c.pending = c.pending[1:]
	u.AssignedTo = workerID
	u.AssignedAt = time.Now()
	c.inProgress[u.ID] = u

	if w, ok := c.workers[workerID]; ok {
		w.Busy = true
	}
	return *u, true
}

// ReportCompletion moves a unit from in_progress to completed. A nil
// result means the unit was scanned with no hit. Unknown work IDs are
// ignored as stale; duplicate completions of the same key are
// deduplicated so the sink fires exactly once per distinct key.
func (c *Coordinator) ReportCompletion(workID uint64, result *Result) {
	c.mu.Lock()

	u, ok := c.inProgress[workID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.inProgress, workID)
	u.Completed = true
	u.CompletedAt = time.Now()
	c.completed = append(c.completed, u)

	if w, ok := c.workers[u.AssignedTo]; ok {
		w.UnitsCompleted++
		w.Busy = false
	}

	var fire bool
	if result != nil && !c.seenKeys[result.PrivateKey] {
		c.seenKeys[result.PrivateKey] = true
		u.Result = result
		fire = true
	}
	sink := c.resultSink
	store := c.store
	unit := *u
	c.mu.Unlock()

	if store != nil {
		if err := store.RecordCompletion(unit); err != nil {
			c.logger.Warnf("persisting work unit completion: %v", err)
		}
	}

	if fire && sink != nil {
		sink(unit, *result)
	}
}

// Heartbeat updates a worker's liveness timestamp and throughput.
func (c *Coordinator) Heartbeat(workerID string, keysPerSecond float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.workers[workerID]; ok {
		w.LastHeartbeat = time.Now()
		w.KeysPerSecond = keysPerSecond
	}
}

// sweepTimeouts reinserts any in_progress unit whose assignment has aged
// past workTimeout back into pending. At-least-once execution follows;
// ReportCompletion's key dedup bounds it to at-most-one published result.
func (c *Coordinator) sweepTimeouts() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for id, u := range c.inProgress {
		if now.Sub(u.AssignedAt) <= c.workTimeout {
			continue
		}
		delete(c.inProgress, id)
		u.AssignedTo = ""
		u.AssignedAt = time.Time{}
		c.pending = append(c.pending, u)
	}
}

// Snapshot reports the coordinator's queue sizes, for dashboards and
// tests verifying the partition-cover invariant.
type Snapshot struct {
	Pending    int
	InProgress int
	Completed  int
}

func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Pending:    len(c.pending),
		InProgress: len(c.inProgress),
		Completed:  len(c.completed),
	}
}

// TotalUnits is the number of work units the original partition produced;
// Pending+InProgress+Completed must always equal this.
func (c *Coordinator) TotalUnits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending) + len(c.inProgress) + len(c.completed)
}
