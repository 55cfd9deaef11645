// Package bsgs implements the BSGS search engine (§4.3): the baby-step
// table build, the giant-step sweep across search modes, the endomorphism
// probe, and the engine contract of §6 (initialize/start/stop/pause/
// resume/progress/results/checkpoint) that the CLI and coordinator drive.
package bsgs

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"btc_bsgs/internal/babystep"
	"btc_bsgs/internal/checkpoint"
	"btc_bsgs/internal/gpubackend"
	"btc_bsgs/internal/obslog"
	"btc_bsgs/internal/pool"
	"btc_bsgs/internal/secretbuf"
	"btc_bsgs/internal/target"
)

// Result is a published discrete-log solution.
type Result struct {
	PrivateKey *big.Int
	Target     target.Target
	FoundAtMs  int64
}

// Progress is a best-effort, non-atomic-as-a-whole snapshot of engine
// state (§5: "A single snapshot across all counters is NOT atomic").
type Progress struct {
	KeysChecked   uint64
	ResultsFound  uint32
	NextGiantStep uint64
	ElapsedMs     uint64
	Running       bool
	Paused        bool
}

// Engine is the BSGS search engine. The zero value is not usable; build
// one with New.
type Engine struct {
	logger *obslog.Logger

	mu        sync.Mutex
	params    Params
	targets   []target.Target
	lo, hi    *big.Int
	table     *babystep.Table
	m         int
	tablePath string

	pool    *pool.Pool
	backend gpubackend.Backend

	running  atomic.Bool
	paused   atomic.Bool
	stopFlag atomic.Bool

	keysChecked   atomic.Uint64
	nextGiantStep atomic.Uint64
	resultsFound  atomic.Uint32

	startedAt time.Time

	resultsMu  sync.Mutex
	results    []Result
	resultSeen map[string]bool

	progressSink atomic.Pointer[func(Progress)]
	resultSink   atomic.Pointer[func(Result)]

	checkpointEnabled atomic.Bool
	wg                sync.WaitGroup

	// loadedCheckpoint is set by LoadCheckpoint and consumed by the next
	// Start: it tells Start to preserve the restored counters instead of
	// zeroing them, and to resume the sweep past NextGiantStep instead of
	// restarting it from 0 (§4.3/§7: a crash bounds lost work, it does not
	// discard it).
	loadedCheckpoint atomic.Bool
}

// New builds an Engine that logs through the given logger (nil selects a
// default stderr logger tagged "bsgs").
func New(logger *obslog.Logger) *Engine {
	if logger == nil {
		logger = obslog.New(nil, "bsgs")
	}
	e := &Engine{
		logger:     logger,
		params:     DefaultParams(),
		resultSeen: make(map[string]bool),
	}
	e.checkpointEnabled.Store(true)
	return e
}

// Initialize sets the search targets. Must be called before Start.
func (e *Engine) Initialize(targets []target.Target) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return fmt.Errorf("bsgs: cannot initialize while running")
	}
	e.targets = append([]target.Target(nil), targets...)
	return nil
}

// SetRange sets the scalar interval [lo, hi] to search. Not part of §6's
// listed verb set verbatim, but required ambient state — every operation
// in §4.3 is defined relative to a range, and there is no other call on
// the engine contract that could carry it.
func (e *Engine) SetRange(lo, hi *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return fmt.Errorf("bsgs: cannot change range while running")
	}
	if lo.Cmp(hi) > 0 {
		return fmt.Errorf("bsgs: lo (%s) > hi (%s)", lo, hi)
	}
	e.lo = new(big.Int).Set(lo)
	e.hi = new(big.Int).Set(hi)
	return nil
}

// SetTablePath points Start at a baby-step table previously written by
// cmd/bsgs-table (babystep.Save). If the loaded table's size matches the
// m the run derives from the range and params, Start uses it in place of
// rebuilding the table from scratch; otherwise it falls back to Build and
// logs why. An empty path (the default) always builds fresh.
func (e *Engine) SetTablePath(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return fmt.Errorf("bsgs: cannot set table path while running")
	}
	e.tablePath = path
	return nil
}

// SetParams installs new search parameters.
func (e *Engine) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return fmt.Errorf("bsgs: cannot change params while running")
	}
	e.params = p
	return nil
}

// SetProgressSink installs the callback invoked with progress snapshots.
func (e *Engine) SetProgressSink(fn func(Progress)) {
	if fn == nil {
		e.progressSink.Store(nil)
		return
	}
	e.progressSink.Store(&fn)
}

// SetResultSink installs the callback invoked once per distinct published
// result, under the results mutex (§5: publication is sequenced under a
// mutex).
func (e *Engine) SetResultSink(fn func(Result)) {
	if fn == nil {
		e.resultSink.Store(nil)
		return
	}
	e.resultSink.Store(&fn)
}

// IsRunning reports whether a search is in progress (including paused).
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// GetResults returns a copy of the results published so far.
func (e *Engine) GetResults() []Result {
	e.resultsMu.Lock()
	defer e.resultsMu.Unlock()
	out := make([]Result, len(e.results))
	copy(out, e.results)
	return out
}

// GetProgress returns a best-effort snapshot of the engine's counters.
func (e *Engine) GetProgress() Progress {
	var elapsed uint64
	if !e.startedAt.IsZero() {
		elapsed = uint64(time.Since(e.startedAt).Milliseconds())
	}
	return Progress{
		KeysChecked:   e.keysChecked.Load(),
		ResultsFound:  e.resultsFound.Load(),
		NextGiantStep: e.nextGiantStep.Load(),
		ElapsedMs:     elapsed,
		Running:       e.running.Load(),
		Paused:        e.paused.Load(),
	}
}

// Pause blocks all giant-step workers before their next iteration.
func (e *Engine) Pause() {
	e.paused.Store(true)
}

// Resume un-pauses the engine.
func (e *Engine) Resume() {
	e.paused.Store(false)
}

// Stop requests a graceful shutdown; workers observe stopFlag at the top
// of every giant step (§5) so shutdown latency is bounded by one step.
func (e *Engine) Stop() {
	e.stopFlag.Store(true)
}

// Wait blocks until the current search run has fully stopped.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) emitProgress() {
	if p := e.progressSink.Load(); p != nil {
		(*p)(e.GetProgress())
	}
}

func (e *Engine) warnf(format string, args ...any) {
	e.logger.Warnf(format, args...)
}

// publish records a result if its key hasn't been seen before and invokes
// the result sink exactly once for it.
func (e *Engine) publish(r Result) {
	key := r.PrivateKey.String()

	e.resultsMu.Lock()
	if e.resultSeen[key] {
		e.resultsMu.Unlock()
		return
	}
	e.resultSeen[key] = true
	e.results = append(e.results, r)
	e.resultsFound.Add(1)
	sink := e.resultSink.Load()
	if sink != nil {
		(*sink)(r)
	}
	e.resultsMu.Unlock()
}

// deriveM computes the baby-step table size from N and K, honoring an
// explicit Params.M (§7: never silently override explicit user intent),
// clamping to N when N < m (§4.3 edge case).
func deriveM(n *big.Int, explicitM uint64, k uint32) int {
	if explicitM > 0 {
		m := explicitM
		nu64 := clampBigToUint64(n)
		if uint64(m) > nu64 {
			m = nu64
		}
		return int(m)
	}

	nf := new(big.Float).SetInt(n)
	kf := big.NewFloat(float64(k))
	ratio := new(big.Float).Quo(nf, kf)
	ratioF, _ := ratio.Float64()
	m := uint64(math.Ceil(math.Sqrt(ratioF)))
	if m == 0 {
		m = 1
	}
	nu64 := clampBigToUint64(n)
	if m > nu64 {
		m = nu64
	}
	return int(m)
}

// loadOrBuildTable honors a table path set via SetTablePath, reusing a
// precomputed table when it covers exactly m baby steps (cmd/bsgs-table's
// whole reason for existing per SPEC_FULL.md: repeated searches over the
// same m shouldn't pay to rebuild it) and falling back to a fresh Build
// otherwise.
func (e *Engine) loadOrBuildTable(m int) (*babystep.Table, error) {
	if e.tablePath == "" {
		return babystep.Build(m)
	}

	table, err := babystep.Load(e.tablePath)
	if err != nil {
		e.warnf("loading precomputed table %s: %v, building fresh", e.tablePath, err)
		return babystep.Build(m)
	}
	if table.Size() != m {
		e.warnf("precomputed table %s covers m=%d, run needs m=%d, building fresh", e.tablePath, table.Size(), m)
		return babystep.Build(m)
	}
	return table, nil
}

func clampBigToUint64(n *big.Int) uint64 {
	maxU64 := new(big.Int).SetUint64(^uint64(0))
	if n.Cmp(maxU64) > 0 {
		return ^uint64(0)
	}
	return n.Uint64()
}

// Start builds the baby-step table (if needed) and launches the giant-step
// sweep asynchronously. It returns once dispatch has begun; callers poll
// GetProgress/GetResults or rely on the sinks, and call Wait to block
// until the run drains.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running.Load() {
		e.mu.Unlock()
		return fmt.Errorf("bsgs: already running")
	}
	if e.lo == nil || e.hi == nil {
		e.mu.Unlock()
		return fmt.Errorf("bsgs: range not set")
	}

	n := new(big.Int).Sub(e.hi, e.lo)
	n.Add(n, big.NewInt(1))
	if n.Sign() <= 0 {
		e.mu.Unlock()
		return fmt.Errorf("bsgs: empty range")
	}

	m := deriveM(n, e.params.M, e.params.K)
	if uint64(m) != e.params.M && e.params.M != 0 {
		e.warnf("reduced m from %d to %d: range only has %s keys", e.params.M, m, n.String())
	}
	e.m = m

	table, err := e.loadOrBuildTable(m)
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("bsgs: building baby-step table: %w", err)
	}
	e.table = table

	threadCount := e.params.ThreadCount
	if threadCount <= 0 {
		threadCount = 1
	}
	e.pool = pool.New(threadCount)
	e.backend = gpubackend.Select(e.pool)

	pubkeyTargets := make([]target.Target, 0, len(e.targets))
	hashTargets := make([]target.Target, 0, len(e.targets))
	for _, t := range e.targets {
		switch t.Kind {
		case target.KindPubKey:
			pubkeyTargets = append(pubkeyTargets, t)
		case target.KindHash160:
			hashTargets = append(hashTargets, t)
		}
	}

	e.stopFlag.Store(false)
	e.paused.Store(false)

	var resumeFrom uint64
	if e.loadedCheckpoint.Load() {
		resumeFrom = e.nextGiantStep.Load()
		e.loadedCheckpoint.Store(false)
	} else {
		e.keysChecked.Store(0)
		e.nextGiantStep.Store(0)
	}

	e.startedAt = time.Now()
	e.running.Store(true)
	e.mu.Unlock()

	totalSteps := ceilDiv(n, int64(m))

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			e.running.Store(false)
			e.emitProgress()
			e.pool.Shutdown()
			if e.backend != nil {
				if err := e.backend.Close(); err != nil {
					e.warnf("closing compute backend: %v", err)
				}
			}
		}()

		if len(pubkeyTargets) > 0 {
			e.runGiantStepSweep(ctx, pubkeyTargets, totalSteps, resumeFrom)
		}
		if len(hashTargets) > 0 {
			e.runAddressScan(ctx, hashTargets, n)
		}
	}()

	go e.reportLoop()

	return nil
}

func (e *Engine) reportLoop() {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for e.running.Load() {
		<-ticker.C
		e.emitProgress()
	}
}

func ceilDiv(n *big.Int, d int64) uint64 {
	dB := big.NewInt(d)
	q, r := new(big.Int).QuoRem(n, dB, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return clampBigToUint64(q)
}

// SaveCheckpoint snapshots the current engine state to path. The engine
// need not be stopped, but a paused engine gives a consistent result set;
// a running engine's progress counters may be mid-update (§5).
func (e *Engine) SaveCheckpoint(path string) error {
	if !e.checkpointEnabled.Load() {
		return fmt.Errorf("bsgs: checkpointing disabled after a prior write failure")
	}

	e.mu.Lock()
	lo, hi := e.lo, e.hi
	m := e.m
	params := e.params
	targets := append([]target.Target(nil), e.targets...)
	e.mu.Unlock()

	var loBytes, hiBytes [32]byte
	if lo != nil {
		copy(loBytes[:], leftPad32(lo.Bytes()))
	}
	if hi != nil {
		copy(hiBytes[:], leftPad32(hi.Bytes()))
	}

	records := make([]checkpoint.TargetRecord, 0, len(targets))
	for _, t := range targets {
		switch t.Kind {
		case target.KindHash160:
			records = append(records, checkpoint.TargetRecord{Tag: checkpoint.TagHash160, Hash160: t.Hash160})
		case target.KindPubKey:
			records = append(records, checkpoint.TargetRecord{Tag: checkpoint.TagPubKeyCompressed, PubKey: t.CompressedPubKey()})
		}
	}

	e.resultsMu.Lock()
	resultRecords := make([]checkpoint.ResultRecord, 0, len(e.results))
	for _, r := range e.results {
		var rec checkpoint.ResultRecord
		padded := leftPad32(r.PrivateKey.Bytes())
		scratch := secretbuf.NewFromBytes(padded)
		for i := range padded {
			padded[i] = 0
		}
		copy(rec.PrivateKey[:], scratch.Bytes())
		scratch.Wipe()
		if r.Target.Kind == target.KindHash160 {
			rec.TargetHash = r.Target.Hash160
		}
		rec.FoundAtMs = uint64(r.FoundAtMs)
		resultRecords = append(resultRecords, rec)
	}
	e.resultsMu.Unlock()

	state := checkpoint.State{
		Mode:          uint8(params.Mode),
		Compression:   uint8(params.Compression),
		M:             uint64(m),
		K:             params.K,
		RangeLo:       loBytes,
		RangeHi:       hiBytes,
		Targets:       records,
		NextGiantStep: e.nextGiantStep.Load(),
		KeysChecked:   e.keysChecked.Load(),
		ElapsedMs:     e.GetProgress().ElapsedMs,
		Results:       resultRecords,
	}

	if err := checkpoint.Save(path, state); err != nil {
		e.checkpointEnabled.Store(false)
		return err
	}
	return nil
}

// LoadCheckpoint restores range, params, targets, progress, and results
// from path. The engine must not be running.
func (e *Engine) LoadCheckpoint(path string) error {
	if e.running.Load() {
		return fmt.Errorf("bsgs: cannot load checkpoint while running")
	}

	state, err := checkpoint.Load(path)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.lo = new(big.Int).SetBytes(state.RangeLo[:])
	e.hi = new(big.Int).SetBytes(state.RangeHi[:])
	e.params.Mode = Mode(state.Mode)
	e.params.Compression = Compression(state.Compression)
	e.params.M = state.M
	e.params.K = state.K
	e.m = int(state.M)

	targets := make([]target.Target, 0, len(state.Targets))
	for _, rec := range state.Targets {
		switch rec.Tag {
		case checkpoint.TagHash160:
			t, err := target.NewFromHash160(rec.Hash160[:], "")
			if err != nil {
				e.mu.Unlock()
				return err
			}
			targets = append(targets, t)
		case checkpoint.TagPubKeyCompressed:
			t, err := target.NewFromPubKeyBytes(rec.PubKey[:], "")
			if err != nil {
				e.mu.Unlock()
				return err
			}
			targets = append(targets, t)
		}
	}
	e.targets = targets
	e.mu.Unlock()

	e.nextGiantStep.Store(state.NextGiantStep)
	e.keysChecked.Store(state.KeysChecked)
	e.loadedCheckpoint.Store(true)

	e.resultsMu.Lock()
	e.results = e.results[:0]
	e.resultSeen = make(map[string]bool)
	for _, rec := range state.Results {
		k := new(big.Int).SetBytes(rec.PrivateKey[:])
		r := Result{PrivateKey: k, FoundAtMs: int64(rec.FoundAtMs)}
		if rec.TargetHash != ([20]byte{}) {
			if t, err := target.NewFromHash160(rec.TargetHash[:], ""); err == nil {
				r.Target = t
			}
		}
		e.results = append(e.results, r)
		e.resultSeen[k.String()] = true
	}
	e.resultsFound.Store(uint32(len(state.Results)))
	e.resultsMu.Unlock()

	return nil
}

func leftPad32(b []byte) []byte {
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}
