package bsgs

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"btc_bsgs/internal/babystep"
	"btc_bsgs/internal/curve"
	"btc_bsgs/internal/target"
)

func mustPubKeyTarget(t *testing.T, k int64) target.Target {
	t.Helper()
	p := curve.ToAffine(curve.ScalarBaseMul(bigToScalar(big.NewInt(k))))
	tgt, err := target.NewFromPubKeyBytes(target.EncodeCompressed(p), "")
	if err != nil {
		t.Fatalf("building pubkey target: %v", err)
	}
	return tgt
}

func runAndWait(t *testing.T, e *Engine) []Result {
	t.Helper()
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	e.Wait()
	return e.GetResults()
}

func newTestEngine(lo, hi int64, m uint64, endo bool) *Engine {
	e := New(nil)
	e.SetRange(big.NewInt(lo), big.NewInt(hi))
	p := DefaultParams()
	p.M = m
	p.ThreadCount = 4
	p.Endomorphism = endo
	e.SetParams(p)
	return e
}

// S1: small range, known key, direct (non-endomorphism) lookup finds it.
func TestS1FindsKnownKeyDirect(t *testing.T) {
	const want = 0x15A37B
	e := newTestEngine(1, 2097151, 1024, false)
	tgt := mustPubKeyTarget(t, want)
	if err := e.Initialize([]target.Target{tgt}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	results := runAndWait(t, e)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].PrivateKey.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("expected key %d, got %s", want, results[0].PrivateKey)
	}
}

// S2: boundary-hit, scaled down from spec.md's puzzle-66 scenario (a
// target sitting exactly at a range boundary). The literal 2^65-wide
// range is infeasible to brute-force in a test, but a key at range.Lo
// and one at range.Hi exercise the same edge: m does not evenly divide
// the range width here, so the last giant-step chunk is partial and the
// boundary keys still have to be found within it.
func TestS2BoundaryHit(t *testing.T) {
	const lo, hi = 1, 999983
	const m = 777

	for _, tc := range []struct {
		name string
		want int64
	}{
		{"lo", lo},
		{"hi", hi},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(lo, hi, m, false)
			tgt := mustPubKeyTarget(t, tc.want)
			if err := e.Initialize([]target.Target{tgt}); err != nil {
				t.Fatalf("initialize: %v", err)
			}

			results := runAndWait(t, e)
			if len(results) != 1 {
				t.Fatalf("expected 1 result, got %d", len(results))
			}
			if results[0].PrivateKey.Cmp(big.NewInt(tc.want)) != 0 {
				t.Fatalf("expected key %d, got %s", tc.want, results[0].PrivateKey)
			}
		})
	}
}

// S3: target outside the searched range yields no result, and every key
// in the range is accounted for exactly once.
func TestS3NoResultOutsideRange(t *testing.T) {
	e := newTestEngine(1, 1000, 0, false)
	tgt := mustPubKeyTarget(t, 1001)
	if err := e.Initialize([]target.Target{tgt}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	results := runAndWait(t, e)
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
	if got := e.GetProgress().KeysChecked; got != 1000 {
		t.Fatalf("expected exactly 1000 keys checked, got %d", got)
	}
}

// S4: multiple distinct targets in the same range are all found.
func TestS4FindsMultipleTargets(t *testing.T) {
	wantA := int64(42)
	wantB := int64(99999)
	e := newTestEngine(1, 200000, 512, false)
	tgtA := mustPubKeyTarget(t, wantA)
	tgtB := mustPubKeyTarget(t, wantB)
	if err := e.Initialize([]target.Target{tgtA, tgtB}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	results := runAndWait(t, e)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	found := map[string]bool{}
	for _, r := range results {
		found[r.PrivateKey.String()] = true
	}
	if !found[big.NewInt(wantA).String()] || !found[big.NewInt(wantB).String()] {
		t.Fatalf("expected both %d and %d among results, got %v", wantA, wantB, results)
	}
}

// S5: with endomorphism probing enabled, the same key is still found, via
// whichever branch (direct or phi) happens to hit first.
func TestS5FindsKnownKeyWithEndomorphism(t *testing.T) {
	const want = 0x2C9F1
	e := newTestEngine(1, 1048575, 1024, true)
	tgt := mustPubKeyTarget(t, want)
	if err := e.Initialize([]target.Target{tgt}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	results := runAndWait(t, e)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].PrivateKey.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("expected key %d, got %s", want, results[0].PrivateKey)
	}
}

// candidateKeyEndo must recover the same k a direct baby-step hit would,
// for a scalar chosen so its endomorphism image also lands within m.
func TestCandidateKeyEndoMatchesDirectRecovery(t *testing.T) {
	lo := big.NewInt(1)
	const m = 2048
	const j = 3
	const i = 7

	// Construct k so that Cj = T - (lo+jm)*G lands exactly on
	// lambdaInv*i*G, guaranteeing phi(Cj) is a table hit at index i
	// rather than relying on a chance collision.
	s := new(big.Int).Mul(lambdaInv, big.NewInt(i))
	s.Mod(s, nBig)

	k := new(big.Int).Add(lo, big.NewInt(j*m))
	k.Add(k, s)
	k.Mod(k, nBig)

	cj := curve.ToAffine(curve.ScalarBaseMul(bigToScalar(s)))
	phiPoint := curve.Phi(cj)

	table, err := babystep.Build(m + 1)
	if err != nil {
		t.Fatalf("building table: %v", err)
	}
	got, ok := table.Lookup(phiPoint)
	if !ok {
		t.Fatalf("expected phi(Cj) to hit the table at index %d", i)
	}
	if got != i {
		t.Fatalf("expected table hit index %d, got %d", i, got)
	}

	recovered := candidateKeyEndo(lo, j, m, got)
	if recovered.Cmp(k) != 0 {
		t.Fatalf("candidateKeyEndo: expected %s, got %s", k, recovered)
	}
}

// Every mode (sequential/backward/bothways/random/dance) still finds the
// target and covers the range exactly once (P9/P10-style coverage).
func TestAllModesFindKnownKey(t *testing.T) {
	const want = 777
	modes := []Mode{ModeSequential, ModeBackward, ModeBothways, ModeRandom, ModeDance}
	for _, mode := range modes {
		mode := mode
		t.Run(mode.String(), func(t *testing.T) {
			e := newTestEngine(1, 100000, 256, false)
			p := e.params
			p.Mode = mode
			if err := e.SetParams(p); err != nil {
				t.Fatalf("set params: %v", err)
			}
			tgt := mustPubKeyTarget(t, want)
			if err := e.Initialize([]target.Target{tgt}); err != nil {
				t.Fatalf("initialize: %v", err)
			}

			results := runAndWait(t, e)
			if len(results) != 1 || results[0].PrivateKey.Cmp(big.NewInt(want)) != 0 {
				t.Fatalf("mode %s: expected to find %d, got %v", mode, want, results)
			}
			if got := e.GetProgress().KeysChecked; got != 100000 {
				t.Fatalf("mode %s: expected 100000 keys checked, got %d", mode, got)
			}
		})
	}
}

// S6: a checkpoint saved mid-run can be loaded into a fresh engine and
// resumes with the same range, targets, and accounting state.
func TestS6CheckpointSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.khck")

	e := newTestEngine(1, 500000, 512, false)
	tgt := mustPubKeyTarget(t, 321)
	if err := e.Initialize([]target.Target{tgt}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	e.mu.Lock()
	e.m = int(e.params.M)
	e.mu.Unlock()
	e.keysChecked.Store(250000)
	e.nextGiantStep.Store(250000 / 512)

	if err := e.SaveCheckpoint(path); err != nil {
		t.Fatalf("save checkpoint: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("checkpoint file missing: %v", err)
	}

	e2 := New(nil)
	if err := e2.LoadCheckpoint(path); err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if e2.keysChecked.Load() != 250000 {
		t.Fatalf("expected resumed keysChecked 250000, got %d", e2.keysChecked.Load())
	}
	if e2.lo.Cmp(big.NewInt(1)) != 0 || e2.hi.Cmp(big.NewInt(500000)) != 0 {
		t.Fatalf("expected range [1,500000], got [%s,%s]", e2.lo, e2.hi)
	}
	if len(e2.targets) != 1 {
		t.Fatalf("expected 1 restored target, got %d", len(e2.targets))
	}
}

// S6b: resuming a loaded checkpoint does not resweep giant steps already
// completed before the checkpoint was taken (§4.3/§7).
func TestS6ResumeSkipsCompletedSteps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resume.khck")

	const (
		lo, hi = 1, 1000000
		m      = 1000
		// totalSteps = (hi-lo+1)/m = 1000; simulate a checkpoint taken
		// halfway through a sequential sweep.
		resumeStep = 500
	)

	// already-swept key: index floor((k-lo)/m) = 123 < resumeStep.
	const sweptKey = 123456
	// not-yet-swept key: index floor((k-lo)/m) = 750 >= resumeStep.
	const pendingKey = 750123

	e := newTestEngine(lo, hi, m, false)
	sweptTgt := mustPubKeyTarget(t, sweptKey)
	pendingTgt := mustPubKeyTarget(t, pendingKey)
	if err := e.Initialize([]target.Target{sweptTgt, pendingTgt}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	e.mu.Lock()
	e.m = int(e.params.M)
	e.mu.Unlock()
	e.keysChecked.Store(resumeStep * m)
	e.nextGiantStep.Store(resumeStep)

	if err := e.SaveCheckpoint(path); err != nil {
		t.Fatalf("save checkpoint: %v", err)
	}

	e2 := New(nil)
	if err := e2.LoadCheckpoint(path); err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if err := e2.Initialize([]target.Target{sweptTgt, pendingTgt}); err != nil {
		t.Fatalf("initialize resumed engine: %v", err)
	}

	results := runAndWait(t, e2)

	if len(results) != 1 || results[0].PrivateKey.Cmp(big.NewInt(pendingKey)) != 0 {
		t.Fatalf("expected to find only the pending key %d, got %v", pendingKey, results)
	}

	// Had the resumed sweep redone steps [0, totalSteps) instead of only
	// [resumeStep, totalSteps), KeysChecked would read 500000 (resumeStep*m,
	// carried over) + 1000000 (the full resweep), not 1000000 total.
	const wantKeysChecked = hi - lo + 1
	if got := e2.GetProgress().KeysChecked; got != wantKeysChecked {
		t.Fatalf("expected KeysChecked %d after resume, got %d", wantKeysChecked, got)
	}
}

// Pause blocks forward progress until Resume is called.
func TestPauseBlocksProgress(t *testing.T) {
	e := newTestEngine(1, 20000000, 1, false)
	tgt := mustPubKeyTarget(t, 19999999)
	if err := e.Initialize([]target.Target{tgt}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	e.Pause()
	time.Sleep(5 * time.Millisecond)
	checked := e.GetProgress().KeysChecked

	time.Sleep(20 * time.Millisecond)
	if got := e.GetProgress().KeysChecked; got != checked {
		t.Fatalf("expected no progress while paused: was %d, now %d", checked, got)
	}

	e.Resume()
	e.Stop()
	e.Wait()
}

// A precomputed table (as cmd/bsgs-table would produce) is loaded and
// used instead of being rebuilt, when its size matches the run's m.
func TestSetTablePathUsesPrecomputedTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.bstb")

	const want = 4242
	const m = 512

	table, err := babystep.Build(m)
	if err != nil {
		t.Fatalf("building table: %v", err)
	}
	if err := table.Save(path); err != nil {
		t.Fatalf("saving table: %v", err)
	}

	e := newTestEngine(1, 1000000, m, false)
	if err := e.SetTablePath(path); err != nil {
		t.Fatalf("set table path: %v", err)
	}
	tgt := mustPubKeyTarget(t, want)
	if err := e.Initialize([]target.Target{tgt}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	results := runAndWait(t, e)
	if len(results) != 1 || results[0].PrivateKey.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("expected to find %d via the loaded table, got %v", want, results)
	}
}

// A table file whose m doesn't match the run's derived m is rejected in
// favor of a freshly built table, rather than silently used or erroring.
func TestSetTablePathWrongSizeFallsBackToBuild(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.bstb")

	table, err := babystep.Build(64)
	if err != nil {
		t.Fatalf("building table: %v", err)
	}
	if err := table.Save(path); err != nil {
		t.Fatalf("saving table: %v", err)
	}

	const want = 4242
	const m = 512

	e := newTestEngine(1, 1000000, m, false)
	if err := e.SetTablePath(path); err != nil {
		t.Fatalf("set table path: %v", err)
	}
	tgt := mustPubKeyTarget(t, want)
	if err := e.Initialize([]target.Target{tgt}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	results := runAndWait(t, e)
	if len(results) != 1 || results[0].PrivateKey.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("expected to find %d after falling back to a fresh m=%d table, got %v", want, m, results)
	}
	if e.table.Size() != m {
		t.Fatalf("expected fallback table sized m=%d, got %d", m, e.table.Size())
	}
}

// Concurrent callers publishing the same result only see it once.
func TestPublishDedupesConcurrently(t *testing.T) {
	e := New(nil)
	e.SetRange(big.NewInt(1), big.NewInt(10))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.publish(Result{PrivateKey: big.NewInt(5)})
		}()
	}
	wg.Wait()

	if got := len(e.GetResults()); got != 1 {
		t.Fatalf("expected exactly 1 deduplicated result, got %d", got)
	}
}

