package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"btc_bsgs/internal/bsgs"
	"btc_bsgs/internal/cliio"
	"btc_bsgs/internal/obslog"
)

var (
	targetsFile = flag.String("targets", "", "Path to target file: one pubkey/hash160/address per line (required)")
	rangeSpec   = flag.String("range", "", "Search range: a bit count (\"66\") or a literal \"lo:hi\" hex pair (required)")

	mVal          = flag.Uint64("m", 0, "Baby-step table size (0 = automatic)")
	kVal          = flag.Uint("k", 1, "Memory/time trade-off factor")
	threads       = flag.Int("w", 0, "Worker thread count (0 = number of CPUs)")
	mode          = flag.String("mode", "sequential", "Giant-step traversal order: sequential, backward, bothways, random, dance")
	endomorphism  = flag.Bool("endo", true, "Enable the endomorphism probe")
	tablePath     = flag.String("table", "", "Path to a precomputed baby-step table (from bsgs-table); rebuilt if empty or the wrong size for this run")
	checkpointOut = flag.String("checkpoint", "solver.khck", "Path to write/resume the checkpoint file")
	resultFile    = flag.String("result", "result.txt", "Path to write a found private key")
	resumeFrom    = flag.String("resume", "", "Path to an existing checkpoint to resume from")
	counterInterv = flag.Int("c", 10, "Progress report interval in seconds (0 = disabled)")
	verbose       = flag.Bool("v", false, "Enable verbose output")

	resultFileMutex sync.Mutex
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()
	logger := obslog.New(os.Stderr, "bsgs-solver")

	if *targetsFile == "" {
		logger.Printf("error: -targets is required")
		return cliio.ExitInvalidArgs
	}

	targets, err := cliio.ParseTargetFile(*targetsFile)
	if err != nil {
		logger.Printf("error: %v", err)
		return cliio.ExitInvalidArgs
	}
	if len(targets) == 0 {
		logger.Printf("no targets found in %s", *targetsFile)
		return cliio.ExitNoResult
	}

	e := bsgs.New(logger)

	if *tablePath != "" {
		if err := e.SetTablePath(*tablePath); err != nil {
			logger.Printf("error: %v", err)
			return cliio.ExitInvalidArgs
		}
	}

	if *resumeFrom != "" {
		if err := e.LoadCheckpoint(*resumeFrom); err != nil {
			logger.Printf("error: loading checkpoint: %v", err)
			return cliio.ExitInvalidArgs
		}
		logger.Printf("resumed from checkpoint %s", *resumeFrom)
	} else {
		if *rangeSpec == "" {
			logger.Printf("error: -range is required unless -resume is set")
			return cliio.ExitInvalidArgs
		}
		lo, hi, err := cliio.ParseRange(*rangeSpec)
		if err != nil {
			logger.Printf("error: %v", err)
			return cliio.ExitInvalidArgs
		}
		if err := e.SetRange(lo, hi); err != nil {
			logger.Printf("error: %v", err)
			return cliio.ExitInvalidArgs
		}

		params := bsgs.DefaultParams()
		params.M = *mVal
		params.K = uint32(*kVal)
		params.Endomorphism = *endomorphism
		if *threads > 0 {
			params.ThreadCount = *threads
		}
		parsedMode, err := parseMode(*mode)
		if err != nil {
			logger.Printf("error: %v", err)
			return cliio.ExitInvalidArgs
		}
		params.Mode = parsedMode

		if err := e.SetParams(params); err != nil {
			logger.Printf("error: %v", err)
			return cliio.ExitInvalidArgs
		}
		if err := e.Initialize(targets); err != nil {
			logger.Printf("error: %v", err)
			return cliio.ExitInvalidArgs
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	found := make(chan bool, 1)
	e.SetResultSink(func(r bsgs.Result) {
		logResult(logger, r)
		select {
		case found <- true:
		default:
		}
	})

	if *counterInterv > 0 {
		go reportProgress(ctx, e, logger, time.Duration(*counterInterv)*time.Second)
	}

	if err := e.Start(ctx); err != nil {
		logger.Printf("error: starting engine: %v", err)
		return cliio.ExitInternal
	}

	checkpointTicker := time.NewTicker(30 * time.Second)
	defer checkpointTicker.Stop()
	engineDone := waitDone(e)

	interrupted := false
loop:
	for {
		select {
		case <-ctx.Done():
			interrupted = true
			e.Stop()
			break loop
		case <-checkpointTicker.C:
			if err := e.SaveCheckpoint(*checkpointOut); err != nil {
				logger.Warnf("checkpoint save failed: %v", err)
			}
		case <-engineDone:
			break loop
		}
	}

	e.Wait()
	if err := e.SaveCheckpoint(*checkpointOut); err != nil {
		logger.Warnf("final checkpoint save failed: %v", err)
	}

	results := e.GetResults()
	if interrupted {
		logger.Println("interrupted, checkpoint saved")
		return cliio.ExitInterrupted
	}
	if len(results) > 0 {
		return cliio.ExitFound
	}
	return cliio.ExitNoResult
}

// waitDone bridges Engine.Wait, which blocks, into a channel so it can sit
// in the same select as the context and checkpoint ticker.
func waitDone(e *bsgs.Engine) <-chan struct{} {
	c := make(chan struct{})
	go func() {
		e.Wait()
		close(c)
	}()
	return c
}

func parseMode(s string) (bsgs.Mode, error) {
	switch strings.ToLower(s) {
	case "sequential":
		return bsgs.ModeSequential, nil
	case "backward":
		return bsgs.ModeBackward, nil
	case "bothways":
		return bsgs.ModeBothways, nil
	case "random":
		return bsgs.ModeRandom, nil
	case "dance":
		return bsgs.ModeDance, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

func reportProgress(ctx context.Context, e *bsgs.Engine, logger *obslog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastChecked uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p := e.GetProgress()
			rate := (p.KeysChecked - lastChecked) / uint64(interval.Seconds())
			lastChecked = p.KeysChecked
			logger.Printf("checked %d keys (%d/sec), %d results", p.KeysChecked, rate, p.ResultsFound)
		}
	}
}

func logResult(logger *obslog.Logger, r bsgs.Result) {
	msg := fmt.Sprintf("PRIVATE KEY FOUND: %s (target %s)", r.PrivateKey.String(), r.Target.Label)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println(msg)
	fmt.Println(strings.Repeat("=", 60))

	resultFileMutex.Lock()
	defer resultFileMutex.Unlock()
	f, err := os.OpenFile(*resultFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logger.Printf("error opening result file: %v", err)
		return
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] target=%s privkey=%s\n", time.Now().Format(time.RFC3339), r.Target.Label, r.PrivateKey.String())
	if _, err := f.WriteString(line); err != nil {
		logger.Printf("error writing result file: %v", err)
	}
}
