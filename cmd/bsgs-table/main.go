// bsgs-table precomputes a baby-step table (or, with -window, a CUDA
// window table) and serializes it to disk so a solver run can load it
// instead of rebuilding it on every start.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"btc_bsgs/internal/babystep"
	"btc_bsgs/internal/gpubackend"
)

func main() {
	out := flag.String("out", ".", "output directory")
	m := flag.Int("m", 1<<20, "baby-step table size")
	window := flag.Bool("window", false, "generate the 16x65536 CUDA window table instead")
	flag.Parse()

	if *window {
		if err := generateWindowTable(*out); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := generateBabyStepTable(*out, *m); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func generateBabyStepTable(outDir string, m int) error {
	fmt.Printf("Building baby-step table (m=%d)...\n", m)
	start := time.Now()

	table, err := babystep.Build(m)
	if err != nil {
		return fmt.Errorf("building table: %w", err)
	}

	path := outDir + "/babystep.bstb"
	fmt.Printf("Saving to %s... ", path)
	if err := table.Save(path); err != nil {
		return fmt.Errorf("saving table: %w", err)
	}
	fmt.Println("OK")

	fmt.Printf("Completed in %s (%d entries)\n", time.Since(start).Round(time.Millisecond), table.Size())
	return nil
}

func generateWindowTable(outDir string) error {
	fmt.Println("Building secp256k1 window table (16 chunks x 65536 points)...")
	start := time.Now()

	wt, err := gpubackend.BuildWindowTable(func(chunk int) {
		fmt.Printf("\rChunk %d/%d...", chunk+1, gpubackend.WindowChunks)
	})
	if err != nil {
		return fmt.Errorf("building window table: %w", err)
	}
	fmt.Println(" done")

	xPath := outDir + "/window_x.bin"
	yPath := outDir + "/window_y.bin"
	fmt.Printf("Saving to %s and %s... ", xPath, yPath)
	if err := wt.Save(xPath, yPath); err != nil {
		return fmt.Errorf("saving window table: %w", err)
	}
	fmt.Println("OK")

	fmt.Printf("Completed in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}
