// graphopt builds a small demo feed-forward ensemble network, runs the
// merge optimizer against it logging per-pass statistics, and can save
// or load the resulting graph as a snapshot for diagnostics.
package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/grailbio/neurograph/builder"
	"github.com/grailbio/neurograph/optimizer"
	"github.com/grailbio/neurograph/simulator"
	"github.com/grailbio/neurograph/snapshot"
)

func main() {
	savePath := flag.String("save", "", "Path to write an optimized snapshot to. (default: don't save)")
	loadPath := flag.String("load", "", "Path to a snapshot to load and summarize, instead of building the demo network.")
	codecFlag := flag.String("codec", "snappy", "Snapshot compression codec: snappy, flate, or zlibng.")
	steps := flag.Int("steps", 10, "Number of simulator steps to run before optimization.")
	dt := flag.Float64("dt", 0.001, "Simulator step size, in seconds.")

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	if *loadPath != "" {
		summarizeSnapshot(ctx, *loadPath)
		return
	}

	codec, err := parseCodec(*codecFlag)
	if err != nil {
		log.Panicf("graphopt: %v", err)
	}

	nw, err := builder.DemoNetwork()
	if err != nil {
		log.Panicf("graphopt: building demo network: %v", err)
	}
	log.Printf("graphopt: built demo network with %d operators", len(nw.Model.Operators))

	sim, err := simulator.New(nw.Model, *dt)
	if err != nil {
		log.Panicf("graphopt: %v", err)
	}
	if err := sim.Steps(*steps); err != nil {
		log.Panicf("graphopt: simulating before optimize: %v", err)
	}

	if err := optimizer.Optimize(ctx, nw.Model); err != nil {
		log.Panicf("graphopt: optimize: %v", err)
	}
	log.Printf("graphopt: optimized down to %d operators", len(nw.Model.Operators))

	if *savePath != "" {
		if err := snapshot.Save(ctx, snapshot.LocalBackend{}, *savePath, nw.Model, codec); err != nil {
			log.Panicf("graphopt: saving snapshot: %v", err)
		}
	}

	log.Printf("graphopt: done")
}

func summarizeSnapshot(ctx context.Context, path string) {
	snap, err := snapshot.Load(ctx, snapshot.LocalBackend{}, path)
	if err != nil {
		log.Panicf("graphopt: loading snapshot %s: %v", path, err)
	}
	log.Printf("graphopt: %s: format v%d, %d operators, %d signals, %d signal-index entries, %d dependency edges",
		path, snap.FormatVersion, len(snap.Operators), len(snap.Signals), len(snap.SignalIndex), len(snap.DependencyEdges)/2)
}

func parseCodec(s string) (snapshot.Codec, error) {
	switch s {
	case "snappy":
		return snapshot.CodecSnappy, nil
	case "flate":
		return snapshot.CodecFlate, nil
	case "zlibng":
		return snapshot.CodecZlibNG, nil
	default:
		return 0, fmt.Errorf("unknown codec %q (want snappy, flate, or zlibng)", s)
	}
}
