// Command vdfdemo builds two small networks exercising the engine end to
// end: a pool accumulation chain fed by an ordinary producer,
// and a speculation node admitting a feedback cycle that a non-speculation
// node would have refused. It loads .env (if present) for runtime
// configuration and tags the run with a correlation ID for log correlation
// across the two scenarios.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/vdfkit/vdf/debug"
	"github.com/vdfkit/vdf/depcache"
	"github.com/vdfkit/vdf/diag"
	"github.com/vdfkit/vdf/invalidate"
	"github.com/vdfkit/vdf/isolate"
	"github.com/vdfkit/vdf/mask"
	"github.com/vdfkit/vdf/network"
	"github.com/vdfkit/vdf/poolchain"
	"github.com/vdfkit/vdf/specreg"
	"github.com/vdfkit/vdf/traverse"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}
	if os.Getenv("VDF_DEBUG") == "1" {
		debug.SetEnabled(true)
	}

	runID := uuid.New()
	logger := slog.Default().With("run_id", runID.String())
	provider := diag.NewSlogProvider(logger)
	ctx := context.Background()

	runRingAccumulation(ctx, provider, logger)
	runSpeculationCycle(ctx, provider, logger)
}

// runRingAccumulation builds a feeder -> accumulator(read-write pool) ->
// sink chain, connects the pool-chain indexer and schedule invalidation
// registry, and runs both an input-traversal-backed dependency cache
// lookup and an incremental update after adding a second feeder.
func runRingAccumulation(ctx context.Context, provider diag.Provider, logger *slog.Logger) {
	logger.Info("ring accumulation scenario starting")

	idx := poolchain.New()
	inv := invalidate.New(provider)
	n := network.New(
		network.WithDiagProvider(provider),
		network.WithPoolChainIndexer(idx),
		network.WithScheduleInvalidator(inv),
	)

	feeder := n.AddNode(network.NodeSpec{
		Kind:      "feeder",
		Outputs:   []specreg.OutputSpec{{Name: "value"}},
		DebugName: func() string { return "feeder-1" },
	})
	accumulator := n.AddNode(network.NodeSpec{
		Kind:      "accumulator",
		Inputs:    []specreg.InputSpec{{Name: "acc", ReadWrite: true, AssociatedOutput: "pool"}},
		Outputs:   []specreg.OutputSpec{{Name: "pool"}},
		DebugName: func() string { return "ring-accumulator" },
	})
	accumulator.Outputs()[0].SetWidth(4)

	sink := n.AddNode(network.NodeSpec{
		Kind:      "sink",
		Inputs:    []specreg.InputSpec{{Name: "in"}},
		DebugName: func() string { return "sink" },
	})

	n.Connect(feeder.Outputs()[0], accumulator.Inputs()[0], mask.All(4))
	n.Connect(accumulator.Outputs()[0], sink.Inputs()[0], mask.All(4))

	it := traverse.NewInputTraverser(idx)
	cache := depcache.New(it)

	req := network.NormalizeRequest([]network.MaskedOutput{
		{Output: sink.Inputs()[0].Connections()[0].Source(), Mask: mask.All(4)},
	})
	entry := cache.Compute(req)
	logger.Info("initial dependency entry", "output_refs", len(entry.OutputRefs), "node_refs", len(entry.NodeRefs))

	feeder2 := n.AddNode(network.NodeSpec{
		Kind:      "feeder",
		Outputs:   []specreg.OutputSpec{{Name: "value"}},
		DebugName: func() string { return "feeder-2" },
	})
	newConn := n.Connect(feeder2.Outputs()[0], accumulator.Inputs()[0], mask.FromIndices(4, 0, 1))

	entry, err := cache.IncrementalUpdate(ctx, req, []*network.Connection{newConn})
	if err != nil {
		logger.Error("incremental update failed", "error", err)
		return
	}
	logger.Info("incremental dependency entry", "output_refs", len(entry.OutputRefs), "node_refs", len(entry.NodeRefs))

	fmt.Printf("ring accumulation: %d outputs, %d nodes in dependency closure\n", len(entry.OutputRefs), len(entry.NodeRefs))
}

// runSpeculationCycle shows the topology admitting a feedback edge into a
// speculation node that a plain node would refuse, then tears the chain
// down via the isolated-subgraph helper.
func runSpeculationCycle(ctx context.Context, provider diag.Provider, logger *slog.Logger) {
	_ = ctx
	logger.Info("speculation cycle scenario starting")

	n := network.New(network.WithDiagProvider(provider))

	producer := n.AddNode(network.NodeSpec{Kind: "producer", Outputs: []specreg.OutputSpec{{Name: "o"}}})
	spec := n.AddNode(network.NodeSpec{
		Kind:        "speculative-merge",
		Speculation: true,
		Inputs:      []specreg.InputSpec{{Name: "i"}},
		Outputs:     []specreg.OutputSpec{{Name: "o"}},
	})

	n.Connect(producer.Outputs()[0], spec.Inputs()[0], mask.All(2))
	feedback := n.Connect(spec.Outputs()[0], spec.Inputs()[0], mask.All(2))
	if feedback == nil {
		logger.Error("expected feedback edge into a speculation node to be admitted")
	} else {
		fmt.Println("speculation node admitted a feedback cycle as expected")
	}

	res := isolate.DeleteIsolatedUpstream(n, spec)
	fmt.Printf("isolated teardown deleted %d nodes\n", len(res.DeletedNodes))
}
