package main

import (
	"fmt"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/weft-ui/weft/pkg/memhost"
	"github.com/weft-ui/weft/pkg/weft"
)

func benchCmd() *cobra.Command {
	var items int
	var updates int
	var seed int64

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run an in-process scheduler benchmark",
		Long: `Mount a keyed list, then repeatedly shuffle and mutate it,
measuring flush latency and host writes per update. No network, no
goroutines beyond the engine's own: this isolates render, reconcile,
and commit cost.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(items, updates, seed)
		},
	}

	cmd.Flags().IntVar(&items, "items", 1000, "List size")
	cmd.Flags().IntVar(&updates, "updates", 100, "Number of shuffle updates")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Shuffle seed")

	return cmd
}

var benchRow = &memhost.Template{
	Tag:        "li",
	ChildHoles: 1,
}

var benchList = &memhost.Template{
	Tag:        "ul",
	ChildHoles: 1,
}

type benchObserver struct {
	renders atomic.Int64
}

func (o *benchObserver) ObserveRender(string, weft.Lane, time.Duration) { o.renders.Add(1) }
func (o *benchObserver) ObserveCommit(weft.CommitPhase, int)            {}
func (o *benchObserver) ObserveFlush(time.Duration)                     {}

func runBench(items, updates int, seed int64) error {
	doc := memhost.NewDocument()
	backend := memhost.New(doc)
	observer := &benchObserver{}

	keys := make([]int, items)
	for i := range keys {
		keys[i] = i
	}
	rows := func(order []int) weft.TemplateResult {
		kvs := make([]weft.KeyedValue, len(order))
		for i, k := range order {
			kvs[i] = weft.Keyed(k, benchRow.Bind(fmt.Sprintf("row %d", k)))
		}
		return benchList.Bind(weft.List(kvs))
	}

	root := weft.NewRoot(rows(keys), doc.Body(), backend, weft.WithObserver(observer))
	if err := root.Mount(); err != nil {
		return err
	}
	backend.RunCallbacks()
	doc.ResetLog()

	rng := rand.New(rand.NewSource(seed))
	latencies := make([]time.Duration, 0, updates)
	var totalWrites uint64

	start := time.Now()
	for i := 0; i < updates; i++ {
		rng.Shuffle(len(keys), func(a, b int) { keys[a], keys[b] = keys[b], keys[a] })
		before := doc.TotalWrites()
		t0 := time.Now()
		if err := root.Update(rows(keys)); err != nil {
			return err
		}
		backend.RunCallbacks()
		latencies = append(latencies, time.Since(t0))
		totalWrites += doc.TotalWrites() - before
	}
	elapsed := time.Since(start)

	sort.Slice(latencies, func(a, b int) bool { return latencies[a] < latencies[b] })
	p := func(q float64) time.Duration {
		idx := int(q * float64(len(latencies)-1))
		return latencies[idx]
	}

	fmt.Printf("items:        %d\n", items)
	fmt.Printf("updates:      %d\n", updates)
	fmt.Printf("elapsed:      %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("renders:      %d\n", observer.renders.Load())
	fmt.Printf("host writes:  %d (%.1f per update)\n", totalWrites, float64(totalWrites)/float64(updates))
	fmt.Printf("latency p50:  %s\n", p(0.50).Round(time.Microsecond))
	fmt.Printf("latency p95:  %s\n", p(0.95).Round(time.Microsecond))
	fmt.Printf("latency p99:  %s\n", p(0.99).Round(time.Microsecond))
	return nil
}
