// Command ioreplay replays captured storage-I/O traces against a scratch
// filesystem, measuring file-creation, I/O, and teardown time the way the
// original capture tool recorded it.
//
// Usage:
//
//	ioreplay [flags] <trace-file> [trace-file ...]
//
// Flags mirror the original capture tool's getopt surface one-for-one
// (spec.md expansion §6): -d preserves recorded inter-operation delays,
// -n sets the iteration count per wave, -t caps the worker-thread count.
//
// Reference: original_source/ioshark/ioshark_bench.c's main()/get_start_end()
// for the overall wave-planning loop this command drives.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/exec"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aalhour/ioreplay/internal/aggregate"
	"github.com/aalhour/ioreplay/internal/capacity"
	"github.com/aalhour/ioreplay/internal/config"
	"github.com/aalhour/ioreplay/internal/logging"
	"github.com/aalhour/ioreplay/internal/pump"
	"github.com/aalhour/ioreplay/internal/replay"
	"github.com/aalhour/ioreplay/internal/tracefmt"
	"github.com/aalhour/ioreplay/vfs"
)

var (
	delayFlag   = flag.Bool("d", false, "preserve recorded inter-operation delays (delta_us)")
	iterFlag    = flag.Int("n", config.DefaultIterations, "replay iterations per wave")
	threadsFlag = flag.Int("t", config.DefaultMaxWorkers, "worker-thread ceiling per wave")
	scratchFlag = flag.String("scratch", "", "scratch directory for synthesized files (required)")
	dropCmdFlag = flag.String("drop-caches-cmd", "", "external command run between phases to hint a page-cache drop")
	metricsFlag = flag.String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090); empty disables it")
)

func usage() {
	fmt.Fprintf(os.Stderr, `ioreplay - storage-I/O trace replay benchmark

Usage:
  ioreplay [flags] <trace-file> [trace-file ...]

Flags:
  -d                    preserve recorded inter-operation delays
  -n N                  replay iterations per wave (default %d)
  -t N                  worker-thread ceiling per wave (default %d)
  -scratch PATH         scratch directory for synthesized files (required)
  -drop-caches-cmd CMD  external command hinting a page-cache drop between phases
  -metrics-addr ADDR    serve Prometheus metrics on ADDR
`, config.DefaultIterations, config.DefaultMaxWorkers)
}

func main() {
	flag.Usage = usage
	flag.Parse()

	logger := logging.NewDefaultLogger(logging.LevelInfo)
	logger.SetFatalHandler(func(string) { os.Exit(1) })

	cfg := config.New()
	cfg.DelayEnabled = *delayFlag
	cfg.Iterations = *iterFlag
	cfg.MaxWorkers = *threadsFlag
	cfg.ScratchDir = *scratchFlag
	cfg.DropCachesCmd = *dropCmdFlag
	cfg.MetricsAddr = *metricsFlag

	if flag.NArg() == 0 {
		usage()
		os.Exit(1)
	}

	// Unreadable-input-file is fatal at startup, before any wave planning
	// begins; an empty trace is skipped with a diagnostic and the run
	// continues (spec.md expansion §6, supplemented from the original
	// source's main()).
	var traces []capacity.Trace
	for _, path := range flag.Args() {
		info, err := os.Stat(path)
		if err != nil {
			logger.Fatalf("%scan't stat %s: %v", logging.NSCapacity, path, err)
			return
		}
		if info.Size() == 0 {
			logger.Warnf("%sempty trace file %s, skipping", logging.NSCapacity, path)
			continue
		}

		size, err := traceTotalSize(path)
		if err != nil {
			logger.Fatalf("%scan't read %s: %v", logging.NSCapacity, path, err)
			return
		}
		cfg.TracePaths = append(cfg.TracePaths, path)
		traces = append(traces, capacity.Trace{TotalSize: size})
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage()
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.ScratchDir, 0o755); err != nil {
		logger.Fatalf("%scan't create scratch directory %s: %v", logging.NSCapacity, cfg.ScratchDir, err)
		return
	}

	logger.Infof("%stotal input files = %d, iterations = %d", logging.NSCapacity, len(cfg.TracePaths), cfg.Iterations)

	agg := aggregate.New()
	if cfg.MetricsAddr != "" {
		serveMetrics(cfg.MetricsAddr, agg, logger)
	}

	run(context.Background(), cfg, traces, agg, logger)
	printReport(agg, len(cfg.TracePaths))
}

// traceTotalSize opens path just long enough to sum its file-state table,
// for the Capacity Planner's wave-sizing pass (spec.md §4.7). The trace is
// reopened fresh by the Trace Worker when its wave actually runs.
func traceTotalSize(path string) (uint64, error) {
	r, closer, err := tracefmt.OpenTraceFile(path)
	if err != nil {
		return 0, err
	}
	defer closer.Close()

	states, err := r.ReadFileStates()
	if err != nil {
		return 0, err
	}
	return capacity.TotalSize(states), nil
}

// run drives the wave loop: plan a wave, pre-create its files, replay them
// cfg.Iterations times, tear them down, then move to the next wave
// (spec.md §2, §4.6, §4.7).
func run(ctx context.Context, cfg config.Config, traces []capacity.Trace, agg *aggregate.Aggregator, logger logging.Logger) {
	planner := capacity.New(traces, func() (uint64, error) { return vfs.FreeBytes(cfg.ScratchDir) })

	openTraces := make([]*replay.Trace, len(cfg.TracePaths))

	for !planner.Done() {
		wave, err := planner.NextWave()
		if err != nil {
			logger.Fatalf("%swave planning: %v", logging.NSCapacity, err)
			return
		}
		if wave.Count == 0 {
			logger.Warnf("%sno remaining trace fits the scratch filesystem's reserved free space", logging.NSCapacity)
			return
		}

		workers := wave.Count
		if cfg.MaxWorkers > 0 && cfg.MaxWorkers < workers {
			workers = cfg.MaxWorkers
		}
		logger.Infof("%swave [%d,%d) using %d workers", logging.NSPump, wave.Start, wave.Start+wave.Count, workers)

		for slot := wave.Start; slot < wave.Start+wave.Count; slot++ {
			tr, err := replay.OpenTrace(cfg.TracePaths[slot], slot)
			if err != nil {
				logger.Fatalf("%sopening %s: %v", logging.NSPump, cfg.TracePaths[slot], err)
				return
			}
			openTraces[slot] = tr
		}

		runDropCaches(cfg, logger)
		logger.Infof("%swave [%d,%d): pre-creating files", logging.NSPump, wave.Start, wave.Start+wave.Count)
		if err := pump.RunPhasePerWorker(ctx, workers, pump.New(wave.Start, wave.Count), func() func(int) error {
			w := replay.NewWorker(cfg.ScratchDir, agg, logger, cfg.DelayEnabled, nil)
			return func(slot int) error { return w.PreCreate(openTraces[slot]) }
		}); err != nil {
			logger.Fatalf("%spre-create: %v", logging.NSPump, err)
			return
		}

		for iter := 0; iter < cfg.Iterations; iter++ {
			runDropCaches(cfg, logger)
			logger.Infof("%swave [%d,%d): replay iteration %d/%d", logging.NSPump, wave.Start, wave.Start+wave.Count, iter+1, cfg.Iterations)
			if err := pump.RunPhasePerWorker(ctx, workers, pump.New(wave.Start, wave.Count), func() func(int) error {
				w := replay.NewWorker(cfg.ScratchDir, agg, logger, cfg.DelayEnabled, nil)
				return func(slot int) error { return w.Replay(openTraces[slot]) }
			}); err != nil {
				logger.Fatalf("%sreplay: %v", logging.NSPump, err)
				return
			}
		}

		logger.Infof("%swave [%d,%d): tearing down", logging.NSPump, wave.Start, wave.Start+wave.Count)
		if err := pump.RunPhasePerWorker(ctx, workers, pump.New(wave.Start, wave.Count), func() func(int) error {
			w := replay.NewWorker(cfg.ScratchDir, agg, logger, cfg.DelayEnabled, nil)
			return func(slot int) error { w.Teardown(openTraces[slot]); return nil }
		}); err != nil {
			logger.Fatalf("%steardown: %v", logging.NSPump, err)
			return
		}

		for slot := wave.Start; slot < wave.Start+wave.Count; slot++ {
			if err := openTraces[slot].Close(); err != nil {
				logger.Warnf("%sclosing trace %s: %v", logging.NSPump, cfg.TracePaths[slot], err)
			}
			openTraces[slot] = nil
		}
	}
}

// runDropCaches issues the configured external command as a best-effort
// page-cache-drop hint between phases (spec.md expansion §2 component 9,
// §6 supplemented feature — the original calls this before pre-create AND
// before every iteration). A missing or failing command is never fatal.
func runDropCaches(cfg config.Config, logger logging.Logger) {
	if cfg.DropCachesCmd == "" {
		return
	}
	cmd := exec.Command("sh", "-c", cfg.DropCachesCmd)
	if err := cmd.Run(); err != nil {
		logger.Warnf("%sdrop-caches command failed: %v", logging.NSCapacity, err)
	}
}

func serveMetrics(addr string, agg *aggregate.Aggregator, logger logging.Logger) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(aggregate.NewMetrics(agg))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Errorf("%smetrics server on %s: %v", logging.NSAggregate, addr, err)
		}
	}()
	logger.Infof("%sserving metrics on %s/metrics", logging.NSAggregate, addr)
}

func printReport(agg *aggregate.Aggregator, numFiles int) {
	fmt.Println("\nioreplay Summary")
	fmt.Println("================")
	fmt.Printf("Total Input Files:    %d\n", numFiles)
	fmt.Printf("Create Time:          %s\n", agg.Time(aggregate.CreateTime))
	fmt.Printf("IO Time:              %s\n", agg.Time(aggregate.IOTime))
	fmt.Printf("Delay Time:           %s\n", agg.Time(aggregate.DelayTime))
	fmt.Printf("Remove Time:          %s\n", agg.Time(aggregate.RemoveTime))
	fmt.Printf("Create Bytes Written: %d\n", agg.Bytes(aggregate.CreateBytesWritten))
	fmt.Printf("IO Bytes Read:        %d\n", agg.Bytes(aggregate.IOBytesRead))
	fmt.Printf("IO Bytes Written:     %d\n", agg.Bytes(aggregate.IOBytesWritten))

	fmt.Println("\nOperation Counts:")
	counts := agg.OpCounts()
	for op := tracefmt.FileOp(0); int(op) < len(counts); op++ {
		if counts[op] == 0 {
			continue
		}
		fmt.Printf("  %-10s %d\n", op.String()+":", counts[op])
	}
}
