package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/crustheat/internal/ctxlog"
	"github.com/san-kum/crustheat/internal/storage"
)

// RunFunc integrates one trial. Its context carries a logger tagged with
// the trial index.
type RunFunc func(ctx context.Context, trial Trial) error

// Event reports the completion of one trial.
type Event struct {
	Trial   int
	Done    int
	Failed  int
	Total   int
	Err     error
	Elapsed time.Duration
}

// Driver runs every trial of a sweep on a fixed pool of workers. Idle
// workers pick up the next pending trial.
type Driver struct {
	Name     string
	Workers  int
	Dir      string
	Logger   *slog.Logger
	Progress func(Event)
}

type Report struct {
	Name      string
	Params    []string
	Trials    int
	Completed int
	Workers   int
	Failures  []storage.Failure
	Started   time.Time
	Finished  time.Time
}

func (r *Report) Failed() int { return len(r.Failures) }

// Metadata converts the report into the run record stored as
// metadata.json.
func (r *Report) Metadata(id, command string) storage.Metadata {
	return storage.Metadata{
		ID:        id,
		Command:   command,
		Plan:      r.Name,
		Trials:    r.Trials,
		Completed: r.Completed,
		Workers:   r.Workers,
		Started:   r.Started,
		Finished:  r.Finished,
		Failures:  r.Failures,
	}
}

func (d *Driver) workers() int {
	if d.Workers > 0 {
		return d.Workers
	}
	return runtime.NumCPU()
}

// Run writes the trial table and then calls fn once per trial. A failed
// trial is recorded and the sweep continues. Cancelling ctx stops
// dispatching new trials; running ones see the cancelled context.
func (d *Driver) Run(ctx context.Context, params []Param, fn RunFunc) (*Report, error) {
	trials, err := Product(params)
	if err != nil {
		return nil, err
	}
	logger := d.Logger
	if logger == nil {
		logger = ctxlog.FromContext(ctx)
	}

	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	rows := make([]storage.TrialRow, len(trials))
	for i, t := range trials {
		rows[i] = storage.TrialRow{Index: t.Index, Values: t.Values}
	}
	table := filepath.Join(d.Dir, storage.TrialTableName)
	if err := storage.WriteTrialTable(table, names(params), rows); err != nil {
		return nil, err
	}

	workers := d.workers()
	report := &Report{
		Name:    d.Name,
		Params:  names(params),
		Trials:  len(trials),
		Workers: workers,
		Started: time.Now(),
	}
	logger.Info("parameter table written", "path", table, "trials", len(trials))
	logger.Info("beginning parallel integrations", "workers", workers)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(workers)

	finish := func(t Trial, err error, elapsed time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.Failures = append(report.Failures, storage.Failure{Trial: t.Index, Error: err.Error()})
			logger.Error("trial failed", "trial", t.Index, "error", err)
		} else {
			report.Completed++
			logger.Debug("trial finished", "trial", t.Index, "elapsed", elapsed)
		}
		if d.Progress != nil {
			d.Progress(Event{
				Trial:   t.Index,
				Done:    report.Completed + len(report.Failures),
				Failed:  len(report.Failures),
				Total:   report.Trials,
				Err:     err,
				Elapsed: elapsed,
			})
		}
	}

dispatch:
	for _, trial := range trials {
		select {
		case <-ctx.Done():
			break dispatch
		default:
		}
		trial := trial
		g.Go(func() error {
			start := time.Now()
			tctx := ctxlog.WithLogger(ctx, logger.With("trial", trial.Index))
			err := runTrial(tctx, trial, fn)
			finish(trial, err, time.Since(start))
			return nil
		})
	}
	_ = g.Wait()

	report.Finished = time.Now()
	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].Trial < report.Failures[j].Trial
	})
	logger.Info("all trials complete",
		"completed", report.Completed,
		"failed", report.Failed(),
		"elapsed", report.Finished.Sub(report.Started).Round(time.Millisecond))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func runTrial(ctx context.Context, trial Trial, fn RunFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trial %d: panic: %v", trial.Index, r)
		}
	}()
	if err := fn(ctx, trial); err != nil {
		return fmt.Errorf("trial %d: %w", trial.Index, err)
	}
	return nil
}
