package sweep_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/crustheat/internal/config"
	"github.com/san-kum/crustheat/internal/storage"
	"github.com/san-kum/crustheat/internal/sweep"
)

var _ = Describe("Ranges", func() {
	It("spaces values linearly including both ends", func() {
		v, err := sweep.Linspace(400, 1200, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal([]float64{400, 600, 800, 1000, 1200}))
	})

	It("spaces exponents of ten", func() {
		v, err := sweep.Logspace(0, 2, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(HaveLen(3))
		Expect(v[0]).To(Equal(1.0))
		Expect(v[1]).To(BeNumerically("~", 10, 1e-9))
		Expect(v[2]).To(Equal(100.0))
	})

	It("accepts a single point when both ends agree", func() {
		v, err := sweep.Linspace(3, 3, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal([]float64{3}))
	})

	It("rejects a single point between distinct ends", func() {
		_, err := sweep.Linspace(0, 2, 1)
		Expect(errors.Is(err, sweep.ErrDegenerateRange)).To(BeTrue())
		_, err = sweep.Logspace(0, 2, 1)
		Expect(errors.Is(err, sweep.ErrDegenerateRange)).To(BeTrue())
	})

	It("rejects empty ranges", func() {
		_, err := sweep.Linspace(0, 1, 0)
		Expect(errors.Is(err, sweep.ErrInvalidRange)).To(BeTrue())
	})
})

var _ = Describe("Product", func() {
	params := []sweep.Param{
		{Name: "a", Values: []float64{1, 2}},
		{Name: "b", Values: []float64{10, 20, 30}},
	}

	It("varies the last parameter fastest", func() {
		trials, err := sweep.Product(params)
		Expect(err).NotTo(HaveOccurred())
		Expect(trials).To(HaveLen(6))

		want := [][]float64{{1, 10}, {1, 20}, {1, 30}, {2, 10}, {2, 20}, {2, 30}}
		for i, tr := range trials {
			Expect(tr.Index).To(Equal(i))
			Expect(tr.Values).To(Equal(want[i]))
		}
	})

	It("looks up values by name", func() {
		trials, _ := sweep.Product(params)
		v, ok := trials[4].Value("b")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(20.0))
		_, ok = trials[4].Value("c")
		Expect(ok).To(BeFalse())
		Expect(trials[4].Name()).To(Equal("4"))
	})

	It("rejects empty and duplicate parameters", func() {
		_, err := sweep.Product([]sweep.Param{{Name: "a"}})
		Expect(errors.Is(err, sweep.ErrEmptyParam)).To(BeTrue())

		_, err = sweep.Product([]sweep.Param{
			{Name: "a", Values: []float64{1}},
			{Name: "a", Values: []float64{2}},
		})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Plans", func() {
	It("parses explicit values and ranges", func() {
		plan, err := sweep.ParsePlan([]byte(`
name: small
parameters:
  - name: k0
    values: [1, 2]
  - name: deplayer
    start: 0
    end: 2
    count: 3
    spacing: log
`))
		Expect(err).NotTo(HaveOccurred())
		params, err := plan.Params()
		Expect(err).NotTo(HaveOccurred())
		Expect(params).To(HaveLen(2))
		Expect(params[0].Values).To(Equal([]float64{1, 2}))
		Expect(params[1].Values[2]).To(Equal(100.0))
	})

	It("rejects unknown spacing", func() {
		plan, err := sweep.ParsePlan([]byte("name: x\nparameters:\n  - name: k0\n    start: 1\n    end: 2\n    count: 2\n    spacing: cubic\n"))
		Expect(err).NotTo(HaveOccurred())
		_, err = plan.Params()
		Expect(err).To(MatchError(ContainSubstring("unknown spacing")))
	})

	It("ships the thaw-times preset", func() {
		plan, err := sweep.Preset("thaw-times")
		Expect(err).NotTo(HaveOccurred())
		params, err := plan.Params()
		Expect(err).NotTo(HaveOccurred())
		trials, err := sweep.Product(params)
		Expect(err).NotTo(HaveOccurred())
		Expect(trials).To(HaveLen(7 * 10 * 30 * 20))
		Expect(trials[0].Values).To(Equal([]float64{1, 0.01, 200, 280}))
	})

	It("ships the impact-layer preset", func() {
		plan, err := sweep.Preset("impact-layer")
		Expect(err).NotTo(HaveOccurred())
		params, err := plan.Params()
		Expect(err).NotTo(HaveOccurred())
		Expect(params[0].Values[0]).To(Equal(1.0))
		Expect(params[0].Values[9]).To(BeNumerically("~", 500, 1e-3))
		Expect(params[1].Values).To(Equal([]float64{0, 1, 2}))
	})

	It("marshals a plan that parses back to the same trials", func() {
		plan, err := sweep.Preset("impact-layer")
		Expect(err).NotTo(HaveOccurred())
		data, err := plan.Marshal()
		Expect(err).NotTo(HaveOccurred())
		again, err := sweep.ParsePlan(data)
		Expect(err).NotTo(HaveOccurred())
		want, err := plan.Params()
		Expect(err).NotTo(HaveOccurred())
		got, err := again.Params()
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(want))
	})

	It("lists presets and rejects unknown ones", func() {
		Expect(sweep.Presets()).To(Equal([]string{"impact-layer", "thaw-times"}))
		_, err := sweep.Preset("nope")
		Expect(errors.Is(err, sweep.ErrUnknownPreset)).To(BeTrue())
	})
})

var _ = Describe("Driver", func() {
	var (
		dir    string
		params []sweep.Param
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		params = []sweep.Param{
			{Name: "x", Values: []float64{1, 2, 3, 4}},
			{Name: "y", Values: []float64{0.5, 1.5}},
		}
	})

	It("writes the trial table and runs every trial", func() {
		var ran sync.Map
		d := &sweep.Driver{Workers: 3, Dir: dir}
		report, err := d.Run(context.Background(), params, func(ctx context.Context, t sweep.Trial) error {
			ran.Store(t.Index, true)
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Completed).To(Equal(8))
		Expect(report.Failed()).To(BeZero())

		for i := 0; i < 8; i++ {
			_, ok := ran.Load(i)
			Expect(ok).To(BeTrue(), "trial %d did not run", i)
		}

		names, rows, err := storage.ReadTrialTable(filepath.Join(dir, storage.TrialTableName))
		Expect(err).NotTo(HaveOccurred())
		Expect(names).To(Equal([]string{"x", "y"}))
		Expect(rows).To(HaveLen(8))
		Expect(rows[7].Values).To(Equal([]float64{4, 1.5}))
	})

	It("writes the trial table before any trial starts", func() {
		d := &sweep.Driver{Workers: 2, Dir: dir}
		_, err := d.Run(context.Background(), params, func(ctx context.Context, t sweep.Trial) error {
			_, err := os.Stat(filepath.Join(dir, storage.TrialTableName))
			return err
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("continues after a failing trial", func() {
		var events []sweep.Event
		d := &sweep.Driver{
			Workers:  2,
			Dir:      dir,
			Progress: func(e sweep.Event) { events = append(events, e) },
		}
		report, err := d.Run(context.Background(), params, func(ctx context.Context, t sweep.Trial) error {
			if t.Index == 3 {
				return errors.New("surface solve diverged")
			}
			if t.Index == 5 {
				panic("boom")
			}
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Completed).To(Equal(6))
		Expect(report.Failures).To(HaveLen(2))
		Expect(report.Failures[0].Trial).To(Equal(3))
		Expect(report.Failures[0].Error).To(ContainSubstring("trial 3"))
		Expect(report.Failures[1].Trial).To(Equal(5))
		Expect(report.Failures[1].Error).To(ContainSubstring("panic"))

		Expect(events).To(HaveLen(8))
		last := events[len(events)-1]
		Expect(last.Done).To(Equal(8))
		Expect(last.Failed).To(Equal(2))
		Expect(last.Total).To(Equal(8))
	})

	It("never runs more trials at once than workers", func() {
		var running, peak int32
		d := &sweep.Driver{Workers: 2, Dir: dir}
		_, err := d.Run(context.Background(), params, func(ctx context.Context, t sweep.Trial) error {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(atomic.LoadInt32(&peak)).To(BeNumerically("<=", 2))
	})

	It("stops dispatching when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		var started int32
		d := &sweep.Driver{Workers: 1, Dir: dir}
		report, err := d.Run(ctx, params, func(ctx context.Context, t sweep.Trial) error {
			if atomic.AddInt32(&started, 1) == 2 {
				cancel()
			}
			return nil
		})
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(report.Completed).To(BeNumerically("<", 8))
		Expect(report.Completed).To(BeNumerically(">=", 2))
	})

	It("converts the report into run metadata", func() {
		d := &sweep.Driver{Name: "grid-check", Workers: 1, Dir: dir}
		report, err := d.Run(context.Background(), params, func(context.Context, sweep.Trial) error { return nil })
		Expect(err).NotTo(HaveOccurred())

		meta := report.Metadata("run-1", "sweep")
		Expect(storage.WriteMetadata(dir, meta)).To(Succeed())
		loaded, err := storage.LoadMetadata(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Plan).To(Equal("grid-check"))
		Expect(loaded.Trials).To(Equal(8))
		Expect(loaded.Workers).To(Equal(1))
	})
})

var _ = Describe("SettingsRunner", func() {
	var (
		dir  string
		base config.Settings
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		base = config.Default()
		base.Depth = 1
		base.Delz0 = 0.1
		base.Delzmax = 0.1
		base.Tint = 0.05
		base.Nsnap = 2
		base.Surface = "constant"
		base.Tsconst = 250
		base.Output.Temperature = true
		base.Output.MaxTemperature = true
	})

	It("integrates each trial with its overrides on a shared grid", func() {
		params := []sweep.Param{{Name: "qgeo0", Values: []float64{0, 1}}}
		runner, err := sweep.NewSettingsRunner(base, dir, params)
		Expect(err).NotTo(HaveOccurred())
		Expect(runner.Grid()).NotTo(BeNil())
		Expect(runner.Grid().N).To(Equal(10))

		d := &sweep.Driver{Workers: 2, Dir: dir}
		report, err := d.Run(context.Background(), params, runner.Run)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Failed()).To(BeZero())

		cold, err := storage.ReadArray(filepath.Join(dir, "0_T_1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cold).To(HaveLen(10))
		for _, v := range cold {
			Expect(v).To(BeNumerically("~", 250, 1e-12))
		}

		warm, err := storage.ReadArray(filepath.Join(dir, "1_T_0"))
		Expect(err).NotTo(HaveOccurred())
		Expect(warm[0]).To(BeNumerically(">", 250))
		Expect(filepath.Join(dir, "1_Tmax")).To(BeAnExistingFile())
	})

	It("builds a grid per trial when a grid key is swept", func() {
		base.SaveGrid = true
		params := []sweep.Param{{Name: "depth", Values: []float64{1, 2}}}
		runner, err := sweep.NewSettingsRunner(base, dir, params)
		Expect(err).NotTo(HaveOccurred())
		Expect(runner.Grid()).To(BeNil())

		d := &sweep.Driver{Workers: 2, Dir: dir}
		report, err := d.Run(context.Background(), params, runner.Run)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Failed()).To(BeZero())

		zc, err := storage.ReadArray(filepath.Join(dir, "1_zc"))
		Expect(err).NotTo(HaveOccurred())
		Expect(zc).To(HaveLen(20))
	})

	It("rejects parameters that are not numeric settings", func() {
		_, err := sweep.NewSettingsRunner(base, dir, []sweep.Param{{Name: "Tsmode", Values: []float64{0}}})
		Expect(errors.Is(err, config.ErrUnknownSetting)).To(BeTrue())

		_, err = sweep.NewSettingsRunner(base, dir, []sweep.Param{{Name: "method", Values: []float64{0}}})
		Expect(errors.Is(err, config.ErrUnknownSetting)).To(BeTrue())
	})

	It("records trials whose overrides are invalid", func() {
		params := []sweep.Param{{Name: "dtfac", Values: []float64{0.5, 2}}}
		runner, err := sweep.NewSettingsRunner(base, dir, params)
		Expect(err).NotTo(HaveOccurred())

		d := &sweep.Driver{Workers: 1, Dir: dir}
		report, err := d.Run(context.Background(), params, runner.Run)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Failures).To(HaveLen(1))
		Expect(report.Failures[0].Trial).To(Equal(1))
	})
})
