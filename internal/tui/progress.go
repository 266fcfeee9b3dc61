// Package tui renders the progress of a parameter sweep with bubbletea.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/crustheat/internal/sweep"
)

const (
	barWidth     = 40
	maxFailures  = 5
	historyWidth = 32
)

type EventMsg sweep.Event

type DoneMsg struct {
	Report *sweep.Report
	Err    error
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type failure struct {
	trial int
	err   string
}

// Model is the sweep progress view.
type Model struct {
	title  string
	total  int
	cancel context.CancelFunc

	done, failed int
	failures     []failure
	durations    []float64
	started      time.Time
	now          time.Time
	frame        int

	cancelling bool
	finished   bool
	err        error
	width      int
}

// NewModel builds a progress view for total trials. Pressing q calls cancel.
func NewModel(title string, total int, cancel context.CancelFunc) Model {
	now := time.Now()
	return Model{title: title, total: total, cancel: cancel, started: now, now: now, width: 80}
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.finished {
				return m, tea.Quit
			}
			if !m.cancelling && m.cancel != nil {
				m.cancel()
			}
			m.cancelling = true
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case EventMsg:
		m.done = msg.Done
		m.failed = msg.Failed
		if msg.Total > 0 {
			m.total = msg.Total
		}
		m.durations = append(m.durations, msg.Elapsed.Seconds())
		if msg.Err != nil {
			m.failures = append(m.failures, failure{trial: msg.Trial, err: msg.Err.Error()})
			if len(m.failures) > maxFailures {
				m.failures = m.failures[len(m.failures)-maxFailures:]
			}
		}
		return m, nil
	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		if msg.Report != nil {
			m.done = msg.Report.Completed + msg.Report.Failed()
			m.failed = msg.Report.Failed()
		}
		return m, tea.Quit
	case tickMsg:
		m.now = time.Time(msg)
		m.frame++
		if m.finished {
			return m, nil
		}
		return m, tick()
	}
	return m, nil
}

// eta extrapolates the remaining time from the mean rate so far.
func (m Model) eta() time.Duration {
	if m.done == 0 || m.done >= m.total {
		return 0
	}
	elapsed := m.now.Sub(m.started)
	perTrial := elapsed / time.Duration(m.done)
	return perTrial * time.Duration(m.total-m.done)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString("\n   " + titleStyle.Render(m.title) + "\n\n")

	status := green.Render(spinner(m.frame) + " running")
	switch {
	case m.finished && m.err != nil:
		status = yellow.Render("■ stopped")
	case m.finished:
		status = green.Render("● complete")
	case m.cancelling:
		status = yellow.Render(spinner(m.frame) + " cancelling, waiting for running trials")
	}
	b.WriteString("   " + status + "\n")

	pct := 0.0
	if m.total > 0 {
		pct = 100 * float64(m.done) / float64(m.total)
	}
	b.WriteString(fmt.Sprintf("   %s %s\n",
		progressBar(m.done, m.failed, m.total, barWidth),
		white.Render(fmt.Sprintf("%d/%d  %.0f%%", m.done, m.total, pct))))

	elapsed := m.now.Sub(m.started).Round(time.Second)
	line := fmt.Sprintf("   %s %s", dim.Render("elapsed"), white.Render(elapsed.String()))
	if eta := m.eta(); eta > 0 {
		line += fmt.Sprintf("  %s %s", dim.Render("eta"), white.Render(eta.Round(time.Second).String()))
	}
	if m.failed > 0 {
		line += "  " + red.Render(fmt.Sprintf("%d failed", m.failed))
	}
	b.WriteString(line + "\n")

	if len(m.durations) > 1 {
		b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("trial time"), cyan.Render(sparkline(m.durations, historyWidth))))
	}

	if len(m.failures) > 0 {
		b.WriteString("\n")
		for _, f := range m.failures {
			msg := f.err
			if limit := m.width - 8; limit > 10 && len(msg) > limit {
				msg = msg[:limit-1] + "…"
			}
			b.WriteString("   " + red.Render("✗ ") + dim.Render(msg) + "\n")
		}
	}

	b.WriteString("\n" + dim.Render("   q cancel") + "\n")
	return b.String()
}

// SweepFunc runs a sweep, reporting each finished trial to progress.
type SweepFunc func(ctx context.Context, progress func(sweep.Event)) (*sweep.Report, error)

// Run shows the progress view while fn runs in the background and returns
// fn's result once both have finished.
func Run(ctx context.Context, title string, total int, fn SweepFunc, opts ...tea.ProgramOption) (*sweep.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(title, total, cancel), opts...)
	result := make(chan DoneMsg, 1)
	go func() {
		report, err := fn(ctx, func(e sweep.Event) { p.Send(EventMsg(e)) })
		msg := DoneMsg{Report: report, Err: err}
		result <- msg
		p.Send(msg)
	}()

	_, uiErr := p.Run()
	if uiErr != nil {
		cancel()
	}
	done := <-result
	if done.Err == nil && uiErr != nil {
		return done.Report, fmt.Errorf("tui: %w", uiErr)
	}
	return done.Report, done.Err
}
