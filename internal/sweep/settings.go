package sweep

import (
	"context"
	"fmt"

	"github.com/san-kum/crustheat/internal/boundary"
	"github.com/san-kum/crustheat/internal/config"
	"github.com/san-kum/crustheat/internal/ctxlog"
	"github.com/san-kum/crustheat/internal/grid"
	"github.com/san-kum/crustheat/internal/heat"
	"github.com/san-kum/crustheat/internal/storage"
)

// gridKeys are the settings that change the grid.
var gridKeys = map[string]bool{"depth": true, "delz0": true, "delzfrac": true, "delzmax": true}

// SettingsRunner integrates the base heat model once per trial, with each
// swept parameter overriding the setting of the same name.
type SettingsRunner struct {
	base  config.Settings
	out   *storage.Dir
	mode  boundary.Mode
	table *boundary.Table
	grid  *grid.Grid // shared when no grid key is swept
}

// NewSettingsRunner checks that every parameter names a numeric setting and
// prepares the resources trials share: the grid unless a grid key is swept,
// and the surface temperature table.
func NewSettingsRunner(base config.Settings, dir string, params []Param) (*SettingsRunner, error) {
	if err := base.Validate(); err != nil {
		return nil, err
	}
	r := &SettingsRunner{base: base.Clone(), out: storage.NewDir(dir)}

	perTrialGrid := false
	for _, p := range params {
		if !config.IsNumeric(p.Name) {
			return nil, fmt.Errorf("%w: %q cannot be swept", config.ErrUnknownSetting, p.Name)
		}
		if gridKeys[p.Name] {
			perTrialGrid = true
		}
	}

	mode, err := boundary.ParseMode(base.Surface)
	if err != nil {
		return nil, err
	}
	r.mode = mode
	if mode == boundary.ModeInterpolated {
		if r.table, err = boundary.LoadTable(base.DirTs, base.FnTs); err != nil {
			return nil, err
		}
	}

	if !perTrialGrid {
		if r.grid, err = grid.FromSettings(base); err != nil {
			return nil, err
		}
		if base.SaveGrid {
			if err := r.grid.Save(r.out); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// Grid returns the shared grid, or nil when each trial builds its own.
func (r *SettingsRunner) Grid() *grid.Grid { return r.grid }

// Settings returns the base settings with the trial's overrides applied.
func (r *SettingsRunner) Settings(trial Trial) (config.Settings, error) {
	s := r.base.Clone()
	for i, name := range trial.Names {
		if err := s.SetFloat(name, trial.Values[i]); err != nil {
			return s, err
		}
	}
	return s, s.Validate()
}

func (r *SettingsRunner) Run(ctx context.Context, trial Trial) error {
	s, err := r.Settings(trial)
	if err != nil {
		return err
	}

	g := r.grid
	if g == nil {
		if g, err = grid.FromSettings(s); err != nil {
			return err
		}
		if s.SaveGrid {
			if err := g.Save(r.out.WithPrefix(trial.Name())); err != nil {
				return err
			}
		}
	}

	surface, err := boundary.New(r.mode, s, r.table)
	if err != nil {
		return err
	}
	eng, err := heat.New(trial.Name(), g, s, heat.WithSurface(surface), heat.WithOutput(r.out))
	if err != nil {
		return err
	}
	_, res, err := eng.Solve(ctx, s.Duration())
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("integration finished", "steps", res.Steps, "cells", g.N)
	return nil
}
