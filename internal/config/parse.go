package config

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ParseError reports the line of a settings source that could not be used.
type ParseError struct {
	Line int
	Key  string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type field struct {
	key string
	ptr func(s *Settings) any
}

// fields lists every recognized key in the order Write emits them.
var fields = []field{
	{"depth", func(s *Settings) any { return &s.Depth }},
	{"delz0", func(s *Settings) any { return &s.Delz0 }},
	{"delzfrac", func(s *Settings) any { return &s.Delzfrac }},
	{"delzmax", func(s *Settings) any { return &s.Delzmax }},
	{"save_grid", func(s *Settings) any { return &s.SaveGrid }},

	{"tint", func(s *Settings) any { return &s.Tint }},
	{"tunit", func(s *Settings) any { return &s.Tunit }},
	{"nsnap", func(s *Settings) any { return &s.Nsnap }},
	{"nmaxout", func(s *Settings) any { return &s.Nmaxout }},
	{"dtfac", func(s *Settings) any { return &s.Dtfac }},
	{"method", func(s *Settings) any { return &s.Method }},

	{"rho0", func(s *Settings) any { return &s.Rho0 }},
	{"c0", func(s *Settings) any { return &s.C0 }},
	{"k0", func(s *Settings) any { return &s.K0 }},
	{"qgeo0", func(s *Settings) any { return &s.Qgeo0 }},
	{"Tsa", func(s *Settings) any { return &s.Tsa }},
	{"Tsb", func(s *Settings) any { return &s.Tsb }},
	{"Tsc", func(s *Settings) any { return &s.Tsc }},
	{"LH", func(s *Settings) any { return &s.LH }},
	{"Tf", func(s *Settings) any { return &s.Tf }},
	{"ahcw", func(s *Settings) any { return &s.Ahcw }},

	{"surface", func(s *Settings) any { return &s.Surface }},
	{"Tsconst", func(s *Settings) any { return &s.Tsconst }},
	{"insol", func(s *Settings) any { return &s.Insol }},
	{"dirTs", func(s *Settings) any { return &s.DirTs }},
	{"fnTs", func(s *Settings) any { return &s.FnTs }},

	{"rho", func(s *Settings) any { return &s.Output.Density }},
	{"c", func(s *Settings) any { return &s.Output.SpecificHeat }},
	{"k", func(s *Settings) any { return &s.Output.Conductivity }},
	{"cap", func(s *Settings) any { return &s.Output.Capacity }},
	{"T", func(s *Settings) any { return &s.Output.Temperature }},
	{"dTdz", func(s *Settings) any { return &s.Output.Gradient }},
	{"q", func(s *Settings) any { return &s.Output.Flux }},
	{"Tmax", func(s *Settings) any { return &s.Output.MaxTemperature }},
	{"Tmin", func(s *Settings) any { return &s.Output.MinTemperature }},
	{"Ts", func(s *Settings) any { return &s.Output.SurfaceTemperature }},
	{"qs", func(s *Settings) any { return &s.Output.SurfaceFlux }},
	{"t", func(s *Settings) any { return &s.Output.Time }},
	{"tsnap", func(s *Settings) any { return &s.Output.SnapTimes }},
}

func lookup(key string) (field, bool) {
	for _, f := range fields {
		if f.key == key {
			return f, true
		}
	}
	return field{}, false
}

// Keys returns every recognized settings key.
func Keys() []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.key
	}
	return keys
}

// IsNumeric reports whether key names a numeric setting, the only kind a
// parameter sweep can override.
func IsNumeric(key string) bool {
	f, ok := lookup(key)
	if !ok {
		return false
	}
	switch f.ptr(&Settings{}).(type) {
	case *float64, *int:
		return true
	}
	return false
}

// Set assigns the textual value to key.
func (s *Settings) Set(key, value string) error {
	f, ok := lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}

	switch p := f.ptr(s).(type) {
	case *float64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", ErrInvalidValue, value)
		}
		*p = v
	case *int:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
			return fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, value)
		}
		*p = int(v)
	case *bool:
		switch value {
		case "true":
			*p = true
		case "false":
			*p = false
		default:
			return fmt.Errorf("%w: %q is not true or false", ErrInvalidValue, value)
		}
	case *string:
		*p = value
	}
	return nil
}

// SetFloat assigns a numeric value to key. Integer settings reject values
// with a fractional part.
func (s *Settings) SetFloat(key string, v float64) error {
	f, ok := lookup(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}
	switch f.ptr(s).(type) {
	case *float64, *int:
		return s.Set(key, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return fmt.Errorf("%w: %s is not numeric", ErrInvalidValue, key)
}

// Get returns the value of key formatted the way Write emits it.
func (s *Settings) Get(key string) (string, error) {
	f, ok := lookup(key)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}
	return format(f.ptr(s)), nil
}

func format(p any) string {
	switch v := p.(type) {
	case *float64:
		return strconv.FormatFloat(*v, 'g', -1, 64)
	case *int:
		return strconv.Itoa(*v)
	case *bool:
		return strconv.FormatBool(*v)
	case *string:
		return *v
	}
	return ""
}

// Parse reads "key = value" lines over the defaults. '#' starts a comment and
// blank lines are ignored.
func Parse(r io.Reader) (Settings, error) {
	s := Default()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if idx := strings.IndexByte(text, '#'); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return Settings{}, &ParseError{Line: line, Err: fmt.Errorf("%w: missing '=' in %q", ErrInvalidValue, text)}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if err := s.Set(key, value); err != nil {
			return Settings{}, &ParseError{Line: line, Key: key, Err: err}
		}
	}
	if err := sc.Err(); err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

// Write emits every setting, one "key = value" line each.
func (s Settings) Write(w io.Writer) error {
	for _, f := range fields {
		if _, err := fmt.Fprintf(w, "%s = %s\n", f.key, format(f.ptr(&s))); err != nil {
			return err
		}
	}
	return nil
}
