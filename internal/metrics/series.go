package metrics

// Series is a named append-only diagnostic tracker.
type Series struct {
	name   string
	values []float64
}

func NewSeries(name string) *Series {
	return &Series{name: name}
}

func (s *Series) Name() string { return s.name }

func (s *Series) Observe(v float64) {
	s.values = append(s.values, v)
}

// Values returns the recorded samples. The slice aliases the tracker.
func (s *Series) Values() []float64 { return s.values }

func (s *Series) Len() int { return len(s.values) }

func (s *Series) Reset() {
	s.values = s.values[:0]
}

// Subsample thins v to roughly n entries. It keeps the first element, every
// len(v)/n-th element after it, and always the last element. When len(v)/n
// is at most one, v is returned unchanged.
func Subsample(v []float64, n int) []float64 {
	if n < 1 {
		return v
	}
	step := len(v) / n
	if step <= 1 {
		return v
	}

	out := make([]float64, 0, n+2)
	out = append(out, v[0])
	i := step
	for ; i < len(v); i += step {
		out = append(out, v[i])
	}
	if i-step < len(v)-1 {
		out = append(out, v[len(v)-1])
	}
	return out
}
