package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var ErrShortArray = errors.New("storage: file holds fewer values than requested")

// ArrayWriter receives named float64 arrays. Implementations decide where the
// bytes go; names never contain path separators.
type ArrayWriter interface {
	WriteArray(name string, v []float64) error
}

// Dir writes raw little-endian float64 arrays into a directory. A non-empty
// Prefix is joined to every name with an underscore, so trial "7" writing
// "T_3" produces the file "7_T_3".
type Dir struct {
	Path   string
	Prefix string
}

func NewDir(path string) *Dir {
	return &Dir{Path: path}
}

// WithPrefix returns a writer for the same directory whose file names start
// with prefix.
func (d *Dir) WithPrefix(prefix string) *Dir {
	return &Dir{Path: d.Path, Prefix: prefix}
}

func (d *Dir) FileName(name string) string {
	if d.Prefix == "" {
		return filepath.Join(d.Path, name)
	}
	return filepath.Join(d.Path, d.Prefix+"_"+name)
}

func (d *Dir) WriteArray(name string, v []float64) error {
	return WriteArray(d.FileName(name), v)
}

// Discard drops every array written to it.
type Discard struct{}

func (Discard) WriteArray(string, []float64) error { return nil }

// WriteArray writes v to path as consecutive little-endian float64 values.
func WriteArray(path string, v []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storage: create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	buf := make([]byte, 8)
	for _, x := range v {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(x))
		if _, err := w.Write(buf); err != nil {
			f.Close()
			return fmt.Errorf("storage: write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", path, err)
	}
	return nil
}

// ReadArray reads every float64 value stored in path.
func ReadArray(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("storage: %s: size %d is not a multiple of 8", path, len(data))
	}
	v := make([]float64, len(data)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return v, nil
}

// ReadArrayN reads exactly n values from the start of path.
func ReadArrayN(path string, n int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	defer f.Close()

	v := make([]float64, n)
	if err := binary.Read(bufio.NewReader(f), binary.LittleEndian, v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("storage: %s: %w", path, ErrShortArray)
		}
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return v, nil
}

// ReadCount reads the single integer stored as text in path.
func ReadCount(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("storage: read %s: %w", path, err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("storage: %s: no count found", path)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("storage: %s: %w", path, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("storage: %s: negative count %d", path, n)
	}
	return n, nil
}
