package dataset

import (
	"sort"

	"github.com/YuminosukeSato/badfeatures/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a read-only row-major view over float32 values, usually backed
// by a memory-mapped feature file. It implements mat.Matrix so it can be
// passed to the estimators directly.
type Matrix struct {
	rows, cols int
	data       []float32
	mapped     bool
	release    func() error
}

// NewMatrix wraps data as a rows x cols matrix without copying.
func NewMatrix(rows, cols int, data []float32) (*Matrix, error) {
	if rows < 0 || cols < 0 || rows*cols != len(data) {
		return nil, errors.NewDimensionError("NewMatrix", rows*cols, len(data), 0)
	}
	return &Matrix{rows: rows, cols: cols, data: data}, nil
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (r, c int) {
	return m.rows, m.cols
}

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) float64 {
	if uint(i) >= uint(m.rows) {
		panic(mat.ErrRowAccess)
	}
	if uint(j) >= uint(m.cols) {
		panic(mat.ErrColAccess)
	}
	return float64(m.data[i*m.cols+j])
}

// T returns the transpose view.
func (m *Matrix) T() mat.Matrix {
	return mat.Transpose{Matrix: m}
}

// RawRow returns row i without copying. The slice must not be modified.
func (m *Matrix) RawRow(i int) []float32 {
	if uint(i) >= uint(m.rows) {
		panic(mat.ErrRowAccess)
	}
	return m.data[i*m.cols : (i+1)*m.cols]
}

// Mapped reports whether the values live in a memory mapping.
func (m *Matrix) Mapped() bool {
	return m.mapped
}

// Close releases the mapping. The matrix must not be used afterwards.
// Calling Close more than once is a no-op.
func (m *Matrix) Close() error {
	if m.release == nil {
		return nil
	}
	release := m.release
	m.release = nil
	m.data = nil
	m.rows = 0
	return release()
}

// Stacked is a vertical concatenation of matrices with the same column
// count. Rows are not copied.
type Stacked struct {
	parts   []*Matrix
	offsets []int // first row of each part
	rows    int
	cols    int
}

// Stack concatenates parts row-wise.
func Stack(parts ...*Matrix) (*Stacked, error) {
	if len(parts) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "Stack")
	}
	s := &Stacked{parts: parts, offsets: make([]int, len(parts))}
	_, s.cols = parts[0].Dims()
	for k, p := range parts {
		r, c := p.Dims()
		if c != s.cols {
			return nil, errors.NewDimensionError("Stack", s.cols, c, 1)
		}
		s.offsets[k] = s.rows
		s.rows += r
	}
	return s, nil
}

// Dims returns the number of rows and columns.
func (s *Stacked) Dims() (r, c int) {
	return s.rows, s.cols
}

func (s *Stacked) locate(i int) (*Matrix, int) {
	if uint(i) >= uint(s.rows) {
		panic(mat.ErrRowAccess)
	}
	// Last part starting at or before i; empty parts never qualify.
	k := sort.Search(len(s.offsets), func(k int) bool { return s.offsets[k] > i }) - 1
	return s.parts[k], i - s.offsets[k]
}

// At returns the element at row i, column j.
func (s *Stacked) At(i, j int) float64 {
	m, r := s.locate(i)
	return m.At(r, j)
}

// T returns the transpose view.
func (s *Stacked) T() mat.Matrix {
	return mat.Transpose{Matrix: s}
}

// RawRow returns row i without copying. The slice must not be modified.
func (s *Stacked) RawRow(i int) []float32 {
	m, r := s.locate(i)
	return m.RawRow(r)
}

// Labels is a column of class labels that implements mat.Matrix as an
// n x 1 matrix, including n == 0.
type Labels []float64

// Dims returns (len(l), 1).
func (l Labels) Dims() (r, c int) {
	return len(l), 1
}

// At returns label i. j must be 0.
func (l Labels) At(i, j int) float64 {
	if j != 0 {
		panic(mat.ErrColAccess)
	}
	return l[i]
}

// T returns the transpose view.
func (l Labels) T() mat.Matrix {
	return mat.Transpose{Matrix: l}
}
