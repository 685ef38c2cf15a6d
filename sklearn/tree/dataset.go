package tree

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/badfeatures/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Float32Rows is implemented by matrices that can hand out a row as float32
// values without conversion, such as memory-mapped feature files. The
// returned slice must not be modified.
type Float32Rows interface {
	mat.Matrix
	RawRow(i int) []float32
}

// Float32Row returns row i of X as float32 values. buf is used when X has to
// be converted and must hold at least as many values as X has columns.
func Float32Row(X mat.Matrix, i int, buf []float32) []float32 {
	if fr, ok := X.(Float32Rows); ok {
		return fr.RawRow(i)
	}
	_, c := X.Dims()
	buf = buf[:c]
	if d, ok := X.(mat.RawRowViewer); ok {
		for j, v := range d.RawRowView(i) {
			buf[j] = float32(v)
		}
		return buf
	}
	for j := 0; j < c; j++ {
		buf[j] = float32(X.At(i, j))
	}
	return buf
}

// Dataset holds training data in the layout the split search wants: one
// contiguous float32 column per feature and labels encoded as class indices.
// A Dataset is read-only once built and may be shared by trees fitted
// concurrently.
type Dataset struct {
	nSamples  int
	nFeatures int
	columns   []float32 // column-major, nFeatures * nSamples
	labels    []int
	classes   []float64
}

// NewDataset copies X (n_samples x n_features) and y (n_samples x 1) into a
// Dataset. Values are stored as float32; non-finite values are rejected.
func NewDataset(X, y mat.Matrix) (*Dataset, error) {
	if X == nil || y == nil {
		return nil, errors.NewValueError("NewDataset", "nil input")
	}
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "NewDataset")
	}
	yRows, _ := y.Dims()
	if yRows != n {
		return nil, errors.NewDimensionError("NewDataset", n, yRows, 0)
	}

	ds := &Dataset{
		nSamples:  n,
		nFeatures: p,
		columns:   make([]float32, n*p),
		labels:    make([]int, n),
	}

	buf := make([]float32, p)
	for i := 0; i < n; i++ {
		row := Float32Row(X, i, buf)
		if err := errors.CheckFloat32s("NewDataset", row, i*p); err != nil {
			return nil, err
		}
		for j, v := range row {
			ds.columns[j*n+i] = v
		}
	}

	raw := make([]float64, n)
	for i := range raw {
		v := y.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewValueError("NewDataset", "labels must be finite")
		}
		raw[i] = v
	}
	ds.classes, ds.labels = encodeLabels(raw)
	return ds, nil
}

// encodeLabels returns the sorted distinct values of y and the index of each
// element of y in that list.
func encodeLabels(y []float64) ([]float64, []int) {
	seen := make(map[float64]struct{})
	for _, v := range y {
		seen[v] = struct{}{}
	}
	classes := make([]float64, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Float64s(classes)

	index := make(map[float64]int, len(classes))
	for k, v := range classes {
		index[v] = k
	}
	labels := make([]int, len(y))
	for i, v := range y {
		labels[i] = index[v]
	}
	return classes, labels
}

// Dims returns the number of samples and features.
func (d *Dataset) Dims() (nSamples, nFeatures int) {
	return d.nSamples, d.nFeatures
}

// Classes returns the sorted distinct labels.
func (d *Dataset) Classes() []float64 {
	out := make([]float64, len(d.classes))
	copy(out, d.classes)
	return out
}

// NClasses returns the number of distinct labels.
func (d *Dataset) NClasses() int {
	return len(d.classes)
}

// Label returns the encoded class index of sample i.
func (d *Dataset) Label(i int) int {
	return d.labels[i]
}

// Column returns the values of feature j for every sample.
func (d *Dataset) Column(j int) []float32 {
	return d.columns[j*d.nSamples : (j+1)*d.nSamples]
}
