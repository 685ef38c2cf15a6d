// Package dataset loads feature fields and assembles pairs of them into a
// labelled training set.
//
// A field with id N is stored as two files in one directory:
//
//	feature_N.dat   raw native-endian float32 values, row-major, no header
//	feature_N.name  whitespace-separated feature names in column order
//
// The .dat file is memory-mapped read-only where the platform supports it
// and read eagerly otherwise.
package dataset

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"

	"github.com/YuminosukeSato/badfeatures/pkg/errors"
	"github.com/YuminosukeSato/badfeatures/pkg/log"
)

const float32Size = 4

// Field is one loaded feature field.
type Field struct {
	ID      int
	Names   []string
	Data    *Matrix
	DatPath string
}

// Paths returns the .dat and .name paths of field id under dir.
func Paths(dir string, id int) (datPath, namePath string) {
	base := filepath.Join(dir, "feature_"+strconv.Itoa(id))
	return base + ".dat", base + ".name"
}

// LoadField reads the names of field id and maps its values as a
// rows x len(names) matrix. A missing file yields an error matching
// fs.ErrNotExist; a .dat size that is not a whole number of rows yields a
// ReshapeError.
func LoadField(dir string, id int) (*Field, error) {
	datPath, namePath := Paths(dir, id)
	logger := log.GetLoggerWithName("dataset").With(log.FieldIDKey, id)

	names, err := ReadNames(namePath)
	if err != nil {
		return nil, errors.Wrapf(err, "load field %d", id)
	}

	f, err := os.Open(datPath)
	if err != nil {
		return nil, errors.Wrapf(err, "load field %d", id)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "load field %d", id)
	}
	size := info.Size()
	cols := len(names)
	if cols == 0 || size%int64(float32Size*cols) != 0 {
		return nil, errors.NewReshapeError(datPath, size, cols)
	}

	data, release, mapped, err := mapFloat32(f, size)
	if err != nil {
		return nil, errors.Wrapf(err, "load field %d", id)
	}
	m, err := NewMatrix(len(data)/cols, cols, data)
	if err != nil {
		if release != nil {
			_ = release()
		}
		return nil, err
	}
	m.mapped = mapped
	m.release = release

	logger.Debug("Loaded field",
		log.OperationKey, log.OperationLoad,
		log.FieldPathKey, datPath,
		log.FieldRowsKey, m.rows,
		log.FeaturesKey, cols,
		log.DataSizeKey, size,
		log.MappedKey, mapped,
	)
	return &Field{ID: id, Names: names, Data: m, DatPath: datPath}, nil
}

// ReadNames returns the whitespace-separated tokens of a .name file.
func ReadNames(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return strings.Fields(string(b)), nil
}

// Rows returns the number of rows of the field.
func (f *Field) Rows() int {
	r, _ := f.Data.Dims()
	return r
}

// Close releases the field's mapping.
func (f *Field) Close() error {
	if f == nil || f.Data == nil {
		return nil
	}
	return f.Data.Close()
}

// WriteField writes data (row-major, len(names) columns) as field id under
// dir, names one per line.
func WriteField(dir string, id int, names []string, data []float32) error {
	if len(names) == 0 || len(data)%len(names) != 0 {
		return errors.NewReshapeError("field "+strconv.Itoa(id), int64(len(data)*float32Size), len(names))
	}
	datPath, namePath := Paths(dir, id)

	nf, err := os.Create(namePath)
	if err != nil {
		return errors.WithStack(err)
	}
	w := bufio.NewWriter(nf)
	for _, name := range names {
		if _, err := w.WriteString(name + "\n"); err != nil {
			_ = nf.Close()
			return errors.WithStack(err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = nf.Close()
		return errors.WithStack(err)
	}
	if err := nf.Close(); err != nil {
		return errors.WithStack(err)
	}

	var raw []byte
	if len(data) > 0 {
		raw = unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*float32Size)
	}
	if err := os.WriteFile(datPath, raw, 0o644); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
