//go:build !unix

package dataset

import (
	"io"
	"os"
	"unsafe"

	"github.com/YuminosukeSato/badfeatures/pkg/errors"
)

// mapFloat32 reads the whole file into memory on platforms without mmap.
func mapFloat32(f *os.File, size int64) ([]float32, func() error, bool, error) {
	if size == 0 {
		return nil, nil, false, nil
	}
	data := make([]float32, size/4)
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), size)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, nil, false, errors.Wrapf(err, "read %s", f.Name())
	}
	return data, nil, false, nil
}
