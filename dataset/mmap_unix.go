//go:build unix

package dataset

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/YuminosukeSato/badfeatures/pkg/errors"
)

// mapFloat32 maps size bytes of f read-only and views them as float32
// values in native byte order. The returned function unmaps.
func mapFloat32(f *os.File, size int64) ([]float32, func() error, bool, error) {
	if size == 0 {
		return nil, nil, false, nil
	}
	b, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, false, errors.Wrapf(err, "mmap %s", f.Name())
	}
	data := unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
	release := func() error {
		return unix.Munmap(b)
	}
	return data, release, true, nil
}
