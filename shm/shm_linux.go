//go:build linux

package shm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const dir = "/dev/shm"

func path(name string) string {
	return filepath.Join(dir, name)
}

// Create makes a new named segment of size bytes, zero-filled. It fails
// with ErrExists if the name is taken.
func Create(name string, size int) (*Segment, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrName, name)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrSize, size)
	}

	file, err := os.OpenFile(path(name), os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrExists, name)
		}
		return nil, fmt.Errorf("shm: create %s: %w", name, err)
	}
	defer file.Close()

	if err := unix.Ftruncate(int(file.Fd()), int64(size)); err != nil {
		os.Remove(path(name))
		return nil, fmt.Errorf("shm: resize %s: %w", name, err)
	}

	data, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		os.Remove(path(name))
		return nil, fmt.Errorf("shm: mmap %s: %w", name, err)
	}

	return &Segment{name: name, data: data}, nil
}

// Open maps an existing named segment at its full size.
func Open(name string) (*Segment, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrName, name)
	}

	file, err := os.OpenFile(path(name), os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
		}
		return nil, fmt.Errorf("shm: open %s: %w", name, err)
	}
	defer file.Close()

	var st unix.Stat_t
	if err := unix.Fstat(int(file.Fd()), &st); err != nil {
		return nil, fmt.Errorf("shm: stat %s: %w", name, err)
	}
	if st.Size <= 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrSize, name)
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(st.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap %s: %w", name, err)
	}

	return &Segment{name: name, data: data}, nil
}

// Anonymous maps size zero-filled bytes that are not backed by a name.
func Anonymous(size int) (*Segment, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrSize, size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap anonymous: %w", err)
	}
	return &Segment{data: data}, nil
}

// Unlink removes a named segment. Existing mappings stay valid.
func Unlink(name string) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrName, name)
	}
	if err := unix.Unlink(path(name)); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return fmt.Errorf("%w: %s", ErrNotExist, name)
		}
		return fmt.Errorf("shm: unlink %s: %w", name, err)
	}
	return nil
}

func unmap(data []byte) error {
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("shm: munmap: %w", err)
	}
	return nil
}
