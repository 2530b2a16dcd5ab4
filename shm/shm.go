// Package shm maps memory that two processes can address at the same time.
// A Segment is either named (a file under /dev/shm) or anonymous (shared
// with children forked after the mapping).
package shm

import (
	"errors"
	"sync"
)

var (
	ErrExists      = errors.New("shm: segment already exists")
	ErrNotExist    = errors.New("shm: segment does not exist")
	ErrClosed      = errors.New("shm: segment is closed")
	ErrSize        = errors.New("shm: invalid segment size")
	ErrName        = errors.New("shm: invalid segment name")
	ErrUnsupported = errors.New("shm: shared memory is not supported on this platform")
)

// Segment is a mapped shared memory region. The zero value is not usable;
// obtain one from Create, Open or Anonymous.
type Segment struct {
	mu   sync.Mutex
	name string
	data []byte
}

// Name returns the segment name, or "" for anonymous segments.
func (s *Segment) Name() string {
	return s.name
}

// Bytes returns the mapped memory. The slice is invalid after Close.
func (s *Segment) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Size returns the mapped length in bytes, or 0 after Close.
func (s *Segment) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Close unmaps the segment. Named segments stay in the system until
// Unlink.
func (s *Segment) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return ErrClosed
	}
	err := unmap(s.data)
	s.data = nil
	return err
}

func validName(name string) bool {
	if name == "" || len(name) > 255 {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '/' || name[i] == 0 {
			return false
		}
	}
	return name != "." && name != ".."
}
