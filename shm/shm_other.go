//go:build !linux

package shm

func Create(name string, size int) (*Segment, error) { return nil, ErrUnsupported }

func Open(name string) (*Segment, error) { return nil, ErrUnsupported }

func Anonymous(size int) (*Segment, error) { return nil, ErrUnsupported }

func Unlink(name string) error { return ErrUnsupported }

func unmap(data []byte) error { return ErrUnsupported }
