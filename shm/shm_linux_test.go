//go:build linux

package shm

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testName(t *testing.T) string {
	name := fmt.Sprintf("spscring-test-%d-%d", os.Getpid(), time.Now().UnixNano())
	t.Cleanup(func() { _ = Unlink(name) })
	return name
}

func skipWithoutDevShm(t *testing.T) {
	if _, err := os.Stat(dir); err != nil {
		t.Skipf("%s unavailable: %v", dir, err)
	}
}

func TestCreateOpenShareMemory(t *testing.T) {
	skipWithoutDevShm(t)
	name := testName(t)

	a, err := Create(name, 4096)
	require.NoError(t, err)
	defer a.Close()
	require.Equal(t, 4096, a.Size())
	require.Equal(t, name, a.Name())

	b, err := Open(name)
	require.NoError(t, err)
	defer b.Close()
	require.Equal(t, 4096, b.Size())

	a.Bytes()[100] = 0x5a
	require.Equal(t, byte(0x5a), b.Bytes()[100], "writes through one mapping are visible through the other")
}

func TestCreateExisting(t *testing.T) {
	skipWithoutDevShm(t)
	name := testName(t)

	s, err := Create(name, 128)
	require.NoError(t, err)
	defer s.Close()

	_, err = Create(name, 128)
	require.ErrorIs(t, err, ErrExists)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(fmt.Sprintf("spscring-missing-%d", time.Now().UnixNano()))
	require.ErrorIs(t, err, ErrNotExist)
}

func TestInvalidArguments(t *testing.T) {
	_, err := Create("a/b", 64)
	require.ErrorIs(t, err, ErrName)

	_, err = Create("ok", 0)
	require.ErrorIs(t, err, ErrSize)

	_, err = Anonymous(-1)
	require.ErrorIs(t, err, ErrSize)

	require.ErrorIs(t, Unlink(""), ErrName)
}

func TestAnonymousZeroed(t *testing.T) {
	s, err := Anonymous(8192)
	require.NoError(t, err)
	require.Empty(t, s.Name())
	for i, b := range s.Bytes() {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0", i, b)
		}
	}
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Close(), ErrClosed)
	require.Zero(t, s.Size())
}
