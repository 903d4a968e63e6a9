//go:build !windows

package registrystore

import "golang.org/x/sys/unix"

// flockLock acquires an exclusive advisory lock on fd, blocking until
// available.
func flockLock(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_EX)
}

// flockUnlock releases the lock acquired by flockLock.
func flockUnlock(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_UN)
}
