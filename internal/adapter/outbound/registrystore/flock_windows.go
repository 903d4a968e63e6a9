//go:build windows

package registrystore

import "golang.org/x/sys/windows"

// flockLock acquires an exclusive file lock on Windows using LockFileEx,
// matching Unix flock's blocking behavior.
func flockLock(fd uintptr) error {
	var ol windows.Overlapped
	return windows.LockFileEx(windows.Handle(fd), windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, &ol)
}

// flockUnlock releases the lock acquired by flockLock.
func flockUnlock(fd uintptr) error {
	var ol windows.Overlapped
	return windows.UnlockFileEx(windows.Handle(fd), 0, 1, 0, &ol)
}
