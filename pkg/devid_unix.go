//go:build unix

package dupegraph

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// ResolveDeviceID returns the DeviceID for path. The stat info already held
// by the caller is consulted first so the common case (walker just lstat'ed
// the child) costs no extra syscall; info may be nil.
func ResolveDeviceID(path string, info os.FileInfo) (DeviceID, error) {
	if info != nil {
		if st, ok := info.Sys().(*syscall.Stat_t); ok {
			return DeviceID{dev: uint64(st.Dev), valid: true}, nil
		}
	}

	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return DeviceID{}, fmt.Errorf("failed to stat %s for device id: %w", path, err)
	}
	return DeviceID{dev: uint64(st.Dev), valid: true}, nil
}
