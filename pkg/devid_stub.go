//go:build !unix

package dupegraph

import (
	"fmt"
	"os"
)

// ResolveDeviceID is unsupported on this platform; runs here must enable
// cross-filesystem traversal, which skips device resolution entirely.
func ResolveDeviceID(path string, info os.FileInfo) (DeviceID, error) {
	return DeviceID{}, fmt.Errorf("device id resolution not supported on this platform (path %s)", path)
}
