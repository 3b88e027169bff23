package dupegraph

// DeviceID identifies the filesystem/volume containing a path. Two paths with
// equal DeviceIDs live on the same filesystem. The zero value means "no
// device check": a traversal whose root carries the zero DeviceID admits
// children regardless of which filesystem they live on.
type DeviceID struct {
	dev   uint64
	valid bool
}

// IsZero reports whether the id is the "no device check" sentinel
func (d DeviceID) IsZero() bool {
	return !d.valid
}

// SameDevice reports whether other is on the same filesystem. A zero receiver
// admits everything; crossing is only detected between two resolved ids.
func (d DeviceID) SameDevice(other DeviceID) bool {
	if d.IsZero() || other.IsZero() {
		return true
	}
	return d.dev == other.dev
}
