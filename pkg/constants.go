package dupegraph

import "strings"

// Scan defaults
const (
	// DefaultBlockSize is the per-read chunk size for file hashing (4 MiB)
	DefaultBlockSize = 4 * 1024 * 1024

	// DefaultThreads is the worker pool size when nothing is configured.
	// 0 means use all available cores.
	DefaultThreads = 4
)

// Snapshot file constants
const (
	SnapshotHeaderSize     = 88 // signature(4) + pad(4) + byte_order(8) + version(4) + entry_count(4) + hash_type(2) + flags(2) + reserved(28) + checksum(32)
	SnapshotChecksumSize   = 32 // SHA-256 of everything after the header
	CurrentSnapshotVersion = 1
)

// SnapshotSignature marks a dupegraph snapshot file
var SnapshotSignature = [4]byte{'d', 'g', 's', 'n'}

// Byte order magic for snapshot format validation
const ByteOrderMagic uint64 = 0x0102030405060708

// Snapshot header flags
const (
	SnapshotFlagClean uint16 = 1 << 0 // file was fully written and checksummed
)

// Hash type constants
const (
	HashTypeSHA1   uint16 = 1 // SHA-1 (20 bytes)
	HashTypeSHA256 uint16 = 2 // SHA-256 (32 bytes)
	HashTypeSHA512 uint16 = 3 // SHA-512 (64 bytes)
)

// HashTypeName returns the human-readable name for a hash type
func HashTypeName(hashType uint16) string {
	switch hashType {
	case HashTypeSHA1:
		return "sha1"
	case HashTypeSHA256:
		return "sha256"
	case HashTypeSHA512:
		return "sha512"
	default:
		return "unknown"
	}
}

// HashTypeFromName returns the hash type constant from a name (case-insensitive)
func HashTypeFromName(name string) (uint16, bool) {
	switch strings.ToLower(name) {
	case "sha1":
		return HashTypeSHA1, true
	case "sha256":
		return HashTypeSHA256, true
	case "sha512":
		return HashTypeSHA512, true
	default:
		return 0, false
	}
}

// Hash size constants
const (
	HashSizeSHA1   = 20 // SHA-1 hash size in bytes
	HashSizeSHA256 = 32 // SHA-256 hash size in bytes
	HashSizeSHA512 = 64 // SHA-512 hash size in bytes
)

// Domain prefixes keep constructed digests (symlink targets, directory
// fingerprints) from ever colliding with plain file content digests.
const (
	symlinkDigestPrefix = "dgsym\x00"
	dirDigestPrefix     = "dgdir\x00"
)
