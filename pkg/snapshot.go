package dupegraph

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"
	"unsafe"

	"github.com/gofrs/flock"
	"github.com/google/vectorio"
	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// snapshotHeader is the on-disk snapshot file header in host byte order.
// ByteOrder must be checked before any other multi-byte field is trusted.
type snapshotHeader struct {
	Signature  [4]byte  // "dgsn" signature
	Pad        [4]byte  // alignment padding, zero
	ByteOrder  uint64   // byte order detection magic (0x0102030405060708)
	Version    uint32   // snapshot format version
	EntryCount uint32   // number of entries
	HashType   uint16   // hash algorithm for all digests in the file
	Flags      uint16   // SnapshotFlag* bits
	Reserved   [28]byte // zero, reserved for future use
	Checksum   [32]byte // SHA-256 of everything after the header
}

// SnapshotEntry is one path→digest pair in a snapshot
type SnapshotEntry struct {
	Path   string
	Digest Digest
}

// serializedSize returns the entry's on-disk size: u16 path length, u16
// digest length, then the raw bytes of each
func (e *SnapshotEntry) serializedSize() int {
	return 4 + len(e.Path) + len(e.Digest)
}

func (e *SnapshotEntry) serialize() []byte {
	buf := make([]byte, e.serializedSize())
	binary.NativeEndian.PutUint16(buf[0:2], uint16(len(e.Path)))
	binary.NativeEndian.PutUint16(buf[2:4], uint16(len(e.Digest)))
	copy(buf[4:], e.Path)
	copy(buf[4+len(e.Path):], string(e.Digest))
	return buf
}

// Snapshot is a flat path→hash capture of one scanned root: the artifact of
// the batch cache mode. It has no dependency graph and no per-directory
// aggregation; entries are kept sorted by path in a skiplist so writes are
// deterministic and lookups cheap.
type Snapshot struct {
	Root     string
	HashType uint16
	entries  *zcsl.ZeroCopySkiplist[SnapshotEntry, string, string]
}

const snapshotContext = "snapshot"

func newEntrySkiplist() *zcsl.ZeroCopySkiplist[SnapshotEntry, string, string] {
	return zcsl.MakeZeroCopySkiplist[SnapshotEntry, string, string](
		16,
		func(e *SnapshotEntry) string { return e.Path },
		func(e *SnapshotEntry) int { return e.serializedSize() },
		strings.Compare,
	)
}

// NewSnapshot creates an empty snapshot for the given root
func NewSnapshot(root string, hashType uint16) *Snapshot {
	return &Snapshot{
		Root:     root,
		HashType: hashType,
		entries:  newEntrySkiplist(),
	}
}

// Add inserts a path→digest pair; the first insert for a path wins
func (s *Snapshot) Add(path string, digest Digest) {
	s.entries.Insert(&SnapshotEntry{Path: path, Digest: digest}, snapshotContext)
}

// Lookup returns the digest recorded for path
func (s *Snapshot) Lookup(path string) (Digest, bool) {
	node, _ := s.entries.Find(path)
	if node == nil {
		return "", false
	}
	return node.Item().Digest, true
}

// Len returns the number of recorded entries
func (s *Snapshot) Len() int {
	return s.entries.Length()
}

// ForEach iterates entries in sorted path order
func (s *Snapshot) ForEach(fn func(entry *SnapshotEntry) bool) {
	for node := s.entries.First(); node != nil; node = node.Next() {
		if !fn(node.Item()) {
			break
		}
	}
}

// WriteFile persists the snapshot. The header is written first with the
// clean flag clear, the body goes out through writev in IOV_MAX-sized
// batches, and only after a successful sync-worthy write is the header
// rewritten with the clean flag and the body checksum. A sidecar flock
// serializes writers; a held lock is an error, not a wait.
func (s *Snapshot) WriteFile(outputPath string) error {
	lock := flock.New(outputPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock snapshot %s: %w", outputPath, err)
	}
	if !locked {
		return fmt.Errorf("snapshot %s is locked by another process", outputPath)
	}
	defer lock.Unlock()

	// Root region: u32 length + raw path bytes
	rootRegion := make([]byte, 4+len(s.Root))
	binary.NativeEndian.PutUint32(rootRegion[0:4], uint32(len(s.Root)))
	copy(rootRegion[4:], s.Root)

	bodyBuffers := [][]byte{rootRegion}
	entryCount := 0
	s.ForEach(func(entry *SnapshotEntry) bool {
		bodyBuffers = append(bodyBuffers, entry.serialize())
		entryCount++
		return true
	})

	header := snapshotHeader{
		Signature:  SnapshotSignature,
		ByteOrder:  ByteOrderMagic,
		Version:    CurrentSnapshotVersion,
		EntryCount: uint32(entryCount),
		HashType:   s.HashType,
	}

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file %s: %w", outputPath, err)
	}
	defer file.Close()

	headerIovec := syscall.Iovec{
		Base: (*byte)(unsafe.Pointer(&header)),
		Len:  uint64(SnapshotHeaderSize),
	}
	if nw, err := vectorio.WritevRaw(uintptr(file.Fd()), []syscall.Iovec{headerIovec}); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	} else if nw != SnapshotHeaderSize {
		return fmt.Errorf("header write incomplete: wrote %d bytes, expected %d", nw, SnapshotHeaderSize)
	}

	checksum := sha256.New()
	totalBodySize := 0
	bodyIovecs := make([]syscall.Iovec, 0, len(bodyBuffers))
	for _, buf := range bodyBuffers {
		checksum.Write(buf)
		totalBodySize += len(buf)
		bodyIovecs = append(bodyIovecs, syscall.Iovec{
			Base: &buf[0],
			Len:  uint64(len(buf)),
		})
	}

	// Write the body in chunks that respect the system IOV_MAX limit
	maxIovecs := systemIOVMax()
	totalWritten := 0
	for offset := 0; offset < len(bodyIovecs); offset += maxIovecs {
		end := offset + maxIovecs
		if end > len(bodyIovecs) {
			end = len(bodyIovecs)
		}
		if nw, err := vectorio.WritevRaw(uintptr(file.Fd()), bodyIovecs[offset:end]); err != nil {
			return fmt.Errorf("failed to write snapshot entries: %w", err)
		} else {
			totalWritten += nw
		}
	}
	if totalWritten != totalBodySize {
		return fmt.Errorf("entries write incomplete: wrote %d bytes, expected %d", totalWritten, totalBodySize)
	}

	// Mark clean and rewrite the header with the final checksum
	header.Flags |= SnapshotFlagClean
	copy(header.Checksum[:], checksum.Sum(nil))

	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to seek to beginning for final header: %w", err)
	}
	if nw, err := vectorio.WritevRaw(uintptr(file.Fd()), []syscall.Iovec{headerIovec}); err != nil {
		return fmt.Errorf("failed to write final snapshot header: %w", err)
	} else if nw != SnapshotHeaderSize {
		return fmt.Errorf("final header write incomplete: wrote %d bytes, expected %d", nw, SnapshotHeaderSize)
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync snapshot file: %w", err)
	}

	return nil
}

// LoadSnapshot reads and validates a snapshot written by WriteFile
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	if len(data) < SnapshotHeaderSize {
		return nil, fmt.Errorf("snapshot %s truncated: %d bytes, header needs %d", path, len(data), SnapshotHeaderSize)
	}

	header := (*snapshotHeader)(unsafe.Pointer(&data[0]))
	if header.Signature != SnapshotSignature {
		return nil, fmt.Errorf("invalid signature: got %q, expected %q",
			string(header.Signature[:]), string(SnapshotSignature[:]))
	}
	if header.ByteOrder != ByteOrderMagic {
		return nil, fmt.Errorf("byte order mismatch: snapshot byte order 0x%016x does not match host byte order 0x%016x",
			header.ByteOrder, ByteOrderMagic)
	}
	if header.Version != CurrentSnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version: got %d, expected %d",
			header.Version, CurrentSnapshotVersion)
	}
	if header.Flags&SnapshotFlagClean == 0 {
		return nil, fmt.Errorf("snapshot %s was not written cleanly", path)
	}

	body := data[SnapshotHeaderSize:]
	actual := sha256.Sum256(body)
	if actual != header.Checksum {
		return nil, fmt.Errorf("snapshot %s checksum mismatch", path)
	}

	if len(body) < 4 {
		return nil, fmt.Errorf("snapshot %s truncated: missing root region", path)
	}
	rootLen := int(binary.NativeEndian.Uint32(body[0:4]))
	if len(body) < 4+rootLen {
		return nil, fmt.Errorf("snapshot %s truncated: root path length %d exceeds body", path, rootLen)
	}
	root := string(body[4 : 4+rootLen])

	snapshot := NewSnapshot(root, header.HashType)
	digestSize := GetHashSize(header.HashType)

	offset := 4 + rootLen
	for i := uint32(0); i < header.EntryCount; i++ {
		if len(body) < offset+4 {
			return nil, fmt.Errorf("snapshot %s truncated at entry %d", path, i)
		}
		pathLen := int(binary.NativeEndian.Uint16(body[offset : offset+2]))
		entryDigestLen := int(binary.NativeEndian.Uint16(body[offset+2 : offset+4]))
		offset += 4

		if IsDebugEnabled("extravalidation") && digestSize != 0 && entryDigestLen != digestSize {
			return nil, fmt.Errorf("snapshot %s entry %d digest length %d does not match hash type %s",
				path, i, entryDigestLen, HashTypeName(header.HashType))
		}
		if len(body) < offset+pathLen+entryDigestLen {
			return nil, fmt.Errorf("snapshot %s truncated at entry %d payload", path, i)
		}

		entryPath := string(body[offset : offset+pathLen])
		offset += pathLen
		digest := Digest(body[offset : offset+entryDigestLen])
		offset += entryDigestLen

		snapshot.Add(entryPath, digest)
	}

	return snapshot, nil
}

// Report maps each hex-encoded digest to the sorted list of paths sharing it
func (s *Snapshot) Report() map[string][]string {
	report := make(map[string][]string)
	s.ForEach(func(entry *SnapshotEntry) bool {
		hexKey := entry.Digest.Hex()
		report[hexKey] = append(report[hexKey], entry.Path)
		return true
	})
	for _, paths := range report {
		sort.Strings(paths)
	}
	return report
}

// WriteReport emits the snapshot's hash→paths report as indented JSON
func (s *Snapshot) WriteReport(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.Report()); err != nil {
		return fmt.Errorf("failed to encode snapshot report: %w", err)
	}
	return nil
}

// systemIOVMax returns the writev vector limit. The conservative POSIX
// floor is plenty here; snapshot bodies rarely need more than a few batches.
func systemIOVMax() int {
	return 1024
}
