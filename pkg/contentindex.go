package dupegraph

import (
	"encoding/hex"
	"hash/fnv"
	"os"
	"sync"
)

// Digest is a raw content hash usable as a map key. The empty string is never
// a valid digest.
type Digest string

// Hex returns the hex encoding of the digest
func (d Digest) Hex() string {
	return hex.EncodeToString([]byte(d))
}

const indexShardCount = 16

// shardedMap is a string-keyed concurrent map split across fixed shards so
// unrelated keys never contend on the same lock. Each operation is atomic for
// its key; there is no cross-key transactionality.
type shardedMap[V any] struct {
	shards [indexShardCount]struct {
		sync.RWMutex
		m map[string]V
	}
}

func newShardedMap[V any]() *shardedMap[V] {
	sm := &shardedMap[V]{}
	for i := range sm.shards {
		sm.shards[i].m = make(map[string]V)
	}
	return sm
}

func (sm *shardedMap[V]) shard(key string) *struct {
	sync.RWMutex
	m map[string]V
} {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &sm.shards[h.Sum32()%indexShardCount]
}

// Get returns the value for key, if present
func (sm *shardedMap[V]) Get(key string) (V, bool) {
	s := sm.shard(key)
	s.RLock()
	defer s.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

// SetIfAbsent stores value only when key is new and reports whether it did.
// The first writer wins; later attempts leave the stored value untouched.
func (sm *shardedMap[V]) SetIfAbsent(key string, value V) bool {
	s := sm.shard(key)
	s.Lock()
	defer s.Unlock()
	if _, exists := s.m[key]; exists {
		return false
	}
	s.m[key] = value
	return true
}

// Update runs fn on the value slot for key while holding the shard lock.
// fn receives the current value (or the zero value) and a presence flag and
// returns the value to store, or store=false to delete/leave the slot empty.
func (sm *shardedMap[V]) Update(key string, fn func(cur V, ok bool) (V, bool)) {
	s := sm.shard(key)
	s.Lock()
	defer s.Unlock()
	cur, ok := s.m[key]
	next, store := fn(cur, ok)
	if store {
		s.m[key] = next
	} else if ok {
		delete(s.m, key)
	}
}

// Len returns the total number of stored keys
func (sm *shardedMap[V]) Len() int {
	n := 0
	for i := range sm.shards {
		sm.shards[i].RLock()
		n += len(sm.shards[i].m)
		sm.shards[i].RUnlock()
	}
	return n
}

// Range calls fn for every key/value pair. Iteration takes each shard's read
// lock in turn; it observes a consistent view per shard, not globally.
func (sm *shardedMap[V]) Range(fn func(key string, value V) bool) {
	for i := range sm.shards {
		s := &sm.shards[i]
		s.RLock()
		for k, v := range s.m {
			if !fn(k, v) {
				s.RUnlock()
				return
			}
		}
		s.RUnlock()
	}
}

// ContentIndex is the concurrent content-addressed store shared by every job
// in a run. It holds three fine-grained structures:
//
//   - seen: the set of paths already admitted to the job graph. First insert
//     wins; the set never shrinks. This deduplicates overlapping roots and
//     repeated enumeration, it is not cycle detection.
//   - hashForPath: path -> content digest, written at most once per path and
//     never removed.
//   - fileHashes: digest -> bucket of (path -> metadata) for every currently
//     unconsumed path sharing that digest. Finalize consumes a child's bucket
//     entry when it aggregates the parent directory, so buckets shrink as the
//     tree is finalized bottom-up.
//
// A fourth set, failed, records paths whose hash job errored; finalize uses
// it to tell an expected absence (I/O failure, child treated as absent) from
// a missing entry that indicates an indexing bug.
type ContentIndex struct {
	seen        *shardedMap[struct{}]
	failed      *shardedMap[struct{}]
	hashForPath *shardedMap[Digest]
	fileHashes  *shardedMap[map[string]os.FileInfo]
}

// NewContentIndex creates an empty content index
func NewContentIndex() *ContentIndex {
	return &ContentIndex{
		seen:        newShardedMap[struct{}](),
		failed:      newShardedMap[struct{}](),
		hashForPath: newShardedMap[Digest](),
		fileHashes:  newShardedMap[map[string]os.FileInfo](),
	}
}

// AdmitPath inserts path into the seen set and reports whether this call was
// the first admission. Only the first admission may proceed with real work.
func (ci *ContentIndex) AdmitPath(path string) bool {
	return ci.seen.SetIfAbsent(path, struct{}{})
}

// Seen reports whether path has already been admitted
func (ci *ContentIndex) Seen(path string) bool {
	_, ok := ci.seen.Get(path)
	return ok
}

// MarkFailed records that path's hash job failed; the path stays absent from
// both content maps.
func (ci *ContentIndex) MarkFailed(path string) {
	ci.failed.SetIfAbsent(path, struct{}{})
}

// Failed reports whether path's hash job was recorded as failed
func (ci *ContentIndex) Failed(path string) bool {
	_, ok := ci.failed.Get(path)
	return ok
}

// AddContentHash registers the digest for path and, if this is the first
// registration for the path, contributes (path, info) to the digest's bucket.
// The hashForPath insert happens strictly before the bucket insert, so a
// path can never be observed in a bucket without being registered, and a
// duplicate hashing attempt contributes to the bucket at most once. A path
// already present in the bucket on first registration indicates an indexing
// bug and is returned as an invariant violation.
func (ci *ContentIndex) AddContentHash(path string, digest Digest, info os.FileInfo) error {
	if !ci.hashForPath.SetIfAbsent(path, digest) {
		return nil // duplicate attempt, first write stands
	}

	var violation error
	ci.fileHashes.Update(string(digest), func(bucket map[string]os.FileInfo, ok bool) (map[string]os.FileInfo, bool) {
		if !ok {
			bucket = make(map[string]os.FileInfo)
		}
		if _, dup := bucket[path]; dup {
			violation = &InvariantError{
				Op:     "index",
				Path:   path,
				Detail: "path contributed to hash bucket twice",
			}
			return bucket, true
		}
		bucket[path] = info
		return bucket, true
	})
	return violation
}

// DigestFor returns the registered digest for path, if any
func (ci *ContentIndex) DigestFor(path string) (Digest, bool) {
	return ci.hashForPath.Get(path)
}

// ConsumeBucketEntry removes path from the bucket for digest and returns a
// copy of the remaining entries: every other currently-known path sharing the
// same content. The path must be present; a miss means the dependency graph
// let a finalize run before its child's hash landed, which is an invariant
// violation, not a normal condition.
func (ci *ContentIndex) ConsumeBucketEntry(digest Digest, path string) (map[string]os.FileInfo, error) {
	var remaining map[string]os.FileInfo
	var violation error
	ci.fileHashes.Update(string(digest), func(bucket map[string]os.FileInfo, ok bool) (map[string]os.FileInfo, bool) {
		if !ok {
			violation = &InvariantError{
				Op:     "consume",
				Path:   path,
				Detail: "no bucket for digest " + digest.Hex(),
			}
			return bucket, ok
		}
		if _, present := bucket[path]; !present {
			violation = &InvariantError{
				Op:     "consume",
				Path:   path,
				Detail: "path missing from bucket for digest " + digest.Hex(),
			}
			return bucket, true
		}
		delete(bucket, path)
		remaining = make(map[string]os.FileInfo, len(bucket))
		for p, fi := range bucket {
			remaining[p] = fi
		}
		return bucket, true
	})
	if violation != nil {
		return nil, violation
	}
	return remaining, nil
}

// RangeHashes calls fn for every (path, digest) pair registered in the index
func (ci *ContentIndex) RangeHashes(fn func(path string, digest Digest) bool) {
	ci.hashForPath.Range(fn)
}

// HashedPathCount returns the number of paths with a registered digest
func (ci *ContentIndex) HashedPathCount() int {
	return ci.hashForPath.Len()
}
