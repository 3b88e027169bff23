package dupegraph

import "sort"

// DuplicateGroup represents a group of paths with the same content hash
type DuplicateGroup struct {
	Hash  string   `json:"hash"`
	Files []string `json:"files"`
	Count int      `json:"count"`
}

// DuplicateGroups builds the final duplicate report from the content index
// after a graph drain. It groups every registered path (files, hashed
// symlink targets and directory fingerprints alike) by digest and keeps the
// groups with more than one member, sorted by hash for stable output. The
// path→hash map is written at most once per path and never consumed, so the
// report is complete even though the hash→paths buckets have been drained by
// the bottom-up finalizes.
func (w *Worker) DuplicateGroups() []DuplicateGroup {
	byDigest := make(map[Digest][]string)
	w.index.RangeHashes(func(path string, digest Digest) bool {
		byDigest[digest] = append(byDigest[digest], path)
		return true
	})

	var result []DuplicateGroup
	for digest, paths := range byDigest {
		if len(paths) < 2 {
			continue
		}
		sort.Strings(paths)
		result = append(result, DuplicateGroup{
			Hash:  digest.Hex(),
			Files: paths,
			Count: len(paths),
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Hash < result[j].Hash })
	return result
}
