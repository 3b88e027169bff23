// Package dupegraph walks filesystem trees, hashes every regular file and
// aggregates per-directory information to detect duplicate files and
// directories. The traversal is driven by a dynamically grown dependency
// graph: directory enumeration spawns child jobs and a fan-in finalize node,
// hashing runs concurrently on a fixed worker pool, and each directory is
// finalized bottom-up only after its whole subtree has completed.
//
// # Core API
//
// The main entry point is Scanner, which runs one duplicate-detection pass:
//
//	scanner, err := dupegraph.NewScanner(dupegraph.Options{Logger: logger})
//	if err != nil { ... }
//	summary, err := scanner.Run([]string{"/path/to/tree"})
//	groups := scanner.Worker().DuplicateGroups()
//
// # Batch cache mode
//
// A simpler flat mode hashes a tree without the dependency graph and
// persists a binary path→hash snapshot plus a JSON hash→paths report:
//
//	snapshot, err := dupegraph.BuildSnapshot("/path/to/tree", opts)
//	err = snapshot.WriteFile("/path/to/tree.dgsn")
//	err = snapshot.WriteReport(os.Stdout)
//
// # Configuration
//
// Recognized options are block_size (bytes per hashing read chunk),
// threads (0 = all available cores), cross_filesystem (disable device
// boundary pruning), the hash algorithm and the symlink mode. They can be
// loaded from an ini config file via LoadConfig and overridden per run.
//
// # Note on Internal API
//
// Types like Worker, ContentIndex and the Scheduler are exported for reuse
// and testing, but the stable consumer surface is Scanner, Summary,
// DuplicateGroup and Snapshot.
package dupegraph
