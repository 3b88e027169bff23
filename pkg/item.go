package dupegraph

import (
	"fmt"
	"os"
)

// ItemKind identifies the classification of a filesystem entry.
type ItemKind uint8

const (
	ItemFile ItemKind = iota
	ItemDir
	ItemSymlink
)

// String returns the human-readable name of the item kind
func (k ItemKind) String() string {
	switch k {
	case ItemFile:
		return "file"
	case ItemDir:
		return "directory"
	case ItemSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Item is a classified filesystem entry: a path plus the metadata snapshot
// taken when the entry was observed. Identity is defined by path alone; two
// Items for the same path compare equal even if their metadata differs, which
// is what lets finalize detect "same entry, contents changed" cheaply.
type Item struct {
	Path string
	Kind ItemKind
	Info os.FileInfo
}

// ClassifyItem turns a path and its lstat metadata into a tagged Item.
// The symlink bit is checked before the directory/file bits because lstat
// metadata reports the link itself, not its target. A mode that matches none
// of the three kinds is reported as an invariant violation rather than a
// plain error; it normally cannot happen, but a concurrent replacement of the
// entry with a device node or fifo between readdir and lstat can reach it.
func ClassifyItem(path string, info os.FileInfo) (Item, error) {
	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		return Item{Path: path, Kind: ItemSymlink, Info: info}, nil
	case mode.IsDir():
		return Item{Path: path, Kind: ItemDir, Info: info}, nil
	case mode.IsRegular():
		return Item{Path: path, Kind: ItemFile, Info: info}, nil
	default:
		return Item{}, &InvariantError{
			Op:     "classify",
			Path:   path,
			Detail: fmt.Sprintf("mode %v is neither file, directory nor symlink", mode),
		}
	}
}

// String returns a display form matching the kind, e.g. `file "a.txt"`
func (it Item) String() string {
	return fmt.Sprintf("%s %q", it.Kind, it.Path)
}

// childSet is a directory's as-observed child set keyed by path. Kind is
// compared alongside path so a file replaced by a directory of the same name
// registers as a change during finalize re-validation.
type childSet map[string]Item

// Equal reports whether both sets contain the same paths with the same kinds
func (cs childSet) Equal(other childSet) bool {
	if len(cs) != len(other) {
		return false
	}
	for path, item := range cs {
		o, ok := other[path]
		if !ok || o.Kind != item.Kind {
			return false
		}
	}
	return true
}
