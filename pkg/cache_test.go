package dupegraph

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBuildSnapshot(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, filepath.Join(tmpDir, "a.txt"), "hello")
	writeTestFile(t, filepath.Join(tmpDir, "sub", "b.txt"), "hello")
	writeTestFile(t, filepath.Join(tmpDir, "sub", "c.txt"), "world")

	snapshot, err := BuildSnapshot(tmpDir, Options{Threads: 4, Algorithm: "sha256"})
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}

	if snapshot.Root != tmpDir {
		t.Errorf("Snapshot root = %s, want %s", snapshot.Root, tmpDir)
	}
	if snapshot.HashType != HashTypeSHA256 {
		t.Errorf("Snapshot hash type = %d, want %d", snapshot.HashType, HashTypeSHA256)
	}
	if snapshot.Len() != 3 {
		t.Fatalf("Expected 3 entries, got %d", snapshot.Len())
	}

	// Entries are keyed by root-relative path
	for _, rel := range []string{"a.txt", filepath.Join("sub", "b.txt"), filepath.Join("sub", "c.txt")} {
		if _, ok := snapshot.Lookup(rel); !ok {
			t.Errorf("Expected entry for %s", rel)
		}
	}

	// Identical contents share a digest in the report
	a, _ := snapshot.Lookup("a.txt")
	b, _ := snapshot.Lookup(filepath.Join("sub", "b.txt"))
	c, _ := snapshot.Lookup(filepath.Join("sub", "c.txt"))
	if a != b {
		t.Error("Identical file contents should share a digest")
	}
	if a == c {
		t.Error("Different file contents should not share a digest")
	}

	report := snapshot.Report()
	if len(report[a.Hex()]) != 2 {
		t.Errorf("Expected 2 paths for shared digest, got %d", len(report[a.Hex()]))
	}
}

func TestBuildSnapshot_SkipsNonRegular(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "target.txt")
	writeTestFile(t, target, "content")
	if err := os.Symlink(target, filepath.Join(tmpDir, "link")); err != nil {
		t.Skipf("Cannot create symlinks on this system: %v", err)
	}

	snapshot, err := BuildSnapshot(tmpDir, Options{Threads: 1})
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}

	if snapshot.Len() != 1 {
		t.Errorf("Expected 1 entry with symlink skipped, got %d", snapshot.Len())
	}
	if _, ok := snapshot.Lookup("link"); ok {
		t.Error("Symlink should not appear in the snapshot")
	}
}

func TestBuildSnapshot_DefaultsAlgorithm(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, filepath.Join(tmpDir, "a.txt"), "x")

	snapshot, err := BuildSnapshot(tmpDir, Options{})
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}
	if snapshot.HashType != HashTypeSHA512 {
		t.Errorf("Expected sha512 default, got type %d", snapshot.HashType)
	}
}

func TestBuildSnapshot_InvalidRoot(t *testing.T) {
	if _, err := BuildSnapshot("/nonexistent/root", Options{}); err == nil {
		t.Error("Expected error for missing root")
	}

	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "file.txt")
	writeTestFile(t, filePath, "x")
	if _, err := BuildSnapshot(filePath, Options{}); err == nil {
		t.Error("Expected error for non-directory root")
	}
}

func TestBuildSnapshot_RoundTripFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestFile(t, filepath.Join(tmpDir, "data", "a.txt"), "payload")
	writeTestFile(t, filepath.Join(tmpDir, "data", "b.txt"), "payload")

	snapshot, err := BuildSnapshot(filepath.Join(tmpDir, "data"), Options{Algorithm: "sha1"})
	if err != nil {
		t.Fatalf("BuildSnapshot failed: %v", err)
	}

	snapshotPath := filepath.Join(tmpDir, "data.dgsn")
	if err := snapshot.WriteFile(snapshotPath); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	loaded, err := LoadSnapshot(snapshotPath)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if loaded.Len() != 2 {
		t.Errorf("Expected 2 entries after round trip, got %d", loaded.Len())
	}
	if loaded.HashType != HashTypeSHA1 {
		t.Errorf("Expected sha1 hash type, got %d", loaded.HashType)
	}
}
