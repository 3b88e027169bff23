package dupegraph

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetHashAlgorithm(t *testing.T) {
	tests := []struct {
		name     string
		typeID   uint16
		size     int
		expectOk bool
	}{
		{"sha1", HashTypeSHA1, HashSizeSHA1, true},
		{"sha256", HashTypeSHA256, HashSizeSHA256, true},
		{"SHA512", HashTypeSHA512, HashSizeSHA512, true},
		{"md5", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tt := range tests {
		algorithm, err := GetHashAlgorithm(tt.name)
		if tt.expectOk {
			if err != nil {
				t.Errorf("GetHashAlgorithm(%s) failed: %v", tt.name, err)
				continue
			}
			if algorithm.TypeID != tt.typeID {
				t.Errorf("GetHashAlgorithm(%s) type = %d, want %d", tt.name, algorithm.TypeID, tt.typeID)
			}
			if algorithm.Size != tt.size {
				t.Errorf("GetHashAlgorithm(%s) size = %d, want %d", tt.name, algorithm.Size, tt.size)
			}
			if algorithm.NewFunc == nil {
				t.Errorf("GetHashAlgorithm(%s) has nil hash constructor", tt.name)
			}
		} else if err == nil {
			t.Errorf("Expected error for algorithm %q", tt.name)
		}
	}
}

func TestGetHashAlgorithmByType(t *testing.T) {
	for _, typeID := range []uint16{HashTypeSHA1, HashTypeSHA256, HashTypeSHA512} {
		algorithm, err := GetHashAlgorithmByType(typeID)
		if err != nil {
			t.Errorf("GetHashAlgorithmByType(%d) failed: %v", typeID, err)
			continue
		}
		if algorithm.TypeID != typeID {
			t.Errorf("GetHashAlgorithmByType(%d) round-trip = %d", typeID, algorithm.TypeID)
		}
	}

	if _, err := GetHashAlgorithmByType(999); err == nil {
		t.Error("Expected error for unknown hash type ID")
	}
}

func TestHashFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("hello"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	algorithm, err := GetHashAlgorithm("sha256")
	if err != nil {
		t.Fatalf("Failed to get algorithm: %v", err)
	}

	digest, err := HashFile(testFile, algorithm, DefaultBlockSize)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}

	// Known SHA-256 of "hello"
	expected := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if digest.Hex() != expected {
		t.Errorf("HashFile digest = %s, want %s", digest.Hex(), expected)
	}
	if len(digest) != HashSizeSHA256 {
		t.Errorf("Digest length = %d, want %d", len(digest), HashSizeSHA256)
	}
}

func TestHashFile_BlockSizeIndependent(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "big.bin")

	data := make([]byte, 100*1024)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(testFile, data, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	algorithm, err := GetHashAlgorithm("sha512")
	if err != nil {
		t.Fatalf("Failed to get algorithm: %v", err)
	}

	// The digest must not depend on how the file is chunked
	small, err := HashFile(testFile, algorithm, 512)
	if err != nil {
		t.Fatalf("HashFile with small block failed: %v", err)
	}
	large, err := HashFile(testFile, algorithm, 0) // 0 falls back to the default
	if err != nil {
		t.Fatalf("HashFile with default block failed: %v", err)
	}
	if small != large {
		t.Error("Digest differs across block sizes")
	}
}

func TestHashFile_MissingFile(t *testing.T) {
	algorithm, _ := GetHashAlgorithm("sha256")
	if _, err := HashFile("/nonexistent/path/file.txt", algorithm, DefaultBlockSize); err == nil {
		t.Error("Expected error hashing a missing file")
	}
}

func TestHashString(t *testing.T) {
	algorithm, _ := GetHashAlgorithm("sha256")

	a := HashString("target-a", algorithm)
	b := HashString("target-b", algorithm)
	a2 := HashString("target-a", algorithm)

	if a != a2 {
		t.Error("HashString is not deterministic")
	}
	if a == b {
		t.Error("Different inputs produced the same digest")
	}
	if len(a) != HashSizeSHA256 {
		t.Errorf("Digest length = %d, want %d", len(a), HashSizeSHA256)
	}
}

func TestGetHashSize(t *testing.T) {
	tests := []struct {
		hashType uint16
		want     int
	}{
		{HashTypeSHA1, HashSizeSHA1},
		{HashTypeSHA256, HashSizeSHA256},
		{HashTypeSHA512, HashSizeSHA512},
		{999, 0},
	}

	for _, tt := range tests {
		if got := GetHashSize(tt.hashType); got != tt.want {
			t.Errorf("GetHashSize(%d) = %d, want %d", tt.hashType, got, tt.want)
		}
	}
}
