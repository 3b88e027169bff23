package dupegraph

import "testing"

func TestParseHumanSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		wantErr  bool
	}{
		{"1024", 1024, false},
		{"1024B", 1024, false},
		{"1K", 1024, false},
		{"1KB", 1024, false},
		{"512k", 512 * 1024, false},
		{"4M", 4 * 1024 * 1024, false},
		{"2MB", 2 * 1024 * 1024, false},
		{"1G", 1024 * 1024 * 1024, false},
		{"1.5K", 1536, false},
		{" 8M ", 8 * 1024 * 1024, false},
		{"", 0, true},
		{"abc", 0, true},
		{"1T", 0, true},
		{"0", 0, true},
		{"-1K", 0, true},
	}

	for _, tt := range tests {
		result, err := ParseHumanSize(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseHumanSize(%q) expected error, got %d", tt.input, result)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseHumanSize(%q) failed: %v", tt.input, err)
			continue
		}
		if result != tt.expected {
			t.Errorf("ParseHumanSize(%q) = %d, want %d", tt.input, result, tt.expected)
		}
	}
}

func TestFormatHumanSize(t *testing.T) {
	tests := []struct {
		size     int64
		expected string
	}{
		{512, "512B"},
		{1024, "1.0K"},
		{1536, "1.5K"},
		{4 * 1024 * 1024, "4.0M"},
		{1024 * 1024 * 1024, "1.0G"},
	}

	for _, tt := range tests {
		if got := FormatHumanSize(tt.size); got != tt.expected {
			t.Errorf("FormatHumanSize(%d) = %s, want %s", tt.size, got, tt.expected)
		}
	}
}
