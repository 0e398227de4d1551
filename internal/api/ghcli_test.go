package api

import "testing"

func TestParseGhVersion(t *testing.T) {
	out := "gh version 2.45.0 (2024-03-04)\nhttps://github.com/cli/cli/releases/tag/v2.45.0\n"
	v, err := ParseGhVersion(out)
	if err != nil {
		t.Fatalf("ParseGhVersion: %v", err)
	}
	if v.Version != "2.45.0" || !v.Supported() {
		t.Errorf("ParseGhVersion() = %+v, supported = %v", v, v.Supported())
	}

	if _, err := ParseGhVersion("command not found"); err == nil {
		t.Error("expected error for garbage output")
	}
}

func TestVersionAtLeast(t *testing.T) {
	tests := []struct {
		have, want string
		ok         bool
	}{
		{"2.43.1", "2.43.1", true},
		{"2.43.0", "2.43.1", false},
		{"v2.100.0", "2.43.1", true},
		{"1.99.99", "2.43.1", false},
		{"not-a-version", "2.43.1", false},
	}
	for _, tt := range tests {
		if got := VersionAtLeast(tt.have, tt.want); got != tt.ok {
			t.Errorf("VersionAtLeast(%q, %q) = %v, want %v", tt.have, tt.want, got, tt.ok)
		}
	}
}
