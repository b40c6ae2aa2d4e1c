package version

import (
	"regexp"
	"strings"
	"testing"
)

// semverRegex validates semantic versioning format
var semverRegex = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

func TestVersionConstants(t *testing.T) {
	tests := []struct {
		name    string
		version string
	}{
		{"App", App},
		{"Session", Session},
		{"Recognition", Recognition},
		{"Translation", Translation},
		{"Synthesis", Synthesis},
		{"API", API},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !semverRegex.MatchString(tt.version) {
				t.Errorf("%s version %q does not match semver format (x.y.z)", tt.name, tt.version)
			}
		})
	}
}

func TestComponentVersion(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"session", Session},
		{"stt", Recognition},
		{"tts", Synthesis},
		{"server", API},
		{"unknown", App},
	}
	for _, tt := range tests {
		if got := ComponentVersion(tt.name); got != tt.want {
			t.Errorf("ComponentVersion(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "meinDOLMETSCHER "+App) {
		t.Errorf("String() = %q", s)
	}
	if !strings.Contains(s, Commit) {
		t.Errorf("String() = %q, missing commit", s)
	}
}
