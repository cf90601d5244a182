package version

import "testing"

func TestGetUsesLdflags(t *testing.T) {
	origVersion, origCommit, origBuildTime := Version, GitCommit, BuildTime
	defer func() { Version, GitCommit, BuildTime = origVersion, origCommit, origBuildTime }()
	Version = "1.2.0"
	GitCommit = "abcdef0123"
	BuildTime = "2026-01-15T10:30:00Z"

	info := Get()
	if info.Version != "1.2.0" {
		t.Errorf("expected '1.2.0', got %q", info.Version)
	}
	if info.GitCommit != "abcdef0123" {
		t.Errorf("ldflags commit must win, got %q", info.GitCommit)
	}
	if info.BuildTime != "2026-01-15T10:30:00Z" {
		t.Errorf("ldflags build time must win, got %q", info.BuildTime)
	}
}

func TestInfoString(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"version only", Info{Version: "dev"}, "dev"},
		{"short commit", Info{Version: "1.0.0", GitCommit: "abc12"}, "1.0.0-abc12"},
		{"long commit trimmed", Info{Version: "1.0.0", GitCommit: "abcdef0123"}, "1.0.0-abcdef0"},
		{"dirty", Info{Version: "1.0.0", GitCommit: "abcdef0", Dirty: true}, "1.0.0-abcdef0-dirty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.info.String(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestInfoFields(t *testing.T) {
	f := Info{Version: "1.0.0", GoVersion: "go1.26.0"}.Fields()
	if f["version"] != "1.0.0" || f["go_version"] != "go1.26.0" {
		t.Errorf("unexpected fields: %v", f)
	}
}
