package version

import (
	"runtime/debug"
)

// Set at build time with -ldflags "-X".
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info is the build identity of the running binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty,omitempty"`
}

// Get returns the ldflags values, completed from the module build info
// where they were left empty.
func Get() Info {
	info := Info{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	return info
}

// String returns version[-commit][-dirty] with the commit shortened to 7 characters.
func (i Info) String() string {
	s := i.Version
	if i.GitCommit != "" {
		commit := i.GitCommit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		s += "-" + commit
	}
	if i.Dirty {
		s += "-dirty"
	}
	return s
}

// Fields returns the build identity as log fields.
func (i Info) Fields() map[string]interface{} {
	return map[string]interface{}{
		"version":    i.String(),
		"go_version": i.GoVersion,
		"build_time": i.BuildTime,
	}
}
