package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time with -ldflags.
var (
	Version   = "dev"
	GitCommit = ""
	GitBranch = ""
	BuildTime = ""
	GoVersion = ""
)

const shortCommitLen = 7

// Info is the resolved build metadata.
type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit,omitempty"`
	GitBranch string    `json:"git_branch,omitempty"`
	BuildTime string    `json:"build_time,omitempty"`
	GoVersion string    `json:"go_version"`
	BuildDate time.Time `json:"build_date"`
	IsRelease bool      `json:"is_release"`
	IsDirty   bool      `json:"is_dirty"`
}

// Get resolves the build metadata. Link-time values win over build info.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		GitBranch: GitBranch,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		IsRelease: Version != "dev" && !strings.Contains(Version, "dirty"),
	}
	if BuildTime != "" {
		if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
			info.BuildDate = t
		}
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.fillFromBuildInfo(bi)
	}
	return info
}

func (i *Info) fillFromBuildInfo(bi *debug.BuildInfo) {
	if i.GoVersion == "" {
		i.GoVersion = bi.GoVersion
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if i.GitCommit == "" {
				i.GitCommit = s.Value
			}
		case "vcs.modified":
			i.IsDirty = s.Value == "true"
		case "vcs.time":
			if i.BuildTime == "" {
				if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
					i.BuildDate = t
					i.BuildTime = s.Value
				}
			}
		}
	}
	if len(i.GitCommit) > shortCommitLen {
		i.GitCommit = i.GitCommit[:shortCommitLen]
	}
}

// Short returns version and commit, e.g. "1.2.0-abc1234-dirty".
func (i Info) Short() string {
	if i.GitCommit == "" {
		return i.Version
	}
	s := i.Version + "-" + i.GitCommit
	if i.IsDirty {
		s += "-dirty"
	}
	return s
}

// Full returns Short plus a non-default branch and the build date.
func (i Info) Full() string {
	parts := []string{i.Version}
	if i.GitCommit != "" {
		parts = append(parts, i.GitCommit)
	}
	if i.GitBranch != "" && i.GitBranch != "main" && i.GitBranch != "master" {
		parts = append(parts, i.GitBranch)
	}
	if i.IsDirty {
		parts = append(parts, "dirty")
	}
	s := strings.Join(parts, "-")
	if !i.BuildDate.IsZero() {
		s += fmt.Sprintf(" (built %s)", i.BuildDate.UTC().Format(time.RFC3339))
	}
	return s
}

// Fields returns the metadata as structured log fields.
func (i Info) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"version":    i.Version,
		"go_version": i.GoVersion,
	}
	if i.GitCommit != "" {
		fields["git_commit"] = i.GitCommit
	}
	if i.BuildTime != "" {
		fields["build_time"] = i.BuildTime
	}
	return fields
}

// GetShortVersion returns Get().Short().
func GetShortVersion() string { return Get().Short() }
