// Package version provides build-time metadata for the xwatch binary.
// Version, GitCommit, and BuildDate are injected at compile time via -ldflags.
// Binaries built with go install fall back to the embedded module build info.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build-time values injected via -ldflags.
var (
	version   = "dev"
	gitCommit = "none"
	buildDate = "unknown"
)

// Info holds the build metadata for the binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
	Watcher   string `json:"watcher"`
}

// fsnotifyModule is the module providing file change notifications.
const fsnotifyModule = "github.com/fsnotify/fsnotify"

// GetInfo returns the current build information.
func GetInfo() Info {
	info := Info{
		Version:   version,
		GitCommit: gitCommit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		Watcher:   watcherBackend(runtime.GOOS),
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info = fromBuildInfo(info, bi)
	}

	info.GitCommit = shortCommit(info.GitCommit)

	return info
}

// fromBuildInfo fills values left at their placeholders from the build info
// the Go toolchain embeds in every module-aware binary.
func fromBuildInfo(info Info, bi *debug.BuildInfo) Info {
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}

	for _, dep := range bi.Deps {
		if dep.Path == fsnotifyModule && dep.Version != "" {
			info.Watcher = fmt.Sprintf("%s (fsnotify %s)", info.Watcher, dep.Version)
		}
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "none" && s.Value != "" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "unknown" && s.Value != "" {
				info.BuildDate = s.Value
			}
		}
	}

	return info
}

// watcherBackend names the kernel facility fsnotify uses on goos.
func watcherBackend(goos string) string {
	switch goos {
	case "linux", "android":
		return "inotify"
	case "darwin", "freebsd", "openbsd", "netbsd", "dragonfly", "ios":
		return "kqueue"
	case "windows":
		return "ReadDirectoryChangesW"
	case "illumos", "solaris":
		return "fen"
	default:
		return "unsupported"
	}
}

// String returns a human-readable single-line version string.
func (i Info) String() string {
	return fmt.Sprintf("xwatch %s (commit: %s, built: %s, %s %s)",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}

// Details returns one "key: value" line per field, for the verbose
// version output.
func (i Info) Details() string {
	return fmt.Sprintf("version:  %s\ncommit:   %s\nbuilt:    %s\ngo:       %s\nplatform: %s\nwatcher:  %s",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform, i.Watcher)
}

// JSON returns the version info as indented JSON.
func (i Info) JSON() (string, error) {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling version info: %w", err)
	}

	return string(data), nil
}

// shortCommit truncates a commit SHA to 7 characters.
func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}

	return commit
}
