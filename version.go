package pagetl

import "runtime/debug"

const (
	// Name is the application name.
	Name = "pagetl"

	// Description is a short description of the application.
	Description = "In-page HTML translation with language detection"
)

// Build information, set at release time with ldflags:
//
//	go build -ldflags "-X github.com/ZaguanLabs/pagetl.Version=1.0.0 -X github.com/ZaguanLabs/pagetl.GitCommit=$(git rev-parse HEAD)"
var (
	// Version is the semantic version of the application.
	Version = "0.1.0"

	// GitCommit is the git commit hash.
	GitCommit = ""

	// BuildDate is the build timestamp.
	BuildDate = ""
)

// Revision returns GitCommit, or the VCS revision the go tool stamped into
// the binary when no commit was set.
func Revision() string {
	if GitCommit != "" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

// FullVersion returns the version with the short revision appended when known.
func FullVersion() string {
	v := Version
	if rev := Revision(); rev != "" {
		if len(rev) > 7 {
			rev = rev[:7]
		}
		v += "+" + rev
	}
	return v
}

// UserAgent returns the user agent sent with capability API requests.
func UserAgent() string {
	return Name + "/" + Version
}
