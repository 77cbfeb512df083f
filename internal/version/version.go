// Package version holds the build version of unmutex. Release builds set
// both values with
//
//	-ldflags "-X github.com/safedep/unmutex/internal/version.Version=v1.2.0
//	          -X github.com/safedep/unmutex/internal/version.Commit=<sha>"
//
// Other builds fall back to the module and VCS data Go embeds in the binary.
package version

import "runtime/debug"

var (
	Version string
	Commit  string
)

const shortCommitLength = 12

func init() {
	info, _ := debug.ReadBuildInfo()
	Version, Commit = resolve(Version, Commit, info)
}

func resolve(version, commit string, info *debug.BuildInfo) (string, string) {
	if info != nil {
		if version == "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}

		if commit == "" {
			commit = vcsRevision(info)
		}
	}

	if version == "" {
		version = "dev"
	}

	if commit == "" {
		commit = "unknown"
	}

	return version, commit
}

func vcsRevision(info *debug.BuildInfo) string {
	revision, dirty := "", false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}

	if len(revision) > shortCommitLength {
		revision = revision[:shortCommitLength]
	}

	if revision != "" && dirty {
		revision += "-dirty"
	}

	return revision
}
