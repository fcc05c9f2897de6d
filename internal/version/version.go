// Package version reports the qrisk build version.
package version

import (
	"runtime/debug"
	"strings"

	semver "github.com/blang/semver/v4"
)

// Version is overridden at build time with
// -ldflags "-X github.com/hqc-securechain/qrisk/internal/version.Version=v1.2.3".
var Version = "0.1.0"

// Info describes the running binary.
type Info struct {
	Version  string `json:"version"`
	Revision string `json:"revision,omitempty"`
	Modified bool   `json:"modified,omitempty"`
}

// Semver parses the build version tolerantly (a leading "v" is accepted).
// Unparseable versions become 0.0.0.
func Semver() semver.Version {
	return parse(Version)
}

func parse(v string) semver.Version {
	ver, err := semver.ParseTolerant(strings.TrimSpace(v))
	if err != nil {
		return semver.MustParse("0.0.0")
	}
	return ver
}

// Get returns the version plus VCS details from the embedded build info.
func Get() Info {
	info := Info{Version: Semver().String()}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.Revision = s.Value
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}
	return info
}
