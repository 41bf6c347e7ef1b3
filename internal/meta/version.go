package meta

import (
	"fmt"
	"runtime"
)

// Info describes the build context of the ovpnctl binary, as filled in by
// the Go linker. See the vars below.
type Info struct {
	Version   string
	Build     string
	Branch    string
	BuildTime string
	Platform  string
	GoVersion string
	GoTag     string
}

// These will be filled in using the linker -X flag
var (
	// Version as an arbitrary string
	Version string

	// Build is the Git sha from when we are building
	Build string

	// Branch is the Git branch that we are building from
	Branch string

	// BuildTimeUTC is the build time in UTC (year/month/day hour:min:sec)
	BuildTimeUTC string

	// GoTag is the Go build tags, see
	// https://golang.org/pkg/go/build/#hdr-Build_Constraints
	GoTag string

	platform = fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH)
)

// GetInfo returns an Info struct populated with the build information.
// Version is "dev" for binaries built without -ldflags.
func GetInfo() Info {
	return Info{
		GoVersion: runtime.Version(),
		Version:   version(),
		Build:     Build,
		Branch:    Branch,
		BuildTime: BuildTimeUTC,
		GoTag:     GoTag,
		Platform:  platform,
	}
}

func version() string {
	if Version == "" {
		return "dev"
	}

	return Version
}

// String renders the info on a single line, e.g.
//
//	ovpnctl v1.2.0 (a1b2c3d, main) built 2024/01/02 03:04:05 with go1.21.5 linux amd64
func (i Info) String() string {
	s := fmt.Sprintf("ovpnctl %s", i.Version)

	if i.Build != "" {
		s += fmt.Sprintf(" (%s, %s)", i.Build, i.Branch)
	}

	if i.BuildTime != "" {
		s += " built " + i.BuildTime
	}

	return s + fmt.Sprintf(" with %s %s", i.GoVersion, i.Platform)
}
