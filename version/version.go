package version

import (
	"fmt"
	"runtime"
	"strings"
)

// VERSION has the current software version (set in the build process)
var (
	VERSION    string
	buildTime  string
	gitVersion string
)

func init() {
	if len(gitVersion) > 0 {
		VERSION = VERSION + "/" + gitVersion
	}
	if len(VERSION) == 0 {
		VERSION = "dev-snapshot"
	}
	Version()
}

var v string

// Version returns the version and build information as a single string.
func Version() string {
	if len(v) > 0 {
		return v
	}
	extra := []string{}
	if len(buildTime) > 0 {
		extra = append(extra, buildTime)
	}
	extra = append(extra, runtime.Version())
	v = fmt.Sprintf("%s (%s)", VERSION, strings.Join(extra, ", "))
	return v
}
