// Package version exposes the build version of the daemon.
package version

import "runtime/debug"

// Version is resolved from module build info at init
var Version = "devel"

func init() {
	inf, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if inf.Main.Version != "" && inf.Main.Version != "(devel)" {
		Version = inf.Main.Version
	}
}
