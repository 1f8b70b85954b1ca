// Package compileinfo reports which PGSbuilder build produced an output.
package compileinfo

import (
	"fmt"
	"os"
	"runtime/debug"
)

type CompileInfo struct {
	Binary     string
	Module     string
	Version    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	dirty := ""
	if c.Modified {
		dirty = " with uncommitted changes"
	}

	return fmt.Sprintf("%s (%s %s) built with %s from commit %v of %v%s", c.Binary, c.Module, c.Version, c.GoVersion, c.Commit, c.CommitTime, dirty)
}

func Get() CompileInfo {
	var out CompileInfo

	z, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.Binary = z.Path
	out.Module = z.Main.Path
	out.Version = z.Main.Version
	out.GoVersion = z.GoVersion
	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

func PrintToStdErr() {
	fmt.Fprintln(os.Stderr, Get())
}
