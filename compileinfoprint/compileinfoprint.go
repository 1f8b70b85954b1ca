// Package compileinfoprint prints the build provenance to os.Stderr when a
// binary starts. Import it for its side effect.
package compileinfoprint

import "github.com/ailabstw/PGSbuilder/compileinfo"

func init() {
	compileinfo.PrintToStdErr()
}
