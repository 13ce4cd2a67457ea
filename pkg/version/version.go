// Package version reports the version of hwbp and the modules it was
// built from.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Version represents the current version of hwbp.
type Version struct {
	Major    string
	Minor    string
	Patch    string
	Metadata string
	Build    string
}

// HWBPVersion is the current version of hwbp.
var HWBPVersion = Version{
	Major: "0", Minor: "3", Patch: "0", Metadata: "",
	Build: "$Id$",
}

func (v Version) String() string {
	fixBuild(&v)
	ver := fmt.Sprintf("Version: %s.%s.%s", v.Major, v.Minor, v.Patch)
	if v.Metadata != "" {
		ver += "-" + v.Metadata
	}
	return fmt.Sprintf("%s\nBuild: %s", ver, v.Build)
}

// BuildInfo returns the Go version followed by one line for the main
// module and one for every dependency.
func BuildInfo() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		b.WriteString("not built in module mode\n")
		return b.String()
	}
	writeModule(&b, "mod", &info.Main)
	for _, dep := range info.Deps {
		writeModule(&b, "dep", dep)
	}
	return b.String()
}

func writeModule(b *strings.Builder, kind string, m *debug.Module) {
	fmt.Fprintf(b, " %s\t%s\t%s\t%s", kind, m.Path, m.Version, m.Sum)
	if m.Replace != nil {
		fmt.Fprintf(b, "\t=> %s\t%s", m.Replace.Path, m.Replace.Version)
	}
	b.WriteByte('\n')
}

// fixBuild replaces an unexpanded $Id$ with the VCS revision recorded by
// the go command.
func fixBuild(v *Version) {
	if !strings.HasPrefix(v.Build, "$Id$") {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			v.Build = setting.Value
			return
		}
	}
}
