package version

import "github.com/fatih/color"

// Version information for the cflow CLI.
// These variables can be overridden at build time via -ldflags.

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)

	// Major, Minor and Patch make up the semantic version.
	Major = "0"
	Minor = "1"
	Patch = "0"
	// Suffix is the pre-release suffix, including its dash.
	Suffix = "-dev"

	// Version is the plain semantic version of the CLI.
	Version = Major + "." + Minor + "." + Patch + Suffix

	// GitCommit and BuildDate override the VCS stamp the Go toolchain
	// embeds, for builds made outside a checkout.
	GitCommit = ""
	BuildDate = ""
)

// Colored renders the version with one color per component. Colors follow
// color.NoColor at call time.
func Colored() string {
	return versionMajorColor.Sprint(Major) + "." + versionMinorColor.Sprint(Minor) + "." + versionPatchColor.Sprint(Patch) + Suffix
}
