package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"cflow/internal/diag"
	"cflow/internal/driver"
	"cflow/internal/irfile"
	"cflow/internal/source"
	"cflow/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version [file.cfir]",
	Short: "Show the cflow version and the IR formats it reads",
	Long: `Show the cflow version, the IR container format it writes and the range it
reads. Given a file, also report the format the file was written in; the
command fails when this build cannot read it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVersion,
}

func init() {
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	versionCmd.Flags().Bool("build", false, "include toolchain and VCS details of this binary")
}

type versionReport struct {
	Tool        string       `json:"tool"`
	Version     string       `json:"version"`
	IRFormat    string       `json:"ir_format"`
	IRReads     string       `json:"ir_reads"`
	CacheSchema uint16       `json:"cache_schema"`
	Build       *buildReport `json:"build,omitempty"`
	File        *fileReport  `json:"file,omitempty"`
}

type buildReport struct {
	GoVersion string `json:"go_version"`
	Revision  string `json:"revision,omitempty"`
	Time      string `json:"time,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
}

type fileReport struct {
	Path     string `json:"path"`
	Version  string `json:"version"`
	Producer string `json:"producer,omitempty"`
	Readable bool   `json:"readable"`
	Reason   string `json:"reason,omitempty"`
}

func runVersion(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "pretty" && format != "json" {
		return errInvalidFlag("format", format, "pretty|json")
	}
	withBuild, err := cmd.Flags().GetBool("build")
	if err != nil {
		return err
	}

	rep := versionReport{
		Tool:        "cflow",
		Version:     version.Version,
		IRFormat:    irfile.FormatVersion,
		IRReads:     irfile.SupportedVersions,
		CacheSchema: driver.CacheSchema,
	}
	if withBuild {
		rep.Build = readBuild()
	}
	if len(args) == 1 {
		if rep.File, err = inspectFile(cmd, args[0]); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		printVersion(out, rep)
	}
	if rep.File != nil && !rep.File.Readable {
		return errReported
	}
	return nil
}

// inspectFile reads the header of path. Files that are not IR containers
// are reported as diagnostics.
func inspectFile(cmd *cobra.Command, path string) (*fileReport, error) {
	h, err := irfile.ReadHeader(path)
	if err != nil {
		code := diag.IODecodeError
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			code = diag.IOLoadFileError
		}
		return nil, reportOne(cmd, diag.NewError(code, source.Span{File: path}, err.Error()))
	}
	rep := &fileReport{Path: path, Version: h.Version, Producer: h.Producer, Readable: true}
	if err := irfile.CheckVersion(h.Version); err != nil {
		rep.Readable = false
		rep.Reason = err.Error()
	}
	return rep, nil
}

// readBuild reports the toolchain and VCS stamp of the running binary.
// Values set at link time win over the embedded stamp.
func readBuild() *buildReport {
	b := &buildReport{GoVersion: runtime.Version()}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				b.Revision = s.Value
			case "vcs.time":
				b.Time = s.Value
			case "vcs.modified":
				b.Modified = s.Value == "true"
			}
		}
	}
	if version.GitCommit != "" {
		b.Revision = version.GitCommit
	}
	if version.BuildDate != "" {
		b.Time = version.BuildDate
	}
	return b
}

func printVersion(w io.Writer, rep versionReport) {
	fmt.Fprintf(w, "cflow %s\n", version.Colored())
	fmt.Fprintf(w, "  %-10s %s (reads %s)\n", "ir format", rep.IRFormat, rep.IRReads)
	fmt.Fprintf(w, "  %-10s %d\n", "cache", rep.CacheSchema)
	if b := rep.Build; b != nil {
		fmt.Fprintf(w, "  %-10s %s\n", "go", b.GoVersion)
		if b.Revision != "" {
			rev := b.Revision
			if b.Modified {
				rev += " (modified)"
			}
			fmt.Fprintf(w, "  %-10s %s\n", "revision", rev)
		}
		if b.Time != "" {
			fmt.Fprintf(w, "  %-10s %s\n", "built", b.Time)
		}
	}
	if f := rep.File; f != nil {
		producer := f.Producer
		if producer == "" {
			producer = "unknown producer"
		}
		if f.Readable {
			fmt.Fprintf(w, "%s: format %s by %s\n", f.Path, f.Version, producer)
		} else {
			fmt.Fprintf(w, "%s: format %s by %s, not readable: %s\n", f.Path, f.Version, producer, f.Reason)
		}
	}
}
