package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cflow/internal/driver"
	"cflow/internal/ir"
	"cflow/internal/irfile"
	"cflow/internal/source"
	"cflow/internal/vm"
)

func writeModule(t *testing.T, dir string) string {
	t.Helper()
	a := ir.NewVar("a", ir.TypeInt)
	x := ir.NewVar("x", ir.TypeAny)
	ret := ir.NewLabel("ret")
	echo := &ir.Function{
		Name:      "echo",
		Loc:       source.At("echo.cf", 1, 1),
		Generator: true,
		Params:    []*ir.Variable{a},
		Return:    ret,
		Body: ir.Scope([]*ir.Variable{x},
			ir.Set(x, ir.YieldOf(a)),
			ir.Ret(ret, ir.Bin(ir.OpMul, x, a)),
		),
	}
	bad := &ir.Function{
		Name:      "bad",
		Loc:       source.At("echo.cf", 7, 1),
		Generator: true,
		Body:      ir.Seq(ir.CallOn(nil, "log", ir.TypeVoid, ir.YieldOf(ir.Int(1)))),
	}
	path := filepath.Join(dir, "echo.cfir")
	if err := irfile.WriteFile(path, &ir.Module{Name: "echo", Funcs: []*ir.Function{echo, bad}}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, configFileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCLI_RunDrivesGenerator(t *testing.T) {
	dir := t.TempDir()
	path := writeModule(t, dir)
	cfg := writeConfig(t, dir, "[cache]\nenabled = false\n")

	out, errOut, err := execute(t, "run", "--color", "off", "--config", cfg,
		"--func", "echo", "--arg", "3", "--resume", "14", path)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, errOut)
	}
	if want := "step 0: (3, 1)\nstep 1: (42, -1)\n"; out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
	// bad is rejected but does not stop echo from running.
	if !strings.Contains(errOut, "LOW6001") || !strings.Contains(errOut, "(in bad)") {
		t.Fatalf("missing diagnostic for bad:\n%s", errOut)
	}
}

func TestCLI_LowerWritesModule(t *testing.T) {
	dir := t.TempDir()
	path := writeModule(t, dir)
	cfg := writeConfig(t, dir, "[cache]\nenabled = false\n")
	outPath := filepath.Join(dir, "echo.lowered.cfir")

	_, errOut, err := execute(t, "lower", "--color", "off", "--config", cfg, "--ui", "off", "-o", outPath, path)
	if err == nil {
		t.Fatalf("expected failure for the rejected function")
	}
	if !strings.Contains(errOut, "yield in expression position") {
		t.Fatalf("unexpected diagnostics:\n%s", errOut)
	}
	if _, statErr := os.Stat(outPath); !os.IsNotExist(statErr) {
		t.Fatalf("output must not be written when a function is rejected")
	}
}

func TestCLI_VersionReportsFileFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeModule(t, dir)

	out, errOut, err := execute(t, "version", "--color", "off", "--format", "json", path)
	if err != nil {
		t.Fatalf("version: %v\n%s", err, errOut)
	}
	var rep versionReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if rep.Tool != "cflow" || rep.IRFormat != irfile.FormatVersion || rep.IRReads != irfile.SupportedVersions {
		t.Fatalf("report = %+v", rep)
	}
	if rep.CacheSchema != driver.CacheSchema || rep.Build != nil {
		t.Fatalf("report = %+v", rep)
	}
	if rep.File == nil || !rep.File.Readable || rep.File.Version != irfile.FormatVersion || rep.File.Producer != "cflow" {
		t.Fatalf("file report = %+v", rep.File)
	}
}

func TestParseSwitchMode(t *testing.T) {
	tests := []struct {
		in   string
		want switchMode
	}{
		{"", modeAuto},
		{"auto", modeAuto},
		{" ON ", modeOn},
		{"off", modeOff},
	}
	for _, tt := range tests {
		got, err := parseSwitchMode("ui", tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseSwitchMode(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := parseSwitchMode("color", "always"); err == nil || !strings.Contains(err.Error(), "--color") {
		t.Fatalf("expected invalid --color error, got %v", err)
	}
	if !modeOn.enabledFor(os.Stdout) || modeOff.enabledFor(os.Stdout) {
		t.Fatalf("on/off must not depend on the terminal")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[lower]
jobs = 2
equals_method = "LooseEquals"

[cache]
dir = "cache"

[trace]
level = "detail"
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Lower.Jobs != 2 || cfg.Lower.EqualsMethod != "LooseEquals" || cfg.Lower.MaxDepth != 0 {
		t.Fatalf("lower section = %+v", cfg.Lower)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Dir != filepath.Join(dir, "cache") {
		t.Fatalf("cache section = %+v", cfg.Cache)
	}
	if cfg.Trace.Level != "detail" {
		t.Fatalf("trace section = %+v", cfg.Trace)
	}

	sub := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	found, ok, err := findConfig(sub)
	if err != nil || !ok || found != path {
		t.Fatalf("findConfig = %q, %v, %v", found, ok, err)
	}
}

func TestLoadConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "[lower]\nspeed = 3\n", "unknown keys: lower.speed"},
		{"zero depth", "[lower]\nmax_depth = 0\n", "max_depth must be positive"},
		{"bad level", "[trace]\nlevel = \"loud\"\n", "[trace].level"},
		{"syntax", "[lower\n", "failed to parse TOML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.body)
			_, err := loadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("loadConfig error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want vm.Value
	}{
		{"undefined", vm.Undefined()},
		{"null", vm.Null()},
		{"true", vm.MakeBool(true)},
		{"42", vm.MakeInt(42)},
		{"2.5", vm.MakeFloat(2.5)},
		{`"7"`, vm.MakeString("7")},
		{"hello", vm.MakeString("hello")},
	}
	for _, tt := range tests {
		if got := parseValue(tt.in); !vm.StrictEquals(got, tt.want) || got.Kind != tt.want.Kind {
			t.Errorf("parseValue(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
