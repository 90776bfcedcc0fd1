package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"archimport/internal/core/config"
	domainerrors "archimport/internal/core/errors"
	"archimport/internal/engine/classfile/classfiletest"
	"archimport/internal/engine/location"

	"github.com/spf13/cobra"
)

type workspace struct {
	dir     string
	classes string
	config  string
}

func newWorkspace(t *testing.T, configBody string) workspace {
	t.Helper()
	t.Setenv("JAVA_HOME", "")
	dir := t.TempDir()
	ws := workspace{
		dir:     dir,
		classes: filepath.Join(dir, "target", "classes"),
		config:  filepath.Join(dir, config.DefaultFile),
	}
	writeClassFile(t, ws.classes, "com.acme.Service", classfiletest.New("com.acme.Service").Implements("com.acme.Port").Source("Service.java"))
	writeClassFile(t, ws.classes, "com.acme.Port", classfiletest.New("com.acme.Port").Interface())
	if err := os.WriteFile(ws.config, []byte(configBody), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return ws
}

func writeClassFile(t *testing.T, root, name string, b *classfiletest.Builder) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(location.ClassNameToResource(name)))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, b.Bytes(), 0o644); err != nil {
		t.Fatalf("write class: %v", err)
	}
}

func writeJarFile(t *testing.T, path, name string, b *classfiletest.Builder) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create jar: %v", err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	w, err := zw.Create(location.ClassNameToResource(name))
	if err != nil {
		t.Fatalf("jar entry: %v", err)
	}
	if _, err := w.Write(b.Bytes()); err != nil {
		t.Fatalf("write entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close jar: %v", err)
	}
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

const snapshotConfig = `
[snapshot]
enabled = true
path = "state/archimport.db"
`

func TestRun_ImportDirectoryWithSnapshotAndReport(t *testing.T) {
	ws := newWorkspace(t, snapshotConfig)
	report := filepath.Join(ws.dir, "out", "report.json")

	code, stdout, stderr := runCLI(t, "--config", ws.config, "--report", report, "import", ws.classes)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "import paths") || !strings.Contains(stdout, "2 classes, 1 stubs") {
		t.Fatalf("unexpected summary:\n%s", stdout)
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var got runReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if got.Mode != "paths" || len(got.Classes) != 2 || got.Classes[0] != "com.acme.Port" {
		t.Fatalf("unexpected report: %+v", got)
	}
	if len(got.Stubs) != 1 || got.Stubs[0] != "java.lang.Object" {
		t.Fatalf("unexpected stubs: %v", got.Stubs)
	}

	if _, err := os.Stat(filepath.Join(ws.dir, "state", "archimport.db")); err != nil {
		t.Fatalf("expected snapshot database next to config: %v", err)
	}

	code, stdout, stderr = runCLI(t, "--config", ws.config, "runs")
	if code != 0 {
		t.Fatalf("runs: exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, got.RunID) || !strings.Contains(stdout, "classes=2") {
		t.Fatalf("expected stored run in listing:\n%s", stdout)
	}
}

func TestRun_RunsWithoutStoredRuns(t *testing.T) {
	ws := newWorkspace(t, "")
	code, stdout, stderr := runCLI(t, "--config", ws.config, "runs", "--limit", "5")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "no stored runs") {
		t.Fatalf("unexpected output: %s", stdout)
	}
}

func TestRun_ExitCodes(t *testing.T) {
	ws := newWorkspace(t, "")

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "missing path", args: []string{"import", filepath.Join(ws.dir, "nope")}, want: 1},
		{name: "no arguments", args: []string{"import"}, want: 2},
		{name: "invalid flag override", args: []string{"--workers=-1", "import", ws.classes}, want: 2},
		{name: "directory passed to jar", args: []string{"jar", ws.classes}, want: 1},
		{name: "unknown class", args: []string{"classes", "com.acme.Missing"}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", ws.config}, tt.args...)
			code, _, stderr := runCLI(t, args...)
			if code != tt.want {
				t.Fatalf("expected exit %d, got %d: %s", tt.want, code, stderr)
			}
			if !strings.Contains(stderr, "error: ") {
				t.Fatalf("expected error message on stderr, got %q", stderr)
			}
		})
	}
}

func TestRun_ClasspathPackagesAndClasses(t *testing.T) {
	ws := newWorkspace(t, "")
	t.Setenv("CLASSPATH", ws.classes)

	code, stdout, stderr := runCLI(t, "--config", ws.config, "classpath")
	if code != 0 {
		t.Fatalf("classpath: exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "import classpath") || !strings.Contains(stdout, "2 classes") {
		t.Fatalf("unexpected classpath output:\n%s", stdout)
	}

	code, stdout, stderr = runCLI(t, "--config", ws.config, "packages", "com.acme")
	if code != 0 {
		t.Fatalf("packages: exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "  acme (2)") {
		t.Fatalf("expected package tree, got:\n%s", stdout)
	}

	code, stdout, stderr = runCLI(t, "--config", ws.config, "packages", "--of", "com.acme.Port")
	if code != 0 || !strings.Contains(stdout, "import packages") {
		t.Fatalf("packages --of: exit %d: %s\n%s", code, stderr, stdout)
	}

	code, stdout, stderr = runCLI(t, "--config", ws.config, "classes", "com.acme.Service")
	if code != 0 {
		t.Fatalf("classes: exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "com.acme.Service\n") || !strings.Contains(stdout, "com.acme.Port (stub)") {
		t.Fatalf("unexpected classes output:\n%s", stdout)
	}
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	if code != 0 || strings.TrimSpace(stdout) != "archimport v"+versionString {
		t.Fatalf("unexpected version output %q (exit %d)", stdout, code)
	}
}

func findCommand(t *testing.T, root *cobra.Command, name string) *cobra.Command {
	t.Helper()
	for _, c := range root.Commands() {
		if c.Name() == name {
			return c
		}
	}
	t.Fatalf("command %q not registered", name)
	return nil
}

func TestApplyFlagOverrides(t *testing.T) {
	root := newRootCommand(&bytes.Buffer{}, &bytes.Buffer{})
	cmd := findCommand(t, root, "import")
	if err := cmd.ParseFlags([]string{"--workers", "3", "--timeout", "5s", "--snapshot", "--exclude-tests"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Neo4j.Enabled = true
	opts := &cliOptions{workers: 3, timeout: 5 * time.Second, snapshot: true, excludeTests: true}
	applyFlagOverrides(cmd, opts, cfg)

	if cfg.Import.Workers != 3 || cfg.Import.Timeout != 5*time.Second {
		t.Fatalf("unexpected import overrides: %+v", cfg.Import)
	}
	if !cfg.Snapshot.Enabled || !cfg.Import.ExcludeTests {
		t.Fatalf("expected boolean overrides applied: %+v", cfg)
	}
	if !cfg.Neo4j.Enabled {
		t.Fatal("unchanged flags must not override configuration")
	}
}

func TestClasspathOptions(t *testing.T) {
	cfg := config.DefaultConfig()

	parse := func(t *testing.T, args ...string) (*cobra.Command, *cliOptions) {
		t.Helper()
		opts := &cliOptions{}
		cmd := newClasspathCommand(opts)
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatalf("parse flags: %v", err)
		}
		return cmd, opts
	}

	cmd, opts := parse(t)
	got, override, err := classpathOptions(cmd, opts, cfg)
	if err != nil || override || !got.IsEmpty() {
		t.Fatalf("expected ambient defaults without flags, got %d options, override=%v, %v", got.Len(), override, err)
	}

	cmd, opts = parse(t, "--only-module", "java.base")
	got, override, err = classpathOptions(cmd, opts, cfg)
	if err != nil || !override || got.Len() != 2 {
		t.Fatalf("expected jar exclusion plus module filter, got %d options, %v", got.Len(), err)
	}

	cmd, opts = parse(t, "--include-archives", "--include-runtime")
	got, override, err = classpathOptions(cmd, opts, cfg)
	if err != nil || !override || !got.IsEmpty() {
		t.Fatalf("expected an override without filters, got %d options, override=%v, %v", got.Len(), override, err)
	}

	cmd, opts = parse(t, "--include", "[")
	if _, _, err = classpathOptions(cmd, opts, cfg); !domainerrors.IsCode(err, domainerrors.CodeValidationError) {
		t.Fatalf("expected validation error for bad glob, got %v", err)
	}
}

func TestRun_ClasspathIncludeFlagsAddArchives(t *testing.T) {
	ws := newWorkspace(t, "")
	jar := filepath.Join(ws.dir, "lib", "dep.jar")
	writeJarFile(t, jar, "org.dep.Util", classfiletest.New("org.dep.Util"))
	t.Setenv("CLASSPATH", ws.classes+string(os.PathListSeparator)+jar)

	for _, args := range [][]string{
		{"--include-archives"},
		{"--include-archives", "--include-runtime"},
	} {
		cli := append([]string{"--config", ws.config, "classpath"}, args...)
		code, stdout, stderr := runCLI(t, cli...)
		if code != 0 {
			t.Fatalf("%v: exit %d: %s", args, code, stderr)
		}
		if !strings.Contains(stdout, "3 classes") || strings.Contains(stdout, "excluded 1") {
			t.Fatalf("%v: expected the jar class to be imported:\n%s", args, stdout)
		}
	}

	code, stdout, stderr := runCLI(t, "--config", ws.config, "classpath")
	if code != 0 {
		t.Fatalf("classpath: exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "2 classes") {
		t.Fatalf("expected the ambient default to skip the jar:\n%s", stdout)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New("plain"), 1},
		{domainerrors.New(domainerrors.CodeValidationError, "bad"), 2},
		{domainerrors.New(domainerrors.CodeTimeout, "slow"), 3},
		{domainerrors.New(domainerrors.CodeNotFound, "gone"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestObservabilityServer(t *testing.T) {
	var status atomic.Pointer[HealthStatus]
	status.Store(&HealthStatus{Status: "up", Version: versionString, LastRun: "run-1"})
	srv := NewObservabilityServer("127.0.0.1:0", func(context.Context) HealthStatus { return *status.Load() })
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })

	base := "http://" + srv.Addr()
	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	var got HealthStatus
	err = json.NewDecoder(resp.Body).Decode(&got)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.StatusCode != http.StatusOK || got.LastRun != "run-1" {
		t.Fatalf("unexpected health response %d %+v", resp.StatusCode, got)
	}

	status.Store(&HealthStatus{Status: "degraded", Error: "locked"})
	resp, err = http.Get(base + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for degraded health, got %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected metrics endpoint, got %d", resp.StatusCode)
	}
}

func TestRun_Diagram(t *testing.T) {
	ws := newWorkspace(t, "")

	code, stdout, stderr := runCLI(t, "--config", ws.config, "diagram", "--format", "dot", ws.classes)
	if code != 0 {
		t.Fatalf("diagram: exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "digraph dependencies") || !strings.Contains(stdout, `"com.acme" -> "java.lang"`) {
		t.Fatalf("unexpected DOT output:\n%s", stdout)
	}

	out := filepath.Join(ws.dir, "out", "deps.tsv")
	code, _, stderr = runCLI(t, "--config", ws.config, "diagram", "--format", "tsv", "-o", out, ws.classes)
	if code != 0 {
		t.Fatalf("diagram tsv: exit %d: %s", code, stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read tsv: %v", err)
	}
	if !strings.Contains(string(data), "com.acme.Service\tcom.acme.Port\timplements\tfalse") {
		t.Fatalf("unexpected TSV:\n%s", data)
	}

	if code, _, _ := runCLI(t, "--config", ws.config, "diagram", "--format", "svg", ws.classes); code != 2 {
		t.Fatalf("expected exit 2 for unknown format, got %d", code)
	}
	if code, _, _ := runCLI(t, "--config", ws.config, "diagram", "--format", "dot", "--inject", "README.md", ws.classes); code != 2 {
		t.Fatalf("expected exit 2 for --inject without mermaid, got %d", code)
	}

	readme := filepath.Join(ws.dir, "README.md")
	if err := os.WriteFile(readme, []byte("# Acme\n<!-- archimport:deps:start -->\n<!-- archimport:deps:end -->\n"), 0o644); err != nil {
		t.Fatalf("write readme: %v", err)
	}
	code, _, stderr = runCLI(t, "--config", ws.config, "diagram", "--inject", readme, "--marker", "deps", ws.classes)
	if code != 0 {
		t.Fatalf("diagram inject: exit %d: %s", code, stderr)
	}
	data, err = os.ReadFile(readme)
	if err != nil {
		t.Fatalf("read readme: %v", err)
	}
	if !strings.Contains(string(data), "_1 packages, 1 external, 1 dependencies, 0 cycles_") || !strings.Contains(string(data), "```mermaid\nflowchart LR") {
		t.Fatalf("unexpected injected section:\n%s", data)
	}
	if code, _, _ := runCLI(t, "--config", ws.config, "diagram", "--inject", readme, "--marker", "missing", ws.classes); code != 2 {
		t.Fatalf("expected exit 2 for an unknown marker, got %d", code)
	}
}
