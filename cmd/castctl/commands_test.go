package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testCommand(t *testing.T, installDir string) (*command, *strings.Builder) {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "castctl.toml")
	body := fmt.Sprintf("install_dir = %q\nworker = \"echo\"\n\n[history]\npath = %q\n",
		installDir, filepath.Join(installDir, "history.db"))
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	c := newCommand(&GlobalFlags{ConfigPath: cfgPath})
	c.stdin = strings.NewReader("")
	c.stdout = &out
	c.stderr = &out
	return c, &out
}

func writeManifest(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStatusStoppedInstall(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"version":"2.4.0"}`)
	c, out := testCommand(t, dir)

	if err := c.Status(StatusFlags{Detailed: true}); err != nil {
		t.Fatalf("status must not fail for a stopped worker: %v", err)
	}
	if !strings.Contains(out.String(), "stopped") {
		t.Fatalf("expected stopped report: %q", out.String())
	}
	if !strings.Contains(out.String(), "2.4.0") {
		t.Fatalf("expected manifest version: %q", out.String())
	}
	if !strings.Contains(out.String(), "pidfile:") {
		t.Fatalf("detailed output must name the probe: %q", out.String())
	}
}

func TestStatusWithoutManifest(t *testing.T) {
	c, out := testCommand(t, t.TempDir())
	if err := c.Status(StatusFlags{}); err != nil {
		t.Fatalf("missing manifest must not break status: %v", err)
	}
	if strings.Contains(out.String(), "version:") {
		t.Fatalf("no version line expected: %q", out.String())
	}
}

func TestVersionRequiresManifest(t *testing.T) {
	c, _ := testCommand(t, t.TempDir())
	if err := c.Version(); err == nil {
		t.Fatal("expected error without a manifest")
	}
}

func TestVersionPrintsManifestVersion(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"version":"3.0.1"}`)
	c, out := testCommand(t, dir)
	if err := c.Version(); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "3.0.1" {
		t.Fatalf("unexpected version output: %q", out.String())
	}
}

func TestExtensionsListEmptyInstall(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"version":"1.0.0"}`)
	c, out := testCommand(t, dir)
	if err := c.ExtensionsList(context.Background(), ExtensionsFlags{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "no extensions installed") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestExtensionsListClassifies(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"version":"1.0.0","dependencies":{"castd-plugin-clips":"^1.0.0"}}`)
	modDir := filepath.Join(dir, "node_modules", "castd-plugin-other")
	if err := os.MkdirAll(modDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, modDir, `{"version":"0.3.0"}`)
	bundledDir := filepath.Join(dir, "node_modules", "castd-plugin-clips")
	if err := os.MkdirAll(bundledDir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, bundledDir, `{"version":"1.2.0"}`)

	c, out := testCommand(t, dir)
	if err := c.ExtensionsList(context.Background(), ExtensionsFlags{}); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	if !strings.Contains(got, "castd-plugin-clips") || !strings.Contains(got, "castd-plugin-other") {
		t.Fatalf("inventory incomplete: %q", got)
	}
	if !strings.Contains(got, "bundled") || !strings.Contains(got, "extraneous") {
		t.Fatalf("classification missing: %q", got)
	}
	if !strings.Contains(got, "0.3.0") {
		t.Fatalf("installed version not rendered: %q", got)
	}
}

func TestUpgradeHistoryEmpty(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"version":"1.0.0"}`)
	c, out := testCommand(t, dir)
	if err := c.Upgrade(context.Background(), UpgradeFlags{History: true}, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "no upgrade runs recorded") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestUpgradeRunsWhenHistoryUnavailable(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `{"version":"1.0.0"}`)
	cfgPath := filepath.Join(t.TempDir(), "castctl.toml")
	body := fmt.Sprintf("install_dir = %q\nworker = \"echo\"\n\n[history]\ntype = \"vault\"\n", dir)
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	c := newCommand(&GlobalFlags{ConfigPath: cfgPath})
	c.stdin = strings.NewReader("")
	c.stdout = &out
	c.stderr = &out

	// The migration fast path must run even though the audit store cannot
	// open; the broken store is only a warning.
	if err := c.Upgrade(context.Background(), UpgradeFlags{}, []string{"--dry-run"}); err != nil {
		t.Fatalf("upgrade must not be blocked by the audit store: %v", err)
	}
	if !strings.Contains(out.String(), "--migrate --dry-run") {
		t.Fatalf("migration did not run: %q", out.String())
	}

	// Reading history back needs the store, so that path still fails.
	if err := c.Upgrade(context.Background(), UpgradeFlags{History: true}, nil); err == nil {
		t.Fatal("expected error reading history from a broken store")
	}
}

func TestStopWhenNotRunning(t *testing.T) {
	c, out := testCommand(t, t.TempDir())
	if err := c.Stop(); err != nil {
		t.Fatalf("stopping a stopped worker must succeed: %v", err)
	}
	if !strings.Contains(out.String(), "not running") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestRestartWhenNotRunning(t *testing.T) {
	c, out := testCommand(t, t.TempDir())
	if err := c.Restart(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "not running") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestBuildPassesArgsThrough(t *testing.T) {
	c, out := testCommand(t, t.TempDir())
	if err := c.Build(context.Background(), []string{"--force"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "--build --force") {
		t.Fatalf("worker args not passed through: %q", out.String())
	}
}
