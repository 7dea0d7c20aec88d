package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	color.NoColor = true
}

func newRoot() *cobra.Command {
	root := &cobra.Command{Use: "puzzbot", SilenceUsage: true, SilenceErrors: true}
	AddConfigFlag(root)
	root.AddCommand(ConfigCmd(), DBCmd(), TablesCmd(), PuzzlesCmd(), VersionCmd())
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// writeConfig writes a valid config pointing at a sqlite store in dir.
func writeConfig(t *testing.T, dir string) (cfgPath, dbPath string) {
	t.Helper()
	dbPath = filepath.Join(dir, "hunt.db")
	cfgPath = filepath.Join(dir, "puzzbot.yaml")
	body := `discord:
  guild_id: "G1"
  active_root_id: "A1"
  solved_root_id: "S1"
store:
  driver: sqlite
  sqlite_path: ` + dbPath + "\n"
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return cfgPath, dbPath
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "puzzbot.yaml")

	out, err := run(t, "config", "init", "--config", path)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(out, "Wrote "+path) {
		t.Errorf("unexpected output: %s", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "grace_period: 30s") {
		t.Errorf("default config missing grace_period:\n%s", data)
	}

	if _, err := run(t, "config", "init", "--config", path); err == nil {
		t.Error("expected an error when the config already exists")
	}
	if _, err := run(t, "config", "init", "--config", path, "--force"); err != nil {
		t.Errorf("--force should overwrite: %v", err)
	}
}

func TestConfigCheck(t *testing.T) {
	dir := t.TempDir()
	cfgPath, _ := writeConfig(t, dir)

	out, err := run(t, "config", "check", "--config", cfgPath)
	if err != nil {
		t.Fatalf("config check failed: %v", err)
	}
	if !strings.Contains(out, "store: sqlite, capacity: 50") {
		t.Errorf("unexpected output: %s", out)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("capacity:\n  limit: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = run(t, "config", "check", "--config", bad)
	if err == nil || !strings.Contains(err.Error(), "discord.guild_id is required") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSeededTablesAndPuzzles(t *testing.T) {
	cfgPath, dbPath := writeConfig(t, t.TempDir())

	if _, err := run(t, "db", "init", "--path", dbPath); err != nil {
		t.Fatalf("db init failed: %v", err)
	}
	if _, err := run(t, "db", "seed", "--path", dbPath); err != nil {
		t.Fatalf("db seed failed: %v", err)
	}

	out, err := run(t, "tables", "--config", cfgPath)
	if err != nil {
		t.Fatalf("tables failed: %v", err)
	}
	for _, want := range []string{"Table 1 (?)", "acrostic", "Table 2 (?)", "still life", "Not being worked anywhere:", "card catalog"} {
		if !strings.Contains(out, want) {
			t.Errorf("tables output missing %q:\n%s", want, out)
		}
	}

	out, err = run(t, "puzzles", "--config", cfgPath, "--round", "Museum")
	if err != nil {
		t.Fatalf("puzzles failed: %v", err)
	}
	if !strings.Contains(out, "restoration") || strings.Contains(out, "acrostic") {
		t.Errorf("round filter not applied:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, "puzzbot dev") {
		t.Errorf("unexpected version: %s", out)
	}
}
