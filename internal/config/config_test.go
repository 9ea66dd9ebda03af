package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	rsatext "github.com/BanPerm/RSA-test-implementation"
)

// isolate points every config search location at an empty temp tree.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return tmp
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	got, err := Load(&cobra.Command{}, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != Default() {
		t.Errorf("got %+v, want %+v", got, Default())
	}
	if got.Bits != 1024 || got.Rounds != 20 || got.KeyDir != "." {
		t.Errorf("unexpected defaults: %+v", got)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	tmp := isolate(t)
	file := filepath.Join(tmp, "custom.yaml")
	body := "bits: 512\nrounds: 30\nkey-dir: /tmp/keys\nstore: keys.db\n"
	if err := os.WriteFile(file, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := Load(&cobra.Command{}, file)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Bits != 512 || got.Rounds != 30 || got.KeyDir != "/tmp/keys" || got.Store != "keys.db" {
		t.Errorf("got %+v", got)
	}
	if got.LogLevel != "warn" {
		t.Errorf("unset key should keep its default, got %q", got.LogLevel)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	tmp := isolate(t)
	if _, err := Load(&cobra.Command{}, filepath.Join(tmp, "nope.yaml")); err == nil {
		t.Error("missing explicit config file should fail")
	}
}

func TestLoad_SearchesWorkingDirectory(t *testing.T) {
	tmp := isolate(t)
	if err := os.WriteFile(filepath.Join(tmp, FileName+".yaml"), []byte("bits: 256\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := Load(&cobra.Command{}, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Bits != 256 {
		t.Errorf("bits = %d, want 256", got.Bits)
	}
}

func TestLoad_Precedence(t *testing.T) {
	tmp := isolate(t)
	file := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(file, []byte("bits: 512\nrounds: 30\nkey-dir: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RSATEXT_ROUNDS", "40")
	t.Setenv("RSATEXT_KEY_DIR", "from-env")

	cmd := &cobra.Command{}
	cmd.Flags().String("key-dir", "", "")
	if err := cmd.Flags().Set("key-dir", "from-flag"); err != nil {
		t.Fatal(err)
	}

	got, err := Load(cmd, file)
	if err != nil {
		t.Fatal(err)
	}
	if got.Bits != 512 {
		t.Errorf("bits = %d, want 512 from file", got.Bits)
	}
	if got.Rounds != 40 {
		t.Errorf("rounds = %d, want 40 from env", got.Rounds)
	}
	if got.KeyDir != "from-flag" {
		t.Errorf("key-dir = %q, want from-flag", got.KeyDir)
	}
}

func TestParams(t *testing.T) {
	c := Default()
	c.Bits = 64
	c.Rounds = 7
	c.MaxAttempts = 5
	p, err := c.Params()
	if err != nil {
		t.Fatal(err)
	}
	if p.PrimeBits != 64 || p.MillerRabinRounds != 7 || p.MaxAttempts != 5 {
		t.Errorf("got %+v", p)
	}
	if p.PublicExponent != rsatext.DefaultPublicExponent {
		t.Errorf("e = %d", p.PublicExponent)
	}

	c.Bits = 1
	if _, err := c.Params(); !errors.Is(err, rsatext.ErrInvalidArgument) {
		t.Errorf("bits=1: error = %v", err)
	}
	c.Bits = 64
	c.Rounds = 0
	if _, err := c.Params(); !errors.Is(err, rsatext.ErrInvalidArgument) {
		t.Errorf("rounds=0: error = %v", err)
	}
}

func TestWriteConfigFile(t *testing.T) {
	tmp := isolate(t)

	path, err := WriteConfigFile(Default(), "", false)
	if err != nil {
		t.Fatalf("WriteConfigFile failed: %v", err)
	}
	want, err := GetConfigPath(false)
	if err != nil {
		t.Fatal(err)
	}
	if path != want {
		t.Errorf("wrote %s, want %s", path, want)
	}
	if !strings.HasPrefix(path, tmp) {
		t.Errorf("config written outside the isolated home: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"bits: 1024", "rounds: 20", "key-dir:"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("written config lacks %q:\n%s", key, data)
		}
	}

	if _, err := WriteConfigFile(Default(), "", false); err == nil {
		t.Error("second write without overwrite should fail")
	}
	if _, err := WriteConfigFile(Default(), "", true); err != nil {
		t.Errorf("overwrite failed: %v", err)
	}

	// What was written loads back to the same settings.
	got, err := Load(&cobra.Command{}, path)
	if err != nil {
		t.Fatal(err)
	}
	if got != Default() {
		t.Errorf("round trip gave %+v", got)
	}
}
