package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "client.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	p := writeConfig(t, "url: ws://localhost:38281\nslot: Ashen\n")
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.TickHz != DefaultTickHz || c.SaveDB != DefaultSaveDB || c.JournalDir != DefaultJournalDir {
		t.Fatalf("defaults not applied: %+v", c)
	}
	if c.Game != "ds3" {
		t.Fatalf("game = %q, want ds3", c.Game)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	p := writeConfig(t, "url: ws://a\nslot: one\ngame: Sekiro\n")
	t.Setenv("SOULSLINK_SLOT", "two")
	t.Setenv("SOULSLINK_DEBUG", "true")
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Slot != "two" || !c.Debug {
		t.Fatalf("env overrides not applied: %+v", c)
	}
	if c.URL != "ws://a" {
		t.Fatalf("unset env var must not override url, got %q", c.URL)
	}
	if c.Game != "sekiro" {
		t.Fatalf("game = %q, want sekiro", c.Game)
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	c, _ := Parse([]byte("slot: x\n"))
	if err := c.Validate(); err == nil {
		t.Fatalf("expected missing url error")
	}
	c, _ = Parse([]byte("url: ws://a\n"))
	if err := c.Validate(); err == nil {
		t.Fatalf("expected missing slot error")
	}
	c, _ = Parse([]byte("url: ws://a\nslot: x\ngame: elden\n"))
	if err := c.Validate(); err == nil {
		t.Fatalf("expected unknown game error")
	}
}

func TestSetURLPersists(t *testing.T) {
	p := writeConfig(t, "url: ws://old\nslot: Ashen\nseed: S1\n")
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := c.SetURL("ws://new:1234"); err != nil {
		t.Fatalf("set url: %v", err)
	}
	again, err := Load(p)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.URL != "ws://new:1234" || again.Seed != "S1" {
		t.Fatalf("unexpected reloaded config %+v", again)
	}
}

func TestSetURLKeepsEnvOutOfFile(t *testing.T) {
	p := writeConfig(t, "url: ws://old\nslot: Ashen\n")
	t.Setenv("SOULSLINK_PASSWORD", "hunter2")
	t.Setenv("SOULSLINK_SLOT", "FromEnv")
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Password != "hunter2" {
		t.Fatalf("env password not applied")
	}
	if err := c.SetURL("ws://new:1"); err != nil {
		t.Fatalf("set url: %v", err)
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	body := string(raw)
	if strings.Contains(body, "hunter2") || strings.Contains(body, "password") {
		t.Fatalf("env password leaked to disk:\n%s", body)
	}
	if strings.Contains(body, "FromEnv") || !strings.Contains(body, "slot: Ashen") {
		t.Fatalf("file slot should be kept:\n%s", body)
	}
	if strings.Contains(body, "tick_hz") || strings.Contains(body, "save_db") {
		t.Fatalf("defaults should not be written:\n%s", body)
	}
	if !strings.Contains(body, "url: ws://new:1") {
		t.Fatalf("url not written:\n%s", body)
	}
}

func TestSetURLFailureKeepsOldURL(t *testing.T) {
	p := writeConfig(t, "url: ws://old\nslot: Ashen\n")
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	// Replace the config directory with a plain file so the write fails.
	dir := filepath.Dir(p)
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := os.WriteFile(dir, []byte("x"), 0o644); err != nil {
		t.Fatalf("block dir: %v", err)
	}
	if err := c.SetURL("ws://new:1"); err == nil {
		t.Fatalf("expected write failure")
	}
	if c.URL != "ws://old" {
		t.Fatalf("url changed despite failed save: %q", c.URL)
	}
}
