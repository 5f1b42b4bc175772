package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
library_id: "12345"
library_type: user
api_key: secret-key
unread_folder: Papers
read_folder: Finished
use_webdav: true
webdav_hostname: https://dav.example.com/zotero
webdav_user: alice
webdav_pwd: hunter2
sync_schedule: "0 * * * *"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Zotero.LibraryID != "12345" {
		t.Errorf("LibraryID = %q", cfg.Zotero.LibraryID)
	}
	if cfg.Zotero.APIKey != "secret-key" {
		t.Errorf("APIKey = %q", cfg.Zotero.APIKey)
	}
	if cfg.Device.UnreadFolder != "Papers" || cfg.Device.ReadFolder != "Finished" {
		t.Errorf("folders = %q / %q", cfg.Device.UnreadFolder, cfg.Device.ReadFolder)
	}
	if !cfg.WebDAV.Enabled {
		t.Error("expected WebDAV to be enabled")
	}
	if cfg.WebDAV.Hostname != "https://dav.example.com/zotero" {
		t.Errorf("Hostname = %q", cfg.WebDAV.Hostname)
	}
	if cfg.Sync.Schedule != "0 * * * *" {
		t.Errorf("Schedule = %q", cfg.Sync.Schedule)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() returned error: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfigFile(t, `
library_id: "1"
api_key: k
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Device.UnreadFolder != "Unread" {
		t.Errorf("default UnreadFolder = %q", cfg.Device.UnreadFolder)
	}
	if cfg.Device.ReadFolder != "Read" {
		t.Errorf("default ReadFolder = %q", cfg.Device.ReadFolder)
	}
	if cfg.Zotero.LibraryType != "user" {
		t.Errorf("default LibraryType = %q", cfg.Zotero.LibraryType)
	}
	if cfg.WebDAV.Enabled {
		t.Error("WebDAV should default to disabled")
	}
	if cfg.Device.RmapiBinary != "rmapi" {
		t.Errorf("default RmapiBinary = %q", cfg.Device.RmapiBinary)
	}
	if cfg.Global.RendererCommand != DefaultRendererCommand {
		t.Errorf("default RendererCommand = %q", cfg.Global.RendererCommand)
	}
	if cfg.Journal.Path != DefaultJournalPath {
		t.Errorf("default Journal.Path = %q", cfg.Journal.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing library id", func(c *Config) { c.Zotero.LibraryID = "" }, "library_id"},
		{"missing api key", func(c *Config) { c.Zotero.APIKey = "" }, "api_key"},
		{"bad library type", func(c *Config) { c.Zotero.LibraryType = "shared" }, "library_type"},
		{"webdav without host", func(c *Config) { c.WebDAV.Enabled = true; c.WebDAV.Hostname = "" }, "webdav_hostname"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Zotero: Zotero{LibraryID: "1", LibraryType: "user", APIKey: "k"},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateInteractiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	answers := strings.Join([]string{
		"Papers",      // unread folder
		"Finished",    // read folder
		"98765",       // library id
		"group",       // library type
		"api-token",   // api key
		"yes",         // use webdav
		"https://dav.example.com/zotero",
		"bob",
		"app-password",
	}, "\n") + "\n"

	var prompts strings.Builder
	cfg, err := CreateInteractive(path, strings.NewReader(answers), &prompts)
	if err != nil {
		t.Fatalf("CreateInteractive() returned error: %v", err)
	}

	if cfg.Zotero.LibraryID != "98765" || cfg.Zotero.LibraryType != "group" {
		t.Errorf("parsed zotero settings = %+v", cfg.Zotero)
	}
	if !cfg.WebDAV.Enabled || cfg.WebDAV.User != "bob" {
		t.Errorf("parsed webdav settings = %+v", cfg.WebDAV)
	}
	if !strings.Contains(prompts.String(), "Zotero library ID") {
		t.Error("expected the library id prompt to be written")
	}

	if !Exists(path) {
		t.Fatal("expected config file to be written")
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of the written config returned error: %v", err)
	}
	if reloaded.Device.UnreadFolder != "Papers" {
		t.Errorf("reloaded UnreadFolder = %q", reloaded.Device.UnreadFolder)
	}
	if reloaded.WebDAV.Password != "app-password" {
		t.Errorf("reloaded webdav password = %q", reloaded.WebDAV.Password)
	}
}

func TestCreateInteractiveWithoutWebDAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	answers := "Unread\nRead\n111\nuser\nkey\nno\n"

	cfg, err := CreateInteractive(path, strings.NewReader(answers), &strings.Builder{})
	if err != nil {
		t.Fatalf("CreateInteractive() returned error: %v", err)
	}
	if cfg.WebDAV.Enabled {
		t.Error("expected WebDAV to stay disabled")
	}
}
