package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type (
	Config struct {
		Device
		Zotero
		WebDAV
		Sync
		Journal
		Global
	}

	// Device holds the reMarkable-side settings.
	Device struct {
		UnreadFolder string // device folder new documents are pushed into
		ReadFolder   string // device folder finished documents are pulled from
		RmapiBinary  string
	}

	// Zotero holds the library connection parameters.
	Zotero struct {
		LibraryID   string
		LibraryType string // "user" or "group"
		APIKey      string
	}

	// WebDAV holds the optional remote file store parameters. When Enabled is
	// false attachment bytes go through the Zotero API directly.
	WebDAV struct {
		Enabled  bool
		Hostname string
		User     string
		Password string
	}

	Sync struct {
		Schedule string // cron format, used by schedule mode
	}

	Journal struct {
		Path string
	}

	Global struct {
		WorkDir         string // base directory for per-item temp dirs
		RendererCommand string
	}
)

// Load reads the config file at path and applies environment overrides.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return fromViper(v), nil
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("unread_folder", "Unread")
	v.SetDefault("read_folder", "Read")
	v.SetDefault("library_type", "user")
	v.SetDefault("use_webdav", false)
	v.SetDefault("sync_schedule", "")
	v.SetDefault("journal_path", DefaultJournalPath)
	v.SetDefault("work_dir", "")
	v.SetDefault("rmapi_binary", "rmapi")
	v.SetDefault("renderer_command", DefaultRendererCommand)
	return v
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Device: Device{
			UnreadFolder: v.GetString("UNREAD_FOLDER"),
			ReadFolder:   v.GetString("READ_FOLDER"),
			RmapiBinary:  v.GetString("RMAPI_BINARY"),
		},
		Zotero: Zotero{
			LibraryID:   v.GetString("LIBRARY_ID"),
			LibraryType: v.GetString("LIBRARY_TYPE"),
			APIKey:      v.GetString("API_KEY"),
		},
		WebDAV: WebDAV{
			Enabled:  v.GetBool("USE_WEBDAV"),
			Hostname: v.GetString("WEBDAV_HOSTNAME"),
			User:     v.GetString("WEBDAV_USER"),
			Password: v.GetString("WEBDAV_PWD"),
		},
		Sync: Sync{
			Schedule: v.GetString("SYNC_SCHEDULE"),
		},
		Journal: Journal{
			Path: v.GetString("JOURNAL_PATH"),
		},
		Global: Global{
			WorkDir:         v.GetString("WORK_DIR"),
			RendererCommand: v.GetString("RENDERER_COMMAND"),
		},
	}
}

// Validate checks the settings that every mode needs.
func (c *Config) Validate() error {
	if c.Zotero.LibraryID == "" {
		return fmt.Errorf("library_id is not configured")
	}
	if c.Zotero.APIKey == "" {
		return fmt.Errorf("api_key is not configured")
	}
	if c.Zotero.LibraryType != "user" && c.Zotero.LibraryType != "group" {
		return fmt.Errorf("library_type must be 'user' or 'group', got %q", c.Zotero.LibraryType)
	}
	if c.WebDAV.Enabled && c.WebDAV.Hostname == "" {
		return fmt.Errorf("use_webdav is set but webdav_hostname is empty")
	}
	return nil
}
