package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSampleConfigIsValid(t *testing.T) {
	var c Config
	if err := json.Unmarshal(sampleConfig, &c); err != nil {
		t.Fatalf("sample config is not valid JSON: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("sample config does not validate: %v", err)
	}
	if c.Authority == "" {
		t.Error("sample config must carry an authority")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:   "minimal valid config",
			config: Config{Authority: "org.jtxboard.provider"},
		},
		{
			name:    "missing authority",
			config:  Config{},
			wantErr: "Authority",
		},
		{
			name: "bad listen address",
			config: Config{
				Authority:  "org.jtxboard.provider",
				ListenAddr: "not an address",
			},
			wantErr: "ListenAddr",
		},
		{
			name: "caldav account without url",
			config: Config{
				Authority: "org.jtxboard.provider",
				Accounts: map[string]AccountConfig{
					"dav-home": {Type: "caldav", Enabled: true},
				},
			},
			wantErr: "URL is required",
		},
		{
			name: "account without type",
			config: Config{
				Authority: "org.jtxboard.provider",
				Accounts: map[string]AccountConfig{
					"dav-home": {URL: "https://dav.example.com", Enabled: true},
				},
			},
			wantErr: "validation failed",
		},
		{
			name: "valid caldav account",
			config: Config{
				Authority: "org.jtxboard.provider",
				Accounts: map[string]AccountConfig{
					"dav-home": {
						Type:    "caldav",
						URL:     "https://dav.example.com/cal",
						Enabled: true,
					},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	c := Config{Authority: "org.jtxboard.provider"}

	if got := c.GetListenAddr(); got != "127.0.0.1:8383" {
		t.Errorf("GetListenAddr() default = %q", got)
	}
	if got := c.GetCleanupSchedule(); got != "@daily" {
		t.Errorf("GetCleanupSchedule() default = %q", got)
	}

	c.ListenAddr = "0.0.0.0:9000"
	c.CleanupSchedule = "@hourly"
	if got := c.GetListenAddr(); got != "0.0.0.0:9000" {
		t.Errorf("GetListenAddr() = %q", got)
	}
	if got := c.GetCleanupSchedule(); got != "@hourly" {
		t.Errorf("GetCleanupSchedule() = %q", got)
	}
}

func TestGetEnabledAccounts(t *testing.T) {
	c := Config{
		Authority: "org.jtxboard.provider",
		Accounts: map[string]AccountConfig{
			"on":  {Type: "caldav", URL: "https://dav.example.com", Enabled: true},
			"off": {Type: "caldav", URL: "https://old.example.com", Enabled: false},
		},
	}

	enabled := c.GetEnabledAccounts()
	if len(enabled) != 1 {
		t.Fatalf("expected 1 enabled account, got %d", len(enabled))
	}
	if _, ok := enabled["on"]; !ok {
		t.Error("expected account 'on' to be enabled")
	}
}

func TestParseConfigEnvOverride(t *testing.T) {
	t.Setenv(EnvDBPath, "/tmp/override.db")
	t.Setenv(EnvAuthority, "env.authority")

	data := []byte(`{"authority": "file.authority"}`)
	c, err := parseConfig(data, "test.json")
	if err != nil {
		t.Fatalf("parseConfig() failed: %v", err)
	}

	if c.DBPath != "/tmp/override.db" {
		t.Errorf("DBPath = %q, want env override", c.DBPath)
	}
	if c.Authority != "env.authority" {
		t.Errorf("Authority = %q, want env override", c.Authority)
	}
}

func TestParseConfigRejectsBadJSON(t *testing.T) {
	if _, err := parseConfig([]byte("{not json"), "broken.json"); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestConfigDataFromPathCreatesSample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	data, err := configDataFromPath(path)
	if err != nil {
		t.Fatalf("configDataFromPath() failed: %v", err)
	}
	if string(data) != string(sampleConfig) {
		t.Error("expected sample config content for missing file")
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("sample config was not written to disk: %v", err)
	}
}
