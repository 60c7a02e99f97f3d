package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"jtxboard/internal/utils"

	_ "embed"
)

var configOnce sync.Once

var globalConfig *Config

var customConfigPath string // Custom config path set via --config flag

//go:embed config.sample.json
var sampleConfig []byte

const (
	CONFIG_DIR_PATH  = "jtxboard"
	CONFIG_FILE_PATH = "config.json"
	CONFIG_DIR_PERM  = 0755
	CONFIG_FILE_PERM = 0644
)

// Environment variable overrides, applied after the config file is parsed.
// A .env file in the working directory is honored if present.
const (
	EnvDBPath     = "JTXBOARD_DB_PATH"
	EnvListenAddr = "JTXBOARD_LISTEN_ADDR"
	EnvAuthority  = "JTXBOARD_AUTHORITY"
)

// AccountConfig describes one remote sync account whose collections appear in
// the local store. Credentials never live here; they go through the system
// keyring.
type AccountConfig struct {
	Type     string `json:"type" validate:"required"`
	URL      string `json:"url,omitempty" validate:"omitempty,url"`
	Username string `json:"username,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// Config represents the application configuration.
type Config struct {
	DBPath        string `json:"db_path,omitempty"`
	Authority     string `json:"authority" validate:"required"`
	AttachmentDir string `json:"attachment_dir,omitempty"`
	ListenAddr    string `json:"listen_addr,omitempty" validate:"omitempty,hostname_port"`

	// Cron expression for the background cleanup job.
	CleanupSchedule string `json:"cleanup_schedule,omitempty"`

	Accounts map[string]AccountConfig `json:"accounts,omitempty"`

	Verbose bool `json:"verbose,omitempty"`
}

func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}

	for name, account := range c.Accounts {
		if err := validate.Struct(account); err != nil {
			return fmt.Errorf("account %q validation failed: %w", name, err)
		}
		if account.Type == "caldav" && account.URL == "" {
			return utils.ErrInvalidConfig(
				fmt.Sprintf("accounts.%s", name), "URL is required for caldav accounts")
		}
	}

	return nil
}

// GetListenAddr returns the HTTP listen address, with a default.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == "" {
		return "127.0.0.1:8383"
	}
	return c.ListenAddr
}

// GetCleanupSchedule returns the cleanup cron expression, with a default.
func (c *Config) GetCleanupSchedule() string {
	if c.CleanupSchedule == "" {
		return "@daily"
	}
	return c.CleanupSchedule
}

// GetAttachmentDir returns the attachment directory, derived from the data
// directory when not configured.
func (c *Config) GetAttachmentDir() (string, error) {
	if c.AttachmentDir != "" {
		return utils.ExpandPath(c.AttachmentDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "jtxboard", "attachments"), nil
}

// GetEnabledAccounts returns all enabled account configurations.
func (c *Config) GetEnabledAccounts() map[string]AccountConfig {
	enabled := make(map[string]AccountConfig)
	for name, account := range c.Accounts {
		if account.Enabled {
			enabled[name] = account
		}
	}
	return enabled
}

// SetCustomConfigPath sets a custom config path to use instead of the default
// user config directory. If path is a directory, config.json inside it is
// used. This must be called before GetConfig() is called for the first time.
func SetCustomConfigPath(path string) {
	if path == "" || path == "." {
		customConfigPath = filepath.Join(".", CONFIG_DIR_PATH, CONFIG_FILE_PATH)
	} else {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			customConfigPath = filepath.Join(path, CONFIG_FILE_PATH)
		} else {
			customConfigPath = path
		}
	}
}

func GetConfig() *Config {
	configOnce.Do(func() {
		config, err := loadUserOrSampleConfig()
		if err != nil {
			log.Fatal(err)
		}
		globalConfig = config
	})
	return globalConfig
}

func loadUserOrSampleConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	configData, err := configDataFromPath(configPath)
	if err != nil {
		return nil, err
	}
	return parseConfig(configData, configPath)
}

func GetConfigPath() (string, error) {
	if customConfigPath != "" {
		// Custom path is returned even when the file does not exist yet, so
		// the sample config can be created there.
		return customConfigPath, nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	return filepath.Join(dir, CONFIG_DIR_PATH, CONFIG_FILE_PATH), nil
}

func createConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), CONFIG_DIR_PERM)
}

func WriteConfigFile(configPath string, data []byte) error {
	return os.WriteFile(configPath, data, CONFIG_FILE_PERM)
}

func createConfigFromSample(configPath string) ([]byte, error) {
	if err := createConfigDir(configPath); err != nil {
		return nil, err
	}
	if err := WriteConfigFile(configPath, sampleConfig); err != nil {
		return nil, err
	}
	utils.Infof("created default config at %s", configPath)
	return sampleConfig, nil
}

func configDataFromPath(configPath string) ([]byte, error) {
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return createConfigFromSample(configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	return data, nil
}

func parseConfig(configData []byte, configPath string) (*Config, error) {
	var configObj Config
	if err := json.Unmarshal(configData, &configObj); err != nil {
		return nil, fmt.Errorf("invalid JSON in config file %s: %w", configPath, err)
	}

	applyEnvOverrides(&configObj)

	if err := configObj.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if configObj.Verbose {
		utils.SetVerboseMode(true)
	}

	return &configObj, nil
}

// applyEnvOverrides lets the environment win over the file for the few values
// that differ between deployments. Absence of a .env file is not an error.
func applyEnvOverrides(c *Config) {
	_ = godotenv.Load()

	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv(EnvAuthority); v != "" {
		c.Authority = v
	}
}
