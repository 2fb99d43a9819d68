package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"journal-digest/internal/logger"
)

const (
	appName        = "journal-digest"
	envPrefix      = "JOURNAL"
	defaultLogFile = appName + ".log"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Summary   SummaryConfig   `mapstructure:"summary"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type OpenAIConfig struct {
	APIKey          string `mapstructure:"api_key"`
	BaseURL         string `mapstructure:"base_url"`
	Model           string `mapstructure:"model"`
	MaxOutputTokens int    `mapstructure:"max_output_tokens"`

	// Prompt scene directory holding main.txt, daily.txt, weekly.txt and monthly.txt.
	SummaryPath string `mapstructure:"summary_path"`

	// Prompt content (loaded from files at runtime, empty means built-in default)
	MainPromptContent    string
	DailyPromptContent   string
	WeeklyPromptContent  string
	MonthlyPromptContent string
}

type SummaryConfig struct {
	Timezone     string        `mapstructure:"timezone"` // IANA name, "Local" for the host zone
	Locale       string        `mapstructure:"locale"`
	LockScope    string        `mapstructure:"lock_scope"` // "period" or "user"
	ModelTimeout time.Duration `mapstructure:"model_timeout"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type SchedulerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DailyCron   string `mapstructure:"daily_cron"`
	WeeklyCron  string `mapstructure:"weekly_cron"`
	MonthlyCron string `mapstructure:"monthly_cron"`
	// Intervals are used for a period whose cron is empty, e.g. "24h".
	DailyInterval   string `mapstructure:"daily_interval"`
	WeeklyInterval  string `mapstructure:"weekly_interval"`
	MonthlyInterval string `mapstructure:"monthly_interval"`
	MaxParallel     int    `mapstructure:"max_parallel"`
}

type StorageConfig struct {
	DBPath  string    `mapstructure:"db_path"`
	LogPath string    `mapstructure:"log_path"`
	Log     LogConfig `mapstructure:"log"`
}

type LogConfig struct {
	Level        string `mapstructure:"level"`         // "debug", "info", "warn", "error"
	Format       string `mapstructure:"format"`        // "text" or "json"
	RotationTime string `mapstructure:"rotation_time"` // e.g. "24h"
	MaxSize      int    `mapstructure:"max_size"`      // megabytes
	MaxBackups   int    `mapstructure:"max_backups"`
	MaxAge       int    `mapstructure:"max_age"` // days
	Compress     bool   `mapstructure:"compress"`
}

// Validate checks the summary settings.
func (c *SummaryConfig) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.LockScope != "period" && c.LockScope != "user" {
		return fmt.Errorf("lock_scope must be 'period' or 'user', got '%s'", c.LockScope)
	}
	if c.ModelTimeout <= 0 {
		return fmt.Errorf("model_timeout must be positive, got %s", c.ModelTimeout)
	}
	return nil
}

// ApplyDefaults fills unset summary settings.
func (c *SummaryConfig) ApplyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.Locale == "" {
		c.Locale = "en"
	}
	if c.LockScope == "" {
		c.LockScope = "period"
	}
	if c.ModelTimeout == 0 {
		c.ModelTimeout = 60 * time.Second
	}
}

// Location returns the zone used when a caller does not send one.
func (c *SummaryConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks the scheduler settings. Cron specs are parsed by the scheduler itself.
func (c *SchedulerConfig) Validate() error {
	if c.MaxParallel <= 0 {
		return fmt.Errorf("max_parallel must be positive, got %d", c.MaxParallel)
	}
	for name, interval := range map[string]string{
		"daily_interval":   c.DailyInterval,
		"weekly_interval":  c.WeeklyInterval,
		"monthly_interval": c.MonthlyInterval,
	} {
		if interval == "" {
			continue
		}
		if d, err := time.ParseDuration(interval); err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration, got '%s'", name, interval)
		}
	}
	if c.Enabled && c.DailyCron == "" && c.WeeklyCron == "" && c.MonthlyCron == "" &&
		c.DailyInterval == "" && c.WeeklyInterval == "" && c.MonthlyInterval == "" {
		return errors.New("scheduler is enabled but no cron or interval is configured")
	}
	return nil
}

func (c *SchedulerConfig) ApplyDefaults() {
	if c.MaxParallel == 0 {
		c.MaxParallel = 4
	}
}

// Validate checks the auth settings. An empty secret is allowed here so that
// CLI commands which never touch tokens keep working; serve and token
// reject it when they build the JWT manager.
func (c *AuthConfig) Validate() error {
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive, got %s", c.TokenTTL)
	}
	if c.Issuer == "" {
		return errors.New("issuer must not be empty")
	}
	return nil
}

func (c *AuthConfig) ApplyDefaults() {
	if c.Issuer == "" {
		c.Issuer = appName
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}
}

func (c *ServerConfig) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 15 * time.Second
	}
}

func (c *ServerConfig) Validate() error {
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return errors.New("server timeouts must not be negative")
	}
	return nil
}

var globalConfig *Config

// Load reads configuration from configPath, or from the first config.yaml
// found on the search path. Missing files are not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")

		if execPath, err := os.Executable(); err == nil {
			execDir := filepath.Dir(execPath)
			v.AddConfigPath(filepath.Join(execDir, "config"))
			v.AddConfigPath(execDir)
		}

		v.AddConfigPath("./config")
		v.AddConfigPath(".")

		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, "."+appName))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	cfg.Server.ApplyDefaults()
	cfg.Summary.ApplyDefaults()
	cfg.Auth.ApplyDefaults()
	cfg.Scheduler.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := normalizePaths(&cfg); err != nil {
		return nil, fmt.Errorf("failed to normalize paths: %w", err)
	}

	configFileDir := ""
	if configPath != "" {
		configFileDir = filepath.Dir(configPath)
	} else if configFile := v.ConfigFileUsed(); configFile != "" {
		configFileDir = filepath.Dir(configFile)
	} else if baseDir, err := getBaseDirectory(); err == nil {
		configFileDir = filepath.Join(baseDir, "config")
	} else {
		configFileDir = "./config"
	}

	if err := loadPromptFiles(&cfg, configFileDir); err != nil {
		return nil, fmt.Errorf("failed to load prompt files: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "90s") // longer than summary.model_timeout
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_output_tokens", 1200)
	v.SetDefault("openai.summary_path", "prompts/summary")

	v.SetDefault("summary.timezone", "Local")
	v.SetDefault("summary.locale", "en")
	v.SetDefault("summary.lock_scope", "period")
	v.SetDefault("summary.model_timeout", "60s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", appName)
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.daily_cron", "0 10 0 * * *")   // 00:10:00 every day
	v.SetDefault("scheduler.weekly_cron", "0 30 0 * * 1")  // 00:30:00 every Monday
	v.SetDefault("scheduler.monthly_cron", "0 0 1 1 * *") // 01:00:00 on the 1st
	v.SetDefault("scheduler.daily_interval", "")
	v.SetDefault("scheduler.weekly_interval", "")
	v.SetDefault("scheduler.monthly_interval", "")
	v.SetDefault("scheduler.max_parallel", 4)

	v.SetDefault("storage.db_path", "./data/db/"+appName+".db")
	v.SetDefault("storage.log_path", "")
	v.SetDefault("storage.log.level", "info")
	v.SetDefault("storage.log.format", "text")
	v.SetDefault("storage.log.rotation_time", "24h")
	v.SetDefault("storage.log.max_size", 100)
	v.SetDefault("storage.log.max_backups", 3)
	v.SetDefault("storage.log.max_age", 28)
	v.SetDefault("storage.log.compress", true)
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Summary.Validate(); err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if c.OpenAI.MaxOutputTokens <= 0 {
		return fmt.Errorf("openai: max_output_tokens must be positive, got %d", c.OpenAI.MaxOutputTokens)
	}
	switch c.Storage.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("storage: log.format must be 'text' or 'json', got '%s'", c.Storage.Log.Format)
	}
	return nil
}

func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

func (c *StorageConfig) EnsureDBPath() error {
	dir := filepath.Dir(c.DBPath)
	if dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

func normalizePaths(cfg *Config) error {
	baseDir, err := getBaseDirectory()
	if err != nil {
		baseDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get base directory: %w", err)
		}
	}
	normalizePathsAt(cfg, baseDir)
	return nil
}

func normalizePathsAt(cfg *Config, baseDir string) {
	if cfg.Storage.LogPath == "" {
		cfg.Storage.LogPath = filepath.Join(baseDir, defaultLogFile)
	} else if !filepath.IsAbs(cfg.Storage.LogPath) {
		cfg.Storage.LogPath = filepath.Join(baseDir, cfg.Storage.LogPath)
	}

	// A directory, or a path without extension, gets the default file name.
	if info, err := os.Stat(cfg.Storage.LogPath); err == nil && info.IsDir() {
		cfg.Storage.LogPath = filepath.Join(cfg.Storage.LogPath, defaultLogFile)
	} else if os.IsNotExist(err) && filepath.Ext(cfg.Storage.LogPath) == "" {
		cfg.Storage.LogPath = filepath.Join(cfg.Storage.LogPath, defaultLogFile)
	}

	if cfg.Storage.DBPath != "" && !filepath.IsAbs(cfg.Storage.DBPath) {
		cfg.Storage.DBPath = filepath.Join(baseDir, cfg.Storage.DBPath)
	}

	if cfg.Storage.Log.Level == "" {
		cfg.Storage.Log.Level = "info"
	}
}

// getBaseDirectory returns the base directory for resolving relative paths.
// It prefers the executable directory; an executable in bin/ resolves to the
// nearest parent holding a config/ directory.
func getBaseDirectory() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return os.Getwd()
	}

	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		realPath = execPath
	}

	execDir := filepath.Dir(realPath)
	if filepath.Base(execDir) == "bin" {
		currentDir := execDir
		for {
			parentDir := filepath.Dir(currentDir)
			if parentDir == currentDir {
				break
			}
			if info, err := os.Stat(filepath.Join(currentDir, "config")); err == nil && info.IsDir() {
				return currentDir, nil
			}
			currentDir = parentDir
		}
	}

	return execDir, nil
}

// InitLogger initializes the global logger from the storage section.
func (c *Config) InitLogger() error {
	return logger.Init(c.LogConfig())
}

// LogConfig converts the storage log section for the logger package.
func (c *Config) LogConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:        c.Storage.Log.Level,
		Format:       c.Storage.Log.Format,
		FilePath:     c.Storage.LogPath,
		RotationTime: c.Storage.Log.RotationTime,
		MaxSize:      c.Storage.Log.MaxSize,
		MaxBackups:   c.Storage.Log.MaxBackups,
		MaxAge:       c.Storage.Log.MaxAge,
		Compress:     c.Storage.Log.Compress,
	}
}

// loadPromptFiles loads the summary prompts from the summary scene directory.
// Every file is optional; a missing one keeps the built-in prompt.
func loadPromptFiles(cfg *Config, configFileDir string) error {
	if cfg.OpenAI.SummaryPath == "" {
		return nil
	}

	targets := map[string]*string{
		"main.txt":    &cfg.OpenAI.MainPromptContent,
		"daily.txt":   &cfg.OpenAI.DailyPromptContent,
		"weekly.txt":  &cfg.OpenAI.WeeklyPromptContent,
		"monthly.txt": &cfg.OpenAI.MonthlyPromptContent,
	}
	for name, dst := range targets {
		content, err := loadPromptFromScene(cfg.OpenAI.SummaryPath, name, configFileDir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		*dst = strings.TrimSpace(content)
	}
	return nil
}

// loadPromptFromScene loads filename from the scene directory scenePath.
func loadPromptFromScene(scenePath, filename string, configFileDir string) (string, error) {
	content, err := loadPromptFile(filepath.Join(scenePath, filename), configFileDir)
	if err != nil {
		return "", fmt.Errorf("failed to load prompt from scene %s: %w", scenePath, err)
	}
	return content, nil
}

// loadPromptFile loads a prompt file. Relative paths are tried against the
// config file directory first, then against <base>/config.
func loadPromptFile(promptPath string, configFileDir string) (string, error) {
	filePath := promptPath

	if !filepath.IsAbs(promptPath) {
		var candidates []string
		if configFileDir != "" {
			candidates = append(candidates, filepath.Join(configFileDir, promptPath))
		}
		if baseDir, err := getBaseDirectory(); err == nil {
			candidates = append(candidates, filepath.Join(baseDir, "config", promptPath))
		} else {
			candidates = append(candidates, filepath.Join("./config", promptPath))
		}

		filePath = candidates[len(candidates)-1]
		for _, c := range candidates {
			if _, err := os.Stat(c); err == nil {
				filePath = c
				break
			}
		}
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %s: %w", filePath, err)
	}

	return string(content), nil
}
