// Package config resolves process-wide settings: external tool locations,
// log level and the scratch directory for transient files. Everything is
// resolved once at startup and passed down explicitly, so components stay
// testable with fake tool paths.
package config

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/viper"
)

// Config holds resolved process-wide configuration.
type Config struct {
	// FFmpegPath and FFprobePath are absolute paths to the external tools.
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path"`

	// ScratchDir holds transient files such as concat manifests.
	ScratchDir string `mapstructure:"scratch_dir"`

	// LogLevel is a zerolog level name: debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from the environment (CLIPFORGE_* variables) and
// an optional YAML file, then resolves tool paths via PATH lookup for any
// left unset. Missing tools are a hard startup error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("clipforge")
	v.AutomaticEnv()

	v.SetDefault("ffmpeg_path", "")
	v.SetDefault("ffprobe_path", "")
	v.SetDefault("scratch_dir", os.TempDir())
	v.SetDefault("log_level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	var err error
	if cfg.FFmpegPath, err = resolveTool(cfg.FFmpegPath, "ffmpeg"); err != nil {
		return nil, err
	}
	if cfg.FFprobePath, err = resolveTool(cfg.FFprobePath, "ffprobe"); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func resolveTool(configured, name string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("stat %s: %w", name, err)
		}
		return configured, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("dependency not met: %s not found in PATH", name)
	}
	return path, nil
}
