// Package config loads the YAML configuration shared by the example CLI
// binaries: logging targets, the TFTP server's root/mode, the Telnet
// server's listen address and option defaults, and the NTP client's
// default server, timeout and poll interval. Loading follows the
// teacher's (jejacks0n-euphio) recursive include + hot-reload pattern.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/GiacomoTortora/commons-net/internal/applog"
	"github.com/GiacomoTortora/commons-net/internal/tftp"
)

type Config struct {
	LoadedFiles []string               `yaml:"-"`
	Include     []string               `yaml:"include"`
	HotReload   bool                   `yaml:"hotReload"`
	Loggers     []applog.TargetConfig  `yaml:"loggers"`
	TFTP        TFTPConfig             `yaml:"tftp"`
	Telnet      TelnetConfig           `yaml:"telnet"`
	NTP         NTPConfig              `yaml:"ntp"`
}

// TFTPConfig describes a TFTP server instance. Mode is one of
// "GET_ONLY", "PUT_ONLY" or "GET_AND_PUT", matching the original
// TFTPClient's own access-mode vocabulary.
type TFTPConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	Root       string `yaml:"root"`
	Mode       string `yaml:"mode"`
}

// AccessMode translates the config's string vocabulary into tftp.AccessMode.
func (c TFTPConfig) AccessMode() (tftp.AccessMode, error) {
	switch c.Mode {
	case "", "GET_AND_PUT":
		return tftp.ReadWrite, nil
	case "GET_ONLY":
		return tftp.ReadOnly, nil
	case "PUT_ONLY":
		return tftp.WriteOnly, nil
	default:
		return 0, fmt.Errorf("unknown tftp mode %q", c.Mode)
	}
}

// TelnetConfig describes a Telnet server instance and which options it
// volunteers/requests by default.
type TelnetConfig struct {
	ListenAddr      string   `yaml:"listenAddr"`
	RequestOptions  []string `yaml:"requestOptions"`
	VolunteerOptions []string `yaml:"volunteerOptions"`
}

// NTPConfig describes the default NTP client used by cmd/ntpquery.
type NTPConfig struct {
	Server       string        `yaml:"server"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"pollInterval"`
}

// Load reads filename and any files it includes (relative to its own
// directory), later files layering their fields over earlier ones.
func Load(filename string) (*Config, error) {
	cfg := &Config{}
	processed := make(map[string]bool)
	if err := loadRecursive(filename, cfg, processed); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRecursive(filename string, cfg *Config, processed map[string]bool) error {
	absPath, err := filepath.Abs(filename)
	if err != nil {
		return err
	}
	if processed[absPath] {
		return nil
	}
	processed[absPath] = true
	cfg.LoadedFiles = append(cfg.LoadedFiles, absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return err
	}
	expanded := []byte(os.ExpandEnv(string(data)))

	var head struct {
		Include []string `yaml:"include"`
	}
	if err := yaml.Unmarshal(expanded, &head); err != nil {
		return fmt.Errorf("parsing %s: %w", absPath, err)
	}

	baseDir := filepath.Dir(absPath)
	for _, inc := range head.Include {
		full := inc
		if !filepath.IsAbs(inc) {
			full = filepath.Join(baseDir, inc)
		}
		if err := loadRecursive(full, cfg, processed); err != nil {
			return fmt.Errorf("loading included config %s: %w", full, err)
		}
	}

	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", absPath, err)
	}
	return nil
}
