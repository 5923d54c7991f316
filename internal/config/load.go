// SPDX-License-Identifier: MIT
package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	applog "spectra/internal/log"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from the YAML file at path. If path is empty
// it searches default locations ("config.yaml", "spectra.yaml"); if no file is
// found the built-in defaults are used. Environment overrides apply after the
// file, and the final configuration is validated before being returned.
func LoadConfig(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"spectra.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// KnownFields turns typos into load errors instead of silently
	// ignored keys.
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration (%s): %w", path, err)
	}

	return cfg, nil
}

// applyEnvOverrides layers SPECTRA_* environment variables over whatever the
// file (or the defaults) provided.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("SPECTRA_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		applog.Debugf("config: overriding log_level from env: %s", val)
	}

	if val, ok := os.LookupEnv("SPECTRA_OVERLAY"); ok {
		cfg.Overlay.Path = val
		applog.Debugf("config: overriding overlay.path from env: %s", val)
	}

	if val, ok := os.LookupEnv("SPECTRA_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			applog.Debugf("config: overriding transport.udp_enabled from env: %v", bVal)
		}
	}

	if val, ok := os.LookupEnv("SPECTRA_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		applog.Debugf("config: overriding transport.udp_target_address from env: %s", val)
	}
}
