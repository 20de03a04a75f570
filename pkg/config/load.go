package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the connection file at path. Files with a .yaml or .yml extension
// are decoded as YAML, everything else as JSON. Environment variables override
// the secrets in the file.
func Load(path string) (*Connection, error) {
	if path == "" {
		return nil, errors.New("config path required")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	c, err := parse(b, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	c.applyDefaults()
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return c, nil
}

func parse(b []byte, ext string) (*Connection, error) {
	var c Connection
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	default:
		d := json.NewDecoder(bytes.NewReader(b))
		d.DisallowUnknownFields()
		if err := d.Decode(&c); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func (c *Connection) applyEnv() {
	if v := os.Getenv(PasswordEnvVar); v != "" {
		c.Password = v
	}
	if v := os.Getenv(StageTokenEnvVar); v != "" {
		c.Stage.Token = v
	}
}
