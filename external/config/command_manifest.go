package config

import (
	"fmt"
	"os"

	"github.com/foxseedlab/auditbot/internal/command"
	"gopkg.in/yaml.v3"
)

func LoadCommandManifest(path string) (command.Manifest, error) {
	var m command.Manifest
	raw, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read command manifest %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("parse command manifest %s: %w", path, err)
	}
	return m, nil
}
