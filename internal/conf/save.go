package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/pixalb/internal/errors"
)

const (
	configDirPermissions  = 0o755
	configFilePermissions = 0o600 // may hold the API key
)

// SaveYAMLConfig writes settings to configPath through a temp file and rename.
// Comments in an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return errors.New(fmt.Errorf("error marshaling settings to YAML: %w", err)).
			Category(errors.CategoryFileParsing).
			Build()
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return errors.New(fmt.Errorf("error creating config directory: %w", err)).
			Category(errors.CategoryFileIO).
			Context("dir", dir).
			Build()
	}

	tempFile, err := os.CreateTemp(dir, "config-*.yaml")
	if err != nil {
		return errors.New(fmt.Errorf("error creating temporary file: %w", err)).
			Category(errors.CategoryFileIO).
			Build()
	}
	tempFileName := tempFile.Name()
	defer func() { _ = os.Remove(tempFileName) }()

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return errors.New(fmt.Errorf("error writing to temporary file: %w", err)).
			Category(errors.CategoryFileIO).
			Build()
	}
	if err := tempFile.Chmod(configFilePermissions); err != nil {
		_ = tempFile.Close()
		return errors.New(fmt.Errorf("error setting config permissions: %w", err)).
			Category(errors.CategoryFileIO).
			Build()
	}
	if err := tempFile.Close(); err != nil {
		return errors.New(fmt.Errorf("error closing temporary file: %w", err)).
			Category(errors.CategoryFileIO).
			Build()
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return errors.New(fmt.Errorf("error replacing config file: %w", err)).
			Category(errors.CategoryFileIO).
			Context("path", configPath).
			Build()
	}
	return nil
}
