package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigPathEnv lists extra directories, colon separated, searched for a
// relative configuration file name.
const ConfigPathEnv = "LANDSAT_RGB_CONFIG_PATH"

// ConfigResolver finds configuration files by name in a list of
// directories: the ConfigPathEnv entries, then the working directory,
// then the directory of the executable.
type ConfigResolver struct {
	Dirs []string
}

func NewConfigResolver(searchPath string) *ConfigResolver {
	resolver := &ConfigResolver{}
	for _, dir := range strings.Split(searchPath, ":") {
		dir = strings.TrimSpace(dir)
		if len(dir) == 0 {
			continue
		}
		resolver.Dirs = append(resolver.Dirs, dir)
	}

	if cwd, err := os.Getwd(); err == nil {
		resolver.Dirs = append(resolver.Dirs, cwd)
	}
	if exe, err := os.Executable(); err == nil {
		resolver.Dirs = append(resolver.Dirs, filepath.Dir(exe))
	}
	return resolver
}

func (r *ConfigResolver) Resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		if err := checkFile(name); err != nil {
			return name, &ConfigError{Field: "config file", Value: name, Reason: err.Error()}
		}
		return name, nil
	}

	for _, dir := range r.Dirs {
		path := filepath.Clean(filepath.Join(dir, name))
		if checkFile(path) == nil {
			return path, nil
		}
	}
	return name, &ConfigError{Field: "config file", Value: name, Reason: fmt.Sprintf("not found in %s", strings.Join(r.Dirs, ":"))}
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
