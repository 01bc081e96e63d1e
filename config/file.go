package config

import (
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// localPath returns the override path for name: dir/<prefix>.local.<ext>
func localPath(name string) string {
	prefix, ext := splitExt(filepath.Base(name))
	return filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local.%s", prefix, ext))
}

// ReadConfig reads a JSON5 configuration file and merges <name>.local.<ext> over it
// when present. It returns the files that were read, in merge order, and os.ErrNotExist
// when neither file exists.
func ReadConfig[T any](name string) (T, []string, error) {
	var out T
	var sources []string

	defaultFile, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, nil, err
	}
	if len(defaultFile) > 0 {
		if err := json5.Unmarshal(defaultFile, &out); err != nil {
			return out, nil, fmt.Errorf("parse %s: %w", name, err)
		}
		sources = append(sources, name)
	}

	local := localPath(name)
	localFile, err := os.ReadFile(local)
	if err != nil && !os.IsNotExist(err) {
		return out, nil, err
	}
	if len(localFile) > 0 {
		var override T
		if err := json5.Unmarshal(localFile, &override); err != nil {
			return out, nil, fmt.Errorf("parse %s: %w", local, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, nil, err
		}
		sources = append(sources, local)
	}

	if len(sources) == 0 {
		return out, nil, os.ErrNotExist
	}
	return out, sources, nil
}

func overlay(dst *Config, src Config) error {
	return mergo.Merge(dst, src, mergo.WithOverride)
}
