// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials kept outside the config file. Load reads
// a directory of plain-text files where the filename is the key name and the
// trimmed file contents are the value. LoadDotenv reads a .env file.
//
// Supported key files: zotero-api-key, zotero-library-id, zotero-library-type.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Key file names understood by the CLI.
const (
	KeyAPIKey      = "zotero-api-key"
	KeyLibraryID   = "zotero-library-id"
	KeyLibraryType = "zotero-library-type"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadDotenv reads KEY=value pairs from a .env file. A missing file yields an
// empty map; a malformed file is an error. The process environment is not
// modified.
func LoadDotenv(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	for k, v := range env {
		if strings.TrimSpace(v) == "" {
			delete(env, k)
		}
	}
	return env, nil
}
