package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// LocalPath returns the override file that sits next to `path`, for
// hotelcheck.json5 that is hotelcheck.local.json5.
//
// Every key the override sets wins, including false and 0, keys it leaves out
// keep the value of the main file.
func LocalPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

// readInto decodes `path` onto whatever `out` already holds, so only the keys
// present in the file are replaced.
func readInto[T any](path string, out *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// ReadFiles reads `path` and then its local override, a key set in a later
// file wins. Fields that neither file sets to a non-zero value are taken from
// `defaults`. The returned slice lists the files that were read, it is empty
// if neither exists.
func ReadFiles[T any](path string, defaults T) (T, []string, error) {
	var out T
	var read []string

	for _, file := range []string{path, LocalPath(path)} {
		found, err := readInto(file, &out)
		if err != nil {
			return defaults, nil, err
		}
		if found {
			read = append(read, file)
		}
	}

	err := mergo.Merge(&out, defaults)
	if err != nil {
		return defaults, nil, fmt.Errorf("apply defaults: %w", err)
	}
	return out, read, nil
}
