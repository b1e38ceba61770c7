package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "mixwatch", "config.toml")
}

// Merge writes opts.Values into the mixwatch config file and saves it
// atomically (temp file + rename).
//
// Behaviour:
//   - File not found: creates it with just the given values.
//   - Malformed TOML: creates a .bak backup and returns an error.
//   - All keys already hold the wanted values: MergeAlreadyConfigured.
//   - A key holds a different value: warns and keeps it unless Force is set.
func Merge(opts MergeOptions) MergeOutput {
	path := opts.ConfigPath
	if path == "" {
		path = defaultConfigPath()
	}
	if len(opts.Values) == 0 {
		return MergeOutput{Result: MergeError, Err: errors.New("nothing to configure")}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return createConfigFile(path, opts.Values)
		}
		if errors.Is(err, fs.ErrPermission) {
			return MergeOutput{Result: MergeError, Err: fmt.Errorf("permission denied reading %s", path)}
		}
		return MergeOutput{Result: MergeError, Err: fmt.Errorf("reading config file: %w", err)}
	}

	indent := detectIndent(data)

	doc := make(map[string]any)
	if _, err := toml.Decode(string(data), &doc); err != nil {
		bakPath := path + ".bak"
		if bakErr := os.WriteFile(bakPath, data, 0644); bakErr != nil {
			return MergeOutput{
				Result:   MergeError,
				Err:      fmt.Errorf("config file is not valid TOML and backup failed: %w", bakErr),
				Messages: []string{fmt.Sprintf("Failed to create backup at %s", bakPath)},
			}
		}
		return MergeOutput{
			Result:   MergeError,
			Err:      fmt.Errorf("config file is not valid TOML (backup saved to %s)", bakPath),
			Messages: []string{fmt.Sprintf("Backup saved to %s", bakPath)},
		}
	}

	var (
		messages []string
		warnings []string
		changed  bool
	)
	for _, k := range sortedKeys(opts.Values) {
		want := opts.Values[k]
		if want == "" {
			continue
		}
		table, leaf, err := tableFor(doc, k)
		if err != nil {
			return MergeOutput{Result: MergeError, Err: err}
		}

		existing, exists := table[leaf]
		if !exists {
			table[leaf] = want
			changed = true
			messages = append(messages, fmt.Sprintf("Added %s = %q", k, want))
			continue
		}
		existingStr, _ := existing.(string)
		if existingStr == want {
			continue
		}
		if !opts.Force {
			warnings = append(warnings, fmt.Sprintf("Warning: %s is set to %q (wanted %q), not overwriting", k, existingStr, want))
			continue
		}
		table[leaf] = want
		changed = true
		messages = append(messages, fmt.Sprintf("Updated %s from %q to %q", k, existingStr, want))
	}

	if !changed {
		if len(warnings) > 0 {
			return MergeOutput{Result: MergeAlreadyConfigured, Warnings: warnings}
		}
		return MergeOutput{
			Result:   MergeAlreadyConfigured,
			Messages: []string{"Backend endpoints are already configured"},
		}
	}

	if err := writeConfigAtomic(path, doc, indent); err != nil {
		return MergeOutput{Result: MergeError, Err: fmt.Errorf("writing config file: %w", err)}
	}
	return MergeOutput{Result: MergeSuccess, Messages: messages, Warnings: warnings}
}

// tableFor walks a dotted key, creating intermediate tables, and returns the
// innermost table and the final key segment.
func tableFor(doc map[string]any, dotted string) (map[string]any, string, error) {
	parts := strings.Split(dotted, ".")
	table := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := table[p]
		if !ok {
			child := make(map[string]any)
			table[p] = child
			table = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return nil, "", fmt.Errorf("%s is not a table in the config file", p)
		}
		table = child
	}
	return table, parts[len(parts)-1], nil
}

func createConfigFile(path string, values map[string]string) MergeOutput {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return MergeOutput{Result: MergeError, Err: fmt.Errorf("permission denied creating directory %s", dir)}
		}
		return MergeOutput{Result: MergeError, Err: fmt.Errorf("creating directory %s: %w", dir, err)}
	}

	doc := make(map[string]any)
	for _, k := range sortedKeys(values) {
		if values[k] == "" {
			continue
		}
		table, leaf, err := tableFor(doc, k)
		if err != nil {
			return MergeOutput{Result: MergeError, Err: err}
		}
		table[leaf] = values[k]
	}

	if err := writeConfigAtomic(path, doc, "  "); err != nil {
		return MergeOutput{Result: MergeError, Err: fmt.Errorf("creating config file: %w", err)}
	}
	return MergeOutput{
		Result:   MergeSuccess,
		Messages: []string{fmt.Sprintf("Created %s", path)},
	}
}

func writeConfigAtomic(path string, doc map[string]any, indent string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = indent
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding TOML: %w", err)
	}

	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".config-*.toml.tmp")
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("permission denied writing to %s", dir)
		}
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(buf.Bytes()); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}
	_ = os.Chmod(tmpPath, mode)

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", path, err)
	}
	tmpPath = ""
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
