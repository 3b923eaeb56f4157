// Package itemlist persists the positional string lists that flow between
// pipeline stages. Index i in every list addresses the same logical source
// item; an empty string means the item failed or was skipped upstream.
// Lists are never compacted or reordered.
package itemlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads a JSON array of strings from path, preserving every position.
// It returns the items, the number of blank (empty or whitespace-only)
// entries, and an error if the file is missing, unreadable, or not an array.
func Load(path string) ([]string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read item list %s: %w", path, err)
	}

	// Tolerate a UTF-8 BOM left by editors on some platforms
	data = []byte(strings.TrimPrefix(string(data), "\uFEFF"))

	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, 0, fmt.Errorf("parse item list %s: %w", path, err)
	}

	blanks := 0
	for i, it := range items {
		if strings.TrimSpace(it) == "" {
			items[i] = ""
			blanks++
		}
	}

	return items, blanks, nil
}

// Save writes items as a pretty-printed JSON array via an atomic
// whole-file rewrite (temp file + rename).
func Save(path string, items []string) error {
	if items == nil {
		items = []string{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode item list: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create item list dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".itemlist-*.json")
	if err != nil {
		return fmt.Errorf("create temp item list: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write item list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close item list: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace item list %s: %w", path, err)
	}

	return nil
}
