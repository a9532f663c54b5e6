package definition

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

var (
	serverFileNames  = []string{"server.yaml", "server.yml", "server.json"}
	fixtureFileNames = []string{"test.yaml", "test.yml", "test.json"}
)

// LoadDir loads every server definition found in the immediate
// subdirectories of dir, sorted by server name. Directories without a server
// file are ignored.
func LoadDir(dir string) ([]Entry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions directory %s: %w", dir, err)
	}

	var entries []Entry
	for _, item := range items {
		if !item.IsDir() {
			continue
		}
		entryDir := filepath.Join(dir, item.Name())
		entry, ok, err := LoadEntry(entryDir)
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Server.Name < entries[j].Server.Name
	})
	return entries, nil
}

// LoadEntry loads a single server directory. ok is false when the directory
// has no server file.
func LoadEntry(dir string) (Entry, bool, error) {
	serverPath, found := firstExisting(dir, serverFileNames)
	if !found {
		return Entry{}, false, nil
	}

	var server Server
	if err := decodeFile(serverPath, &server); err != nil {
		return Entry{}, false, err
	}
	if server.Name == "" {
		server.Name = filepath.Base(dir)
	}
	if err := server.Validate(); err != nil {
		return Entry{}, false, fmt.Errorf("invalid server definition %s: %w", serverPath, err)
	}

	var fixture Fixture
	if fixturePath, ok := firstExisting(dir, fixtureFileNames); ok {
		if err := decodeFile(fixturePath, &fixture); err != nil {
			return Entry{}, false, err
		}
		if err := fixture.Validate(); err != nil {
			return Entry{}, false, fmt.Errorf("invalid test fixture %s: %w", fixturePath, err)
		}
	}

	return Entry{Server: server, Fixture: fixture, Dir: dir}, true, nil
}

// Filter returns the entries whose server name is name. An empty name keeps everything.
func Filter(entries []Entry, name string) []Entry {
	if name == "" {
		return entries
	}
	var out []Entry
	for _, e := range entries {
		if e.Server.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func firstExisting(dir string, names []string) (string, bool) {
	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// decodeFile parses YAML or JSON (a YAML subset) strictly.
func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
