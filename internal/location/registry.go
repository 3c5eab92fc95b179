// Package location keeps the ordered, de-duplicated list of high-risk
// exposure locations, one name per line in a flat file.
package location

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"covidtrack/internal/logging"
)

// Parse reads one location per line, trimming line endings. Blank lines are skipped.
func Parse(r io.Reader) ([]string, error) {
	locations := []string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		name := strings.TrimRight(scanner.Text(), "\r\n")
		if name == "" {
			continue
		}
		locations = append(locations, name)
	}
	return locations, scanner.Err()
}

// Load reads the registry file. A missing or unreadable file yields an empty list.
func Load(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Get(logging.CategoryRegistry).Warn("Location file %s unreadable, treating as empty: %v", path, err)
		}
		return []string{}
	}
	defer f.Close()

	locations, err := Parse(f)
	if err != nil {
		logging.Get(logging.CategoryRegistry).Warn("Partial read of %s: %v", path, err)
	}
	return locations
}

// Save replaces the registry file with locations, one per line.
func Save(path string, locations []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create location directory: %w", err)
	}

	var b strings.Builder
	for _, loc := range locations {
		b.WriteString(loc)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write location file: %w", err)
	}

	logging.Registry("Saved %d locations to %s", len(locations), path)
	return nil
}

// Contains reports whether candidate is in locations (exact match).
func Contains(locations []string, candidate string) bool {
	for _, loc := range locations {
		if loc == candidate {
			return true
		}
	}
	return false
}

// RegisterIfAbsent appends candidate when it is not already present. The
// returned slice never shares a backing array with locations when it grows.
func RegisterIfAbsent(locations []string, candidate string) ([]string, bool) {
	if Contains(locations, candidate) {
		return locations, false
	}
	out := make([]string, len(locations), len(locations)+1)
	copy(out, locations)
	return append(out, candidate), true
}

// Registry is the location file bound to its path.
type Registry struct {
	path string
}

// NewRegistry returns a registry backed by the file at path.
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// Path returns the backing file path.
func (r *Registry) Path() string {
	return r.path
}

// All returns the registered locations in file order.
func (r *Registry) All() []string {
	return Load(r.path)
}

// Register adds candidate to the file if absent. The file is only written when
// the registry grows.
func (r *Registry) Register(candidate string) (bool, error) {
	locations, added := RegisterIfAbsent(Load(r.path), candidate)
	if !added {
		logging.Get(logging.CategoryRegistry).Debug("Location %q already registered", candidate)
		return false, nil
	}
	if err := Save(r.path, locations); err != nil {
		return false, err
	}
	return true, nil
}
