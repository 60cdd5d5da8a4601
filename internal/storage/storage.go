package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"nutrition-planner/internal/recipe"
)

// RecordStore keeps scraped corpus records on disk, one JSON file per
// record version. An import can be resumed by skipping versions that exist.
type RecordStore struct {
	basePath string
}

// NewRecordStore creates a new RecordStore and ensures the base directory exists.
func NewRecordStore(basePath string) (*RecordStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &RecordStore{basePath: basePath}, nil
}

var unsafeID = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// RecordID derives a filesystem-safe ID from a page URL.
func RecordID(pageURL string) string {
	s := strings.TrimPrefix(strings.TrimPrefix(pageURL, "https://"), "http://")
	s = strings.Trim(unsafeID.ReplaceAllString(s, "-"), "-.")
	// Versions are separated from IDs by "_".
	return strings.ReplaceAll(s, "_", "-")
}

func (s *RecordStore) versionedPath(id, version string) string {
	return filepath.Join(s.basePath, fmt.Sprintf("%s_%s.json", id, version))
}

// Save stores a record version. Older versions of the same ID are removed first.
func (s *RecordStore) Save(id, version string, rec recipe.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := s.RemoveStaleVersions(id); err != nil {
		return err
	}
	if err := os.WriteFile(s.versionedPath(id, version), data, 0644); err != nil {
		return fmt.Errorf("failed to write record file: %w", err)
	}
	return nil
}

// Load retrieves a specific record version.
func (s *RecordStore) Load(id, version string) (*recipe.Record, error) {
	return readRecord(s.versionedPath(id, version))
}

// Exists checks if a specific version of a record exists.
func (s *RecordStore) Exists(id, version string) bool {
	_, err := os.Stat(s.versionedPath(id, version))
	return err == nil
}

// RemoveStaleVersions removes all files associated with id.
func (s *RecordStore) RemoveStaleVersions(id string) error {
	matches, err := filepath.Glob(filepath.Join(s.basePath, id+"_*.json"))
	if err != nil {
		return fmt.Errorf("failed to glob stale files: %w", err)
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil {
			return fmt.Errorf("failed to remove stale file %s: %w", match, err)
		}
	}
	return nil
}

// List returns every stored record ordered by name.
func (s *RecordStore) List() ([]recipe.Record, error) {
	matches, err := filepath.Glob(filepath.Join(s.basePath, "*_*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	records := make([]recipe.Record, 0, len(matches))
	for _, path := range matches {
		rec, err := readRecord(path)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

// Export writes all stored records as one JSON corpus array.
func (s *RecordStore) Export(w io.Writer) (int, error) {
	records, err := s.List()
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return 0, fmt.Errorf("failed to encode corpus: %w", err)
	}
	return len(records), nil
}

func readRecord(path string) (*recipe.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}
	var rec recipe.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}
