package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const plansPrefix = "backup_plans_"

// BackupStore keeps exported backup documents in a directory.
type BackupStore struct {
	basePath string
}

// NewBackupStore creates a new BackupStore and ensures the base directory exists.
func NewBackupStore(basePath string) (*BackupStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory %s: %w", basePath, err)
	}
	return &BackupStore{basePath: basePath}, nil
}

// Dir returns the backup directory.
func (s *BackupStore) Dir() string {
	return s.basePath
}

// path returns the full path for a backup file, refusing names that would
// escape the directory.
func (s *BackupStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, ".json") {
		return "", fmt.Errorf("invalid backup name %q", name)
	}
	return filepath.Join(s.basePath, name), nil
}

// Save writes a backup document, replacing any file with the same name.
// It returns the full path written.
func (s *BackupStore) Save(name string, data []byte) (string, error) {
	filePath, err := s.path(name)
	if err != nil {
		return "", err
	}

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}
	return filePath, nil
}

// Load reads a backup document by name.
func (s *BackupStore) Load(name string) ([]byte, error) {
	filePath, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}
	return data, nil
}

// List returns the recipe backup names, newest first. The date in the name
// orders them.
func (s *BackupStore) List() ([]string, error) {
	return s.list(false)
}

// ListPlans returns the week plan backup names, newest first.
func (s *BackupStore) ListPlans() ([]string, error) {
	return s.list(true)
}

func (s *BackupStore) list(plans bool) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.basePath, "backup_*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob backup files: %w", err)
	}

	var names []string
	for _, match := range matches {
		name := filepath.Base(match)
		if strings.HasPrefix(name, plansPrefix) != plans {
			continue
		}
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Latest returns the name of the newest recipe backup, or "" when there is none.
func (s *BackupStore) Latest() (string, error) {
	names, err := s.List()
	if err != nil || len(names) == 0 {
		return "", err
	}
	return names[0], nil
}

// Prune keeps the newest keep recipe backups and the newest keep plan
// backups, removes the rest and returns how many files it removed.
func (s *BackupStore) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	removed := 0
	for _, plans := range []bool{false, true} {
		names, err := s.list(plans)
		if err != nil {
			return removed, err
		}
		for i := keep; i < len(names); i++ {
			if err := os.Remove(filepath.Join(s.basePath, names[i])); err != nil {
				return removed, fmt.Errorf("failed to remove stale backup %s: %w", names[i], err)
			}
			removed++
		}
	}
	return removed, nil
}
