package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileRepository keeps admins as a JSON array on disk.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

func NewFileRepository(path string) (*FileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	return &FileRepository{path: path}, nil
}

func (r *FileRepository) LoadAll() ([]Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadUnlocked()
}

func (r *FileRepository) Upsert(a Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	admins, err := r.loadUnlocked()
	if err != nil {
		return err
	}
	for i, x := range admins {
		if x.ID == a.ID {
			admins[i] = a
			return r.saveUnlocked(admins)
		}
	}
	return r.saveUnlocked(append(admins, a))
}

func (r *FileRepository) Remove(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	admins, err := r.loadUnlocked()
	if err != nil {
		return err
	}
	out := admins[:0]
	for _, a := range admins {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return r.saveUnlocked(out)
}

// loadUnlocked treats a missing or empty file as no admins.
func (r *FileRepository) loadUnlocked() ([]Admin, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(data) == 0) {
		return []Admin{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read admins: %w", err)
	}
	var admins []Admin
	if err := json.Unmarshal(data, &admins); err != nil {
		return nil, fmt.Errorf("decode admins: %w", err)
	}
	return admins, nil
}

func (r *FileRepository) saveUnlocked(admins []Admin) error {
	data, err := json.MarshalIndent(admins, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write admins: %w", err)
	}
	return os.Rename(tmp, r.path)
}
