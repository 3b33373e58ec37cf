// Package auth holds the Telegram admin allowlist. Admins receive contact
// notifications and daily reports and may run the bot's admin commands.
package auth

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrLastAdmin is returned when revoking would leave no admin at all.
var ErrLastAdmin = errors.New("auth: cannot revoke the last admin")

type Admin struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

type Repository interface {
	LoadAll() ([]Admin, error)
	Upsert(a Admin) error
	Remove(id int64) error
}

// Service is safe for concurrent use. Admins configured through the
// environment are pinned: they are always admins and cannot be revoked.
type Service struct {
	mu     sync.RWMutex
	repo   Repository
	admins map[int64]Admin
	pinned map[int64]bool
}

// NewWithRepo merges the stored admins with the pinned ids. repo may be nil.
func NewWithRepo(repo Repository, pinned []int64) (*Service, error) {
	s := &Service{
		repo:   repo,
		admins: make(map[int64]Admin),
		pinned: make(map[int64]bool),
	}
	if repo != nil {
		stored, err := repo.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("load admins: %w", err)
		}
		for _, a := range stored {
			s.admins[a.ID] = a
		}
	}
	for _, id := range pinned {
		if id == 0 {
			continue
		}
		s.pinned[id] = true
		if _, ok := s.admins[id]; !ok {
			s.admins[id] = Admin{ID: id}
		}
	}
	return s, nil
}

func (s *Service) IsAdmin(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.admins[id]
	return ok
}

// Grant adds or refreshes an admin.
func (s *Service) Grant(a Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[a.ID] = a
	if s.repo != nil {
		return s.repo.Upsert(a)
	}
	return nil
}

// Revoke removes a non-pinned admin.
func (s *Service) Revoke(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pinned[id] {
		return fmt.Errorf("auth: admin %d is configured in the environment", id)
	}
	if _, ok := s.admins[id]; ok && len(s.admins) == 1 {
		return ErrLastAdmin
	}
	delete(s.admins, id)
	if s.repo != nil {
		return s.repo.Remove(id)
	}
	return nil
}

// List returns the admins ordered by id.
func (s *Service) List() []Admin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Admin, 0, len(s.admins))
	for _, a := range s.admins {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns the admin chat ids ordered by id.
func (s *Service) IDs() []int64 {
	list := s.List()
	ids := make([]int64, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}
	return ids
}
