package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"prepmic/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

const sessionsFile = "sessions.json"

// ProfileStore persists interview session records as a JSON document on
// disk. Records are read, mutated, and written back whole; an update never
// partially overwrites unrelated fields.
type ProfileStore struct {
	dir string

	mu sync.Mutex
}

func NewProfileStore(dir string) (*ProfileStore, error) {
	if dir == "" {
		return nil, errors.New("profile store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile store directory: %w", err)
	}
	return &ProfileStore{dir: dir}, nil
}

func (s *ProfileStore) Get(id string) (domain.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return domain.InterviewSession{}, err
	}
	for _, session := range sessions {
		if session.ID == id {
			return session, nil
		}
	}
	return domain.InterviewSession{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
}

func (s *ProfileStore) Upsert(session domain.InterviewSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range sessions {
		if existing.ID == session.ID {
			sessions[i] = session
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append(sessions, session)
	}
	return s.save(sessions)
}

func (s *ProfileStore) List() ([]domain.InterviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
	return sessions, nil
}

func (s *ProfileStore) load() ([]domain.InterviewSession, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, sessionsFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session store: %w", err)
	}

	var sessions []domain.InterviewSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("decode session store: %w", err)
	}
	return sessions, nil
}

func (s *ProfileStore) save(sessions []domain.InterviewSession) error {
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session store: %w", err)
	}

	path := filepath.Join(s.dir, sessionsFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session store: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace session store: %w", err)
	}
	return nil
}
