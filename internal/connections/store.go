package connections

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/oauth2"
)

const recordsFile = "connections.json"

// store persists connection records and tokens below dir.
type store struct {
	mu  sync.Mutex
	dir string
}

func newStore(dir string) *store {
	return &store{dir: dir}
}

func (s *store) recordsPath() string {
	return filepath.Join(s.dir, recordsFile)
}

func (s *store) tokenPath(id string) string {
	return filepath.Join(s.dir, id+".token")
}

func (s *store) load() (map[string]Connection, error) {
	data, err := os.ReadFile(s.recordsPath())
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Connection{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read connections: %w", err)
	}

	records := map[string]Connection{}
	if len(data) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse connections: %w", err)
	}
	return records, nil
}

func (s *store) write(records map[string]Connection) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode connections: %w", err)
	}

	tmp := s.recordsPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write connections: %w", err)
	}
	return os.Rename(tmp, s.recordsPath())
}

func (s *store) get(id string) (Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return Connection{}, err
	}
	c, ok := records[id]
	if !ok {
		return Connection{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

func (s *store) put(c Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records[c.ID] = c
	return s.write(records)
}

// list returns the records of userID ordered by creation time.
func (s *store) list(userID string, filter Filter) ([]Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}

	var out []Connection
	for _, c := range records {
		if userID != "" && c.UserID != userID {
			continue
		}
		if filter.matches(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *store) saveToken(id string, tok *oauth2.Token) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	f, err := os.OpenFile(s.tokenPath(id), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

func (s *store) loadToken(id string) (*oauth2.Token, error) {
	f, err := os.Open(s.tokenPath(id))
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer f.Close()

	tok := new(oauth2.Token)
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return tok, nil
}
