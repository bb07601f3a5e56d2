package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	sessionFile = "session.json"
)

// Session is the persisted CLI session: the owner and conversation that
// client commands act on when --owner and --conversation are not given.
type Session struct {
	OwnerID        string `json:"owner_id"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// LoadSession loads the session from a target .recall/session.json.
// Returns nil, nil if no session was saved.
// If overrideDir is non-empty, it is used instead of the default location.
func (m *Manager) LoadSession(overrideDir string) (*Session, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, sessionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session: %w", err)
	}

	state := &Session{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}

	return state, nil
}

// SaveSession persists the session to a target .recall/session.json.
func (m *Manager) SaveSession(state *Session, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil session")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, sessionFile), data, 0o600); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}

	return nil
}

// ClearSession removes the session file. Returns nil if it doesn't exist.
func (m *Manager) ClearSession(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, sessionFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing session: %w", err)
	}

	return nil
}
