package account

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
)

// Session is the single-slot "currently logged in account" holder. The slot
// is persisted to a JSON file so a process restart restores the session; it
// has no expiry and at most one account occupies it at a time.
type Session struct {
	path string

	mu      sync.Mutex
	current *Account
}

// NewSession loads the persisted session, if any. An unreadable session file
// is treated as "not logged in".
func NewSession(path string) *Session {
	s := &Session{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("Failed to read session file: %v", err)
		}
		return s
	}
	var acct Account
	if err := json.Unmarshal(data, &acct); err != nil {
		log.Printf("Failed to parse session file, discarding it: %v", err)
		return s
	}
	s.current = &acct
	return s
}

// Current returns the logged-in account, or nil if there is none.
func (s *Session) Current() *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetCurrent records the account as the active session and persists it.
func (s *Session) SetCurrent(acct *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = acct

	data, err := json.Marshal(acct)
	if err != nil {
		log.Printf("Failed to marshal session: %v", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		log.Printf("Failed to persist session: %v", err)
	}
}

// Clear forgets the active session and removes the persisted copy.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to remove session file: %v", err)
	}
}
