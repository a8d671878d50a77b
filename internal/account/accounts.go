package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
)

var (
	// ErrDuplicateLogin reports a registration with an already-taken username.
	ErrDuplicateLogin = errors.New("username already registered")
	// ErrInvalidCredential reports a login with an unknown username or a
	// wrong password.
	ErrInvalidCredential = errors.New("invalid username or password")
)

// Account is a registered user. Accounts are immutable after registration
// and are never deleted.
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"` // Stored as-is; see FileStore doc
	Name     string `json:"name"`
}

// FileStore keeps all registered accounts in a single JSON file. The file is
// read and rewritten in full on every mutation; the service runs single-user,
// so there is no concurrent writer to guard against.
//
// Passwords are compared and stored in plain text. That matches the behavior
// this service replaces and is a known security gap, kept deliberately so
// login semantics stay identical.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() ([]Account, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Account{}, nil
		}
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}
	var accounts []Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file: %w", err)
	}
	return accounts, nil
}

func (s *FileStore) save(accounts []Account) error {
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write accounts file: %w", err)
	}
	return nil
}

// Register creates a new account. The username match is exact and
// case-sensitive.
func (s *FileStore) Register(username, password, name string) (*Account, error) {
	accounts, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.Username == username {
			return nil, ErrDuplicateLogin
		}
	}

	acct := Account{
		ID:       uuid.NewString(),
		Username: username,
		Password: password,
		Name:     name,
	}
	accounts = append(accounts, acct)
	if err := s.save(accounts); err != nil {
		return nil, err
	}
	return &acct, nil
}

// Find returns the account with the given username, or nil if none exists.
func (s *FileStore) Find(username string) (*Account, error) {
	accounts, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, nil
}

// Verify checks the username/password pair by exact equality and returns
// ErrInvalidCredential on any mismatch, without distinguishing an unknown
// username from a wrong password.
func (s *FileStore) Verify(username, password string) (*Account, error) {
	acct, err := s.Find(username)
	if err != nil {
		return nil, err
	}
	if acct == nil || acct.Password != password {
		return nil, ErrInvalidCredential
	}
	return acct, nil
}
