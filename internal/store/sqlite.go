package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// ErrStorageUnavailable reports that the underlying database could not be
// opened or rejected an operation.
var ErrStorageUnavailable = errors.New("story storage unavailable")

// StoryStore persists Story records in SQLite. The database handle is opened
// lazily on first use and cached for the lifetime of the process.
type StoryStore struct {
	dsn string

	once    sync.Once
	db      *sql.DB
	openErr error
}

func NewStoryStore(dataSourceName string) *StoryStore {
	return &StoryStore{dsn: dataSourceName}
}

func (s *StoryStore) open() (*sql.DB, error) {
	s.once.Do(func() {
		db, err := sql.Open("sqlite3", s.dsn)
		if err != nil {
			s.openErr = fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
			return
		}
		if err = db.Ping(); err != nil {
			db.Close()
			s.openErr = fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
			return
		}
		if _, err = db.Exec(schema); err != nil {
			db.Close()
			s.openErr = fmt.Errorf("%w: failed to initialize schema: %v", ErrStorageUnavailable, err)
			return
		}
		s.db = db
	})
	return s.db, s.openErr
}

const schema = `
    CREATE TABLE IF NOT EXISTS stories (
        id TEXT PRIMARY KEY,
        account_id TEXT NOT NULL,
        title TEXT NOT NULL,
        content TEXT NOT NULL,
        genre TEXT NOT NULL,
        prompt TEXT NOT NULL,
        created_at INTEGER NOT NULL,
        audio BLOB
    );

    CREATE INDEX IF NOT EXISTS idx_stories_account ON stories (account_id, created_at DESC);
    `

func (s *StoryStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StoriesByAccount returns the account's stories, newest first. Storage
// failures degrade to an empty list: the caller sees an empty library
// instead of an error.
func (s *StoryStore) StoriesByAccount(accountID string) []Story {
	db, err := s.open()
	if err != nil {
		log.Printf("StoriesByAccount: %v", err)
		return []Story{}
	}

	rows, err := db.Query(
		"SELECT id, account_id, title, content, genre, prompt, created_at, audio FROM stories WHERE account_id = ? ORDER BY created_at DESC, id DESC",
		accountID)
	if err != nil {
		log.Printf("StoriesByAccount: failed to query stories: %v", err)
		return []Story{}
	}
	defer rows.Close()

	stories := []Story{}
	for rows.Next() {
		var st Story
		if err := rows.Scan(&st.ID, &st.AccountID, &st.Title, &st.Content, &st.Genre, &st.Prompt, &st.CreatedAt, &st.Audio); err != nil {
			log.Printf("StoriesByAccount: failed to scan story row: %v", err)
			return []Story{}
		}
		stories = append(stories, st)
	}
	if err := rows.Err(); err != nil {
		log.Printf("StoriesByAccount: row iteration failed: %v", err)
		return []Story{}
	}
	return stories
}

// UpsertStory inserts the record or overwrites an existing one with the
// same id. Unlike reads, a failed write is reported to the caller.
func (s *StoryStore) UpsertStory(story *Story) error {
	db, err := s.open()
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        INSERT INTO stories (id, account_id, title, content, genre, prompt, created_at, audio)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            account_id = excluded.account_id,
            title = excluded.title,
            content = excluded.content,
            genre = excluded.genre,
            prompt = excluded.prompt,
            created_at = excluded.created_at,
            audio = excluded.audio
    `, story.ID, story.AccountID, story.Title, story.Content, story.Genre, story.Prompt, story.CreatedAt, story.Audio)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert story %s: %v", ErrStorageUnavailable, story.ID, err)
	}
	return nil
}

// DeleteStory removes the record if present; deleting an absent id is a
// no-op. Best effort: the UI has already dropped the story from view, so
// failures are logged and swallowed.
func (s *StoryStore) DeleteStory(id string) {
	db, err := s.open()
	if err != nil {
		log.Printf("DeleteStory: %v", err)
		return
	}

	if _, err := db.Exec("DELETE FROM stories WHERE id = ?", id); err != nil {
		log.Printf("DeleteStory: failed to delete story %s: %v", id, err)
	}
}
