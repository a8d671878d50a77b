package core

import (
	"context"
	"strconv"
	"time"

	"storyweaver/internal/store"
)

// Generator produces story text and narration audio. Satisfied by LLMService.
type Generator interface {
	GenerateStory(ctx context.Context, opts StoryOptions) (*Draft, error)
	GenerateAudio(ctx context.Context, text string) ([]byte, error)
}

// StoryService orchestrates generation and the per-account story library.
// After every write it re-reads the full list from the repository, which
// stays the single source of truth (no optimistic local merge).
type StoryService struct {
	stories *store.StoryStore
	llm     Generator
}

func NewStoryService(st *store.StoryStore, llm Generator) *StoryService {
	return &StoryService{
		stories: st,
		llm:     llm,
	}
}

func (s *StoryService) Generate(ctx context.Context, opts StoryOptions) (*Draft, error) {
	return s.llm.GenerateStory(ctx, opts)
}

func (s *StoryService) Narrate(ctx context.Context, text string) ([]byte, error) {
	return s.llm.GenerateAudio(ctx, text)
}

// Save persists a generated draft as a story record owned by the account and
// returns the record along with the refreshed library.
func (s *StoryService) Save(accountID string, draft Draft, opts StoryOptions, audio []byte) (*store.Story, []store.Story, error) {
	now := time.Now()
	story := &store.Story{
		ID:        strconv.FormatInt(now.UnixMilli(), 10),
		AccountID: accountID,
		Title:     draft.Title,
		Content:   draft.Content,
		Genre:     string(opts.Genre),
		Prompt:    opts.Prompt,
		CreatedAt: now.UnixMilli(),
		Audio:     audio,
	}
	if err := s.stories.UpsertStory(story); err != nil {
		return nil, nil, err
	}
	return story, s.stories.StoriesByAccount(accountID), nil
}

// Stories lists the account's library, newest first.
func (s *StoryService) Stories(accountID string) []store.Story {
	return s.stories.StoriesByAccount(accountID)
}

// Story looks up one of the account's stories by id. Records owned by other
// accounts are invisible.
func (s *StoryService) Story(accountID, id string) (*store.Story, bool) {
	for _, st := range s.stories.StoriesByAccount(accountID) {
		if st.ID == id {
			return &st, true
		}
	}
	return nil, false
}

// Delete removes the story if the account owns it and returns the refreshed
// library. Deleting an unknown or foreign id is a no-op.
func (s *StoryService) Delete(accountID, id string) []store.Story {
	if _, ok := s.Story(accountID, id); ok {
		s.stories.DeleteStory(id)
	}
	return s.stories.StoriesByAccount(accountID)
}
