package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"storyweaver/internal/account"
	"storyweaver/internal/config"
	"storyweaver/internal/core"
	"storyweaver/internal/playback"
	"storyweaver/internal/store"
)

type fakeGenerator struct {
	draft *core.Draft
	audio []byte
	err   error
}

func (f *fakeGenerator) GenerateStory(ctx context.Context, opts core.StoryOptions) (*core.Draft, error) {
	return f.draft, f.err
}

func (f *fakeGenerator) GenerateAudio(ctx context.Context, text string) ([]byte, error) {
	return f.audio, f.err
}

type nullDevice struct{}

func (nullDevice) Start(sampleRate int) error          { return nil }
func (nullDevice) Play(samples []float64, done func()) { done() }
func (nullDevice) Stop()                               {}

func newTestServer(t *testing.T, gen *fakeGenerator) *httptest.Server {
	t.Helper()
	config.AppConfig.JWTSecret = "test-secret"

	dir := t.TempDir()
	storyStore := store.NewStoryStore(filepath.Join(dir, "stories.db"))
	t.Cleanup(func() { _ = storyStore.Close() })

	handler := NewAPIHandler(
		core.NewStoryService(storyStore, gen),
		account.NewFileStore(filepath.Join(dir, "accounts.json")),
		account.NewSession(filepath.Join(dir, "session.json")),
		playback.NewController(nullDevice{}),
	)
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func signup(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/signup", "", map[string]string{
		"username": username, "password": "secret", "name": "آلیس",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestSignupAndLogin(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})

	signup(t, srv, "alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/signup", "", map[string]string{
		"username": "alice", "password": "other", "name": "x",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/login", "", map[string]string{
		"username": "alice", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/login", "", map[string]string{
		"username": "alice", "password": "secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The persisted session reflects the login.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/session", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decodeBody[map[string]any](t, resp)
	require.Equal(t, "alice", session["username"])
}

func TestLogoutClearsSession(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})
	token := signup(t, srv, "alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/logout", token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/session", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStoriesRequireAuth(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/stories", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/stories", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGenerateSaveListDelete(t *testing.T) {
	gen := &fakeGenerator{draft: &core.Draft{Title: "گربه پرنده", Content: "روزی روزگاری **گربه‌ای** بود..."}}
	srv := newTestServer(t, gen)
	token := signup(t, srv, "alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/generate", token, map[string]string{
		"prompt": "گربه‌ای که می‌خواست پرواز کند", "genre": "FANTASY", "age_group": "7-12", "length": "short",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	draft := decodeBody[core.Draft](t, resp)
	require.Equal(t, "گربه پرنده", draft.Title)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/stories", token, map[string]any{
		"title": draft.Title, "content": draft.Content, "genre": "FANTASY",
		"prompt": "گربه‌ای که می‌خواست پرواز کند",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	saved := decodeBody[SaveStoryResponse](t, resp)
	require.NotNil(t, saved.Story)
	require.Len(t, saved.Stories, 1)
	require.Equal(t, saved.Story.ID, saved.Stories[0].ID)
	require.NotZero(t, saved.Story.CreatedAt)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/stories", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stories := decodeBody[[]store.Story](t, resp)
	require.Len(t, stories, 1)
	require.Equal(t, "گربه پرنده", stories[0].Title)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/stories/"+saved.Story.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/stories", token, nil)
	stories = decodeBody[[]store.Story](t, resp)
	require.Empty(t, stories)
}

func TestGenerateValidatesOptions(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})
	token := signup(t, srv, "alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/generate", token, map[string]string{
		"prompt": "x", "genre": "WESTERN", "age_group": "7-12", "length": "short",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/generate", token, map[string]string{
		"prompt": "x", "genre": "FANTASY", "age_group": "7-12", "length": "epic",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGenerateFailureIsBadGateway(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{err: core.ErrGenerationFailed})
	token := signup(t, srv, "alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/generate", token, map[string]string{
		"prompt": "x", "genre": "FANTASY", "age_group": "7-12", "length": "short",
	})
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestNarrateReturnsAudio(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{audio: []byte{0x01, 0x00, 0x02, 0x00}})
	token := signup(t, srv, "alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/generate/audio", token, map[string]string{"text": "سلام"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[NarrateResponse](t, resp)
	require.Equal(t, []byte{0x01, 0x00, 0x02, 0x00}, body.Audio)
}

func TestStoryAudioAndPlayback(t *testing.T) {
	srv := newTestServer(t, &fakeGenerator{})
	token := signup(t, srv, "alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/stories", token, map[string]any{
		"title": "با صدا", "content": "...", "genre": "BEDTIME", "prompt": "p",
		"audio": []byte{0x01, 0x00, 0x02, 0x00},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	saved := decodeBody[SaveStoryResponse](t, resp)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/stories/"+saved.Story.ID+"/audio", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/stories/"+saved.Story.ID+"/play", token, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/playback/stop", token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// A story without narration has no audio to serve or play. Story ids
	// derive from the clock, so give the second save a fresh millisecond.
	time.Sleep(2 * time.Millisecond)
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/stories", token, map[string]any{
		"title": "بی صدا", "content": "...", "genre": "BEDTIME", "prompt": "p",
	})
	silent := decodeBody[SaveStoryResponse](t, resp)
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/stories/"+silent.Story.ID+"/audio", token, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
