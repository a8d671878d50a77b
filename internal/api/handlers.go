package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"storyweaver/internal/account"
	"storyweaver/internal/auth"
	"storyweaver/internal/core"
	"storyweaver/internal/playback"
	"storyweaver/internal/store"
)

type APIHandler struct {
	stories  *core.StoryService
	accounts *account.FileStore
	session  *account.Session
	player   *playback.Controller
}

func NewAPIHandler(stories *core.StoryService, accounts *account.FileStore, session *account.Session, player *playback.Controller) *APIHandler {
	return &APIHandler{
		stories:  stories,
		accounts: accounts,
		session:  session,
		player:   player,
	}
}

// accountView is the API shape of an account, without the credential.
type accountView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

func viewOf(a *account.Account) accountView {
	return accountView{ID: a.ID, Username: a.Username, Name: a.Name}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		username, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		acct, err := h.accounts.Find(username)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for account %s: %v", username, err)
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}
		if acct == nil {
			http.Error(w, "Account not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "accountID", acct.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Name is required", http.StatusBadRequest)
		return
	}

	acct, err := h.accounts.Register(req.Username, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, account.ErrDuplicateLogin) {
			http.Error(w, "Username is already registered", http.StatusConflict)
			return
		}
		log.Printf("Error registering account %s: %v", req.Username, err)
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	// Registration logs the new account in immediately.
	h.session.SetCurrent(acct)
	token, err := auth.GenerateJWT(acct.Username)
	if err != nil {
		log.Printf("Error generating JWT for account %s: %v", acct.Username, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"token":   token,
		"account": viewOf(acct),
	})
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	acct, err := h.accounts.Verify(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredential) {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		log.Printf("Error verifying account %s: %v", req.Username, err)
		http.Error(w, "Failed to verify credentials", http.StatusInternalServerError)
		return
	}

	h.session.SetCurrent(acct)
	token, err := auth.GenerateJWT(acct.Username)
	if err != nil {
		log.Printf("Error generating JWT for account %s: %v", acct.Username, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"token":   token,
		"account": viewOf(acct),
	})
}

func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	h.session.Clear()
	h.player.Stop()
	w.WriteHeader(http.StatusNoContent)
}

// SessionHandler reports the persisted session so a restarted frontend can
// resume without logging in again.
func (h *APIHandler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	acct := h.session.Current()
	if acct == nil {
		http.Error(w, "No active session", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(viewOf(acct))
}

type GenerateRequest struct {
	Prompt   string `json:"prompt"`
	Genre    string `json:"genre"`
	AgeGroup string `json:"age_group"`
	Length   string `json:"length"`
}

func (h *APIHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	opts, err := parseOptions(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	draft, err := h.stories.Generate(r.Context(), opts)
	if err != nil {
		log.Printf("Story generation failed: %v", err)
		http.Error(w, "Story generation failed, please try again", http.StatusBadGateway)
		return
	}
	json.NewEncoder(w).Encode(draft)
}

type NarrateRequest struct {
	Text string `json:"text"`
}

type NarrateResponse struct {
	Audio []byte `json:"audio"` // Base64 in JSON; raw s16le 24 kHz mono PCM
}

func (h *APIHandler) NarrateHandler(w http.ResponseWriter, r *http.Request) {
	var req NarrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "Text is required", http.StatusBadRequest)
		return
	}

	audio, err := h.stories.Narrate(r.Context(), req.Text)
	if err != nil {
		log.Printf("Narration failed: %v", err)
		http.Error(w, "Narration failed, please try again", http.StatusBadGateway)
		return
	}
	json.NewEncoder(w).Encode(NarrateResponse{Audio: audio})
}

func (h *APIHandler) ListStoriesHandler(w http.ResponseWriter, r *http.Request) {
	accountID := r.Context().Value("accountID").(string)
	json.NewEncoder(w).Encode(h.stories.Stories(accountID))
}

type SaveStoryRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Genre    string `json:"genre"`
	Prompt   string `json:"prompt"`
	AgeGroup string `json:"age_group"`
	Length   string `json:"length"`
	Audio    []byte `json:"audio,omitempty"`
}

type SaveStoryResponse struct {
	Story   *store.Story  `json:"story"`
	Stories []store.Story `json:"stories"`
}

func (h *APIHandler) SaveStoryHandler(w http.ResponseWriter, r *http.Request) {
	accountID := r.Context().Value("accountID").(string)

	var req SaveStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.Content == "" {
		http.Error(w, "Title and content are required", http.StatusBadRequest)
		return
	}
	genre, err := core.ParseGenre(req.Genre)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := core.StoryOptions{Prompt: req.Prompt, Genre: genre, AgeGroup: req.AgeGroup}
	story, stories, err := h.stories.Save(accountID, core.Draft{Title: req.Title, Content: req.Content}, opts, req.Audio)
	if err != nil {
		log.Printf("Error saving story for account %s: %v", accountID, err)
		http.Error(w, "Failed to save story", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SaveStoryResponse{Story: story, Stories: stories})
}

func (h *APIHandler) DeleteStoryHandler(w http.ResponseWriter, r *http.Request) {
	accountID := r.Context().Value("accountID").(string)
	storyID := chi.URLParam(r, "storyID")

	stories := h.stories.Delete(accountID, storyID)
	json.NewEncoder(w).Encode(map[string]any{"stories": stories})
}

// StoryAudioHandler serves the stored narration as WAV so a browser <audio>
// element can play it without knowing the raw PCM contract.
func (h *APIHandler) StoryAudioHandler(w http.ResponseWriter, r *http.Request) {
	accountID := r.Context().Value("accountID").(string)
	storyID := chi.URLParam(r, "storyID")

	story, ok := h.stories.Story(accountID, storyID)
	if !ok || len(story.Audio) == 0 {
		http.Error(w, "No narration for this story", http.StatusNotFound)
		return
	}

	wav, err := playback.WAV(story.Audio)
	if err != nil {
		log.Printf("Stored narration for story %s is malformed: %v", storyID, err)
		http.Error(w, "Stored narration is malformed", http.StatusUnprocessableEntity)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Write(wav)
}

// PlayStoryHandler starts narration playback on the host's speakers,
// replacing whatever was playing.
func (h *APIHandler) PlayStoryHandler(w http.ResponseWriter, r *http.Request) {
	accountID := r.Context().Value("accountID").(string)
	storyID := chi.URLParam(r, "storyID")

	story, ok := h.stories.Story(accountID, storyID)
	if !ok || len(story.Audio) == 0 {
		http.Error(w, "No narration for this story", http.StatusNotFound)
		return
	}

	if _, err := h.player.Play(story.Audio); err != nil {
		if errors.Is(err, playback.ErrMalformedAudio) {
			http.Error(w, "Stored narration is malformed", http.StatusUnprocessableEntity)
			return
		}
		log.Printf("Error playing story %s: %v", storyID, err)
		http.Error(w, "Failed to start playback", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *APIHandler) StopPlaybackHandler(w http.ResponseWriter, r *http.Request) {
	h.player.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func parseOptions(req GenerateRequest) (core.StoryOptions, error) {
	if req.Prompt == "" {
		return core.StoryOptions{}, errors.New("prompt is required")
	}
	genre, err := core.ParseGenre(req.Genre)
	if err != nil {
		return core.StoryOptions{}, err
	}
	length, err := core.ParseLength(req.Length)
	if err != nil {
		return core.StoryOptions{}, err
	}
	if req.AgeGroup == "" {
		return core.StoryOptions{}, errors.New("age_group is required")
	}
	return core.StoryOptions{
		Prompt:   req.Prompt,
		Genre:    genre,
		AgeGroup: req.AgeGroup,
		Length:   length,
	}, nil
}
