package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/signup", apiHandler.SignupHandler)
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/session", apiHandler.SessionHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			r.Post("/logout", apiHandler.LogoutHandler)

			// Generation routes
			r.Post("/generate", apiHandler.GenerateHandler)
			r.Post("/generate/audio", apiHandler.NarrateHandler)

			// Story library routes
			r.Get("/stories", apiHandler.ListStoriesHandler)
			r.Post("/stories", apiHandler.SaveStoryHandler)
			r.Delete("/stories/{storyID}", apiHandler.DeleteStoryHandler)
			r.Get("/stories/{storyID}/audio", apiHandler.StoryAudioHandler)

			// Host-side playback routes
			r.Post("/stories/{storyID}/play", apiHandler.PlayStoryHandler)
			r.Post("/playback/stop", apiHandler.StopPlaybackHandler)
		})
	})

	return r
}
