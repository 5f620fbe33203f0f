package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/middleware"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()
	sessions := middleware.SessionMiddleware(SessionInfo{})

	r.Post("/login", LoginHandler)

	r.Group(func(r chi.Router) {
		r.Use(sessions)
		r.Post("/logout", LogoutHandler)
		r.Get("/me", MeHandler)
		r.Post("/password", UpdatePasswordHandler)
	})

	r.Group(func(r chi.Router) {
		r.Use(sessions)
		r.Use(middleware.AdminMiddleware)
		r.Post("/register", RegisterHandler)
	})

	return r
}
