package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/taskman-api/internal/api"
	apimiddleware "github.com/phrazzld/taskman-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.Trace)

	userHandler := api.NewUserHandler(
		app.userStore,
		app.taskStore,
		app.db,
		app.jwtService,
		app.passwordHasher,
		app.passwordVerifier,
		app.mailer,
		app.avatars,
	)
	taskHandler := api.NewTaskHandler(app.taskStore)
	authMiddleware := apimiddleware.NewAuthMiddleware(app.jwtService, app.userStore)

	// Public endpoints
	r.Post("/users", userHandler.Register)
	r.Post("/users/login", userHandler.Login)

	// Protected endpoints
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/users/logout", userHandler.Logout)
		r.Post("/users/logoutAll", userHandler.LogoutAll)

		r.Get("/users/me", userHandler.Me)
		r.Patch("/users/me", userHandler.UpdateMe)
		r.Delete("/users/me", userHandler.DeleteMe)

		r.Get("/users/me/avatar", userHandler.GetAvatar)
		r.Post("/users/me/avatar", userHandler.UploadAvatar)
		r.Delete("/users/me/avatar", userHandler.DeleteAvatar)

		r.Post("/tasks", taskHandler.Create)
		r.Get("/tasks", taskHandler.List)
		r.Get("/tasks/{id}", taskHandler.Get)
		r.Patch("/tasks/{id}", taskHandler.Update)
		r.Delete("/tasks/{id}", taskHandler.Delete)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
