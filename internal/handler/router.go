package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/teamtrack/teamtrack-api/internal/auth"
	"github.com/teamtrack/teamtrack-api/internal/service"
	"github.com/teamtrack/teamtrack-api/internal/storage"
)

type Deps struct {
	Logger      *zap.Logger
	Tasks       *service.TaskService
	Articles    *service.ArticleService
	Users       *service.UserService
	Tokens      *auth.TokenManager
	AuthMW      *auth.Middleware
	Blobs       *storage.Local
	CORSOrigins []string
}

// NewRouter собирает все маршруты API; используется и в main, и в e2e-тестах
func NewRouter(d Deps) *chi.Mux {
	authHandler := NewAuthHandler(d.Users, d.Tokens, d.Logger)
	userHandler := NewUserHandler(d.Users, d.Logger)
	adminHandler := NewAdminHandler(d.Users, d.Logger)
	taskHandler := NewTaskHandler(d.Tasks, d.Logger)
	articleHandler := NewArticleHandler(d.Articles, d.Logger)
	imageHandler := NewImageHandler(d.Blobs, d.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok"}`)
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
		})

		r.Get("/images/{file}", imageHandler.Serve)

		// все остальное - только для аутентифицированных
		r.Group(func(r chi.Router) {
			r.Use(d.AuthMW.RequireUser)

			r.Route("/user", func(r chi.Router) {
				r.Get("/profile", userHandler.Profile)
				r.Put("/profile", userHandler.UpdateProfile)
				r.Get("/search", userHandler.Search)
				r.Get("/{id}", userHandler.Get)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireElevated)
				r.Get("/users", adminHandler.ListUsers)
				r.Put("/users/{id}", adminHandler.UpdateUser)
				r.Put("/users/{id}/password", adminHandler.SetPassword)
				r.Delete("/users/{id}", adminHandler.DeleteUser)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", taskHandler.Create)
				r.Get("/my", taskHandler.Mine)
				r.Get("/shift", taskHandler.ByShift)

				r.Route("/{id}", func(r chi.Router) {
					r.Put("/", taskHandler.Update)
					r.Delete("/", taskHandler.Delete)
					r.Post("/restore", taskHandler.Restore)
					r.Patch("/reassign", taskHandler.Reassign)
					r.Get("/history", taskHandler.History)
				})
			})

			r.Route("/articles", func(r chi.Router) {
				r.Get("/", articleHandler.List)
				r.Post("/", articleHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Put("/", articleHandler.Update)
					r.Delete("/", articleHandler.Delete)
					r.Post("/restore", articleHandler.Restore)
					r.Get("/history", articleHandler.History)
				})
			})
		})
	})

	return r
}
