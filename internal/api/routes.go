package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	// Burst of 100 deletes, then a sustained 10/second
	deleteRateLimiter := NewDeleteRateLimiter(100, 100*time.Millisecond)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health", h.Health)

		// Protected routes (auth required)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.apiKey))
			r.Use(UserMiddleware(h.session))

			r.Get("/session", h.GetSession)
			r.Post("/session", h.SignIn)
			r.Delete("/session", h.SignOut)

			r.Get("/productivity", h.Productivity)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", h.ListTasks)
				r.Post("/", h.CreateTask)
				r.Get("/{id}", h.GetTask)
				r.Patch("/{id}", h.UpdateTask)
				r.With(deleteRateLimiter.Middleware).Delete("/{id}", h.DeleteTask)
				r.Post("/{id}/complete", h.taskAction(h.tasks.Complete))
				r.Post("/{id}/archive", h.taskAction(h.tasks.Archive))
				r.Post("/{id}/pause", h.taskAction(h.tasks.Pause))
				r.Post("/{id}/reactivate", h.taskAction(h.tasks.Reactivate))
				r.Get("/{id}/sessions", h.TaskSessions)
			})

			r.Route("/notes", func(r chi.Router) {
				r.Get("/", h.ListNotes)
				r.Post("/", h.CreateNote)
				r.Patch("/{id}", h.UpdateNote)
				r.With(deleteRateLimiter.Middleware).Delete("/{id}", h.DeleteNote)
			})

			r.Route("/goals", func(r chi.Router) {
				r.Get("/", h.ListGoals)
				r.Post("/", h.CreateGoal)
				r.Patch("/{id}", h.UpdateGoal)
				r.With(deleteRateLimiter.Middleware).Delete("/{id}", h.DeleteGoal)
				r.Post("/{id}/progress", h.UpdateGoalProgress)
				r.Post("/{id}/sessions", h.CompleteGoalSession)
				r.Post("/{id}/milestones/{milestoneID}", h.UpdateMilestone)
				r.Post("/{id}/financial", h.UpdateFinancialProgress)
				r.Post("/{id}/archive", h.goalAction(h.goals.Archive))
				r.Post("/{id}/pause", h.goalAction(h.goals.Pause))
				r.Post("/{id}/reactivate", h.goalAction(h.goals.Reactivate))
			})

			r.Get("/focus", h.GetFocus)
			r.Post("/focus/start", h.StartFocus)
			r.Post("/focus/stop", h.StopFocus)
			r.Post("/focus/deselect", h.DeselectFocus)

			r.Get("/insights", h.ListInsights)
			r.Post("/insights/generate", h.GenerateInsights)
			r.Post("/insights/{id}/dismiss", h.DismissInsight)

			r.Get("/sync/status", h.SyncStatus)
			r.Post("/sync", h.SyncNow)
			r.Post("/sync/events", h.SyncEvent)
		})
	})

	return r
}
