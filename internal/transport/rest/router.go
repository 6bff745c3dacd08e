package rest

import (
	"log/slog"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal/auth"
	"github.com/frahmantamala/plant-maintenance/internal/dashboard"
	"github.com/frahmantamala/plant-maintenance/internal/employee"
	"github.com/frahmantamala/plant-maintenance/internal/machine"
	"github.com/frahmantamala/plant-maintenance/internal/metrics"
	"github.com/frahmantamala/plant-maintenance/internal/notification"
	"github.com/frahmantamala/plant-maintenance/internal/part"
	"github.com/frahmantamala/plant-maintenance/internal/store"
	"github.com/frahmantamala/plant-maintenance/internal/task"
	"github.com/frahmantamala/plant-maintenance/internal/transport/middleware"
	"github.com/frahmantamala/plant-maintenance/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups everything the router mounts. Nil handlers leave their routes unmounted.
type Handlers struct {
	Health       *HealthHandler
	Auth         *auth.Handler
	RBAC         *auth.RBACAuthorization
	Employee     *employee.Handler
	Machine      *machine.Handler
	Part         *part.Handler
	Task         *task.Handler
	Dashboard    *dashboard.Handler
	Notification *notification.Handler
	Websocket    *store.WebsocketHandler
}

type Options struct {
	AllowedOrigins []string
	LoginRequests  int
	LoginWindow    time.Duration
	MetricsEnabled bool
	MetricsPath    string
	OpenAPI        []byte
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options, logger *slog.Logger) {
	if h.Health == nil {
		h.Health = NewHealthHandler(nil)
	}
	if h.RBAC == nil {
		h.RBAC = auth.NewRBACAuthorization(nil, logger)
	}
	rbac := h.RBAC

	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	if opts.MetricsEnabled {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Use(middleware.Metrics)
		router.Handle(path, metrics.Handler())
	}

	if len(opts.OpenAPI) > 0 {
		router.Get(swagger.SpecPath, swagger.SpecHandler(opts.OpenAPI))
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.LoggingMiddleware(logger))

		r.Get("/health", h.Health.healthCheckHandler)
		r.Get("/ping", h.Health.pingHandler)

		if h.Auth == nil {
			return
		}

		r.Route("/auth", func(sr chi.Router) {
			sr.With(middleware.LoginRateLimit(opts.LoginRequests, opts.LoginWindow)).Post("/login", h.Auth.Login)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/users/me", h.Auth.Me)

			if h.Websocket != nil {
				pr.Get("/ws", h.Websocket.Subscribe)
			}

			if h.Employee != nil {
				pr.Route("/employees", func(er chi.Router) {
					er.Patch("/me", h.Employee.UpdateMe)

					er.Group(func(mr chi.Router) {
						mr.Use(rbac.RequireCapability(auth.ResourceEmployees))
						mr.Get("/", h.Employee.ListEmployees)
						mr.Post("/", h.Employee.CreateEmployee)
						mr.Get("/{id}", h.Employee.GetEmployee)
						mr.Patch("/{id}", h.Employee.UpdateEmployee)
						mr.Delete("/{id}", h.Employee.DeleteEmployee)
					})
				})
			}

			if h.Machine != nil {
				pr.Route("/machines", func(mr chi.Router) {
					mr.Get("/", h.Machine.ListMachines)
					mr.Get("/{id}", h.Machine.GetMachine)

					mr.Group(func(wr chi.Router) {
						wr.Use(rbac.RequireCapability(auth.ResourceMachines))
						wr.Post("/", h.Machine.CreateMachine)
						wr.Patch("/{id}", h.Machine.UpdateMachine)
						wr.Delete("/{id}", h.Machine.DeleteMachine)
					})
				})
			}

			if h.Part != nil {
				pr.Route("/parts", func(ptr chi.Router) {
					ptr.With(rbac.RequirePartsView()).Get("/", h.Part.ListParts)
					ptr.With(rbac.RequirePartsView()).Get("/{id}", h.Part.GetPart)

					ptr.Group(func(wr chi.Router) {
						wr.Use(rbac.RequireCapability(auth.ResourceParts))
						wr.Post("/", h.Part.CreatePart)
						wr.Patch("/{id}", h.Part.UpdatePart)
						wr.Delete("/{id}", h.Part.DeletePart)
					})
				})
			}

			if h.Task != nil {
				pr.Route("/tasks", func(tr chi.Router) {
					tr.Get("/", h.Task.ListTasks)
					tr.With(rbac.RequireCapability(auth.ResourceTasks)).Post("/", h.Task.CreateTask)
					tr.Get("/stats", h.Task.TaskStats)
					tr.Get("/history", h.Task.TaskHistory)

					tr.Get("/{id}", h.Task.GetTask)
					tr.Get("/{id}/transitions", h.Task.GetTransitions)
					tr.Post("/{id}/transitions", h.Task.TransitionTask)

					// only Admin or the assigning Manager may edit; the service checks the assigner
					tr.Group(func(mr chi.Router) {
						mr.Use(rbac.RequireRole(auth.RoleManager))
						mr.Patch("/{id}", h.Task.UpdateTask)
						mr.Delete("/{id}", h.Task.DeleteTask)
						mr.Put("/{id}/rating", h.Task.RateTask)
					})
				})
			}

			if h.Dashboard != nil {
				pr.Get("/dashboard", h.Dashboard.GetDashboard)
			}

			if h.Notification != nil {
				pr.Get("/notifications", h.Notification.ListNotifications)
				pr.Post("/notifications/{id}/read", h.Notification.MarkRead)
			}
		})
	})
}
