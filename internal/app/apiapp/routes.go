package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/milanapp/engine/internal/config"
	pgrepo "github.com/milanapp/engine/internal/repo/postgres"
	authsvc "github.com/milanapp/engine/internal/services/auth"
	contactssvc "github.com/milanapp/engine/internal/services/contacts"
	interestssvc "github.com/milanapp/engine/internal/services/interests"
	quotasvc "github.com/milanapp/engine/internal/services/quota"
	reconsidersvc "github.com/milanapp/engine/internal/services/reconsider"
	"github.com/milanapp/engine/internal/transport/http/handlers"
)

type Dependencies struct {
	InterestService   *interestssvc.Service
	ContactService    *contactssvc.Service
	ReconsiderService *reconsidersvc.Service
	QuotaService      *quotasvc.Service
	NotificationRepo  *pgrepo.NotificationRepo
	JWTManager        *authsvc.JWTManager
	Logger            *zap.Logger
	Config            config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	interestHandler := handlers.NewInterestHandler(deps.InterestService)
	contactHandler := handlers.NewContactHandler(deps.ContactService)
	reconsiderHandler := handlers.NewReconsiderHandler(deps.ReconsiderService)
	quotaHandler := handlers.NewQuotaHandler(deps.QuotaService)
	notificationsHandler := handlers.NewNotificationsHandler(deps.NotificationRepo)
	authMW := AuthMiddleware(deps.JWTManager, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMW)

		r.Route("/interests", func(r chi.Router) {
			r.Post("/", interestHandler.Express)
			r.Get("/{id}", interestHandler.Get)
			r.Post("/{id}/accept", interestHandler.Accept)
			r.Post("/{id}/decline", interestHandler.Decline)
			r.Post("/{id}/cancel", interestHandler.Cancel)
			r.Post("/{id}/revoke", interestHandler.Revoke)
			r.Post("/{id}/block", interestHandler.Block)
			r.Post("/{id}/undo-decline", interestHandler.UndoDecline)
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Post("/", contactHandler.Create)
			r.Get("/{id}", contactHandler.Get)
			r.Post("/{id}/accept", contactHandler.Accept)
			r.Post("/{id}/decline", contactHandler.Decline)
			r.Post("/{id}/cancel", contactHandler.Cancel)
			r.Post("/{id}/revoke", contactHandler.Revoke)
			r.Post("/{id}/undo-decline", contactHandler.UndoDecline)
			r.Post("/{id}/viewed", contactHandler.MarkViewed)
		})

		r.Post("/reconsider", reconsiderHandler.Handle)
		r.Get("/quota", quotaHandler.Handle)
		r.Get("/notifications", notificationsHandler.List)
	})
}
