package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/minechat-api/internal/application/chat"
	"github.com/minechat-api/internal/application/otp"
	"github.com/minechat-api/internal/application/relay"
	"github.com/minechat-api/internal/application/reset"
	"github.com/minechat-api/internal/application/token"
	"github.com/minechat-api/internal/config"
	"github.com/minechat-api/internal/domain"
	"github.com/minechat-api/internal/transport/http/handler"
	appmiddleware "github.com/minechat-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// A typed-nil *Archive must not reach the relay as a non-nil interface.
	var archiver relay.Archiver
	if deps.Archive != nil {
		archiver = deps.Archive
	}

	otpSvc := otp.NewService(deps.OTPRepo, deps.ResetSessionRepo, deps.MailRepo)
	resetSvc := reset.NewService(deps.ResetSessionRepo, deps.AccountRepo)
	tokenSvc := token.NewService(deps.PageTokenRepo, deps.UserTokenRepo, deps.Graph, deps.Alerts)
	relaySvc := relay.NewService(deps.MessageRepo, deps.ConversationRepo, deps.AccountRepo,
		deps.PageTokenRepo, deps.Graph, archiver)
	chatSvc := chat.NewService(deps.OpenAI)

	healthH := handler.NewHealthHandler()
	otpH := handler.NewOTPHandler(otpSvc)
	resetH := handler.NewResetHandler(resetSvc)
	chatH := handler.NewChatHandler(chatSvc)
	webhookH := handler.NewWebhookHandler(relaySvc, cfg.FBVerifyToken)
	fbH := handler.NewFacebookHandler(tokenSvc, relaySvc)

	// 5 requests/second, burst of 10 — applied to the OTP and reset endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.With(sensitiveRL.Limit).Post("/auth/otp/{action}", otpH.Action)
		r.With(sensitiveRL.Limit).Post("/auth/password/reset", resetH.Reset)

		r.Post("/chat/completions", chatH.Completions)

		r.Get("/facebook/webhook", webhookH.Verify)
		r.Post("/facebook/webhook", webhookH.Deliver)
		r.Post("/facebook/messages/send", fbH.SendMessage)
		r.Post("/facebook/conversations/delete", fbH.DeleteConversation)
		r.Post("/facebook/connect", fbH.Connect)

		// Token management is admin-only when a JWT provider is configured;
		// without key files the endpoints stay open for local development.
		if deps.JWTProvider != nil {
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.Auth(deps.JWTProvider))
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))
				r.Post("/facebook/tokens/{action}", fbH.TokenAction)
			})
		} else {
			r.Post("/facebook/tokens/{action}", fbH.TokenAction)
		}
	})

	return r
}
