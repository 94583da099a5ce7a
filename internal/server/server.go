package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/mikanbako/pocketquest/internal/auth"
	"github.com/mikanbako/pocketquest/internal/config"
	"github.com/mikanbako/pocketquest/internal/handler"
	"github.com/mikanbako/pocketquest/internal/middleware"
	"github.com/mikanbako/pocketquest/internal/push"
	"github.com/mikanbako/pocketquest/internal/store"
	ws "github.com/mikanbako/pocketquest/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	issuer      *auth.TokenIssuer
	authH       *handler.AuthHandler
	familyH     *handler.FamilyHandler
	taskH       *handler.TaskHandler
	ruleH       *handler.RateRuleHandler
	eventH      *handler.EventHandler
	exchangeH   *handler.ExchangeHandler
	ledgerH     *handler.LedgerHandler
	statsH      *handler.StatsHandler
	pushH       *handler.PushHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)

	userStore := store.NewUserStore(db)
	taskStore := store.NewTaskStore(db)
	ruleStore := store.NewRateRuleStore(db)
	eventStore := store.NewEventStore(db)
	txStore := store.NewTransactionStore(db)
	settingsStore := store.NewSettingsStore(db)
	pushStore := store.NewPushStore(db)

	pushSvc := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject)
	notifier := push.NewNotifier(pushSvc, pushStore, logger.With("component", "push"))

	return &Server{
		db:          db,
		hub:         hub,
		issuer:      issuer,
		authH:       handler.NewAuthHandler(userStore, issuer, logger.With("component", "auth")),
		familyH:     handler.NewFamilyHandler(userStore, hub, logger.With("component", "family")),
		taskH:       handler.NewTaskHandler(taskStore, userStore, ruleStore, hub, notifier, logger.With("component", "task")),
		ruleH:       handler.NewRateRuleHandler(ruleStore, userStore, taskStore, hub, logger.With("component", "rate_rule")),
		eventH:      handler.NewEventHandler(eventStore, userStore, hub, notifier, logger.With("component", "event")),
		exchangeH:   handler.NewExchangeHandler(settingsStore, txStore, userStore, hub, notifier, logger.With("component", "exchange")),
		ledgerH:     handler.NewLedgerHandler(txStore, userStore),
		statsH:      handler.NewStatsHandler(taskStore, txStore, userStore),
		pushH:       handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.issuer)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

// parentOnly wraps a handler so only parent accounts reach it.
func parentOnly(h http.HandlerFunc) http.Handler {
	return middleware.RequireParent(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/me", s.authH.Me)

	// Family
	mux.HandleFunc("GET /api/family", s.familyH.Get)
	mux.HandleFunc("GET /api/family/members", s.familyH.Members)
	mux.Handle("POST /api/family/children", parentOnly(s.familyH.AddChild))

	// Tasks and completions
	mux.Handle("POST /api/tasks", parentOnly(s.taskH.Create))
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.Handle("DELETE /api/tasks/{id}", parentOnly(s.taskH.Delete))
	mux.HandleFunc("POST /api/tasks/{id}/submit", s.taskH.Submit)
	mux.HandleFunc("GET /api/completions", s.taskH.ListCompletions)
	mux.Handle("POST /api/completions/{id}/approve", parentOnly(s.taskH.Approve))
	mux.Handle("POST /api/completions/{id}/reject", parentOnly(s.taskH.Reject))

	// Rate rules
	mux.Handle("POST /api/rate-rules", parentOnly(s.ruleH.Create))
	mux.HandleFunc("GET /api/rate-rules", s.ruleH.List)
	mux.Handle("POST /api/rate-rules/{id}/toggle", parentOnly(s.ruleH.Toggle))
	mux.Handle("DELETE /api/rate-rules/{id}", parentOnly(s.ruleH.Delete))
	mux.Handle("POST /api/rate-rules/preview", parentOnly(s.ruleH.Preview))

	// Events and results
	mux.Handle("POST /api/events", parentOnly(s.eventH.Create))
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("GET /api/events/{id}", s.eventH.Get)
	mux.Handle("DELETE /api/events/{id}", parentOnly(s.eventH.Delete))
	mux.HandleFunc("POST /api/events/{id}/results", s.eventH.SubmitResult)
	mux.HandleFunc("GET /api/events/{id}/results", s.eventH.ListResults)
	mux.Handle("POST /api/event-results/{id}/approve", parentOnly(s.eventH.ApproveResult))
	mux.Handle("POST /api/event-results/{id}/reject", parentOnly(s.eventH.RejectResult))

	// Exchange
	mux.HandleFunc("GET /api/exchange/rate", s.exchangeH.GetRate)
	mux.Handle("PUT /api/exchange/rate", parentOnly(s.exchangeH.SetRate))
	mux.HandleFunc("POST /api/exchange/quote", s.exchangeH.Quote)
	mux.HandleFunc("POST /api/exchange", s.exchangeH.Exchange)

	// Ledger
	mux.HandleFunc("GET /api/users/{id}/transactions", s.ledgerH.History)
	mux.HandleFunc("GET /api/users/{id}/balance", s.ledgerH.Balance)
	mux.HandleFunc("GET /api/leaderboard", s.ledgerH.Leaderboard)

	// Statistics
	mux.HandleFunc("GET /api/children/{id}/stats", s.statsH.Report)

	// Push notifications
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDPublicKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscribe", s.pushH.Unsubscribe)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
