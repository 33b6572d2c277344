package http

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/handler/http/middleware"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/i18n"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/jwt"
)

type RouterConfig struct {
	CORSOrigins []string
	Logger      *slog.Logger
}

// NewLogger builds the JSON logger in the ECS schema shared by the request log
// and the services.
func NewLogger(w io.Writer, env, level string) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(env != "production")
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "pontaj-backend"),
		slog.String("env", env),
	)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func NewRouter(
	cfg RouterConfig,
	JWTService jwt.Service,
	translator *i18n.Translator,
	shiftHandler ShiftHandler,
	reportHandler ReportHandler,
	streamHandler StreamHandler,
) *chi.Mux {
	r := chi.NewRouter()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	if translator != nil {
		r.Use(translator.Middleware)
	}

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/shifts", func(r chi.Router) {
			// Authenticated by the SSE token in the query
			r.Get("/stream", streamHandler.Stream)

			r.Group(func(r chi.Router) {
				r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
				r.Use(middleware.AuthRequired)

				r.Post("/clock-in", shiftHandler.ClockIn)
				r.Post("/clock-out", shiftHandler.ClockOut)
				r.Post("/break/start", shiftHandler.StartBreak)
				r.Post("/break/end", shiftHandler.EndBreak)
				r.Post("/location-ping", shiftHandler.LocationPing)
				r.Get("/active", shiftHandler.GetActive)
				r.Get("/today", shiftHandler.GetToday)
				r.Get("/stream/token", streamHandler.GetToken)
				r.Get("/{id}", shiftHandler.Get)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Route("/reports", func(r chi.Router) {
				r.With(middleware.RequireRole(shift.RoleAdmin, shift.RoleSiteManager, shift.RoleTeamLead)).
					Get("/active-workers", reportHandler.GetActiveWorkers)
				r.With(middleware.RequireRole(shift.RoleAdmin)).
					Get("/summary", reportHandler.GetSummary)
			})

			r.With(middleware.RequireRole(shift.RoleAdmin)).
				Post("/shifts/{id}/overtime/approve", shiftHandler.ApproveOvertime)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	return r
}
