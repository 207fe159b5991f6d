package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/exam"
	"github.com/mind-engage/mindengage-quiz/internal/logging"
	"github.com/mind-engage/mindengage-quiz/internal/metrics"
	"github.com/mind-engage/mindengage-quiz/internal/ratelimit"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/results"
)

type Deps struct {
	Store    exam.Store
	Auth     *authmw.AuthService
	Accounts *authmw.Accounts
	Tests    *exam.Service
	Results  *results.Service

	Metrics     *metrics.Metrics   // optional
	AuthLimiter *ratelimit.Limiter // optional
	Logger      *zap.Logger
	CORSOrigins []string
	TrustProxy  bool // apply X-Forwarded-For/X-Real-IP to RemoteAddr
}

// NewRouter mounts the JSON API under /api plus the probe and metrics
// endpoints.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if d.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(logging.Middleware(d.Logger), middleware.Recoverer)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", HealthzHandler())
	r.Get("/readyz", ReadyzHandler(d.Store))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		// Public: credentials in, token out.
		api.Group(func(pub chi.Router) {
			if d.AuthLimiter != nil {
				pub.Use(d.AuthLimiter.Middleware)
			}
			pub.Post("/auth/register", RegisterHandler(d.Accounts))
			pub.Post("/auth/login", LoginHandler(d.Accounts))
		})

		// Protected (JWT -> stored user -> RBAC)
		api.Group(func(pr chi.Router) {
			pr.Use(authmw.JWTMiddleware(d.Auth), authmw.AttachUser(d.Store))

			pr.Get("/users/me", MeHandler(d.Accounts))
			pr.With(rbac.Require(rbac.PermChangePassword)).
				Post("/users/change-password", ChangePasswordHandler(d.Accounts))

			pr.Route("/tests", func(tr chi.Router) {
				tr.With(rbac.Require(rbac.PermTestView)).Get("/", ListTestsHandler(d.Tests))
				tr.With(rbac.Require(rbac.PermTestCreate)).Post("/", CreateTestHandler(d.Tests))
				tr.With(rbac.Require(rbac.PermTestCreate)).Get("/my", MyTestsHandler(d.Tests))
				tr.With(rbac.Require(rbac.PermTestView)).Get("/{testID}", GetTestHandler(d.Tests))
				tr.With(rbac.Require(rbac.PermTestEditOwn)).Put("/{testID}", UpdateTestHandler(d.Tests))
				tr.With(rbac.Require(rbac.PermTestEditOwn)).Delete("/{testID}", DeleteTestHandler(d.Tests))
			})

			pr.Route("/questions", func(qr chi.Router) {
				qr.Use(rbac.Require(rbac.PermQuestionManage))
				qr.Post("/", CreateQuestionHandler(d.Tests))
				qr.Get("/{questionID}", GetQuestionHandler(d.Tests))
				qr.Put("/{questionID}", UpdateQuestionHandler(d.Tests))
				qr.Delete("/{questionID}", DeleteQuestionHandler(d.Tests))
			})

			pr.Route("/results", func(rr chi.Router) {
				rr.With(rbac.Require(rbac.PermResultSubmit)).Post("/submit", SubmitHandler(d.Results))
				rr.With(rbac.Require(rbac.PermResultViewOwn)).Get("/my", MyResultsHandler(d.Results))
				rr.With(rbac.Require(rbac.PermResultViewTest)).Get("/test/{testID}", TestResultsHandler(d.Results))
				rr.With(rbac.Require(rbac.PermStatsView)).Get("/statistics/{testID}", StatisticsHandler(d.Results))
				// owner-or-creator is decided by the service
				rr.With(rbac.RequireAny(rbac.PermResultViewOwn, rbac.PermResultViewTest)).
					Get("/{resultID}", ResultDetailHandler(d.Results))
			})
		})
	})
	return r
}
