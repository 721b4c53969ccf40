// Package api exposes the auth, meal and report operations over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"mealtrack/internal/auth"
	"mealtrack/internal/meals"
	"mealtrack/internal/models"
	"mealtrack/internal/report"
)

// AuthService runs the signup, login and password reset flows.
type AuthService interface {
	Signup(ctx context.Context, identifier, password, displayName string) error
	Login(ctx context.Context, identifier, password string) (*auth.LoginResult, error)
	VerifyOTP(ctx context.Context, identifier, code string) (*auth.SessionResult, error)
	ForgotPassword(ctx context.Context, identifier string) (string, error)
	VerifyResetOTP(ctx context.Context, identifier, code string) (string, error)
	ResetPassword(ctx context.Context, resetToken, password, confirm string) error
}

// Authenticator resolves a bearer token to its user, renewing the session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// MealService serves meal summaries and the canteen list.
type MealService interface {
	Summarize(ctx context.Context, canteen string, p meals.Period) (meals.Summary, error)
	Canteens(ctx context.Context) ([]meals.Canteen, error)
}

// ReportService builds meal reports for a date range.
type ReportService interface {
	Build(ctx context.Context, startDate, endDate string) (*report.Report, error)
}

// Options configure a Server. RateLimitRPS <= 0 disables rate limiting.
type Options struct {
	// OTPInResponse echoes issued codes in login and forgot-password
	// responses, for clients that cannot read the mailbox.
	OTPInResponse  bool
	RateLimitRPS   float64
	RateLimitBurst int
	Logger         *slog.Logger
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	auth    AuthService
	authn   Authenticator
	meals   MealService
	reports ReportService
	opts    Options
	log     *slog.Logger
	limiter *ipRateLimiter
}

// NewServer returns a Server. Call Close when done to stop the rate
// limiter cleanup.
func NewServer(authSvc AuthService, authn Authenticator, mealSvc MealService, reports ReportService, opts Options) *Server {
	s := &Server{
		auth:    authSvc,
		authn:   authn,
		meals:   mealSvc,
		reports: reports,
		opts:    opts,
		log:     opts.Logger,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if opts.RateLimitRPS > 0 {
		s.limiter = newIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	}
	return s
}

// Close stops background work started by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// Routes returns the router with every endpoint registered.
func (s *Server) Routes() *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse("not found"))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse("method not allowed"))
	})

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	router.HandleFunc("/signup", s.handleSignup).Methods(http.MethodPost)
	router.HandleFunc("/resetpassword", s.handleResetPassword).Methods(http.MethodPost)

	limited := router.NewRoute().Subrouter()
	if s.limiter != nil {
		limited.Use(s.limiter.Middleware)
	}
	limited.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	limited.HandleFunc("/verifyotp", s.handleVerifyOTP).Methods(http.MethodPost)
	limited.HandleFunc("/forgotpassword", s.handleForgotPassword).Methods(http.MethodPost)
	limited.HandleFunc("/verifyresetotp", s.handleVerifyResetOTP).Methods(http.MethodPost)

	protected := router.NewRoute().Subrouter()
	protected.Use(s.requireSession)
	protected.HandleFunc("/canteens", s.handleCanteens).Methods(http.MethodGet)
	protected.HandleFunc("/mealtoday", s.handleMeals(meals.Today)).Methods(http.MethodGet)
	protected.HandleFunc("/mealweek", s.handleMeals(meals.Week)).Methods(http.MethodGet)
	protected.HandleFunc("/mealmonth", s.handleMeals(meals.Month)).Methods(http.MethodGet)
	protected.HandleFunc("/get-report", s.handleReport).Methods(http.MethodGet)

	return router
}
