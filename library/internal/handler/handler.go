package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loans/pkg/auth"
	"github.com/Astemirdum/library-loans/pkg/metrics"
	md "github.com/Astemirdum/library-loans/pkg/middleware"
	"github.com/Astemirdum/library-loans/pkg/validate"
)

type Handler struct {
	librarySvc  LibraryService
	tokens      md.TokenParser
	metrics     *metrics.Metrics
	mediaDir    string
	mediaPrefix string
	bodyLimit   string
	log         *zap.Logger
}

type Option func(*Handler)

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithMedia serves stored uploads from dir under prefix.
func WithMedia(dir, prefix string) Option {
	return func(h *Handler) {
		h.mediaDir = dir
		h.mediaPrefix = prefix
	}
}

func WithBodyLimit(limit string) Option {
	return func(h *Handler) { h.bodyLimit = limit }
}

func New(librarySrv LibraryService, tokens md.TokenParser, log *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		librarySvc: librarySrv,
		tokens:     tokens,
		bodyLimit:  "16M",
		log:        log.Named("handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = h.errorHandler
	e.Validator = validate.NewCustomValidator()

	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))
	e.Use(middleware.BodyLimit(h.bodyLimit))
	e.Use(middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)))
	if h.metrics != nil {
		e.Use(h.metrics.Middleware())
		e.GET("/metrics", h.metrics.Handler())
	}
	e.Use(md.HandleErrors(h.errorHandler))
	if h.mediaDir != "" {
		e.Static(h.mediaPrefix, h.mediaDir)
	}

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	api := e.Group("/api/v1",
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)
	authn := md.JwtAuthentication(h.tokens)
	admin := []echo.MiddlewareFunc{authn, md.RequireRole(auth.RoleAdmin)}

	api.POST("/register", h.Register)
	api.POST("/login", h.Login)
	api.GET("/profile", h.Profile, authn)

	api.GET("/books", h.ListBooks)
	api.GET("/books/search", h.FindBooks)
	api.POST("/books", h.CreateBook, admin...)
	api.PUT("/books/:id", h.UpdateBook, admin...)
	api.PUT("/books/:id/deactivate", h.DeactivateBook, admin...)
	api.PUT("/books/:id/activate", h.ReactivateBook, admin...)

	api.GET("/users", h.ListUsers, authn)
	api.GET("/users/search", h.FindUsers, authn)
	api.PUT("/users/:id", h.UpdateUser, admin...)
	api.PUT("/users/:id/deactivate", h.DeactivateUser, admin...)
	api.PUT("/users/:id/activate", h.ReactivateUser, admin...)

	api.GET("/loans", h.ListLoans, authn)
	api.GET("/loans/late", h.ListLateLoans, authn)
	api.POST("/loans", h.StartLoan, authn)
	api.POST("/loans/return", h.CloseLoan, authn)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}
