// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/book-network/internal/config"
	"github.com/iliyamo/book-network/internal/handler"
	"github.com/iliyamo/book-network/internal/middleware"
	"github.com/iliyamo/book-network/internal/model"
)

// Deps carries everything the routes need. Redis may be nil, which turns
// rate limiting and caching off.
type Deps struct {
	Log       *zap.Logger
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Resolver  middleware.IdentityResolver
	Ready     handler.Pinger

	Auth     *handler.AuthHandler
	Books    *handler.BookHandler
	Feedback *handler.FeedbackHandler
	Content  *handler.ContentHandler
}

// New builds the Echo instance with the global middleware stack and all
// routes registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Log))

	// The limiter runs after authentication so that keys carry the user id.
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)

	RegisterRoutes(e, d.Ready)
	RegisterAuth(e, d.Auth, d.Resolver, limit)
	RegisterBooks(e, d, limit)
	RegisterContent(e, d, limit)
	return e
}

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterAuth registers registration, login and activation under
// /v1/auth, and /v1/me behind the bearer token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, resolver middleware.IdentityResolver, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/authenticate", a.Authenticate)
	g.GET("/activate-account", a.Activate)

	auth := e.Group("/v1", middleware.BearerAuth(resolver), middleware.RequireRole(model.DefaultRole), limit)
	auth.GET("/me", a.Me)
}

// RegisterBooks registers the catalog, lending and feedback endpoints.
// Every route requires a member token. Only the displayable listing is
// cached since it is the one hit by browsing clients.
func RegisterBooks(e *echo.Echo, d Deps, limit echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.BearerAuth(d.Resolver), middleware.RequireRole(model.DefaultRole), limit)

	b := d.Books
	g.POST("/books", b.Create)
	g.GET("/books", b.List, middleware.NewRedisCache(d.Cache, d.Redis, d.Log))
	g.GET("/books/owner", b.ListOwned)
	g.GET("/books/borrowed", b.ListBorrowed)
	g.GET("/books/returned", b.ListReturned)
	g.GET("/books/:id", b.Get)
	g.PATCH("/books/shareable/:id", b.ToggleShareable)
	g.PATCH("/books/archived/:id", b.ToggleArchived)
	g.POST("/books/borrow/:id", b.Borrow)
	g.PATCH("/books/borrow/return/:id", b.Return)
	g.PATCH("/books/borrow/return/approve/:id", b.ApproveReturn)

	f := d.Feedback
	g.POST("/feedbacks", f.Submit)
	g.GET("/feedbacks/book/:id", f.ListByBook)
}

// RegisterContent registers the theme and article endpoints for members.
func RegisterContent(e *echo.Echo, d Deps, limit echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.BearerAuth(d.Resolver), middleware.RequireRole(model.DefaultRole), limit)

	h := d.Content
	g.GET("/themes", h.ListThemes)
	g.POST("/themes", h.CreateTheme)
	g.GET("/themes/:id", h.GetTheme)
	g.PUT("/themes/:id", h.RenameTheme)
	g.DELETE("/themes/:id", h.DeleteTheme)

	g.GET("/articles", h.ListArticles)
	g.POST("/articles", h.CreateArticle)
	g.GET("/articles/:id", h.GetArticle)
	g.PUT("/articles/:id", h.EditArticle)
	g.DELETE("/articles/:id", h.DeleteArticle)
}
