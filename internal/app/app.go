// Package app wires repositories, services and transports from config so the
// binaries share one construction path.
package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"

	"recipehub/internal/auth"
	"recipehub/internal/feed"
	"recipehub/internal/grpcserver"
	"recipehub/internal/middleware"
	"recipehub/internal/recipes"
	"recipehub/internal/shoppinglist"
	"recipehub/internal/users"
	"recipehub/pkg/logger"
	"recipehub/pkg/metrics"
	"recipehub/pkg/utils"
)

type App struct {
	Config  utils.Config
	DB      *sql.DB
	Log     *logger.Logger
	Metrics *metrics.ServerMetrics
	Hub     *feed.Hub

	Tokens  auth.TokenService
	Auth    *auth.Repo
	Users   *users.Repo
	Recipes *recipes.Repo
	Lists   *shoppinglist.Service
}

func New(cfg utils.Config, db *sql.DB, log *logger.Logger) *App {
	if log == nil {
		log = logger.Nop()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	recipeRepo := recipes.NewRepo(db)
	pdf := shoppinglist.PDFRenderer{FontPath: cfg.ShoppingList.FontPath}

	return &App{
		Config:  cfg,
		DB:      db,
		Log:     log,
		Metrics: metrics.New(reg),
		Hub:     feed.NewHub(log.With("component", "feed")),
		Tokens: auth.TokenService{
			Secret:   []byte(cfg.Auth.JWTSecret),
			Issuer:   cfg.Auth.JWTIssuer,
			Duration: cfg.Auth.JWTDuration,
		},
		Auth:    auth.NewRepo(db),
		Users:   users.NewRepo(db),
		Recipes: recipeRepo,
		Lists:   shoppinglist.NewService(recipeRepo, cfg.ShoppingList.Header, pdf, log),
	}
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(a.Log.With("component", "http")),
		middleware.Metrics(a.Metrics),
		middleware.CORS(a.Config.Server.CORSOrigins),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", a.ready)
	router.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
	router.GET("/ws", feed.WSHandler(a.Hub, a.Config.Server.CORSOrigins))

	api := router.Group("/api")

	authHandler := auth.NewHandler(a.Auth, a.Tokens)
	authHandler.RegisterRoutes(api.Group("/auth"))

	usersGroup := api.Group("/users")
	authHandler.RegisterUserRoutes(usersGroup)
	users.NewHandler(a.Users, a.Tokens, a.Auth, a.Hub, a.Config.Pagination.PageSize).RegisterRoutes(usersGroup)

	recipeHandler := &recipes.Handler{
		Repo:      a.Recipes,
		Tokens:    a.Tokens,
		Auth:      a.Auth,
		Events:    a.Hub,
		Lists:     a.Lists,
		Metrics:   a.Metrics,
		Log:       a.Log.With("component", "recipes"),
		PageSize:  a.Config.Pagination.PageSize,
		PublicURL: a.Config.Server.PublicURL,
		Filename:  a.Config.ShoppingList.Filename,
	}
	recipeHandler.RegisterRoutes(api)

	return router
}

func (a *App) ready(c *gin.Context) {
	stats := a.Hub.Stats()
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := a.DB.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":      "not_ready",
			"db_error":    err.Error(),
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ready",
		"db":          "ok",
		"tcp_clients": stats.TCPClients,
		"ws_clients":  stats.WSClients,
	})
}

func (a *App) GRPCServer() *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.AuthInterceptor(
		auth.Authenticator{Tokens: a.Tokens, Repo: a.Auth},
		a.Log.With("component", "grpc"),
	)))
	grpcserver.Register(s, grpcserver.NewServer(a.Lists, a.Recipes, a.Metrics, a.Log.With("component", "grpc")))
	return s
}

func (a *App) FeedServer() *feed.Server {
	return feed.NewServer(a.Config.Server.FeedAddr, a.Hub, a.Log.With("component", "feed"))
}
