package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipes/pkg/recipes/apierr"
	"github.com/mikepea/recipes/pkg/recipes/attributes"
	"github.com/mikepea/recipes/pkg/recipes/auth"
	"github.com/mikepea/recipes/pkg/recipes/config"
	"github.com/mikepea/recipes/pkg/recipes/database"
	"github.com/mikepea/recipes/pkg/recipes/logging"
	"github.com/mikepea/recipes/pkg/recipes/models"
	"github.com/mikepea/recipes/pkg/recipes/recipes"
	"github.com/mikepea/recipes/pkg/recipes/storage"
	"github.com/mikepea/recipes/pkg/recipes/users"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	db         *gorm.DB
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(db *gorm.DB, store *storage.Storage, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(logging.Recovery(), logging.Middleware())

	r.NoRoute(func(c *gin.Context) {
		apierr.Write(c, apierr.New(apierr.CodeNotFound, "Not found"))
	})
	r.NoMethod(func(c *gin.Context) {
		apierr.Write(c, apierr.New(apierr.CodeMethodNotAllowed, fmt.Sprintf("Method %q not allowed", c.Request.Method)))
	})

	health := func(c *gin.Context) {
		if err := database.Ping(c.Request.Context(), db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "recipes"})
	}
	r.GET("/health", health)
	r.GET("/media/*key", recipes.ServeMedia(store))

	tokens := auth.NewTokenService(db, cfg.JWTSecret)
	requireToken := auth.Middleware(tokens)

	api := r.Group("/api")
	{
		api.GET("/health", health)

		// User routes (registration and login are public)
		usersHandler := users.NewHandler(db, tokens)
		usersGroup := api.Group("/users")
		usersHandler.RegisterRoutes(usersGroup)
		usersHandler.RegisterProtectedRoutes(usersGroup.Group("", requireToken))

		// Recipe routes
		recipesHandler := recipes.NewHandler(db, store, cfg.MaxUploadBytes)
		recipesHandler.RegisterRoutes(api.Group("/recipes", requireToken))

		// Tag and ingredient routes
		attributes.NewTagHandler(db).RegisterRoutes(api.Group("/tags", requireToken))
		attributes.NewIngredientHandler(db).RegisterRoutes(api.Group("/ingredients", requireToken))
	}

	return r
}

// New waits for the database, migrates it, prepares object storage and
// constructs a Server.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	waitCtx, cancel := context.WithTimeout(ctx, cfg.Database.WaitTimeout)
	defer cancel()

	db, err := database.WaitForDB(waitCtx, cfg.Database.Driver, cfg.Database.DSN, time.Second)
	if err != nil {
		return nil, err
	}

	if err := models.AutoMigrate(db); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := storage.FromConfig(ctx, cfg.Storage)
	if err != nil {
		database.Close(db)
		return nil, err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("prepare storage: %w", err)
	}

	router := NewRouter(db, store, cfg)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         db,
	}, nil
}

// Router exposes the gin engine.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the HTTP server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Msg("Starting recipes server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.closeDB()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down recipes server")
	err := s.httpServer.Shutdown(ctx)
	s.closeDB()
	return err
}

func (s *Server) closeDB() {
	if s.db != nil {
		database.Close(s.db)
	}
}
