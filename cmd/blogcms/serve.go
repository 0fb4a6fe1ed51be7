package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/plantware/blogcms/blog/application"
	"github.com/plantware/blogcms/blog/persistence"
	"github.com/plantware/blogcms/internal/config"
	"github.com/plantware/blogcms/internal/middleware"
	"github.com/plantware/blogcms/internal/rest"
	"github.com/plantware/blogcms/shared/db/sqlite"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the blog HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			setLogLevel(cfg.LogLevel)
			return runServer(cfg)
		},
	}
}

func runServer(cfg *config.Config) error {
	database := sqlite.New(cfg.Storage)
	if err := database.Connect(); err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}()

	postRepo := persistence.NewPostRepository(database.DB())
	renderer := application.NewContentRenderer()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())
	router.Use(gin.CustomRecovery(middleware.HandlePanics()))

	rest.NewApi(router, rest.NewPostsHandler(postRepo, renderer), version)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	log.Info().Msg("server stopped")
	return nil
}
