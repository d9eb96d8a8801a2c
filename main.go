package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/undangan/rsvp-service/handlers"
	"github.com/undangan/rsvp-service/internal/bootstrap"
	"github.com/undangan/rsvp-service/internal/config"
	"github.com/undangan/rsvp-service/internal/rsvp/handler"
	"github.com/undangan/rsvp-service/pkg/logger"
	"github.com/undangan/rsvp-service/pkg/metrics"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: project=%s mongo=%v feed=%s", cfg.Project.ProjectID, cfg.MongoDB.URI != "", cfg.RSVP.Feed)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Permissive CORS so the invitation page can be served from any origin.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})
	r.Use(gin.Logger(), gin.Recovery())

	comps, err := bootstrap.Build(cfg, false)
	if err != nil {
		logger.Fatalf("failed to assemble rsvp store: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		if err := comps.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("change feed stopped: %v", err)
		}
	}()

	handlers.RegisterHealth(r, startTime, map[string]handlers.ReadyCheck{
		"store": func(c *gin.Context) bool { return comps.StoreReady(c.Request.Context()) },
		"redis": func(c *gin.Context) bool { return comps.RedisReady(c.Request.Context()) },
	})
	handlers.RegisterSwagger(r)
	handler.RegisterRoutes(r, comps.Service)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		// request contexts end with the signal context so open streams close
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		logger.Infof("Starting rsvp service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("shutdown: %v", err)
	}
	comps.Close(shutdownCtx)
}
