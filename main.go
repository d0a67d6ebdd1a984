package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apiroute/routing-engine/handlers"
	"github.com/apiroute/routing-engine/internal/config"
	"github.com/apiroute/routing-engine/internal/state"
	"github.com/apiroute/routing-engine/pkg/logger"
	"github.com/apiroute/routing-engine/pkg/metrics"
	"github.com/apiroute/routing-engine/pkg/middleware"
)

var startTime = time.Now()

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Logging.Level)
	logger.SetJSON(cfg.Logging.Structured && cfg.Logging.Format == "json")
	logger.Infof("config loaded: env=%s backend=%s project=%s", cfg.Environment, cfg.Backend, cfg.Firebase.ProjectID)

	var mgr *state.Manager
	switch cfg.Backend {
	case config.BackendMongo:
		mgr = state.NewMongoManager(cfg.MongoDB)
	case config.BackendMemory:
		mgr = state.NewMemoryManager()
	default:
		mgr = state.NewFirestoreManager(cfg.Firebase)
	}
	client := state.NewClient(mgr)

	// One eager attempt so problems show up at startup; a failure here is
	// not fatal because Handle retries lazily on first use.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Routing.Timeout)
	if err := mgr.Initialize(ctx); err != nil {
		logger.Warnf("store not available yet: %v (first use will retry)", err)
	}
	cancel()

	if !cfg.API.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.CORS(cfg.API.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		st := mgr.State()
		body := gin.H{
			"backend": mgr.Backend(),
			"store":   st,
			"uptime":  time.Since(startTime).String(),
		}
		if st != "ready" {
			body["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
	})

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterStateRoutes(r, client)

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	logger.Infof("starting state service on %s (strategy=%s)", addr, cfg.Routing.DefaultStrategy)

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	if err := mgr.Close(); err != nil {
		logger.Errorf("store close: %v", err)
	}
}
