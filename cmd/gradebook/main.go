package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-gradebook/api/swagger"
	"github.com/noah-isme/sma-gradebook/internal/cli"
	"github.com/noah-isme/sma-gradebook/internal/handler"
	"github.com/noah-isme/sma-gradebook/internal/repository"
	"github.com/noah-isme/sma-gradebook/internal/service"
	"github.com/noah-isme/sma-gradebook/pkg/cache"
	"github.com/noah-isme/sma-gradebook/pkg/config"
	"github.com/noah-isme/sma-gradebook/pkg/jobs"
	"github.com/noah-isme/sma-gradebook/pkg/logger"
	"github.com/noah-isme/sma-gradebook/pkg/storage"
)

// @title Gradebook API
// @version 1.0.0
// @description Read-only view of a course gradebook with report exports
// @BasePath /api/v1
// @schemes http

const (
	shutdownTimeout = 10 * time.Second
	cleanupInterval = time.Hour
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	undo := zap.ReplaceGlobals(logr)
	defer undo()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Error("gradebook failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		_ = logr.Sync()
		os.Exit(1)
	}
}

type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *service.MetricsService
	gradebook *service.GradebookService
	exporter  *service.ExportService
	exportDir string
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	validate := validator.New()
	metrics := service.NewMetricsService()

	cacheSvc, closeCache := buildCache(ctx, cfg, metrics, logr)
	defer closeCache()

	repo := repository.NewCourseFileRepository(cfg.Gradebook.DataFile, logr)
	gradebook := service.NewGradebookService(repo, cacheSvc, metrics, validate, logr, service.GradebookConfig{
		CourseName:    cfg.Gradebook.CourseName,
		PassThreshold: cfg.Gradebook.PassThreshold,
		SeedDemo:      cfg.Gradebook.SeedDemo,
		CacheTTL:      cfg.Cache.TTL,
	})
	if _, err := gradebook.Open(ctx); err != nil {
		return err
	}

	store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(gradebook, store, signer, metrics, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr)

	a := &app{cfg: cfg, logger: logr, metrics: metrics, gradebook: gradebook, exporter: exporter, exportDir: store.Dir()}

	if cfg.Gradebook.RosterFile != "" {
		if err := a.importRoster(ctx, service.NewRosterService(gradebook, logr)); err != nil {
			return err
		}
	}

	switch cfg.Gradebook.Mode {
	case config.ModeReport:
		return a.report()
	case config.ModeServe:
		return a.serve(ctx, validate)
	default:
		return a.menu(ctx)
	}
}

func buildCache(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*service.CacheService, func()) {
	if !cfg.Cache.Enabled {
		return service.NewCacheService(nil, metrics, cfg.Cache.TTL, logr, false), func() {}
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, summary cache disabled", zap.Error(err))
		return service.NewCacheService(nil, metrics, cfg.Cache.TTL, logr, false), func() {}
	}
	repo := repository.NewCacheRepository(client, logr)
	return service.NewCacheService(repo, metrics, cfg.Cache.TTL, logr, true), func() {
		if err := repo.Close(); err != nil {
			logr.Warn("close redis", zap.Error(err))
		}
	}
}

func (a *app) importRoster(ctx context.Context, roster *service.RosterService) error {
	if a.cfg.Gradebook.Mode == config.ModeServe {
		a.logger.Warn("roster import ignored in serve mode", zap.String("roster", a.cfg.Gradebook.RosterFile))
		return nil
	}
	f, err := os.Open(a.cfg.Gradebook.RosterFile)
	if err != nil {
		return fmt.Errorf("open roster: %w", err)
	}
	defer f.Close() //nolint:errcheck

	result, err := roster.ImportXLSX(ctx, f)
	if err != nil {
		return err
	}
	for _, issue := range result.Issues {
		a.logger.Warn("roster row issue", zap.Int("row", issue.Row), zap.String("reason", issue.Reason))
	}
	if result.AlreadyEnrolled > 0 {
		a.logger.Info("roster rows already enrolled", zap.Int("rows", result.AlreadyEnrolled))
	}
	if result.Imported == 0 {
		return nil
	}
	return a.gradebook.Save(ctx)
}

func (a *app) report() error {
	course, err := a.gradebook.Course()
	if err != nil {
		return err
	}
	return cli.RenderResults(os.Stdout, course)
}

func (a *app) menu(ctx context.Context) error {
	menu := cli.NewMenu(a.gradebook, a.exporter, os.Stdin, os.Stdout, a.logger, cli.MenuConfig{ExportDir: a.exportDir})
	return menu.Run(ctx)
}

func (a *app) serve(ctx context.Context, validate *validator.Validate) error {
	if a.cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	exportJobs := service.NewExportJobService(a.exporter, validate, a.logger)
	queue := jobs.NewQueue("exports", exportJobs.Handle, jobs.QueueConfig{
		Workers:    a.cfg.Exports.WorkerConcurrency,
		MaxRetries: a.cfg.Exports.WorkerRetries,
		Logger:     a.logger,
	})
	exportJobs.AttachQueue(queue)
	queue.Start(ctx)
	defer queue.Stop()

	go a.cleanupLoop(ctx, exportJobs)

	router := handler.NewRouter(handler.RouterConfig{
		APIPrefix:      a.cfg.APIPrefix,
		AllowedOrigins: a.cfg.CORS.AllowedOrigins,
		EnableDocs:     a.cfg.Env != config.EnvProduction,
		Logger:         a.logger,
		Metrics:        a.metrics,
		Course:         handler.NewCourseHandler(a.gradebook),
		Exports:        handler.NewExportHandler(exportJobs, a.exporter),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", a.cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) cleanupLoop(ctx context.Context, exportJobs *service.ExportJobService) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.exporter.Cleanup(0)
			if err != nil {
				a.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			forgotten := exportJobs.Forget(time.Now().Add(-a.cfg.Exports.SignedURLTTL))
			a.logger.Info("exports cleaned", zap.Int("files", len(removed)), zap.Int("jobs", forgotten))
		}
	}
}
