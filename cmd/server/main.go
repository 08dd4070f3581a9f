package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/app"
	"github.com/yukikurage/project-management-api/internal/cache"
	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/events"
	"github.com/yukikurage/project-management-api/internal/handlers"
	"github.com/yukikurage/project-management-api/internal/listeners"
	"github.com/yukikurage/project-management-api/internal/logger"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/observers"
	"github.com/yukikurage/project-management-api/internal/queue"
	"github.com/yukikurage/project-management-api/internal/repository"
	"github.com/yukikurage/project-management-api/internal/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := app.OpenDatabase(cfg, log)
	if err != nil {
		return err
	}

	if err := middleware.RegisterValidators(); err != nil {
		return err
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	statsCache, err := cache.New(cache.DefaultSize)
	if err != nil {
		return err
	}

	// Events are turned into queued notification jobs
	store := queue.NewStore(db)
	dispatcher := events.NewDispatcher(log)
	listeners.Register(dispatcher, listeners.Deps{
		Queue:    queue.New(store, log),
		Projects: projectRepo,
		Cache:    statsCache,
		Logger:   log,
	})

	var suggester services.TaskSuggester
	if cfg.OpenAIAPIKey != "" {
		suggester = services.NewAIService(cfg.OpenAIAPIKey)
	}

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	router := handlers.NewRouter(handlers.RouterDeps{
		DB:                db,
		Logger:            log,
		Projects:          projectRepo,
		Tasks:             taskRepo,
		AuthService:       services.NewAuthService(userRepo, tokens, log),
		UserService:       services.NewUserService(userRepo, roleRepo),
		RoleService:       services.NewRoleService(roleRepo),
		ProjectService:    services.NewProjectService(projectRepo, observers.NewProjectObserver(dispatcher, log), statsCache),
		TaskService:       services.NewTaskService(taskRepo, projectRepo, userRepo, observers.NewTaskObserver(dispatcher, log), statsCache, suggester),
		StatisticsService: services.NewStatisticsService(projectRepo, taskRepo, userRepo, statsCache, cfg.StatisticsTTL),
		LoginLimiter:      middleware.NewIPRateLimiter(cfg.LoginRateLimit),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.EmbeddedWorkers {
		worker, err := app.NewNotificationWorker(cfg, db, store, log)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}

	g.Go(func() error {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
