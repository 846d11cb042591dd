// Package app assembles the service from configuration.
package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arnavshah/workshop-scheduler/pkg/auth"
	"github.com/arnavshah/workshop-scheduler/pkg/config"
	"github.com/arnavshah/workshop-scheduler/pkg/database"
	"github.com/arnavshah/workshop-scheduler/pkg/handlers"
	"github.com/arnavshah/workshop-scheduler/pkg/logger"
	"github.com/arnavshah/workshop-scheduler/pkg/mip"
	"github.com/arnavshah/workshop-scheduler/pkg/mip/glpk"
	"github.com/arnavshah/workshop-scheduler/pkg/router"
)

// App is a fully wired service
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *gorm.DB
	Engine *gin.Engine
}

// NewSolver returns the exact backend named by the config, or nil for the
// greedy-only backend
func NewSolver(cfg config.SolverConfig, logger *zap.Logger) mip.Solver {
	if cfg.Backend == config.BackendGreedy {
		return nil
	}
	return glpk.New(logger.Named("glpk"))
}

// New loads configuration from path and builds the service
func New(path string) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	db, err := database.InitDB(cfg.Database, log)
	if err != nil {
		return nil, err
	}

	manager := auth.NewManager(cfg.Auth)
	if err := manager.EnsureAdminExists(db, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, log); err != nil {
		return nil, fmt.Errorf("ensure admin: %w", err)
	}

	h := &handlers.Handler{
		DB:     db,
		Auth:   manager,
		Logger: log,
		Solver: NewSolver(cfg.Solver, log),
		Config: cfg.Solver,
	}
	log.Info("service configured",
		zap.String("backend", cfg.Solver.Backend),
		zap.Duration("time_limit", cfg.Solver.TimeLimit),
	)

	return &App{
		Config: cfg,
		Logger: log,
		DB:     db,
		Engine: router.Setup(h),
	}, nil
}
