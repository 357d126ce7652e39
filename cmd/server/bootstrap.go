package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"

	"github.com/studyhall-app/studyhall/internal/api"
	"github.com/studyhall-app/studyhall/internal/app"
	"github.com/studyhall-app/studyhall/internal/app/maintenance"
	iauth "github.com/studyhall-app/studyhall/internal/auth"
	"github.com/studyhall-app/studyhall/internal/database"
	"github.com/studyhall-app/studyhall/internal/realtime"
	"github.com/studyhall-app/studyhall/internal/services"
	"github.com/studyhall-app/studyhall/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Hub     *realtime.Hub
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, services, and the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		AccessTokenTTL: cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	userSvc, err := services.NewUserService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}

	inviteSvc, err := services.NewInviteService(stack.DB,
		services.WithInviteExpiry(cfg.Invites.DefaultExpiry),
		services.WithInviteCodeSize(cfg.Invites.CodeLength),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise invite service: %w", err)
	}

	relationSvc, err := services.NewRelationService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise relation service: %w", err)
	}

	lessonSvc, err := services.NewLessonService(stack.DB, relationSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise lesson service: %w", err)
	}

	boardSvc, err := services.NewBoardService(stack.DB, relationSvc)
	if err != nil {
		return nil, fmt.Errorf("initialise board service: %w", err)
	}

	attachmentSvc, err := services.NewAttachmentService(stack.DB, relationSvc, cfg.Uploads.Directory, cfg.Uploads.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("initialise attachment service: %w", err)
	}

	chatSvc, err := services.NewChatService(stack.DB, relationSvc, cfg.Chat.PageSize)
	if err != nil {
		return nil, fmt.Errorf("initialise chat service: %w", err)
	}

	stack.Hub = realtime.NewHub()

	stack.Cleaner = maintenance.NewCleaner(inviteSvc, attachmentSvc,
		maintenance.WithSweepSchedule(cfg.Maintenance.InviteSweepSchedule))
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:          stack.DB,
		Config:      cfg,
		JWT:         jwtSvc,
		Hub:         stack.Hub,
		Users:       userSvc,
		Invites:     inviteSvc,
		Relations:   relationSvc,
		Lessons:     lessonSvc,
		Boards:      boardSvc,
		Attachments: attachmentSvc,
		Chat:        chatSvc,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown releases resources in reverse initialisation order.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if err := s.Cleaner.RunOnce(stopCtx); err != nil && log != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	closeDatabase(s.DB, log)
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("database handle unavailable during shutdown", zap.Error(err))
		}
		return
	}
	if err := sqlDB.Close(); err != nil && log != nil {
		log.Warn("database close failed", zap.Error(err))
	}
}
