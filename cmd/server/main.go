package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/openduel/duel-server-go/internal/config"
	"github.com/openduel/duel-server-go/internal/game"
	"github.com/openduel/duel-server-go/internal/game/cards"
	"github.com/openduel/duel-server-go/internal/repository"
	"github.com/openduel/duel-server-go/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting duel server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	catalog, err := cards.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("failed to load card catalog",
			zap.String("path", cfg.Catalog.Path),
			zap.Error(err),
		)
	}
	logger.Info("card catalog loaded",
		zap.String("path", cfg.Catalog.Path),
		zap.Int("cards", catalog.Size()),
	)

	engine := game.NewEngine(catalog, logger)

	// The database is optional; without it finished matches are only kept
	// as replay files.
	var matchRepo *repository.MatchRepository
	if cfg.Database.URL != "" {
		db, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to ensure database schema", zap.Error(err))
		}
		matchRepo = repository.NewMatchRepository(db)
		logger.Info("match archive enabled")
	} else {
		logger.Warn("no database configured; matches will not be archived")
	}

	engine.OnFinished(func(st *game.GameState) {
		go archiveMatch(engine, matchRepo, cfg.Replay, st, logger)
	})

	gateway := server.New(cfg.Server, engine, logger)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- gateway.ListenAndServe(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		if err := <-serveErr; err != nil {
			logger.Error("gateway shutdown failed", zap.Error(err))
		}
	case err := <-serveErr:
		if err != nil {
			logger.Fatal("gateway failed", zap.Error(err))
		}
	}

	logger.Info("duel server stopped")
}

// archiveMatch persists a finished match: the summary row and event log to
// Postgres when configured, and the decision record as a replay file.
func archiveMatch(
	engine *game.Engine,
	repo *repository.MatchRepository,
	replayCfg config.ReplayConfig,
	st *game.GameState,
	logger *zap.Logger,
) {
	if repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.SaveMatch(ctx, st); err != nil {
			logger.Error("failed to archive match",
				zap.String("game_id", st.GameID),
				zap.Error(err),
			)
		}
	}

	if replayCfg.Enabled {
		replay, err := engine.ReplayOf(st.GameID)
		if err != nil {
			logger.Error("failed to snapshot replay",
				zap.String("game_id", st.GameID),
				zap.Error(err),
			)
		} else if err := replay.SaveToFile(replayCfg.Dir); err != nil {
			logger.Error("failed to save replay file",
				zap.String("game_id", st.GameID),
				zap.Error(err),
			)
		} else {
			logger.Info("replay saved",
				zap.String("game_id", st.GameID),
				zap.String("dir", replayCfg.Dir),
			)
		}
	}
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
