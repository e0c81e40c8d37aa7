package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/ogurasousui/talent-board/internal/platform/config"
	"github.com/ogurasousui/talent-board/internal/platform/logging"
)

// 使い方: migrate [-config path] [-dir assets/migrations] up|down|drop|version|steps N|force V
func main() {
	var (
		configPath    = flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
		migrationsDir = flag.String("dir", "assets/migrations", "directory containing migration files")
	)
	flag.Parse()

	cfg, err := config.Load(effectiveConfigPath(*configPath))
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.Log.Level)

	action, arg := "up", ""
	if flag.NArg() > 0 {
		action = flag.Arg(0)
	}
	if flag.NArg() > 1 {
		arg = flag.Arg(1)
	}

	m, err := open(*migrationsDir, cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to open migrations", slog.Any("error", err))
		os.Exit(1)
	}
	defer m.Close()

	if err := apply(m, action, arg, logger); err != nil {
		logger.Error("migration failed", slog.String("action", action), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migration completed", slog.String("action", action))
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}

func open(dir, dsn string) (*migrate.Migrate, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve path for %s: %w", dir, err)
	}
	m, err := migrate.New("file://"+filepath.ToSlash(absDir), dsn)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

// migrator は apply が使う migrate.Migrate の操作です。
type migrator interface {
	Up() error
	Down() error
	Drop() error
	Steps(n int) error
	Force(version int) error
	Version() (uint, bool, error)
}

func apply(m migrator, action, arg string, logger *slog.Logger) error {
	ignoreNoChange := func(err error) error {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no change")
			return nil
		}
		return err
	}

	switch action {
	case "up":
		return ignoreNoChange(m.Up())
	case "down":
		return ignoreNoChange(m.Down())
	case "drop":
		return m.Drop()
	case "steps":
		n, err := strconv.Atoi(arg)
		if err != nil || n == 0 {
			return fmt.Errorf("steps requires a non-zero integer, got %q", arg)
		}
		return ignoreNoChange(m.Steps(n))
	case "force":
		v, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("force requires a version, got %q", arg)
		}
		return m.Force(v)
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migration applied")
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("current version", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
		return nil
	default:
		return fmt.Errorf("unsupported action %q", action)
	}
}
