package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/pharmalink/entitlements/internal/infrastructure/config"
	"github.com/pharmalink/entitlements/internal/infrastructure/logger"
	"github.com/pharmalink/entitlements/internal/infrastructure/migration"
)

const usage = `Usage: migrate [flags] <command>

Commands:
  up              apply all pending migrations
  down            roll back all migrations
  steps <n>       apply n migrations (negative rolls back)
  version         print the current schema version
  force <v>       set the version without running migrations
`

func main() {
	sourcePath := flag.String("path", "migrations", "path to migration files")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: *logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	runner, err := migration.NewRunner(cfg.Database.DSN(), *sourcePath, log)
	if err != nil {
		log.Fatal("prepare migrations", zap.Error(err))
	}
	defer runner.Close()

	if err := run(runner, log, flag.Args()); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}
}

func run(runner *migration.Runner, log *zap.Logger, args []string) error {
	switch args[0] {
	case "up":
		return runner.Apply()
	case "down":
		return runner.Rollback()
	case "steps":
		n, err := intArg(args, "steps")
		if err != nil {
			return err
		}
		return runner.Steps(n)
	case "version":
		version, dirty, err := runner.Version()
		if err != nil {
			return err
		}
		log.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	case "force":
		v, err := intArg(args, "force")
		if err != nil {
			return err
		}
		return runner.Force(v)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func intArg(args []string, command string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s requires a numeric argument", command)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("%s argument %q is not a number", command, args[1])
	}
	return n, nil
}
