package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/taskdesk/eligibility-service/config"
	"github.com/taskdesk/eligibility-service/internal/database"
	"github.com/taskdesk/eligibility-service/internal/redisconn"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "eligibility-service",
	Short: "Eligibility Service CLI - task eligibility and assignment tool",
	Long: `A CLI tool for operating the eligibility engine: evaluate rule sets
against the candidate pool, enqueue evaluation jobs, inspect stored
eligibility results, and run offline dry-runs against roster exports.`,
	PersistentPreRunE: persistentPreRun,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		// Config is optional for some commands, don't fail here
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
}

// persistentPreRun runs before each command and initializes dependencies
func persistentPreRun(cmd *cobra.Command, args []string) error {
	// Skip initialization for commands that don't need database/config
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	// Initialize logger (use console format for CLI)
	logger = initLogger()

	name := cmd.Name()
	needsDB := name == "evaluate" || name == "eligible" || name == "tasks" || name == "cleanup" || name == "status"
	needsRedis := name == "evaluate" || name == "enqueue" || name == "eligible" || name == "tasks" || name == "status"

	if needsDB || needsRedis {
		if cfg == nil {
			return fmt.Errorf("config required for %s command but not loaded", name)
		}
	}

	if needsDB {
		if err := initDatabase(); err != nil {
			// Reads fall back to cache, status reports it; only cleanup
			// strictly needs the database.
			if name == "cleanup" {
				return fmt.Errorf("database initialization failed: %w", err)
			}
			logger.Warn().Err(err).Msg("Database unavailable")
		} else {
			logger.Debug().Msg("Database connected")
		}
	}

	if needsRedis {
		if err := redisconn.Connect(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			if name == "enqueue" {
				return fmt.Errorf("redis initialization failed: %w", err)
			}
			logger.Warn().Err(err).Msg("Redis unavailable")
		} else {
			logger.Debug().Msg("Redis connected")
		}
	}

	return nil
}

func initLogger() *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if cfg != nil && cfg.Logging.Level != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			level = parsedLevel
		}
	}

	// Always use console format for CLI
	var output io.Writer
	if cfg != nil && cfg.Logging.Format == "json" {
		output = os.Stdout
	} else {
		noColor := false
		if cfg != nil {
			noColor = cfg.Logging.NoColor
		}
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: noColor}
	}

	log := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &log
}

func initDatabase() error {
	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}

	ctx := context.Background()
	if err := database.Connect(
		ctx,
		dbURL,
		cfg.Database.MaxConnections,
		cfg.Database.MinConnections,
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	return nil
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
