package main

import (
	"flag"
	"os"
	"strconv"

	"github.com/aptomizer/core/internal/logger"
	"github.com/aptomizer/core/internal/state"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// reset_db drops the users, AI wallets, risk profiles and transactions tables
// and recreates them empty. It refuses to run without -yes.
func main() {
	confirm := flag.Bool("yes", false, "confirm that all data will be deleted")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found or error loading .env file. Relying on OS environment variables.")
	}

	logger.Initialize(logger.Options{Level: envOr("LOG_LEVEL", "info"), Format: os.Getenv("LOG_FORMAT")})
	log.Info().Msg("Starting database reset script...")

	if !*confirm {
		log.Fatal().Msg("Refusing to reset the database without -yes")
	}

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		log.Fatal().Msg("DB_USER environment variable not set.")
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		log.Fatal().Msg("DB_NAME environment variable not set.")
	}
	dbPort, err := strconv.Atoi(envOr("DB_PORT", "5432"))
	if err != nil {
		log.Fatal().Err(err).Msg("DB_PORT must be a valid int")
	}

	dbCfg := state.DBConfig{
		Host:     envOr("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     dbUser,
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   dbName,
		SSLMode:  envOr("DB_SSLMODE", "disable"),
	}

	log.Info().
		Str("host", dbCfg.Host).
		Int("port", dbCfg.Port).
		Str("user", dbCfg.User).
		Str("dbname", dbCfg.DBName).
		Msg("Connecting to database")

	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database connection")
	}
	defer state.CloseDB()

	if err := state.DropSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to drop tables")
	}
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to recreate database schema")
	}
	log.Info().Msg("Database reset complete!")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
