package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"linkedin-harvester/internal/config"
)

type DB struct {
	conn   *sql.DB
	logger *logrus.Logger
}

func NewConnection(cfg *config.DatabaseConfig, logger *logrus.Logger) (*DB, error) {
	// Override config with environment variables if they exist
	host := getEnvOrDefault("DB_HOST", cfg.Host)
	port := getEnvOrDefault("DB_PORT", fmt.Sprintf("%d", cfg.Port))
	user := getEnvOrDefault("DB_USER", cfg.User)
	password := getEnvOrDefault("DB_PASSWORD", cfg.Password)
	dbname := getEnvOrDefault("DB_NAME", cfg.Name)
	sslmode := getEnvOrDefault("DB_SSL_MODE", cfg.SSLMode)

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	logger.Infof("Connecting to database: host=%s port=%s dbname=%s user=%s", host, port, dbname, user)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		conn:   conn,
		logger: logger,
	}

	logger.Info("Database connection established")
	return db, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (db *DB) RunMigrations() error {
	db.logger.Info("Running database migrations...")

	migrationFiles, err := filepath.Glob("internal/database/migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to find migration files: %w", err)
	}

	sort.Strings(migrationFiles)

	for _, file := range migrationFiles {
		db.logger.Infof("Running migration: %s", file)

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := db.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
	}

	db.logger.Info("Migrations completed successfully")
	return nil
}

func (db *DB) Ping() error {
	return db.conn.Ping()
}

func (db *DB) Close() error {
	return db.conn.Close()
}
