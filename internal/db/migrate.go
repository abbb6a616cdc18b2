package db

import (
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/bon-livraison/internal/config"
	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const connectAttempts = 5

var retryDelay = 2 * time.Second

// Connect opens the configured database. Postgres connections are retried
// to give the server time to start.
func Connect(cfg config.DatabaseConfig, dev bool, log *logrus.Logger) (*gorm.DB, error) {
	logLevel := logger.Silent
	if dev {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	if !cfg.Postgres() {
		d, err := gorm.Open(sqlite.Open(cfg.Path), gcfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
		}
		return d, nil
	}

	dsn := NormalizeDSN(cfg.DSN())
	var d *gorm.DB
	var err error
	for i := 0; i < connectAttempts; i++ {
		d, err = gorm.Open(postgres.Open(dsn), gcfg)
		if err == nil {
			break
		}
		log.WithError(err).Warnf("database connection attempt %d/%d failed, retrying", i+1, connectAttempts)
		time.Sleep(retryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := d.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	log.WithField("dsn", MaskDSN(dsn)).Info("connected to database")
	return d, nil
}

// Migrate creates the schema with gorm AutoMigrate.
func Migrate(d *gorm.DB) error {
	if err := d.AutoMigrate(&Record{}); err != nil {
		return fmt.Errorf("automigrate %T: %w", &Record{}, err)
	}
	if !d.Migrator().HasTable(&Record{}) {
		return errors.New("missing table after migration: " + Record{}.TableName())
	}
	return nil
}

// MigrateSQL applies the embedded SQL migrations to a postgres database
// given in URL form.
func MigrateSQL(url string) error {
	m, err := newMigrator(url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sql migrations failed: %w", err)
	}
	return nil
}

func newMigrator(url string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	return m, nil
}

// Prepare brings the schema up to date: SQL migrations when enabled on
// postgres, AutoMigrate otherwise.
func Prepare(d *gorm.DB, cfg *config.Config, log *logrus.Logger) error {
	if cfg.App.Migrations && cfg.Database.Postgres() {
		log.Info("running sql migrations")
		return MigrateSQL(ToURLDSN(NormalizeDSN(cfg.Database.DSN())))
	}
	return Migrate(d)
}
