package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Storage struct {
	db *gorm.DB

	retryAttempts int
	retryDelay    time.Duration
}

type Option func(*Storage)

// WithRetry overrides the lock contention retry policy.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *Storage) {
		if attempts > 0 {
			s.retryAttempts = attempts
		}
		if delay >= 0 {
			s.retryDelay = delay
		}
	}
}

func New(db *gorm.DB, opts ...Option) *Storage {
	s := &Storage{
		db:            db,
		retryAttempts: DefaultRetryAttempts,
		retryDelay:    DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenDB connects to the configured database. For sqlite dsn is a file path.
func OpenDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(dsn))
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	return db, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (s *Storage) DB() *gorm.DB {
	return s.db
}

// Ping checks that the database answers.
func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting connection pool: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Feedback{},
		&models.BlockRecord{},
		&models.GlobalState{},
	); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

func (s *Storage) GetOrCreateGlobalState(ctx context.Context) (*models.GlobalState, error) {
	var state models.GlobalState
	if err := s.withTx(ctx, "get_global_state", func(tx *gorm.DB) error {
		state = models.GlobalState{}
		if err := tx.
			Where(models.GlobalState{ID: models.GlobalStateID}).
			FirstOrCreate(&state).
			Error; err != nil {
			return fmt.Errorf("getting global state: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &state, nil
}

// UpdateLastUpdate moves the stored poller offset forward, never back.
func (s *Storage) UpdateLastUpdate(ctx context.Context, updateID int) error {
	return s.withTx(ctx, "update_last_update", func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.GlobalState{ID: models.GlobalStateID}).
			Error; err != nil {
			return fmt.Errorf("creating global state: %w", err)
		}
		if err := tx.
			Model(&models.GlobalState{}).
			Where("id = ? AND last_update_id < ?", models.GlobalStateID, updateID).
			Update("last_update_id", updateID).
			Error; err != nil {
			return fmt.Errorf("updating last update: %w", err)
		}
		return nil
	})
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("getting %s %v: %w", what, id, err)
}
