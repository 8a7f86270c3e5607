package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/store/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options configures Open.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogSQL          bool
}

// Store implements goAccount.UserStore on top of gorm.
type Store struct {
	db *gorm.DB
}

var _ goAccount.UserStore = (*Store)(nil)

// gooseUp is replaced in tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Open connects to the configured database and brings its schema up to date.
func Open(ctx context.Context, opts Options) (*Store, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if opts.LogSQL {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting sql.DB: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	s := New(db)
	if err := s.migrate(ctx, opts.Driver, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened gorm handle. The schema is assumed to exist.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) migrate(ctx context.Context, driver string, sqlDB *sql.DB) error {
	if driver == DriverSQLite {
		if err := s.db.WithContext(ctx).AutoMigrate(&userRow{}); err != nil {
			return fmt.Errorf("failed to automigrate users: %w", err)
		}
		return nil
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := gooseUp(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// DB exposes the underlying gorm handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health pings the database.
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Create(ctx context.Context, user *goAccount.User) error {
	if user == nil || user.ID == "" {
		return errors.New("store create: user id is required")
	}
	row := toRow(user)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate("create", err)
	}
	user.CreatedAt = row.CreatedAt
	user.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*goAccount.User, error) {
	return s.findOne(ctx, "find by id", "id = ?", id)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*goAccount.User, error) {
	return s.findOne(ctx, "find by username", "username = ?", username)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*goAccount.User, error) {
	return s.findOne(ctx, "find by email", "email = ?", email)
}

func (s *Store) findOne(ctx context.Context, op, query string, arg string) (*goAccount.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where(query, arg).First(&row).Error; err != nil {
		return nil, translate(op, err)
	}
	return row.toUser(), nil
}

// Save overwrites every mutable column of the row identified by user.ID.
func (s *Store) Save(ctx context.Context, user *goAccount.User) error {
	if user == nil || user.ID == "" {
		return errors.New("store save: user id is required")
	}
	row := toRow(user)
	result := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("id = ?", row.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(row)
	if result.Error != nil {
		return translate("save", result.Error)
	}
	if result.RowsAffected == 0 {
		return goAccount.ErrUserNotFound
	}
	user.UpdatedAt = row.UpdatedAt
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&userRow{})
	if result.Error != nil {
		return translate("delete", result.Error)
	}
	if result.RowsAffected == 0 {
		return goAccount.ErrUserNotFound
	}
	return nil
}
