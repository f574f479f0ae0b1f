package sqlstore

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"conductor/pkg/store/sqlstore/model"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Datastore wraps GORM DB and provides transaction support.
// With an empty DSN it opens an embedded SQLite database, which is the
// default for single-process deployments; a MySQL DSN switches it to the
// networked store required for multi-process leader election.
type Datastore struct {
	db *gorm.DB
}

// NewDatastore creates a datastore against MySQL (dsn non-empty) or SQLite.
func NewDatastore(dsn, sqlitePath string) (*Datastore, error) {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	gormCfg := &gorm.Config{
		Logger: newLogger,
		// Duplicate-key errors must be recognizable for idempotent enqueue
		// and lease acquisition races
		TranslateError: true,
		// Disable default transaction for better performance
		SkipDefaultTransaction: true,
	}

	var db *gorm.DB
	var err error
	if dsn != "" {
		db, err = gorm.Open(mysql.Open(dsn), gormCfg)
	} else {
		db, err = gorm.Open(sqlite.Open(sqlitePath), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get generic database object: %w", err)
	}

	if dsn != "" {
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	} else {
		// SQLite serializes writers; a single connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	}

	return &Datastore{db: db}, nil
}

// Migrate creates or updates the schema for all record kinds.
func (ds *Datastore) Migrate() error {
	return ds.db.AutoMigrate(
		&model.ControlFlags{},
		&model.Lease{},
		&model.Action{},
		&model.ExecutionLog{},
		&model.TickSummary{},
	)
}

// Ping verifies store connectivity.
func (ds *Datastore) Ping(ctx context.Context) error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (ds *Datastore) Close() error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction support using context
type contextTxKey struct{}

// ExecTx executes a function within a transaction.
// If the function returns an error, the transaction is rolled back.
func (ds *Datastore) ExecTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ctx = context.WithValue(ctx, contextTxKey{}, tx)
		return fn(ctx)
	})
}

// DB returns the GORM DB instance for the current context.
// If a transaction is active in the context, it returns the transaction DB.
func (ds *Datastore) DB(ctx context.Context) *gorm.DB {
	tx, ok := ctx.Value(contextTxKey{}).(*gorm.DB)
	if ok {
		return tx.WithContext(ctx)
	}
	return ds.db.WithContext(ctx)
}
