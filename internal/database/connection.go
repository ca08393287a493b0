package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/langbot/internal/logger"
	"github.com/example/langbot/internal/progression"
)

const (
	driverSQLite   = "sqlite3"
	driverPostgres = "postgres"

	defaultSQLitePath = "data/langbot.db"
)

// Store is the sqlx backed record store of the progression engine
type Store struct {
	db  *sqlx.DB
	log *logger.Logger
}

var _ progression.Store = (*Store)(nil)

// Connect opens the database named by a DATABASE_URL style string.
// postgres:// and postgresql:// URLs select PostgreSQL, anything else is a
// SQLite path with an optional sqlite:// prefix.
func Connect(databaseURL string, log *logger.Logger) (*Store, error) {
	driver, dsn := ParseURL(databaseURL)
	return Open(driver, dsn, log)
}

// ParseURL splits a DATABASE_URL into a driver name and DSN
func ParseURL(databaseURL string) (driver, dsn string) {
	u := strings.TrimSpace(databaseURL)
	switch {
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return driverPostgres, u
	case u == "":
		return driverSQLite, defaultSQLitePath
	}
	for _, prefix := range []string{"sqlite:///", "sqlite://", "sqlite:"} {
		if strings.HasPrefix(u, prefix) {
			u = strings.TrimPrefix(u, prefix)
			break
		}
	}
	if u == "" {
		u = defaultSQLitePath
	}
	return driverSQLite, u
}

// Open connects with an explicit driver and migrates the schema
func Open(driver, dsn string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}

	if driver == driverSQLite {
		if dsn != ":memory:" {
			// Create data directory if it doesn't exist
			if dir := filepath.Dir(dsn); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return nil, fmt.Errorf("failed to create data directory: %w", err)
				}
			}
		}
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == driverSQLite {
		db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	s := &Store{db: db, log: log.With("component", "database", "driver", driver)}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Do runs fn in a transaction, committing when it returns nil
func (s *Store) Do(ctx context.Context, fn func(tx progression.Tx) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newTx(sqlTx)); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			s.log.Warn("Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Tx groups the repositories bound to one transaction
type Tx struct {
	*UserRepository
	*VocabularyRepository
	*AchievementRepository
	*LeaderboardRepository
	*GrammarRepository
	*StatisticsRepository
}

var _ progression.Tx = (*Tx)(nil)

func newTx(db sqlx.ExtContext) *Tx {
	return &Tx{
		UserRepository:        NewUserRepository(db),
		VocabularyRepository:  NewVocabularyRepository(db),
		AchievementRepository: NewAchievementRepository(db),
		LeaderboardRepository: NewLeaderboardRepository(db),
		GrammarRepository:     NewGrammarRepository(db),
		StatisticsRepository:  NewStatisticsRepository(db),
	}
}

// ts normalises timestamps so SQLite string comparison orders them correctly
func ts(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func rowsAffected(res interface{ RowsAffected() (int64, error) }) (int, error) {
	n, err := res.RowsAffected()
	return int(n), err
}
