package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	// modernc registers as "sqlite", which older sqlx bind tables do not know.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Connect opens the data store connection and optionally ensures the gateway tables exist.
func Connect(driver, dsn string, migrate bool) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if driver == DriverSQLite {
		// a single connection keeps in-memory databases shared
		db.SetMaxOpenConns(1)
	}

	if migrate {
		if err := Migrate(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	return db, nil
}

// Migrate creates the tables the gateway reads and writes.
func Migrate(db *sqlx.DB) error {
	timestamp := "TIMESTAMPTZ"
	if db.DriverName() == DriverSQLite {
		timestamp = "DATETIME"
	}

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
            id TEXT PRIMARY KEY,
            created_at ` + timestamp + ` NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS conversation_participants (
            conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            PRIMARY KEY(conversation_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            sender_id TEXT NOT NULL,
            content TEXT NOT NULL,
            created_at ` + timestamp + ` NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS message_receipts (
            message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            reader_id TEXT NOT NULL,
            status TEXT NOT NULL,
            delivered_at ` + timestamp + `,
            read_at ` + timestamp + `,
            PRIMARY KEY(message_id, reader_id)
        );`,
		`CREATE TABLE IF NOT EXISTS message_reactions (
            message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            emoji TEXT NOT NULL,
            created_at ` + timestamp + ` NOT NULL,
            PRIMARY KEY(message_id, user_id, emoji)
        );`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Printf("database migrations applied driver=%s", db.DriverName())
	return nil
}
