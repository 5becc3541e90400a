package storage

import (
	"database/sql"
	"fmt"
)

// expectedSchemaVersion is the latest schema version the application expects.
const expectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS merchant_patterns (
					id TEXT PRIMARY KEY,
					canonical_name TEXT NOT NULL,
					category TEXT NOT NULL,
					subcategory TEXT,
					tax_category TEXT,
					bill_type TEXT,
					aliases TEXT NOT NULL,
					confidence REAL NOT NULL,
					business_use_percentage REAL DEFAULT 0,
					match_count INTEGER DEFAULT 0,
					is_tax_deductible BOOLEAN DEFAULT 0,
					is_recurring BOOLEAN DEFAULT 0,
					learned BOOLEAN DEFAULT 0,
					last_updated DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_merchant_patterns_learned ON merchant_patterns(learned)`,

				`CREATE TABLE IF NOT EXISTS category_signatures (
					id TEXT PRIMARY KEY,
					category TEXT NOT NULL,
					subcategory TEXT,
					keywords TEXT NOT NULL,
					regex_patterns TEXT,
					confidence REAL NOT NULL,
					business_relevance REAL DEFAULT 0,
					is_tax_deductible BOOLEAN DEFAULT 0
				)`,

				`CREATE TABLE IF NOT EXISTS learning_events (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_id TEXT NOT NULL,
					description TEXT NOT NULL,
					amount REAL NOT NULL,
					correction TEXT NOT NULL,
					prior TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_learning_events_created_at ON learning_events(created_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add classification history",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS classifications (
					transaction_id TEXT PRIMARY KEY,
					category TEXT NOT NULL,
					subcategory TEXT,
					confidence REAL DEFAULT 0,
					source TEXT NOT NULL,
					tax_category TEXT,
					is_tax_deductible BOOLEAN DEFAULT 0,
					is_bill BOOLEAN DEFAULT 0,
					business_use_percentage REAL DEFAULT 0,
					reasoning TEXT,
					processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_classifications_category ON classifications(category)`,
				`CREATE INDEX idx_classifications_source ON classifications(source)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}
