package repository

import (
	"database/sql"
	"fmt"
)

// Segment sink schema. Compatible with both SQLite and PostgreSQL.
const schemaSegments = `
CREATE TABLE IF NOT EXISTS %s (
    customer_id TEXT NOT NULL,
    recency REAL NOT NULL,
    frequency REAL NOT NULL,
    monetary REAL NOT NULL,
    last_purchase_date TIMESTAMP NOT NULL,
    months_with_purchases INTEGER NOT NULL,
    scores TEXT NOT NULL,
    ranges TEXT NOT NULL,
    final_score TEXT NOT NULL,
    business_category TEXT NOT NULL,
    cutoff_date TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (customer_id, cutoff_date)
);

CREATE INDEX IF NOT EXISTS idx_%[2]s_category ON %[1]s(business_category);
CREATE INDEX IF NOT EXISTS idx_%[2]s_cutoff ON %[1]s(cutoff_date);
`

func migrate(db *sql.DB, table string) error {
	_, err := db.Exec(fmt.Sprintf(schemaSegments, table, table))
	return err
}
