// Package repository loads transactions from configured sources and
// writes segments to configured sinks. CSV files and SQL databases
// (SQLite via modernc.org/sqlite, PostgreSQL via lib/pq) sit behind the
// same interfaces.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Store resolves source and sink IDs against the configuration and
// moves rows in and out. SQL connections are opened per operation; a
// run touches each source and sink once.
type Store struct {
	cfg   *domain.Config
	start time.Time
	end   time.Time
}

// New creates a store for one analysis window.
func New(cfg *domain.Config, start, end time.Time) *Store {
	return &Store{cfg: cfg, start: start, end: end}
}

// LoadTransactions reads all transactions from the named source,
// filtered to the analysis window unless the source disables that.
func (s *Store) LoadTransactions(ctx context.Context, sourceID string) ([]domain.Transaction, error) {
	src, ok := s.cfg.Sources[sourceID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown source %q", domain.ErrConfiguration, sourceID)
	}

	switch src.Driver {
	case "csv":
		return s.csvLoad(src)
	case "sqlite", "postgres":
		return s.sqlLoad(ctx, src)
	default:
		return nil, fmt.Errorf("%w: source %q: unsupported driver %q", domain.ErrConfiguration, sourceID, src.Driver)
	}
}

func (s *Store) sqlLoad(ctx context.Context, src domain.SourceConfig) ([]domain.Transaction, error) {
	db, err := open(src.Driver, src.Path, src.DSN)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	cols := s.cfg.Global.Columns
	query := fmt.Sprintf(
		"SELECT %s, %s, %s, %s, %s FROM %s",
		cols.CustomerID, cols.Invoice, cols.Date, cols.Price, cols.Quantity,
		src.Table,
	)
	var args []any
	if !src.NoDateFilter {
		query += fmt.Sprintf(" WHERE %s >= ? AND %s <= ?", cols.Date, cols.Date)
		args = append(args, bindTime(src.Driver, s.start), bindTime(src.Driver, s.end))
	}

	rows, err := db.QueryContext(ctx, rebind(src.Driver, query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", src.Table, err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var customer, invoice sql.NullString
		var price, qty sql.NullFloat64
		var ts timeValue
		if err := rows.Scan(&customer, &invoice, &ts, &price, &qty); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", src.Table, err)
		}
		tx.Timestamp = ts.t
		tx.CustomerID = customer.String
		tx.InvoiceID = invoice.String
		tx.UnitPrice = nullFloat(price)
		tx.Quantity = nullFloat(qty)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func nullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// WriteSegments upserts segment rows into the named sink's table,
// keyed by customer and cutoff date. CSV sinks are handled by the
// export package, not here.
func (s *Store) WriteSegments(ctx context.Context, sinkID string, rows []domain.SegmentRow) error {
	snk, ok := s.cfg.Sinks[sinkID]
	if !ok {
		return fmt.Errorf("%w: unknown sink %q", domain.ErrConfiguration, sinkID)
	}
	if snk.Driver != "sqlite" && snk.Driver != "postgres" {
		return fmt.Errorf("%w: sink %q: driver %q is not a sql sink", domain.ErrConfiguration, sinkID, snk.Driver)
	}

	db, err := open(snk.Driver, snk.Path, snk.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	table := snk.Table
	if table == "" {
		table = "segments"
	}
	if err := migrate(db, table); err != nil {
		return fmt.Errorf("migrating sink %q: %w", sinkID, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (
			customer_id, recency, frequency, monetary,
			last_purchase_date, months_with_purchases,
			scores, ranges, final_score, business_category,
			cutoff_date, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(customer_id, cutoff_date) DO UPDATE SET
			recency = excluded.recency,
			frequency = excluded.frequency,
			monetary = excluded.monetary,
			last_purchase_date = excluded.last_purchase_date,
			months_with_purchases = excluded.months_with_purchases,
			scores = excluded.scores,
			ranges = excluded.ranges,
			final_score = excluded.final_score,
			business_category = excluded.business_category,
			created_at = excluded.created_at
	`, table)
	query = rebind(snk.Driver, query)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning sink transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing sink insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, row := range rows {
		scores, _ := json.Marshal(row.Scores)
		ranges, _ := json.Marshal(renderRanges(row.Ranges))

		if _, err := stmt.ExecContext(ctx,
			row.CustomerID, row.Recency, row.Frequency, row.Monetary,
			bindTime(snk.Driver, row.LastPurchaseDate), row.MonthsWithPurchases,
			string(scores), string(ranges), row.FinalScore, row.BusinessCategory,
			bindTime(snk.Driver, row.CutoffDate), bindTime(snk.Driver, now),
		); err != nil {
			return fmt.Errorf("inserting segment for %s: %w", row.CustomerID, err)
		}
	}
	return tx.Commit()
}

func renderRanges(ranges map[string]*domain.Interval) map[string]string {
	out := make(map[string]string, len(ranges))
	for name, iv := range ranges {
		if iv == nil {
			out[name] = ""
			continue
		}
		out[name] = iv.String()
	}
	return out
}

// AggregateMetrics pushes the per-customer aggregation down into the
// database for sql sources. The result matches aggregate.Aggregate on
// the same rows.
func (s *Store) AggregateMetrics(ctx context.Context, sourceID string, endDate time.Time) (*domain.CustomerTable, error) {
	src, ok := s.cfg.Sources[sourceID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown source %q", domain.ErrConfiguration, sourceID)
	}
	if src.Driver != "sqlite" && src.Driver != "postgres" {
		return nil, fmt.Errorf("%w: source %q: driver %q cannot aggregate in sql", domain.ErrConfiguration, sourceID, src.Driver)
	}

	db, err := open(src.Driver, src.Path, src.DSN)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	cols := s.cfg.Global.Columns
	monthExpr := fmt.Sprintf("strftime('%%Y-%%m', %s)", cols.Date)
	if src.Driver == "postgres" {
		monthExpr = fmt.Sprintf("to_char(%s, 'YYYY-MM')", cols.Date)
	}

	query := fmt.Sprintf(`
		SELECT %[1]s,
			COUNT(DISTINCT %[2]s),
			SUM(%[3]s * %[4]s),
			MAX(%[5]s),
			COUNT(DISTINCT %[6]s)
		FROM %[7]s
		WHERE %[1]s IS NOT NULL AND %[1]s <> ''`,
		cols.CustomerID, cols.Invoice, cols.Price, cols.Quantity,
		cols.Date, monthExpr, src.Table,
	)
	var args []any
	if !src.NoDateFilter {
		query += fmt.Sprintf(" AND %s >= ? AND %s <= ?", cols.Date, cols.Date)
		args = append(args, bindTime(src.Driver, s.start), bindTime(src.Driver, s.end))
	}
	query += fmt.Sprintf(" GROUP BY %s", cols.CustomerID)

	rows, err := db.QueryContext(ctx, rebind(src.Driver, query), args...)
	if err != nil {
		return nil, fmt.Errorf("aggregating %s: %w", src.Table, err)
	}
	defer rows.Close()

	table := &domain.CustomerTable{}
	for rows.Next() {
		var m domain.CustomerMetrics
		var last timeValue
		if err := rows.Scan(
			&m.CustomerID, &m.Frequency, &m.Monetary,
			&last, &m.MonthsWithPurchases,
		); err != nil {
			return nil, fmt.Errorf("scanning aggregate for %s: %w", src.Table, err)
		}
		m.LastPurchaseDate = last.t
		m.Recency = float64(int(endDate.Sub(m.LastPurchaseDate).Hours() / 24))
		table.Rows = append(table.Rows, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(table.Rows, func(i, j int) bool {
		return table.Rows[i].CustomerID < table.Rows[j].CustomerID
	})
	return table, nil
}

// sqliteTimeLayout is how timestamps are bound into sqlite: canonical
// datetime text that strftime parses and that compares lexicographically
// in date order. Binding a raw time.Time would store Go's String()
// form, which sqlite's date functions cannot read.
const sqliteTimeLayout = "2006-01-02 15:04:05"

// bindTime prepares a timestamp argument for the given driver.
func bindTime(driver string, t time.Time) any {
	if driver == "sqlite" {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t
}

// timeValue scans a timestamp that sqlite may return as text when the
// declared column type is lost inside an aggregate expression.
type timeValue struct {
	t time.Time
}

func (v *timeValue) Scan(src any) error {
	switch s := src.(type) {
	case time.Time:
		v.t = s
		return nil
	case []byte:
		return v.parse(string(s))
	case string:
		return v.parse(s)
	case nil:
		v.t = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T as timestamp", src)
}

func (v *timeValue) parse(s string) error {
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05 -0700 MST",
		sqliteTimeLayout,
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			v.t = t
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}

func open(driver, path, dsn string) (*sql.DB, error) {
	switch driver {
	case "sqlite":
		return openSQLite(path)
	case "postgres":
		return openPostgres(dsn)
	default:
		return nil, fmt.Errorf("%w: unsupported sql driver %q", domain.ErrConfiguration, driver)
	}
}

// rebind converts ? placeholders to $1, $2, ... for postgres.
func rebind(driver, query string) string {
	if driver != "postgres" {
		return query
	}
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
