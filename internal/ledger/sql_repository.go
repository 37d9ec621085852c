package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/fjod/go_cart/bakery-pos/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const (
	insertSaleLineQuery = `
		INSERT INTO sale_line ("timestamp", product_name, quantity, unit_price, total)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	listSaleLinesQuery = `
		SELECT id, "timestamp", product_name, quantity, unit_price, total
		FROM sale_line
		ORDER BY "timestamp" DESC, id DESC
	`
	insertOutboxQuery = `
		INSERT INTO sale_outbox (checkout_id, event_type, payload)
		VALUES ($1, $2, $3)
	`
	unprocessedEventsQuery = `
		SELECT id, checkout_id, event_type, payload
		FROM sale_outbox
		WHERE processed_at IS NULL
		ORDER BY id
		LIMIT $1
	`
	markProcessedQuery = `UPDATE sale_outbox SET processed_at = CURRENT_TIMESTAMP WHERE id = $1`
)

// Repository is the SQL ledger shared by the sqlite and postgres drivers.
type Repository struct {
	db     *sql.DB
	driver string
	outbox bool
}

type Option func(*Repository)

// WithOutbox makes Append record a sale.completed event in the same
// transaction as the sale lines.
func WithOutbox(enabled bool) Option {
	return func(r *Repository) {
		r.outbox = enabled
	}
}

// NewSQLiteRepository opens the sqlite ledger. The pool holds a single
// connection, so checkouts queue on it instead of failing with SQLITE_BUSY.
func NewSQLiteRepository(dbPath string, opts ...Option) (*Repository, error) {
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := pingOrClose(db); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return newRepository(db, DriverSQLite, opts), nil
}

func NewPostgresRepository(cred *Credentials, opts ...Option) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := pingOrClose(db); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	return newRepository(db, DriverPostgres, opts), nil
}

func newRepository(db *sql.DB, driver string, opts []Option) *Repository {
	r := &Repository{db: db, driver: driver}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// pingOrClose releases the pool when the database is unreachable, since the
// caller never gets a Repository to Close.
func pingOrClose(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

func sqliteDSN(path string) string {
	if path == ":memory:" || strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)"
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	var (
		driver database.Driver
		err    error
	)
	switch r.driver {
	case DriverSQLite:
		driver, err = sqlite.WithInstance(r.db, &sqlite.Config{})
	case DriverPostgres:
		driver, err = postgres.WithInstance(r.db, &postgres.Config{
			MigrationsTable: "ledger_schema_migrations",
		})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, r.driver)
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		r.driver,
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// Append stores all lines in one transaction and returns them with their
// ids. Either every line is stored or none is.
func (r *Repository) Append(ctx context.Context, lines []domain.SaleLine) ([]domain.SaleLine, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stored := make([]domain.SaleLine, 0, len(lines))
	for _, line := range lines {
		if err := tx.QueryRowContext(ctx, insertSaleLineQuery,
			line.Timestamp,
			line.ProductName,
			line.Quantity,
			line.UnitPrice,
			line.Total,
		).Scan(&line.ID); err != nil {
			return nil, fmt.Errorf("insert sale line %q: %w", line.ProductName, err)
		}
		stored = append(stored, line)
	}

	if r.outbox {
		if err := insertOutboxEvent(ctx, tx, stored); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sale lines: %w", err)
	}
	return stored, nil
}

func insertOutboxEvent(ctx context.Context, tx *sql.Tx, lines []domain.SaleLine) error {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Total)
	}

	event := domain.SaleCompletedEvent{
		CheckoutID:  uuid.New().String(),
		Timestamp:   lines[0].Timestamp,
		Lines:       lines,
		TotalAmount: total,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	if _, err := tx.ExecContext(ctx, insertOutboxQuery, event.CheckoutID, EventTypeSaleCompleted, string(payload)); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// ListAll yields every sale line, newest first. Each range over the
// returned sequence runs a fresh query.
func (r *Repository) ListAll(ctx context.Context) iter.Seq2[domain.SaleLine, error] {
	return func(yield func(domain.SaleLine, error) bool) {
		rows, err := r.db.QueryContext(ctx, listSaleLinesQuery)
		if err != nil {
			yield(domain.SaleLine{}, fmt.Errorf("failed to query sale lines: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			line, err := scanSaleLine(rows)
			if err != nil {
				yield(domain.SaleLine{}, err)
				return
			}
			if !yield(line, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(domain.SaleLine{}, fmt.Errorf("row iteration error: %w", err))
		}
	}
}

// List collects at most limit lines from ListAll. A limit <= 0 means all.
func (r *Repository) List(ctx context.Context, limit int) ([]domain.SaleLine, error) {
	var lines []domain.SaleLine
	for line, err := range r.ListAll(ctx) {
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
		if limit > 0 && len(lines) == limit {
			break
		}
	}
	return lines, nil
}

func scanSaleLine(rows *sql.Rows) (domain.SaleLine, error) {
	var line domain.SaleLine
	err := rows.Scan(
		&line.ID,
		&line.Timestamp,
		&line.ProductName,
		&line.Quantity,
		&line.UnitPrice,
		&line.Total,
	)
	if err != nil {
		return domain.SaleLine{}, fmt.Errorf("failed to scan sale line: %w", err)
	}
	return line, nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, unprocessedEventsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		e := &OutboxEvent{}
		if err := rows.Scan(&e.ID, &e.CheckoutID, &e.EventType, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, markProcessedQuery, id); err != nil {
		return fmt.Errorf("mark outbox event %d: %w", id, err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
