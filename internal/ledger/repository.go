package ledger

import (
	"context"
	"errors"
	"iter"

	"github.com/fjod/go_cart/bakery-pos/internal/domain"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	EventTypeSaleCompleted = "sale.completed"
)

var ErrUnsupportedDriver = errors.New("unsupported ledger driver")

// Credentials configures the postgres ledger.
type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is a checkout notification waiting to be published.
type OutboxEvent struct {
	ID         int64
	CheckoutID string
	EventType  string
	Payload    []byte
}

// Ledger is the append-only sales store. There is no update or delete.
type Ledger interface {
	Append(ctx context.Context, lines []domain.SaleLine) ([]domain.SaleLine, error)
	ListAll(ctx context.Context) iter.Seq2[domain.SaleLine, error]
	List(ctx context.Context, limit int) ([]domain.SaleLine, error)
	Close() error
}

type Outbox interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}
