package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pissten/SMARTi-EMS/internal/models"
)

// ErrNotFound is returned by a DocumentStore when no document of a kind exists yet.
var ErrNotFound = errors.New("document not found")

// Document kinds kept in the durable store.
const (
	KindConfig = "config"
	KindState  = "state"
)

// DocumentStore persists whole JSON documents by kind. Put must replace atomically:
// a reader never observes a partially written document.
type DocumentStore interface {
	Get(ctx context.Context, kind string) ([]byte, error)
	Put(ctx context.Context, kind string, body []byte) error
}

type ConfigRepo interface {
	Load(ctx context.Context) (models.Configuration, error)
	Save(ctx context.Context, c models.Configuration) error
}

type StateRepo interface {
	Load(ctx context.Context) (models.RuntimeState, error)
	Save(ctx context.Context, s models.RuntimeState) error
}

// EventQuery selects budget events. Zero fields do not filter.
type EventQuery struct {
	From     time.Time // inclusive
	To       time.Time // inclusive
	Type     string
	EntityID string
	Limit    int // keep only the newest Limit events, still returned oldest first
}

type EventRepo interface {
	Append(ctx context.Context, e models.BudgetEvent) error
	List(ctx context.Context, q EventQuery) ([]models.BudgetEvent, error)
}

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.Operator, error)
}

type Repository struct {
	ConfigRepo ConfigRepo
	StateRepo  StateRepo
	EventRepo  EventRepo
	Auth       Authorization
}

// NewRepository wires the SQL-backed repositories. docs holds the two documents;
// pass nil to keep them in the same database.
func NewRepository(db *sql.DB, docs DocumentStore) *Repository {
	if docs == nil {
		docs = NewDocumentSQLite(db)
	}
	return &Repository{
		ConfigRepo: NewConfigDocument(docs),
		StateRepo:  NewStateDocument(docs),
		EventRepo:  NewEventSQLite(db),
		Auth:       NewOperatorRepository(db),
	}
}
