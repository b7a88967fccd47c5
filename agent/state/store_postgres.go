package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
)

type PostgresConfig struct {
	DSN string `envconfig:"DSN" split_words:"true" required:"true"`
}

// sessionRecord is the relational shape of a Session. The field map, history
// and offer are stored as JSONB; the stage and terminal flag get their own
// columns so operational queries don't have to unpack the payload.
type sessionRecord struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	CustomerID string          `bun:"customer_id,pk"`
	Stage      string          `bun:"stage,notnull"`
	Terminal   bool            `bun:"terminal,notnull,default:false"`
	Fields     json.RawMessage `bun:"fields,type:jsonb"`
	History    json.RawMessage `bun:"history,type:jsonb"`
	Offer      json.RawMessage `bun:"offer,type:jsonb,nullzero"`
	CreatedAt  time.Time       `bun:"created_at,notnull"`
	UpdatedAt  time.Time       `bun:"updated_at,notnull"`
}

// PostgresStore persists sessions in Postgres via bun.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &PostgresStore{db: db}, nil
}

// Init creates the sessions table if it does not exist.
func (p *PostgresStore) Init(ctx context.Context) error {
	_, err := p.db.NewCreateTable().
		Model((*sessionRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) Load(ctx context.Context, customerID string) (*Session, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, ErrInvalidCustomerID
	}

	rec := new(sessionRecord)
	err := p.db.NewSelect().
		Model(rec).
		Where("customer_id = ?", customerID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}

	session, err := rec.toSession()
	if err != nil {
		return nil, err
	}
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session loaded from store: %w", err)
	}
	return session, nil
}

func (p *PostgresStore) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(s.CustomerID) == "" {
		return ErrInvalidCustomerID
	}
	s.EnsureFieldsMap()

	rec, err := recordFromSession(s)
	if err != nil {
		return err
	}

	_, err = p.db.NewInsert().
		Model(rec).
		On("CONFLICT (customer_id) DO UPDATE").
		Set("stage = EXCLUDED.stage").
		Set("terminal = EXCLUDED.terminal").
		Set("fields = EXCLUDED.fields").
		Set("history = EXCLUDED.history").
		Set("offer = EXCLUDED.offer").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, customerID string) error {
	if strings.TrimSpace(customerID) == "" {
		return ErrInvalidCustomerID
	}
	_, err := p.db.NewDelete().
		Model((*sessionRecord)(nil)).
		Where("customer_id = ?", customerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func recordFromSession(s *Session) (*sessionRecord, error) {
	fields, err := json.Marshal(s.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshal session fields: %w", err)
	}
	history, err := json.Marshal(s.History)
	if err != nil {
		return nil, fmt.Errorf("marshal session history: %w", err)
	}

	rec := &sessionRecord{
		CustomerID: s.CustomerID,
		Stage:      string(s.Stage),
		Terminal:   s.Terminal,
		Fields:     fields,
		History:    history,
		CreatedAt:  s.CreatedAt.UTC(),
		UpdatedAt:  s.UpdatedAt.UTC(),
	}
	if s.Offer != nil {
		offer, err := json.Marshal(s.Offer)
		if err != nil {
			return nil, fmt.Errorf("marshal session offer: %w", err)
		}
		rec.Offer = offer
	}
	return rec, nil
}

func (r *sessionRecord) toSession() (*Session, error) {
	s := &Session{
		CustomerID: r.CustomerID,
		Stage:      contractx.Stage(r.Stage),
		Terminal:   r.Terminal,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if len(r.Fields) > 0 {
		if err := json.Unmarshal(r.Fields, &s.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal session fields: %w", err)
		}
	}
	if len(r.History) > 0 {
		if err := json.Unmarshal(r.History, &s.History); err != nil {
			return nil, fmt.Errorf("unmarshal session history: %w", err)
		}
	}
	if len(r.Offer) > 0 {
		if err := json.Unmarshal(r.Offer, &s.Offer); err != nil {
			return nil, fmt.Errorf("unmarshal session offer: %w", err)
		}
	}
	s.EnsureFieldsMap()
	return s, nil
}
