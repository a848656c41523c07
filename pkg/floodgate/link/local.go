package link

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/atomic"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/util/uuid"
)

// postgres unique_violation
const pgUniqueViolation = "23505"

type linkedPlayerModel struct {
	bun.BaseModel `bun:"table:LinkedPlayers"`

	BedrockID    string `bun:"bedrockId,pk"`
	JavaUniqueID string `bun:"javaUniqueId,notnull,unique"`
	JavaUsername string `bun:"javaUsername,notnull"`
}

func (m *linkedPlayerModel) player() (*floodgate.LinkedPlayer, error) {
	javaID, err := uuid.Parse(m.JavaUniqueID)
	if err != nil {
		return nil, fmt.Errorf("invalid javaUniqueId %q: %w", m.JavaUniqueID, err)
	}
	bedrockID, err := uuid.Parse(m.BedrockID)
	if err != nil {
		return nil, fmt.Errorf("invalid bedrockId %q: %w", m.BedrockID, err)
	}
	return floodgate.NewLinkedPlayer(m.JavaUsername, javaID, bedrockID), nil
}

// Local stores links in a sqlite or postgres database.
type Local struct {
	db       *bun.DB
	backend  string
	requests RequestStore
	closed   atomic.Bool
}

var _ Store = (*Local)(nil)

// LocalOption configures a Local store.
type LocalOption func(*Local)

// WithRequestStore keeps link requests in rs instead of the database.
func WithRequestStore(rs RequestStore) LocalOption {
	return func(l *Local) { l.requests = rs }
}

// OpenSqlite opens the sqlite database file at path.
func OpenSqlite(ctx context.Context, path string, opts ...LocalOption) (*Local, error) {
	sqldb, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	sqldb.SetMaxOpenConns(1)
	return NewLocal(ctx, bun.NewDB(sqldb, sqlitedialect.New()), "sqlite", opts...)
}

// OpenPostgres connects to the postgres database at dsn.
func OpenPostgres(ctx context.Context, dsn string, opts ...LocalOption) (*Local, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return NewLocal(ctx, bun.NewDB(sqldb, pgdialect.New()), "postgres", opts...)
}

// NewLocal returns a Local store on db and creates the tables if missing.
// The store closes db on Close.
func NewLocal(ctx context.Context, db *bun.DB, backend string, opts ...LocalOption) (*Local, error) {
	l := &Local{db: db, backend: backend}
	for _, o := range opts {
		o(l)
	}
	models := []any{(*linkedPlayerModel)(nil)}
	if l.requests == nil {
		l.requests = &sqlRequests{db: db, backend: backend}
		models = append(models, (*linkRequestModel)(nil))
	}
	for _, m := range models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			_ = l.Close()
			return nil, storeErr(backend, "create table", err)
		}
	}
	return l, nil
}

func (l *Local) Name() string  { return l.backend }
func (l *Local) Enabled() bool { return true }

func (l *Local) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	return errors.Join(l.requests.Close(), l.db.Close())
}

func (l *Local) FetchLink(ctx context.Context, id uuid.UUID) (*floodgate.LinkedPlayer, error) {
	m := new(linkedPlayerModel)
	err := l.db.NewSelect().Model(m).
		Where("? = ?", bun.Ident("bedrockId"), id.String()).
		WhereOr("? = ?", bun.Ident("javaUniqueId"), id.String()).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(l.backend, "fetch link", err)
	}
	p, err := m.player()
	return p, storeErr(l.backend, "fetch link", err)
}

func (l *Local) IsLinked(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := l.db.NewSelect().Model((*linkedPlayerModel)(nil)).
		Where("? = ?", bun.Ident("bedrockId"), id.String()).
		WhereOr("? = ?", bun.Ident("javaUniqueId"), id.String()).
		Exists(ctx)
	return ok, storeErr(l.backend, "is linked", err)
}

func (l *Local) AddLink(ctx context.Context, javaID uuid.UUID, javaUsername string, bedrockID uuid.UUID) (*floodgate.LinkedPlayer, error) {
	m := &linkedPlayerModel{
		BedrockID:    bedrockID.String(),
		JavaUniqueID: javaID.String(),
		JavaUsername: javaUsername,
	}
	if _, err := l.db.NewInsert().Model(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateLink
		}
		return nil, storeErr(l.backend, "add link", err)
	}
	return floodgate.NewLinkedPlayer(javaUsername, javaID, bedrockID), nil
}

func (l *Local) Unlink(ctx context.Context, id uuid.UUID) error {
	_, err := l.db.NewDelete().Model((*linkedPlayerModel)(nil)).
		Where("? = ?", bun.Ident("bedrockId"), id.String()).
		WhereOr("? = ?", bun.Ident("javaUniqueId"), id.String()).
		Exec(ctx)
	return storeErr(l.backend, "unlink", err)
}

func (l *Local) CreateLinkRequest(ctx context.Context, javaID uuid.UUID, javaUsername, bedrockUsername, code string) (*floodgate.LinkRequest, error) {
	req := newLinkRequest(javaID, javaUsername, bedrockUsername, code)
	if err := l.requests.Put(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (l *Local) LinkRequest(ctx context.Context, javaUsername string) (*floodgate.LinkRequest, error) {
	return l.requests.Get(ctx, javaUsername)
}

func (l *Local) InvalidateLinkRequest(ctx context.Context, req *floodgate.LinkRequest) error {
	return l.requests.Remove(ctx, req)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == pgUniqueViolation
	}
	return false
}
