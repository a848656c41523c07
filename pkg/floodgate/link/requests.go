package link

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/util/uuid"
)

// RequestStore keeps pending link requests, keyed by Java username.
type RequestStore interface {
	// Put stores req and replaces a request of the same Java username.
	Put(ctx context.Context, req *floodgate.LinkRequest) error
	// Get returns the request of the Java username or nil.
	Get(ctx context.Context, javaUsername string) (*floodgate.LinkRequest, error)
	// Remove removes req if it is still stored, otherwise it returns ErrLinkRequestNotFound.
	// A newer request of the same Java username is not removed.
	Remove(ctx context.Context, req *floodgate.LinkRequest) error
	Close() error
}

// now is replaced in tests.
var now = time.Now

func newLinkRequest(javaID uuid.UUID, javaUsername, bedrockUsername, code string) *floodgate.LinkRequest {
	return &floodgate.LinkRequest{
		JavaUniqueID:    javaID,
		JavaUsername:    javaUsername,
		BedrockUsername: bedrockUsername,
		LinkCode:        code,
		// stores keep millisecond precision
		CreatedAt: now().Truncate(time.Millisecond),
	}
}

type linkRequestModel struct {
	bun.BaseModel `bun:"table:LinkRequests"`

	JavaUsername    string `bun:"javaUsername,pk"`
	JavaUniqueID    string `bun:"javaUniqueId,notnull"`
	BedrockUsername string `bun:"bedrockUsername,notnull"`
	LinkCode        string `bun:"linkCode,notnull"`
	RequestTime     int64  `bun:"requestTime,notnull"` // unix millis
}

func toRequestModel(r *floodgate.LinkRequest) *linkRequestModel {
	return &linkRequestModel{
		JavaUsername:    r.JavaUsername,
		JavaUniqueID:    r.JavaUniqueID.String(),
		BedrockUsername: r.BedrockUsername,
		LinkCode:        r.LinkCode,
		RequestTime:     r.CreatedAt.UnixMilli(),
	}
}

func (m *linkRequestModel) request() (*floodgate.LinkRequest, error) {
	javaID, err := uuid.Parse(m.JavaUniqueID)
	if err != nil {
		return nil, fmt.Errorf("invalid javaUniqueId %q: %w", m.JavaUniqueID, err)
	}
	return &floodgate.LinkRequest{
		JavaUniqueID:    javaID,
		JavaUsername:    m.JavaUsername,
		BedrockUsername: m.BedrockUsername,
		LinkCode:        m.LinkCode,
		CreatedAt:       time.UnixMilli(m.RequestTime),
	}, nil
}

// sqlRequests keeps link requests in the LinkRequests table.
type sqlRequests struct {
	db      *bun.DB
	backend string
}

func (s *sqlRequests) Put(ctx context.Context, req *floodgate.LinkRequest) error {
	m := toRequestModel(req)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*linkRequestModel)(nil)).
			Where("? = ?", bun.Ident("javaUsername"), m.JavaUsername).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(m).Exec(ctx)
		return err
	})
	return storeErr(s.backend, "create link request", err)
}

func (s *sqlRequests) Get(ctx context.Context, javaUsername string) (*floodgate.LinkRequest, error) {
	m := new(linkRequestModel)
	err := s.db.NewSelect().Model(m).
		Where("? = ?", bun.Ident("javaUsername"), javaUsername).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(s.backend, "get link request", err)
	}
	r, err := m.request()
	return r, storeErr(s.backend, "get link request", err)
}

func (s *sqlRequests) Remove(ctx context.Context, req *floodgate.LinkRequest) error {
	res, err := s.db.NewDelete().Model((*linkRequestModel)(nil)).
		Where("? = ?", bun.Ident("javaUsername"), req.JavaUsername).
		Where("? = ?", bun.Ident("linkCode"), req.LinkCode).
		Where("? = ?", bun.Ident("requestTime"), req.CreatedAt.UnixMilli()).
		Exec(ctx)
	if err != nil {
		return storeErr(s.backend, "invalidate link request", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr(s.backend, "invalidate link request", err)
	}
	if n == 0 {
		return ErrLinkRequestNotFound
	}
	return nil
}

// Close is a no-op, the database is closed by the owning Local store.
func (s *sqlRequests) Close() error { return nil }
