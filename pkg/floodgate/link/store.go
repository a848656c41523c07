// Package link stores the links between Bedrock and Java accounts
// and the pending requests to create them.
package link

import (
	"context"
	"errors"
	"fmt"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/util/uuid"
)

// Store stores linked players and link requests.
//
// Lookups return nil and no error if nothing was found.
// All methods are safe for concurrent use.
type Store interface {
	// FetchLink returns the link of the given Bedrock or Java uuid.
	FetchLink(ctx context.Context, id uuid.UUID) (*floodgate.LinkedPlayer, error)
	// IsLinked reports whether the given Bedrock or Java uuid is linked.
	IsLinked(ctx context.Context, id uuid.UUID) (bool, error)
	// AddLink links the accounts. It fails with ErrDuplicateLink
	// if either of the ids is already linked.
	AddLink(ctx context.Context, javaID uuid.UUID, javaUsername string, bedrockID uuid.UUID) (*floodgate.LinkedPlayer, error)
	// Unlink removes the link of the given Bedrock or Java uuid.
	// Unlinking an id that is not linked is not an error.
	Unlink(ctx context.Context, id uuid.UUID) error

	// CreateLinkRequest stores a link request and replaces a
	// pending request of the same Java player.
	CreateLinkRequest(ctx context.Context, javaID uuid.UUID, javaUsername, bedrockUsername, code string) (*floodgate.LinkRequest, error)
	// LinkRequest returns the pending request of the Java player.
	LinkRequest(ctx context.Context, javaUsername string) (*floodgate.LinkRequest, error)
	// InvalidateLinkRequest removes the request. Only one of concurrent
	// callers succeeds, the others get ErrLinkRequestNotFound.
	InvalidateLinkRequest(ctx context.Context, req *floodgate.LinkRequest) error

	// Enabled reports whether the store can be used at all.
	Enabled() bool
	// Name is the name of the implementation used in logs.
	Name() string
	Close() error
}

var (
	// ErrDisabled is returned by every operation of a disabled store.
	ErrDisabled = errors.New("cannot perform this action when player linking is disabled")
	// ErrLocalDisabled is returned by writes to a global store without local linking.
	ErrLocalDisabled = errors.New("global linking enabled, local disabled")
	// ErrDuplicateLink is returned when one of the accounts is already linked.
	ErrDuplicateLink = errors.New("account is already linked")
	// ErrLinkRequestNotFound is returned when a link request was already invalidated.
	ErrLinkRequestNotFound = errors.New("link request not found")
)

// StoreError is a failure of the backend of a store.
type StoreError struct {
	Op      string // operation, e.g. "fetch link"
	Backend string // e.g. "sqlite", "global api"
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("link store %s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Backend: backend, Err: err}
}
