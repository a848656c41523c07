package link

import (
	"context"

	"go.minekube.com/floodgate/pkg/floodgate"
	"go.minekube.com/floodgate/pkg/util/uuid"
)

// Disabled is the Store used when player linking is disabled.
// Every operation fails with ErrDisabled.
type Disabled struct{}

var _ Store = Disabled{}

func (Disabled) FetchLink(context.Context, uuid.UUID) (*floodgate.LinkedPlayer, error) {
	return nil, ErrDisabled
}
func (Disabled) IsLinked(context.Context, uuid.UUID) (bool, error) { return false, ErrDisabled }
func (Disabled) AddLink(context.Context, uuid.UUID, string, uuid.UUID) (*floodgate.LinkedPlayer, error) {
	return nil, ErrDisabled
}
func (Disabled) Unlink(context.Context, uuid.UUID) error { return ErrDisabled }
func (Disabled) CreateLinkRequest(context.Context, uuid.UUID, string, string, string) (*floodgate.LinkRequest, error) {
	return nil, ErrDisabled
}
func (Disabled) LinkRequest(context.Context, string) (*floodgate.LinkRequest, error) {
	return nil, ErrDisabled
}
func (Disabled) InvalidateLinkRequest(context.Context, *floodgate.LinkRequest) error {
	return ErrDisabled
}
func (Disabled) Enabled() bool { return false }
func (Disabled) Name() string  { return "disabled" }
func (Disabled) Close() error  { return nil }
