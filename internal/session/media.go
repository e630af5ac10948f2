package session

import (
	"context"

	"github.com/RommanNadeem/avatar-meet/internal/domain"
)

// ConnectionState mirrors the media engine's connection lifecycle.
type ConnectionState int

const (
	MediaDisconnected ConnectionState = iota
	MediaConnecting
	MediaConnected
)

// ConnectOptions are the media capabilities requested on join.
type ConnectOptions struct {
	Video         bool
	Audio         bool
	AutoSubscribe bool
}

// MediaRoom abstracts the external media engine. The bootstrapper only
// depends on this port; internal/adapters/rtc provides the real engine.
//
// InstallKey must be called before Connect when encryption is requested;
// it returns domain.ErrEncryptionUnsupported if the engine cannot carry
// encrypted media.
type MediaRoom interface {
	State() ConnectionState

	// OnConnected registers fn for the engine's "connected" signal and
	// returns a remover. It does not fire for an already-connected room;
	// callers must check State separately to avoid missing a signal that
	// fired before the listener attached.
	OnConnected(fn func()) (remove func())

	OnDisconnected(fn func())

	InstallKey(key []byte) error

	Connect(ctx context.Context, details *domain.ConnectionDetails, opts ConnectOptions) error

	Disconnect()
}
