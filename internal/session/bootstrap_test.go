package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RommanNadeem/avatar-meet/internal/domain"
	"github.com/RommanNadeem/avatar-meet/internal/persona"
)

type fakeTokens struct {
	details *domain.ConnectionDetails
	err     error
	calls   int
}

func (f *fakeTokens) ConnectionDetails(_ context.Context, roomName, participantName, _, _ string) (*domain.ConnectionDetails, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	d := *f.details
	d.RoomName = roomName
	d.ParticipantName = participantName
	return &d, nil
}

type fakeAgents struct {
	mu       sync.Mutex
	requests []AgentRequest
	err      error
	notify   chan struct{}
}

func newFakeAgents() *fakeAgents {
	return &fakeAgents{notify: make(chan struct{}, 16)}
}

func (f *fakeAgents) RequestAgent(_ context.Context, req AgentRequest) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	f.notify <- struct{}{}
	return f.err
}

func (f *fakeAgents) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// fakeRoom records the order of key installs and connects so gate-ordering
// properties can be asserted on the trace.
type fakeRoom struct {
	mu        sync.Mutex
	state     ConnectionState
	handlers  []func()
	trace     []string
	keyErr    error
	connected bool // connect automatically fires the connected signal
}

func newFakeRoom() *fakeRoom {
	return &fakeRoom{state: MediaDisconnected, connected: true}
}

func (f *fakeRoom) State() ConnectionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeRoom) OnConnected(fn func()) func() {
	f.mu.Lock()
	f.handlers = append(f.handlers, fn)
	idx := len(f.handlers) - 1
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.handlers[idx] = nil
		f.mu.Unlock()
	}
}

func (f *fakeRoom) OnDisconnected(func()) {}

func (f *fakeRoom) InstallKey([]byte) error {
	f.mu.Lock()
	f.trace = append(f.trace, "install-key")
	f.mu.Unlock()
	return f.keyErr
}

func (f *fakeRoom) Connect(context.Context, *domain.ConnectionDetails, ConnectOptions) error {
	f.mu.Lock()
	f.trace = append(f.trace, "connect")
	f.state = MediaConnected
	auto := f.connected
	f.mu.Unlock()
	if auto {
		f.fire()
	}
	return nil
}

func (f *fakeRoom) Disconnect() {
	f.mu.Lock()
	f.state = MediaDisconnected
	f.mu.Unlock()
}

func (f *fakeRoom) fire() {
	f.mu.Lock()
	fns := append([]func(){}, f.handlers...)
	f.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

func details() *domain.ConnectionDetails {
	return &domain.ConnectionDetails{
		ServerURL:        "wss://meet.example.com",
		ParticipantToken: "tok",
	}
}

func waitForDispatch(t *testing.T, agents *fakeAgents) {
	t.Helper()
	select {
	case <-agents.notify:
	case <-time.After(time.Second):
		t.Fatal("agent dispatch never fired")
	}
}

func TestBootstrap_HappyPath(t *testing.T) {
	agents := newFakeAgents()
	room := newFakeRoom()
	b := New(Options{RoomName: "demo", ParticipantName: "Alice", Video: true, Audio: true},
		&fakeTokens{details: details()}, agents, room)

	assert.Equal(t, SelectingPersona, b.State())

	p, _ := persona.Find("2fbdec6f-86fd-47d6-8bcc-e8a69270e75b")
	require.NoError(t, b.ChoosePersona(context.Background(), p))
	waitForDispatch(t, agents)

	assert.Equal(t, Live, b.State())
	req := agents.requests[0]
	assert.Equal(t, "demo", req.Room)
	assert.Equal(t, p.ID, req.AvatarID)
	assert.Equal(t, "Pablo", req.PersonaName)
}

func TestBootstrap_GeneratesGuestName(t *testing.T) {
	b := New(Options{RoomName: "demo"}, &fakeTokens{details: details()}, newFakeAgents(), newFakeRoom())
	assert.Contains(t, b.opts.ParticipantName, "guest-")
}

func TestBootstrap_DispatchFiresAtMostOnce(t *testing.T) {
	agents := newFakeAgents()
	room := newFakeRoom()
	b := New(Options{RoomName: "demo", ParticipantName: "Alice"},
		&fakeTokens{details: details()}, agents, room)

	require.NoError(t, b.SkipPersona(context.Background()))
	waitForDispatch(t, agents)

	// The connected signal firing again and again must not re-dispatch.
	for i := 0; i < 5; i++ {
		room.fire()
	}
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, agents.count())
}

func TestBootstrap_PreFiredConnectedSignal(t *testing.T) {
	agents := newFakeAgents()
	room := newFakeRoom()
	room.connected = false
	// The engine connected before any listener attached.
	room.state = MediaConnected

	b := New(Options{RoomName: "demo", ParticipantName: "Alice"},
		&fakeTokens{details: details()}, agents, room)
	require.NoError(t, b.SkipPersona(context.Background()))
	waitForDispatch(t, agents)
	assert.Equal(t, 1, agents.count())
}

func TestBootstrap_EncryptionGateOrdering(t *testing.T) {
	agents := newFakeAgents()
	room := newFakeRoom()
	b := New(Options{RoomName: "demo", ParticipantName: "Alice", Passphrase: "open%20sesame"},
		&fakeTokens{details: details()}, agents, room)

	require.NoError(t, b.SkipPersona(context.Background()))
	waitForDispatch(t, agents)

	// The key install must strictly precede the connect in the trace.
	require.Equal(t, []string{"install-key", "connect"}, room.trace)
}

func TestBootstrap_NoPassphraseSkipsKeyInstall(t *testing.T) {
	agents := newFakeAgents()
	room := newFakeRoom()
	b := New(Options{RoomName: "demo", ParticipantName: "Alice"},
		&fakeTokens{details: details()}, agents, room)

	require.NoError(t, b.SkipPersona(context.Background()))
	waitForDispatch(t, agents)
	assert.Equal(t, []string{"connect"}, room.trace)
}

func TestBootstrap_EncryptionUnsupportedHalts(t *testing.T) {
	room := newFakeRoom()
	room.keyErr = domain.ErrEncryptionUnsupported
	b := New(Options{RoomName: "demo", ParticipantName: "Alice", Passphrase: "secret"},
		&fakeTokens{details: details()}, newFakeAgents(), room)

	err := b.SkipPersona(context.Background())
	require.ErrorIs(t, err, domain.ErrEncryptionUnsupported)
	assert.Equal(t, Errored, b.State())
	assert.Contains(t, b.UserMessage(), "does not support")
	// The connect gate was never released.
	assert.NotContains(t, room.trace, "connect")
}

func TestBootstrap_OtherEncryptionErrorEscalates(t *testing.T) {
	room := newFakeRoom()
	room.keyErr = errors.New("key ratchet failed")
	b := New(Options{RoomName: "demo", ParticipantName: "Alice", Passphrase: "secret"},
		&fakeTokens{details: details()}, newFakeAgents(), room)

	err := b.SkipPersona(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrEncryptionUnsupported)
	assert.Equal(t, Errored, b.State())
}

func TestBootstrap_TokenFailureReturnsToSelection(t *testing.T) {
	tokens := &fakeTokens{err: errors.New("server misconfigured")}
	b := New(Options{RoomName: "demo", ParticipantName: "Alice"}, tokens, newFakeAgents(), newFakeRoom())

	require.Error(t, b.SkipPersona(context.Background()))
	assert.Equal(t, SelectingPersona, b.State())
	assert.NotEmpty(t, b.UserMessage())

	// Back in selection, the user can try again.
	tokens.err = nil
	tokens.details = details()
	require.NoError(t, b.SkipPersona(context.Background()))
}

func TestBootstrap_InvalidServerURLErrors(t *testing.T) {
	tokens := &fakeTokens{details: &domain.ConnectionDetails{ServerURL: "<your-livekit-url>"}}
	b := New(Options{RoomName: "demo", ParticipantName: "Alice"}, tokens, newFakeAgents(), newFakeRoom())

	require.Error(t, b.SkipPersona(context.Background()))
	assert.Equal(t, Errored, b.State())
}

func TestBootstrap_SecondStartRejected(t *testing.T) {
	agents := newFakeAgents()
	b := New(Options{RoomName: "demo", ParticipantName: "Alice"},
		&fakeTokens{details: details()}, agents, newFakeRoom())

	require.NoError(t, b.SkipPersona(context.Background()))
	waitForDispatch(t, agents)
	assert.ErrorIs(t, b.SkipPersona(context.Background()), ErrBadTransition)
}

func TestBootstrap_DispatchFailureStaysLive(t *testing.T) {
	agents := newFakeAgents()
	agents.err = errors.New("registry down")
	b := New(Options{RoomName: "demo", ParticipantName: "Alice"},
		&fakeTokens{details: details()}, agents, newFakeRoom())

	require.NoError(t, b.SkipPersona(context.Background()))
	waitForDispatch(t, agents)
	time.Sleep(20 * time.Millisecond)

	// A failed automatic dispatch never interrupts a live session.
	assert.Equal(t, Live, b.State())
	assert.Empty(t, b.UserMessage())
}

func TestBootstrap_Leave(t *testing.T) {
	agents := newFakeAgents()
	room := newFakeRoom()
	b := New(Options{RoomName: "demo", ParticipantName: "Alice"},
		&fakeTokens{details: details()}, agents, room)

	require.NoError(t, b.SkipPersona(context.Background()))
	waitForDispatch(t, agents)

	b.Leave()
	assert.Equal(t, Disconnected, b.State())
	assert.Equal(t, MediaDisconnected, room.State())
}

func TestDecodePassphrase(t *testing.T) {
	assert.Equal(t, "open sesame", DecodePassphrase("open%20sesame"))
	assert.Equal(t, "plain", DecodePassphrase("plain"))
}

func TestDeriveKey(t *testing.T) {
	k1 := DeriveKey("secret")
	k2 := DeriveKey("secret")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, keyLength)
	assert.NotEqual(t, k1, DeriveKey("other"))
}
