package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/RommanNadeem/avatar-meet/internal/domain"
	"github.com/RommanNadeem/avatar-meet/internal/persona"
)

var ErrBadTransition = errors.New("session is past persona selection")

// Options configures one session attempt.
type Options struct {
	RoomName string

	// ParticipantName may be empty; a guest name is generated.
	ParticipantName string

	Region string

	// Passphrase enables end-to-end encryption when non-empty. Key
	// installation strictly precedes the media connect.
	Passphrase string

	// AgentName overrides the server's default agent.
	AgentName string

	Video bool
	Audio bool
}

// Bootstrapper is the session state machine:
//
//	SelectingPersona -> Connecting -> Live -> (Disconnected | Errored)
//
// It makes exactly one agent-dispatch attempt per transition into Live,
// guarded by a flag that is never reset within the session's lifetime.
type Bootstrapper struct {
	opts   Options
	tokens TokenClient
	agents AgentClient
	room   MediaRoom

	mu              sync.Mutex
	state           State
	persona         *persona.Persona
	agentRequested  bool
	removeConnected func()
	userMessage     string
}

func New(opts Options, tokens TokenClient, agents AgentClient, room MediaRoom) *Bootstrapper {
	if opts.ParticipantName == "" {
		opts.ParticipantName = domain.RandomParticipantName()
	}
	return &Bootstrapper{
		opts:   opts,
		tokens: tokens,
		agents: agents,
		room:   room,
		state:  SelectingPersona,
	}
}

func (b *Bootstrapper) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// UserMessage returns the blocking message to show the user after a setup
// failure, empty otherwise.
func (b *Bootstrapper) UserMessage() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.userMessage
}

// Persona returns the confirmed persona, nil when skipped.
func (b *Bootstrapper) Persona() *persona.Persona {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.persona
}

// ChoosePersona confirms a persona and starts connecting.
func (b *Bootstrapper) ChoosePersona(ctx context.Context, p *persona.Persona) error {
	return b.start(ctx, p)
}

// SkipPersona starts connecting without a persona.
func (b *Bootstrapper) SkipPersona(ctx context.Context) error {
	return b.start(ctx, nil)
}

func (b *Bootstrapper) start(ctx context.Context, p *persona.Persona) error {
	b.mu.Lock()
	if b.state != SelectingPersona {
		b.mu.Unlock()
		return ErrBadTransition
	}
	b.state = Connecting
	b.persona = p
	b.mu.Unlock()

	log.Info().Str("module", "session").Str("room", b.opts.RoomName).
		Str("participant", b.opts.ParticipantName).Msg("fetching connection details")

	details, err := b.tokens.ConnectionDetails(ctx, b.opts.RoomName, b.opts.ParticipantName, b.opts.Region, persona.DispatchMetadata(p))
	if err != nil {
		// Token failure sends the user back to persona selection.
		b.fail(SelectingPersona, fmt.Sprintf("Failed to connect: %v. Please check your media server configuration.", err))
		return err
	}
	if !domain.ValidServerURL(details.ServerURL) {
		err := fmt.Errorf("received invalid server URL %q", details.ServerURL)
		b.fail(Errored, err.Error())
		return err
	}

	// E2EE bootstrap gates the connect: the key must be installed on the
	// engine before the engine is told to connect, never racing it.
	if b.opts.Passphrase != "" {
		key := DeriveKey(DecodePassphrase(b.opts.Passphrase))
		if err := b.room.InstallKey(key); err != nil {
			if errors.Is(err, domain.ErrEncryptionUnsupported) {
				// Terminal and user-facing; not escalated further.
				b.fail(Errored, "You're trying to join an encrypted meeting, but your client does not support it. Please update it and try again.")
				return err
			}
			b.fail(Errored, fmt.Sprintf("Encryption setup failed: %v", err))
			return err
		}
		log.Info().Str("module", "session").Msg("encryption key installed")
	}

	// Subscribe before checking state so the connected signal cannot slip
	// between the check and the subscription.
	remove := b.room.OnConnected(b.onConnected)
	b.mu.Lock()
	b.removeConnected = remove
	b.mu.Unlock()
	b.room.OnDisconnected(b.onRoomDisconnected)
	if b.room.State() == MediaConnected {
		// Pre-fired case: the engine connected before we listened.
		b.onConnected()
	}

	opts := ConnectOptions{Video: b.opts.Video, Audio: b.opts.Audio, AutoSubscribe: true}
	if err := b.room.Connect(ctx, details, opts); err != nil {
		b.fail(Errored, fmt.Sprintf("Failed to connect to the media room: %v", err))
		return err
	}
	return nil
}

// onConnected handles the media room's "connected" signal. It may be
// observed more than once (pre-fired check plus subscription, reconnects);
// the guard flag is set synchronously before the asynchronous dispatch call
// starts, so the dispatch fires at most once per session.
func (b *Bootstrapper) onConnected() {
	b.mu.Lock()
	if b.state == Connecting {
		b.state = Live
		log.Info().Str("module", "session").Str("room", b.opts.RoomName).Msg("session live")
	}
	if b.agentRequested {
		b.mu.Unlock()
		return
	}
	b.agentRequested = true
	req := AgentRequest{
		Room:      b.opts.RoomName,
		AgentName: b.opts.AgentName,
		Ensure:    true,
	}
	if b.persona != nil {
		req.AvatarID = b.persona.ID
		req.PersonaName = b.persona.Name
	}
	agents := b.agents
	b.mu.Unlock()

	// An automatic background action must never interrupt a live call.
	BestEffort("request-agent", func() error {
		return agents.RequestAgent(context.Background(), req)
	})
}

func (b *Bootstrapper) onRoomDisconnected() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Live || b.state == Connecting {
		b.state = Disconnected
		log.Info().Str("module", "session").Str("room", b.opts.RoomName).Msg("session disconnected")
	}
}

// Leave tears the session down. In-flight requests become fire-and-forget;
// their late responses are ignored.
func (b *Bootstrapper) Leave() {
	b.mu.Lock()
	if b.removeConnected != nil {
		b.removeConnected()
		b.removeConnected = nil
	}
	if b.state != Errored {
		b.state = Disconnected
	}
	b.mu.Unlock()
	b.room.Disconnect()
}

func (b *Bootstrapper) fail(next State, msg string) {
	log.Error().Str("module", "session").Str("room", b.opts.RoomName).Msg(msg)
	b.mu.Lock()
	b.state = next
	b.userMessage = msg
	b.mu.Unlock()
}
