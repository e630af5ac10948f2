// Package rtc is the media-engine adapter: a client-side room connection
// over websocket signaling and a WebRTC peer connection.
package rtc

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/RommanNadeem/avatar-meet/internal/domain"
	"github.com/RommanNadeem/avatar-meet/internal/session"
)

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// Room implements session.MediaRoom over a signaling websocket and a pion
// peer connection.
type Room struct {
	rtcConfig webrtc.Configuration

	mu             sync.Mutex
	ws             *websocket.Conn
	pc             *webrtc.PeerConnection
	state          session.ConnectionState
	connected      map[int]func()
	nextHandler    int
	onDisconnected func()
	frameKey       []byte
}

func NewRoom() *Room {
	return &Room{
		rtcConfig: DefaultWebRTCConfig(),
		state:     session.MediaDisconnected,
		connected: make(map[int]func()),
	}
}

func (r *Room) State() session.ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Room) OnConnected(fn func()) (remove func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextHandler
	r.nextHandler++
	r.connected[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.connected, id)
	}
}

func (r *Room) OnDisconnected(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onDisconnected = fn
}

// InstallKey stores frame-encryption key material on the engine. Keys must
// be installed before Connect so the first negotiated media is already
// encrypted; a late install reports the engine as unsupported for this
// session rather than silently sending cleartext.
func (r *Room) InstallKey(key []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != session.MediaDisconnected {
		return domain.ErrEncryptionUnsupported
	}
	r.frameKey = key
	return nil
}

// Connect dials the signaling endpoint with the capability token, sets up
// the peer connection and starts the signaling read loop. The connected
// signal fires once the peer connection reaches the connected state.
func (r *Room) Connect(ctx context.Context, details *domain.ConnectionDetails, opts session.ConnectOptions) error {
	r.mu.Lock()
	if r.state != session.MediaDisconnected {
		r.mu.Unlock()
		return errors.New("room already connecting")
	}
	r.state = session.MediaConnecting
	encrypted := r.frameKey != nil
	r.mu.Unlock()

	wsURL, err := signalURL(details.ServerURL, details.ParticipantToken, opts.AutoSubscribe, encrypted)
	if err != nil {
		r.setState(session.MediaDisconnected)
		return err
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		r.setState(session.MediaDisconnected)
		return err
	}

	pc, err := webrtc.NewPeerConnection(r.rtcConfig)
	if err != nil {
		_ = ws.Close()
		r.setState(session.MediaDisconnected)
		return err
	}

	if opts.Audio {
		if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio); err != nil {
			log.Warn().Str("module", "rtc").Err(err).Msg("audio transceiver")
		}
	}
	if opts.Video {
		if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo); err != nil {
			log.Warn().Str("module", "rtc").Err(err).Msg("video transceiver")
		}
	}

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("room", details.RoomName).
			Str("peer_connection_state", s.String()).Msg("peer state")
		switch s {
		case webrtc.PeerConnectionStateConnected:
			r.fireConnected()
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			r.fireDisconnected()
		}
	})

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		cj := cand.ToJSON()
		r.send(signalEnvelope{Kind: "trickle", Candidate: &cj})
	})

	r.mu.Lock()
	r.ws = ws
	r.pc = pc
	r.mu.Unlock()

	go r.readLoop(ws, pc, details.RoomName)
	return nil
}

func (r *Room) Disconnect() {
	r.mu.Lock()
	ws := r.ws
	pc := r.pc
	r.ws = nil
	r.pc = nil
	r.state = session.MediaDisconnected
	r.mu.Unlock()

	if ws != nil {
		_ = ws.WriteJSON(signalEnvelope{Kind: "leave"})
		_ = ws.Close()
	}
	if pc != nil {
		if err := pc.Close(); err != nil {
			log.Error().Str("module", "rtc").Err(err).Msg("close error")
		}
	}
}

// signalEnvelope is one signaling message; the server drives negotiation.
type signalEnvelope struct {
	Kind      string                   `json:"type"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

func (r *Room) readLoop(ws *websocket.Conn, pc *webrtc.PeerConnection, roomName string) {
	for {
		var env signalEnvelope
		if err := ws.ReadJSON(&env); err != nil {
			log.Info().Str("module", "rtc").Str("room", roomName).Err(err).Msg("signaling closed")
			r.fireDisconnected()
			return
		}
		switch env.Kind {
		case "offer":
			r.handleOffer(pc, env.SDP)
		case "trickle":
			if env.Candidate != nil {
				if err := pc.AddICECandidate(*env.Candidate); err != nil {
					log.Warn().Str("module", "rtc").Err(err).Msg("add candidate")
				}
			}
		case "leave":
			r.fireDisconnected()
			return
		}
	}
}

func (r *Room) handleOffer(pc *webrtc.PeerConnection, sdp string) {
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := pc.SetRemoteDescription(offer); err != nil {
		log.Error().Str("module", "rtc").Err(err).Msg("set remote description")
		return
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		log.Error().Str("module", "rtc").Err(err).Msg("create answer")
		return
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		log.Error().Str("module", "rtc").Err(err).Msg("set local description")
		return
	}
	r.send(signalEnvelope{Kind: "answer", SDP: answer.SDP})
}

func (r *Room) send(env signalEnvelope) {
	r.mu.Lock()
	ws := r.ws
	r.mu.Unlock()
	if ws == nil {
		return
	}
	if err := ws.WriteJSON(env); err != nil {
		log.Warn().Str("module", "rtc").Err(err).Msg("signal send")
	}
}

func (r *Room) fireConnected() {
	r.mu.Lock()
	r.state = session.MediaConnected
	fns := make([]func(), 0, len(r.connected))
	for _, fn := range r.connected {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (r *Room) fireDisconnected() {
	r.mu.Lock()
	alreadyDown := r.state == session.MediaDisconnected
	r.state = session.MediaDisconnected
	fn := r.onDisconnected
	r.mu.Unlock()
	if !alreadyDown && fn != nil {
		fn()
	}
}

func (r *Room) setState(s session.ConnectionState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// signalURL builds the signaling websocket URL from the media endpoint and
// capability token. The endpoint may arrive as ws(s) or http(s).
func signalURL(serverURL, token string, autoSubscribe, encrypted bool) (string, error) {
	base := serverURL
	switch {
	case len(base) >= 8 && base[:8] == "https://":
		base = "wss://" + base[8:]
	case len(base) >= 7 && base[:7] == "http://":
		base = "ws://" + base[7:]
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = "/rtc"
	q := u.Query()
	q.Set("access_token", token)
	if autoSubscribe {
		q.Set("auto_subscribe", "1")
	}
	if encrypted {
		// The server must not transcode encrypted media.
		q.Set("e2ee", "1")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
