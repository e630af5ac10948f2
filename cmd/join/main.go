// Command join is a headless room client: it resolves a persona, fetches
// connection details from an avatar-meet server, performs the optional
// encryption bootstrap and joins the media room, triggering the agent
// dispatch once connected.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/RommanNadeem/avatar-meet/internal/adapters/rtc"
	"github.com/RommanNadeem/avatar-meet/internal/persona"
	"github.com/RommanNadeem/avatar-meet/internal/session"
)

func main() {
	var (
		server     = flag.String("server", "http://localhost:8080", "avatar-meet server base URL")
		roomName   = flag.String("room", "", "room to join (required)")
		name       = flag.String("name", "", "display name (random guest name when empty)")
		personaID  = flag.String("persona", "", "persona ID from the catalog; empty skips persona selection")
		region     = flag.String("region", "", "media server region")
		passphrase = flag.String("passphrase", "", "end-to-end encryption passphrase")
		agentName  = flag.String("agent", "", "agent name override")
		video      = flag.Bool("video", true, "publish video")
		audio      = flag.Bool("audio", true, "publish audio")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *roomName == "" {
		log.Fatal().Msg("--room is required")
	}

	selector := persona.NewSelector()
	if *personaID != "" {
		if err := selector.Highlight(*personaID); err != nil {
			log.Fatal().Err(err).Msg("persona selection failed")
		}
	}

	boot := session.New(session.Options{
		RoomName:        *roomName,
		ParticipantName: *name,
		Region:          *region,
		Passphrase:      *passphrase,
		AgentName:       *agentName,
		Video:           *video,
		Audio:           *audio,
	}, session.NewTokenClient(*server), session.NewAgentClient(*server), rtc.NewRoom())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	if p, perr := selector.Confirm(); perr == nil {
		err = boot.ChoosePersona(ctx, p)
	} else {
		err = boot.SkipPersona(ctx)
	}
	if err != nil {
		if msg := boot.UserMessage(); msg != "" {
			log.Error().Msg(msg)
		}
		os.Exit(1)
	}

	<-ctx.Done()
	boot.Leave()
	log.Info().Msg("left room")
}
