package session

import "github.com/rs/zerolog/log"

// BestEffort runs fn on its own goroutine and swallows its error with only
// a log line. It is the type-level home for background actions that must
// never interrupt a user who is already in a live call; anything whose
// failure the user must see returns an error through a normal call path
// instead.
func BestEffort(name string, fn func() error) {
	go func() {
		if err := fn(); err != nil {
			log.Warn().Str("module", "session").Str("task", name).Err(err).
				Msg("best-effort task failed")
		}
	}()
}
