package jobs

import (
	"context"
	"log/slog"
	"time"
)

// SessionSweeper removes expired stored sessions.
type SessionSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// ScreenSweeper forgets screen state unused for longer than idle.
type ScreenSweeper interface {
	Sweep(idle time.Duration) int
}

// Janitor bundles the housekeeping targets run on one schedule. Nil targets
// are skipped.
type Janitor struct {
	Sessions   SessionSweeper
	Screens    ScreenSweeper
	ScreenIdle time.Duration
	Log        *slog.Logger
}

// Run performs one sweep over every target.
func (j Janitor) Run(ctx context.Context) error {
	log := j.Log
	if log == nil {
		log = slog.Default()
	}
	var sessions int64
	if j.Sessions != nil {
		n, err := j.Sessions.Sweep(ctx)
		if err != nil {
			return err
		}
		sessions = n
	}
	screens := 0
	if j.Screens != nil && j.ScreenIdle > 0 {
		screens = j.Screens.Sweep(j.ScreenIdle)
	}
	if sessions+int64(screens) > 0 {
		log.InfoContext(ctx, "janitor swept",
			slog.Int64("sessions", sessions),
			slog.Int("screens", screens),
		)
	}
	return nil
}
