package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes DUA manager events to an slog.Logger.
// Useful for development when you want events in the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event at Debug level (Warn for errors).
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("category", event.Category.String()),
	}
	level := slog.LevelDebug

	switch {
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Address != "" {
			attrs = append(attrs, slog.String("address", event.StateChange.Address))
		}
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}

	case event.Registration != nil:
		attrs = append(attrs,
			slog.String("address", event.Registration.Address),
			slog.Int("child_index", event.Registration.ChildIndex),
		)
		if event.Registration.Token != "" {
			attrs = append(attrs, slog.String("token", event.Registration.Token))
		}
		if event.Registration.Status != "" {
			attrs = append(attrs, slog.String("status", event.Registration.Status))
		}

	case event.Error != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("op", event.Error.Op),
			slog.String("error", event.Error.Message),
		)
	}

	a.logger.LogAttrs(context.Background(), level, "dua", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
