package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes events as structured log records.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log.With("component", "notify")}
}

func (l *LogNotifier) Notify(ctx context.Context, ev Event) {
	attrs := []any{
		"event", string(ev.Kind),
		"target", ev.Target,
	}
	if ev.Path != "" {
		attrs = append(attrs, "path", ev.Path)
	}
	if ev.Reason != "" {
		attrs = append(attrs, "reason", string(ev.Reason))
	}
	if ev.RunID != "" {
		attrs = append(attrs, "run_id", ev.RunID)
	}

	if ev.Kind == Failed {
		l.log.ErrorContext(ctx, ev.Title(), append(attrs, "error", ev.Err)...)
		return
	}
	l.log.InfoContext(ctx, ev.Message(), attrs...)
}
