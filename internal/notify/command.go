package notify

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// CommandNotifier runs an external command per event, typically a desktop
// notification tool. Arguments may contain the placeholders {title},
// {message}, {kind}, {target} and {path}.
type CommandNotifier struct {
	argv    []string
	timeout time.Duration
	log     *slog.Logger
	kinds   map[Kind]bool
}

// NewCommandNotifier builds a notifier for argv. When kinds is empty only
// Archived and Failed events run the command.
func NewCommandNotifier(argv []string, log *slog.Logger, kinds ...Kind) *CommandNotifier {
	if log == nil {
		log = slog.Default()
	}
	if len(kinds) == 0 {
		kinds = []Kind{Archived, Failed}
	}
	k := make(map[Kind]bool, len(kinds))
	for _, kind := range kinds {
		k[kind] = true
	}
	return &CommandNotifier{
		argv:    append([]string(nil), argv...),
		timeout: 10 * time.Second,
		log:     log.With("component", "notify.command"),
		kinds:   k,
	}
}

func (c *CommandNotifier) Notify(ctx context.Context, ev Event) {
	if len(c.argv) == 0 || !c.kinds[ev.Kind] {
		return
	}

	r := strings.NewReplacer(
		"{title}", ev.Title(),
		"{message}", ev.Message(),
		"{kind}", string(ev.Kind),
		"{target}", ev.Target,
		"{path}", ev.Path,
	)
	args := make([]string, len(c.argv))
	for i, a := range c.argv {
		args[i] = r.Replace(a)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	if out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput(); err != nil {
		c.log.Warn("notification command failed",
			"command", args[0],
			"error", err,
			"output", strings.TrimSpace(string(out)),
		)
	}
}
