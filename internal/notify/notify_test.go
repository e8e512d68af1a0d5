package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_Text(t *testing.T) {
	ev := Event{Kind: Archived, Path: "/b/docs_backup_2023-03-25.zip", Size: 3 * 1024 * 1024}
	assert.Equal(t, "Backup Completed", ev.Title())
	assert.Equal(t, "Backup created: /b/docs_backup_2023-03-25.zip, Size: 3.0 MiB", ev.Message())

	del := Event{Kind: Deleted, Path: "/b/x.zip", Reason: ReasonSizeLimit}
	assert.Equal(t, "Deleted backup (size_limit): /b/x.zip", del.Message())

	fail := Event{Kind: Failed, Target: "/data/docs", Err: errors.New("disk full")}
	assert.Equal(t, "Backup Failed", fail.Title())
	assert.Contains(t, fail.Message(), "disk full")
}

func TestMulti(t *testing.T) {
	var got []Kind
	rec := Func(func(_ context.Context, ev Event) { got = append(got, ev.Kind) })

	m := Multi{rec, nil, Nop{}, rec}
	m.Notify(context.Background(), Event{Kind: Deleted})

	assert.Equal(t, []Kind{Deleted, Deleted}, got)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	n := NewLogNotifier(log)
	n.Notify(context.Background(), Event{Kind: Deleted, Target: "/data/docs", Path: "/b/x.zip", Reason: ReasonExpired, RunID: "r1"})
	n.Notify(context.Background(), Event{Kind: Failed, Target: "/data/docs", Err: errors.New("boom")})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "deleted", rec["event"])
	assert.Equal(t, "expired", rec["reason"])
	assert.Equal(t, "r1", rec["run_id"])
	assert.Equal(t, "notify", rec["component"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "boom", rec["error"])
}

func TestCommandNotifier(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}

	out := filepath.Join(t.TempDir(), "notified")
	n := NewCommandNotifier([]string{"/bin/sh", "-c", `printf '%s|%s' "$1" "$2" >> "$3"`, "sh", "{title}", "{path}", out}, nil)

	n.Notify(context.Background(), Event{Kind: Deleted, Path: "/b/ignored.zip"})
	n.Notify(context.Background(), Event{Kind: Archived, Path: "/b/new.zip", Size: 10})

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "Backup Completed|/b/new.zip", string(b))
}

func TestCommandNotifier_FailureIsSwallowed(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	n := NewCommandNotifier([]string{filepath.Join(t.TempDir(), "missing-binary")}, log, Failed)
	n.Notify(context.Background(), Event{Kind: Failed, Err: errors.New("x")})

	assert.Contains(t, buf.String(), "notification command failed")
}
