package rotation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/dir-archiver/internal/archive"
	"github.com/raoulx24/dir-archiver/internal/config"
	"github.com/raoulx24/dir-archiver/internal/notify"
	"github.com/raoulx24/dir-archiver/internal/producer"
)

const mb = 1024 * 1024

var now = time.Date(2023, 3, 25, 10, 0, 0, 0, time.Local)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Notify(_ context.Context, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		s := string(ev.Kind)
		if ev.Reason != "" {
			s += ":" + string(ev.Reason)
		}
		out = append(out, s)
	}
	return out
}

type observer struct{ calls int }

func (o *observer) ObserveRotation(string, time.Duration, time.Time) { o.calls++ }

type failingProducer struct{ err error }

func (f failingProducer) Create(context.Context, config.Target, time.Time) (archive.Archive, bool, error) {
	return archive.Archive{}, false, f.err
}

// newTarget creates a source dir with one file and returns the target.
func newTarget(t *testing.T, base, name, backupPath string, maxMB int64) config.Target {
	t.Helper()
	src := filepath.Join(base, name)
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "file.txt"), []byte("payload"), 0o644))
	return config.Target{Path: src, BackupPath: backupPath, MaxSizeMB: maxMB}
}

func seedArchive(t *testing.T, tgt config.Target, fileName string, size int64, mtime time.Time) string {
	t.Helper()
	dir := tgt.ArchiveDir()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, fileName)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestRotate_CalendarScenario(t *testing.T) {
	tgt := newTarget(t, t.TempDir(), "docs", "", 0)

	paths := map[string]string{}
	for _, d := range []string{"2023-01-01", "2023-02-01", "2023-03-15", "2023-03-24"} {
		paths[d] = seedArchive(t, tgt, "docs_backup_"+d+".zip", 10, now.AddDate(0, 0, -30))
	}
	undated := seedArchive(t, tgt, "notes_2023-13-40.zip", 10, now.AddDate(-5, 0, 0))

	rec := &recorder{}
	obs := &observer{}
	o := New(producer.New(config.FormatZip, nil, nil), Options{Notifier: rec, Observer: obs})

	r, err := o.Rotate(context.Background(), tgt, now)
	require.NoError(t, err)
	assert.True(t, r.OK())
	assert.NotEmpty(t, r.RunID)

	require.NotNil(t, r.Archived)
	assert.Equal(t, filepath.Join(tgt.ArchiveDir(), "docs_backup_2023-03-25.zip"), r.Archived.Path)
	assert.Equal(t, []string{paths["2023-03-15"]}, r.ExpiredRemoved)
	assert.Empty(t, r.SizeEvicted)

	assert.False(t, exists(paths["2023-03-15"]))
	for _, d := range []string{"2023-01-01", "2023-02-01", "2023-03-24"} {
		assert.True(t, exists(paths[d]), d)
	}
	assert.True(t, exists(undated))

	tiers := r.Tiers()
	assert.Equal(t, 1, tiers["YEARLY_ANCHOR"])
	assert.Equal(t, 1, tiers["MONTHLY_ANCHOR"])
	assert.Equal(t, 1, tiers["EXPIRED"])
	assert.Equal(t, 2, tiers["RECENT"], "the fresh archive is recent too")
	assert.Equal(t, 1, tiers["UNDATED"])

	assert.Equal(t, []string{"archived", "deleted:expired"}, rec.kinds())
	assert.Equal(t, 1, obs.calls)
}

func TestRotate_SecondRunIsNoop(t *testing.T) {
	base := t.TempDir()
	tgt := newTarget(t, base, "docs", filepath.Join(base, "store"), 100)
	seedArchive(t, tgt, "docs_backup_2023-03-10.zip", 10, now.AddDate(0, 0, -15))

	rec := &recorder{}
	o := New(producer.New(config.FormatZip, nil, nil), Options{Notifier: rec})

	first, err := o.Rotate(context.Background(), tgt, now)
	require.NoError(t, err)
	require.NotNil(t, first.Archived)
	require.Len(t, first.ExpiredRemoved, 1)

	second, err := o.Rotate(context.Background(), tgt, now)
	require.NoError(t, err)
	assert.Nil(t, second.Archived)
	assert.True(t, second.ArchiveExisted)
	assert.Empty(t, second.ExpiredRemoved)
	assert.Empty(t, second.SizeEvicted)

	assert.Len(t, rec.kinds(), 2, "no events from the second pass")
}

func TestRotate_SizeBudget(t *testing.T) {
	base := t.TempDir()
	store := filepath.Join(base, "store")
	tgt := newTarget(t, base, "docs", store, 100)
	other := config.Target{Path: filepath.Join(base, "photos"), BackupPath: store}

	// the root is shared: files of another target count toward the budget
	var seeded []string
	for i := 0; i < 5; i++ {
		owner := tgt
		if i%2 == 1 {
			owner = other
		}
		day := now.AddDate(0, 0, -5+i)
		name := fmt.Sprintf("%s_backup_%s.zip", owner.Name(), day.Format(archive.DateLayout))
		seeded = append(seeded, seedArchive(t, owner, name, 30*mb, day))
	}

	rec := &recorder{}
	o := New(producer.New(config.FormatZip, nil, nil), Options{Notifier: rec})

	r, err := o.Rotate(context.Background(), tgt, now)
	require.NoError(t, err)
	require.NotNil(t, r.Archived)
	assert.Empty(t, r.ExpiredRemoved)
	assert.Equal(t, seeded[:2], r.SizeEvicted)
	assert.LessOrEqual(t, r.RootBytes, int64(100*mb))

	assert.False(t, exists(seeded[0]))
	assert.False(t, exists(seeded[1]))
	for _, p := range seeded[2:] {
		assert.True(t, exists(p), p)
	}
	assert.True(t, exists(r.Archived.Path))

	assert.Equal(t, []string{"archived", "deleted:size_limit", "deleted:size_limit"}, rec.kinds())
}

func TestRotate_NoBudgetWithoutDedicatedRoot(t *testing.T) {
	tgt := newTarget(t, t.TempDir(), "docs", "", 1)
	big := seedArchive(t, tgt, "docs_backup_2023-03-24.zip", 5*mb, now)

	r, err := New(producer.New(config.FormatZip, nil, nil), Options{}).Rotate(context.Background(), tgt, now)
	require.NoError(t, err)
	assert.Empty(t, r.SizeEvicted)
	assert.True(t, exists(big))
}

func TestRotate_ProducerFailureStillExpires(t *testing.T) {
	tgt := newTarget(t, t.TempDir(), "docs", "", 0)
	old := seedArchive(t, tgt, "docs_backup_2023-03-01.zip", 10, now.AddDate(0, 0, -24))
	expired := seedArchive(t, tgt, "docs_backup_2023-03-02.zip", 10, now.AddDate(0, 0, -23))

	rec := &recorder{}
	o := New(failingProducer{err: errors.New("disk full")}, Options{Notifier: rec})

	r, err := o.Rotate(context.Background(), tgt, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, r.OK())
	assert.Nil(t, r.Archived)

	assert.True(t, exists(old), "monthly anchor kept")
	assert.False(t, exists(expired))
	assert.Equal(t, []string{"deleted:expired", "failed"}, rec.kinds())
}

func TestRotateAll_IsolatesFailures(t *testing.T) {
	base := t.TempDir()
	good := newTarget(t, base, "docs", "", 0)
	missing := config.Target{Path: filepath.Join(base, "missing")}

	reports := New(producer.New(config.FormatZip, nil, nil), Options{}).
		RotateAll(context.Background(), []config.Target{missing, good}, now)

	require.Len(t, reports, 2)
	assert.False(t, reports[0].OK())
	assert.True(t, reports[1].OK())
	require.NotNil(t, reports[1].Archived)
}

func TestRotateAll_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tgt := newTarget(t, t.TempDir(), "docs", "", 0)
	reports := New(producer.New(config.FormatZip, nil, nil), Options{}).RotateAll(ctx, []config.Target{tgt}, now)
	assert.Empty(t, reports)
}

func TestRotate_DryRun(t *testing.T) {
	base := t.TempDir()
	tgt := newTarget(t, base, "docs", filepath.Join(base, "store"), 1)
	expired := seedArchive(t, tgt, "docs_backup_2023-03-02.zip", 2*mb, now.AddDate(0, 0, -23))

	rec := &recorder{}
	obs := &observer{}
	o := New(failingProducer{err: errors.New("must not be called")}, Options{DryRun: true, Notifier: rec, Observer: obs})

	r, err := o.Rotate(context.Background(), tgt, now)
	require.NoError(t, err)
	assert.True(t, r.DryRun)
	assert.True(t, r.WouldArchive)
	assert.Equal(t, []string{expired}, r.ExpiredRemoved)
	assert.Equal(t, []string{expired}, r.SizeEvicted, "eviction is computed on the current tree")

	assert.True(t, exists(expired))
	assert.Empty(t, rec.kinds())
	assert.Zero(t, obs.calls)
}

func TestHistory(t *testing.T) {
	h := NewHistory()
	h.Record(Report{Target: "/a", RunID: "1"}, Report{Target: "/b", RunID: "2"})
	h.Record(Report{Target: "/a", RunID: "3"})

	last := h.Last()
	require.Len(t, last, 2)
	assert.Equal(t, "3", last["/a"].RunID)
	assert.Equal(t, "2", last["/b"].RunID)
}
