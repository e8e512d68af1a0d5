package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raoulx24/dir-archiver/internal/notify"
)

func TestCollector_Notify(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	ctx := context.Background()

	c.Notify(ctx, notify.Event{Kind: notify.Archived, Target: "/data/docs", Size: 100})
	c.Notify(ctx, notify.Event{Kind: notify.Deleted, Target: "/data/docs", Reason: notify.ReasonExpired, Size: 40})
	c.Notify(ctx, notify.Event{Kind: notify.Deleted, Target: "/data/docs", Reason: notify.ReasonExpired, Size: 60})
	c.Notify(ctx, notify.Event{Kind: notify.Deleted, Target: "/data/docs", Reason: notify.ReasonSizeLimit, Size: 7})
	c.Notify(ctx, notify.Event{Kind: notify.Failed, Target: "/data/photos", Err: errors.New("x")})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.created.WithLabelValues("/data/docs")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.deleted.WithLabelValues("/data/docs", "expired")))
	assert.Equal(t, 100.0, testutil.ToFloat64(c.deletedBytes.WithLabelValues("/data/docs", "expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.deleted.WithLabelValues("/data/docs", "size_limit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("/data/photos")))
}

func TestCollector_ObserveRotation(t *testing.T) {
	c := NewCollector(nil)
	finished := time.Unix(1700000000, 0)

	c.ObserveRotation("/data/docs", 2*time.Second, finished)

	assert.Equal(t, 1700000000.0, testutil.ToFloat64(c.lastRotation.WithLabelValues("/data/docs")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(nil)
	c.Notify(context.Background(), notify.Event{Kind: notify.Archived, Target: "/data/docs"})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dirarchiver_archives_created_total{target="/data/docs"} 1`)
}
