package mailbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailbox_LatestWins(t *testing.T) {
	m := New[int]()
	assert.False(t, m.HasJob())

	m.Put(1)
	m.Put(2)
	assert.True(t, m.HasJob())

	j, ok := m.Take(context.Background())
	require.True(t, ok)
	assert.Equal(t, 2, j)
	assert.Nil(t, m.TryTake())
}

func TestMailbox_TakeBlocksUntilPut(t *testing.T) {
	m := New[string]()
	got := make(chan string, 1)

	go func() {
		j, _ := m.Take(context.Background())
		got <- j
	}()

	time.Sleep(20 * time.Millisecond)
	m.Put("run")

	select {
	case j := <-got:
		assert.Equal(t, "run", j)
	case <-time.After(2 * time.Second):
		t.Fatal("Take did not return after Put")
	}
}

func TestMailbox_TakeCanceled(t *testing.T) {
	m := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := m.Take(ctx)
	assert.False(t, ok)
}
