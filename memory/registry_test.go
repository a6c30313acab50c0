package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/storage"
	"github.com/poiesic/docent/storage/badger"
	"github.com/poiesic/docent/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, windowSize int, opts ...Option) (*Registry, *badger.Repositories) {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	registry, err := NewRegistry(repos.Sessions, windowSize, opts...)
	require.NoError(t, err)
	return registry, repos
}

func userTurn(text string) *core.ConversationTurn {
	return &core.ConversationTurn{Role: core.RoleUser, Text: text}
}

func assistantTurn(text string, citations ...core.ID) *core.ConversationTurn {
	return &core.ConversationTurn{Role: core.RoleAssistant, Text: text, Citations: citations}
}

// failingSessions fails every write.
type failingSessions struct {
	storage.SessionRepository
	err error
}

func (f *failingSessions) AppendTurns(context.Context, ...*core.ConversationTurn) ([]*core.ConversationTurn, error) {
	return nil, f.err
}

func (f *failingSessions) RecentTurns(context.Context, string, int) ([]*core.ConversationTurn, error) {
	return nil, nil
}

func TestNewRegistry(t *testing.T) {
	t.Run("nil repository", func(t *testing.T) {
		_, err := NewRegistry(nil, 10)
		assert.Equal(t, ErrSessionRepositoryRequired, err)
	})

	t.Run("default window size", func(t *testing.T) {
		registry, _ := newTestRegistry(t, 0)
		assert.Equal(t, DefaultWindowSize, registry.windowSize)
	})
}

func TestAcquire_EmptySessionID(t *testing.T) {
	registry, _ := newTestRegistry(t, 10)
	_, err := registry.Acquire(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrEmptySessionID)
}

func TestAcquire_Busy(t *testing.T) {
	metrics := telemetry.New(prometheus.NewRegistry())
	registry, _ := newTestRegistry(t, 10, WithMetrics(metrics))
	ctx := context.Background()

	lease, err := registry.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, registry.Busy("s1"))

	_, err = registry.Acquire(ctx, "s1")
	assert.ErrorIs(t, err, core.ErrSessionBusy)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SessionBusyTotal))

	other, err := registry.Acquire(ctx, "s2")
	require.NoError(t, err, "other sessions are independent")
	other.Release()

	lease.Release()
	lease.Release()
	assert.False(t, registry.Busy("s1"))

	again, err := registry.Acquire(ctx, "s1")
	require.NoError(t, err)
	again.Release()
}

func TestAcquire_ConcurrentSingleOwner(t *testing.T) {
	registry, _ := newTestRegistry(t, 10)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		owners  atomic.Int32
		busy    atomic.Int32
		start   = make(chan struct{})
		holding = make(chan struct{})
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			lease, err := registry.Acquire(ctx, "shared")
			if errors.Is(err, core.ErrSessionBusy) {
				busy.Add(1)
				return
			}
			if err != nil {
				return
			}
			owners.Add(1)
			<-holding
			lease.Release()
		}()
	}

	close(start)
	require.Eventually(t, func() bool {
		return owners.Load()+busy.Load() == 8
	}, time.Second, time.Millisecond)
	close(holding)
	wg.Wait()

	assert.Equal(t, int32(1), owners.Load())
	assert.Equal(t, int32(7), busy.Load())
}

func TestCommit_PersistsThenAppends(t *testing.T) {
	registry, repos := newTestRegistry(t, 10)
	ctx := context.Background()

	lease, err := registry.Acquire(ctx, "s1")
	require.NoError(t, err)
	defer lease.Release()

	assert.Equal(t, StateEmpty, lease.Session().State())

	user := userTurn("how do I create a plan?")
	answer := assistantTurn("Open the Plans tab [1].", 42)
	require.NoError(t, lease.Commit(ctx, user, answer))

	assert.Equal(t, StateActive, lease.Session().State())
	assert.Equal(t, "s1", user.SessionId)
	assert.NotZero(t, user.Id)
	assert.False(t, user.Timestamp.IsZero())
	assert.Equal(t, RuneEstimator{}.Count(user.Text), user.TokenCount)

	window := lease.Window()
	require.Len(t, window, 2)
	assert.Equal(t, core.RoleUser, window[0].Role)
	assert.Equal(t, []core.ID{42}, window[1].Citations)

	history, err := repos.Sessions.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, user.Text, history[0].Text)

	full, err := lease.Session().FullHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, full, 2)
}

func TestCommit_FailureLeavesWindowUntouched(t *testing.T) {
	boom := errors.New("disk full")
	registry, err := NewRegistry(&failingSessions{err: boom}, 10)
	require.NoError(t, err)
	ctx := context.Background()

	lease, err := registry.Acquire(ctx, "s1")
	require.NoError(t, err)
	defer lease.Release()

	err = lease.Commit(ctx, userTurn("q"))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, lease.Window())
}

func TestCommit_Validation(t *testing.T) {
	registry, repos := newTestRegistry(t, 10)
	ctx := context.Background()

	lease, err := registry.Acquire(ctx, "s1")
	require.NoError(t, err)
	defer lease.Release()

	t.Run("nil turn", func(t *testing.T) {
		assert.ErrorIs(t, lease.Commit(ctx, nil), core.ErrInvalidTurn)
	})

	t.Run("other session", func(t *testing.T) {
		turn := userTurn("q")
		turn.SessionId = "s2"
		assert.ErrorIs(t, lease.Commit(ctx, turn), ErrSessionMismatch)
	})

	t.Run("empty text", func(t *testing.T) {
		assert.ErrorIs(t, lease.Commit(ctx, userTurn("ok"), userTurn("")), core.ErrInvalidTurn)
	})

	assert.Empty(t, lease.Window())
	history, err := repos.Sessions.History(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCommit_AfterRelease(t *testing.T) {
	registry, _ := newTestRegistry(t, 10)
	ctx := context.Background()

	lease, err := registry.Acquire(ctx, "s1")
	require.NoError(t, err)
	lease.Release()

	assert.Equal(t, ErrLeaseReleased, lease.Commit(ctx, userTurn("q")))
}

func TestCommit_WindowBound(t *testing.T) {
	registry, _ := newTestRegistry(t, 4)
	ctx := context.Background()

	lease, err := registry.Acquire(ctx, "s1")
	require.NoError(t, err)
	defer lease.Release()

	for n := range 5 {
		require.NoError(t, lease.Commit(ctx, userTurn(fmt.Sprintf("q%d", n))))
	}

	window := lease.Window()
	require.Len(t, window, 4)
	assert.Equal(t, "q1", window[0].Text)
	assert.Equal(t, "q4", window[3].Text)
}

func TestAcquire_RestoresRecentTurns(t *testing.T) {
	ctx := context.Background()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()

	for n := range 6 {
		_, err := repos.Sessions.AppendTurns(ctx, &core.ConversationTurn{
			SessionId: "s1",
			Role:      core.RoleUser,
			Text:      fmt.Sprintf("q%d", n),
			Timestamp: time.Now(),
		})
		require.NoError(t, err)
	}

	registry, err := NewRegistry(repos.Sessions, 3)
	require.NoError(t, err)

	lease, err := registry.Acquire(ctx, "s1")
	require.NoError(t, err)
	defer lease.Release()

	window := lease.Window()
	require.Len(t, window, 3)
	assert.Equal(t, []string{"q3", "q4", "q5"}, texts(window))
}

func TestEnd(t *testing.T) {
	registry, repos := newTestRegistry(t, 10)
	ctx := context.Background()

	lease, err := registry.Acquire(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, lease.Commit(ctx, userTurn("q")))

	assert.False(t, registry.End("s1"), "leased sessions are not ended")
	lease.Release()

	assert.True(t, registry.End("s1"))
	assert.False(t, registry.End("s1"))
	assert.Equal(t, 0, registry.Len())

	history, err := repos.Sessions.History(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, history, 1, "history survives End")
}

// blockingDeletes holds DeleteSession until release is closed.
type blockingDeletes struct {
	storage.SessionRepository
	started chan struct{}
	release chan struct{}
}

func (b *blockingDeletes) DeleteSession(ctx context.Context, sessionID string) error {
	close(b.started)
	<-b.release
	return b.SessionRepository.DeleteSession(ctx, sessionID)
}

func TestRemove(t *testing.T) {
	registry, repos := newTestRegistry(t, 10)
	ctx := context.Background()

	lease, err := registry.Acquire(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, lease.Commit(ctx, userTurn("q")))

	assert.ErrorIs(t, registry.Remove(ctx, "s1"), core.ErrSessionBusy)
	lease.Release()

	require.NoError(t, registry.Remove(ctx, "s1"))
	assert.Equal(t, 0, registry.Len())
	history, err := repos.Sessions.History(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, registry.Remove(ctx, "never-seen"))
	assert.ErrorIs(t, registry.Remove(ctx, ""), core.ErrEmptySessionID)
}

func TestRemove_BlocksAcquireUntilDeleted(t *testing.T) {
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()
	ctx := context.Background()

	_, err = repos.Sessions.AppendTurns(ctx, &core.ConversationTurn{
		SessionId: "s1", Role: core.RoleUser, Text: "old question", Timestamp: time.Now(),
	})
	require.NoError(t, err)

	sessions := &blockingDeletes{
		SessionRepository: repos.Sessions,
		started:           make(chan struct{}),
		release:           make(chan struct{}),
	}
	registry, err := NewRegistry(sessions, 10)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- registry.Remove(ctx, "s1") }()
	<-sessions.started

	_, err = registry.Acquire(ctx, "s1")
	assert.ErrorIs(t, err, core.ErrSessionBusy)
	assert.True(t, registry.Busy("s1"))

	close(sessions.release)
	require.NoError(t, <-done)

	lease, err := registry.Acquire(ctx, "s1")
	require.NoError(t, err)
	defer lease.Release()
	assert.Empty(t, lease.Window(), "deleted history is not restored")
}

func TestSweep(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	registry, _ := newTestRegistry(t, 10, WithClock(clock))
	ctx := context.Background()

	for _, id := range []string{"old", "fresh", "held"} {
		lease, err := registry.Acquire(ctx, id)
		require.NoError(t, err)
		if id != "held" {
			lease.Release()
		}
		if id == "old" {
			now = now.Add(time.Hour)
		}
	}
	now = now.Add(time.Hour)

	evicted := registry.Sweep(90 * time.Minute)
	assert.Equal(t, []string{"old"}, evicted)
	assert.Equal(t, 2, registry.Len())
	assert.True(t, registry.Busy("held"))
}
