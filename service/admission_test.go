package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/txix-open/isp-kit/test"
	"quota-guard-service/domain"
)

type fakeStore struct {
	mu        sync.Mutex
	counters  map[string]int64
	sentinels map[string]bool
	failing   bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		counters:  make(map[string]int64),
		sentinels: make(map[string]bool),
	}
}

func (s *fakeStore) Increment(ctx context.Context, today time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing {
		return 0, errors.New("store unavailable")
	}
	key := today.UTC().Format(time.DateOnly)
	s.counters[key]++
	return s.counters[key], nil
}

func (s *fakeStore) SetAlertSentinel(ctx context.Context, today time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failing {
		return false, errors.New("store unavailable")
	}
	key := today.UTC().Format(time.DateOnly)
	if s.sentinels[key] {
		return false, nil
	}
	s.sentinels[key] = true
	return true, nil
}

func (s *fakeStore) setFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

type fakeNotifier struct {
	count    atomic.Int32
	messages sync.Map
}

func (n *fakeNotifier) Notify(ctx context.Context, message domain.AlertMessage) error {
	i := n.count.Add(1)
	n.messages.Store(i, message)
	return nil
}

func newAdmission(t *testing.T, store *fakeStore, notifier Notifier, limit int64) *Admission {
	testInstance, _ := test.New(t)
	alerts := NewAlert(store, notifier, limit, testInstance.Logger())
	return NewAdmission(store, alerts, limit, testInstance.Logger())
}

func TestSequentialCallsOverLimit(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	store := newFakeStore()
	notifier := &fakeNotifier{}
	admission := newAdmission(t, store, notifier, 3)

	expected := []domain.AdmissionDecision{
		{Denied: false, CurrentCount: 1},
		{Denied: false, CurrentCount: 2},
		{Denied: false, CurrentCount: 3},
		{Denied: true, CurrentCount: 4},
	}
	for i, expectedDecision := range expected {
		decision := admission.CheckAndIncrement(context.Background())
		require.EqualValues(expectedDecision, decision, "call %d", i+1)
	}

	require.Eventually(func() bool {
		return notifier.count.Load() == 1
	}, time.Second, 10*time.Millisecond)

	value, ok := notifier.messages.Load(int32(1))
	require.True(ok)
	message := value.(domain.AlertMessage)
	require.EqualValues(int64(4), message.CurrentCount)
	require.EqualValues(int64(3), message.Limit)
	require.EqualValues(time.Now().UTC().Format(time.DateOnly), message.Date)
}

func TestBoundaryCountIsAllowed(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	store := newFakeStore()
	notifier := &fakeNotifier{}
	admission := newAdmission(t, store, notifier, 2)

	_ = admission.CheckAndIncrement(context.Background())
	decision := admission.CheckAndIncrement(context.Background())
	require.False(decision.Denied)
	require.EqualValues(int64(2), decision.CurrentCount)

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(int32(0), notifier.count.Load())
}

func TestConcurrentCountsArePermutation(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	const (
		callCount = 100
		limit     = 40
	)
	store := newFakeStore()
	notifier := &fakeNotifier{}
	admission := newAdmission(t, store, notifier, limit)

	decisions := make([]domain.AdmissionDecision, callCount)
	wg := sync.WaitGroup{}
	for i := 0; i < callCount; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decisions[i] = admission.CheckAndIncrement(context.Background())
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	deniedCount := 0
	for _, decision := range decisions {
		require.False(seen[decision.CurrentCount], "duplicate count %d", decision.CurrentCount)
		seen[decision.CurrentCount] = true
		require.GreaterOrEqual(decision.CurrentCount, int64(1))
		require.LessOrEqual(decision.CurrentCount, int64(callCount))
		require.EqualValues(decision.CurrentCount > limit, decision.Denied)
		if decision.Denied {
			deniedCount++
		}
	}
	require.EqualValues(callCount-limit, deniedCount)

	require.Eventually(func() bool {
		return notifier.count.Load() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestFailOpenOnStoreFailure(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	store := newFakeStore()
	store.setFailing(true)
	notifier := &fakeNotifier{}
	admission := newAdmission(t, store, notifier, 3)

	for i := 0; i < 10; i++ {
		decision := admission.CheckAndIncrement(context.Background())
		require.False(decision.Denied)
		require.EqualValues(int64(0), decision.CurrentCount)
	}

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(int32(0), notifier.count.Load())
}

func TestFailOpenMidSequence(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	store := newFakeStore()
	notifier := &fakeNotifier{}
	admission := newAdmission(t, store, notifier, 3)

	decision := admission.CheckAndIncrement(context.Background())
	require.EqualValues(domain.AdmissionDecision{Denied: false, CurrentCount: 1}, decision)

	store.setFailing(true)
	for i := 0; i < 3; i++ {
		decision := admission.CheckAndIncrement(context.Background())
		require.EqualValues(domain.AdmissionDecision{Denied: false, CurrentCount: 0}, decision)
	}

	time.Sleep(50 * time.Millisecond)
	require.EqualValues(int32(0), notifier.count.Load())
}

func TestNextDayStartsFresh(t *testing.T) {
	t.Parallel()
	require := require.New(t)

	store := newFakeStore()
	notifier := &fakeNotifier{}
	admission := newAdmission(t, store, notifier, 1)

	day1 := time.Date(2025, 6, 1, 23, 50, 0, 0, time.UTC)
	admission.now = func() time.Time { return day1 }

	_ = admission.CheckAndIncrement(context.Background())
	decision := admission.CheckAndIncrement(context.Background())
	require.True(decision.Denied)
	require.EqualValues(int64(2), decision.CurrentCount)

	require.Eventually(func() bool {
		return notifier.count.Load() == 1
	}, time.Second, 10*time.Millisecond)

	admission.now = func() time.Time { return day1.Add(24 * time.Hour) }

	decision = admission.CheckAndIncrement(context.Background())
	require.EqualValues(domain.AdmissionDecision{Denied: false, CurrentCount: 1}, decision)

	decision = admission.CheckAndIncrement(context.Background())
	require.True(decision.Denied)
	require.EqualValues(int64(2), decision.CurrentCount)

	require.Eventually(func() bool {
		return notifier.count.Load() == 2
	}, time.Second, 10*time.Millisecond)
}
