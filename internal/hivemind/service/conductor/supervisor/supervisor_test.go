package supervisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeChild is a Child whose Done channel the test controls directly, so
// restart behavior can be exercised deterministically without real timers.
type fakeChild struct {
	mu   sync.Mutex
	done chan struct{}
	err  error
}

func newFakeChild() *fakeChild {
	return &fakeChild{done: make(chan struct{})}
}

func (f *fakeChild) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.done:
	default:
		close(f.done)
	}
}

func (f *fakeChild) Done() <-chan struct{} { return f.done }

func (f *fakeChild) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeChild) crash(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	close(f.done)
}

func TestSupervisor_RestartsFailedChildUnderSameName(t *testing.T) {
	var mu sync.Mutex
	var instances []*fakeChild

	spec := ChildSpec{
		Name: "w1",
		Start: func(ctx context.Context) (Child, error) {
			mu.Lock()
			defer mu.Unlock()
			c := newFakeChild()
			instances = append(instances, c)
			return c, nil
		},
	}

	sup := New(RestartPolicy{MaxRestarts: 3, Window: time.Minute}, nil)
	require.NoError(t, sup.StartChild(context.Background(), spec))

	mu.Lock()
	first := instances[0]
	mu.Unlock()
	first.crash(errors.New("boom"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(instances) == 2
	}, time.Second, 5*time.Millisecond)

	child, ok := sup.Get("w1")
	require.True(t, ok)
	mu.Lock()
	require.Same(t, instances[1], child)
	mu.Unlock()
}

func TestSupervisor_EscalatesAfterMaxRestartsExceeded(t *testing.T) {
	var mu sync.Mutex
	var instances []*fakeChild
	escalated := make(chan string, 1)

	spec := ChildSpec{
		Name: "w1",
		Start: func(ctx context.Context) (Child, error) {
			mu.Lock()
			defer mu.Unlock()
			c := newFakeChild()
			instances = append(instances, c)
			return c, nil
		},
	}

	sup := New(RestartPolicy{MaxRestarts: 2, Window: time.Minute}, func(name string, reason error) {
		escalated <- name
	})
	require.NoError(t, sup.StartChild(context.Background(), spec))

	for i := 0; i < 3; i++ {
		mu.Lock()
		latest := instances[len(instances)-1]
		mu.Unlock()
		latest.crash(errors.New("boom"))
		if i < 2 {
			require.Eventually(t, func() bool {
				mu.Lock()
				defer mu.Unlock()
				return len(instances) == i+2
			}, time.Second, 5*time.Millisecond)
		}
	}

	select {
	case name := <-escalated:
		require.Equal(t, "w1", name)
	case <-time.After(time.Second):
		t.Fatal("expected escalation after exceeding max restarts")
	}

	_, ok := sup.Get("w1")
	require.False(t, ok)
}

func TestSupervisor_WindowResetAllowsFurtherRestarts(t *testing.T) {
	var mu sync.Mutex
	var instances []*fakeChild

	spec := ChildSpec{
		Name: "w1",
		Start: func(ctx context.Context) (Child, error) {
			mu.Lock()
			defer mu.Unlock()
			c := newFakeChild()
			instances = append(instances, c)
			return c, nil
		},
	}

	sup := New(RestartPolicy{MaxRestarts: 1, Window: 20 * time.Millisecond}, nil)
	require.NoError(t, sup.StartChild(context.Background(), spec))

	mu.Lock()
	instances[0].crash(errors.New("first"))
	mu.Unlock()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(instances) == 2
	}, time.Second, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond) // let the restart window expire

	mu.Lock()
	instances[1].crash(errors.New("second"))
	mu.Unlock()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(instances) == 3
	}, time.Second, 5*time.Millisecond)

	_, ok := sup.Get("w1")
	require.True(t, ok)
}

func TestSupervisor_StopChildDoesNotTriggerRestart(t *testing.T) {
	started := 0
	spec := ChildSpec{
		Name: "w1",
		Start: func(ctx context.Context) (Child, error) {
			started++
			return newFakeChild(), nil
		},
	}
	sup := New(DefaultRestartPolicy, nil)
	require.NoError(t, sup.StartChild(context.Background(), spec))
	sup.StopChild("w1")

	time.Sleep(20 * time.Millisecond)
	_, ok := sup.Get("w1")
	require.False(t, ok)
	require.Equal(t, 1, started)
}

func TestSupervisor_DuplicateNameRejected(t *testing.T) {
	spec := ChildSpec{Name: "w1", Start: func(ctx context.Context) (Child, error) { return newFakeChild(), nil }}
	sup := New(DefaultRestartPolicy, nil)
	require.NoError(t, sup.StartChild(context.Background(), spec))
	require.Error(t, sup.StartChild(context.Background(), spec))
}

func TestDesktopRegistry_EnsureReturnsSameActorUntilFailure(t *testing.T) {
	reg := NewDesktopRegistry(nil)
	defer reg.Stop()

	a1, err := reg.Ensure(context.Background(), "desk-1")
	require.NoError(t, err)
	a2, err := reg.Ensure(context.Background(), "desk-1")
	require.NoError(t, err)
	require.Same(t, a1, a2)
}

func TestDesktopActor_TransientRestartDoesNotFailDesktop(t *testing.T) {
	d := NewDesktopActor(context.Background(), "desk-1")
	defer d.Stop()

	var mu sync.Mutex
	var instances []*fakeChild
	require.NoError(t, d.StartTransient(context.Background(), ChildSpec{
		Name: "terminal-1",
		Start: func(ctx context.Context) (Child, error) {
			mu.Lock()
			defer mu.Unlock()
			c := newFakeChild()
			instances = append(instances, c)
			return c, nil
		},
	}))

	mu.Lock()
	instances[0].crash(errors.New("terminal crashed"))
	mu.Unlock()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(instances) == 2
	}, time.Second, 5*time.Millisecond)

	select {
	case <-d.Done():
		t.Fatal("desktop actor should not fail from one transient restart")
	case <-time.After(30 * time.Millisecond):
	}
}
