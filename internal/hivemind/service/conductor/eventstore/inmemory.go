package eventstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiosk404/echoryn/pkg/logger"
	"github.com/kiosk404/echoryn/pkg/utils/safego"
)

// InMemoryStore is a growable-slice event log with secondary indices,
// mirroring the shape of store/inmemory in the Agents module but adding
// monotonic-seq assignment, a correlation index, and live subscriptions.
type InMemoryStore struct {
	mu       sync.RWMutex
	events   []Event
	byCorr   map[string][]int // correlation/corr id -> indices into events
	closed   bool
	subsMu   sync.Mutex
	subs     []*subscriber
}

type subscriber struct {
	ch    chan Event
	scope Scope
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byCorr: make(map[string][]int),
	}
}

func (s *InMemoryStore) Append(ctx context.Context, evt Event) (uint64, error) {
	if err := validate(evt); err != nil {
		return 0, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	evt.Seq = uint64(len(s.events)) + 1
	if evt.EventID == "" {
		evt.EventID = uuid.New().String()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	idx := len(s.events)
	s.events = append(s.events, evt)
	if corr := evt.CorrelationID(); corr != "" {
		s.byCorr[corr] = append(s.byCorr[corr], idx)
	}
	s.mu.Unlock()

	s.fanOut(evt)
	return evt.Seq, nil
}

func (s *InMemoryStore) AppendAsync(ctx context.Context, evt Event) {
	safego.Go(ctx, func() {
		if _, err := s.Append(ctx, evt); err != nil {
			logger.Warn("[eventstore] append_async dropped event %s: %v", evt.EventType, err)
		}
	})
}

func (s *InMemoryStore) GetRecent(ctx context.Context, q RecentQuery) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if e.Seq <= q.SinceSeq {
			continue
		}
		if q.Prefix != "" && !hasPrefix(e.EventType, q.Prefix) {
			continue
		}
		if q.Actor != "" && e.ActorID != q.Actor {
			continue
		}
		if q.User != "" && e.UserID != q.User {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) GetByCorrID(ctx context.Context, corrID string, prefix string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idxs := s.byCorr[corrID]
	out := make([]Event, 0, len(idxs))
	for _, i := range idxs {
		e := s.events[i]
		if prefix != "" && !hasPrefix(e.EventType, prefix) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *InMemoryStore) GetForActorScoped(ctx context.Context, actor, session, thread string, sinceSeq uint64) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if e.Seq <= sinceSeq {
			continue
		}
		if actor != "" && e.ActorID != actor {
			continue
		}
		if session != "" && e.SessionID() != session {
			continue
		}
		if thread != "" && e.ThreadID() != thread {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *InMemoryStore) Subscribe(ctx context.Context, scope Scope) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, 64), scope: scope}

	s.subsMu.Lock()
	s.subs = append(s.subs, sub)
	s.subsMu.Unlock()

	cancel := func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		for i, sb := range s.subs {
			if sb == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				close(sub.ch)
				break
			}
		}
	}
	return sub.ch, cancel
}

func (s *InMemoryStore) fanOut(evt Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, sub := range s.subs {
		if !sub.scope.matches(evt) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			logger.Warn("[eventstore] subscriber channel full, dropping event %s", evt.EventType)
		}
	}
}

func (s *InMemoryStore) Head() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.events))
}

func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, sub := range s.subs {
		close(sub.ch)
	}
	s.subs = nil
	return nil
}

func validate(evt Event) error {
	if evt.EventType == "" {
		return ErrInvalidEvent
	}
	if evt.ActorID == "" {
		return ErrInvalidEvent
	}
	return nil
}
