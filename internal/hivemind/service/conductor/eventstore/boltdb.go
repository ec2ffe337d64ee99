package eventstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/boltdb/bolt"
	"github.com/google/uuid"
	"github.com/kiosk404/echoryn/pkg/logger"
	"github.com/kiosk404/echoryn/pkg/utils/json"
	"github.com/kiosk404/echoryn/pkg/utils/safego"
)

var (
	bucketEvents  = []byte("events")
	bucketByCorr  = []byte("events_by_corr")
	bucketByActor = []byte("events_by_actor")
)

// BoltStore is the durable Store backend: one bucket keyed by big-endian
// seq holding the marshaled Event, plus secondary buckets mapping
// corr-id/actor to seq lists, all maintained transactionally in the same
// Update call that appends the event.
type BoltStore struct {
	db *bolt.DB

	headMu sync.RWMutex
	head   uint64

	subsMu sync.Mutex
	subs   []*subscriber
}

// OpenBoltStore opens (creating if absent) a BoltDB file at path and
// restores Head from the last key in bucketEvents.
func OpenBoltStore(path string) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &BoltStore{db: db}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketEvents, bucketByCorr, bucketByActor} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %q: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	if err := db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		k, _ := c.Last()
		if k != nil {
			s.head = binary.BigEndian.Uint64(k)
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read head: %w", err)
	}

	return s, nil
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func (s *BoltStore) Append(ctx context.Context, evt Event) (uint64, error) {
	if err := validate(evt); err != nil {
		return 0, err
	}

	s.headMu.Lock()
	defer s.headMu.Unlock()

	if evt.EventID == "" {
		evt.EventID = uuid.New().String()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	seq := s.head + 1
	evt.Seq = seq

	err := s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		key := seqKey(seq)
		if err := tx.Bucket(bucketEvents).Put(key, data); err != nil {
			return err
		}
		if corr := evt.CorrelationID(); corr != "" {
			if err := appendIndex(tx.Bucket(bucketByCorr), corr, seq); err != nil {
				return err
			}
		}
		if evt.ActorID != "" {
			if err := appendIndex(tx.Bucket(bucketByActor), evt.ActorID, seq); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("event store: %w", ErrStoreFull)
	}

	s.head = seq
	s.fanOut(evt)
	return seq, nil
}

// appendIndex appends seq to the big-endian-encoded uint64 list stored
// under key in b.
func appendIndex(b *bolt.Bucket, key string, seq uint64) error {
	existing := b.Get([]byte(key))
	buf := make([]byte, len(existing)+8)
	copy(buf, existing)
	binary.BigEndian.PutUint64(buf[len(existing):], seq)
	return b.Put([]byte(key), buf)
}

func decodeIndex(raw []byte) []uint64 {
	n := len(raw) / 8
	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		out[i] = binary.BigEndian.Uint64(raw[i*8 : i*8+8])
	}
	return out
}

func (s *BoltStore) AppendAsync(ctx context.Context, evt Event) {
	safego.Go(ctx, func() {
		if _, err := s.Append(ctx, evt); err != nil {
			logger.Warn("[eventstore] append_async dropped event %s: %v", evt.EventType, err)
		}
	})
}

func (s *BoltStore) getEvent(tx *bolt.Tx, seq uint64) (Event, error) {
	var e Event
	data := tx.Bucket(bucketEvents).Get(seqKey(seq))
	if data == nil {
		return e, fmt.Errorf("event store: seq %d missing", seq)
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return e, nil
}

func (s *BoltStore) GetRecent(ctx context.Context, q RecentQuery) ([]Event, error) {
	var out []Event
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.Seek(seqKey(q.SinceSeq + 1)); k != nil; k, v = c.Next() {
			var e Event
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("failed to unmarshal event: %w", err)
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
		return nil
	})
	return out, err
}

func (s *BoltStore) GetByCorrID(ctx context.Context, corrID string, prefix string) ([]Event, error) {
	var out []Event
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketByCorr).Get([]byte(corrID))
		for _, seq := range decodeIndex(raw) {
			e, err := s.getEvent(tx, seq)
			if err != nil {
				return err
			}
			if prefix != "" && !hasPrefix(e.EventType, prefix) {
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) GetForActorScoped(ctx context.Context, actor, session, thread string, sinceSeq uint64) ([]Event, error) {
	var out []Event
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketByActor).Get([]byte(actor))
		for _, seq := range decodeIndex(raw) {
			if seq <= sinceSeq {
				continue
			}
			e, err := s.getEvent(tx, seq)
			if err != nil {
				return err
			}
			if session != "" && e.SessionID() != session {
				continue
			}
			if thread != "" && e.ThreadID() != thread {
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) Subscribe(ctx context.Context, scope Scope) (<-chan Event, func()) {
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

func (s *BoltStore) fanOut(evt Event) {
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

func (s *BoltStore) Head() uint64 {
	s.headMu.RLock()
	defer s.headMu.RUnlock()
	return s.head
}

func (s *BoltStore) Close() error {
	s.subsMu.Lock()
	for _, sub := range s.subs {
		close(sub.ch)
	}
	s.subs = nil
	s.subsMu.Unlock()
	return s.db.Close()
}
