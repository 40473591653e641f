// Package audit persists a durable, append-only log of lease lifecycle
// events for operational forensics. Unlike the in-memory lease table,
// this survives a restart — but it is a record of history, never
// consulted to reconstruct live server state.
package audit

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"

	bolt "go.etcd.io/bbolt"

	"github.com/nullwatt/dhcpcore/internal/events"
	"github.com/nullwatt/dhcpcore/internal/metrics"
)

var bucketEvents = []byte("events")

// Log is a bbolt-backed append-only event log.
type Log struct {
	db     *bolt.DB
	logger *slog.Logger
}

// Open creates or opens the audit database at path.
func Open(path string, logger *slog.Logger) (*Log, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening audit db %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEvents)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit bucket: %w", err)
	}

	return &Log{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}

// Append writes ev to the log under the bucket's next auto-incrementing
// sequence number.
func (l *Log) Append(ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		metrics.AuditWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("marshaling audit event: %w", err)
	}

	err = l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
	if err != nil {
		metrics.AuditWrites.WithLabelValues("error").Inc()
		return err
	}
	metrics.AuditWrites.WithLabelValues("ok").Inc()
	return nil
}

// ForEach iterates every recorded event in insertion order.
func (l *Log) ForEach(fn func(events.Event) error) error {
	return l.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		return b.ForEach(func(_, v []byte) error {
			var ev events.Event
			if err := json.Unmarshal(v, &ev); err != nil {
				return fmt.Errorf("unmarshaling audit event: %w", err)
			}
			return fn(ev)
		})
	})
}

// Count returns the number of recorded events.
func (l *Log) Count() int {
	count := 0
	l.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketEvents).Stats().KeyN
		return nil
	})
	return count
}

// Subscribe registers a subscriber on bus and appends every event it
// receives until unsubscribe is called.
func (l *Log) Subscribe(bus *events.Bus) (unsubscribe func()) {
	ch := bus.Subscribe(256)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := l.Append(ev); err != nil {
					l.logger.Warn("audit log append failed", "event_type", string(ev.Type), "error", err)
				}
			}
		}
	}()

	return func() {
		close(done)
		bus.Unsubscribe(ch)
	}
}

func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
