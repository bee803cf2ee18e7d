package idempotency

import (
	"context"
	"encoding/json"
	"time"

	bolt "github.com/boltdb/bolt"
)

const boltBucket = "completed_tokens"

// BoltStore is a Store backed by a single BoltDB file. It serves agrictl,
// which has no database but must not re-send a token across invocations.
//
// Keys are "<form>\x00<token>"; values are JSON boltRecord documents.
type BoltStore struct {
	db  *bolt.DB
	ttl time.Duration
	now clock
}

type boltRecord struct {
	Outcome   string    `json:"outcome"`
	Resource  string    `json:"resource,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// OpenBoltStore opens (or creates) the store at path. ttl <= 0 keeps entries
// forever.
func OpenBoltStore(path string, ttl time.Duration) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db, ttl: ttl, now: time.Now}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error { return s.db.Close() }

func boltKey(form string, tok Token) []byte {
	return []byte(form + "\x00" + string(tok))
}

func (s *BoltStore) Completed(_ context.Context, form string, tok Token) (bool, error) {
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(boltBucket)).Get(boltKey(form, tok))
		if v == nil {
			return nil
		}
		var rec boltRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return err
		}
		found = rec.ExpiresAt.IsZero() || s.now().Before(rec.ExpiresAt)
		return nil
	})
	return found, err
}

// MarkCompleted writes c unless a live record for the same key exists, in
// which case the stored record is left untouched.
func (s *BoltStore) MarkCompleted(_ context.Context, c Completion) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))
		k := boltKey(c.FormID, c.Token)
		now := s.now().UTC()
		if v := b.Get(k); v != nil {
			var old boltRecord
			if err := json.Unmarshal(v, &old); err == nil && (old.ExpiresAt.IsZero() || now.Before(old.ExpiresAt)) {
				return nil
			}
		}
		rec := boltRecord{Outcome: c.Outcome, Resource: c.Resource, CreatedAt: now}
		if s.ttl > 0 {
			rec.ExpiresAt = now.Add(s.ttl)
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(k, data)
	})
}

// Purge deletes expired records and returns how many were removed.
func (s *BoltStore) Purge() (int, error) {
	n := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))
		now := s.now()
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var rec boltRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if !rec.ExpiresAt.IsZero() && !now.Before(rec.ExpiresAt) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}
