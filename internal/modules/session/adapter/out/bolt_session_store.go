package out

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pomo/internal/modules/session/domain"
	sessionout "pomo/internal/modules/session/port/out"
	apperrors "pomo/internal/platform/errors"

	"go.etcd.io/bbolt"
)

var sessionsBucket = []byte("sessions")

// BoltSessionStore keeps sessions as JSON values in a single bbolt bucket.
// bbolt allows one write transaction at a time, so Update never conflicts.
type BoltSessionStore struct {
	db *bbolt.DB
}

func NewBoltSessionStore(dbPath string) (*BoltSessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sessions bucket: %w", err)
	}
	return &BoltSessionStore{db: db}, nil
}

var _ sessionout.SessionStore = (*BoltSessionStore)(nil)

func (s *BoltSessionStore) Insert(_ context.Context, session domain.Session) error {
	if session.Version == 0 {
		session.Version = 1
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sessionsBucket)
		if bucket.Get([]byte(session.ID)) != nil {
			return fmt.Errorf("%w: session %s already exists", apperrors.ErrConflict, session.ID)
		}
		return putSession(bucket, session)
	})
}

func (s *BoltSessionStore) Get(_ context.Context, id string) (domain.Session, error) {
	var session domain.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		session, err = getSession(tx.Bucket(sessionsBucket), id)
		return err
	})
	if err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (s *BoltSessionStore) Update(_ context.Context, id string, mutate sessionout.Mutator) (domain.Session, error) {
	var next domain.Session
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(sessionsBucket)
		current, err := getSession(bucket, id)
		if err != nil {
			return err
		}
		next, err = mutate(current)
		if err != nil {
			return err
		}
		next.ID = current.ID
		next.Version = current.Version + 1
		return putSession(bucket, next)
	})
	if err != nil {
		return domain.Session{}, err
	}
	return next, nil
}

func (s *BoltSessionStore) ListActive(_ context.Context) ([]domain.Session, error) {
	var out []domain.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(sessionsBucket).ForEach(func(k, v []byte) error {
			var session domain.Session
			if err := json.Unmarshal(v, &session); err != nil {
				return fmt.Errorf("decode session %s: %w", k, err)
			}
			if session.Active {
				out = append(out, session)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BoltSessionStore) Close() error {
	return s.db.Close()
}

func getSession(bucket *bbolt.Bucket, id string) (domain.Session, error) {
	data := bucket.Get([]byte(id))
	if data == nil {
		return domain.Session{}, fmt.Errorf("%w: %s", apperrors.ErrNotFound, id)
	}
	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return session, nil
}

func putSession(bucket *bbolt.Bucket, session domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	return bucket.Put([]byte(session.ID), payload)
}
