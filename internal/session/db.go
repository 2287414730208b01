package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/apiserver/database"
	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
	"go.uber.org/zap"
)

// DBStore keeps sessions in the application database
type DBStore struct {
	db     database.Database
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	stop chan struct{}
	done chan struct{}
}

func NewDBStore(db database.Database, ttl, purgeInterval time.Duration, logger *zap.Logger) *DBStore {
	s := &DBStore{
		db:     db,
		ttl:    ttl,
		logger: logger.Named("session.db"),
		now:    time.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if purgeInterval > 0 {
		go s.purgeLoop(purgeInterval)
	} else {
		close(s.done)
	}
	return s
}

func (s *DBStore) Create(ctx context.Context, userID string, data map[string]any) (*Session, error) {
	id, err := newID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	now := s.now().UTC()
	row := &database.Session{
		ID:        id,
		UserID:    userID,
		Data:      data,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.db.SaveSession(ctx, row); err != nil {
		return nil, err
	}
	return &Session{ID: id, UserID: userID, Data: data, ExpiresAt: row.ExpiresAt, CreatedAt: now}, nil
}

func (s *DBStore) Get(ctx context.Context, id string) (*Session, error) {
	row, err := s.db.GetSession(ctx, id, s.now())
	if errors.Is(err, errorx.ErrNotFound) {
		return nil, errorx.ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        row.ID,
		UserID:    row.UserID,
		Data:      row.Data,
		ExpiresAt: row.ExpiresAt,
		CreatedAt: row.CreatedAt,
	}, nil
}

// Delete is idempotent
func (s *DBStore) Delete(ctx context.Context, id string) error {
	err := s.db.DeleteSession(ctx, id)
	if errors.Is(err, errorx.ErrNotFound) {
		return nil
	}
	return err
}

// Purge removes expired sessions and returns how many were deleted
func (s *DBStore) Purge(ctx context.Context) (int64, error) {
	return s.db.PurgeExpiredSessions(ctx, s.now())
}

func (s *DBStore) purgeLoop(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			n, err := s.Purge(context.Background())
			if err != nil {
				s.logger.Warn("failed to purge expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Debug("purged expired sessions", zap.Int64("count", n))
			}
		}
	}
}

// Close stops the purge loop. The database is owned by the caller.
func (s *DBStore) Close() error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
	return nil
}
