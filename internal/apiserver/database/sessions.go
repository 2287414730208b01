package database

import (
	"context"
	"fmt"
	"time"

	"github.com/catalogpilot/catalogpilot/internal/common/errorx"
)

func (d *gormDatabase) SaveSession(ctx context.Context, session *Session) error {
	session.ExpiresAt = session.ExpiresAt.UTC()
	return wrapErr(d.conn(ctx).Create(session).Error, "save session")
}

// GetSession returns ErrNotFound for missing and expired sessions alike
func (d *gormDatabase) GetSession(ctx context.Context, id string, now time.Time) (*Session, error) {
	var s Session
	err := d.conn(ctx).Where("id = ? AND expires_at > ?", id, now.UTC()).First(&s).Error
	if err != nil {
		return nil, wrapErr(err, "session")
	}
	return &s, nil
}

func (d *gormDatabase) DeleteSession(ctx context.Context, id string) error {
	res := d.conn(ctx).Where("id = ?", id).Delete(&Session{})
	if res.Error != nil {
		return wrapErr(res.Error, "delete session")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("session: %w", errorx.ErrNotFound)
	}
	return nil
}

func (d *gormDatabase) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res := d.conn(ctx).Where("expires_at <= ?", now.UTC()).Delete(&Session{})
	return res.RowsAffected, wrapErr(res.Error, "purge sessions")
}
