package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/pkg"
	"gorm.io/gorm"
)

// sessionRow is the persisted form of a session.
type sessionRow struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Data      []byte    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

func (sessionRow) TableName() string { return "sessions" }

// GormStore persists sessions in a SQL database (sqlite or postgres).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the sessions table and returns a store over db.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&sessionRow{}); err != nil {
		return nil, fmt.Errorf("migrate sessions: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Load returns the session with the given id.
func (s *GormStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	var row sessionRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, mapError(err)
	}
	var sess domain.Session
	if err := json.Unmarshal(row.Data, &sess); err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "corrupt session", err)
	}
	return &sess, nil
}

// Save inserts or replaces the session.
func (s *GormStore) Save(ctx context.Context, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return domain.NewAppError(domain.CodeInternal, "encode session", err)
	}
	row := sessionRow{ID: sess.ID, Data: data, ExpiresAt: sess.ExpiresAt, CreatedAt: sess.CreatedAt}
	return pkg.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Delete(&sessionRow{}, "id = ?", sess.ID).Error; err != nil {
			return mapError(err)
		}
		return mapError(tx.Create(&row).Error)
	})
}

// Delete removes the session; unknown ids are ignored.
func (s *GormStore) Delete(ctx context.Context, id string) error {
	return mapError(s.db.WithContext(ctx).Delete(&sessionRow{}, "id = ?", id).Error)
}

// DeleteExpired removes every session expired at now.
func (s *GormStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&sessionRow{})
	if res.Error != nil {
		return 0, mapError(res.Error)
	}
	return res.RowsAffected, nil
}

// Ping checks the database connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}
