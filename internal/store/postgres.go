package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Document is one persisted collection.
type Document struct {
	Name      string    `gorm:"column:name;type:varchar(50);primaryKey"`
	Payload   string    `gorm:"column:payload;type:jsonb;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (Document) TableName() string {
	return "transplant.collections"
}

type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ReadAll(ctx context.Context, c Collection, dst any) error {
	if !c.IsValid() {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	var doc Document
	err := s.db.WithContext(ctx).Where("name = ?", string(c)).Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", c, err)
	}

	if err := json.Unmarshal([]byte(doc.Payload), dst); err != nil {
		return fmt.Errorf("decoding %s: %w", c, err)
	}
	return nil
}

func (s *PostgresStore) WriteAll(ctx context.Context, c Collection, v any) error {
	if !c.IsValid() {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", c, err)
	}

	doc := Document{Name: string(c), Payload: string(payload), UpdatedAt: time.Now().UTC()}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("writing %s: %w", c, err)
	}
	return nil
}
