package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrRunNotFound is returned when no run exists for the requested ID.
var ErrRunNotFound = errors.New("launch run not found")

// Store persists launch runs.
type Store interface {
	Create(ctx context.Context, run *LaunchRun) error
	Save(ctx context.Context, run *LaunchRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*LaunchRun, error)
	List(ctx context.Context, status *RunStatus, limit int) ([]LaunchRun, error)
}

// GormStore is the Postgres-backed store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates the store and migrates the runs table.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&LaunchRun{}); err != nil {
		return nil, fmt.Errorf("migrating launch runs: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Create(ctx context.Context, run *LaunchRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *GormStore) Save(ctx context.Context, run *LaunchRun) error {
	return s.db.WithContext(ctx).Save(run).Error
}

func (s *GormStore) GetByID(ctx context.Context, id uuid.UUID) (*LaunchRun, error) {
	var run LaunchRun
	err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *GormStore) List(ctx context.Context, status *RunStatus, limit int) ([]LaunchRun, error) {
	query := s.db.WithContext(ctx).Model(&LaunchRun{}).Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []LaunchRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing launch runs: %w", err)
	}
	return runs, nil
}
