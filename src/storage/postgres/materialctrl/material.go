package materialctrl

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	StatusPending  = "pending"
	StatusIngested = "ingested"
	StatusFailed   = "failed"
)

type Material struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	Filename      string    `gorm:"not null" json:"filename"`
	Bucket        string    `gorm:"not null" json:"bucket"`
	ObjectKey     string    `gorm:"not null;uniqueIndex" json:"object_key"`
	Status        string    `gorm:"not null" json:"status"`
	ChunkCount    int       `json:"chunk_count"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MaterialService tracks uploaded study materials and their ingestion
// outcome in PostgreSQL.
type MaterialService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewMaterialService(db *gorm.DB) (*MaterialService, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	if err := db.AutoMigrate(&Material{}); err != nil {
		return nil, fmt.Errorf("failed to migrate materials table: %v", err)
	}

	return &MaterialService{
		db:        db,
		snowflake: node,
	}, nil
}

func (s *MaterialService) Create(ctx context.Context, filename, bucket, objectKey string) (*Material, error) {
	material := &Material{
		ID:        s.snowflake.Generate().Int64(),
		Filename:  filename,
		Bucket:    bucket,
		ObjectKey: objectKey,
		Status:    StatusPending,
	}

	result := s.db.WithContext(ctx).Create(material)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create material: %v", result.Error)
	}

	return material, nil
}

func (s *MaterialService) List(ctx context.Context, limit, offset int) ([]Material, error) {
	var materials []Material
	result := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&materials)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list materials: %v", result.Error)
	}
	return materials, nil
}

func (s *MaterialService) GetByObjectKey(ctx context.Context, objectKey string) (*Material, error) {
	var material Material
	result := s.db.WithContext(ctx).Where("object_key = ?", objectKey).First(&material)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get material: %v", result.Error)
	}
	return &material, nil
}

// MarkIngested records a successful ingestion and the number of chunks
// written for the object.
func (s *MaterialService) MarkIngested(ctx context.Context, objectKey string, chunkCount int) error {
	result := s.db.WithContext(ctx).Model(&Material{}).
		Where("object_key = ?", objectKey).
		Updates(map[string]interface{}{
			"status":         StatusIngested,
			"chunk_count":    chunkCount,
			"failure_reason": "",
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark material ingested: %v", result.Error)
	}
	return nil
}

// MarkFailed records an ingestion failure. Chunks written before the
// failure stay in the index; the status makes the partial state
// visible.
func (s *MaterialService) MarkFailed(ctx context.Context, objectKey string, reason string) error {
	result := s.db.WithContext(ctx).Model(&Material{}).
		Where("object_key = ?", objectKey).
		Updates(map[string]interface{}{
			"status":         StatusFailed,
			"failure_reason": reason,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark material failed: %v", result.Error)
	}
	return nil
}
