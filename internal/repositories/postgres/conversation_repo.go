package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationRepo interface {
	// Insert assigns ID and CreatedAt when empty and writes the row.
	Insert(ctx context.Context, e *models.ConversationEntry) error
	// ListByRoom returns the room history oldest first.
	ListByRoom(ctx context.Context, roomID string, limit int) ([]models.ConversationEntry, error)
	GetByID(ctx context.Context, id string) (*models.ConversationEntry, error)
}

type conversationRepo struct {
	db *gorm.DB
}

func NewConversationRepo(db *gorm.DB) ConversationRepo {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) Insert(ctx context.Context, e *models.ConversationEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *conversationRepo) ListByRoom(ctx context.Context, roomID string, limit int) ([]models.ConversationEntry, error) {
	if limit <= 0 {
		limit = 200
	}

	// newest N, returned ascending
	var rows []models.ConversationEntry
	sub := r.db.WithContext(ctx).
		Model(&models.ConversationEntry{}).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Limit(limit)
	err := r.db.WithContext(ctx).
		Table("(?) AS recent", sub).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *conversationRepo) GetByID(ctx context.Context, id string) (*models.ConversationEntry, error) {
	var row models.ConversationEntry
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &row, err
}
