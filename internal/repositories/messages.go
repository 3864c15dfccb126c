package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adwaith-rk/threadly/internal/models"
)

// ChannelMessages is the gorm-backed channel message store.
type ChannelMessages struct {
	db *gorm.DB
}

func NewChannelMessages(db *gorm.DB) *ChannelMessages {
	return &ChannelMessages{db: db}
}

func (s *ChannelMessages) Insert(ctx context.Context, m *models.Message) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *ChannelMessages) Update(ctx context.Context, m *models.Message) error {
	return s.db.WithContext(ctx).Save(m).Error
}

// PageByChannel returns one page of a channel's messages, newest first.
func (s *ChannelMessages) PageByChannel(ctx context.Context, channelID uuid.UUID, page, size int) ([]models.Message, error) {
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at DESC").
		Offset(page * size).
		Limit(size).
		Find(&msgs).Error
	return msgs, err
}

func (s *ChannelMessages) GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var msg models.Message
	if err := s.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// DirectMessages is the gorm-backed direct message store. Pairs are stored
// normalized, so one ordered lookup covers both directions.
type DirectMessages struct {
	db *gorm.DB
}

func NewDirectMessages(db *gorm.DB) *DirectMessages {
	return &DirectMessages{db: db}
}

func (s *DirectMessages) Insert(ctx context.Context, m *models.DirectMessage) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *DirectMessages) Update(ctx context.Context, m *models.DirectMessage) error {
	return s.db.WithContext(ctx).Save(m).Error
}

// PageByPair returns one page of the pair's conversation, newest first.
func (s *DirectMessages) PageByPair(ctx context.Context, userOne, userTwo uuid.UUID, page, size int) ([]models.DirectMessage, error) {
	var msgs []models.DirectMessage
	err := s.db.WithContext(ctx).
		Where("user_one = ? AND user_two = ?", userOne, userTwo).
		Order("created_at DESC").
		Offset(page * size).
		Limit(size).
		Find(&msgs).Error
	return msgs, err
}

func (s *DirectMessages) GetByID(ctx context.Context, id uuid.UUID) (*models.DirectMessage, error) {
	var msg models.DirectMessage
	if err := s.db.WithContext(ctx).First(&msg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}
