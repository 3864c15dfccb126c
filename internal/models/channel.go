package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel is a group conversation scope. All members share the channel's
// keyring: messages sent to the channel are wrapped for its public key.
type Channel struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Name        string          `json:"name" gorm:"not null"`
	WorkspaceID uuid.UUID       `json:"workspaceId" gorm:"type:uuid;index"`
	CreatorID   uuid.UUID       `json:"creatorId" gorm:"type:uuid;index;not null"`
	Keyring     Keyring         `json:"keyring" gorm:"embedded"`
	Members     []ChannelMember `json:"members" gorm:"foreignKey:ChannelID"`
	CreatedAt   time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

type ChannelMember struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	ChannelID uuid.UUID `json:"channelId" gorm:"type:uuid;not null;index;uniqueIndex:idx_channel_user"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;not null;index;uniqueIndex:idx_channel_user"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

// HasMember reports whether the given user appears in the preloaded member list.
func (c *Channel) HasMember(userID uuid.UUID) bool {
	for _, m := range c.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
