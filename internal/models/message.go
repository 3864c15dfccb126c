package models

import (
	"time"

	"github.com/google/uuid"
)

// DeletedMarker replaces the content of a tombstoned message.
const DeletedMarker = "This message has been deleted"

// Envelope carries the confidentiality and integrity fields of a message
// record plus the plaintext mirror the UI falls back to. The three cipher
// fields are either all present or all absent; anything else is treated as
// not decryptable. Content is what gets displayed: for a fetched record the
// decryption pipeline overwrites it in the fetched copy only, never in
// storage.
type Envelope struct {
	Content          *string `json:"content" gorm:"type:text"`
	EncryptedMessage *string `json:"encryptedMessage" gorm:"type:text"`
	EncryptedAESKey  *string `json:"encryptedAESKey" gorm:"type:text"`
	IV               *string `json:"iv"`
	HMAC             *string `json:"hmac"`
}

// Sealed reports whether the envelope has a complete ciphertext triple.
func (e Envelope) Sealed() bool {
	return deref(e.EncryptedMessage) != "" && deref(e.EncryptedAESKey) != "" && deref(e.IV) != ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Message is a channel message record. It is created once at send time with
// the envelope populated, rewritten wholesale on edit, and never hard-deleted:
// delete flips IsDeleted and replaces the content with DeletedMarker.
type Message struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	ChannelID   uuid.UUID `json:"channelId" gorm:"type:uuid;not null;index"`
	WorkspaceID uuid.UUID `json:"workspaceId" gorm:"type:uuid;index"`
	UserID      uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	Envelope    Envelope  `json:"envelope" gorm:"embedded"`
	FileURL     *string   `json:"fileUrl"`
	FileHMAC    *string   `json:"fileHmac"`
	IsDeleted   bool      `json:"isDeleted" gorm:"default:false"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime;index"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// DirectMessage is a message between an unordered pair of users. UserOne and
// UserTwo are stored in normalized (ascending) order so a pair maps to one
// conversation regardless of who sends. UserID is the sender.
type DirectMessage struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	UserOne   uuid.UUID `json:"userOne" gorm:"type:uuid;not null;index:idx_dm_pair"`
	UserTwo   uuid.UUID `json:"userTwo" gorm:"type:uuid;not null;index:idx_dm_pair"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	Envelope  Envelope  `json:"envelope" gorm:"embedded"`
	FileURL   *string   `json:"fileUrl"`
	FileHMAC  *string   `json:"fileHmac"`
	IsDeleted bool      `json:"isDeleted" gorm:"default:false"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}
