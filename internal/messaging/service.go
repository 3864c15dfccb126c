package messaging

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/google/uuid"

	"github.com/adwaith-rk/threadly/internal/crypto"
	"github.com/adwaith-rk/threadly/internal/models"
)

// DefaultPageSize is used when a fetch does not name a page size.
const DefaultPageSize = 20

// ChannelMessageStore persists channel message records. Pages are returned
// newest first.
type ChannelMessageStore interface {
	Insert(ctx context.Context, m *models.Message) error
	Update(ctx context.Context, m *models.Message) error
	PageByChannel(ctx context.Context, channelID uuid.UUID, page, size int) ([]models.Message, error)
}

// DirectMessageStore persists direct message records between normalized user
// pairs. Pages are returned newest first.
type DirectMessageStore interface {
	Insert(ctx context.Context, m *models.DirectMessage) error
	Update(ctx context.Context, m *models.DirectMessage) error
	PageByPair(ctx context.Context, userOne, userTwo uuid.UUID, page, size int) ([]models.DirectMessage, error)
}

// Publisher pushes a written record to subscribers of its scope. Delivery
// semantics belong to the transport; the service only produces the payload.
type Publisher interface {
	Publish(scope Scope, event string, payload any)
}

// SendInput is the caller-supplied part of a new message.
type SendInput struct {
	Content  string
	FileURL  *string
	FileHMAC *string
}

// Service is the message encryption subsystem's write and read surface:
// send/edit/delete encrypt-and-tag before persisting, fetch runs the result
// cache and the decryption pipeline over stored records.
type Service struct {
	channelMsgs ChannelMessageStore
	directMsgs  DirectMessageStore
	publisher   Publisher
	cache       *PageCache
	pipeline    *Pipeline
	secret      []byte
}

// NewService wires the subsystem. publisher may be nil when no realtime
// transport is attached (tests, batch tools).
func NewService(channelMsgs ChannelMessageStore, directMsgs DirectMessageStore, publisher Publisher, cache *PageCache, pipeline *Pipeline, secret []byte) *Service {
	return &Service{
		channelMsgs: channelMsgs,
		directMsgs:  directMsgs,
		publisher:   publisher,
		cache:       cache,
		pipeline:    pipeline,
		secret:      secret,
	}
}

// seal builds the full cipher envelope for content: fresh one-time key and
// IV, ciphertext, wrapped key, integrity tag, plus the plaintext mirror. The
// envelope is all-or-nothing; a failure here aborts the write.
func (s *Service) seal(content string, recipient crypto.Recipient) (models.Envelope, error) {
	sealed, err := crypto.Encrypt(content, recipient)
	if err != nil {
		return models.Envelope{}, err
	}
	tag := crypto.Tag(sealed.Ciphertext, s.secret)
	return models.Envelope{
		Content:          &content,
		EncryptedMessage: &sealed.Ciphertext,
		EncryptedAESKey:  &sealed.WrappedKey,
		IV:               &sealed.IV,
		HMAC:             &tag,
	}, nil
}

// SendChannelMessage encrypts content for the channel's shared keypair and
// persists the record. A message with only an attachment is stored without an
// envelope.
func (s *Service) SendChannelMessage(ctx context.Context, ch *models.Channel, senderID uuid.UUID, in SendInput) (*models.Message, error) {
	if in.Content == "" && in.FileURL == nil {
		return nil, ErrMissingContent
	}

	msg := &models.Message{
		ChannelID:   ch.ID,
		WorkspaceID: ch.WorkspaceID,
		UserID:      senderID,
		FileURL:     in.FileURL,
		FileHMAC:    in.FileHMAC,
	}
	if in.Content != "" {
		env, err := s.seal(in.Content, crypto.Recipient{Kind: crypto.RecipientChannel, PublicKey: ch.Keyring.PublicKey})
		if err != nil {
			return nil, fmt.Errorf("sealing channel message: %w", err)
		}
		msg.Envelope = env
	}

	if err := s.channelMsgs.Insert(ctx, msg); err != nil {
		return nil, err
	}
	s.publish(ChannelScope(ch.ID), channelEvent(ch.ID, "post"), msg)
	return msg, nil
}

// SendDirectMessage encrypts content for the recipient's keypair and persists
// the record under the normalized pair.
func (s *Service) SendDirectMessage(ctx context.Context, senderID uuid.UUID, recipient *models.User, in SendInput) (*models.DirectMessage, error) {
	if in.Content == "" && in.FileURL == nil {
		return nil, ErrMissingContent
	}

	scope := DirectScope(senderID, recipient.ID)
	msg := &models.DirectMessage{
		UserOne:  scope.UserOne,
		UserTwo:  scope.UserTwo,
		UserID:   senderID,
		FileURL:  in.FileURL,
		FileHMAC: in.FileHMAC,
	}
	if in.Content != "" {
		env, err := s.seal(in.Content, crypto.Recipient{Kind: crypto.RecipientUser, PublicKey: recipient.Keyring.PublicKey})
		if err != nil {
			return nil, fmt.Errorf("sealing direct message: %w", err)
		}
		msg.Envelope = env
	}

	if err := s.directMsgs.Insert(ctx, msg); err != nil {
		return nil, err
	}
	s.publish(scope, "direct-messages:post", msg)
	return msg, nil
}

// EditChannelMessage replaces a message's content. Only the original author
// may edit, tombstones are immutable, and the envelope is recomputed in full:
// fresh key, IV, wrap, and tag, never a partial patch.
func (s *Service) EditChannelMessage(ctx context.Context, ch *models.Channel, msg *models.Message, editorID uuid.UUID, content string) error {
	if msg.UserID != editorID {
		return ErrNotAuthor
	}
	if msg.IsDeleted {
		return ErrTombstoned
	}
	if content == "" {
		return ErrMissingContent
	}

	env, err := s.seal(content, crypto.Recipient{Kind: crypto.RecipientChannel, PublicKey: ch.Keyring.PublicKey})
	if err != nil {
		return fmt.Errorf("resealing channel message: %w", err)
	}
	msg.Envelope = env

	if err := s.channelMsgs.Update(ctx, msg); err != nil {
		return err
	}
	s.publish(ChannelScope(ch.ID), channelEvent(ch.ID, "update"), msg)
	return nil
}

// EditDirectMessage replaces a direct message's content, rewrapping for the
// same recipient the original was wrapped for.
func (s *Service) EditDirectMessage(ctx context.Context, msg *models.DirectMessage, recipient *models.User, editorID uuid.UUID, content string) error {
	if msg.UserID != editorID {
		return ErrNotAuthor
	}
	if msg.IsDeleted {
		return ErrTombstoned
	}
	if content == "" {
		return ErrMissingContent
	}

	env, err := s.seal(content, crypto.Recipient{Kind: crypto.RecipientUser, PublicKey: recipient.Keyring.PublicKey})
	if err != nil {
		return fmt.Errorf("resealing direct message: %w", err)
	}
	msg.Envelope = env

	if err := s.directMsgs.Update(ctx, msg); err != nil {
		return err
	}
	s.publish(DirectScope(msg.UserOne, msg.UserTwo), "direct-messages:update", msg)
	return nil
}

// DeleteChannelMessage tombstones a message: content becomes a fixed marker,
// the attachment reference is cleared, and the record is flagged deleted. The
// tombstone is terminal; nothing is hard-deleted.
func (s *Service) DeleteChannelMessage(ctx context.Context, ch *models.Channel, msg *models.Message, requesterID uuid.UUID) error {
	if msg.UserID != requesterID {
		return ErrNotAuthor
	}
	if msg.IsDeleted {
		return ErrTombstoned
	}

	tombstone(&msg.Envelope, &msg.FileURL, &msg.FileHMAC, &msg.IsDeleted)
	if err := s.channelMsgs.Update(ctx, msg); err != nil {
		return err
	}
	s.publish(ChannelScope(ch.ID), channelEvent(ch.ID, "update"), msg)
	return nil
}

// DeleteDirectMessage tombstones a direct message.
func (s *Service) DeleteDirectMessage(ctx context.Context, msg *models.DirectMessage, requesterID uuid.UUID) error {
	if msg.UserID != requesterID {
		return ErrNotAuthor
	}
	if msg.IsDeleted {
		return ErrTombstoned
	}

	tombstone(&msg.Envelope, &msg.FileURL, &msg.FileHMAC, &msg.IsDeleted)
	if err := s.directMsgs.Update(ctx, msg); err != nil {
		return err
	}
	s.publish(DirectScope(msg.UserOne, msg.UserTwo), "direct-messages:update", msg)
	return nil
}

// FetchChannelPage returns one display-ready page of channel messages, oldest
// first. Pages are cached per (scope, page, size): channel records decrypt
// with the shared channel key, so the cache is not reader-specific. reader is
// the channel private key available to the requester; nil degrades every
// sealed record to its mirror.
func (s *Service) FetchChannelPage(ctx context.Context, ch *models.Channel, page, size int, reader *rsa.PrivateKey) ([]models.Message, error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	key := PageKey{Scope: ChannelScope(ch.ID).Key(), Page: page, Size: size}

	if cached, ok := s.cache.Get(key); ok {
		return cached.([]models.Message), nil
	}

	msgs, err := s.channelMsgs.PageByChannel(ctx, ch.ID, page, size)
	if err != nil {
		return nil, err
	}

	batch := make([]*models.Envelope, len(msgs))
	for i := range msgs {
		batch[i] = &msgs[i].Envelope
	}
	if _, err := s.pipeline.Run(ctx, batch, reader); err != nil {
		return nil, err
	}

	reverse(msgs)
	s.cache.Put(key, msgs)
	return msgs, nil
}

// FetchDirectPage returns one display-ready page of the conversation between
// readerID and otherID, oldest first. The cache key carries the reader: each
// participant decrypts with their own private key.
func (s *Service) FetchDirectPage(ctx context.Context, readerID, otherID uuid.UUID, page, size int, reader *rsa.PrivateKey) ([]models.DirectMessage, error) {
	if size <= 0 {
		size = DefaultPageSize
	}
	scope := DirectScope(readerID, otherID)
	key := PageKey{Scope: scope.Key(), Reader: readerID.String(), Page: page, Size: size}

	if cached, ok := s.cache.Get(key); ok {
		return cached.([]models.DirectMessage), nil
	}

	msgs, err := s.directMsgs.PageByPair(ctx, scope.UserOne, scope.UserTwo, page, size)
	if err != nil {
		return nil, err
	}

	batch := make([]*models.Envelope, len(msgs))
	for i := range msgs {
		batch[i] = &msgs[i].Envelope
	}
	if _, err := s.pipeline.Run(ctx, batch, reader); err != nil {
		return nil, err
	}

	reverse(msgs)
	s.cache.Put(key, msgs)
	return msgs, nil
}

func (s *Service) publish(scope Scope, event string, payload any) {
	if s.publisher != nil {
		s.publisher.Publish(scope, event, payload)
	}
}

func channelEvent(channelID uuid.UUID, kind string) string {
	if kind == "post" {
		return fmt.Sprintf("channel:%s:channel-messages", channelID)
	}
	return fmt.Sprintf("channel:%s:channel-messages:%s", channelID, kind)
}

// tombstone rewrites a record in place: the marker replaces both the mirror
// and the ciphertext, so nothing encrypted survives the delete.
func tombstone(env *models.Envelope, fileURL, fileHMAC **string, deleted *bool) {
	marker := models.DeletedMarker
	*env = models.Envelope{Content: &marker}
	*fileURL = nil
	*fileHMAC = nil
	*deleted = true
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
