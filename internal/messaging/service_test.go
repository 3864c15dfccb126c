package messaging

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/adwaith-rk/threadly/internal/crypto"
	"github.com/adwaith-rk/threadly/internal/models"
)

type memChannelStore struct {
	msgs      []models.Message
	pageCalls int
}

func (s *memChannelStore) Insert(_ context.Context, m *models.Message) error {
	m.ID = uuid.New()
	m.CreatedAt = time.Now().Add(time.Duration(len(s.msgs)) * time.Second)
	s.msgs = append(s.msgs, *m)
	return nil
}

func (s *memChannelStore) Update(_ context.Context, m *models.Message) error {
	for i := range s.msgs {
		if s.msgs[i].ID == m.ID {
			s.msgs[i] = *m
			return nil
		}
	}
	return errors.New("not found")
}

func (s *memChannelStore) PageByChannel(_ context.Context, channelID uuid.UUID, page, size int) ([]models.Message, error) {
	s.pageCalls++
	var out []models.Message
	for _, m := range s.msgs {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	lo := page * size
	if lo >= len(out) {
		return nil, nil
	}
	hi := lo + size
	if hi > len(out) {
		hi = len(out)
	}
	return out[lo:hi], nil
}

type memDirectStore struct {
	msgs []models.DirectMessage
}

func (s *memDirectStore) Insert(_ context.Context, m *models.DirectMessage) error {
	m.ID = uuid.New()
	m.CreatedAt = time.Now().Add(time.Duration(len(s.msgs)) * time.Second)
	s.msgs = append(s.msgs, *m)
	return nil
}

func (s *memDirectStore) Update(_ context.Context, m *models.DirectMessage) error {
	for i := range s.msgs {
		if s.msgs[i].ID == m.ID {
			s.msgs[i] = *m
			return nil
		}
	}
	return errors.New("not found")
}

func (s *memDirectStore) PageByPair(_ context.Context, one, two uuid.UUID, page, size int) ([]models.DirectMessage, error) {
	var out []models.DirectMessage
	for _, m := range s.msgs {
		if m.UserOne == one && m.UserTwo == two {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	lo := page * size
	if lo >= len(out) {
		return nil, nil
	}
	hi := lo + size
	if hi > len(out) {
		hi = len(out)
	}
	return out[lo:hi], nil
}

type recordedEvent struct {
	scope Scope
	event string
}

type memPublisher struct {
	events []recordedEvent
}

func (p *memPublisher) Publish(scope Scope, event string, _ any) {
	p.events = append(p.events, recordedEvent{scope, event})
}

type serviceFixture struct {
	svc     *Service
	chStore *memChannelStore
	dmStore *memDirectStore
	pub     *memPublisher
	clock   *fakeClock
	channel *models.Channel
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	kr, _ := pipelineKeys(t)
	secret := pipelineSecret()

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	chStore := &memChannelStore{}
	dmStore := &memDirectStore{}
	pub := &memPublisher{}

	svc := NewService(chStore, dmStore, pub,
		NewPageCache(3*time.Second, clock.Now),
		NewPipeline(secret, 2),
		secret,
	)

	return &serviceFixture{
		svc:     svc,
		chStore: chStore,
		dmStore: dmStore,
		pub:     pub,
		clock:   clock,
		channel: &models.Channel{ID: uuid.New(), Name: "general", Keyring: kr},
	}
}

func TestSendChannelMessagePopulatesEnvelope(t *testing.T) {
	f := newServiceFixture(t)
	sender := uuid.New()

	msg, err := f.svc.SendChannelMessage(context.Background(), f.channel, sender, SendInput{Content: "hello"})
	if err != nil {
		t.Fatalf("SendChannelMessage() error = %v", err)
	}

	if !msg.Envelope.Sealed() {
		t.Fatalf("envelope incomplete: %+v", msg.Envelope)
	}
	if msg.Envelope.HMAC == nil || *msg.Envelope.HMAC == "" {
		t.Error("missing integrity tag")
	}
	if *msg.Envelope.Content != "hello" {
		t.Errorf("mirror = %q", *msg.Envelope.Content)
	}
	if *msg.Envelope.EncryptedMessage == "hello" {
		t.Error("ciphertext equals plaintext")
	}
	if len(f.pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(f.pub.events))
	}
	if f.pub.events[0].scope != ChannelScope(f.channel.ID) {
		t.Errorf("published to %+v", f.pub.events[0].scope)
	}
}

func TestSendRequiresContentOrAttachment(t *testing.T) {
	f := newServiceFixture(t)

	if _, err := f.svc.SendChannelMessage(context.Background(), f.channel, uuid.New(), SendInput{}); !errors.Is(err, ErrMissingContent) {
		t.Errorf("error = %v, want ErrMissingContent", err)
	}

	// Attachment-only messages are stored without an envelope.
	url := "https://files.example/abc"
	msg, err := f.svc.SendChannelMessage(context.Background(), f.channel, uuid.New(), SendInput{FileURL: &url})
	if err != nil {
		t.Fatalf("attachment-only send error = %v", err)
	}
	if msg.Envelope.Sealed() {
		t.Error("attachment-only message has ciphertext fields")
	}
}

func TestEditAuthorization(t *testing.T) {
	f := newServiceFixture(t)
	author := uuid.New()

	msg, err := f.svc.SendChannelMessage(context.Background(), f.channel, author, SendInput{Content: "original"})
	if err != nil {
		t.Fatalf("SendChannelMessage() error = %v", err)
	}
	before := msg.Envelope

	err = f.svc.EditChannelMessage(context.Background(), f.channel, msg, uuid.New(), "hijacked")
	if !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("edit by stranger error = %v, want ErrNotAuthor", err)
	}
	if msg.Envelope != before {
		t.Error("rejected edit mutated ciphertext fields")
	}
}

func TestEditRecomputesWholeEnvelope(t *testing.T) {
	f := newServiceFixture(t)
	author := uuid.New()

	msg, err := f.svc.SendChannelMessage(context.Background(), f.channel, author, SendInput{Content: "original"})
	if err != nil {
		t.Fatalf("SendChannelMessage() error = %v", err)
	}
	before := msg.Envelope

	if err := f.svc.EditChannelMessage(context.Background(), f.channel, msg, author, "edited"); err != nil {
		t.Fatalf("EditChannelMessage() error = %v", err)
	}

	after := msg.Envelope
	if *after.Content != "edited" {
		t.Errorf("mirror = %q", *after.Content)
	}
	if *after.EncryptedMessage == *before.EncryptedMessage ||
		*after.EncryptedAESKey == *before.EncryptedAESKey ||
		*after.IV == *before.IV ||
		*after.HMAC == *before.HMAC {
		t.Error("edit left part of the old envelope in place; all cipher fields must be recomputed")
	}
}

func TestDeleteIsTerminalTombstone(t *testing.T) {
	f := newServiceFixture(t)
	author := uuid.New()
	url := "https://files.example/abc"
	tag := "aabbcc"

	msg, err := f.svc.SendChannelMessage(context.Background(), f.channel, author, SendInput{Content: "secret", FileURL: &url, FileHMAC: &tag})
	if err != nil {
		t.Fatalf("SendChannelMessage() error = %v", err)
	}

	if err := f.svc.DeleteChannelMessage(context.Background(), f.channel, msg, uuid.New()); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("delete by stranger error = %v, want ErrNotAuthor", err)
	}

	if err := f.svc.DeleteChannelMessage(context.Background(), f.channel, msg, author); err != nil {
		t.Fatalf("DeleteChannelMessage() error = %v", err)
	}
	if !msg.IsDeleted {
		t.Error("IsDeleted not set")
	}
	if *msg.Envelope.Content != models.DeletedMarker {
		t.Errorf("content = %q, want deleted marker", *msg.Envelope.Content)
	}
	if msg.FileURL != nil || msg.FileHMAC != nil {
		t.Error("attachment reference not cleared")
	}
	if msg.Envelope.EncryptedMessage != nil || msg.Envelope.EncryptedAESKey != nil || msg.Envelope.IV != nil || msg.Envelope.HMAC != nil {
		t.Error("ciphertext survived the delete")
	}

	// Tombstones are immutable.
	if err := f.svc.EditChannelMessage(context.Background(), f.channel, msg, author, "undo"); !errors.Is(err, ErrTombstoned) {
		t.Errorf("edit of tombstone error = %v, want ErrTombstoned", err)
	}
	if err := f.svc.DeleteChannelMessage(context.Background(), f.channel, msg, author); !errors.Is(err, ErrTombstoned) {
		t.Errorf("second delete error = %v, want ErrTombstoned", err)
	}
}

func TestFetchChannelPageDecryptsAndOrders(t *testing.T) {
	f := newServiceFixture(t)
	_, priv := pipelineKeys(t)
	sender := uuid.New()

	for _, text := range []string{"first", "second", "third"} {
		if _, err := f.svc.SendChannelMessage(context.Background(), f.channel, sender, SendInput{Content: text}); err != nil {
			t.Fatalf("send %q: %v", text, err)
		}
	}

	page, err := f.svc.FetchChannelPage(context.Background(), f.channel, 0, 20, priv)
	if err != nil {
		t.Fatalf("FetchChannelPage() error = %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("page has %d records, want 3", len(page))
	}
	// Fetched newest-first, presented oldest-first.
	for i, want := range []string{"first", "second", "third"} {
		if got := *page[i].Envelope.Content; got != want {
			t.Errorf("page[%d] = %q, want %q", i, got, want)
		}
	}
}

func TestFetchChannelPageUsesCache(t *testing.T) {
	f := newServiceFixture(t)
	_, priv := pipelineKeys(t)
	sender := uuid.New()

	if _, err := f.svc.SendChannelMessage(context.Background(), f.channel, sender, SendInput{Content: "cached"}); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.FetchChannelPage(context.Background(), f.channel, 0, 20, priv); err != nil {
		t.Fatal(err)
	}
	if f.chStore.pageCalls != 1 {
		t.Fatalf("store hit %d times after first fetch", f.chStore.pageCalls)
	}

	// Within the TTL the pipeline and store are not re-invoked.
	f.clock.Advance(time.Second)
	if _, err := f.svc.FetchChannelPage(context.Background(), f.channel, 0, 20, priv); err != nil {
		t.Fatal(err)
	}
	if f.chStore.pageCalls != 1 {
		t.Errorf("store hit %d times within TTL, want 1", f.chStore.pageCalls)
	}

	// After expiry the read goes back through the pipeline.
	f.clock.Advance(3 * time.Second)
	if _, err := f.svc.FetchChannelPage(context.Background(), f.channel, 0, 20, priv); err != nil {
		t.Fatal(err)
	}
	if f.chStore.pageCalls != 2 {
		t.Errorf("store hit %d times after TTL, want 2", f.chStore.pageCalls)
	}
}

func TestDirectMessageRoundTrip(t *testing.T) {
	f := newServiceFixture(t)
	sender := uuid.New()

	var recipientKeyring models.Keyring
	if _, err := crypto.Provision(&recipientKeyring); err != nil {
		t.Fatal(err)
	}
	recipient := &models.User{ID: uuid.New(), Username: "dana", Keyring: recipientKeyring}
	recipientPriv, err := crypto.UnwrapStoredPrivateKey(recipientKeyring)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.SendDirectMessage(context.Background(), sender, recipient, SendInput{Content: "psst"}); err != nil {
		t.Fatalf("SendDirectMessage() error = %v", err)
	}

	// The recipient reads with their own private key.
	page, err := f.svc.FetchDirectPage(context.Background(), recipient.ID, sender, 0, 20, recipientPriv)
	if err != nil {
		t.Fatalf("FetchDirectPage() error = %v", err)
	}
	if len(page) != 1 || *page[0].Envelope.Content != "psst" {
		t.Fatalf("recipient view = %+v", page)
	}

	// The sender holds no key the message was wrapped for and falls back to
	// the plaintext mirror.
	senderView, err := f.svc.FetchDirectPage(context.Background(), sender, recipient.ID, 0, 20, nil)
	if err != nil {
		t.Fatalf("FetchDirectPage() error = %v", err)
	}
	if len(senderView) != 1 || *senderView[0].Envelope.Content != "psst" {
		t.Fatalf("sender view = %+v", senderView)
	}
}
