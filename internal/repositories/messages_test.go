package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adwaith-rk/threadly/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Channel{},
		&models.ChannelMember{},
		&models.Message{},
		&models.DirectMessage{},
	); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return db
}

func strptr(s string) *string { return &s }

func TestChannelMessagesPageNewestFirst(t *testing.T) {
	db := testDB(t)
	store := NewChannelMessages(db)
	ctx := context.Background()

	channelID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		msg := models.Message{
			ChannelID: channelID,
			UserID:    uuid.New(),
			Envelope:  models.Envelope{Content: strptr(string(rune('a' + i)))},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Insert(ctx, &msg); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	// Noise in another channel must not leak into the page.
	other := models.Message{ChannelID: uuid.New(), UserID: uuid.New(), Envelope: models.Envelope{Content: strptr("x")}}
	if err := store.Insert(ctx, &other); err != nil {
		t.Fatal(err)
	}

	page, err := store.PageByChannel(ctx, channelID, 0, 3)
	if err != nil {
		t.Fatalf("PageByChannel() error = %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("page size = %d, want 3", len(page))
	}
	for i, want := range []string{"e", "d", "c"} {
		if got := *page[i].Envelope.Content; got != want {
			t.Errorf("page[%d] = %q, want %q (newest first)", i, got, want)
		}
	}

	rest, err := store.PageByChannel(ctx, channelID, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 2 {
		t.Errorf("second page size = %d, want 2", len(rest))
	}
}

func TestChannelMessagesUpdatePersistsEnvelope(t *testing.T) {
	db := testDB(t)
	store := NewChannelMessages(db)
	ctx := context.Background()

	msg := models.Message{
		ChannelID: uuid.New(),
		UserID:    uuid.New(),
		Envelope: models.Envelope{
			Content:          strptr("before"),
			EncryptedMessage: strptr("cipher-1"),
			EncryptedAESKey:  strptr("wrap-1"),
			IV:               strptr("iv-1"),
			HMAC:             strptr("tag-1"),
		},
	}
	if err := store.Insert(ctx, &msg); err != nil {
		t.Fatal(err)
	}

	msg.Envelope = models.Envelope{
		Content:          strptr("after"),
		EncryptedMessage: strptr("cipher-2"),
		EncryptedAESKey:  strptr("wrap-2"),
		IV:               strptr("iv-2"),
		HMAC:             strptr("tag-2"),
	}
	if err := store.Update(ctx, &msg); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := store.GetByID(ctx, msg.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if *got.Envelope.EncryptedMessage != "cipher-2" || *got.Envelope.EncryptedAESKey != "wrap-2" ||
		*got.Envelope.IV != "iv-2" || *got.Envelope.HMAC != "tag-2" {
		t.Errorf("stored envelope = %+v", got.Envelope)
	}
}

func TestDirectMessagesPageByPair(t *testing.T) {
	db := testDB(t)
	store := NewDirectMessages(db)
	ctx := context.Background()

	a := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	b := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	for i, sender := range []uuid.UUID{a, b, a} {
		msg := models.DirectMessage{
			UserOne:   a,
			UserTwo:   b,
			UserID:    sender,
			Envelope:  models.Envelope{Content: strptr(string(rune('1' + i)))},
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}
		if err := store.Insert(ctx, &msg); err != nil {
			t.Fatal(err)
		}
	}

	page, err := store.PageByPair(ctx, a, b, 0, 20)
	if err != nil {
		t.Fatalf("PageByPair() error = %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("page size = %d, want 3", len(page))
	}
	if *page[0].Envelope.Content != "3" {
		t.Errorf("newest first violated: page[0] = %q", *page[0].Envelope.Content)
	}

	// An unrelated pair sees nothing.
	none, err := store.PageByPair(ctx, a, uuid.New(), 0, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("unrelated pair got %d records", len(none))
	}
}
