package giveaway

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"superlot/internal/infrastructure/codec"
	"superlot/internal/infrastructure/persistence/sqlite/model"
	sqliterepo "superlot/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "superlot/internal/infrastructure/persistence/sqlite/uow"
	"superlot/internal/ports"
)

type testCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newTestCache() *testCache {
	return &testCache{data: make(map[string]string)}
}

func (c *testCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *testCache) Set(_ context.Context, key string, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *testCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

type sentMessage struct {
	Recipient string
	Text      string
}

// fakeMessenger fails the first failFor[recipient] sends to a recipient,
// then succeeds. failAll makes every send fail.
type fakeMessenger struct {
	mu      sync.Mutex
	failFor map[string]int
	failAll bool
	sent    []sentMessage
	nextID  int
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{failFor: make(map[string]int)}
}

func (m *fakeMessenger) SendDirectMessage(_ context.Context, recipient string, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll {
		return "", errors.New("delivery channel down")
	}
	if remaining := m.failFor[recipient]; remaining > 0 {
		m.failFor[recipient] = remaining - 1
		return "", errors.New("recipient temporarily unreachable")
	}

	m.nextID++
	m.sent = append(m.sent, sentMessage{Recipient: recipient, Text: text})
	return "msg-" + strconv.Itoa(m.nextID), nil
}

func (m *fakeMessenger) sentTo(recipient string) []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMessage
	for _, msg := range m.sent {
		if msg.Recipient == recipient {
			out = append(out, msg)
		}
	}
	return out
}

// flakyUnitOfWork aborts the next failNext transactions before they start,
// then delegates to the real unit of work.
type flakyUnitOfWork struct {
	mu       sync.Mutex
	inner    ports.UnitOfWork
	failNext int
}

func (u *flakyUnitOfWork) failNextTx(n int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failNext = n
}

func (u *flakyUnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	u.mu.Lock()
	if u.failNext > 0 {
		u.failNext--
		u.mu.Unlock()
		return errors.New("transaction aborted")
	}
	u.mu.Unlock()
	return u.inner.WithTx(ctx, fn)
}

type testHarness struct {
	svc       *Service
	repo      *sqliterepo.GiveawayRepository
	db        *gorm.DB
	cache     *testCache
	messenger *fakeMessenger
	codec     ports.GiftCodec
}

func setupHarness(t *testing.T) *testHarness {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "giveaway.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Exec("PRAGMA busy_timeout = 5000;").Error; err != nil {
		t.Fatalf("set busy timeout: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.AutoMigrate(
		&model.Participant{},
		&model.Entry{},
		&model.GiftCode{},
		&model.Winner{},
		&model.NotificationTask{},
		&model.StatusKV{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	giftCodec, err := codec.NewAESCodec("test-passphrase", "test-salt")
	if err != nil {
		t.Fatalf("init codec: %v", err)
	}

	repo := sqliterepo.NewGiveawayRepository(db)
	uow := sqliteuow.NewUnitOfWork(db)
	cache := newTestCache()
	messenger := newFakeMessenger()

	svc := NewService(repo, uow, cache, messenger, giftCodec, DefaultMessageProfile(), DefaultSettings())

	return &testHarness{
		svc:       svc,
		repo:      repo,
		db:        db,
		cache:     cache,
		messenger: messenger,
		codec:     giftCodec,
	}
}

// withFlakyUOW rebuilds the harness service around a unit of work whose
// transactions can be made to fail on demand.
func (h *testHarness) withFlakyUOW(settings Settings) (*Service, *flakyUnitOfWork) {
	flaky := &flakyUnitOfWork{inner: sqliteuow.NewUnitOfWork(h.db)}
	svc := NewService(h.repo, flaky, h.cache, h.messenger, h.codec, DefaultMessageProfile(), settings)
	return svc, flaky
}

func (h *testHarness) seedFollower(t *testing.T, handle string) ports.Participant {
	t.Helper()
	participant, err := h.svc.RegisterParticipant(context.Background(), ports.ParticipantUpsert{
		Handle:     handle,
		ScreenName: "user " + handle,
		IsFollower: true,
	})
	if err != nil {
		t.Fatalf("seed follower %s: %v", handle, err)
	}
	return participant
}

// seedCandidate registers a follower with one valid entry from an account
// old enough to pass the fraud gate.
func (h *testHarness) seedCandidate(t *testing.T, handle string) ports.Participant {
	t.Helper()
	participant := h.seedFollower(t, handle)
	h.ageAccount(t, participant.ParticipantID, 90*24*time.Hour)

	now := time.Now().UTC()
	if _, err := h.repo.CreateEntry(context.Background(), ports.EntryCreate{
		ParticipantID: participant.ParticipantID,
		SourceEventID: "evt-" + handle,
		SourceEventAt: now,
		IsValid:       true,
		CreatedAt:     now,
	}); err != nil {
		t.Fatalf("seed entry for %s: %v", handle, err)
	}
	return participant
}

// ageAccount backdates a participant's account creation; the upsert always
// stamps the current time.
func (h *testHarness) ageAccount(t *testing.T, participantID uint64, age time.Duration) {
	t.Helper()
	createdAt := time.Now().UTC().Add(-age)
	if err := h.db.Model(&model.Participant{}).
		Where("participant_id = ?", participantID).
		Update("created_at", createdAt).Error; err != nil {
		t.Fatalf("backdate participant %d: %v", participantID, err)
	}
}

func (h *testHarness) seedGiftCode(t *testing.T, plaintext string) ports.GiftCode {
	t.Helper()
	created, err := h.svc.CreateGiftCode(context.Background(), CreateGiftCodeInput{
		Code:   plaintext,
		Amount: 500,
	})
	if err != nil {
		t.Fatalf("seed gift code %s: %v", plaintext, err)
	}
	return created
}
