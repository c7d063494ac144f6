package ports

import (
	"context"
	"time"
)

// Plain DTOs cross this boundary; gorm rows never leave the repository.

type Participant struct {
	ParticipantID uint64
	Handle        string
	ScreenName    string
	ProfileImage  string
	IsFollower    bool
	FollowedAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ParticipantUpsert struct {
	Handle       string
	ScreenName   string
	ProfileImage string
	IsFollower   bool
}

type Entry struct {
	EntryID        uint64
	ParticipantID  uint64
	SourceEventID  string
	SourceEventAt  time.Time
	IsValid        bool
	InvalidReason  string
	CorrelationKey string
	CreatedAt      time.Time
}

type EntryCreate struct {
	ParticipantID  uint64
	SourceEventID  string
	SourceEventAt  time.Time
	IsValid        bool
	InvalidReason  string
	CorrelationKey string
	CreatedAt      time.Time
}

type GiftCode struct {
	GiftCodeID    uint64
	Code          string
	EncryptedCode string
	Amount        int
	IsUsed        bool
	UsedAt        *time.Time
	ExpiresAt     *time.Time
	Note          string
	CreatedAt     time.Time
}

type GiftCodeCreate struct {
	Code          string
	EncryptedCode string
	Amount        int
	ExpiresAt     *time.Time
	Note          string
	CreatedAt     time.Time
}

// EligibleEntry is one draw candidate: a valid entry by a follower with no
// prior win, one per participant.
type EligibleEntry struct {
	EntryID       uint64
	ParticipantID uint64
	Handle        string
	ScreenName    string
}

type Winner struct {
	WinnerID      uint64
	ParticipantID uint64
	GiftCodeID    uint64
	EntryID       uint64
	Token         string
	Status        string
	MessageID     string
	NotifiedAt    *time.Time
	ConfirmedAt   *time.Time
	CreatedAt     time.Time
}

type WinnerCreate struct {
	ParticipantID uint64
	GiftCodeID    uint64
	EntryID       uint64
	Token         string
	Status        string
	CreatedAt     time.Time
}

// WinnerDetail joins the winner with its participant and gift code for
// operator-facing reads and notification rendering.
type WinnerDetail struct {
	Winner
	Handle        string
	ScreenName    string
	Code          string
	EncryptedCode string
	Amount        int
}

type NotificationTask struct {
	TaskID        uint64
	WinnerID      uint64
	GiftCodeID    uint64
	Status        string
	RetryCount    int
	LastError     string
	LastAttemptAt *time.Time
	MessageID     string
	SentAt        *time.Time
	CreatedAt     time.Time
}

type NotificationTaskCreate struct {
	WinnerID   uint64
	GiftCodeID uint64
	Status     string
	CreatedAt  time.Time
}

type CampaignStats struct {
	TotalEntries       int64
	ValidEntries       int64
	InvalidEntries     int64
	UniqueParticipants int64
	TodayEntries       int64
}

type ParticipantRepository interface {
	GetParticipantByHandle(ctx context.Context, handle string) (Participant, error)
	UpsertParticipant(ctx context.Context, input ParticipantUpsert) (Participant, error)
	ListFollowers(ctx context.Context, limit, offset int) ([]Participant, error)
	CountFollowers(ctx context.Context) (int64, error)
}

type EntryRepository interface {
	CreateEntry(ctx context.Context, input EntryCreate) (Entry, error)
	ListEntriesByParticipant(ctx context.Context, participantID uint64) ([]Entry, error)
	HasValidEntrySince(ctx context.Context, participantID uint64, since time.Time) (bool, error)
	CountCorrelatedEntries(ctx context.Context, correlationKey string, excludeParticipantID uint64) (int64, error)
	InvalidateEntry(ctx context.Context, entryID uint64, reason string) error
	CampaignStats(ctx context.Context, startOfToday time.Time) (CampaignStats, error)
}

type GiftCodeRepository interface {
	CreateGiftCode(ctx context.Context, input GiftCodeCreate) (GiftCode, error)
	GetGiftCodeByCode(ctx context.Context, code string) (GiftCode, error)
	GetGiftCodeByID(ctx context.Context, giftCodeID uint64) (GiftCode, error)
	// ListAvailableGiftCodes returns unused, unassigned, unexpired codes in
	// stable insertion order (id ascending), capped at limit.
	ListAvailableGiftCodes(ctx context.Context, now time.Time, limit int) ([]GiftCode, error)
	CountAvailableGiftCodes(ctx context.Context, now time.Time) (int64, error)
	ListUnusedGiftCodes(ctx context.Context, now time.Time) ([]GiftCode, error)
	MarkGiftCodeUsed(ctx context.Context, giftCodeID uint64, usedAt time.Time, note string) error
}

type WinnerRepository interface {
	// ListEligibleEntries returns draw candidates ordered by entry id.
	ListEligibleEntries(ctx context.Context) ([]EligibleEntry, error)
	// CreateWinner returns giveaway.ErrDuplicateWinner (wrapped) when the
	// participant or gift code uniqueness constraint is violated.
	CreateWinner(ctx context.Context, input WinnerCreate) (Winner, error)
	GetWinnerByParticipant(ctx context.Context, participantID uint64) (WinnerDetail, error)
	GetWinnerByID(ctx context.Context, winnerID uint64) (WinnerDetail, error)
	GetWinnerByToken(ctx context.Context, token string) (WinnerDetail, error)
	ListWinners(ctx context.Context) ([]WinnerDetail, error)
	MarkWinnerSent(ctx context.Context, winnerID uint64, messageID string, at time.Time) error
	MarkWinnerFailed(ctx context.Context, winnerID uint64) error
	ConfirmWinner(ctx context.Context, winnerID uint64, at time.Time) error
}

type NotificationRepository interface {
	CreateNotificationTask(ctx context.Context, input NotificationTaskCreate) (NotificationTask, error)
	GetNotificationTaskByWinner(ctx context.Context, winnerID uint64) (NotificationTask, bool, error)
	GetNotificationTask(ctx context.Context, taskID uint64) (NotificationTask, error)
	// ListNotificationTasks returns tasks in the given status (empty matches
	// all) with retry_count below maxRetryBelow (ignored when negative),
	// oldest first.
	ListNotificationTasks(ctx context.Context, status string, maxRetryBelow int, limit int) ([]NotificationTask, error)
	MarkTaskSending(ctx context.Context, taskID uint64, at time.Time) error
	MarkTaskSent(ctx context.Context, taskID uint64, messageID string, at time.Time) error
	RecordTaskFailure(ctx context.Context, taskID uint64, status string, retryCount int, lastError string, at time.Time) error
	ResetTaskRetries(ctx context.Context, taskID uint64) error
}

// GiveawayRepository bundles the store surface the usecases consume.
type GiveawayRepository interface {
	ParticipantRepository
	EntryRepository
	GiftCodeRepository
	WinnerRepository
	NotificationRepository
}
