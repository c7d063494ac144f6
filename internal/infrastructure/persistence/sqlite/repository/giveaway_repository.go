package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"superlot/internal/domain/giveaway"
	"superlot/internal/errs"
	"superlot/internal/infrastructure/persistence/sqlite/model"
	"superlot/internal/ports"
)

type GiveawayRepository struct {
	db *gorm.DB
}

var _ ports.GiveawayRepository = (*GiveawayRepository)(nil)

func NewGiveawayRepository(db *gorm.DB) *GiveawayRepository {
	return &GiveawayRepository{db: db}
}

func (r *GiveawayRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ---- participants ----

func (r *GiveawayRepository) GetParticipantByHandle(ctx context.Context, handle string) (ports.Participant, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Participant{}, err
	}

	var row model.Participant
	if err := db.Where("handle = ?", handle).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Participant{}, giveaway.ErrParticipantNotFound
		}
		return ports.Participant{}, errs.Wrap(err, "query participant by handle")
	}
	return mapParticipant(row), nil
}

func (r *GiveawayRepository) UpsertParticipant(ctx context.Context, input ports.ParticipantUpsert) (ports.Participant, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Participant{}, err
	}

	now := time.Now().UTC()

	var row model.Participant
	err = db.Where("handle = ?", input.Handle).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = model.Participant{
			Handle:       input.Handle,
			ScreenName:   input.ScreenName,
			ProfileImage: input.ProfileImage,
			IsFollower:   input.IsFollower,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if input.IsFollower {
			row.FollowedAt = &now
		}
		if err := db.Create(&row).Error; err != nil {
			return ports.Participant{}, errs.Wrap(err, "insert participant")
		}
		return mapParticipant(row), nil
	case err != nil:
		return ports.Participant{}, errs.Wrap(err, "query participant for upsert")
	}

	updates := map[string]any{
		"screen_name":   input.ScreenName,
		"profile_image": input.ProfileImage,
		"is_follower":   input.IsFollower,
		"updated_at":    now,
	}
	if input.IsFollower {
		updates["followed_at"] = now
	} else {
		updates["followed_at"] = nil
	}
	if err := db.Model(&model.Participant{}).
		Where("participant_id = ?", row.ParticipantID).
		Updates(updates).Error; err != nil {
		return ports.Participant{}, errs.Wrap(err, "update participant")
	}

	if err := db.Where("participant_id = ?", row.ParticipantID).Take(&row).Error; err != nil {
		return ports.Participant{}, errs.Wrap(err, "reload participant")
	}
	return mapParticipant(row), nil
}

func (r *GiveawayRepository) ListFollowers(ctx context.Context, limit, offset int) ([]ports.Participant, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.Participant{}).
		Where("is_follower = ?", true).
		Order("followed_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []model.Participant
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query followers")
	}

	items := make([]ports.Participant, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapParticipant(row))
	}
	return items, nil
}

func (r *GiveawayRepository) CountFollowers(ctx context.Context) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.Participant{}).Where("is_follower = ?", true).Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count followers")
	}
	return count, nil
}

// ---- entries ----

func (r *GiveawayRepository) CreateEntry(ctx context.Context, input ports.EntryCreate) (ports.Entry, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Entry{}, err
	}

	row := model.Entry{
		ParticipantID: input.ParticipantID,
		SourceEventID: input.SourceEventID,
		SourceEventAt: input.SourceEventAt,
		IsValid:       input.IsValid,
		CreatedAt:     input.CreatedAt,
	}
	if input.InvalidReason != "" {
		row.InvalidReason = &input.InvalidReason
	}
	if input.CorrelationKey != "" {
		row.CorrelationKey = &input.CorrelationKey
	}

	if err := db.Create(&row).Error; err != nil {
		return ports.Entry{}, errs.Wrap(err, "insert entry")
	}
	return mapEntry(row), nil
}

func (r *GiveawayRepository) ListEntriesByParticipant(ctx context.Context, participantID uint64) ([]ports.Entry, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Entry
	if err := db.Where("participant_id = ?", participantID).
		Order("entry_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query entries by participant")
	}

	items := make([]ports.Entry, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapEntry(row))
	}
	return items, nil
}

func (r *GiveawayRepository) HasValidEntrySince(ctx context.Context, participantID uint64, since time.Time) (bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return false, err
	}

	var count int64
	if err := db.Model(&model.Entry{}).
		Where("participant_id = ? AND is_valid = ? AND created_at >= ?", participantID, true, since).
		Count(&count).Error; err != nil {
		return false, errs.Wrap(err, "count recent valid entries")
	}
	return count > 0, nil
}

func (r *GiveawayRepository) CountCorrelatedEntries(ctx context.Context, correlationKey string, excludeParticipantID uint64) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.Model(&model.Entry{}).
		Where("correlation_key = ? AND participant_id <> ?", correlationKey, excludeParticipantID).
		Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count correlated entries")
	}
	return count, nil
}

func (r *GiveawayRepository) InvalidateEntry(ctx context.Context, entryID uint64, reason string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Entry{}).
		Where("entry_id = ?", entryID).
		Updates(map[string]any{
			"is_valid":       false,
			"invalid_reason": reason,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "invalidate entry")
	}
	if result.RowsAffected == 0 {
		return giveaway.ErrEntryNotFound
	}
	return nil
}

func (r *GiveawayRepository) CampaignStats(ctx context.Context, startOfToday time.Time) (ports.CampaignStats, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.CampaignStats{}, err
	}

	var stats ports.CampaignStats
	if err := db.Model(&model.Entry{}).Count(&stats.TotalEntries).Error; err != nil {
		return ports.CampaignStats{}, errs.Wrap(err, "count entries")
	}
	if err := db.Model(&model.Entry{}).Where("is_valid = ?", true).Count(&stats.ValidEntries).Error; err != nil {
		return ports.CampaignStats{}, errs.Wrap(err, "count valid entries")
	}
	stats.InvalidEntries = stats.TotalEntries - stats.ValidEntries
	if err := db.Model(&model.Entry{}).
		Where("is_valid = ?", true).
		Distinct("participant_id").
		Count(&stats.UniqueParticipants).Error; err != nil {
		return ports.CampaignStats{}, errs.Wrap(err, "count unique participants")
	}
	if err := db.Model(&model.Entry{}).
		Where("created_at >= ?", startOfToday).
		Count(&stats.TodayEntries).Error; err != nil {
		return ports.CampaignStats{}, errs.Wrap(err, "count today entries")
	}
	return stats, nil
}

// ---- gift codes ----

func (r *GiveawayRepository) CreateGiftCode(ctx context.Context, input ports.GiftCodeCreate) (ports.GiftCode, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.GiftCode{}, err
	}

	row := model.GiftCode{
		Code:          input.Code,
		EncryptedCode: input.EncryptedCode,
		Amount:        input.Amount,
		ExpiresAt:     input.ExpiresAt,
		CreatedAt:     input.CreatedAt,
	}
	if input.Note != "" {
		row.Note = &input.Note
	}

	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return ports.GiftCode{}, fmt.Errorf("%w: %s", giveaway.ErrDuplicateGiftCode, input.Code)
		}
		return ports.GiftCode{}, errs.Wrap(err, "insert gift code")
	}
	return mapGiftCode(row), nil
}

func (r *GiveawayRepository) GetGiftCodeByCode(ctx context.Context, code string) (ports.GiftCode, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.GiftCode{}, err
	}

	var row model.GiftCode
	if err := db.Where("code = ?", code).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.GiftCode{}, giveaway.ErrGiftCodeNotFound
		}
		return ports.GiftCode{}, errs.Wrap(err, "query gift code by code")
	}
	return mapGiftCode(row), nil
}

func (r *GiveawayRepository) GetGiftCodeByID(ctx context.Context, giftCodeID uint64) (ports.GiftCode, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.GiftCode{}, err
	}

	var row model.GiftCode
	if err := db.Where("gift_code_id = ?", giftCodeID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.GiftCode{}, giveaway.ErrGiftCodeNotFound
		}
		return ports.GiftCode{}, errs.Wrap(err, "query gift code by id")
	}
	return mapGiftCode(row), nil
}

func (r *GiveawayRepository) availableGiftCodesQuery(db *gorm.DB, now time.Time) *gorm.DB {
	return db.Model(&model.GiftCode{}).
		Where("is_used = ?", false).
		Where("gift_code_id NOT IN (?)", db.Session(&gorm.Session{NewDB: true}).Model(&model.Winner{}).Select("gift_code_id")).
		Where("expires_at IS NULL OR expires_at > ?", now)
}

func (r *GiveawayRepository) ListAvailableGiftCodes(ctx context.Context, now time.Time, limit int) ([]ports.GiftCode, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	// Insertion order keeps binding deterministic across draw retries.
	query := r.availableGiftCodesQuery(db, now).Order("gift_code_id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.GiftCode
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query available gift codes")
	}

	items := make([]ports.GiftCode, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapGiftCode(row))
	}
	return items, nil
}

func (r *GiveawayRepository) CountAvailableGiftCodes(ctx context.Context, now time.Time) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := r.availableGiftCodesQuery(db, now).Count(&count).Error; err != nil {
		return 0, errs.Wrap(err, "count available gift codes")
	}
	return count, nil
}

func (r *GiveawayRepository) ListUnusedGiftCodes(ctx context.Context, now time.Time) ([]ports.GiftCode, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.GiftCode
	if err := db.Model(&model.GiftCode{}).
		Where("is_used = ?", false).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("gift_code_id asc").
		Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query unused gift codes")
	}

	items := make([]ports.GiftCode, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapGiftCode(row))
	}
	return items, nil
}

func (r *GiveawayRepository) MarkGiftCodeUsed(ctx context.Context, giftCodeID uint64, usedAt time.Time, note string) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	updates := map[string]any{
		"is_used": true,
		"used_at": usedAt,
	}
	if note != "" {
		updates["note"] = note
	}

	result := db.Model(&model.GiftCode{}).
		Where("gift_code_id = ? AND is_used = ?", giftCodeID, false).
		Updates(updates)
	if result.Error != nil {
		return errs.Wrap(result.Error, "mark gift code used")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: gift code %d already used or missing", giveaway.ErrDuplicateWinner, giftCodeID)
	}
	return nil
}

// ---- winners ----

func (r *GiveawayRepository) ListEligibleEntries(ctx context.Context) ([]ports.EligibleEntry, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	// One candidate row per participant: the earliest valid entry by a
	// follower without a prior win.
	type eligibleRow struct {
		EntryID       uint64
		ParticipantID uint64
		Handle        string
		ScreenName    string
	}

	winnersSub := db.Session(&gorm.Session{NewDB: true}).Model(&model.Winner{}).Select("participant_id")

	var rows []eligibleRow
	if err := db.Model(&model.Entry{}).
		Select("min(entries.entry_id) as entry_id, entries.participant_id, participants.handle, participants.screen_name").
		Joins("JOIN participants ON participants.participant_id = entries.participant_id").
		Where("entries.is_valid = ?", true).
		Where("participants.is_follower = ?", true).
		Where("entries.participant_id NOT IN (?)", winnersSub).
		Group("entries.participant_id").
		Order("entry_id asc").
		Scan(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query eligible entries")
	}

	items := make([]ports.EligibleEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.EligibleEntry{
			EntryID:       row.EntryID,
			ParticipantID: row.ParticipantID,
			Handle:        row.Handle,
			ScreenName:    row.ScreenName,
		})
	}
	return items, nil
}

func (r *GiveawayRepository) CreateWinner(ctx context.Context, input ports.WinnerCreate) (ports.Winner, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Winner{}, err
	}

	row := model.Winner{
		ParticipantID: input.ParticipantID,
		GiftCodeID:    input.GiftCodeID,
		EntryID:       input.EntryID,
		Token:         input.Token,
		Status:        input.Status,
		CreatedAt:     input.CreatedAt,
	}

	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return ports.Winner{}, fmt.Errorf("%w: participant %d / gift code %d", giveaway.ErrDuplicateWinner, input.ParticipantID, input.GiftCodeID)
		}
		return ports.Winner{}, errs.Wrap(err, "insert winner")
	}
	return mapWinner(row), nil
}

func (r *GiveawayRepository) winnerDetailQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&model.Winner{}).
		Select("winners.*, participants.handle, participants.screen_name, gift_codes.code, gift_codes.encrypted_code, gift_codes.amount").
		Joins("JOIN participants ON participants.participant_id = winners.participant_id").
		Joins("JOIN gift_codes ON gift_codes.gift_code_id = winners.gift_code_id")
}

type winnerDetailRow struct {
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
	Handle        string
	ScreenName    string
	Code          string
	EncryptedCode string
	Amount        int
}

func (r *GiveawayRepository) getWinnerDetail(db *gorm.DB, condition string, args ...any) (ports.WinnerDetail, error) {
	var row winnerDetailRow
	if err := r.winnerDetailQuery(db).Where(condition, args...).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.WinnerDetail{}, giveaway.ErrWinnerNotFound
		}
		return ports.WinnerDetail{}, errs.Wrap(err, "query winner detail")
	}
	return mapWinnerDetail(row), nil
}

func (r *GiveawayRepository) GetWinnerByParticipant(ctx context.Context, participantID uint64) (ports.WinnerDetail, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.WinnerDetail{}, err
	}
	return r.getWinnerDetail(db, "winners.participant_id = ?", participantID)
}

func (r *GiveawayRepository) GetWinnerByID(ctx context.Context, winnerID uint64) (ports.WinnerDetail, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.WinnerDetail{}, err
	}
	return r.getWinnerDetail(db, "winners.winner_id = ?", winnerID)
}

func (r *GiveawayRepository) GetWinnerByToken(ctx context.Context, token string) (ports.WinnerDetail, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.WinnerDetail{}, err
	}
	return r.getWinnerDetail(db, "winners.token = ?", token)
}

func (r *GiveawayRepository) ListWinners(ctx context.Context) ([]ports.WinnerDetail, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []winnerDetailRow
	if err := r.winnerDetailQuery(db).Order("winners.winner_id asc").Scan(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query winners")
	}

	items := make([]ports.WinnerDetail, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapWinnerDetail(row))
	}
	return items, nil
}

func (r *GiveawayRepository) MarkWinnerSent(ctx context.Context, winnerID uint64, messageID string, at time.Time) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Winner{}).
		Where("winner_id = ?", winnerID).
		Updates(map[string]any{
			"status":      string(giveaway.WinnerSent),
			"message_id":  messageID,
			"notified_at": at,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "mark winner sent")
	}
	if result.RowsAffected == 0 {
		return giveaway.ErrWinnerNotFound
	}
	return nil
}

func (r *GiveawayRepository) MarkWinnerFailed(ctx context.Context, winnerID uint64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.Winner{}).
		Where("winner_id = ?", winnerID).
		Update("status", string(giveaway.WinnerFailed))
	if result.Error != nil {
		return errs.Wrap(result.Error, "mark winner failed")
	}
	if result.RowsAffected == 0 {
		return giveaway.ErrWinnerNotFound
	}
	return nil
}

func (r *GiveawayRepository) ConfirmWinner(ctx context.Context, winnerID uint64, at time.Time) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	// Idempotent: a second confirm keeps the first timestamp.
	result := db.Model(&model.Winner{}).
		Where("winner_id = ? AND confirmed_at IS NULL", winnerID).
		Update("confirmed_at", at)
	if result.Error != nil {
		return errs.Wrap(result.Error, "confirm winner")
	}
	return nil
}

// ---- notification tasks ----

func (r *GiveawayRepository) CreateNotificationTask(ctx context.Context, input ports.NotificationTaskCreate) (ports.NotificationTask, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.NotificationTask{}, err
	}

	row := model.NotificationTask{
		WinnerID:   input.WinnerID,
		GiftCodeID: input.GiftCodeID,
		Status:     input.Status,
		CreatedAt:  input.CreatedAt,
	}

	if err := db.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost a creation race; the existing task wins.
			var existing model.NotificationTask
			if takeErr := db.Where("winner_id = ?", input.WinnerID).Take(&existing).Error; takeErr != nil {
				return ports.NotificationTask{}, errs.Wrap(takeErr, "load existing notification task")
			}
			return mapTask(existing), nil
		}
		return ports.NotificationTask{}, errs.Wrap(err, "insert notification task")
	}
	return mapTask(row), nil
}

func (r *GiveawayRepository) GetNotificationTaskByWinner(ctx context.Context, winnerID uint64) (ports.NotificationTask, bool, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.NotificationTask{}, false, err
	}

	var row model.NotificationTask
	if err := db.Where("winner_id = ?", winnerID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.NotificationTask{}, false, nil
		}
		return ports.NotificationTask{}, false, errs.Wrap(err, "query notification task by winner")
	}
	return mapTask(row), true, nil
}

func (r *GiveawayRepository) GetNotificationTask(ctx context.Context, taskID uint64) (ports.NotificationTask, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.NotificationTask{}, err
	}

	var row model.NotificationTask
	if err := db.Where("task_id = ?", taskID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.NotificationTask{}, giveaway.ErrNotificationNotFound
		}
		return ports.NotificationTask{}, errs.Wrap(err, "query notification task")
	}
	return mapTask(row), nil
}

func (r *GiveawayRepository) ListNotificationTasks(ctx context.Context, status string, maxRetryBelow int, limit int) ([]ports.NotificationTask, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.NotificationTask{}).
		Order("task_id asc")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if maxRetryBelow >= 0 {
		query = query.Where("retry_count < ?", maxRetryBelow)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.NotificationTask
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query notification tasks")
	}

	items := make([]ports.NotificationTask, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapTask(row))
	}
	return items, nil
}

func (r *GiveawayRepository) MarkTaskSending(ctx context.Context, taskID uint64, at time.Time) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.NotificationTask{}).
		Where("task_id = ?", taskID).
		Updates(map[string]any{
			"status":          string(giveaway.TaskSending),
			"last_attempt_at": at,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "mark task sending")
	}
	if result.RowsAffected == 0 {
		return giveaway.ErrNotificationNotFound
	}
	return nil
}

func (r *GiveawayRepository) MarkTaskSent(ctx context.Context, taskID uint64, messageID string, at time.Time) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.NotificationTask{}).
		Where("task_id = ?", taskID).
		Updates(map[string]any{
			"status":     string(giveaway.TaskSent),
			"message_id": messageID,
			"sent_at":    at,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "mark task sent")
	}
	if result.RowsAffected == 0 {
		return giveaway.ErrNotificationNotFound
	}
	return nil
}

func (r *GiveawayRepository) RecordTaskFailure(ctx context.Context, taskID uint64, status string, retryCount int, lastError string, at time.Time) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.NotificationTask{}).
		Where("task_id = ?", taskID).
		Updates(map[string]any{
			"status":          status,
			"retry_count":     retryCount,
			"last_error":      lastError,
			"last_attempt_at": at,
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "record task failure")
	}
	if result.RowsAffected == 0 {
		return giveaway.ErrNotificationNotFound
	}
	return nil
}

func (r *GiveawayRepository) ResetTaskRetries(ctx context.Context, taskID uint64) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	result := db.Model(&model.NotificationTask{}).
		Where("task_id = ? AND status = ?", taskID, string(giveaway.TaskFailed)).
		Updates(map[string]any{
			"retry_count": 0,
			"last_error":  "",
		})
	if result.Error != nil {
		return errs.Wrap(result.Error, "reset task retries")
	}
	if result.RowsAffected == 0 {
		return giveaway.ErrNotificationNotFound
	}
	return nil
}

// ---- mapping ----

func mapParticipant(row model.Participant) ports.Participant {
	return ports.Participant{
		ParticipantID: row.ParticipantID,
		Handle:        row.Handle,
		ScreenName:    row.ScreenName,
		ProfileImage:  row.ProfileImage,
		IsFollower:    row.IsFollower,
		FollowedAt:    row.FollowedAt,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func mapEntry(row model.Entry) ports.Entry {
	return ports.Entry{
		EntryID:        row.EntryID,
		ParticipantID:  row.ParticipantID,
		SourceEventID:  row.SourceEventID,
		SourceEventAt:  row.SourceEventAt,
		IsValid:        row.IsValid,
		InvalidReason:  derefString(row.InvalidReason),
		CorrelationKey: derefString(row.CorrelationKey),
		CreatedAt:      row.CreatedAt,
	}
}

func mapGiftCode(row model.GiftCode) ports.GiftCode {
	return ports.GiftCode{
		GiftCodeID:    row.GiftCodeID,
		Code:          row.Code,
		EncryptedCode: row.EncryptedCode,
		Amount:        row.Amount,
		IsUsed:        row.IsUsed,
		UsedAt:        row.UsedAt,
		ExpiresAt:     row.ExpiresAt,
		Note:          derefString(row.Note),
		CreatedAt:     row.CreatedAt,
	}
}

func mapWinner(row model.Winner) ports.Winner {
	return ports.Winner{
		WinnerID:      row.WinnerID,
		ParticipantID: row.ParticipantID,
		GiftCodeID:    row.GiftCodeID,
		EntryID:       row.EntryID,
		Token:         row.Token,
		Status:        row.Status,
		MessageID:     row.MessageID,
		NotifiedAt:    row.NotifiedAt,
		ConfirmedAt:   row.ConfirmedAt,
		CreatedAt:     row.CreatedAt,
	}
}

func mapWinnerDetail(row winnerDetailRow) ports.WinnerDetail {
	return ports.WinnerDetail{
		Winner: ports.Winner{
			WinnerID:      row.WinnerID,
			ParticipantID: row.ParticipantID,
			GiftCodeID:    row.GiftCodeID,
			EntryID:       row.EntryID,
			Token:         row.Token,
			Status:        row.Status,
			MessageID:     row.MessageID,
			NotifiedAt:    row.NotifiedAt,
			ConfirmedAt:   row.ConfirmedAt,
			CreatedAt:     row.CreatedAt,
		},
		Handle:        row.Handle,
		ScreenName:    row.ScreenName,
		Code:          row.Code,
		EncryptedCode: row.EncryptedCode,
		Amount:        row.Amount,
	}
}

func mapTask(row model.NotificationTask) ports.NotificationTask {
	return ports.NotificationTask{
		TaskID:        row.TaskID,
		WinnerID:      row.WinnerID,
		GiftCodeID:    row.GiftCodeID,
		Status:        row.Status,
		RetryCount:    row.RetryCount,
		LastError:     row.LastError,
		LastAttemptAt: row.LastAttemptAt,
		MessageID:     row.MessageID,
		SentAt:        row.SentAt,
		CreatedAt:     row.CreatedAt,
	}
}

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
