package giveaway

import (
	"context"
	"errors"
	"strings"
	"testing"

	domaingiveaway "superlot/internal/domain/giveaway"
	"superlot/internal/ports"
)

// drawOneWinner seeds a candidate and a code, draws, and returns the winner.
func drawOneWinner(t *testing.T, h *testHarness, handle, code string) WinnerResult {
	t.Helper()
	h.seedCandidate(t, handle)
	h.seedGiftCode(t, code)

	winners, err := h.svc.DrawWinners(context.Background(), 1)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	return winners[0]
}

func TestQueueNotificationIdempotent(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()
	winner := drawOneWinner(t, h, "alice", "CODE-1")

	first, err := h.svc.QueueNotification(ctx, winner.WinnerID)
	if err != nil {
		t.Fatalf("QueueNotification() error = %v", err)
	}
	if first.Status != string(domaingiveaway.TaskPending) {
		t.Fatalf("status = %s, want PENDING", first.Status)
	}

	second, err := h.svc.QueueNotification(ctx, winner.WinnerID)
	if err != nil {
		t.Fatalf("second QueueNotification() error = %v", err)
	}
	if second.TaskID != first.TaskID {
		t.Fatalf("second queue made task %d, want existing %d", second.TaskID, first.TaskID)
	}
}

func TestQueueNotificationUnknownWinner(t *testing.T) {
	h := setupHarness(t)

	_, err := h.svc.QueueNotification(context.Background(), 9999)
	if !errors.Is(err, domaingiveaway.ErrWinnerNotFound) {
		t.Fatalf("error = %v, want ErrWinnerNotFound", err)
	}
}

func TestProcessNotificationSuccess(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()
	winner := drawOneWinner(t, h, "alice", "SECRET-CODE-1")

	queued, err := h.svc.QueueNotification(ctx, winner.WinnerID)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}

	task, err := h.svc.ProcessNotification(ctx, queued.TaskID)
	if err != nil {
		t.Fatalf("ProcessNotification() error = %v", err)
	}
	if task.Status != string(domaingiveaway.TaskSent) {
		t.Fatalf("task status = %s, want SENT", task.Status)
	}
	if task.MessageID == "" || task.SentAt == nil {
		t.Fatalf("task missing delivery evidence: %+v", task)
	}

	detail, err := h.repo.GetWinnerByID(ctx, winner.WinnerID)
	if err != nil {
		t.Fatalf("load winner: %v", err)
	}
	if detail.Status != string(domaingiveaway.WinnerSent) {
		t.Fatalf("winner status = %s, want SENT", detail.Status)
	}
	if detail.NotifiedAt == nil || detail.MessageID != task.MessageID {
		t.Fatalf("winner delivery fields = %+v", detail.Winner)
	}

	// The delivered text carries the decrypted code, not the ciphertext.
	sent := h.messenger.sentTo("alice")
	if len(sent) != 1 {
		t.Fatalf("sent messages = %d, want 1", len(sent))
	}
	if !strings.Contains(sent[0].Text, "SECRET-CODE-1") {
		t.Fatalf("message does not contain the plaintext code: %q", sent[0].Text)
	}
	if strings.Contains(sent[0].Text, detail.EncryptedCode) {
		t.Fatal("message leaks the encrypted payload")
	}
}

func TestProcessNotificationRetriesThenSucceeds(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()
	winner := drawOneWinner(t, h, "alice", "CODE-1")
	h.messenger.failFor["alice"] = 1

	queued, err := h.svc.QueueNotification(ctx, winner.WinnerID)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}

	if _, err := h.svc.ProcessNotification(ctx, queued.TaskID); !errors.Is(err, domaingiveaway.ErrSendFailed) {
		t.Fatalf("first attempt error = %v, want ErrSendFailed", err)
	}

	task, err := h.repo.GetNotificationTask(ctx, queued.TaskID)
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.Status != string(domaingiveaway.TaskRetrying) || task.RetryCount != 1 {
		t.Fatalf("task after one failure = %+v, want RETRYING retry=1", task)
	}
	if task.LastError == "" {
		t.Fatal("failure reason not recorded")
	}

	// Winner stays PENDING while retries remain.
	detail, err := h.repo.GetWinnerByID(ctx, winner.WinnerID)
	if err != nil {
		t.Fatalf("load winner: %v", err)
	}
	if detail.Status != string(domaingiveaway.WinnerPending) {
		t.Fatalf("winner status = %s, want PENDING", detail.Status)
	}

	result, err := h.svc.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed() error = %v", err)
	}
	if result.Sent != 1 || result.Failed != 0 {
		t.Fatalf("retry sweep = %+v, want one sent", result)
	}

	task, err = h.repo.GetNotificationTask(ctx, queued.TaskID)
	if err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if task.Status != string(domaingiveaway.TaskSent) || task.RetryCount != 1 {
		t.Fatalf("task after retry = %+v, want SENT retry=1", task)
	}
}

func TestProcessNotificationFailsPermanently(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()
	winner := drawOneWinner(t, h, "alice", "CODE-1")
	h.messenger.failAll = true

	queued, err := h.svc.QueueNotification(ctx, winner.WinnerID)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}

	// Three attempts exhaust the default budget.
	for attempt := 0; attempt < 3; attempt++ {
		if _, err := h.svc.ProcessNotification(ctx, queued.TaskID); !errors.Is(err, domaingiveaway.ErrSendFailed) {
			t.Fatalf("attempt %d error = %v, want ErrSendFailed", attempt+1, err)
		}
	}

	task, err := h.repo.GetNotificationTask(ctx, queued.TaskID)
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.Status != string(domaingiveaway.TaskFailed) || task.RetryCount != 3 {
		t.Fatalf("task = %+v, want FAILED retry=3", task)
	}

	// Task and winner landed on FAILED together.
	detail, err := h.repo.GetWinnerByID(ctx, winner.WinnerID)
	if err != nil {
		t.Fatalf("load winner: %v", err)
	}
	if detail.Status != string(domaingiveaway.WinnerFailed) {
		t.Fatalf("winner status = %s, want FAILED", detail.Status)
	}

	// A fourth attempt is refused outright.
	if _, err := h.svc.ProcessNotification(ctx, queued.TaskID); !errors.Is(err, domaingiveaway.ErrSendFailed) {
		t.Fatalf("exhausted task error = %v, want ErrSendFailed", err)
	}
	reloaded, err := h.repo.GetNotificationTask(ctx, queued.TaskID)
	if err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if reloaded.RetryCount != 3 {
		t.Fatalf("refused attempt advanced the counter to %d", reloaded.RetryCount)
	}
}

func TestProcessNotificationCommitFailureRetriesDelivery(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()
	winner := drawOneWinner(t, h, "alice", "CODE-1")
	svc, flaky := h.withFlakyUOW(DefaultSettings())

	queued, err := svc.QueueNotification(ctx, winner.WinnerID)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}

	// The send succeeds but the SENT commit does not. That must count as a
	// failed attempt, not strand the task in SENDING with the code gone.
	flaky.failNextTx(1)
	if _, err := svc.ProcessNotification(ctx, queued.TaskID); !errors.Is(err, domaingiveaway.ErrSendFailed) {
		t.Fatalf("commit-failure attempt error = %v, want ErrSendFailed", err)
	}
	if got := len(h.messenger.sentTo("alice")); got != 1 {
		t.Fatalf("messages after failed commit = %d, want 1", got)
	}

	task, err := h.repo.GetNotificationTask(ctx, queued.TaskID)
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	if task.Status != string(domaingiveaway.TaskRetrying) || task.RetryCount != 1 {
		t.Fatalf("task after commit failure = %+v, want RETRYING retry=1", task)
	}
	if !strings.Contains(task.LastError, "commit sent state") {
		t.Fatalf("failure reason = %q", task.LastError)
	}

	// The retry sweep re-sends and commits; the winner may see the message
	// twice but the reward is delivered.
	result, err := svc.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed() error = %v", err)
	}
	if result.Sent != 1 {
		t.Fatalf("retry sweep = %+v, want one sent", result)
	}

	task, err = h.repo.GetNotificationTask(ctx, queued.TaskID)
	if err != nil {
		t.Fatalf("reload task: %v", err)
	}
	if task.Status != string(domaingiveaway.TaskSent) {
		t.Fatalf("task after retry = %+v, want SENT", task)
	}
	detail, err := h.repo.GetWinnerByID(ctx, winner.WinnerID)
	if err != nil {
		t.Fatalf("load winner: %v", err)
	}
	if detail.Status != string(domaingiveaway.WinnerSent) {
		t.Fatalf("winner status = %s, want SENT", detail.Status)
	}
	if got := len(h.messenger.sentTo("alice")); got != 2 {
		t.Fatalf("messages after retry = %d, want the accepted duplicate", got)
	}
}

func TestProcessPendingStoreErrorDoesNotAbortBatch(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()

	h.seedCandidate(t, "alice")
	h.seedCandidate(t, "bob")
	h.seedGiftCode(t, "CODE-1")
	h.seedGiftCode(t, "CODE-2")

	// One attempt per task and serial processing: the first task's send
	// failure drives the FAILED commit through the unit of work, which is
	// rigged to abort. That store-side error must settle as one failed
	// outcome, not cancel the sibling mid-sweep.
	settings := DefaultSettings()
	settings.MaxRetries = 1
	settings.MaxConcurrent = 1
	svc, flaky := h.withFlakyUOW(settings)

	winners, err := h.svc.DrawWinners(ctx, 2)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	tasks := make([]ports.NotificationTask, 0, len(winners))
	for _, winner := range winners {
		task, err := svc.QueueNotification(ctx, winner.WinnerID)
		if err != nil {
			t.Fatalf("queue %d: %v", winner.WinnerID, err)
		}
		tasks = append(tasks, task)
	}

	h.messenger.failFor[winners[0].Handle] = 1
	flaky.failNextTx(1)

	result, err := svc.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if result.Processed != 2 || result.Sent != 1 || result.Failed != 1 {
		t.Fatalf("sweep = %+v, want processed=2 sent=1 failed=1", result)
	}

	survivor, err := h.repo.GetNotificationTask(ctx, tasks[1].TaskID)
	if err != nil {
		t.Fatalf("load surviving task: %v", err)
	}
	if survivor.Status != string(domaingiveaway.TaskSent) {
		t.Fatalf("surviving task = %+v, want SENT", survivor)
	}
	if got := len(h.messenger.sentTo(winners[1].Handle)); got != 1 {
		t.Fatalf("sibling got %d messages, want 1", got)
	}
}

func TestProcessPendingBatchIsolation(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()

	h.seedCandidate(t, "alice")
	h.seedCandidate(t, "bob")
	h.seedGiftCode(t, "CODE-1")
	h.seedGiftCode(t, "CODE-2")

	winners, err := h.svc.DrawWinners(ctx, 2)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	for _, winner := range winners {
		if _, err := h.svc.QueueNotification(ctx, winner.WinnerID); err != nil {
			t.Fatalf("queue %d: %v", winner.WinnerID, err)
		}
	}

	// One recipient keeps failing; the other must still be delivered.
	h.messenger.failFor[winners[0].Handle] = 10

	result, err := h.svc.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if result.Processed != 2 || result.Sent != 1 || result.Failed != 1 {
		t.Fatalf("sweep = %+v, want processed=2 sent=1 failed=1", result)
	}

	delivered := h.messenger.sentTo(winners[1].Handle)
	if len(delivered) != 1 {
		t.Fatalf("healthy recipient got %d messages, want 1", len(delivered))
	}
}

func TestRearmNotification(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()
	winner := drawOneWinner(t, h, "alice", "CODE-1")
	h.messenger.failAll = true

	queued, err := h.svc.QueueNotification(ctx, winner.WinnerID)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	for attempt := 0; attempt < 3; attempt++ {
		_, _ = h.svc.ProcessNotification(ctx, queued.TaskID)
	}

	// Re-arm before the task is FAILED is refused.
	h.messenger.failAll = false
	task, err := h.svc.RearmNotification(ctx, queued.TaskID)
	if err != nil {
		t.Fatalf("RearmNotification() error = %v", err)
	}
	if task.Status != string(domaingiveaway.TaskSent) {
		t.Fatalf("task after rearm = %+v, want SENT", task)
	}

	detail, err := h.repo.GetWinnerByID(ctx, winner.WinnerID)
	if err != nil {
		t.Fatalf("load winner: %v", err)
	}
	if detail.Status != string(domaingiveaway.WinnerSent) {
		t.Fatalf("winner status = %s, want SENT after rearm", detail.Status)
	}
}

func TestRearmNotificationRefusesNonFailed(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()
	winner := drawOneWinner(t, h, "alice", "CODE-1")

	queued, err := h.svc.QueueNotification(ctx, winner.WinnerID)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if _, err := h.svc.RearmNotification(ctx, queued.TaskID); err == nil {
		t.Fatal("re-arm of a PENDING task must be refused")
	}
}

func TestNotificationStatusPrefersWarmCache(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()
	winner := drawOneWinner(t, h, "alice", "CODE-1")

	queued, err := h.svc.QueueNotification(ctx, winner.WinnerID)
	if err != nil {
		t.Fatalf("queue: %v", err)
	}

	if err := h.cache.Set(ctx, cacheTaskStatusKey(queued.TaskID), string(domaingiveaway.TaskSending), 0); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	task, err := h.svc.NotificationStatus(ctx, queued.TaskID)
	if err != nil {
		t.Fatalf("NotificationStatus() error = %v", err)
	}
	if task.Status != string(domaingiveaway.TaskSending) {
		t.Fatalf("status = %s, want the cached SENDING", task.Status)
	}

	// Garbage in the cache falls back to the stored status.
	if err := h.cache.Set(ctx, cacheTaskStatusKey(queued.TaskID), "NONSENSE", 0); err != nil {
		t.Fatalf("poison cache: %v", err)
	}
	task, err = h.svc.NotificationStatus(ctx, queued.TaskID)
	if err != nil {
		t.Fatalf("NotificationStatus() error = %v", err)
	}
	if task.Status != string(domaingiveaway.TaskPending) {
		t.Fatalf("status = %s, want the stored PENDING", task.Status)
	}
}
