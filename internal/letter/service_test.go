package letter

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/penpal/internal/content"
	"github.com/hitoshi/penpal/internal/model"
	"github.com/hitoshi/penpal/internal/quota"
	"github.com/hitoshi/penpal/internal/repository"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// mockLetterRepo はLetterRepositoryのモック実装。
type mockLetterRepo struct {
	createFunc              func(ctx context.Context, letter *model.Letter) error
	findByIDFunc            func(ctx context.Context, id string) (*model.Letter, error)
	archiveFunc             func(ctx context.Context, id string) error
	archiveAllDeliveredFunc func(ctx context.Context, recipientID int64) (int64, error)
	updateNicknameFunc      func(ctx context.Context, id, nickname string) (bool, error)
	reportFunc              func(ctx context.Context, id string, reportedBy int64) (*model.Letter, error)
	countDeliveredFunc      func(ctx context.Context, recipientID int64) (int, error)
	markReadFunc            func(ctx context.Context, id string) error
}

var _ repository.LetterRepository = (*mockLetterRepo)(nil)

func (m *mockLetterRepo) Create(ctx context.Context, letter *model.Letter) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, letter)
	}
	return nil
}

func (m *mockLetterRepo) FindByID(ctx context.Context, id string) (*model.Letter, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockLetterRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*model.Letter, error) {
	return nil, nil
}

func (m *mockLetterRepo) MarkDelivered(ctx context.Context, id string) error { return nil }

func (m *mockLetterRepo) MarkFailed(ctx context.Context, id, reason string) error { return nil }

func (m *mockLetterRepo) MarkRead(ctx context.Context, id string) error {
	if m.markReadFunc != nil {
		return m.markReadFunc(ctx, id)
	}
	return nil
}

func (m *mockLetterRepo) Archive(ctx context.Context, id string) error {
	if m.archiveFunc != nil {
		return m.archiveFunc(ctx, id)
	}
	return nil
}

func (m *mockLetterRepo) ArchiveAllDelivered(ctx context.Context, recipientID int64) (int64, error) {
	if m.archiveAllDeliveredFunc != nil {
		return m.archiveAllDeliveredFunc(ctx, recipientID)
	}
	return 0, nil
}

func (m *mockLetterRepo) UpdateNickname(ctx context.Context, id, nickname string) (bool, error) {
	if m.updateNicknameFunc != nil {
		return m.updateNicknameFunc(ctx, id, nickname)
	}
	return false, nil
}

func (m *mockLetterRepo) Report(ctx context.Context, id string, reportedBy int64) (*model.Letter, error) {
	if m.reportFunc != nil {
		return m.reportFunc(ctx, id, reportedBy)
	}
	return nil, nil
}

func (m *mockLetterRepo) CloseReport(ctx context.Context, id string, adminID int64, resolution model.ReportResolution) error {
	return nil
}

func (m *mockLetterRepo) ListActiveReports(ctx context.Context) ([]*model.Letter, error) {
	return nil, nil
}

func (m *mockLetterRepo) CorrespondentIDs(ctx context.Context, userID int64) ([]int64, error) {
	return nil, nil
}

func (m *mockLetterRepo) CountDelivered(ctx context.Context, recipientID int64) (int, error) {
	if m.countDeliveredFunc != nil {
		return m.countDeliveredFunc(ctx, recipientID)
	}
	return 0, nil
}

func (m *mockLetterRepo) Inbox(ctx context.Context, userID int64, page, pageSize int) ([]*model.Letter, int, error) {
	return nil, 0, nil
}

func (m *mockLetterRepo) DialogueHistoryPage(ctx context.Context, userID, otherID int64, page, pageSize int) ([]*model.Letter, int, error) {
	return nil, 0, nil
}

func (m *mockLetterRepo) CountLetters(ctx context.Context) (int, int, error) { return 0, 0, nil }

func (m *mockLetterRepo) UserLetterCounts(ctx context.Context, userID int64) (int, int, error) {
	return 0, 0, nil
}

// mockUserRepo はUserRepositoryのモック実装。
type mockUserRepo struct {
	findByIDFunc     func(ctx context.Context, id int64) (*model.User, error)
	updateQuotaFunc  func(ctx context.Context, id int64, lastSent time.Time, count int) error
	touchFunc        func(ctx context.Context, id int64, at time.Time) error
	listAdminIDsFunc func(ctx context.Context) ([]int64, error)
}

var _ repository.UserRepository = (*mockUserRepo)(nil)

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) Exists(ctx context.Context, id int64) (bool, error) { return false, nil }

func (m *mockUserRepo) Upsert(ctx context.Context, id int64, hobbies []string, course string) error {
	return nil
}

func (m *mockUserRepo) Activate(ctx context.Context, id int64) error               { return nil }
func (m *mockUserRepo) Deactivate(ctx context.Context, id int64) error             { return nil }
func (m *mockUserRepo) SetAdmin(ctx context.Context, id int64, isAdmin bool) error { return nil }
func (m *mockUserRepo) IsAdmin(ctx context.Context, id int64) (bool, error)        { return false, nil }

func (m *mockUserRepo) ListAdminIDs(ctx context.Context) ([]int64, error) {
	if m.listAdminIDsFunc != nil {
		return m.listAdminIDsFunc(ctx)
	}
	return nil, nil
}

func (m *mockUserRepo) ListActiveIDs(ctx context.Context) ([]int64, error) { return nil, nil }

func (m *mockUserRepo) SetFilterCourse(ctx context.Context, id int64, enabled bool) error {
	return nil
}

func (m *mockUserRepo) UpdateQuota(ctx context.Context, id int64, lastSent time.Time, count int) error {
	if m.updateQuotaFunc != nil {
		return m.updateQuotaFunc(ctx, id, lastSent, count)
	}
	return nil
}

func (m *mockUserRepo) TouchLastLetterSent(ctx context.Context, id int64, at time.Time) error {
	if m.touchFunc != nil {
		return m.touchFunc(ctx, id, at)
	}
	return nil
}

func (m *mockUserRepo) IncrementWarnings(ctx context.Context, id int64) (int, error) { return 0, nil }

func (m *mockUserRepo) TopHobbyMatches(ctx context.Context, excluded []int64, hobbies []string, course string, limit int) ([]*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) SampleActive(ctx context.Context, excluded []int64, course string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) CountUsers(ctx context.Context) (int, int, error) { return 0, 0, nil }

// mockSelector はRecipientSelectorのモック実装。
type mockSelector struct {
	selectFunc func(ctx context.Context, sender *model.User) (*model.User, error)
}

func (m *mockSelector) SelectRecipient(ctx context.Context, sender *model.User) (*model.User, error) {
	if m.selectFunc != nil {
		return m.selectFunc(ctx, sender)
	}
	return nil, model.NewNoRecipientError()
}

// mockNotifier はNotifierのモック実装。
type mockNotifier struct {
	sendFunc func(ctx context.Context, userID int64, text string) error
	sentTo   []int64
}

func (m *mockNotifier) Send(ctx context.Context, userID int64, text string) error {
	m.sentTo = append(m.sentTo, userID)
	if m.sendFunc != nil {
		return m.sendFunc(ctx, userID, text)
	}
	return nil
}

// mockCollector はMetricsCollectorの何もしない実装。
type mockCollector struct {
	created int
}

func (m *mockCollector) RecordDispatchRun(batchSize int)          {}
func (m *mockCollector) RecordDispatchSkipped()                   {}
func (m *mockCollector) RecordLetterDelivered()                   {}
func (m *mockCollector) RecordLetterFailed(reason string)         {}
func (m *mockCollector) RecordLetterCreated()                     { m.created++ }
func (m *mockCollector) RecordSendLatency(duration time.Duration) {}

var testNow = time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

func activeSender(id int64) *model.User {
	return &model.User{
		ID:       id,
		Hobbies:  []string{"музика", "книги"},
		IsActive: true,
	}
}

type serviceDeps struct {
	letters   *mockLetterRepo
	users     *mockUserRepo
	selector  *mockSelector
	notifier  *mockNotifier
	collector *mockCollector
}

func newTestService(t *testing.T, deps serviceDeps) *Service {
	t.Helper()
	if deps.letters == nil {
		deps.letters = &mockLetterRepo{}
	}
	if deps.users == nil {
		deps.users = &mockUserRepo{}
	}
	if deps.selector == nil {
		deps.selector = &mockSelector{}
	}
	if deps.notifier == nil {
		deps.notifier = &mockNotifier{}
	}
	if deps.collector == nil {
		deps.collector = &mockCollector{}
	}

	tracker := quota.NewTracker(deps.users, 3)
	tracker.SetNowFunc(func() time.Time { return testNow })

	var buf bytes.Buffer
	svc := NewService(
		deps.letters,
		deps.users,
		deps.selector,
		content.NewFilter(),
		tracker,
		deps.notifier,
		newTestLogger(&buf),
		deps.collector,
		time.Hour,
	)
	svc.now = func() time.Time { return testNow }
	return svc
}

func assertBotErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var botErr *model.BotError
	if !errors.As(err, &botErr) {
		t.Fatalf("expected *model.BotError, got %T: %v", err, err)
	}
	if botErr.Code != code {
		t.Errorf("error code = %q, want %q", botErr.Code, code)
	}
}

const validBody = "Привіт! Це мій перший лист до тебе. Як справи?"

func TestSend_CreatesPendingLetterWithImmediateDelivery(t *testing.T) {
	var created *model.Letter
	letters := &mockLetterRepo{
		createFunc: func(ctx context.Context, l *model.Letter) error {
			created = l
			return nil
		},
		countDeliveredFunc: func(ctx context.Context, recipientID int64) (int, error) {
			return 4, nil
		},
	}
	users := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id int64) (*model.User, error) {
			return activeSender(id), nil
		},
	}
	selector := &mockSelector{
		selectFunc: func(ctx context.Context, sender *model.User) (*model.User, error) {
			return &model.User{ID: 200, IsActive: true}, nil
		},
	}
	collector := &mockCollector{}

	svc := newTestService(t, serviceDeps{letters: letters, users: users, selector: selector, collector: collector})

	got, err := svc.Send(context.Background(), 100, validBody)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created == nil {
		t.Fatal("手紙が作成されるべき")
	}
	if created.ID == "" {
		t.Error("IDが付与されるべき")
	}
	if created.Status != model.LetterStatusPending {
		t.Errorf("status = %q, want pending", created.Status)
	}
	if created.SenderID != 100 || created.RecipientID != 200 {
		t.Errorf("sender/recipient = %d/%d, want 100/200", created.SenderID, created.RecipientID)
	}
	if !created.DeliverAt.Equal(testNow) {
		t.Errorf("新規手紙は即時配達対象のはず: deliver_at = %v, want %v", created.DeliverAt, testNow)
	}
	if created.Nickname != "Анонім 5" {
		t.Errorf("nickname = %q, want %q", created.Nickname, "Анонім 5")
	}
	if created.ParentID != "" {
		t.Errorf("新規手紙にparent_idは付かない: %q", created.ParentID)
	}
	if got.ID != created.ID {
		t.Error("作成された手紙が返るべき")
	}
	if collector.created != 1 {
		t.Errorf("created metric = %d, want 1", collector.created)
	}
}

func TestSend_ConsumesQuota(t *testing.T) {
	lastSent := testNow.Add(-time.Hour)
	var gotCount int
	users := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id int64) (*model.User, error) {
			u := activeSender(id)
			u.LastLetterSent = &lastSent
			u.DailyLettersCount = 1
			return u, nil
		},
		updateQuotaFunc: func(ctx context.Context, id int64, ls time.Time, count int) error {
			gotCount = count
			return nil
		},
	}
	selector := &mockSelector{
		selectFunc: func(ctx context.Context, sender *model.User) (*model.User, error) {
			return &model.User{ID: 200}, nil
		},
	}

	svc := newTestService(t, serviceDeps{users: users, selector: selector})

	if _, err := svc.Send(context.Background(), 100, validBody); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCount != 2 {
		t.Errorf("quota count = %d, want 2", gotCount)
	}
}

func TestSend_QuotaExhausted_ReturnsError(t *testing.T) {
	lastSent := testNow.Add(-time.Hour)
	users := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id int64) (*model.User, error) {
			u := activeSender(id)
			u.LastLetterSent = &lastSent
			u.DailyLettersCount = 3
			return u, nil
		},
	}

	svc := newTestService(t, serviceDeps{users: users})

	_, err := svc.Send(context.Background(), 100, validBody)
	assertBotErrorCode(t, err, model.ErrCodeQuotaExhausted)
}

func TestSend_QuotaExpiresAtMidnight(t *testing.T) {
	// 前日に上限到達していても、日付が変われば送信できる
	lastSent := testNow.AddDate(0, 0, -1)
	var gotCount int
	users := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id int64) (*model.User, error) {
			u := activeSender(id)
			u.LastLetterSent = &lastSent
			u.DailyLettersCount = 3
			return u, nil
		},
		updateQuotaFunc: func(ctx context.Context, id int64, ls time.Time, count int) error {
			gotCount = count
			return nil
		},
	}
	selector := &mockSelector{
		selectFunc: func(ctx context.Context, sender *model.User) (*model.User, error) {
			return &model.User{ID: 200}, nil
		},
	}

	svc := newTestService(t, serviceDeps{users: users, selector: selector})

	if _, err := svc.Send(context.Background(), 100, validBody); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCount != 1 {
		t.Errorf("quota count = %d, want 1（日付が変わったため1から）", gotCount)
	}
}

func TestSend_InvalidContent_RejectedBeforeMatching(t *testing.T) {
	selectorCalled := false
	selector := &mockSelector{
		selectFunc: func(ctx context.Context, sender *model.User) (*model.User, error) {
			selectorCalled = true
			return &model.User{ID: 200}, nil
		},
	}
	users := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id int64) (*model.User, error) {
			return activeSender(id), nil
		},
	}

	svc := newTestService(t, serviceDeps{users: users, selector: selector})

	_, err := svc.Send(context.Background(), 100, "короткий")
	assertBotErrorCode(t, err, model.ErrCodeContentTooShort)
	if selectorCalled {
		t.Error("本文検証に失敗した場合は宛先選定を行わない")
	}
}

func TestSend_UnknownSender_ReturnsError(t *testing.T) {
	svc := newTestService(t, serviceDeps{})

	_, err := svc.Send(context.Background(), 999, validBody)
	assertBotErrorCode(t, err, model.ErrCodeUserNotFound)
}

func TestSend_NoRecipient_PropagatesSelectorError(t *testing.T) {
	users := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id int64) (*model.User, error) {
			return activeSender(id), nil
		},
	}

	svc := newTestService(t, serviceDeps{users: users})

	_, err := svc.Send(context.Background(), 100, validBody)
	assertBotErrorCode(t, err, model.ErrCodeNoRecipient)
}

func TestReply_CreatesDelayedLetterAndArchivesOriginal(t *testing.T) {
	parent := &model.Letter{
		ID:          "2d3a17c1-84f4-4f1c-9b7d-111111111111",
		SenderID:    200,
		RecipientID: 100,
		Status:      model.LetterStatusDelivered,
	}

	var created *model.Letter
	var archivedID string
	letters := &mockLetterRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Letter, error) {
			if id == parent.ID {
				return parent, nil
			}
			return nil, nil
		},
		createFunc: func(ctx context.Context, l *model.Letter) error {
			created = l
			return nil
		},
		archiveFunc: func(ctx context.Context, id string) error {
			archivedID = id
			return nil
		},
	}

	var touched bool
	var quotaConsumed bool
	users := &mockUserRepo{
		touchFunc: func(ctx context.Context, id int64, at time.Time) error {
			touched = true
			return nil
		},
		updateQuotaFunc: func(ctx context.Context, id int64, ls time.Time, count int) error {
			quotaConsumed = true
			return nil
		},
	}

	svc := newTestService(t, serviceDeps{letters: letters, users: users})

	got, err := svc.Reply(context.Background(), 100, parent.ID, "дякую за листа!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created == nil {
		t.Fatal("返信が作成されるべき")
	}
	if created.RecipientID != 200 {
		t.Errorf("返信の宛先は元の差出人のはず: %d, want 200", created.RecipientID)
	}
	if created.ParentID != parent.ID {
		t.Errorf("parent_id = %q, want %q", created.ParentID, parent.ID)
	}
	wantDeliverAt := testNow.Add(time.Hour)
	if !created.DeliverAt.Equal(wantDeliverAt) {
		t.Errorf("deliver_at = %v, want %v（1時間遅延）", created.DeliverAt, wantDeliverAt)
	}
	if archivedID != parent.ID {
		t.Errorf("元の手紙がアーカイブされるべき: %q", archivedID)
	}
	if !touched {
		t.Error("活動時刻が更新されるべき")
	}
	if quotaConsumed {
		t.Error("返信は送信枠を消費してはならない")
	}
	if got.ID != created.ID {
		t.Error("作成された返信が返るべき")
	}
}

func TestReply_ShortReplyAllowed(t *testing.T) {
	parent := &model.Letter{ID: "2d3a17c1-84f4-4f1c-9b7d-111111111111", SenderID: 200}
	letters := &mockLetterRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Letter, error) {
			return parent, nil
		},
	}

	svc := newTestService(t, serviceDeps{letters: letters})

	if _, err := svc.Reply(context.Background(), 100, parent.ID, "ок"); err != nil {
		t.Fatalf("2文字の返信は許可されるべき: %v", err)
	}
}

func TestReply_QuotaExhaustedSenderCanStillReply(t *testing.T) {
	// 上限到達済みでも返信は可能
	lastSent := testNow.Add(-time.Hour)
	parent := &model.Letter{ID: "2d3a17c1-84f4-4f1c-9b7d-111111111111", SenderID: 200}
	letters := &mockLetterRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Letter, error) {
			return parent, nil
		},
	}
	users := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id int64) (*model.User, error) {
			u := activeSender(id)
			u.LastLetterSent = &lastSent
			u.DailyLettersCount = 3
			return u, nil
		},
	}

	svc := newTestService(t, serviceDeps{letters: letters, users: users})

	if _, err := svc.Reply(context.Background(), 100, parent.ID, "дякую!"); err != nil {
		t.Fatalf("返信は上限の対象外のはず: %v", err)
	}
}

func TestReply_ParentNotFound_ReturnsError(t *testing.T) {
	svc := newTestService(t, serviceDeps{})

	_, err := svc.Reply(context.Background(), 100, "2d3a17c1-84f4-4f1c-9b7d-999999999999", "дякую!")
	assertBotErrorCode(t, err, model.ErrCodeLetterNotFound)
}

func TestRenameNickname(t *testing.T) {
	t.Run("ニックネームを変更できる", func(t *testing.T) {
		var gotNickname string
		letters := &mockLetterRepo{
			updateNicknameFunc: func(ctx context.Context, id, nickname string) (bool, error) {
				gotNickname = nickname
				return true, nil
			},
		}

		svc := newTestService(t, serviceDeps{letters: letters})

		if err := svc.RenameNickname(context.Background(), "letter-1", "  Таємний друг  "); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotNickname != "Таємний друг" {
			t.Errorf("nickname = %q, want %q", gotNickname, "Таємний друг")
		}
	})

	t.Run("空白のみは拒否", func(t *testing.T) {
		svc := newTestService(t, serviceDeps{})

		err := svc.RenameNickname(context.Background(), "letter-1", "   ")
		assertBotErrorCode(t, err, model.ErrCodeInvalidNickname)
	})

	t.Run("長すぎる名前は切り詰める", func(t *testing.T) {
		var gotNickname string
		letters := &mockLetterRepo{
			updateNicknameFunc: func(ctx context.Context, id, nickname string) (bool, error) {
				gotNickname = nickname
				return true, nil
			},
		}

		svc := newTestService(t, serviceDeps{letters: letters})

		long := strings.Repeat("а", 40)
		if err := svc.RenameNickname(context.Background(), "letter-1", long); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := len([]rune(gotNickname)); got != model.MaxNicknameLength {
			t.Errorf("nickname length = %d, want %d", got, model.MaxNicknameLength)
		}
	})

	t.Run("更新されなかった場合はエラー", func(t *testing.T) {
		svc := newTestService(t, serviceDeps{})

		err := svc.RenameNickname(context.Background(), "missing", "Друг")
		assertBotErrorCode(t, err, model.ErrCodeLetterNotFound)
	})
}

func TestReport_NotifiesAllAdmins(t *testing.T) {
	letters := &mockLetterRepo{
		reportFunc: func(ctx context.Context, id string, reportedBy int64) (*model.Letter, error) {
			return &model.Letter{ID: id, SenderID: 200}, nil
		},
	}
	users := &mockUserRepo{
		listAdminIDsFunc: func(ctx context.Context) ([]int64, error) {
			return []int64{901, 902}, nil
		},
	}
	notifier := &mockNotifier{}

	svc := newTestService(t, serviceDeps{letters: letters, users: users, notifier: notifier})

	if err := svc.Report(context.Background(), "letter-1", 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notifier.sentTo) != 2 {
		t.Fatalf("通知先 = %v, want 2件", notifier.sentTo)
	}
}

func TestReport_AdminNotifyFailure_DoesNotFailReport(t *testing.T) {
	letters := &mockLetterRepo{
		reportFunc: func(ctx context.Context, id string, reportedBy int64) (*model.Letter, error) {
			return &model.Letter{ID: id, SenderID: 200}, nil
		},
	}
	users := &mockUserRepo{
		listAdminIDsFunc: func(ctx context.Context) ([]int64, error) {
			return []int64{901}, nil
		},
	}
	notifier := &mockNotifier{
		sendFunc: func(ctx context.Context, userID int64, text string) error {
			return errors.New("network down")
		},
	}

	svc := newTestService(t, serviceDeps{letters: letters, users: users, notifier: notifier})

	if err := svc.Report(context.Background(), "letter-1", 100); err != nil {
		t.Fatalf("管理者通知の失敗は通報を失敗にしない: %v", err)
	}
}

func TestReport_LetterNotFound_ReturnsError(t *testing.T) {
	svc := newTestService(t, serviceDeps{})

	err := svc.Report(context.Background(), "missing", 100)
	assertBotErrorCode(t, err, model.ErrCodeLetterNotFound)
}

func TestArchiveAll_ReturnsCount(t *testing.T) {
	letters := &mockLetterRepo{
		archiveAllDeliveredFunc: func(ctx context.Context, recipientID int64) (int64, error) {
			return 7, nil
		},
	}

	svc := newTestService(t, serviceDeps{letters: letters})

	count, err := svc.ArchiveAll(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 7 {
		t.Errorf("count = %d, want 7", count)
	}
}
