// Package letter は手紙のライフサイクル（作成・返信・受信箱・通報）を提供する。
package letter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/penpal/internal/content"
	"github.com/hitoshi/penpal/internal/metrics"
	"github.com/hitoshi/penpal/internal/model"
	"github.com/hitoshi/penpal/internal/notify"
	"github.com/hitoshi/penpal/internal/quota"
	"github.com/hitoshi/penpal/internal/repository"
)

// DefaultReplyDelay は返信の配達遅延。即時配達による身元推測を防ぐ。
const DefaultReplyDelay = time.Hour

// RecipientSelector は宛先選定のインターフェース。
type RecipientSelector interface {
	SelectRecipient(ctx context.Context, sender *model.User) (*model.User, error)
}

// Service は手紙のライフサイクルを管理する。
type Service struct {
	letters    repository.LetterRepository
	users      repository.UserRepository
	selector   RecipientSelector
	filter     *content.Filter
	quota      *quota.Tracker
	notifier   notify.Notifier
	logger     *slog.Logger
	collector  metrics.MetricsCollector
	replyDelay time.Duration
	now        func() time.Time // テスト用に差し替え可能
}

// NewService はServiceの新しいインスタンスを生成する。
// replyDelayが0以下の場合はDefaultReplyDelayを使用する。
func NewService(
	letters repository.LetterRepository,
	users repository.UserRepository,
	selector RecipientSelector,
	filter *content.Filter,
	quotaTracker *quota.Tracker,
	notifier notify.Notifier,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
	replyDelay time.Duration,
) *Service {
	if replyDelay <= 0 {
		replyDelay = DefaultReplyDelay
	}
	return &Service{
		letters:    letters,
		users:      users,
		selector:   selector,
		filter:     filter,
		quota:      quotaTracker,
		notifier:   notifier,
		logger:     logger,
		collector:  collector,
		replyDelay: replyDelay,
		now:        time.Now,
	}
}

// Send は新規手紙を作成し、宛先を選定してpending状態で登録する。
// 新規手紙は即時配達の対象となり、送信枠を1消費する。
func (s *Service) Send(ctx context.Context, senderID int64, text string) (*model.Letter, error) {
	clean, err := s.filter.ValidateLetter(text)
	if err != nil {
		return nil, err
	}

	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("差出人の取得に失敗しました: %w", err)
	}
	if sender == nil {
		return nil, model.NewUserNotFoundError(senderID)
	}

	if !quota.CanSend(sender, s.quota.Limit(), s.now()) {
		return nil, model.NewQuotaExhaustedError(s.quota.Limit())
	}

	recipient, err := s.selector.SelectRecipient(ctx, sender)
	if err != nil {
		return nil, err
	}

	letter, err := s.createLetter(ctx, senderID, recipient.ID, clean, 0, "")
	if err != nil {
		return nil, err
	}

	if err := s.quota.Consume(ctx, senderID); err != nil {
		return nil, fmt.Errorf("送信枠の消費に失敗しました: %w", err)
	}

	s.logger.Info("新規手紙を作成しました",
		slog.String("letter_id", letter.ID),
		slog.Int64("sender_id", senderID),
		slog.Int64("recipient_id", recipient.ID),
	)

	return letter, nil
}

// Reply は受信した手紙への返信を作成する。
// 返信は送信枠を消費せず、配達は一定時間遅延させる。
// 返信の作成に成功した場合、元の手紙はアーカイブされる。
func (s *Service) Reply(ctx context.Context, senderID int64, parentID string, text string) (*model.Letter, error) {
	clean, err := s.filter.ValidateReply(text)
	if err != nil {
		return nil, err
	}

	parent, err := s.letters.FindByID(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("元の手紙の取得に失敗しました: %w", err)
	}
	if parent == nil {
		return nil, model.NewLetterNotFoundError(parentID)
	}

	letter, err := s.createLetter(ctx, senderID, parent.SenderID, clean, s.replyDelay, parentID)
	if err != nil {
		return nil, err
	}

	if err := s.letters.Archive(ctx, parentID); err != nil {
		return nil, fmt.Errorf("元の手紙のアーカイブに失敗しました: %w", err)
	}

	// 返信は上限の対象外だが、活動時刻としては記録する
	if err := s.quota.TouchActivity(ctx, senderID); err != nil {
		return nil, fmt.Errorf("活動時刻の更新に失敗しました: %w", err)
	}

	s.logger.Info("返信を作成しました",
		slog.String("letter_id", letter.ID),
		slog.String("parent_id", parentID),
		slog.Int64("sender_id", senderID),
		slog.Int64("recipient_id", parent.SenderID),
	)

	return letter, nil
}

// createLetter は手紙をpending状態で作成する。
// 匿名差出人名は宛先が受け取った配達済みの手紙数に基づく連番とする。
func (s *Service) createLetter(ctx context.Context, senderID, recipientID int64, text string, delay time.Duration, parentID string) (*model.Letter, error) {
	deliveredCount, err := s.letters.CountDelivered(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("匿名名の連番取得に失敗しました: %w", err)
	}

	now := s.now()
	letter := &model.Letter{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     text,
		Status:      model.LetterStatusPending,
		ParentID:    parentID,
		Nickname:    fmt.Sprintf("Анонім %d", deliveredCount+1),
		CreatedAt:   now,
		DeliverAt:   now.Add(delay),
	}

	if err := s.letters.Create(ctx, letter); err != nil {
		return nil, fmt.Errorf("手紙の作成に失敗しました: %w", err)
	}

	s.collector.RecordLetterCreated()

	return letter, nil
}

// MarkRead は手紙を既読にする。
func (s *Service) MarkRead(ctx context.Context, letterID string) error {
	return s.letters.MarkRead(ctx, letterID)
}

// Archive は手紙をアーカイブし、受信箱から取り除く。
func (s *Service) Archive(ctx context.Context, letterID string) error {
	return s.letters.Archive(ctx, letterID)
}

// ArchiveAll は受信箱の全手紙をアーカイブし、件数を返す。
func (s *Service) ArchiveAll(ctx context.Context, userID int64) (int64, error) {
	return s.letters.ArchiveAllDelivered(ctx, userID)
}

// RenameNickname は手紙の匿名差出人名を変更する。
// 空白のみの名前は拒否し、長すぎる名前は切り詰める。
func (s *Service) RenameNickname(ctx context.Context, letterID, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return model.NewInvalidNicknameError()
	}

	if runes := []rune(nickname); len(runes) > model.MaxNicknameLength {
		nickname = string(runes[:model.MaxNicknameLength])
	}

	updated, err := s.letters.UpdateNickname(ctx, letterID, nickname)
	if err != nil {
		return fmt.Errorf("ニックネームの更新に失敗しました: %w", err)
	}
	if !updated {
		return model.NewLetterNotFoundError(letterID)
	}
	return nil
}

// Report は手紙を通報し、全管理者に通知を送る。
// 管理者への通知失敗は通報自体を失敗にしない。
func (s *Service) Report(ctx context.Context, letterID string, reporterID int64) error {
	letter, err := s.letters.Report(ctx, letterID, reporterID)
	if err != nil {
		return fmt.Errorf("通報の登録に失敗しました: %w", err)
	}
	if letter == nil {
		return model.NewLetterNotFoundError(letterID)
	}

	s.logger.Info("手紙が通報されました",
		slog.String("letter_id", letterID),
		slog.Int64("reporter_id", reporterID),
		slog.Int64("reported_user_id", letter.SenderID),
	)

	adminIDs, err := s.users.ListAdminIDs(ctx)
	if err != nil {
		s.logger.Error("管理者一覧の取得に失敗しました", slog.String("error", err.Error()))
		return nil
	}

	for _, adminID := range adminIDs {
		if err := s.notifier.Send(ctx, adminID, "⚠️ Надійшла нова скарга на лист."); err != nil {
			s.logger.Error("管理者への通報通知に失敗しました",
				slog.Int64("admin_id", adminID),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// Inbox は受信箱の手紙をページ単位で返す。未読が先頭に並ぶ。
func (s *Service) Inbox(ctx context.Context, userID int64, page, pageSize int) ([]*model.Letter, int, error) {
	return s.letters.Inbox(ctx, userID, page, pageSize)
}

// DialogueHistory は2ユーザー間の配達済みの手紙を時系列でページ単位で返す。
func (s *Service) DialogueHistory(ctx context.Context, userID, otherID int64, page, pageSize int) ([]*model.Letter, int, error) {
	return s.letters.DialogueHistoryPage(ctx, userID, otherID, page, pageSize)
}

// Get は手紙を1通取得する。見つからない場合はnilを返す。
func (s *Service) Get(ctx context.Context, letterID string) (*model.Letter, error) {
	return s.letters.FindByID(ctx, letterID)
}

// Remaining は差出人の本日の残り送信可能数を返す。
func (s *Service) Remaining(ctx context.Context, userID int64) (int, error) {
	return s.quota.Remaining(ctx, userID)
}
