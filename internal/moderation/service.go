// Package moderation は通報の処理・警告・BAN・一斉送信などの管理機能を提供する。
package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/hitoshi/penpal/internal/model"
	"github.com/hitoshi/penpal/internal/notify"
	"github.com/hitoshi/penpal/internal/repository"
)

// WarnThreshold は自動BANの警告回数の閾値。
const WarnThreshold = 3

// defaultBroadcastRate は一斉送信の既定レート（メッセージ/秒）。
const defaultBroadcastRate = 20.0

// BroadcastResult は一斉送信の結果を表す。
type BroadcastResult struct {
	Sent    int // 送信成功数
	Blocked int // 送信失敗数（ブロック等）
}

// Service は管理操作を提供する。
type Service struct {
	users    repository.UserRepository
	letters  repository.LetterRepository
	notifier notify.Notifier
	logger   *slog.Logger
	limiter  *rate.Limiter
}

// NewService はServiceの新しいインスタンスを生成する。
// broadcastRateが0以下の場合は既定レートを使用する。
func NewService(
	users repository.UserRepository,
	letters repository.LetterRepository,
	notifier notify.Notifier,
	logger *slog.Logger,
	broadcastRate float64,
) *Service {
	if broadcastRate <= 0 {
		broadcastRate = defaultBroadcastRate
	}
	return &Service{
		users:    users,
		letters:  letters,
		notifier: notifier,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Limit(broadcastRate), 1),
	}
}

// Ban はユーザーを無効化する。管理者はBANできない。
func (s *Service) Ban(ctx context.Context, userID int64) error {
	isAdmin, err := s.users.IsAdmin(ctx, userID)
	if err != nil {
		return fmt.Errorf("管理者確認に失敗しました: %w", err)
	}
	if isAdmin {
		return model.NewAdminProtectedError(userID)
	}

	if err := s.users.Deactivate(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの無効化に失敗しました: %w", err)
	}

	s.logger.Info("ユーザーをBANしました", slog.Int64("user_id", userID))
	return nil
}

// Unban はユーザーを再有効化する。
func (s *Service) Unban(ctx context.Context, userID int64) error {
	if err := s.users.Activate(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの有効化に失敗しました: %w", err)
	}

	s.logger.Info("ユーザーのBANを解除しました", slog.Int64("user_id", userID))
	return nil
}

// SetAdmin は管理者フラグを設定する。
func (s *Service) SetAdmin(ctx context.Context, userID int64, isAdmin bool) error {
	return s.users.SetAdmin(ctx, userID, isAdmin)
}

// IsAdmin は指定ユーザーが管理者かを返す。
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	return s.users.IsAdmin(ctx, userID)
}

// ListActiveReports は未処理の通報を返す。
func (s *Service) ListActiveReports(ctx context.Context) ([]*model.Letter, error) {
	return s.letters.ListActiveReports(ctx)
}

// Resolve は通報を処理する。
//   - dismissed: 通報を却下する
//   - banned:    差出人を即時BANする（管理者は保護される）
//   - warned:    差出人に警告を与える。3回目の警告で自動BANとなり、
//     処理区分はbanned_by_warnsとして記録される
//
// 処理対象のユーザーへの通知失敗は処理自体を失敗にしない。
func (s *Service) Resolve(ctx context.Context, letterID string, adminID int64, resolution model.ReportResolution) error {
	letter, err := s.letters.FindByID(ctx, letterID)
	if err != nil {
		return fmt.Errorf("通報対象の手紙の取得に失敗しました: %w", err)
	}
	if letter == nil {
		return model.NewLetterNotFoundError(letterID)
	}

	targetID := letter.SenderID

	switch resolution {
	case model.ResolutionDismissed:
		return s.closeReport(ctx, letterID, adminID, model.ResolutionDismissed)

	case model.ResolutionBanned:
		if err := s.Ban(ctx, targetID); err != nil {
			return err
		}
		return s.closeReport(ctx, letterID, adminID, model.ResolutionBanned)

	case model.ResolutionWarned:
		warnings, err := s.users.IncrementWarnings(ctx, targetID)
		if err != nil {
			return fmt.Errorf("警告回数の更新に失敗しました: %w", err)
		}

		if warnings >= WarnThreshold {
			if err := s.users.Deactivate(ctx, targetID); err != nil {
				return fmt.Errorf("ユーザーの無効化に失敗しました: %w", err)
			}
			if err := s.closeReport(ctx, letterID, adminID, model.ResolutionBannedByWarns); err != nil {
				return err
			}
			s.notifyBestEffort(ctx, targetID, "🚫 Ви отримали 3-тє попередження і були заблоковані.")

			s.logger.Info("警告上限によりユーザーを自動BANしました",
				slog.Int64("user_id", targetID),
				slog.Int("warnings", warnings),
			)
			return nil
		}

		if err := s.closeReport(ctx, letterID, adminID, model.ResolutionWarned); err != nil {
			return err
		}
		s.notifyBestEffort(ctx, targetID,
			fmt.Sprintf("⚠️ Ви отримали попередження (%d/%d). Дотримуйтесь правил!", warnings, WarnThreshold))

		s.logger.Info("ユーザーに警告を与えました",
			slog.Int64("user_id", targetID),
			slog.Int("warnings", warnings),
		)
		return nil

	default:
		return model.NewInvalidResolutionError(string(resolution))
	}
}

func (s *Service) closeReport(ctx context.Context, letterID string, adminID int64, resolution model.ReportResolution) error {
	if err := s.letters.CloseReport(ctx, letterID, adminID, resolution); err != nil {
		return fmt.Errorf("通報のクローズに失敗しました: %w", err)
	}
	return nil
}

func (s *Service) notifyBestEffort(ctx context.Context, userID int64, text string) {
	if err := s.notifier.Send(ctx, userID, text); err != nil {
		s.logger.Error("ユーザーへの通知に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// Broadcast は有効な全ユーザーにメッセージを送信する。
// レートリミッタで送信をペーシングし、コンテキストのキャンセルで中断できる。
func (s *Service) Broadcast(ctx context.Context, text string) (BroadcastResult, error) {
	ids, err := s.users.ListActiveIDs(ctx)
	if err != nil {
		return BroadcastResult{}, fmt.Errorf("有効ユーザー一覧の取得に失敗しました: %w", err)
	}

	var result BroadcastResult
	for _, id := range ids {
		if err := s.limiter.Wait(ctx); err != nil {
			// コンテキストのキャンセルによる中断
			return result, err
		}

		if err := s.notifier.Send(ctx, id, text); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return result, err
			}
			result.Blocked++
			continue
		}
		result.Sent++
	}

	s.logger.Info("一斉送信が完了しました",
		slog.Int("sent", result.Sent),
		slog.Int("blocked", result.Blocked),
	)

	return result, nil
}

// Stats はサービス全体の統計を返す。
func (s *Service) Stats(ctx context.Context) (*model.BotStats, error) {
	totalUsers, activeUsers, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー統計の取得に失敗しました: %w", err)
	}

	totalLetters, deliveredLetters, err := s.letters.CountLetters(ctx)
	if err != nil {
		return nil, fmt.Errorf("手紙統計の取得に失敗しました: %w", err)
	}

	return &model.BotStats{
		TotalUsers:       totalUsers,
		ActiveUsers:      activeUsers,
		BannedUsers:      totalUsers - activeUsers,
		TotalLetters:     totalLetters,
		DeliveredLetters: deliveredLetters,
	}, nil
}
