// Package profile はユーザー登録とプロフィール管理のサービス層を提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/penpal/internal/model"
	"github.com/hitoshi/penpal/internal/repository"
)

// Service はユーザー登録・プロフィール更新を提供する。
type Service struct {
	users   repository.UserRepository
	letters repository.LetterRepository
	logger  *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	letters repository.LetterRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:   users,
		letters: letters,
		logger:  logger,
	}
}

// Register はユーザーを登録する。登録済みの場合は趣味とコースを更新する。
// 趣味タグは最低 model.MinHobbies 個必要。
func (s *Service) Register(ctx context.Context, userID int64, hobbies []string, course string) error {
	normalized := normalizeHobbies(hobbies)
	if len(normalized) < model.MinHobbies {
		return model.NewTooFewHobbiesError()
	}

	if err := s.users.Upsert(ctx, userID, normalized, strings.TrimSpace(course)); err != nil {
		return fmt.Errorf("ユーザーの登録に失敗しました: %w", err)
	}

	s.logger.Info("ユーザーを登録しました",
		slog.Int64("user_id", userID),
		slog.Int("hobbies", len(normalized)),
	)
	return nil
}

// UpdateHobbies は趣味タグを更新する。コースは現在の値を維持する。
func (s *Service) UpdateHobbies(ctx context.Context, userID int64, hobbies []string) error {
	user, err := s.findRegistered(ctx, userID)
	if err != nil {
		return err
	}
	return s.Register(ctx, userID, hobbies, user.Course)
}

// UpdateCourse はコースを更新する。趣味タグは現在の値を維持する。
func (s *Service) UpdateCourse(ctx context.Context, userID int64, course string) error {
	user, err := s.findRegistered(ctx, userID)
	if err != nil {
		return err
	}
	return s.Register(ctx, userID, user.Hobbies, course)
}

// ToggleFilterCourse はコースフィルタ設定を反転し、反転後の値を返す。
func (s *Service) ToggleFilterCourse(ctx context.Context, userID int64) (bool, error) {
	user, err := s.findRegistered(ctx, userID)
	if err != nil {
		return false, err
	}

	enabled := !user.Settings.FilterCourse
	if err := s.users.SetFilterCourse(ctx, userID, enabled); err != nil {
		return false, fmt.Errorf("コースフィルタ設定の更新に失敗しました: %w", err)
	}
	return enabled, nil
}

// Settings はユーザー設定を返す。
func (s *Service) Settings(ctx context.Context, userID int64) (model.UserSettings, error) {
	user, err := s.findRegistered(ctx, userID)
	if err != nil {
		return model.UserSettings{}, err
	}
	return user.Settings, nil
}

// Profile はユーザーのプロフィールを返す。未登録の場合はnilを返す。
func (s *Service) Profile(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return user, nil
}

// Exists はユーザーが登録済みか返す。
func (s *Service) Exists(ctx context.Context, userID int64) (bool, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("ユーザーの存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// IsBanned はユーザーが無効化されているか返す。未登録は無効化扱いとしない。
func (s *Service) IsBanned(ctx context.Context, userID int64) (bool, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return false, nil
	}
	return !user.IsActive, nil
}

// Stats はユーザー個人の送受信統計を返す。
func (s *Service) Stats(ctx context.Context, userID int64) (*model.UserStats, error) {
	sent, received, err := s.letters.UserLetterCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザー統計の取得に失敗しました: %w", err)
	}
	return &model.UserStats{
		TotalSent:     sent,
		TotalReceived: received,
	}, nil
}

func (s *Service) findRegistered(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}
	return user, nil
}

// normalizeHobbies は空白を除去し、空要素と重複を取り除く。
func normalizeHobbies(hobbies []string) []string {
	seen := make(map[string]struct{}, len(hobbies))
	result := make([]string, 0, len(hobbies))
	for _, h := range hobbies {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		key := strings.ToLower(h)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, h)
	}
	return result
}
