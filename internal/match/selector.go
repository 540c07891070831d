// Package match は手紙の宛先となる文通相手の選定を提供する。
package match

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/hitoshi/penpal/internal/model"
	"github.com/hitoshi/penpal/internal/repository"
)

// candidatePoolSize は趣味マッチング上位から抽選する候補数。
const candidatePoolSize = 10

// Selector は趣味の重なりに基づいて宛先を選定する。
// 過去に手紙を交換した相手は候補から除外し、毎回新しい相手に届くようにする。
type Selector struct {
	users   repository.UserRepository
	letters repository.LetterRepository
	logger  *slog.Logger
	pick    func(n int) int // テスト用に乱数を差し替え可能
}

// NewSelector はSelectorの新しいインスタンスを生成する。
func NewSelector(users repository.UserRepository, letters repository.LetterRepository, logger *slog.Logger) *Selector {
	return &Selector{
		users:   users,
		letters: letters,
		logger:  logger,
		pick:    rand.Intn,
	}
}

// SelectRecipient は差出人の手紙の宛先を選定する。
// 趣味タグの重なりが大きい上位候補から一様ランダムに1人選ぶ。
// 重なりのある候補がいない場合は有効ユーザーからランダムに選ぶ。
// 候補が尽きた場合は*model.BotErrorを返し、コースフィルタが原因の
// 場合はフィルタ無効化を促すエラーを区別して返す。
func (s *Selector) SelectRecipient(ctx context.Context, sender *model.User) (*model.User, error) {
	if sender == nil {
		return nil, model.NewNoRecipientError()
	}

	excluded, err := s.exclusionSet(ctx, sender.ID)
	if err != nil {
		return nil, err
	}

	// コースフィルタ: 設定が有効かつコース登録済みの場合のみ適用
	course := ""
	if sender.Settings.FilterCourse && sender.Course != "" {
		course = sender.Course
	}

	candidates, err := s.users.TopHobbyMatches(ctx, excluded, sender.Hobbies, course, candidatePoolSize)
	if err != nil {
		return nil, fmt.Errorf("趣味マッチング候補の取得に失敗しました: %w", err)
	}

	if len(candidates) > 0 {
		recipient := candidates[s.pick(len(candidates))]
		s.logger.Info("趣味マッチングで宛先を選定しました",
			slog.Int64("sender_id", sender.ID),
			slog.Int64("recipient_id", recipient.ID),
			slog.Int("candidates", len(candidates)),
		)
		return recipient, nil
	}

	// 趣味の重なりがない場合は有効ユーザーからランダムに選ぶ
	recipient, err := s.users.SampleActive(ctx, excluded, course)
	if err != nil {
		return nil, fmt.Errorf("ランダム候補の取得に失敗しました: %w", err)
	}
	if recipient != nil {
		s.logger.Info("ランダムフォールバックで宛先を選定しました",
			slog.Int64("sender_id", sender.ID),
			slog.Int64("recipient_id", recipient.ID),
		)
		return recipient, nil
	}

	s.logger.Info("宛先候補が見つかりませんでした",
		slog.Int64("sender_id", sender.ID),
		slog.Bool("course_filter", course != ""),
	)

	if course != "" {
		return nil, model.NewNoRecipientCourseError()
	}
	return nil, model.NewNoRecipientError()
}

// exclusionSet は宛先から除外するIDの集合を構築する。
// 差出人自身と、配達済みの手紙を交換したことのある相手を含む。
func (s *Selector) exclusionSet(ctx context.Context, senderID int64) ([]int64, error) {
	correspondents, err := s.letters.CorrespondentIDs(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("過去の文通相手の取得に失敗しました: %w", err)
	}

	excluded := make([]int64, 0, len(correspondents)+1)
	excluded = append(excluded, senderID)
	excluded = append(excluded, correspondents...)
	return excluded, nil
}
