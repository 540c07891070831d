// Package quota は新規手紙の日次送信上限を管理する。
// 上限の判定は読み取り時の日付比較で行い、リセット用のジョブは持たない。
package quota

import (
	"context"
	"time"

	"github.com/hitoshi/penpal/internal/model"
	"github.com/hitoshi/penpal/internal/repository"
)

// DefaultDailyLimit は既定の1日あたり新規手紙数。
const DefaultDailyLimit = 3

// sameDay は2つの時刻が同じ暦日（同一ロケーション基準）かを判定する。
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// CanSend はユーザーが新規手紙を送信できるかを判定する純粋関数。
// 最終送信日がnowと異なる暦日であればカウントは失効済みとして扱う。
// userがnil（未登録）の場合は送信可能。
func CanSend(user *model.User, limit int, now time.Time) bool {
	if user == nil || user.LastLetterSent == nil {
		return true
	}
	if !sameDay(*user.LastLetterSent, now) {
		return true
	}
	return user.DailyLettersCount < limit
}

// Remaining は本日の残り送信可能数を返す純粋関数。0未満にはならない。
func Remaining(user *model.User, limit int, now time.Time) int {
	if user == nil || user.LastLetterSent == nil {
		return limit
	}
	if !sameDay(*user.LastLetterSent, now) {
		return limit
	}
	remaining := limit - user.DailyLettersCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NextCount は送信後のカウント値を計算する純粋関数。
// 日付が変わっていれば1から数え直す。
func NextCount(user *model.User, now time.Time) int {
	if user == nil || user.LastLetterSent == nil {
		return 1
	}
	if !sameDay(*user.LastLetterSent, now) {
		return 1
	}
	return user.DailyLettersCount + 1
}

// Tracker は送信上限の判定と消費を行う。
type Tracker struct {
	users repository.UserRepository
	limit int
	now   func() time.Time // テスト用に差し替え可能
}

// NewTracker はTrackerの新しいインスタンスを生成する。
// limitが0以下の場合はDefaultDailyLimitを使用する。
func NewTracker(users repository.UserRepository, limit int) *Tracker {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Tracker{
		users: users,
		limit: limit,
		now:   time.Now,
	}
}

// SetNowFunc は現在時刻の取得関数を差し替える。テスト用。
func (t *Tracker) SetNowFunc(now func() time.Time) {
	t.now = now
}

// Limit は設定された日次上限を返す。
func (t *Tracker) Limit() int {
	return t.limit
}

// CanSend はユーザーが現時点で新規手紙を送信できるかを判定する。
func (t *Tracker) CanSend(ctx context.Context, userID int64) (bool, error) {
	user, err := t.users.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return CanSend(user, t.limit, t.now()), nil
}

// Remaining は本日の残り送信可能数を返す。
func (t *Tracker) Remaining(ctx context.Context, userID int64) (int, error) {
	user, err := t.users.FindByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return Remaining(user, t.limit, t.now()), nil
}

// Consume は新規手紙1通分の送信枠を消費する。
// 最終送信時刻を現在時刻に更新し、日付が変わっていればカウントを1から数え直す。
func (t *Tracker) Consume(ctx context.Context, userID int64) error {
	user, err := t.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	now := t.now()
	return t.users.UpdateQuota(ctx, userID, now, NextCount(user, now))
}

// TouchActivity は最終送信時刻のみを更新する。
// 返信は上限を消費しないが、活動時刻としては記録する。
func (t *Tracker) TouchActivity(ctx context.Context, userID int64) error {
	return t.users.TouchLastLetterSent(ctx, userID, t.now())
}
