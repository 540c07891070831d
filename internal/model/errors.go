// Package model はドメインモデルを定義する。
package model

import "fmt"

// BotError は利用者向けに表示可能なエラーを表す。
// 原因カテゴリとユーザー向けの対処方法を含む。
type BotError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, quota, match, moderation
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *BotError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeQuotaExhausted     = "QUOTA_EXHAUSTED"
	ErrCodeNoRecipient        = "NO_RECIPIENT"
	ErrCodeNoRecipientCourse  = "NO_RECIPIENT_COURSE"
	ErrCodeContentRejected    = "CONTENT_REJECTED"
	ErrCodeContentTooShort    = "CONTENT_TOO_SHORT"
	ErrCodeContentTooLong     = "CONTENT_TOO_LONG"
	ErrCodeTooFewHobbies      = "TOO_FEW_HOBBIES"
	ErrCodeLetterNotFound     = "LETTER_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeAdminProtected     = "ADMIN_PROTECTED"
	ErrCodeInvalidNickname    = "INVALID_NICKNAME"
	ErrCodeInvalidResolution  = "INVALID_RESOLUTION"
)

// NewQuotaExhaustedError は日次上限到達エラーを生成する。
func NewQuotaExhaustedError(limit int) *BotError {
	return &BotError{
		Code:     ErrCodeQuotaExhausted,
		Message:  fmt.Sprintf("本日の手紙の上限（%d通）に達しています。", limit),
		Category: "quota",
		Action:   "日付が変わってから再度お試しください。返信は上限の対象外です。",
	}
}

// NewNoRecipientError は宛先候補が見つからない場合のエラーを生成する。
func NewNoRecipientError() *BotError {
	return &BotError{
		Code:     ErrCodeNoRecipient,
		Message:  "手紙を届けられる相手が見つかりませんでした。",
		Category: "match",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewNoRecipientCourseError はコースフィルタによって候補が尽きた場合のエラーを生成する。
// フィルタを無効にすれば候補が見つかる可能性があることを利用者に伝える。
func NewNoRecipientCourseError() *BotError {
	return &BotError{
		Code:     ErrCodeNoRecipientCourse,
		Message:  "同じコースの中に手紙を届けられる相手が見つかりませんでした。",
		Category: "match",
		Action:   "プロフィール設定でコースフィルタを無効にすると候補が広がります。",
	}
}

// NewContentRejectedError は禁止語・リンクを含む本文のエラーを生成する。
func NewContentRejectedError() *BotError {
	return &BotError{
		Code:     ErrCodeContentRejected,
		Message:  "本文に禁止されている語句またはリンクが含まれています。",
		Category: "validation",
		Action:   "本文を修正して再度お試しください。",
	}
}

// NewContentTooShortError は本文が短すぎる場合のエラーを生成する。
func NewContentTooShortError(min int) *BotError {
	return &BotError{
		Code:     ErrCodeContentTooShort,
		Message:  fmt.Sprintf("本文が短すぎます（最低%d文字）。", min),
		Category: "validation",
		Action:   "もう少し長い本文を入力してください。",
	}
}

// NewContentTooLongError は本文が長すぎる場合のエラーを生成する。
func NewContentTooLongError(max int) *BotError {
	return &BotError{
		Code:     ErrCodeContentTooLong,
		Message:  fmt.Sprintf("本文が長すぎます（最大%d文字）。", max),
		Category: "validation",
		Action:   "本文を短くして再度お試しください。",
	}
}

// NewTooFewHobbiesError は趣味タグが不足している場合のエラーを生成する。
func NewTooFewHobbiesError() *BotError {
	return &BotError{
		Code:     ErrCodeTooFewHobbies,
		Message:  fmt.Sprintf("趣味タグは最低%d個選択してください。", MinHobbies),
		Category: "validation",
		Action:   "趣味タグを追加で選択してください。",
	}
}

// NewLetterNotFoundError は手紙が見つからない場合のエラーを生成する。
func NewLetterNotFoundError(letterID string) *BotError {
	return &BotError{
		Code:     ErrCodeLetterNotFound,
		Message:  fmt.Sprintf("指定された手紙が見つかりません: %s", letterID),
		Category: "validation",
		Action:   "手紙の一覧を開き直してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(userID int64) *BotError {
	return &BotError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %d", userID),
		Category: "validation",
		Action:   "登録を完了してから再度お試しください。",
	}
}

// NewAdminProtectedError は管理者をBANしようとした場合のエラーを生成する。
func NewAdminProtectedError(userID int64) *BotError {
	return &BotError{
		Code:     ErrCodeAdminProtected,
		Message:  fmt.Sprintf("ユーザー %d は管理者のためBANできません。", userID),
		Category: "moderation",
		Action:   "対象のユーザーIDを確認してください。",
	}
}

// NewInvalidResolutionError は未知の通報処理区分のエラーを生成する。
func NewInvalidResolutionError(resolution string) *BotError {
	return &BotError{
		Code:     ErrCodeInvalidResolution,
		Message:  fmt.Sprintf("未知の通報処理区分です: %s", resolution),
		Category: "moderation",
		Action:   "dismissed / warned / banned のいずれかを指定してください。",
	}
}

// NewInvalidNicknameError は無効なニックネームのエラーを生成する。
func NewInvalidNicknameError() *BotError {
	return &BotError{
		Code:     ErrCodeInvalidNickname,
		Message:  "ニックネームが空です。",
		Category: "validation",
		Action:   fmt.Sprintf("1〜%d文字のニックネームを入力してください。", MaxNicknameLength),
	}
}
