// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// IDはチャットプラットフォーム側で発行される数値IDをそのまま使用する。
type User struct {
	ID                int64
	Hobbies           []string
	Course            string
	IsActive          bool
	IsAdmin           bool
	Warnings          int
	Settings          UserSettings
	LastLetterSent    *time.Time
	DailyLettersCount int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// UserSettings はユーザーごとの設定を表す。
type UserSettings struct {
	// FilterCourse が有効な場合、マッチング候補を同じコースに限定する。
	FilterCourse bool
}

// MinHobbies は登録完了に必要な趣味タグの最小数。
const MinHobbies = 2

// BotStats はサービス全体の統計を表す。
type BotStats struct {
	TotalUsers       int
	ActiveUsers      int
	BannedUsers      int
	TotalLetters     int
	DeliveredLetters int
}

// UserStats はユーザー個人の送受信統計を表す。
type UserStats struct {
	TotalSent     int
	TotalReceived int
}
