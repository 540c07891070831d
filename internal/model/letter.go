// Package model はドメインモデルを定義する。
package model

import "time"

// Letter は匿名の手紙を表す。
// DeliverAt は作成時に確定し、以後変更されない。
// DeliveredAt は pending → delivered 遷移時に一度だけ設定される。
type Letter struct {
	ID          string
	SenderID    int64
	RecipientID int64
	Content     string
	Status      LetterStatus
	IsRead      bool
	IsArchived  bool
	ParentID    string // 返信の場合、元の手紙のID
	Nickname    string // 受信者に表示する匿名の差出人名
	CreatedAt   time.Time
	DeliverAt   time.Time
	DeliveredAt *time.Time
	FailedAt    *time.Time
	// FailureReason は failed 遷移時の診断テキスト。
	FailureReason string
	// 通報メタデータ。status が reported / resolved の場合のみ意味を持つ。
	ReportedBy       *int64
	ReportResolution ReportResolution
	ReportClosedBy   *int64
	ReportClosedAt   *time.Time
}

// LetterStatus は手紙の配達状態を表す。
type LetterStatus string

const (
	// LetterStatusPending は配達待ちの状態。作成時の初期状態。
	LetterStatusPending LetterStatus = "pending"
	// LetterStatusDelivered は配達済みの状態。
	LetterStatusDelivered LetterStatus = "delivered"
	// LetterStatusFailed は配達失敗の終端状態。
	LetterStatusFailed LetterStatus = "failed"
	// LetterStatusReported は受信者に通報された状態。
	LetterStatusReported LetterStatus = "reported"
	// LetterStatusResolved は管理者が通報を処理済みの状態。
	LetterStatusResolved LetterStatus = "resolved"
)

// ReportResolution は通報の処理結果を表す。
type ReportResolution string

const (
	// ResolutionDismissed は通報の却下。
	ResolutionDismissed ReportResolution = "dismissed"
	// ResolutionBanned は送信者の即時BAN。
	ResolutionBanned ReportResolution = "banned"
	// ResolutionWarned は送信者への警告。
	ResolutionWarned ReportResolution = "warned"
	// ResolutionBannedByWarns は警告3回到達によるBAN。
	ResolutionBannedByWarns ReportResolution = "banned_by_warns"
)

// FailureReasonBlocked は受信者が到達不能（ボットをブロック）だった場合の失敗理由。
const FailureReasonBlocked = "user_blocked"

// MaxNicknameLength は手紙の匿名差出人名の最大長。
const MaxNicknameLength = 30
