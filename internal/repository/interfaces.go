// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/penpal/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// Exists は指定IDのユーザーが登録済みかを返す。
	Exists(ctx context.Context, id int64) (bool, error)

	// Upsert はユーザーを作成または更新する。
	// 挿入時のみ is_active=true / is_admin=false / filter_course=false の初期値を設定する。
	// courseが空の場合は既存の値を維持する。
	Upsert(ctx context.Context, id int64, hobbies []string, course string) error

	// Activate はユーザーを有効化する（BAN解除）。未登録IDの場合は作成する。
	Activate(ctx context.Context, id int64) error

	// Deactivate はユーザーを無効化する（ソフトBAN）。
	Deactivate(ctx context.Context, id int64) error

	// SetAdmin は管理者フラグを設定する。
	SetAdmin(ctx context.Context, id int64, isAdmin bool) error

	// IsAdmin は指定ユーザーが管理者かを返す。
	IsAdmin(ctx context.Context, id int64) (bool, error)

	// ListAdminIDs は全管理者のIDを返す。
	ListAdminIDs(ctx context.Context) ([]int64, error)

	// ListActiveIDs は有効な全ユーザーのIDを返す。一斉送信用。
	ListActiveIDs(ctx context.Context) ([]int64, error)

	// SetFilterCourse はコースフィルタ設定を更新する。未登録IDの場合は作成する。
	SetFilterCourse(ctx context.Context, id int64, enabled bool) error

	// UpdateQuota は送信クォータの状態（最終送信時刻と当日送信数）を更新する。
	UpdateQuota(ctx context.Context, id int64, lastSent time.Time, count int) error

	// TouchLastLetterSent は最終送信時刻のみを更新する。返信の送信時に使用する。
	TouchLastLetterSent(ctx context.Context, id int64, at time.Time) error

	// IncrementWarnings は警告回数をアトミックにインクリメントし、新しい値を返す。
	IncrementWarnings(ctx context.Context, id int64) (int, error)

	// TopHobbyMatches は趣味タグが1つ以上重なる有効なユーザーを、
	// 重なり数の降順で最大limit件返す。excludedに含まれるIDは除外する。
	// courseが空でない場合は同じコースのユーザーに限定する。
	TopHobbyMatches(ctx context.Context, excluded []int64, hobbies []string, course string, limit int) ([]*model.User, error)

	// SampleActive は除外集合に含まれない有効なユーザーを一様ランダムに1人返す。
	// 趣味の重なりは考慮しない。候補が存在しない場合はnilを返す。
	SampleActive(ctx context.Context, excluded []int64, course string) (*model.User, error)

	// CountUsers は全ユーザー数と有効ユーザー数を返す。
	CountUsers(ctx context.Context) (total int, active int, err error)
}

// LetterRepository は手紙データの永続化インターフェース。
// 不正な形式の手紙IDを渡された場合、更新系メソッドは何もせずに成功を返し、
// 取得系メソッドはnilを返す（チャットUI由来の壊れた参照を致命的エラーにしない）。
type LetterRepository interface {
	// Create は手紙をpending状態で作成する。
	Create(ctx context.Context, letter *model.Letter) error

	// FindByID は指定IDの手紙を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Letter, error)

	// ListDue は配達期限を迎えたpending状態の手紙を最大limit件返す。
	ListDue(ctx context.Context, now time.Time, limit int) ([]*model.Letter, error)

	// MarkDelivered は手紙をdelivered状態に遷移させ、delivered_atを設定する。
	// pending状態でない手紙には作用しない（冪等性の保証）。
	MarkDelivered(ctx context.Context, id string) error

	// MarkFailed は手紙をfailed状態に遷移させ、失敗理由とfailed_atを記録する。
	// pending状態でない手紙には作用しない。
	MarkFailed(ctx context.Context, id string, reason string) error

	// MarkRead は手紙を既読にする。
	MarkRead(ctx context.Context, id string) error

	// Archive は手紙をアーカイブする。
	Archive(ctx context.Context, id string) error

	// ArchiveAllDelivered は受信者の配達済み・未アーカイブの手紙を全てアーカイブし、
	// 件数を返す。
	ArchiveAllDelivered(ctx context.Context, recipientID int64) (int64, error)

	// UpdateNickname は手紙の匿名差出人名を変更する。更新が行われた場合trueを返す。
	UpdateNickname(ctx context.Context, id string, nickname string) (bool, error)

	// Report は手紙をreported状態に遷移させ、通報者を記録する。
	// 通報された手紙を返す。見つからない場合はnilを返す。
	Report(ctx context.Context, id string, reportedBy int64) (*model.Letter, error)

	// CloseReport は通報をresolved状態にし、処理結果と処理者を記録する。
	CloseReport(ctx context.Context, id string, adminID int64, resolution model.ReportResolution) error

	// ListActiveReports は未処理（reported状態）の手紙を返す。
	ListActiveReports(ctx context.Context) ([]*model.Letter, error)

	// CorrespondentIDs はユーザーが配達済みの手紙を交換したことのある
	// 相手のIDを重複なく返す（送受信の両方向）。
	CorrespondentIDs(ctx context.Context, userID int64) ([]int64, error)

	// CountDelivered は受信者に配達済みの手紙の数を返す。匿名名の連番に使用する。
	CountDelivered(ctx context.Context, recipientID int64) (int, error)

	// Inbox は受信者の配達済み・未アーカイブの手紙をページ単位で返す。
	// 未読を先頭に、配達時刻の降順で並べる。総件数も返す。
	Inbox(ctx context.Context, userID int64, page, pageSize int) ([]*model.Letter, int, error)

	// DialogueHistoryPage は2ユーザー間の配達済みの手紙を作成時刻の昇順で
	// ページ単位で返す。総件数も返す。
	DialogueHistoryPage(ctx context.Context, userID, otherID int64, page, pageSize int) ([]*model.Letter, int, error)

	// CountLetters は全手紙数と配達済み手紙数を返す。
	CountLetters(ctx context.Context) (total int, delivered int, err error)

	// UserLetterCounts はユーザーの送信数と受信数（配達済みのみ）を返す。
	UserLetterCounts(ctx context.Context, userID int64) (sent int, received int, err error)
}
