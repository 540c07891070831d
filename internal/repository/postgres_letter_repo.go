package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/penpal/internal/model"
)

// PostgresLetterRepo はPostgreSQLを使用した手紙リポジトリ。
type PostgresLetterRepo struct {
	db *sql.DB
}

// NewPostgresLetterRepo はPostgresLetterRepoを生成する。
func NewPostgresLetterRepo(db *sql.DB) *PostgresLetterRepo {
	return &PostgresLetterRepo{db: db}
}

const letterColumns = `id, sender_id, recipient_id, content, status, is_read, is_archived,
	       parent_id, nickname, created_at, deliver_at, delivered_at, failed_at,
	       failure_reason, reported_by, report_resolution, report_closed_by, report_closed_at`

// scanLetter は1行分の手紙レコードを読み取る。
func scanLetter(row interface{ Scan(...any) error }) (*model.Letter, error) {
	letter := &model.Letter{}
	var parentID, failureReason, resolution sql.NullString
	var deliveredAt, failedAt, closedAt sql.NullTime
	var reportedBy, closedBy sql.NullInt64

	err := row.Scan(
		&letter.ID, &letter.SenderID, &letter.RecipientID, &letter.Content,
		&letter.Status, &letter.IsRead, &letter.IsArchived,
		&parentID, &letter.Nickname, &letter.CreatedAt, &letter.DeliverAt,
		&deliveredAt, &failedAt, &failureReason,
		&reportedBy, &resolution, &closedBy, &closedAt,
	)
	if err != nil {
		return nil, err
	}

	letter.ParentID = nullStringValue(parentID)
	letter.FailureReason = nullStringValue(failureReason)
	letter.ReportResolution = model.ReportResolution(nullStringValue(resolution))
	if deliveredAt.Valid {
		t := deliveredAt.Time
		letter.DeliveredAt = &t
	}
	if failedAt.Valid {
		t := failedAt.Time
		letter.FailedAt = &t
	}
	if closedAt.Valid {
		t := closedAt.Time
		letter.ReportClosedAt = &t
	}
	if reportedBy.Valid {
		v := reportedBy.Int64
		letter.ReportedBy = &v
	}
	if closedBy.Valid {
		v := closedBy.Int64
		letter.ReportClosedBy = &v
	}

	return letter, nil
}

// validLetterID は手紙IDがUUID形式として妥当かを返す。
// チャットUIのコールバックデータ経由で壊れたIDが渡されることがあるため、
// 不正なIDは致命的エラーではなくno-opとして扱う。
func validLetterID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Create は手紙をpending状態で作成する。
func (r *PostgresLetterRepo) Create(ctx context.Context, letter *model.Letter) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO letters (id, sender_id, recipient_id, content, status,
		                      is_read, is_archived, parent_id, nickname,
		                      created_at, deliver_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		letter.ID, letter.SenderID, letter.RecipientID, letter.Content, letter.Status,
		letter.IsRead, letter.IsArchived, nullString(letter.ParentID), letter.Nickname,
		letter.CreatedAt, letter.DeliverAt,
	)
	if err != nil {
		return fmt.Errorf("手紙の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの手紙を取得する。見つからない場合はnilを返す。
func (r *PostgresLetterRepo) FindByID(ctx context.Context, id string) (*model.Letter, error) {
	if !validLetterID(id) {
		return nil, nil
	}

	letter, err := scanLetter(r.db.QueryRowContext(ctx,
		`SELECT `+letterColumns+` FROM letters WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("手紙の取得に失敗しました: %w", err)
	}
	return letter, nil
}

// ListDue は配達期限を迎えたpending状態の手紙を最大limit件返す。
func (r *PostgresLetterRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*model.Letter, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+letterColumns+`
		 FROM letters
		 WHERE status = $1 AND deliver_at <= $2
		 ORDER BY deliver_at ASC
		 LIMIT $3`,
		model.LetterStatusPending, now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("配達対象の手紙の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var letters []*model.Letter
	for rows.Next() {
		letter, err := scanLetter(rows)
		if err != nil {
			return nil, fmt.Errorf("配達対象の手紙の読み取りに失敗しました: %w", err)
		}
		letters = append(letters, letter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("配達対象の手紙の走査に失敗しました: %w", err)
	}
	return letters, nil
}

// MarkDelivered は手紙をdelivered状態に遷移させる。
// WHERE句のstatus条件が冪等性の保証になっており、既にdelivered/failedの
// 手紙を二重に遷移させることはない。
func (r *PostgresLetterRepo) MarkDelivered(ctx context.Context, id string) error {
	if !validLetterID(id) {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE letters SET status = $2, delivered_at = now()
		 WHERE id = $1 AND status = $3`,
		id, model.LetterStatusDelivered, model.LetterStatusPending,
	)
	if err != nil {
		return fmt.Errorf("配達済みへの遷移に失敗しました: %w", err)
	}
	return nil
}

// MarkFailed は手紙をfailed状態に遷移させ、失敗理由を記録する。
func (r *PostgresLetterRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	if !validLetterID(id) {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE letters SET status = $2, failure_reason = $3, failed_at = now()
		 WHERE id = $1 AND status = $4`,
		id, model.LetterStatusFailed, reason, model.LetterStatusPending,
	)
	if err != nil {
		return fmt.Errorf("配達失敗への遷移に失敗しました: %w", err)
	}
	return nil
}

// MarkRead は手紙を既読にする。
func (r *PostgresLetterRepo) MarkRead(ctx context.Context, id string) error {
	if !validLetterID(id) {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE letters SET is_read = true WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("既読への更新に失敗しました: %w", err)
	}
	return nil
}

// Archive は手紙をアーカイブする。
func (r *PostgresLetterRepo) Archive(ctx context.Context, id string) error {
	if !validLetterID(id) {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE letters SET is_archived = true WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("アーカイブへの更新に失敗しました: %w", err)
	}
	return nil
}

// ArchiveAllDelivered は受信者の配達済み・未アーカイブの手紙を全てアーカイブする。
func (r *PostgresLetterRepo) ArchiveAllDelivered(ctx context.Context, recipientID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE letters SET is_archived = true
		 WHERE recipient_id = $1 AND status = $2 AND NOT is_archived`,
		recipientID, model.LetterStatusDelivered,
	)
	if err != nil {
		return 0, fmt.Errorf("一括アーカイブに失敗しました: %w", err)
	}

	archived, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("一括アーカイブ件数の取得に失敗しました: %w", err)
	}
	return archived, nil
}

// UpdateNickname は手紙の匿名差出人名を変更する。
func (r *PostgresLetterRepo) UpdateNickname(ctx context.Context, id string, nickname string) (bool, error) {
	if !validLetterID(id) {
		return false, nil
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE letters SET nickname = $2 WHERE id = $1`, id, nickname,
	)
	if err != nil {
		return false, fmt.Errorf("ニックネームの更新に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ニックネーム更新件数の取得に失敗しました: %w", err)
	}
	return affected > 0, nil
}

// Report は手紙をreported状態に遷移させ、通報者を記録する。
func (r *PostgresLetterRepo) Report(ctx context.Context, id string, reportedBy int64) (*model.Letter, error) {
	letter, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if letter == nil {
		return nil, nil
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE letters SET status = $2, reported_by = $3 WHERE id = $1`,
		id, model.LetterStatusReported, reportedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("通報への遷移に失敗しました: %w", err)
	}
	return letter, nil
}

// CloseReport は通報をresolved状態にし、処理結果と処理者を記録する。
func (r *PostgresLetterRepo) CloseReport(ctx context.Context, id string, adminID int64, resolution model.ReportResolution) error {
	if !validLetterID(id) {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE letters SET status = $2, report_resolution = $3,
		        report_closed_by = $4, report_closed_at = now()
		 WHERE id = $1`,
		id, model.LetterStatusResolved, resolution, adminID,
	)
	if err != nil {
		return fmt.Errorf("通報の処理に失敗しました: %w", err)
	}
	return nil
}

// ListActiveReports は未処理の通報を古い順に返す。
func (r *PostgresLetterRepo) ListActiveReports(ctx context.Context) ([]*model.Letter, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+letterColumns+`
		 FROM letters
		 WHERE status = $1
		 ORDER BY created_at ASC`,
		model.LetterStatusReported,
	)
	if err != nil {
		return nil, fmt.Errorf("未処理の通報の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var letters []*model.Letter
	for rows.Next() {
		letter, err := scanLetter(rows)
		if err != nil {
			return nil, fmt.Errorf("未処理の通報の読み取りに失敗しました: %w", err)
		}
		letters = append(letters, letter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("未処理の通報の走査に失敗しました: %w", err)
	}
	return letters, nil
}

// CorrespondentIDs はユーザーが配達済みの手紙を交換したことのある相手のIDを返す。
func (r *PostgresLetterRepo) CorrespondentIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END
		 FROM letters
		 WHERE (sender_id = $1 OR recipient_id = $1) AND status = $2`,
		userID, model.LetterStatusDelivered,
	)
	if err != nil {
		return nil, fmt.Errorf("過去の文通相手の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("過去の文通相手の読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("過去の文通相手の走査に失敗しました: %w", err)
	}
	return ids, nil
}

// CountDelivered は受信者に配達済みの手紙の数を返す。
func (r *PostgresLetterRepo) CountDelivered(ctx context.Context, recipientID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM letters WHERE recipient_id = $1 AND status = $2`,
		recipientID, model.LetterStatusDelivered,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("配達済み手紙数の集計に失敗しました: %w", err)
	}
	return count, nil
}

// Inbox は受信者の配達済み・未アーカイブの手紙をページ単位で返す。
func (r *PostgresLetterRepo) Inbox(ctx context.Context, userID int64, page, pageSize int) ([]*model.Letter, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM letters
		 WHERE recipient_id = $1 AND status = $2 AND NOT is_archived`,
		userID, model.LetterStatusDelivered,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("受信箱の件数取得に失敗しました: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+letterColumns+`
		 FROM letters
		 WHERE recipient_id = $1 AND status = $2 AND NOT is_archived
		 ORDER BY is_read ASC, delivered_at DESC
		 OFFSET $3 LIMIT $4`,
		userID, model.LetterStatusDelivered, page*pageSize, pageSize,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("受信箱の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var letters []*model.Letter
	for rows.Next() {
		letter, err := scanLetter(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("受信箱の読み取りに失敗しました: %w", err)
		}
		letters = append(letters, letter)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("受信箱の走査に失敗しました: %w", err)
	}
	return letters, total, nil
}

// DialogueHistoryPage は2ユーザー間の配達済みの手紙をページ単位で返す。
func (r *PostgresLetterRepo) DialogueHistoryPage(ctx context.Context, userID, otherID int64, page, pageSize int) ([]*model.Letter, int, error) {
	const where = `((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))
	 AND status = $3`

	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM letters WHERE `+where,
		userID, otherID, model.LetterStatusDelivered,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("文通履歴の件数取得に失敗しました: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+letterColumns+`
		 FROM letters
		 WHERE `+where+`
		 ORDER BY created_at ASC
		 OFFSET $4 LIMIT $5`,
		userID, otherID, model.LetterStatusDelivered, page*pageSize, pageSize,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("文通履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var letters []*model.Letter
	for rows.Next() {
		letter, err := scanLetter(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("文通履歴の読み取りに失敗しました: %w", err)
		}
		letters = append(letters, letter)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("文通履歴の走査に失敗しました: %w", err)
	}
	return letters, total, nil
}

// CountLetters は全手紙数と配達済み手紙数を返す。
func (r *PostgresLetterRepo) CountLetters(ctx context.Context) (int, int, error) {
	var total, delivered int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*), count(*) FILTER (WHERE status = $1) FROM letters`,
		model.LetterStatusDelivered,
	).Scan(&total, &delivered)
	if err != nil {
		return 0, 0, fmt.Errorf("手紙数の集計に失敗しました: %w", err)
	}
	return total, delivered, nil
}

// UserLetterCounts はユーザーの送信数と受信数（配達済みのみ）を返す。
func (r *PostgresLetterRepo) UserLetterCounts(ctx context.Context, userID int64) (int, int, error) {
	var sent, received int
	err := r.db.QueryRowContext(ctx,
		`SELECT
		    count(*) FILTER (WHERE sender_id = $1),
		    count(*) FILTER (WHERE recipient_id = $1 AND status = $2)
		 FROM letters
		 WHERE sender_id = $1 OR recipient_id = $1`,
		userID, model.LetterStatusDelivered,
	).Scan(&sent, &received)
	if err != nil {
		return 0, 0, fmt.Errorf("手紙の送受信数の集計に失敗しました: %w", err)
	}
	return sent, received, nil
}

// compile-time interface check
var _ LetterRepository = (*PostgresLetterRepo)(nil)
