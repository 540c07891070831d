package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/penpal/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `user_id, hobbies, course, is_active, is_admin, warnings,
	       filter_course, last_letter_sent, daily_letters_count, created_at, updated_at`

// scanUser は1行分のユーザーレコードを読み取る。
func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	user := &model.User{}
	var course sql.NullString
	var lastSent sql.NullTime

	err := row.Scan(
		&user.ID, pq.Array(&user.Hobbies), &course, &user.IsActive, &user.IsAdmin,
		&user.Warnings, &user.Settings.FilterCourse, &lastSent,
		&user.DailyLettersCount, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Course = nullStringValue(course)
	if lastSent.Valid {
		t := lastSent.Time
		user.LastLetterSent = &t
	}

	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	return user, nil
}

// Exists は指定IDのユーザーが登録済みかを返す。
func (r *PostgresUserRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ユーザーの存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Upsert はユーザーを作成または更新する。
// 挿入時のみ is_active / is_admin / filter_course に初期値を設定し、
// 更新時はこれらのフラグを維持する。courseが空の場合は既存のコースを保持する。
func (r *PostgresUserRepo) Upsert(ctx context.Context, id int64, hobbies []string, course string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_id, hobbies, course)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET
		    hobbies = EXCLUDED.hobbies,
		    course = COALESCE(EXCLUDED.course, users.course),
		    updated_at = now()`,
		id, pq.Array(hobbies), nullString(course),
	)
	if err != nil {
		return fmt.Errorf("ユーザーの作成・更新に失敗しました: %w", err)
	}
	return nil
}

// Activate はユーザーを有効化する。未登録IDの場合は作成する。
func (r *PostgresUserRepo) Activate(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_id, is_active)
		 VALUES ($1, true)
		 ON CONFLICT (user_id) DO UPDATE SET is_active = true, updated_at = now()`,
		id,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの有効化に失敗しました: %w", err)
	}
	return nil
}

// Deactivate はユーザーを無効化する（ソフトBAN）。
func (r *PostgresUserRepo) Deactivate(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = false, updated_at = now() WHERE user_id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの無効化に失敗しました: %w", err)
	}
	return nil
}

// SetAdmin は管理者フラグを設定する。
func (r *PostgresUserRepo) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_id, is_admin)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET is_admin = $2, updated_at = now()`,
		id, isAdmin,
	)
	if err != nil {
		return fmt.Errorf("管理者フラグの設定に失敗しました: %w", err)
	}
	return nil
}

// IsAdmin は指定ユーザーが管理者かを返す。
func (r *PostgresUserRepo) IsAdmin(ctx context.Context, id int64) (bool, error) {
	var isAdmin bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1 AND is_admin)`, id,
	).Scan(&isAdmin)
	if err != nil {
		return false, fmt.Errorf("管理者フラグの確認に失敗しました: %w", err)
	}
	return isAdmin, nil
}

// ListAdminIDs は全管理者のIDを返す。
func (r *PostgresUserRepo) ListAdminIDs(ctx context.Context) ([]int64, error) {
	return r.listIDs(ctx, `SELECT user_id FROM users WHERE is_admin`)
}

// ListActiveIDs は有効な全ユーザーのIDを返す。
func (r *PostgresUserRepo) ListActiveIDs(ctx context.Context) ([]int64, error) {
	return r.listIDs(ctx, `SELECT user_id FROM users WHERE is_active`)
}

func (r *PostgresUserRepo) listIDs(ctx context.Context, query string) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ユーザーID一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ユーザーIDの読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ユーザーID一覧の走査に失敗しました: %w", err)
	}
	return ids, nil
}

// SetFilterCourse はコースフィルタ設定を更新する。未登録IDの場合は作成する。
func (r *PostgresUserRepo) SetFilterCourse(ctx context.Context, id int64, enabled bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_id, filter_course)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET filter_course = $2, updated_at = now()`,
		id, enabled,
	)
	if err != nil {
		return fmt.Errorf("コースフィルタ設定の更新に失敗しました: %w", err)
	}
	return nil
}

// UpdateQuota は送信クォータの状態を更新する。
func (r *PostgresUserRepo) UpdateQuota(ctx context.Context, id int64, lastSent time.Time, count int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_letter_sent = $2, daily_letters_count = $3, updated_at = now()
		 WHERE user_id = $1`,
		id, lastSent, count,
	)
	if err != nil {
		return fmt.Errorf("クォータ状態の更新に失敗しました: %w", err)
	}
	return nil
}

// TouchLastLetterSent は最終送信時刻のみを更新する。
func (r *PostgresUserRepo) TouchLastLetterSent(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_letter_sent = $2, updated_at = now() WHERE user_id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("最終送信時刻の更新に失敗しました: %w", err)
	}
	return nil
}

// IncrementWarnings は警告回数をアトミックにインクリメントし、新しい値を返す。
func (r *PostgresUserRepo) IncrementWarnings(ctx context.Context, id int64) (int, error) {
	var warnings int
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (user_id, warnings)
		 VALUES ($1, 1)
		 ON CONFLICT (user_id) DO UPDATE SET warnings = users.warnings + 1, updated_at = now()
		 RETURNING warnings`,
		id,
	).Scan(&warnings)
	if err != nil {
		return 0, fmt.Errorf("警告回数のインクリメントに失敗しました: %w", err)
	}
	return warnings, nil
}

// TopHobbyMatches は趣味タグが1つ以上重なる有効なユーザーを重なり数の降順で返す。
// 重なり数の計算はDB側で行う（配列の共通部分のサイズ）。
func (r *PostgresUserRepo) TopHobbyMatches(ctx context.Context, excluded []int64, hobbies []string, course string, limit int) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE is_active
		   AND NOT (user_id = ANY($1))
		   AND hobbies && $2
		   AND ($3 = '' OR course = $3)
		 ORDER BY cardinality(ARRAY(
		     SELECT UNNEST(hobbies) INTERSECT SELECT UNNEST($2::text[])
		 )) DESC
		 LIMIT $4`,
		pq.Array(excluded), pq.Array(hobbies), course, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("マッチング候補の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("マッチング候補の読み取りに失敗しました: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("マッチング候補の走査に失敗しました: %w", err)
	}
	return users, nil
}

// SampleActive は除外集合に含まれない有効なユーザーを一様ランダムに1人返す。
func (r *PostgresUserRepo) SampleActive(ctx context.Context, excluded []int64, course string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+`
		 FROM users
		 WHERE is_active
		   AND NOT (user_id = ANY($1))
		   AND ($2 = '' OR course = $2)
		 ORDER BY random()
		 LIMIT 1`,
		pq.Array(excluded), course,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("フォールバック候補の取得に失敗しました: %w", err)
	}
	return user, nil
}

// CountUsers は全ユーザー数と有効ユーザー数を返す。
func (r *PostgresUserRepo) CountUsers(ctx context.Context) (int, int, error) {
	var total, active int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*), count(*) FILTER (WHERE is_active) FROM users`,
	).Scan(&total, &active)
	if err != nil {
		return 0, 0, fmt.Errorf("ユーザー数の集計に失敗しました: %w", err)
	}
	return total, active, nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
