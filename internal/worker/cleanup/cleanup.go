// Package cleanup は古い手紙データの自動削除ジョブを提供する。
// 保持期間（デフォルト180日）を超過した終端状態の手紙を日次バッチで削除する。
// 配達待ちの手紙と未処理の通報は削除対象にしない。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は保持期間を超過した手紙の自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int // 手紙の保持日数（デフォルト: 180）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は180日。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:            db,
		logger:        logger,
		RetentionDays: 180,
	}
}

// Run は保持期間を超過した終端状態の手紙を削除する。
// created_atがRetentionDays日前より古く、failed / resolved、
// またはアーカイブ済みのdeliveredの手紙をDELETEする。
// 配達待ち（pending）と未処理の通報（reported）は保持する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d days", j.RetentionDays)

	// 返信から参照されている手紙は返信が削除されるまで残す（parent_idの外部キー制約）。
	// スレッドは日次実行の繰り返しで末端から順に削除される。
	query := `DELETE FROM letters
		WHERE created_at < now() - $1::interval
		  AND (status IN ('failed', 'resolved')
		       OR (status = 'delivered' AND is_archived))
		  AND NOT EXISTS (
		      SELECT 1 FROM letters replies WHERE replies.parent_id = letters.id
		  )`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("手紙クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("手紙クリーンアップの実行に失敗: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("削除件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("手紙クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
