// Package dispatch は配達期限を迎えた手紙のバックグラウンド配達処理を提供する。
// ティッカー駆動のディスパッチャが配達待ちの手紙を取得し、
// 通知チャネル経由で受信者へ送信して状態を遷移させる。
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/penpal/internal/metrics"
	"github.com/hitoshi/penpal/internal/model"
	"github.com/hitoshi/penpal/internal/notify"
	"github.com/hitoshi/penpal/internal/repository"
)

const (
	// defaultBatchSize は1サイクルで処理する手紙の最大数。
	defaultBatchSize = 50
	// defaultSendRate は1秒あたりの送信数の上限。
	defaultSendRate = 20.0
	// failureReasonSendError は配達先起因以外の送信エラーの失敗理由ラベル。
	failureReasonSendError = "send_error"
)

// Dispatcher は配達期限を迎えた手紙を受信者へ送信するワーカー。
// RunOnce は再入不可: 前のサイクルが実行中の間は新しいサイクルをスキップする。
type Dispatcher struct {
	letters   repository.LetterRepository
	users     repository.UserRepository
	notifier  notify.Notifier
	logger    *slog.Logger
	collector metrics.MetricsCollector
	limiter   *rate.Limiter
	batchSize int

	mu  sync.Mutex
	now func() time.Time
}

// NewDispatcher はDispatcherの新しいインスタンスを生成する。
// batchSizeが0以下の場合はデフォルト値50、sendRateが0以下の場合は20/秒を使用する。
func NewDispatcher(
	letters repository.LetterRepository,
	users repository.UserRepository,
	notifier notify.Notifier,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
	batchSize int,
	sendRate float64,
) *Dispatcher {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if sendRate <= 0 {
		sendRate = defaultSendRate
	}
	return &Dispatcher{
		letters:   letters,
		users:     users,
		notifier:  notifier,
		logger:    logger,
		collector: collector,
		limiter:   rate.NewLimiter(rate.Limit(sendRate), 1),
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Start は指定間隔のティッカーでディスパッチャを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (d *Dispatcher) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.logger.Info("配達ディスパッチャを開始しました",
		slog.Duration("interval", interval),
		slog.Int("batch_size", d.batchSize),
	)

	// 起動直後に1回実行
	if err := d.RunOnce(ctx); err != nil {
		d.logger.Error("配達サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("配達ディスパッチャを停止しました")
			return
		case <-ticker.C:
			if err := d.RunOnce(ctx); err != nil {
				d.logger.Error("配達サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は配達期限を迎えた手紙を1バッチ取得し、順次送信する。
// 前のサイクルが実行中の場合は何もせずスキップする。
func (d *Dispatcher) RunOnce(ctx context.Context) error {
	if !d.mu.TryLock() {
		d.collector.RecordDispatchSkipped()
		d.logger.Warn("前回の配達サイクルが実行中のためスキップします")
		return nil
	}
	defer d.mu.Unlock()

	start := time.Now()

	due, err := d.letters.ListDue(ctx, d.now(), d.batchSize)
	if err != nil {
		return fmt.Errorf("配達対象の手紙の取得に失敗しました: %w", err)
	}

	d.collector.RecordDispatchRun(len(due))

	if len(due) == 0 {
		return nil
	}

	d.logger.Info("配達サイクルを開始します",
		slog.Int("letter_count", len(due)),
	)

	var delivered, failed int
	for _, letter := range due {
		if err := d.limiter.Wait(ctx); err != nil {
			// コンテキストのキャンセルによる中断。残りは次のサイクルで処理する。
			return err
		}

		retryAfter, err := d.deliver(ctx, letter)
		if err != nil {
			failed++
			continue
		}
		if retryAfter > 0 {
			// レート制限に達した。手紙はpendingのまま残し、
			// 待機後にバッチ内の次の手紙から再開する。
			d.logger.Warn("送信レート制限に達したため配達を一時停止します",
				slog.Duration("retry_after", retryAfter),
			)
			if err := sleepCtx(ctx, retryAfter); err != nil {
				return err
			}
			continue
		}
		delivered++
	}

	duration := time.Since(start)
	d.logger.Info("配達サイクルが完了しました",
		slog.Int("delivered", delivered),
		slog.Int("failed", failed),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// deliver は1通の手紙を送信し、結果に応じて状態を遷移させる。
// レート制限の場合は待機すべき時間を返し、手紙はpendingのまま残す。
func (d *Dispatcher) deliver(ctx context.Context, letter *model.Letter) (time.Duration, error) {
	sendStart := time.Now()
	err := d.notifier.Send(ctx, letter.RecipientID, formatLetter(letter))
	d.collector.RecordSendLatency(time.Since(sendStart))

	if err == nil {
		if err := d.letters.MarkDelivered(ctx, letter.ID); err != nil {
			d.logger.Error("配達済みへの状態遷移に失敗しました",
				slog.String("letter_id", letter.ID),
				slog.String("error", err.Error()),
			)
			return 0, err
		}
		d.collector.RecordLetterDelivered()
		d.logger.Info("手紙を配達しました",
			slog.String("letter_id", letter.ID),
			slog.Int64("recipient_id", letter.RecipientID),
		)
		return 0, nil
	}

	var retryErr *notify.RetryAfterError
	if errors.As(err, &retryErr) {
		return retryErr.RetryAfter, nil
	}

	if errors.Is(err, notify.ErrRecipientBlocked) {
		return 0, d.failBlocked(ctx, letter)
	}

	return 0, d.fail(ctx, letter, err)
}

// failBlocked は到達不能な受信者宛ての手紙を失敗させ、受信者を無効化する。
// 無効化によって以後のマッチング候補から除外される。
func (d *Dispatcher) failBlocked(ctx context.Context, letter *model.Letter) error {
	if err := d.letters.MarkFailed(ctx, letter.ID, model.FailureReasonBlocked); err != nil {
		d.logger.Error("配達失敗への状態遷移に失敗しました",
			slog.String("letter_id", letter.ID),
			slog.String("error", err.Error()),
		)
		return err
	}
	d.collector.RecordLetterFailed(model.FailureReasonBlocked)

	if err := d.users.Deactivate(ctx, letter.RecipientID); err != nil {
		d.logger.Error("到達不能ユーザーの無効化に失敗しました",
			slog.Int64("user_id", letter.RecipientID),
			slog.String("error", err.Error()),
		)
		return err
	}

	d.logger.Warn("受信者が到達不能のため手紙を失敗にしました",
		slog.String("letter_id", letter.ID),
		slog.Int64("recipient_id", letter.RecipientID),
	)
	return errors.New("受信者が到達不能です")
}

// fail は送信エラーで手紙を失敗させる。
func (d *Dispatcher) fail(ctx context.Context, letter *model.Letter, sendErr error) error {
	if err := d.letters.MarkFailed(ctx, letter.ID, sendErr.Error()); err != nil {
		d.logger.Error("配達失敗への状態遷移に失敗しました",
			slog.String("letter_id", letter.ID),
			slog.String("error", err.Error()),
		)
		return err
	}
	d.collector.RecordLetterFailed(failureReasonSendError)

	d.logger.Error("手紙の送信に失敗しました",
		slog.String("letter_id", letter.ID),
		slog.Int64("recipient_id", letter.RecipientID),
		slog.String("error", sendErr.Error()),
	)
	return sendErr
}

// formatLetter は受信者に表示するメッセージ本文を組み立てる。
func formatLetter(letter *model.Letter) string {
	if letter.ParentID != "" {
		return fmt.Sprintf("💌 Вам надійшла відповідь від «%s»:\n\n%s", letter.Nickname, letter.Content)
	}
	return fmt.Sprintf("💌 Вам надійшов лист від «%s»:\n\n%s", letter.Nickname, letter.Content)
}

// sleepCtx はコンテキストのキャンセルを考慮して待機する。
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
