// Package notify は利用者へのメッセージ送信を提供する。
// Telegram Bot APIクライアントと送信エラーの分類を含む。
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRecipientBlocked は宛先がボットをブロックしている場合に返る。
// 呼び出し元は宛先の無効化を判断する。
var ErrRecipientBlocked = errors.New("recipient has blocked the bot")

// RetryAfterError はAPIのレート制限により送信が拒否されたことを表す。
// RetryAfter経過後に再試行できる。
type RetryAfterError struct {
	RetryAfter time.Duration
}

// Error はerrorインターフェースを実装する。
func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

// Notifier は利用者へのテキストメッセージ送信のインターフェース。
type Notifier interface {
	// Send はuserIDにtextを送信する。
	// 宛先がブロックしている場合はErrRecipientBlocked、
	// レート制限の場合は*RetryAfterErrorを返す。
	Send(ctx context.Context, userID int64, text string) error
}
