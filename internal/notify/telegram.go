package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// TelegramNotifier はTelegram Bot APIのsendMessageを呼び出すNotifier実装。
type TelegramNotifier struct {
	httpClient *http.Client
	logger     *slog.Logger
	token      string
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

var _ Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier はTelegramNotifierの新しいインスタンスを生成する。
func NewTelegramNotifier(httpClient *http.Client, logger *slog.Logger, token string) *TelegramNotifier {
	return &TelegramNotifier{
		httpClient: httpClient,
		logger:     logger,
		token:      token,
		baseURL:    defaultAPIBaseURL,
	}
}

// SetBaseURL はAPIのベースURLを差し替える。テストやローカルAPIサーバー用。
func (n *TelegramNotifier) SetBaseURL(baseURL string) {
	n.baseURL = baseURL
}

// sendMessageRequest はsendMessageのリクエストボディ。
type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// apiResponse はBot APIの共通レスポンス。
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send はuserIDにtextを送信する。
// 403はErrRecipientBlocked、429は*RetryAfterErrorに分類する。
func (n *TelegramNotifier) Send(ctx context.Context, userID int64, text string) error {
	payload, err := json.Marshal(sendMessageRequest{ChatID: userID, Text: text})
	if err != nil {
		return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Error("Telegram APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.Int64("user_id", userID),
		)
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		n.logger.Error("Telegram APIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if apiResp.OK {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusForbidden:
		// 利用者がボットをブロックしている
		return ErrRecipientBlocked
	case http.StatusTooManyRequests:
		retryAfter := time.Duration(apiResp.Parameters.RetryAfter) * time.Second
		return &RetryAfterError{RetryAfter: retryAfter}
	default:
		n.logger.Error("Telegram APIがエラーを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.Int("error_code", apiResp.ErrorCode),
			slog.String("description", apiResp.Description),
			slog.Int64("user_id", userID),
		)
		return fmt.Errorf("telegram API error %d: %s", apiResp.ErrorCode, apiResp.Description)
	}
}
