package content

import (
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/penpal/internal/model"
)

// assertBotErrorCode はエラーが指定コードの*model.BotErrorであることを検証する。
func assertBotErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var botErr *model.BotError
	if !errors.As(err, &botErr) {
		t.Fatalf("expected *model.BotError, got %T: %v", err, err)
	}
	if botErr.Code != code {
		t.Errorf("error code = %q, want %q", botErr.Code, code)
	}
}

func TestContainsBadWords(t *testing.T) {
	f := NewFilter()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "通常の文章", text: "Привіт! Як справи?", want: false},
		{name: "禁止語を含む", text: "ти повний дебіл", want: true},
		{name: "大文字の禁止語", text: "ДЕБІЛ", want: true},
		{name: "単語の一部として含む", text: "придурок якийсь", want: true},
		{name: "ラテン文字の禁止語", text: "дивись Pornhub", want: true},
		{name: "空文字列", text: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.ContainsBadWords(tt.text); got != tt.want {
				t.Errorf("ContainsBadWords(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestContainsLinks(t *testing.T) {
	f := NewFilter()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "http URL", text: "дивись http://example.com/page", want: true},
		{name: "https URL", text: "дивись https://example.com", want: true},
		{name: "wwwドメイン", text: "заходь на www.example.com", want: true},
		{name: "ftp URL", text: "ftp://files.example.com", want: true},
		{name: "Telegramリンク", text: "пиши t.me/someuser", want: true},
		{name: "メンション", text: "пиши мені @someuser", want: true},
		{name: "スキームなしドメイン", text: "заходь на example.com зараз", want: true},
		{name: "リンクなし", text: "Привіт! Як твої справи сьогодні?", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.ContainsLinks(tt.text); got != tt.want {
				t.Errorf("ContainsLinks(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestSanitize_StripsHTML(t *testing.T) {
	f := NewFilter()

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "HTMLなし", text: "Привіт, як справи?", want: "Привіт, як справи?"},
		{name: "scriptタグ除去", text: "привіт <script>alert(1)</script> світ", want: "привіт  світ"},
		{name: "boldタグ除去", text: "<b>жирний</b> текст", want: "жирний текст"},
		{name: "前後の空白を削る", text: "  привіт  ", want: "привіт"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Sanitize(tt.text); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestValidateLetter(t *testing.T) {
	f := NewFilter()

	t.Run("有効な本文はサニタイズ済みで返る", func(t *testing.T) {
		got, err := f.ValidateLetter("  Привіт! Це мій перший лист до тебе.  ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "Привіт! Це мій перший лист до тебе." {
			t.Errorf("got %q", got)
		}
	})

	t.Run("禁止語を含む本文は拒否", func(t *testing.T) {
		_, err := f.ValidateLetter("Привіт, ти повний дебіл, розумієш?")
		assertBotErrorCode(t, err, model.ErrCodeContentRejected)
	})

	t.Run("リンクを含む本文は拒否", func(t *testing.T) {
		_, err := f.ValidateLetter("Привіт! Пиши мені у https://example.com")
		assertBotErrorCode(t, err, model.ErrCodeContentRejected)
	})

	t.Run("10文字未満は拒否", func(t *testing.T) {
		_, err := f.ValidateLetter("Привіт!")
		assertBotErrorCode(t, err, model.ErrCodeContentTooShort)
	})

	t.Run("ちょうど10文字は許可", func(t *testing.T) {
		_, err := f.ValidateLetter("Привіт діл")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("1000文字超は拒否", func(t *testing.T) {
		long := strings.Repeat("привіт і ", 120)
		if len([]rune(long)) <= MaxLetterLength {
			t.Fatalf("テストデータが短すぎます: %d", len([]rune(long)))
		}
		_, err := f.ValidateLetter(long)
		assertBotErrorCode(t, err, model.ErrCodeContentTooLong)
	})

	t.Run("長さはルーン単位で数える", func(t *testing.T) {
		// キリル文字はUTF-8で2バイトだが、1文字として数えるべき
		exactly1000 := strings.Repeat("ї", MaxLetterLength)
		_, err := f.ValidateLetter(exactly1000)
		if err != nil {
			t.Fatalf("1000文字ちょうどの本文が拒否された: %v", err)
		}
	})
}

func TestValidateReply(t *testing.T) {
	f := NewFilter()

	t.Run("2文字の返信は許可", func(t *testing.T) {
		got, err := f.ValidateReply("ні")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "ні" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("1文字は拒否", func(t *testing.T) {
		_, err := f.ValidateReply("а")
		assertBotErrorCode(t, err, model.ErrCodeContentTooShort)
	})

	t.Run("禁止語を含む返信は拒否", func(t *testing.T) {
		_, err := f.ValidateReply("іди нахуй")
		assertBotErrorCode(t, err, model.ErrCodeContentRejected)
	})
}
