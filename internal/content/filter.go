// Package content は手紙本文の検閲と長さ検証を提供する。
package content

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/penpal/internal/model"
)

// 本文の長さ制限（文字数、ルーン単位）。
const (
	MinLetterLength = 10
	MinReplyLength  = 2
	MaxLetterLength = 1000
)

// badWords は検閲対象の語彙リスト。小文字で保持し、部分一致で判定する。
var badWords = []string{
	"бля",
	"блядь",
	"сука",
	"сучара",
	"хуй",
	"хуйовий",
	"хуйня",
	"хуєсос",
	"нахуй",
	"похуй",
	"пизда",
	"пиздець",
	"пиздити",
	"манда",
	"єбати",
	"єбало",
	"єблан",
	"довбойоб",
	"уйобок",
	"заїбав",
	"мудак",
	"мудило",
	"підор",
	"підар",
	"підарас",
	"гандон",
	"шлюха",
	"курва",
	"хвойда",
	"шмара",
	"гівно",
	"лайно",
	"срака",
	"засранець",
	"чмо",
	"лох",
	"чмирь",
	"дебіл",
	"ідіот",
	"придурок",
	"даун",
	"pornhub",
}

// urlPattern はURL・ドメイン・Telegramメンションを検出する。
// 連絡先の交換による匿名性の破壊を防ぐため、@メンションも対象に含める。
var urlPattern = regexp.MustCompile(
	`(?i)(?:http[s]?://\S+|` +
		`www\.\S+|` +
		`ftp://\S+|` +
		`t\.me/\S+|` +
		`@\w+|` +
		`(?:https?://)?[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\S*)`,
)

// Filter は手紙本文のサニタイズと検証を行う。
type Filter struct {
	sanitizer *bluemonday.Policy
}

// NewFilter は新しいFilterを生成する。
func NewFilter() *Filter {
	return &Filter{
		// StrictPolicyはすべてのHTMLタグを除去する
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// Sanitize は本文からHTMLタグを除去し、前後の空白を削る。
func (f *Filter) Sanitize(text string) string {
	return strings.TrimSpace(f.sanitizer.Sanitize(text))
}

// ContainsBadWords は本文に検閲対象の語彙が含まれるか判定する。
func (f *Filter) ContainsBadWords(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range badWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// ContainsLinks は本文にURL・ドメイン・メンションが含まれるか判定する。
func (f *Filter) ContainsLinks(text string) bool {
	return urlPattern.MatchString(text)
}

// ValidateLetter は新規手紙の本文を検証し、サニタイズ済みの本文を返す。
// 検閲に引っかかるか長さ制限を外れる場合は*model.BotErrorを返す。
func (f *Filter) ValidateLetter(text string) (string, error) {
	return f.validate(text, MinLetterLength)
}

// ValidateReply は返信の本文を検証し、サニタイズ済みの本文を返す。
// 返信は「дякую」のような短文を許すため、最小長が新規手紙より短い。
func (f *Filter) ValidateReply(text string) (string, error) {
	return f.validate(text, MinReplyLength)
}

func (f *Filter) validate(text string, minLength int) (string, error) {
	clean := f.Sanitize(text)

	if f.ContainsBadWords(clean) {
		return "", model.NewContentRejectedError()
	}
	if f.ContainsLinks(clean) {
		return "", model.NewContentRejectedError()
	}

	length := len([]rune(clean))
	if length < minLength {
		return "", model.NewContentTooShortError(minLength)
	}
	if length > MaxLetterLength {
		return "", model.NewContentTooLongError(MaxLetterLength)
	}

	return clean, nil
}
