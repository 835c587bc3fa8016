package i18n

import (
	"sort"
	"strings"
	"sync"
)

// Translator retrieves localized messages for error codes.
// data provides optional details to embed in the message (for example,
// "location" or "class"). Placeholders are written as {name}.
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var catalog = map[string]map[string]string{
	"en": {
		"unknown_location":    "no response visitor registered for location {location}",
		"response_class":      "no builder registered for response class {class}",
		"unknown_model":       "response model {model} is not defined",
		"invalid_model":       "response model must be an object or array schema",
		"filter_error":        "filter {filter} failed",
		"parse_error":         "malformed response body",
		"duplicate_key":       "duplicate key",
		"truncated":           "response body exceeds the size limit",
		"invalid_description": "invalid service description",
	},
	"ja": {
		"unknown_location":    "ロケーション {location} に対応するビジターが登録されていません",
		"response_class":      "レスポンスクラス {class} のビルダーが登録されていません",
		"unknown_model":       "レスポンスモデル {model} が定義されていません",
		"invalid_model":       "レスポンスモデルは object または array である必要があります",
		"filter_error":        "フィルタ {filter} が失敗しました",
		"parse_error":         "レスポンスボディの解析エラー",
		"duplicate_key":       "キーが重複しています",
		"truncated":           "レスポンスボディがサイズ上限を超えています",
		"invalid_description": "サービス記述が不正です",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := catalog[t.lang][code]
	if !ok {
		return code
	}
	if len(data) == 0 {
		return msg
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", data[k])
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

var (
	mu                sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	SetTranslator(dictTranslator{lang: lang})
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version). nil restores English.
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
