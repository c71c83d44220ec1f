package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/gigachat-gateway/internal/openai"
)

func TestEnhance_Order(t *testing.T) {
	p := Enhance("Продаем торты", "эмоциональный", "короткий")

	intro := strings.Index(p, "Преобразуй следующий текст")
	style := strings.Index(p, "Стиль описания: эмоциональный.")
	length := strings.Index(p, "Желаемая длина: короткий.")
	text := strings.Index(p, `Исходный текст: "Продаем торты"`)

	require.True(t, intro >= 0 && style >= 0 && length >= 0 && text >= 0, p)
	assert.Less(t, intro, style)
	assert.Less(t, style, length)
	assert.Less(t, length, text)
	assert.True(t, strings.HasSuffix(p, "Улучшенный текст:"))
}

func TestEnhance_OmitsEmptyOptions(t *testing.T) {
	p := Enhance("Продаем торты", "", "")
	assert.NotContains(t, p, "Стиль описания")
	assert.NotContains(t, p, "Желаемая длина")
	assert.Equal(t,
		"Преобразуй следующий текст в красочное, грамотное и продающее описание:\n\nИсходный текст: \"Продаем торты\"\n\nУлучшенный текст:",
		p)
}

func TestCompany(t *testing.T) {
	p := Company("Пекарня", "общепит", "", "печем ночью")
	assert.Contains(t, p, "\nОтрасль: общепит")
	assert.NotContains(t, p, "Целевая аудитория")
	assert.Contains(t, p, "\nУникальные особенности: печем ночью")
	assert.True(t, strings.HasSuffix(p, "Исходное описание: \"Пекарня\"\n\nУлучшенное описание:"))
	assert.NotContains(t, p, "Преобразуй следующий текст")
}

func TestAssistant(t *testing.T) {
	msgs := Assistant("Как добавить услугу?", "services", "")
	require.Len(t, msgs, 2)
	assert.Equal(t, openai.RoleSystem, msgs[0].Role)
	assert.Equal(t, openai.RoleUser, msgs[1].Role)
	assert.Equal(t, "Как добавить услугу?", msgs[1].Content)
	assert.True(t, strings.HasSuffix(msgs[0].Content, "\nТекущая страница пользователя: services"))
	assert.NotContains(t, msgs[0].Content, "Дополнительная информация")
	assert.Contains(t, msgs[0].Content, SupportMessage)
}

func TestAssistant_TruncatesPlatformInfo(t *testing.T) {
	doc := strings.Repeat("я", PlatformInfoLimit+50)
	msgs := Assistant("q", "", doc)

	const marker = "Дополнительная информация о веб-интерфейсе:\n"
	idx := strings.Index(msgs[0].Content, marker)
	require.GreaterOrEqual(t, idx, 0)
	tail := msgs[0].Content[idx+len(marker):]
	assert.Equal(t, PlatformInfoLimit, utf8.RuneCountInString(tail))
	assert.True(t, utf8.ValidString(tail))
}

func TestLoadPlatformInfo(t *testing.T) {
	dir := t.TempDir()

	got, err := LoadPlatformInfo(filepath.Join(dir, "missing.md"))
	require.NoError(t, err)
	assert.Empty(t, got)

	path := filepath.Join(dir, "documentation.md")
	require.NoError(t, os.WriteFile(path, []byte("# Платформа"), 0o600))
	got, err = LoadPlatformInfo(path)
	require.NoError(t, err)
	assert.Equal(t, "# Платформа", got)
}

func TestFilter(t *testing.T) {
	cases := []struct {
		name    string
		content string
		blocked bool
	}{
		{"case insensitive", "Зайдите на Госуслуги и подайте заявление", true},
		{"upper ascii", "See GitHub for details", true},
		{"stem", "Смотрите документацию", true},
		{"tax office", "Обратитесь в ФНС", true},
		{"clean", "Нажмите синюю кнопку 'Найти'.", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, blocked := Filter(tc.content)
			assert.Equal(t, tc.blocked, blocked)
			if tc.blocked {
				assert.Equal(t, SupportMessage, got)
			} else {
				assert.Equal(t, tc.content, got)
			}
		})
	}
}
