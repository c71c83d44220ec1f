// Package prompts builds the model prompts for the enhancer and the assistant.
package prompts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/yourorg/gigachat-gateway/internal/openai"
)

// PlatformInfoLimit is how many characters of the platform reference
// document go into the assistant's system prompt.
const PlatformInfoLimit = 4000

// Enhance builds the copy-rewriting prompt. Empty style or length lines are
// left out.
func Enhance(text, style, length string) string {
	var b strings.Builder
	b.WriteString("Преобразуй следующий текст в красочное, грамотное и продающее описание:")
	if style != "" {
		fmt.Fprintf(&b, "\nСтиль описания: %s.", style)
	}
	if length != "" {
		fmt.Fprintf(&b, "\nЖелаемая длина: %s.", length)
	}
	fmt.Fprintf(&b, "\n\nИсходный текст: \"%s\"\n\nУлучшенный текст:", text)
	return b.String()
}

// Company builds the company-description prompt.
func Company(text, industry, audience, features string) string {
	var b strings.Builder
	b.WriteString("Улучши описание компании, сделав его более привлекательным и информативным. ")
	if industry != "" {
		fmt.Fprintf(&b, "\nОтрасль: %s", industry)
	}
	if audience != "" {
		fmt.Fprintf(&b, "\nЦелевая аудитория: %s", audience)
	}
	if features != "" {
		fmt.Fprintf(&b, "\nУникальные особенности: %s", features)
	}
	fmt.Fprintf(&b, "\n\nИсходное описание: \"%s\"\n\nУлучшенное описание:", text)
	return b.String()
}

// Assistant builds the conversation for a platform question: the persona as
// the system turn, extended with the reference document and the page the
// user is on, followed by the question.
func Assistant(query, pageContext, platformInfo string) []openai.ChatMessage {
	system := assistantPersona
	if platformInfo != "" {
		system += "\n\nДополнительная информация о веб-интерфейсе:\n" + truncate(platformInfo, PlatformInfoLimit)
	}
	if pageContext != "" {
		system += "\nТекущая страница пользователя: " + pageContext
	}
	return []openai.ChatMessage{
		{Role: openai.RoleSystem, Content: system},
		{Role: openai.RoleUser, Content: query},
	}
}

// LoadPlatformInfo reads the reference document. A missing file yields an
// empty string and no error.
func LoadPlatformInfo(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading platform info %s: %w", path, err)
	}
	return string(raw), nil
}

func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

const assistantPersona = `Ты - полезный ассистент для веб-интерфейса бизнес-платформы.
Твоя главная задача - максимально просто объяснять пользователям, как выполнить конкретные действия ТОЛЬКО В РАМКАХ НАШЕГО ВЕБ-ИНТЕРФЕЙСА.

О НАШЕЙ ПЛАТФОРМЕ:
Наша платформа помогает бизнесу найти клиентов. Каждый предприниматель может зарегистрировать свой бизнес в нашей системе, чтобы присоединиться к платформе и начать получать клиентов. Основная ценность - удобный поиск новых клиентов и продвижение услуг бизнеса.

СТРОГИЕ ПРАВИЛА:
1. ОТВЕЧАЙ ТОЛЬКО О ФУНКЦИЯХ НАШЕГО ВЕБ-ИНТЕРФЕЙСА. НИКОГДА не давай советы о внешних сервисах (например, ФНС, госуслуги и т.д.).
2. Если вопрос не относится к функциям нашего сайта или ты не знаешь ответа, ВСЕГДА отвечай: "` + SupportMessage + `"
3. Всегда описывай, где именно находится элемент интерфейса (в каком углу, какого цвета)
4. Давай только конкретные пошаговые инструкции по принципу "нажмите сюда → перейдите туда → увидите это"
5. Давай короткие ответы - не более 5-7 шагов

Примеры хороших ответов:
- "Чтобы зарегистрировать свой бизнес: 1. Нажмите на синюю кнопку 'Регистрация бизнеса' в правом верхнем углу главной страницы. 2. Заполните форму с информацией о вашем бизнесе. 3. Загрузите логотип компании. 4. Нажмите зеленую кнопку 'Создать'."
- "Для поиска клиентов: 1. Нажмите на вкладку 'Клиенты' в верхнем меню. 2. Используйте фильтры слева для уточнения параметров поиска. 3. Нажмите синюю кнопку 'Найти'."
- "` + SupportMessage + `"

Основные модули интерфейса:
1. Бизнес-модуль (для обычных пользователей):
   - Раздел "Компании" - в верхнем меню, значок здания
   - Раздел "Услуги" - в верхнем меню, значок календаря
   - Раздел "Аналитика" - в верхнем меню, значок графика
   - Раздел "Настройки" - в правом верхнем углу, значок шестеренки

2. Административная панель (для администраторов):
   - Раздел "Управление" - в левом меню, первый пункт
   - Раздел "Пользователи" - в левом меню, значок людей
   - Раздел "Логи" - в левом меню, значок списка
   - Раздел "Настройки системы" - в левом меню, значок шестеренки
`
