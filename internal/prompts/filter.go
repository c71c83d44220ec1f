package prompts

import (
	"strings"

	"golang.org/x/text/cases"
)

// SupportMessage replaces assistant answers that point users outside the
// platform.
const SupportMessage = "По этому вопросу лучше обратиться к нашему менеджеру в Telegram: @isayalotof"

// deniedTerms are matched as case-folded substrings.
var deniedTerms = []string{"фнс", "налоговой", "госуслуги", "мфц", "документац", "github"}

// Filter returns SupportMessage and true when content mentions any denied
// term, otherwise content unchanged and false.
func Filter(content string) (string, bool) {
	folded := cases.Fold().String(content)
	for _, term := range deniedTerms {
		if strings.Contains(folded, term) {
			return SupportMessage, true
		}
	}
	return content, false
}
