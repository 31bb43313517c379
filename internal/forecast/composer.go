package forecast

import (
	"fmt"
	"math/rand/v2"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseMode is the markup the composed messages are written in.
const ParseMode = tgbotapi.ModeHTML

// UnavailableMessage is sent when no source returned data.
const UnavailableMessage = "Не удалось получить данные для прогноза. Попробуем позже. 🤷‍♂️"

// CallToAction closes every message with findings.
const CallToAction = "Береги себя: пей больше воды, не планируй тяжёлых нагрузок и держи под рукой привычные лекарства. 💊"

// NeutralMessages are used when no rule fired.
var NeutralMessages = []string{
	"Сегодня всё спокойно, живи-балдей! 😎",
	"Погода к тебе благосклонна: ни бурь, ни резких перепадов. 🌤",
	"Небо и солнце сегодня на твоей стороне. Хорошего дня! ☀️",
}

var titles = map[Severity]string{
	SeverityHigh:   "🔴 <b>Oof! Сегодня может быть тяжело.</b>",
	SeverityMedium: "🟠 <b>Сегодня возможно недомогание.</b>",
	SeverityLow:    "🟡 <b>Небольшие поводы для беспокойства.</b>",
}

// Picker chooses an index in [0, n).
type Picker func(n int) int

// FirstPicker always picks the first option.
func FirstPicker(int) int { return 0 }

// Composer renders findings into a message
type Composer struct {
	pick Picker
}

// NewComposer creates a composer. A nil picker selects neutral messages at random.
func NewComposer(pick Picker) *Composer {
	if pick == nil {
		pick = rand.IntN
	}
	return &Composer{pick: pick}
}

// Compose renders the findings, most severe first. It never returns an empty string.
func (c *Composer) Compose(findings []Finding) string {
	if len(findings) == 0 {
		return NeutralMessages[c.pick(len(NeutralMessages))]
	}

	report := sortFindings(findings)

	var result strings.Builder
	result.WriteString(titles[report.MaxSeverity()])
	result.WriteString("\n\n")
	for _, f := range report {
		result.WriteString(fmt.Sprintf("• %s риск: %s\n", f.Severity.Label(), Escape(f.Description)))
	}
	result.WriteString("\n")
	result.WriteString(CallToAction)
	return result.String()
}

// Escape makes text safe to embed in a message of ParseMode
func Escape(text string) string {
	return tgbotapi.EscapeText(ParseMode, text)
}
