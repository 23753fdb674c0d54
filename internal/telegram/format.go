package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Brownie44l1/safe-skin/internal/diagnosis"
	"github.com/Brownie44l1/safe-skin/internal/recommend"
	"github.com/Brownie44l1/safe-skin/internal/service"
)

func labelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, diagnosis.Count)
	for _, l := range diagnosis.All() {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(l.String())))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.OneTimeKeyboard = true
	return kb
}

func formatLabels() string {
	var sb strings.Builder
	sb.WriteString("🔬 Diagnostic classes:\n")
	for _, l := range diagnosis.All() {
		fmt.Fprintf(&sb, "%d. %s\n", l.Index, l)
	}
	return sb.String()
}

func formatPrediction(p *service.Prediction) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🧾 Prediction: %s\n", p.Result.Label)
	fmt.Fprintf(&sb, "📊 Confidence: %.2f%%\n\n", p.Result.Confidence*100)

	for _, pt := range p.Series {
		fmt.Fprintf(&sb, "%-34s %s %.1f%%\n", pt.Label, bar(pt.Probability), pt.Probability*100)
	}

	if p.Recommendation != nil {
		sb.WriteString("\n")
		writeRecord(&sb, p.Recommendation)
	}
	return sb.String()
}

func formatRecommendation(r *service.Recommendation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "💊 %s\n", r.Label)
	if r.Record == nil {
		sb.WriteString(r.Message)
		return sb.String()
	}
	writeRecord(&sb, r.Record)
	return sb.String()
}

func writeRecord(sb *strings.Builder, rec *recommend.Record) {
	fmt.Fprintf(sb, "⏱ Recovery window: %s\n", rec.RecoveryWindow)
	for i, step := range rec.Steps {
		fmt.Fprintf(sb, "%d. %s\n", i+1, step)
	}
}

// bar draws a ten-cell text bar for a probability in [0, 1].
func bar(p float32) string {
	n := int(p*10 + 0.5)
	if n < 0 {
		n = 0
	}
	if n > 10 {
		n = 10
	}
	return strings.Repeat("█", n) + strings.Repeat("░", 10-n)
}
