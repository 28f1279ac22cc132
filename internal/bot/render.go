package bot

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"github.com/savolbot/savolbot/internal/catalog"
	"github.com/savolbot/savolbot/internal/results"
)

// Callback data formats. Session ids are uuids and never contain ':'.
//
//	choose_test:<testID>
//	count:<testID>:<n>
//	count_custom:<testID>
//	ans:<sessionID>:<index>:<optionID>
//	stop:<sessionID>
//	resume:<sessionID>
func parseCallback(data string) (action string, args []string) {
	data = strings.TrimSpace(strings.TrimPrefix(data, "\f"))
	parts := strings.Split(data, ":")
	return parts[0], parts[1:]
}

func testsKeyboard(tests []catalog.Test) *tele.ReplyMarkup {
	rows := make([][]tele.InlineButton, 0, len(tests))
	for _, t := range tests {
		rows = append(rows, []tele.InlineButton{{
			Text: t.Title,
			Data: fmt.Sprintf("choose_test:%d", t.ID),
		}})
	}
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}

// countKeyboard offers preset counts that fit the test, an "all questions"
// shortcut and a custom-number escape hatch.
func countKeyboard(testID int64, total int) *tele.ReplyMarkup {
	var presets []tele.InlineButton
	for _, c := range []int{5, 10} {
		if c <= total {
			presets = append(presets, tele.InlineButton{
				Text: fmt.Sprintf("%d", c),
				Data: fmt.Sprintf("count:%d:%d", testID, c),
			})
		}
	}
	presets = append(presets, tele.InlineButton{
		Text: "All",
		Data: fmt.Sprintf("count:%d:%d", testID, total),
	})
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{
		presets,
		{{Text: "Other (send a number)", Data: fmt.Sprintf("count_custom:%d", testID)}},
	}}
}

func questionMessage(sessionID string, index, total int, q *catalog.Question, opts []catalog.Option) (string, *tele.ReplyMarkup) {
	var b strings.Builder
	fmt.Fprintf(&b, "Question %d/%d:\n%s\n\nOptions:\n", index+1, total, q.Text)
	for i, o := range opts {
		fmt.Fprintf(&b, "%d) %s\n", i+1, o.Text)
	}

	var row []tele.InlineButton
	var rows [][]tele.InlineButton
	for i, o := range opts {
		row = append(row, tele.InlineButton{
			Text: fmt.Sprintf("%d", i+1),
			Data: fmt.Sprintf("ans:%s:%d:%d", sessionID, index, o.ID),
		})
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []tele.InlineButton{{
		Text: "⏹ Stop",
		Data: "stop:" + sessionID,
	}})

	return strings.TrimRight(b.String(), "\n"), &tele.ReplyMarkup{InlineKeyboard: rows}
}

func resultsText(list []results.Result) string {
	if len(list) == 0 {
		return "No results yet."
	}
	lines := []string{"Recent results:"}
	for _, r := range list {
		lines = append(lines, fmt.Sprintf("%s: %d/%d (%s)",
			r.TestTitle, r.CorrectCount, r.TotalAnswered, r.Status))
	}
	return strings.Join(lines, "\n")
}

func scoreText(prefix string, correct, total int) string {
	return fmt.Sprintf("%s Score: %d/%d. /start", prefix, correct, total)
}
