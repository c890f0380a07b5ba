package keyboard

import tele "gopkg.in/telebot.v4"

// RemoveKeyboard returns a markup that hides the keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ReplyButtons builds a resized reply keyboard from rows of text.
func ReplyButtons(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	var keyboard []tele.Row
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		var buttons []tele.Btn
		for _, label := range row {
			buttons = append(buttons, markup.Text(label))
		}
		keyboard = append(keyboard, markup.Row(buttons...))
	}
	markup.Reply(keyboard...)
	return markup
}

// OneTime builds a reply keyboard that Telegram hides after the first press.
// With no rows it falls back to RemoveKeyboard so stale options disappear.
func OneTime(rows ...[]string) *tele.ReplyMarkup {
	if Empty(rows) {
		return RemoveKeyboard()
	}
	markup := ReplyButtons(rows...)
	markup.OneTimeKeyboard = true
	return markup
}

// Empty reports whether rows hold no labels at all.
func Empty(rows [][]string) bool {
	for _, row := range rows {
		if len(row) > 0 {
			return false
		}
	}
	return true
}

// Chunk splits a flat list of labels into rows with up to n labels per row.
// If n <= 1, every label gets its own row.
func Chunk(labels []string, n int) [][]string {
	if n <= 1 {
		out := make([][]string, 0, len(labels))
		for _, l := range labels {
			out = append(out, []string{l})
		}
		return out
	}
	var rows [][]string
	for i := 0; i < len(labels); i += n {
		end := i + n
		if end > len(labels) {
			end = len(labels)
		}
		rows = append(rows, labels[i:end])
	}
	return rows
}
