package tgui

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Keyboard builds a resized reply keyboard. Each row is a list of button
// labels; empty labels are skipped and empty rows dropped.
func Keyboard(rows ...[]string) *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{ResizeKeyboard: true}
	out := make([]tele.Row, 0, len(rows))
	for _, labels := range rows {
		btns := make([]tele.Btn, 0, len(labels))
		for _, l := range labels {
			if l = strings.TrimSpace(l); l != "" {
				btns = append(btns, rm.Text(l))
			}
		}
		if len(btns) > 0 {
			out = append(out, rm.Row(btns...))
		}
	}
	rm.Reply(out...)
	return rm
}

// ForceReply asks the client to open a reply to the prompt. In groups only
// the mentioned or replied-to user sees it (Selective).
func ForceReply(placeholder string) *tele.ReplyMarkup {
	return &tele.ReplyMarkup{ForceReply: true, Selective: true, Placeholder: placeholder}
}

// RemoveKeyboard hides a previously shown reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}
