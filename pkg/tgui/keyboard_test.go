package tgui

import "testing"

func TestKeyboardSkipsEmpty(t *testing.T) {
	t.Parallel()
	rm := Keyboard([]string{"/broadcast", " "}, nil, []string{"/status", "/help"})
	if !rm.ResizeKeyboard {
		t.Fatal("keyboard should be resized")
	}
	if len(rm.ReplyKeyboard) != 2 {
		t.Fatalf("rows=%d want 2", len(rm.ReplyKeyboard))
	}
	if got := rm.ReplyKeyboard[0][0].Text; got != "/broadcast" {
		t.Fatalf("first button=%q", got)
	}
	if len(rm.ReplyKeyboard[1]) != 2 {
		t.Fatalf("second row=%d buttons", len(rm.ReplyKeyboard[1]))
	}
}

func TestLinesEscapes(t *testing.T) {
	t.Parallel()
	got := Lines(B("a<b"), "", Esc("x&y")).String()
	if want := "<b>a&lt;b</b>\nx&amp;y"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
