// Package tgui provides small Telegram UI helpers:
//   - reply keyboards built from command rows
//   - force-reply markup for next-input prompts
//   - HTML escaping for ParseMode="HTML" texts
package tgui
