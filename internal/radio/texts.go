package radio

// User-facing texts.
const (
	TextStarted        = "%s started broadcasting."
	TextStopped        = "Broadcast stopped."
	TextTimedOut       = "Broadcast timed out."
	TextRestarted      = "Bot restarted."
	TextAborted        = "Error occured: %s"
	TextListening      = "Listening..."
	TextAlreadyOn      = "Already on."
	TextAlreadyOff     = "Already off."
	TextFarewell       = "You had your time, you had the power\nYou've yet to have your finest hour\nRadioo"
	TextPasswordPrompt = "Password:"
	TextAuthorized     = "User %s is now authorized."
	TextTryLater       = "Try again later."
	TextAlreadyAuthd   = "You're already authorized."
	TextTokenPrompt    = "Bot token:"
	TextWentWrong      = "Something went wrong."
	TextNewPassword    = "Enter new password"
	TextPasswordChange = "Access password changed. Please, /authorize again."
	TextUnsupported    = "Unsupported message type %s"
)

const howtoText = `How to use the radio:
1. Add the bot to a group and send /tune there (admins only). The chat starts listening.
2. In a private chat with the bot, send /authorize and answer with the access password.
3. Send /broadcast to go on air. Everything you send the bot privately is relayed to every listening chat.
4. Send /endbroadcast when done. A broadcast also ends by itself after 10 minutes.
5. /detune in a group stops listening.`
