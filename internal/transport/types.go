package transport

import "context"

type UpdateKind string

const (
	UpdateMessage UpdateKind = "message"
)

type Update struct {
	Kind    UpdateKind
	Message *Message
}

// ChatType mirrors Telegram's chat kinds.
type ChatType string

const (
	ChatPrivate    ChatType = "private"
	ChatGroup      ChatType = "group"
	ChatSuperGroup ChatType = "supergroup"
	ChatChannel    ChatType = "channel"
)

// ContentKind is the semantic type of a message payload.
type ContentKind string

const (
	KindText      ContentKind = "text"
	KindSticker   ContentKind = "sticker"
	KindPhoto     ContentKind = "photo"
	KindAudio     ContentKind = "audio"
	KindVoice     ContentKind = "voice"
	KindVideo     ContentKind = "video"
	KindVideoNote ContentKind = "video_note"
	KindAnimation ContentKind = "animation"
	KindDocument  ContentKind = "document"
	KindLocation  ContentKind = "location"
	KindVenue     ContentKind = "venue"
	KindContact   ContentKind = "contact"
	KindPoll      ContentKind = "poll"
	KindDice      ContentKind = "dice"
	KindUnknown   ContentKind = "unknown"
)

type Message struct {
	ID           int
	ChatID       int64
	ChatType     ChatType
	FromID       int64
	FromUsername string
	FromName     string

	Kind ContentKind
	// Text is the message body for text messages and the caption for media.
	Text string
	// Files lists the media variants, lowest resolution first. Most kinds
	// carry exactly one entry; photos may carry several sizes.
	Files    []File
	Location *Location
	Venue    *Venue
	Contact  *Contact
	Poll     *Poll
}

func (m *Message) IsPrivate() bool { return m != nil && m.ChatType == ChatPrivate }

// DisplayName prefers the @username, falling back to the first/last name.
func (m *Message) DisplayName() string {
	if m == nil {
		return ""
	}
	if m.FromUsername != "" {
		return m.FromUsername
	}
	return m.FromName
}

// File is a transport-side file reference (Telegram file_id).
type File struct {
	ID     string
	Width  int
	Height int
}

type Location struct {
	Lat float64
	Lng float64
}

type Venue struct {
	Location Location
	Title    string
	Address  string
}

type Contact struct {
	PhoneNumber string
	FirstName   string
	LastName    string
}

// Poll holds the question, option texts and the poll settings that can be
// re-sent. Identity and tally fields (id, vote counts) are never copied.
type Poll struct {
	Question        string
	Options         []string
	Type            string
	Anonymous       bool
	MultipleAnswers bool
	CorrectOption   int
	Explanation     string
	Closed          bool
	OpenPeriod      int
	CloseUnixdate   int64
}

type ChatTarget struct {
	ChatID int64
}

type MessageRef struct {
	ChatID    int64
	MessageID int
}

type SendOptions struct {
	ParseMode          string
	DisablePreview     bool
	Silent             bool
	ReplyMarkupAdapter any // adapter-specific markup (Telegram: *telebot.ReplyMarkup)
}

// SendOp names a transport-neutral send instruction.
type SendOp string

const (
	OpSendText      SendOp = "send-text"
	OpSendSticker   SendOp = "send-sticker"
	OpSendPhoto     SendOp = "send-photo"
	OpSendAudio     SendOp = "send-audio"
	OpSendVoice     SendOp = "send-voice"
	OpSendVideo     SendOp = "send-video"
	OpSendVideoNote SendOp = "send-video-note"
	OpSendAnimation SendOp = "send-animation"
	OpSendDocument  SendOp = "send-document"
	OpSendLocation  SendOp = "send-location"
	OpSendVenue     SendOp = "send-venue"
	OpSendContact   SendOp = "send-contact"
	OpSendPoll      SendOp = "send-poll"
)

// Envelope is one relay instruction: the operation, its payload fields and
// delivery options. It lives only for the duration of one fan-out.
type Envelope struct {
	Op      SendOp
	Kind    ContentKind
	Text    string
	Caption string
	FileID  string

	Location *Location
	Venue    *Venue
	Contact  *Contact
	Poll     *Poll

	Silent bool
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	Send(ctx context.Context, to ChatTarget, env Envelope) error
	// ChatAdmins returns the user ids of the chat's administrators.
	ChatAdmins(ctx context.Context, chatID int64) ([]int64, error)
}

// BotCommand represents a single bot command menu entry.
type BotCommand struct {
	Command     string
	Description string
}

// CommandMenuUpdater is an optional interface that adapters can implement
// to update platform-specific bot command menus (e.g. Telegram /menu list).
type CommandMenuUpdater interface {
	UpdateMenuCommands(ctx context.Context, cmds []BotCommand) error
}
