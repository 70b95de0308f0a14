package reply

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Reply tags the model is instructed to start every answer with.
const (
	TagMessage = "[message]"
	TagPicture = "[picture]"
)

// Kind classifies a model reply.
type Kind int

const (
	// Malformed replies carry neither tag.
	Malformed Kind = iota
	Text
	Image
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Image:
		return "image"
	default:
		return "malformed"
	}
}

// Action is what the handler does with a reply. For Text the payload is the
// message to send, for Image the picture description, and for Malformed the
// raw reply unchanged.
type Action struct {
	Kind    Kind
	Payload string
	Raw     string
}

// Parse classifies raw by its first whitespace-delimited token. The payload
// starts after the tag and the single delimiter that follows it.
func Parse(raw string) Action {
	tag, rest := splitTag(raw)
	switch tag {
	case TagMessage:
		return Action{Kind: Text, Payload: rest, Raw: raw}
	case TagPicture:
		return Action{Kind: Image, Payload: rest, Raw: raw}
	default:
		return Action{Kind: Malformed, Payload: raw, Raw: raw}
	}
}

func splitTag(raw string) (tag, rest string) {
	i := strings.IndexFunc(raw, unicode.IsSpace)
	if i < 0 {
		return raw, ""
	}
	_, size := utf8.DecodeRuneInString(raw[i:])
	return raw[:i], raw[i+size:]
}
