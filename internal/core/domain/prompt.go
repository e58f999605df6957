package domain

import "strings"

// SeparatorToken delimits rendered prompt sections and messages. It is also the stop sequence sent to the
// completion backend, so the model halts at the end of its own turn.
const SeparatorToken = "<|endoftext|>"

const separator = "\n" + SeparatorToken

const (
	SystemSpeaker     = "System"
	ActorPreamble     = "YOU ARE AN ACTOR! FOLLOW YOUR INSTRUCTIONS TO ACT OUT THE CHARACTER AND THE SCENE.\n"
	conversationLabel = "Conversation:"
)

// StopSequences returns the stop sequences matching the rendered prompt layout.
func StopSequences() []string {
	return []string{SeparatorToken}
}

// Message is a single speaker turn. A nil Text marks whose turn is next without supplying content.
type Message struct {
	Speaker string
	Text    *string
}

func NewMessage(speaker, text string) Message {
	return Message{Speaker: speaker, Text: &text}
}

// Placeholder returns a message without text, asking the model to continue as speaker.
func Placeholder(speaker string) Message {
	return Message{Speaker: speaker}
}

func (m Message) Render() string {
	result := stripSeparator(m.Speaker) + ":"
	if m.Text != nil {
		result += " " + stripSeparator(*m.Text)
	}

	return result
}

// Conversation is an ordered list of messages, oldest first.
type Conversation struct {
	Messages []Message
}

func NewConversation(messages ...Message) *Conversation {
	c := &Conversation{Messages: make([]Message, 0, len(messages))}
	c.Messages = append(c.Messages, messages...)
	return c
}

// Prepend inserts message ahead of the existing history.
func (c *Conversation) Prepend(message Message) *Conversation {
	c.Messages = append([]Message{message}, c.Messages...)
	return c
}

func (c *Conversation) Append(message Message) *Conversation {
	c.Messages = append(c.Messages, message)
	return c
}

func (c *Conversation) Len() int {
	return len(c.Messages)
}

func (c *Conversation) Render() string {
	rendered := make([]string, len(c.Messages))
	for i, m := range c.Messages {
		rendered[i] = m.Render()
	}

	return strings.Join(rendered, separator)
}

// Prompt is everything sent to the completion backend for one turn.
type Prompt struct {
	// Preprompt replaces the actor preamble when set. An empty preprompt drops the section entirely.
	Preprompt    *string
	Header       Message
	Conversation *Conversation
}

// NewHeader builds the system message carrying the character instructions for botName.
func NewHeader(botName, instructions string) Message {
	return NewMessage(SystemSpeaker, "Instructions for "+botName+": "+instructions)
}

func (p Prompt) Render() string {
	sections := make([]string, 0, 4)

	switch {
	case p.Preprompt == nil:
		sections = append(sections, ActorPreamble)
	case *p.Preprompt != "":
		sections = append(sections, stripSeparator(*p.Preprompt))
	}

	sections = append(sections,
		p.Header.Render(),
		NewMessage(SystemSpeaker, conversationLabel).Render())

	if p.Conversation != nil && p.Conversation.Len() > 0 {
		sections = append(sections, p.Conversation.Render())
	}

	return strings.Join(sections, separator)
}

func stripSeparator(s string) string {
	for strings.Contains(s, SeparatorToken) {
		s = strings.ReplaceAll(s, SeparatorToken, "")
	}

	return s
}
