package domain

import "encoding/json"

// Channel selects the webhook a payload is delivered to.
type Channel int

const (
	ChannelTickets Channel = iota
	ChannelEvents
)

func (c Channel) String() string {
	switch c {
	case ChannelTickets:
		return "tickets"
	case ChannelEvents:
		return "events"
	default:
		return "unknown"
	}
}

// Field is one name/value row of an embed.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Payload is a formatted notification, routed to a channel.
type Payload struct {
	Channel Channel
	Title   string
	Color   int
	Fields  []Field
}

type embed struct {
	Title  string  `json:"title"`
	Color  int     `json:"color"`
	Fields []Field `json:"fields"`
}

type webhookBody struct {
	Embeds []embed `json:"embeds"`
}

// Body renders the webhook request body: {"embeds":[{title,color,fields}]}.
func (p Payload) Body() ([]byte, error) {
	fields := p.Fields
	if fields == nil {
		fields = []Field{}
	}
	return json.Marshal(webhookBody{Embeds: []embed{{
		Title:  p.Title,
		Color:  p.Color,
		Fields: fields,
	}}})
}

// Field returns the first field with the given name.
func (p Payload) Field(name string) (Field, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
