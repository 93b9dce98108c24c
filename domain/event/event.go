// Package event defines the news items fanned out to users. Events are
// immutable once constructed; every recipient gets its own copy on its
// own queue, so there is no shared mutable event state.
package event

import (
	"fmt"
	"time"
)

// What tags the event variant.
type What string

const (
	Join    What = "JOIN"
	Part    What = "PART"
	Kick    What = "KICK"
	Ban     What = "BAN"
	Admin   What = "ADMIN"
	Topic   What = "TOPIC"
	Message What = "MESSAGE"
	Privy   What = "PRIVY"
	Ignore  What = "IGNORE"
)

// ParseWhat resolves a wire constant name. Unknown names are a hard
// failure per the enum decoding contract.
func ParseWhat(name string) (What, error) {
	switch w := What(name); w {
	case Join, Part, Kick, Ban, Admin, Topic, Message, Privy, Ignore:
		return w, nil
	}
	return "", fmt.Errorf("unknown event constant %q", name)
}

// WhatsUp is one news item. Channel is empty for user-to-user events
// (PRIVY, IGNORE). Who is the subject username, By the optional actor,
// Text the optional payload (message body, topic, or an ON/OFF flag).
type WhatsUp struct {
	What    What
	Channel string
	Who     string
	By      string
	Text    string
	At      time.Time
}

func NewJoin(channel, who string) WhatsUp {
	return WhatsUp{What: Join, Channel: channel, Who: who, At: now()}
}

func NewPart(channel, who string) WhatsUp {
	return WhatsUp{What: Part, Channel: channel, Who: who, At: now()}
}

func NewKick(channel, who, by string) WhatsUp {
	return WhatsUp{What: Kick, Channel: channel, Who: who, By: by, At: now()}
}

func NewBan(channel, who, by string, state bool) WhatsUp {
	return WhatsUp{What: Ban, Channel: channel, Who: who, By: by, Text: flag(state), At: now()}
}

func NewAdmin(channel, who, by string, state bool) WhatsUp {
	return WhatsUp{What: Admin, Channel: channel, Who: who, By: by, Text: flag(state), At: now()}
}

func NewTopic(channel, who, text string) WhatsUp {
	return WhatsUp{What: Topic, Channel: channel, Who: who, Text: text, At: now()}
}

func NewMessage(channel, who, text string) WhatsUp {
	return WhatsUp{What: Message, Channel: channel, Who: who, Text: text, At: now()}
}

func NewPrivy(who, by, text string) WhatsUp {
	return WhatsUp{What: Privy, Who: who, By: by, Text: text, At: now()}
}

func NewIgnore(who, by string, state bool) WhatsUp {
	return WhatsUp{What: Ignore, Who: who, By: by, Text: flag(state), At: now()}
}

func flag(state bool) string {
	if state {
		return "ON"
	}
	return "OFF"
}

func now() time.Time {
	return time.Now().UTC()
}
