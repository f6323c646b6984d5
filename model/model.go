package model

import "time"

// ChatMessage is a normalized Twitch chat message.
type ChatMessage struct {
	ID          string
	Channel     string
	UserID      string
	Username    string
	DisplayName string
	Text        string
	SentAt      time.Time
}

// Invocation records one dispatched chat command.
type Invocation struct {
	ID        string
	MessageID string
	Channel   string
	Username  string
	Trigger   string
	Args      []string
	InvokedAt time.Time
}
