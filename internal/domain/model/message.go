package model

import "time"

type Message struct {
	ID        string    `json:"id"`
	SenderID  int64     `json:"sender_id"`
	MatchID   int64     `json:"match_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
