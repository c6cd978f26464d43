package domain

import "time"

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}
