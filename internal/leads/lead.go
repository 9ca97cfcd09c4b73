package leads

import "time"

type Lead struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Source    string    `json:"source,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SubscribeRequest struct {
	Email  string   `json:"email" validate:"required,email"`
	Source string   `json:"source" validate:"max=100"`
	Tags   []string `json:"tags" validate:"max=10,dive,max=50"`
}
