package sitemetrics

import "time"

// Event types accepted on the public tracking endpoint.
const (
	EventPageView         = "page_view"
	EventCTAClick         = "cta_click"
	EventFormSubmit       = "form_submit"
	EventNewsletterSignup = "newsletter_signup"
)

type Event struct {
	ID        string         `json:"id"`
	EventType string         `json:"event_type"`
	Page      string         `json:"page,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type TrackEventRequest struct {
	EventType string         `json:"event_type" validate:"required,oneof=page_view cta_click form_submit newsletter_signup"`
	Page      string         `json:"page" validate:"max=300"`
	Metadata  map[string]any `json:"metadata"`
}
