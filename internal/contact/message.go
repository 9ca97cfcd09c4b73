package contact

import "time"

type Message struct {
	ID              string    `json:"id"`
	FullName        string    `json:"full_name"`
	Email           string    `json:"email"`
	CompanyName     string    `json:"company_name,omitempty"`
	ProjectType     string    `json:"project_type,omitempty"`
	EstimatedBudget string    `json:"estimated_budget,omitempty"`
	Message         string    `json:"message"`
	CreatedAt       time.Time `json:"created_at"`
}

type NewMessageRequest struct {
	FullName        string `json:"full_name" validate:"required,min=2,max=200"`
	Email           string `json:"email" validate:"required,email"`
	CompanyName     string `json:"company_name" validate:"max=200"`
	ProjectType     string `json:"project_type" validate:"max=100"`
	EstimatedBudget string `json:"estimated_budget" validate:"max=100"`
	Message         string `json:"message" validate:"required,min=10,max=2000"`
}
