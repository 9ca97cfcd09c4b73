package settings

import "time"

// Settings is the single editable configuration row behind the public site:
// offer pricing, the homepage stats strip, contact info and social links.
type Settings struct {
	StarterOriginalPrice float64 `json:"starter_original_price" validate:"gte=0"`
	StarterCurrentPrice  float64 `json:"starter_current_price" validate:"gte=0"`
	StarterTotalSlots    int     `json:"starter_total_slots" validate:"gte=0,lte=1000"`

	ProOriginalPrice float64 `json:"pro_original_price" validate:"gte=0"`
	ProCurrentPrice  float64 `json:"pro_current_price" validate:"gte=0"`

	StatsProjectsCompleted int `json:"stats_projects_completed" validate:"gte=0"`
	StatsSatisfiedClients  int `json:"stats_satisfied_clients" validate:"gte=0"`
	StatsYearsExperience   int `json:"stats_years_experience" validate:"gte=0"`
	StatsTechnologiesUsed  int `json:"stats_technologies_used" validate:"gte=0"`

	ContactPhone   string `json:"contact_phone" validate:"max=50"`
	ContactEmail   string `json:"contact_email" validate:"omitempty,email"`
	ContactAddress string `json:"contact_address" validate:"max=300"`

	SocialTwitter  string `json:"social_twitter" validate:"omitempty,url"`
	SocialLinkedin string `json:"social_linkedin" validate:"omitempty,url"`
	SocialFacebook string `json:"social_facebook" validate:"omitempty,url"`

	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by,omitempty"`
}
