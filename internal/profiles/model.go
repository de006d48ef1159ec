package profiles

import "time"

// Profile is a store-owner account. It doubles as the credential record for
// the mobile client.
type Profile struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FirstName *string   `json:"first_name,omitempty"`
	LastName  *string   `json:"last_name,omitempty"`
	StoreName *string   `json:"store_name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// PasswordHash never leaves the server.
	PasswordHash string `json:"-"`
}

// UpdateProfileInput carries profile field updates; nil means unchanged.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	StoreName *string
}
