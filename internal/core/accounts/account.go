package accounts

import "time"

// Account represents one external platform identity a user has connected.
// Accounts are created by the auth service on a successful OAuth callback;
// this service only reads them and soft-disables them when a credential
// refresh permanently fails.
type Account struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Platform    string     `json:"platform"`
	ExternalUID string     `json:"externalUid"`
	DisplayName string     `json:"displayName"`
	AvatarURL   string     `json:"avatarUrl,omitempty"`
	Disabled    bool       `json:"disabled"`
	DisabledAt  *time.Time `json:"disabledAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
