package domain

import "time"

// RoleAdmin gates the token-management endpoints.
const RoleAdmin = "admin"

// Account is a chat-app account as seen by this service: the credential
// store target for password resets and the owner lookup for webhook routing.
// FacebookPageID is set when the account has connected a page.
type Account struct {
	AccountID      string    `json:"id" dynamodbav:"account_id"`
	Email          string    `json:"email" dynamodbav:"email"`
	DisplayName    string    `json:"display_name" dynamodbav:"display_name"`
	PasswordHash   string    `json:"-" dynamodbav:"password_hash"`
	FacebookPageID string    `json:"facebook_page_id,omitempty" dynamodbav:"facebook_page_id"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}
