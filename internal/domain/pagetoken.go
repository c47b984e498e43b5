package domain

import "time"

// Token provenance tags recorded on every stored page token.
const (
	TokenSourceSystemUser = "system_user"
	TokenSourceUserLogin  = "user_login"
	TokenSourceManual     = "manual"
)

// PageToken is a messaging-platform page's access credential plus the result
// of its most recent introspection. ExpiresAt is nil for non-expiring tokens
// (page tokens minted from a long-lived user token never expire).
type PageToken struct {
	PageID          string     `json:"page_id" dynamodbav:"page_id"`
	PageAccessToken string     `json:"-" dynamodbav:"page_access_token"`
	Source          string     `json:"source" dynamodbav:"source"`
	IsValid         bool       `json:"is_valid" dynamodbav:"is_valid"`
	ExpiresAt       *time.Time `json:"expires_at" dynamodbav:"expires_at"`
	CheckedAt       time.Time  `json:"checked_at" dynamodbav:"checked_at"`
	UpdatedAt       time.Time  `json:"updated_at" dynamodbav:"updated_at"`
	PageName        string     `json:"page_name,omitempty" dynamodbav:"page_name"`
	Category        string     `json:"category,omitempty" dynamodbav:"category"`
}

// UserTokenRecordID keys the single long-lived user token document.
const UserTokenRecordID = "facebook"

// UserToken is the long-lived user-level credential used to mint page tokens
// when no system-user credential is configured. Overwritten on each refresh.
type UserToken struct {
	RecordID           string    `json:"-" dynamodbav:"record_id"`
	LongLivedUserToken string    `json:"-" dynamodbav:"long_lived_user_token"`
	ExpiresAt          time.Time `json:"expires_at" dynamodbav:"expires_at"`
	UpdatedAt          time.Time `json:"updated_at" dynamodbav:"updated_at"`
}
