package domain

import "time"

// OTPCode is a pending one-time passcode keyed by normalized email.
// Overwritten on every send (subject to the resend cooldown), deleted on
// successful verification or when expiry is detected.
type OTPCode struct {
	Email      string    `json:"email" dynamodbav:"email"`
	Code       string    `json:"-" dynamodbav:"code"`
	CreatedAt  time.Time `json:"created_at" dynamodbav:"created_at"`
	LastSentAt time.Time `json:"last_sent_at" dynamodbav:"last_sent_at"`
	ExpiresAt  time.Time `json:"expires_at" dynamodbav:"expires_at"`
	Attempts   int       `json:"attempts" dynamodbav:"attempts"`
}
