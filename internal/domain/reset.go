package domain

import "time"

// ResetSession is a single-use, time-boxed authorization to change one
// account's password, issued after a successful OTP verification.
// Sessions are never deleted — Used flips false→true exactly once.
type ResetSession struct {
	Token     string    `json:"-" dynamodbav:"token"`
	Email     string    `json:"email" dynamodbav:"email"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
	Used      bool      `json:"used" dynamodbav:"used"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}
