package domain

import "time"

// MailAppName is embedded in OTP mail template data.
const MailAppName = "MineChat"

// MailTemplate names a mail template and its substitution data.
type MailTemplate struct {
	Name string            `json:"name" dynamodbav:"name"`
	Data map[string]string `json:"data" dynamodbav:"data"`
}

// MailMessage is one queued outbound email. Records are appended to the
// outbox table and consumed by an external mailer; this service never
// delivers mail itself.
type MailMessage struct {
	MailID    string       `json:"id" dynamodbav:"mail_id"`
	To        string       `json:"to" dynamodbav:"to"`
	Template  MailTemplate `json:"template" dynamodbav:"template"`
	CreatedAt time.Time    `json:"created_at" dynamodbav:"created_at"`
}
