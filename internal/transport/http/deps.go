package http

import (
	"github.com/minechat-api/internal/infrastructure/dynamo"
	"github.com/minechat-api/internal/infrastructure/facebook"
	jwtinfra "github.com/minechat-api/internal/infrastructure/jwt"
	"github.com/minechat-api/internal/infrastructure/openai"
	s3infra "github.com/minechat-api/internal/infrastructure/s3"
	"github.com/minechat-api/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
// Archive, Alerts, and JWTProvider are optional; the router wires around
// their absence.
type Deps struct {
	OTPRepo          *dynamo.OTPRepo
	ResetSessionRepo *dynamo.ResetSessionRepo
	PageTokenRepo    *dynamo.PageTokenRepo
	UserTokenRepo    *dynamo.UserTokenRepo
	AccountRepo      *dynamo.AccountRepo
	MessageRepo      *dynamo.MessageRepo
	ConversationRepo *dynamo.ConversationRepo
	MailRepo         *dynamo.MailRepo
	Graph            *facebook.Client
	OpenAI           *openai.Client
	Archive          *s3infra.Archive
	Alerts           sns.AlertPublisher
	JWTProvider      *jwtinfra.Provider
}
