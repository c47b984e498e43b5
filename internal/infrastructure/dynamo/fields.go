package dynamo

// DynamoDB attribute names used in update expressions across all repos.
const (
	fieldAttempts     = "attempts"
	fieldUsed         = "used"
	fieldArchived     = "archived"
	fieldUpdatedAt    = "updated_at"
	fieldPasswordHash = "password_hash"
)
