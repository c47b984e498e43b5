package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// ConversationRepo manages per-account conversation aggregates.
// PK: account_id, SK: conversation_id.
type ConversationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewConversationRepo(client *dynamodb.Client, tableName string) *ConversationRepo {
	return &ConversationRepo{client: client, tableName: tableName}
}

// Merge upserts the conversation document: sets are merged in, adds are
// applied as atomic counters. A single UpdateItem covers both, so the
// unread-count increment can never race with the field merge.
func (r *ConversationRepo) Merge(ctx context.Context, accountID, conversationID string, sets map[string]interface{}, adds map[string]int) error {
	expr, names, values, err := buildMergeExpr(sets, adds)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       compositeKey("account_id", accountID, "conversation_id", conversationID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}

// Archive flags the conversation without touching its messages.
func (r *ConversationRepo) Archive(ctx context.Context, accountID, conversationID string) error {
	return r.Merge(ctx, accountID, conversationID, map[string]interface{}{
		fieldArchived: true,
	}, nil)
}

// Delete removes the conversation document. Used only by the hard-delete
// path after the platform-side messages are gone.
func (r *ConversationRepo) Delete(ctx context.Context, accountID, conversationID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("account_id", accountID, "conversation_id", conversationID),
	})
	return err
}
