package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/minechat-api/internal/domain"
)

// ResetSessionRepo manages password-reset sessions. PK: token.
// Sessions are never deleted; MarkUsed flips the used flag.
type ResetSessionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewResetSessionRepo(client *dynamodb.Client, tableName string) *ResetSessionRepo {
	return &ResetSessionRepo{client: client, tableName: tableName}
}

func (r *ResetSessionRepo) Put(ctx context.Context, s *domain.ResetSession) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal reset session: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ResetSessionRepo) Get(ctx context.Context, token string) (*domain.ResetSession, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token", token),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("reset session not found: %w", domain.ErrNotFound)
	}
	var s domain.ResetSession
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ResetSessionRepo) MarkUsed(ctx context.Context, token string) error {
	expr, names, values, err := buildUpdateExpr(map[string]interface{}{
		fieldUsed:      true,
		fieldUpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("token", token),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}
