package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/minechat-api/internal/domain"
)

// UserTokenRepo holds the single long-lived user token document.
// PK: record_id, always domain.UserTokenRecordID.
type UserTokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUserTokenRepo(client *dynamodb.Client, tableName string) *UserTokenRepo {
	return &UserTokenRepo{client: client, tableName: tableName}
}

// Put overwrites the long-lived user token record.
func (r *UserTokenRepo) Put(ctx context.Context, t *domain.UserToken) error {
	t.RecordID = domain.UserTokenRecordID
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal user token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *UserTokenRepo) Get(ctx context.Context) (*domain.UserToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("record_id", domain.UserTokenRecordID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("user token not found: %w", domain.ErrNotFound)
	}
	var t domain.UserToken
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
