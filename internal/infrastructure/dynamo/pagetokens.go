package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/minechat-api/internal/domain"
)

// PageTokenRepo manages stored page access tokens. PK: page_id.
// Records are created by derive/exchange/manual-store and merged by every
// validation or rotation pass; they are never hard-deleted in normal
// operation.
type PageTokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPageTokenRepo(client *dynamodb.Client, tableName string) *PageTokenRepo {
	return &PageTokenRepo{client: client, tableName: tableName}
}

func (r *PageTokenRepo) Put(ctx context.Context, t *domain.PageToken) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal page token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *PageTokenRepo) Get(ctx context.Context, pageID string) (*domain.PageToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("page_id", pageID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("page token not found: %w", domain.ErrNotFound)
	}
	var t domain.PageToken
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Update merges the given fields into the stored record, creating it when
// absent (UpdateItem upsert), matching document-store merge semantics.
func (r *PageTokenRepo) Update(ctx context.Context, pageID string, updates map[string]interface{}) error {
	expr, names, values, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("page_id", pageID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}

// Scan returns every stored page token. The table holds one record per
// connected page, so a full scan per rotation pass is cheap.
func (r *PageTokenRepo) Scan(ctx context.Context) ([]domain.PageToken, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
	})
	if err != nil {
		return nil, err
	}
	var tokens []domain.PageToken
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}
