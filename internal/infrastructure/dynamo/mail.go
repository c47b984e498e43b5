package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/minechat-api/internal/domain"
)

// MailRepo appends outbound mail records to the outbox table.
// An external mailer consumes and delivers them.
type MailRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewMailRepo(client *dynamodb.Client, tableName string) *MailRepo {
	return &MailRepo{client: client, tableName: tableName}
}

func (r *MailRepo) Put(ctx context.Context, m *domain.MailMessage) error {
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}
