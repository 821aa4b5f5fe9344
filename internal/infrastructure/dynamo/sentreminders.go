package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/course-remind/internal/domain"
)

// SentReminderRepo records which (user, course, session) reminders the
// dispatch scan already delivered. Rows expire via table TTL.
type SentReminderRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSentReminderRepo(client *dynamodb.Client, tableName string) *SentReminderRepo {
	return &SentReminderRepo{client: client, tableName: tableName}
}

func (r *SentReminderRepo) Put(ctx context.Context, s *domain.SentReminder) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal sent reminder: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *SentReminderRepo) Exists(ctx context.Context, dedupKey string) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("dedup_key", dedupKey),
	})
	if err != nil {
		return false, err
	}
	return out.Item != nil, nil
}
