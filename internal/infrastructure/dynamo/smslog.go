package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/course-remind/internal/domain"
)

// SmsLogRepo appends and counts secondary-channel send records. The table is
// append-only; rows are never updated.
type SmsLogRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSmsLogRepo(client *dynamodb.Client, tableName string) *SmsLogRepo {
	return &SmsLogRepo{client: client, tableName: tableName}
}

func (r *SmsLogRepo) Put(ctx context.Context, l *domain.SmsSendLog) error {
	item, err := smsLogItem(l)
	if err != nil {
		return fmt.Errorf("marshal sms log: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// smsLogItem marshals a log row with sent_at truncated to whole seconds.
// CountSince compares sent_at as a string against an RFC3339 bound, and a
// fractional-second timestamp sorts before the bare-second form of the same
// instant, so sub-second precision must never reach the table.
func smsLogItem(l *domain.SmsSendLog) (map[string]types.AttributeValue, error) {
	row := *l
	row.SentAt = row.SentAt.UTC().Truncate(time.Second)
	return attributevalue.MarshalMap(row)
}

// CountSince counts a user's sends at or after the given instant via the
// user_id-sent_at GSI. sent_at is stored RFC3339 so the range condition is a
// plain string comparison.
func (r *SmsLogRepo) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-sent_at-index"),
		KeyConditionExpression: aws.String("user_id = :uid AND sent_at >= :since"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid":   &types.AttributeValueMemberS{Value: userID},
			":since": &types.AttributeValueMemberS{Value: since.UTC().Format(time.RFC3339)},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, err
	}
	return int(out.Count), nil
}
