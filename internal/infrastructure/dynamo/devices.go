package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/course-remind/internal/domain"
)

// DeviceRepo provides typed DynamoDB operations for the devices table.
// The table is keyed by destination token, so token uniqueness and claim
// semantics fall out of the key schema.
type DeviceRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewDeviceRepo(client *dynamodb.Client, tableName string) *DeviceRepo {
	return &DeviceRepo{client: client, tableName: tableName}
}

func (r *DeviceRepo) Put(ctx context.Context, d *domain.DeviceRegistration) error {
	item, err := attributevalue.MarshalMap(d)
	if err != nil {
		return fmt.Errorf("marshal device: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// PutIfAbsent creates the registration only when no row with this token
// exists yet. Returns domain.ErrConflict when another writer got there first.
func (r *DeviceRepo) PutIfAbsent(ctx context.Context, d *domain.DeviceRegistration) error {
	item, err := attributevalue.MarshalMap(d)
	if err != nil {
		return fmt.Errorf("marshal device: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#tk)"),
		ExpressionAttributeNames: map[string]string{
			"#tk": "token",
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("token already registered: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *DeviceRepo) GetByToken(ctx context.Context, token string) (*domain.DeviceRegistration, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("token", token),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("device not found: %w", domain.ErrNotFound)
	}
	var d domain.DeviceRegistration
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListActiveByUser returns the user's active registrations via the
// user_id-index GSI. Deactivated rows are filtered out server-side.
func (r *DeviceRepo) ListActiveByUser(ctx context.Context, userID string) ([]domain.DeviceRegistration, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		FilterExpression:       aws.String("#en = :t"),
		ExpressionAttributeNames: map[string]string{
			"#en": "enable",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
			":t":   &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	if err != nil {
		return nil, err
	}
	var devices []domain.DeviceRegistration
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// ListByUser returns every registration of a user, active or not.
func (r *DeviceRepo) ListByUser(ctx context.Context, userID string) ([]domain.DeviceRegistration, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, err
	}
	var devices []domain.DeviceRegistration
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func (r *DeviceRepo) Update(ctx context.Context, token string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("token", token),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func (r *DeviceRepo) Deactivate(ctx context.Context, token string) error {
	return r.Update(ctx, token, map[string]interface{}{"enable": false})
}

// DeleteStale hard-deletes rows that have been inactive since before cutoff.
// Active rows are never touched regardless of age. Returns the delete count.
func (r *DeviceRepo) DeleteStale(ctx context.Context, cutoff time.Time) (int, error) {
	deleted := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(r.tableName),
			FilterExpression: aws.String("#en = :f AND updated_at < :cutoff"),
			ExpressionAttributeNames: map[string]string{
				"#en": "enable",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":f":      &types.AttributeValueMemberBOOL{Value: false},
				":cutoff": &types.AttributeValueMemberS{Value: cutoff.UTC().Format(time.RFC3339)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return deleted, err
		}
		for _, item := range out.Items {
			tok, ok := item["token"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(r.tableName),
				Key:       strKey("token", tok.Value),
			}); err != nil {
				return deleted, err
			}
			deleted++
		}
		if out.LastEvaluatedKey == nil {
			return deleted, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
