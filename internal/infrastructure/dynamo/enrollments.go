package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/course-remind/internal/domain"
)

// EnrollmentRepo reads the enrollment store. Like courses, it is a read-only
// view: enrollment editing happens in the course CRUD, not here.
type EnrollmentRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewEnrollmentRepo(client *dynamodb.Client, tableName string) *EnrollmentRepo {
	return &EnrollmentRepo{client: client, tableName: tableName}
}

func (r *EnrollmentRepo) queryActive(ctx context.Context, index, keyAttr, keyVal string) ([]domain.Enrollment, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String(keyAttr + " = :k"),
		FilterExpression:       aws.String("active = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k": &types.AttributeValueMemberS{Value: keyVal},
			":t": &types.AttributeValueMemberBOOL{Value: true},
		},
	})
	if err != nil {
		return nil, err
	}
	var enrollments []domain.Enrollment
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &enrollments); err != nil {
		return nil, err
	}
	return enrollments, nil
}

// ListActiveByCourse returns active enrollments of one course (broadcast fan-out).
func (r *EnrollmentRepo) ListActiveByCourse(ctx context.Context, courseID string) ([]domain.Enrollment, error) {
	return r.queryActive(ctx, "course_id-index", "course_id", courseID)
}

// ListActiveByUser returns the courses a user is actively enrolled in.
func (r *EnrollmentRepo) ListActiveByUser(ctx context.Context, userID string) ([]domain.Enrollment, error) {
	return r.queryActive(ctx, "user_id-index", "user_id", userID)
}

// ScanActive walks every active enrollment row, paging through the table.
// The periodic dispatch scan is the only caller.
func (r *EnrollmentRepo) ScanActive(ctx context.Context) ([]domain.Enrollment, error) {
	var all []domain.Enrollment
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(r.tableName),
			FilterExpression: aws.String("active = :t"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":t": &types.AttributeValueMemberBOOL{Value: true},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.Enrollment
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if out.LastEvaluatedKey == nil {
			return all, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
