package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/course-remind/internal/domain"
)

// CourseRepo reads course recurrence definitions. The course store is owned
// by the course-authoring side; this service never writes it.
type CourseRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewCourseRepo(client *dynamodb.Client, tableName string) *CourseRepo {
	return &CourseRepo{client: client, tableName: tableName}
}

func (r *CourseRepo) Get(ctx context.Context, courseID string) (*domain.CourseRecurrence, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("course_id", courseID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("course not found: %w", domain.ErrNotFound)
	}
	var c domain.CourseRecurrence
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
