package dynamo

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/course-remind/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmsLogItem_DropsSubSecondPrecision(t *testing.T) {
	weekStart := time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)
	l := &domain.SmsSendLog{
		SmsID:  "s1",
		UserID: "u1",
		SentAt: weekStart.Add(500 * time.Millisecond),
	}

	item, err := smsLogItem(l)
	require.NoError(t, err)

	av, ok := item["sent_at"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "2024-12-30T00:00:00Z", av.Value)
	// A send landing in the boundary second must sort at or above the week
	// bound CountSince queries with, or it escapes its week's quota.
	assert.GreaterOrEqual(t, av.Value, weekStart.Format(time.RFC3339))
}

func TestSmsLogItem_DoesNotMutateTheRow(t *testing.T) {
	at := time.Date(2025, 1, 2, 10, 0, 0, 123456789, time.UTC)
	l := &domain.SmsSendLog{SmsID: "s1", UserID: "u1", SentAt: at}

	_, err := smsLogItem(l)
	require.NoError(t, err)
	assert.Equal(t, at, l.SentAt)
}
