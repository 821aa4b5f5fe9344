package sns

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/course-remind/internal/config"
)

// SMSSender sends SMS messages via AWS SNS.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type smsSender struct {
	client *sns.Client
}

func NewSMSSender(cfg *config.Config) (SMSSender, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return &smsSender{client: client}, nil
}

func (s *smsSender) SendSMS(ctx context.Context, to, message string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: &to,
		Message:     &message,
	})
	return err
}
