package sns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/course-remind/internal/config"
	"github.com/course-remind/internal/domain"
)

// PushPayload is one notification as handed to the push transport. Channel
// carries the client-side notification channel resolved from the user's
// sound preference.
type PushPayload struct {
	Title   string
	Body    string
	Channel string
	Data    map[string]string
}

// PushSender provisions platform endpoints for destination tokens and
// publishes payloads to them. Implementations report a dead or malformed
// destination by wrapping domain.ErrInvalidToken.
type PushSender interface {
	CreateEndpoint(ctx context.Context, platform, token string) (string, error)
	Publish(ctx context.Context, endpointARN string, payload PushPayload) error
}

type pushSender struct {
	client  *sns.Client
	fcmARN  string
	apnsARN string
}

func NewPushSender(cfg *config.Config) (PushSender, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.SNSFCMApplicationARN == "" {
		return nil, errors.New("SNS_FCM_APPLICATION_ARN not set")
	}
	return &pushSender{
		client:  client,
		fcmARN:  cfg.SNSFCMApplicationARN,
		apnsARN: cfg.SNSAPNSApplicationARN,
	}, nil
}

func (s *pushSender) applicationARN(platform string) string {
	if platform == domain.PlatformIOS && s.apnsARN != "" {
		return s.apnsARN
	}
	return s.fcmARN
}

func (s *pushSender) CreateEndpoint(ctx context.Context, platform, token string) (string, error) {
	out, err := s.client.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(s.applicationARN(platform)),
		Token:                  aws.String(token),
	})
	if err != nil {
		return "", classify(err)
	}
	return aws.ToString(out.EndpointArn), nil
}

func (s *pushSender) Publish(ctx context.Context, endpointARN string, payload PushPayload) error {
	data := map[string]string{}
	for k, v := range payload.Data {
		data[k] = v
	}
	data["channel"] = payload.Channel

	msg := map[string]any{
		"default": payload.Body,
		"GCM": map[string]any{
			"notification": map[string]string{
				"title":              payload.Title,
				"body":               payload.Body,
				"android_channel_id": payload.Channel,
			},
			"data": data,
		},
		"APNS": map[string]any{
			"aps": map[string]any{
				"alert": map[string]string{
					"title": payload.Title,
					"body":  payload.Body,
				},
				"category": payload.Channel,
			},
			"data": data,
		},
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	_, err = s.client.Publish(ctx, &sns.PublishInput{
		MessageStructure: aws.String("json"),
		Message:          aws.String(string(raw)),
		TargetArn:        aws.String(endpointARN),
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// classify maps SNS errors that mean "this destination is dead" onto
// domain.ErrInvalidToken so dispatch can deactivate the device.
func classify(err error) error {
	var disabled *types.EndpointDisabledException
	var invalid *types.InvalidParameterException
	var notFound *types.NotFoundException
	if errors.As(err, &disabled) || errors.As(err, &invalid) || errors.As(err, &notFound) {
		return fmt.Errorf("%v: %w", err, domain.ErrInvalidToken)
	}
	return err
}
