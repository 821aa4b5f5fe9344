package domain

import "time"

const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// DeviceRegistration is one push-capable endpoint owned by a user. The
// destination token is the table's primary key, so it is globally unique by
// construction: registering a token that already exists reassigns it to the
// new registrant (a token follows the physical device, not the account that
// last logged in from it).
type DeviceRegistration struct {
	DeviceID    string    `json:"id" dynamodbav:"device_id"`
	UserID      string    `json:"user_id" dynamodbav:"user_id"`
	Token       string    `json:"token" dynamodbav:"token"`
	Platform    string    `json:"platform" dynamodbav:"platform"`
	DeviceUUID  string    `json:"device_uuid,omitempty" dynamodbav:"device_uuid"`
	AppVersion  string    `json:"app_version,omitempty" dynamodbav:"app_version"`
	EndpointARN string    `json:"-" dynamodbav:"endpoint_arn"`
	Enable      bool      `json:"enable" dynamodbav:"enable"`
	LastUsedAt  time.Time `json:"last_used" dynamodbav:"last_used_at"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Legacy reports whether the registration predates push-endpoint
// provisioning and therefore cannot be delivered to over push.
func (d *DeviceRegistration) Legacy() bool { return d.EndpointARN == "" }

type RegisterDeviceRequest struct {
	Token      string `json:"token" validate:"required,min=16,max=512"`
	Platform   string `json:"platform" validate:"required,oneof=ios android"`
	DeviceUUID string `json:"device_uuid"`
	AppVersion string `json:"app_version"`
}
