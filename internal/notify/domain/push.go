package domain

import "strings"

// DeviceEndpoint one registered device address able to receive remote pushes
type DeviceEndpoint struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	RecipientID string `gorm:"index:idx_recipient_token,unique" json:"recipient_id"`
	Token       string `gorm:"index:idx_recipient_token,unique" json:"token"`
	Platform    string `gorm:"size:20" json:"platform"`
	CreatedAt   int64  `gorm:"autoCreateTime:milli" json:"created_at"`
}

// TableName gorm table name
func (DeviceEndpoint) TableName() string { return "device_endpoints" }

// PushData data-only payload sent per endpoint; the receiving client owns
// presentation and de-duplication, not the OS
type PushData struct {
	Title          string `json:"title"`
	Body           string `json:"body"`
	Kind           string `json:"kind"`
	GroupID        string `json:"group_id,omitempty"`
	NotificationID string `json:"notification_id,omitempty"`
	PhotoID        string `json:"photo_id,omitempty"`
	DedupeKey      string `json:"dedupe_key"`
}

// PushSummary outcome of one bridge pass over a notification's endpoints
type PushSummary struct {
	Sent             int `json:"sent"`
	Failed           int `json:"failed"`
	EndpointsRemoved int `json:"endpoints_removed"`
}

// invalidEndpointMarkers error-class substrings that mean the endpoint is
// permanently gone and must be pruned
var invalidEndpointMarkers = []string{
	"NotRegistered",
	"Unregistered",
	"InvalidRegistration",
	"registration-token-not-registered",
	"invalid-argument",
	"not_found",
}

// IsEndpointInvalid report whether a push transport response body marks the
// endpoint as permanently invalid
func IsEndpointInvalid(body string) bool {
	for _, marker := range invalidEndpointMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}
