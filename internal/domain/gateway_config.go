package domain

import (
	"encoding/json"
	"time"
)

// GatewayConfig is the stored configuration of one payment gateway.
// Settings holds the decrypted JSON object; it is never persisted in clear text.
type GatewayConfig struct {
	Name      string
	Settings  json.RawMessage
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
