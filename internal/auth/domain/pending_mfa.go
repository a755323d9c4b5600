package domain

import "time"

// PendingMFA is the server-side record tracking a login awaiting its MFA
// step-up. The pending username is held here rather than trusted as a client
// claim on the verify call; only the code hash is stored.
type PendingMFA struct {
	Username  string    `json:"username"`
	CodeHash  string    `json:"code_hash"`
	DeviceID  string    `json:"device_id"`
	CreatedAt time.Time `json:"created_at"`
}
