// Package gateway is the boundary to the dispatch backend: stateless
// request/response calls over HTTP with a JSON envelope, treated as
// fallible and retryable by the rest of the engine. Transport and server
// failures are normalized into the fault taxonomy here, exactly once;
// callers branch on fault codes and never see raw transport errors.
package gateway

import "context"

// LoginRequest carries the credentials for establishing a session.
type LoginRequest struct {
	Mode      string `json:"mode"` // "staff" or "guest"
	RiderID   string `json:"riderId"`
	RiderName string `json:"riderName,omitempty"`
	PIN       string `json:"pin,omitempty"`
	DeviceID  string `json:"deviceId,omitempty"`
	Platform  string `json:"platform"`
}

// RiderProfile is the server's identity record for the rider.
type RiderProfile struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Mode     string `json:"mode,omitempty"`
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	Token            string       `json:"token"`
	ExpiresInSeconds int          `json:"expiresInSeconds"`
	Rider            RiderProfile `json:"rider"`
}

// RemoteOrder is one order as reported by the queue endpoint. The raw
// status string is mapped to the internal enum by the reconciler.
type RemoteOrder struct {
	ID                    string  `json:"id"`
	OrderNumber           string  `json:"orderNumber"`
	CustomerName          string  `json:"customerName"`
	CustomerPhone         string  `json:"customerPhone,omitempty"`
	CustomerPhoneMasked   string  `json:"customerPhoneMasked,omitempty"`
	Address               string  `json:"address"`
	Status                string  `json:"status"`
	PaymentMethod         string  `json:"paymentMethod,omitempty"`
	PaymentStatus         string  `json:"paymentStatus,omitempty"`
	AmountDueCedis        float64 `json:"amountDueCedis,omitempty"`
	RequiresCollection    bool    `json:"requiresCollection,omitempty"`
	SubtotalCedis         float64 `json:"subtotalCedis,omitempty"`
	CommissionRatePercent float64 `json:"commissionRatePercent,omitempty"`
	CommissionCedis       float64 `json:"commissionCedis,omitempty"`
	CreatedAt             string  `json:"createdAt"`
	UpdatedAt             string  `json:"updatedAt"`
}

// VerifyResult is the payload of a delivery OTP check. Success false
// means the server explicitly rejected the code; that is a domain answer,
// not an error.
type VerifyResult struct {
	Success           bool `json:"success"`
	Attempts          int  `json:"attempts"`
	AttemptsRemaining int  `json:"attemptsRemaining"`
}

// CollectionResult is the payload of a cash-collection confirmation.
type CollectionResult struct {
	Confirmed     bool   `json:"confirmed"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
}

// IncidentRequest is the wire form of an incident submission.
type IncidentRequest struct {
	OrderID  string `json:"orderId,omitempty"`
	Reason   string `json:"reason"`
	Note     string `json:"note"`
	Location string `json:"location,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// IncidentResult is the payload of an accepted incident submission.
type IncidentResult struct {
	IncidentID string `json:"incidentId"`
	Status     string `json:"status"`
	Severity   string `json:"severity"`
}

// ShiftResult is the payload of a shift update.
type ShiftResult struct {
	RiderID     string `json:"riderId"`
	ShiftStatus string `json:"shiftStatus"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// Gateway is the remote boundary consumed by the sync engine. The HTTP
// Client implements it; tests substitute a scripted fake.
type Gateway interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	FetchQueue(ctx context.Context, token string, limit int) ([]RemoteOrder, error)
	VerifyDelivery(ctx context.Context, token, orderID, code string) (*VerifyResult, error)
	ConfirmCollection(ctx context.Context, token, orderID string) (*CollectionResult, error)
	SubmitIncident(ctx context.Context, token string, req IncidentRequest) (*IncidentResult, error)
	UpdateShift(ctx context.Context, token, status, note string) (*ShiftResult, error)
	RegisterDeviceToken(ctx context.Context, token, deviceToken, deviceID string) error
	Logout(ctx context.Context, token string) error
}
