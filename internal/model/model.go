// Package model holds the domain types shared across the sync engine:
// sessions, cached orders, incidents, and the fixed mappings between the
// server's raw vocabulary and the internal enums.
package model

import "time"

// LoginMode distinguishes staff riders (full credentials, offline PIN)
// from guest riders (name only, online-only).
type LoginMode string

const (
	LoginModeStaff LoginMode = "STAFF"
	LoginModeGuest LoginMode = "GUEST"
)

// ParseLoginMode maps a server mode string, falling back to def for
// unknown values.
func ParseLoginMode(raw string, def LoginMode) LoginMode {
	switch normalizeToken(raw) {
	case "staff":
		return LoginModeStaff
	case "guest":
		return LoginModeGuest
	default:
		return def
	}
}

// Session is the authenticated identity for a device. Exactly one session
// is active at a time; it is persisted in the credential vault.
type Session struct {
	RiderID         string    `json:"rider_id"`
	RiderName       string    `json:"rider_name"`
	AuthToken       string    `json:"auth_token"`
	AuthenticatedAt time.Time `json:"authenticated_at"`
	Mode            LoginMode `json:"mode"`
}

// ShiftStatus is the rider-declared availability, independent of network
// connectivity.
type ShiftStatus string

const (
	ShiftOnline  ShiftStatus = "ONLINE"
	ShiftOffline ShiftStatus = "OFFLINE"
)

// APIValue returns the lowercase wire form of the shift status.
func (s ShiftStatus) APIValue() string {
	if s == ShiftOnline {
		return "online"
	}
	return "offline"
}

// ParseShiftStatus maps a server shift string, falling back to def for
// unknown values.
func ParseShiftStatus(raw string, def ShiftStatus) ShiftStatus {
	switch normalizeToken(raw) {
	case "online":
		return ShiftOnline
	case "offline":
		return ShiftOffline
	default:
		return def
	}
}

// PaymentStatus is the server-reported payment state of an order.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "PAID"
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentUnknown PaymentStatus = "UNKNOWN"
)

// ParsePaymentStatus maps a raw payment string to the internal enum.
func ParsePaymentStatus(raw string) PaymentStatus {
	switch normalizeToken(raw) {
	case "paid", "collected", "settled":
		return PaymentPaid
	case "unpaid", "pending", "due":
		return PaymentUnpaid
	default:
		return PaymentUnknown
	}
}

// Order is a cached dispatch order. Rows mirror the latest remote
// snapshot: the cache is never a superset of server truth. Phone numbers
// are stored pre-masked; the unmasked value never persists.
type Order struct {
	ID                    string
	OrderNumber           string
	CustomerName          string
	CustomerPhoneMasked   string
	Address               string
	Status                DeliveryStatus
	PaymentMethod         string
	PaymentStatus         PaymentStatus
	AmountDueCedis        float64
	RequiresCollection    bool
	SubtotalCedis         float64
	CommissionRatePercent float64
	CommissionCedis       float64
	CreatedAt             string // RFC 3339, as reported by the server
	UpdatedAt             string
	CachedAt              time.Time
}

// CollectionPending reports whether cash must still be collected before
// the delivery can be completed.
func (o Order) CollectionPending() bool {
	return o.RequiresCollection && o.AmountDueCedis > 0 && o.PaymentStatus != PaymentPaid
}

// Metrics summarizes today's delivery performance. See the metrics
// package for the computation rules.
type Metrics struct {
	DeliveriesToday   int   `json:"deliveries_today"`
	OnTimeRatePercent int   `json:"on_time_rate_percent"`
	AverageMinutes    int   `json:"average_minutes"`
	WeeklyTrend       []int `json:"weekly_trend"` // 7 buckets, oldest first
}

// ThemeMode is a user display preference. Preserved across logout.
type ThemeMode string

const (
	ThemeSystem ThemeMode = "SYSTEM"
	ThemeLight  ThemeMode = "LIGHT"
	ThemeDark   ThemeMode = "DARK"
)

// RingtoneOption selects the dispatch alert tone. Preserved across logout.
type RingtoneOption string

const (
	RingtonePremiumChime  RingtoneOption = "PREMIUM_CHIME"
	RingtoneExecutiveBell RingtoneOption = "EXECUTIVE_BELL"
	RingtoneCrispAlert    RingtoneOption = "CRISP_ALERT"
)
