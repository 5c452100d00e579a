package model

import "strings"

// DeliveryStatus is the internal classification of a server-reported
// order status.
type DeliveryStatus string

const (
	StatusReadyForPickup DeliveryStatus = "READY_FOR_PICKUP"
	StatusOutForDelivery DeliveryStatus = "OUT_FOR_DELIVERY"
	StatusDelivered      DeliveryStatus = "DELIVERED"
	StatusOther          DeliveryStatus = "OTHER"
)

// statusAliases is the fixed lookup table from raw server statuses to the
// internal enum. Matching is case-insensitive; anything unlisted maps to
// StatusOther so an unrecognized vocabulary never breaks callers.
var statusAliases = map[string]DeliveryStatus{
	"READY_FOR_PICKUP": StatusReadyForPickup,
	"READY":            StatusReadyForPickup,
	"PICKUP_READY":     StatusReadyForPickup,
	"ASSIGNED":         StatusReadyForPickup,
	"PENDING_PICKUP":   StatusReadyForPickup,
	"ACCEPTED":         StatusReadyForPickup,

	"OUT_FOR_DELIVERY": StatusOutForDelivery,
	"ON_THE_WAY":       StatusOutForDelivery,
	"DISPATCHED":       StatusOutForDelivery,
	"IN_TRANSIT":       StatusOutForDelivery,

	"DELIVERED": StatusDelivered,
	"COMPLETED": StatusDelivered,
}

// ParseDeliveryStatus maps a raw server status to the internal enum.
// Unknown values map to StatusOther, never an error.
func ParseDeliveryStatus(raw string) DeliveryStatus {
	if s, ok := statusAliases[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusOther
}

// Active reports whether the order still needs rider action.
func (s DeliveryStatus) Active() bool {
	return s == StatusReadyForPickup || s == StatusOutForDelivery
}

// normalizeToken lowercases and trims a wire token for comparison.
func normalizeToken(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
