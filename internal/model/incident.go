package model

import (
	"strings"
	"time"
)

// IncidentCategory classifies a rider-reported incident.
type IncidentCategory string

const (
	IncidentMotorBreakdown      IncidentCategory = "MOTOR_BREAKDOWN"
	IncidentAccident            IncidentCategory = "ACCIDENT"
	IncidentBadWeather          IncidentCategory = "BAD_WEATHER"
	IncidentRoadBlock           IncidentCategory = "ROAD_BLOCK"
	IncidentMedical             IncidentCategory = "MEDICAL"
	IncidentSecurity            IncidentCategory = "SECURITY"
	IncidentCustomerUnreachable IncidentCategory = "CUSTOMER_UNREACHABLE"
	IncidentOther               IncidentCategory = "OTHER"
)

// ParseIncidentCategory maps a stored category name back to the enum.
// Unknown values fall back to IncidentOther so old rows stay readable.
func ParseIncidentCategory(raw string) IncidentCategory {
	switch IncidentCategory(strings.ToUpper(strings.TrimSpace(raw))) {
	case IncidentMotorBreakdown, IncidentAccident, IncidentBadWeather,
		IncidentRoadBlock, IncidentMedical, IncidentSecurity,
		IncidentCustomerUnreachable, IncidentOther:
		return IncidentCategory(strings.ToUpper(strings.TrimSpace(raw)))
	default:
		return IncidentOther
	}
}

// ServerReason returns the wire reason code for a category.
func (c IncidentCategory) ServerReason() string {
	switch c {
	case IncidentMedical:
		return "MEDICAL_EMERGENCY"
	case IncidentSecurity:
		return "SECURITY_THREAT"
	default:
		return string(c)
	}
}

// Severity returns the wire severity for a category.
func (c IncidentCategory) Severity() string {
	switch c {
	case IncidentMotorBreakdown, IncidentAccident, IncidentMedical, IncidentSecurity:
		return "high"
	case IncidentBadWeather, IncidentRoadBlock, IncidentCustomerUnreachable:
		return "medium"
	default:
		return "low"
	}
}

// IncidentSyncStatus tracks whether an incident reached the server.
type IncidentSyncStatus string

const (
	IncidentPending IncidentSyncStatus = "PENDING"
	IncidentSynced  IncidentSyncStatus = "SYNCED"
)

// IncidentDraft is the rider's input for a new incident report.
type IncidentDraft struct {
	OrderID  string // optional
	Category IncidentCategory
	Note     string
	Location string // optional
}

// IncidentRecord is a row of the durable incident audit log. Written
// optimistically on every submission attempt; SyncStatus flips to SYNCED
// only on confirmed server acceptance.
type IncidentRecord struct {
	ID         string
	OrderID    string // empty when not tied to an order
	Category   IncidentCategory
	Note       string
	Location   string
	CreatedAt  time.Time
	SyncStatus IncidentSyncStatus
	SyncedAt   time.Time // zero until synced
}

// PendingIncident is a locally queued incident write awaiting replay.
// Deleted only after the matching remote submission succeeds.
type PendingIncident struct {
	ID         string
	IncidentID string // matching incident_log row
	OrderID    string
	RiderID    string
	Category   IncidentCategory
	Note       string
	CreatedAt  time.Time
}
