package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDeliveryStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want DeliveryStatus
	}{
		{"ACCEPTED", StatusReadyForPickup},
		{"accepted", StatusReadyForPickup},
		{"  Ready  ", StatusReadyForPickup},
		{"PICKUP_READY", StatusReadyForPickup},
		{"ASSIGNED", StatusReadyForPickup},
		{"PENDING_PICKUP", StatusReadyForPickup},
		{"OUT_FOR_DELIVERY", StatusOutForDelivery},
		{"on_the_way", StatusOutForDelivery},
		{"DISPATCHED", StatusOutForDelivery},
		{"IN_TRANSIT", StatusOutForDelivery},
		{"DELIVERED", StatusDelivered},
		{"Completed", StatusDelivered},
		{"WEIRD_UNKNOWN", StatusOther},
		{"", StatusOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseDeliveryStatus(tt.raw), "raw=%q", tt.raw)
	}
}

func TestDeliveryStatus_Active(t *testing.T) {
	assert.True(t, StatusReadyForPickup.Active())
	assert.True(t, StatusOutForDelivery.Active())
	assert.False(t, StatusDelivered.Active())
	assert.False(t, StatusOther.Active())
}

func TestMaskPhone(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"0551234567", "05******67"},
		{"+233 55 123 4567", "23******67"},
		{"123", "****"},
		{"", "****"},
		{"abcd", "****"},
		{"1234", "12******34"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaskPhone(tt.raw), "raw=%q", tt.raw)
	}
}

func TestParseLoginMode(t *testing.T) {
	assert.Equal(t, LoginModeGuest, ParseLoginMode("guest", LoginModeStaff))
	assert.Equal(t, LoginModeStaff, ParseLoginMode(" STAFF ", LoginModeGuest))
	assert.Equal(t, LoginModeStaff, ParseLoginMode("driver", LoginModeStaff))
}

func TestParseShiftStatus(t *testing.T) {
	assert.Equal(t, ShiftOnline, ParseShiftStatus("online", ShiftOffline))
	assert.Equal(t, ShiftOffline, ParseShiftStatus("OFFLINE", ShiftOnline))
	assert.Equal(t, ShiftOnline, ParseShiftStatus("??", ShiftOnline))
	assert.Equal(t, "online", ShiftOnline.APIValue())
	assert.Equal(t, "offline", ShiftOffline.APIValue())
}

func TestIncidentCategory_Wire(t *testing.T) {
	assert.Equal(t, "MEDICAL_EMERGENCY", IncidentMedical.ServerReason())
	assert.Equal(t, "SECURITY_THREAT", IncidentSecurity.ServerReason())
	assert.Equal(t, "ROAD_BLOCK", IncidentRoadBlock.ServerReason())

	assert.Equal(t, "high", IncidentAccident.Severity())
	assert.Equal(t, "medium", IncidentBadWeather.Severity())
	assert.Equal(t, "low", IncidentOther.Severity())
}

func TestParseIncidentCategory_Fallback(t *testing.T) {
	assert.Equal(t, IncidentMotorBreakdown, ParseIncidentCategory("motor_breakdown"))
	assert.Equal(t, IncidentOther, ParseIncidentCategory("SOMETHING_NEW"))
}

func TestOrder_CollectionPending(t *testing.T) {
	o := Order{RequiresCollection: true, AmountDueCedis: 42, PaymentStatus: PaymentUnpaid}
	assert.True(t, o.CollectionPending())

	o.PaymentStatus = PaymentPaid
	assert.False(t, o.CollectionPending())

	o = Order{RequiresCollection: true, AmountDueCedis: 0, PaymentStatus: PaymentUnpaid}
	assert.False(t, o.CollectionPending())

	o = Order{RequiresCollection: false, AmountDueCedis: 10, PaymentStatus: PaymentUnpaid}
	assert.False(t, o.CollectionPending())
}
