package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitstop/internal/types"
)

func TestDecode_RecognizedEvents(t *testing.T) {
	ev, err := Decode("CustomerRegistered", []byte(registeredPayload))
	require.NoError(t, err)
	assert.Equal(t, types.CustomerRegistered{
		CustomerID:      "C1",
		Name:            "Ann",
		TelephoneNumber: "0612345678",
		EmailAddress:    "ann@example.com",
	}, ev)

	ev, err = Decode("MaintenanceJobPlanned", []byte(plannedPayload))
	require.NoError(t, err)
	planned, ok := ev.(types.MaintenanceJobPlanned)
	require.True(t, ok)
	assert.Equal(t, "J1", planned.JobID)
	assert.Equal(t, "C1", planned.CustomerInfo.ID)
	assert.Equal(t, "AB-12-CD", planned.VehicleInfo.LicenseNumber)
	assert.True(t, planned.StartTime.Equal(time.Date(2026, 3, 20, 9, 30, 0, 0, time.UTC)))

	ev, err = Decode("MaintenanceJobFinished", []byte(finishedPayload))
	require.NoError(t, err)
	assert.Equal(t, "J1", ev.(types.MaintenanceJobFinished).JobID)

	ev, err = Decode("DayHasPassed", nil)
	require.NoError(t, err)
	assert.Equal(t, types.DayHasPassed{}, ev)
}

func TestDecode_Unrecognized(t *testing.T) {
	ev, err := Decode("SomethingElse", []byte(`garbage`))
	require.NoError(t, err)
	assert.Equal(t, types.UnrecognizedEvent{Type: "SomethingElse"}, ev)
	assert.Equal(t, types.MessageType("SomethingElse"), ev.MessageType())
}

func TestDecode_TypeIsCaseSensitive(t *testing.T) {
	ev, err := Decode("customerregistered", []byte(registeredPayload))
	require.NoError(t, err)
	assert.IsType(t, types.UnrecognizedEvent{}, ev)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		payload   string
		code      types.ErrorCode
	}{
		{"truncated", "CustomerRegistered", `{"customerId":"C1"`, types.ErrCodeDecodeMalformedPayload},
		{"whitespace only", "CustomerRegistered", "  \n", types.ErrCodeDecodeMalformedPayload},
		{"wrong shape", "MaintenanceJobFinished", `["J1"]`, types.ErrCodeDecodeMalformedPayload},
		{"missing customer id", "CustomerRegistered", `{"emailAddress":"a@b.c"}`, types.ErrCodeDecodeMissingField},
		{"planned job without start time", "MaintenanceJobPlanned", `{"jobId":"J1","customerInfo":{"id":"C1"},"vehicleInfo":{"licenseNumber":"X"}}`, types.ErrCodeDecodeMissingField},
		{"missing nested customer", "MaintenanceJobPlanned", `{"jobId":"J1","startTime":"2026-03-20T09:30:00","vehicleInfo":{"licenseNumber":"X"}}`, types.ErrCodeDecodeMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.eventType, []byte(tt.payload))
			require.Error(t, err)
			assert.True(t, types.HasCode(err, tt.code), "got %v", err)
			assert.Equal(t, types.KindDecode, types.KindOf(err))
		})
	}
}
