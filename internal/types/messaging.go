package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MessageType is the routing key an inbound event arrives with.
type MessageType string

const (
	MessageCustomerRegistered     MessageType = "CustomerRegistered"
	MessageMaintenanceJobPlanned  MessageType = "MaintenanceJobPlanned"
	MessageMaintenanceJobFinished MessageType = "MaintenanceJobFinished"
	MessageDayHasPassed           MessageType = "DayHasPassed"
)

// Event is the closed set of inbound events the notification worker reacts
// to. Every decoded message is exactly one of CustomerRegistered,
// MaintenanceJobPlanned, MaintenanceJobFinished, DayHasPassed or
// UnrecognizedEvent.
type Event interface {
	MessageType() MessageType
	event()
}

// CustomerRegistered announces a new customer.
type CustomerRegistered struct {
	CustomerID      string `json:"customerId" validate:"required"`
	Name            string `json:"name"`
	TelephoneNumber string `json:"telephoneNumber"`
	EmailAddress    string `json:"emailAddress" validate:"required"`
}

// CustomerInfo is the customer reference embedded in a planned job.
type CustomerInfo struct {
	ID              string `json:"id" validate:"required"`
	Name            string `json:"name"`
	TelephoneNumber string `json:"telephoneNumber"`
}

// VehicleInfo is the vehicle reference embedded in a planned job.
type VehicleInfo struct {
	LicenseNumber string `json:"licenseNumber" validate:"required"`
	Brand         string `json:"brand"`
	Type          string `json:"type"`
}

// MaintenanceJobPlanned announces a job scheduled for a customer's vehicle.
type MaintenanceJobPlanned struct {
	JobID        string       `json:"jobId" validate:"required"`
	StartTime    EventTime    `json:"startTime"`
	EndTime      EventTime    `json:"endTime"`
	CustomerInfo CustomerInfo `json:"customerInfo"`
	VehicleInfo  VehicleInfo  `json:"vehicleInfo"`
	Description  string       `json:"description"`
}

// MaintenanceJobFinished announces that the workshop completed a job.
type MaintenanceJobFinished struct {
	JobID     string    `json:"jobId" validate:"required"`
	StartTime EventTime `json:"startTime"`
	EndTime   EventTime `json:"endTime"`
	Notes     string    `json:"notes"`
}

// DayHasPassed is the daily tick. It carries no data the worker relies on;
// the reference day comes from the processing clock.
type DayHasPassed struct{}

// UnrecognizedEvent stands for any message type the worker does not handle.
type UnrecognizedEvent struct {
	Type string
}

func (CustomerRegistered) MessageType() MessageType     { return MessageCustomerRegistered }
func (MaintenanceJobPlanned) MessageType() MessageType  { return MessageMaintenanceJobPlanned }
func (MaintenanceJobFinished) MessageType() MessageType { return MessageMaintenanceJobFinished }
func (DayHasPassed) MessageType() MessageType           { return MessageDayHasPassed }
func (e UnrecognizedEvent) MessageType() MessageType    { return MessageType(e.Type) }

func (CustomerRegistered) event()     {}
func (MaintenanceJobPlanned) event()  {}
func (MaintenanceJobFinished) event() {}
func (DayHasPassed) event()           {}
func (UnrecognizedEvent) event()      {}

// eventTimeLayouts are tried in order. Producers emit ISO-8601 with or without
// an offset and with up to seven fractional digits.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// EventTime is a timestamp field of an inbound event. It accepts RFC 3339 as
// well as zone-less ISO-8601 values; zone-less values are read as UTC.
type EventTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *EventTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("event time must be a string: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range eventTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized event time %q", raw)
}

// MarshalJSON implements json.Marshaler.
func (t EventTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}
