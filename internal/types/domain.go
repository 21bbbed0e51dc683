package types

import "time"

// Customer is the projection of a registered customer. It is written once per
// CustomerRegistered event and read when composing notifications.
type Customer struct {
	CustomerID      string `json:"customer_id" db:"customer_id"`
	Name            string `json:"name" db:"name"`
	TelephoneNumber string `json:"telephone_number" db:"telephone_number"`
	EmailAddress    string `json:"email_address" db:"email_address"`
}

// MaintenanceJob is the projection of a planned maintenance job. It lives from
// the MaintenanceJobPlanned event until the job is finished or its reminder
// has been sent.
//
// StartTime is a wall-clock appointment time carried in the UTC location; its
// date component decides whether the job is due on a given day.
type MaintenanceJob struct {
	JobID         string    `json:"job_id" db:"job_id"`
	CustomerID    string    `json:"customer_id" db:"customer_id"`
	LicenseNumber string    `json:"license_number" db:"license_number"`
	StartTime     time.Time `json:"start_time" db:"start_time"`
	Description   string    `json:"description" db:"description"`
}

// DueOn reports whether the job starts on the civil date of day. Only the
// year, month and day of both values are compared.
func (j MaintenanceJob) DueOn(day time.Time) bool {
	y1, m1, d1 := j.StartTime.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// CivilDate returns midnight UTC of the calendar date t has in its own
// location. Store queries use it as the inclusive lower bound of a due day.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WallClock re-anchors t in UTC keeping its wall-clock reading, so that
// "10:00+02:00" becomes "10:00Z".
func WallClock(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, mo, d, h, mi, s, t.Nanosecond(), time.UTC)
}

// Email is a fully composed outbound message.
type Email struct {
	To      string
	From    string
	Subject string
	Body    string
}

// SendInput defines the contract for email transmission through an
// EmailProvider.
type SendInput struct {
	To          string
	From        SenderIdentity
	Subject     string
	BodyText    string
	ReferenceID string
}

// SenderIdentity defines the sender for outgoing emails.
type SenderIdentity struct {
	Name    string
	Address string
}

// NotificationKind identifies which of the composed emails a message is.
type NotificationKind string

const (
	NotificationWelcome       NotificationKind = "welcome"
	NotificationJobPlanned    NotificationKind = "job_planned"
	NotificationJobFinished   NotificationKind = "job_finished"
	NotificationDailyReminder NotificationKind = "daily_reminder"
)
