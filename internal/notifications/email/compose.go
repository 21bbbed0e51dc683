package email

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
	"time"

	"pitstop/internal/types"
)

//go:embed templates/*.txt
var templateFS embed.FS

// SenderAddress is the fixed From address of every notification.
const SenderAddress = "noreply@pitstop.nl"

// Subjects of the four notification kinds.
const (
	SubjectWelcome       = "Welcome to PitStop!"
	SubjectJobPlanned    = "Your PitStop Maintenance Appointment Confirmation"
	SubjectJobFinished   = "Your PitStop Maintenance Service is Complete"
	SubjectDailyReminder = "Vehicle maintenance reminder"
)

// Presentation layouts: day-month-year and 24-hour hour:minute.
const (
	DateLayout  = "02-01-2006"
	ClockLayout = "15:04"
)

var templateFuncs = template.FuncMap{
	"date":  func(t time.Time) string { return t.Format(DateLayout) },
	"clock": func(t time.Time) string { return t.Format(ClockLayout) },
}

var bodyTemplates = map[types.NotificationKind]*template.Template{
	types.NotificationWelcome:       mustParseBody("welcome"),
	types.NotificationJobPlanned:    mustParseBody("job_planned"),
	types.NotificationJobFinished:   mustParseBody("job_finished"),
	types.NotificationDailyReminder: mustParseBody("daily_reminder"),
}

// mustParseBody parses templates/<name>.txt together with the shared sign-off.
// The templates are embedded, so a parse failure is a build defect.
func mustParseBody(name string) *template.Template {
	file := name + ".txt"
	return template.Must(template.New(file).
		Funcs(templateFuncs).
		Option("missingkey=error").
		ParseFS(templateFS, "templates/"+file, "templates/signoff.txt"))
}

// bodyData is the struct passed into the body templates.
type bodyData struct {
	Name        string
	Job         types.MaintenanceJob
	Jobs        []types.MaintenanceJob
	CompletedAt time.Time
}

// Welcome composes the greeting sent after a customer registers.
func Welcome(c types.Customer) (types.Email, error) {
	return compose(types.NotificationWelcome, c.EmailAddress, SubjectWelcome, bodyData{Name: c.Name})
}

// JobPlanned composes the appointment confirmation for a newly planned job.
func JobPlanned(c types.Customer, job types.MaintenanceJob) (types.Email, error) {
	return compose(types.NotificationJobPlanned, c.EmailAddress, SubjectJobPlanned, bodyData{
		Name: c.Name,
		Job:  job,
	})
}

// JobFinished composes the completion notice. completedAt is rendered as-is,
// so callers pass it in the zone the customer should read.
func JobFinished(c types.Customer, job types.MaintenanceJob, completedAt time.Time) (types.Email, error) {
	return compose(types.NotificationJobFinished, c.EmailAddress, SubjectJobFinished, bodyData{
		Name:        c.Name,
		Job:         job,
		CompletedAt: completedAt,
	})
}

// DailyReminder composes one reminder listing every job in jobs, in the
// order given.
func DailyReminder(c types.Customer, jobs []types.MaintenanceJob) (types.Email, error) {
	if len(jobs) == 0 {
		return types.Email{}, fmt.Errorf("daily reminder for customer %s has no jobs", c.CustomerID)
	}
	return compose(types.NotificationDailyReminder, c.EmailAddress, SubjectDailyReminder, bodyData{
		Name: c.Name,
		Jobs: jobs,
	})
}

func compose(kind types.NotificationKind, to, subject string, data bodyData) (types.Email, error) {
	tmpl, ok := bodyTemplates[kind]
	if !ok {
		return types.Email{}, fmt.Errorf("no body template for %q", kind)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return types.Email{}, fmt.Errorf("render %s body: %w", kind, err)
	}

	return types.Email{
		To:      to,
		From:    SenderAddress,
		Subject: subject,
		Body:    body.String(),
	}, nil
}
