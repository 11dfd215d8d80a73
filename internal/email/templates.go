package email

import (
	"bytes"
	"fmt"
	"text/template"
)

// Template names a notification kind.
type Template string

const (
	TemplateConfirmed Template = "booking_confirmed"
	TemplateUpdated   Template = "booking_updated"
	TemplateCancelled Template = "booking_cancelled"
)

// BookingData fills the booking templates.
type BookingData struct {
	CustomerName string
	BookingID    string
	CarName      string
	Start        string
	End          string
	Days         int
	Total        string
}

var subjects = map[Template]string{
	TemplateConfirmed: "Your car rental is confirmed",
	TemplateUpdated:   "Your car rental dates were changed",
	TemplateCancelled: "Your car rental was cancelled",
}

const bookingDetails = `{{define "details"}}Booking:  {{.BookingID}}
Car:      {{.CarName}}
Pickup:   {{.Start}}
Return:   {{.End}}
Days:     {{.Days}}
Total:    {{.Total}}{{end}}`

var templates = template.Must(template.New("email").Parse(bookingDetails + `
{{define "booking_confirmed"}}Hi {{or .CustomerName "there"}},

your reservation is confirmed.

{{template "details" .}}

You can review or change it any time with /bookings in the chat.
{{end}}
{{define "booking_updated"}}Hi {{or .CustomerName "there"}},

your reservation now has new dates.

{{template "details" .}}
{{end}}
{{define "booking_cancelled"}}Hi {{or .CustomerName "there"}},

your reservation was cancelled. Nothing will be charged.

{{template "details" .}}
{{end}}`))

// Render builds the message for a template.
func Render(name Template, to string, data BookingData) (Message, error) {
	subject, ok := subjects[name]
	if !ok {
		return Message{}, fmt.Errorf("email: unknown template %q", name)
	}
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, string(name), data); err != nil {
		return Message{}, fmt.Errorf("email: render %s: %w", name, err)
	}
	return Message{To: to, Subject: subject, Body: body.String()}, nil
}
