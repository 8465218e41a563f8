package mailer

import (
	"bytes"
	"html/template"
	"strconv"
	"time"
)

const layout = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
{{ template "content" . }}
<hr style="border: 1px solid #eee; margin: 20px 0;">
<p style="color: #666; font-size: 12px;">This is an automated email, please do not reply.</p>
</div>`

var templates = map[string]*template.Template{
	"password_reset": parse(`{{ define "content" }}
<h2 style="color: #2563eb;">Password Reset Request</h2>
<p>Hello {{ .Name }},</p>
<p>We received a request to reset your password. Click the button below to reset your password:</p>
<div style="text-align: center; margin: 30px 0;">
<a href="{{ .URL }}" style="background-color: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; display: inline-block;">Reset Password</a>
</div>
<p style="color: #666; font-size: 14px;">This link will expire in {{ .Expires }}.</p>
<p style="color: #666; font-size: 14px;">If you didn't request this, please ignore this email.</p>
{{ end }}`),
	"welcome": parse(`{{ define "content" }}
<h2 style="color: #2563eb;">Welcome to jobFinder</h2>
<p>Hello {{ .Name }},</p>
<p>Your account has been created. Complete your profile to stand out to recruiters.</p>
{{ end }}`),
	"application_created": parse(`{{ define "content" }}
<h2 style="color: #2563eb;">New applicant</h2>
<p>Hello {{ .Name }},</p>
<p>{{ .Applicant }} applied to <strong>{{ .Job }}</strong>.</p>
{{ end }}`),
	"status_updated": parse(`{{ define "content" }}
<h2 style="color: #2563eb;">Application update</h2>
<p>Hello {{ .Name }},</p>
<p>Your application to <strong>{{ .Job }}</strong>{{ with .Company }} at {{ . }}{{ end }} is now <strong>{{ .Status }}</strong>.</p>
{{ end }}`),
}

func parse(content string) *template.Template {
	t := template.Must(template.New("layout").Parse(layout))
	return template.Must(t.Parse(content))
}

func render(to, subject, name string, data any) (Message, error) {
	var buf bytes.Buffer
	if err := templates[name].Execute(&buf, data); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, HTML: buf.String()}, nil
}

// PasswordReset renders the reset link email.
func PasswordReset(to, name, resetURL string, ttl time.Duration) (Message, error) {
	return render(to, "Password Reset Request - jobFinder", "password_reset", struct {
		Name, URL, Expires string
	}{name, resetURL, humanDuration(ttl)})
}

// Welcome renders the post-registration email.
func Welcome(to, name string) (Message, error) {
	return render(to, "Welcome to jobFinder", "welcome", struct {
		Name string
	}{name})
}

// ApplicationCreated renders the new-applicant notice sent to a recruiter.
func ApplicationCreated(to, name, applicant, job string) (Message, error) {
	return render(to, "New applicant for "+job, "application_created", struct {
		Name, Applicant, Job string
	}{name, applicant, job})
}

// StatusUpdated renders the application status notice sent to an applicant.
func StatusUpdated(to, name, job, company, status string) (Message, error) {
	return render(to, "Your application for "+job+" is "+status, "status_updated", struct {
		Name, Job, Company, Status string
	}{name, job, company, status})
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return strconv.Itoa(n) + " " + unit
}
