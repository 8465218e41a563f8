package types

import "time"

// Application statuses.
const (
	StatusPending   = "pending"
	StatusInterview = "interview"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusSelected  = "selected"
)

// ValidApplicationStatus reports whether status is a known application status.
func ValidApplicationStatus(status string) bool {
	switch status {
	case StatusPending, StatusInterview, StatusAccepted, StatusRejected, StatusSelected:
		return true
	}
	return false
}

// Application represents a user's application to a job.
// A user may apply to a given job at most once.
type Application struct {
	// ID is the unique identifier of the application.
	ID string `json:"_id" db:"id" bson:"_id"`

	// JobID references the job applied to.
	JobID string `json:"jobId" db:"job_id" bson:"jobId"`

	// ApplicantID references the applying user.
	ApplicantID string `json:"applicantId" db:"applicant_id" bson:"applicantId"`

	// Status is the review state of the application.
	Status string `json:"status" db:"status" bson:"status"`

	// CreatedAt is the timestamp when the application was submitted.
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`

	// UpdatedAt is the timestamp of the most recent status change.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at" bson:"updatedAt"`
}

// ApplicationView is an application with its related records populated.
type ApplicationView struct {
	Application

	// Job is the job applied to, when loaded.
	Job *JobView `json:"job,omitempty"`

	// Applicant is the applying user, when loaded.
	Applicant *User `json:"applicant,omitempty"`
}
