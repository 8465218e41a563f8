package types

import "time"

// Job represents a job posting published by a recruiter for one of
// their companies.
type Job struct {
	// ID is the unique identifier of the job.
	ID string `json:"_id" db:"id" bson:"_id"`

	// Title is the short name of the position.
	Title string `json:"title" db:"title" bson:"title"`

	// Description is the full job description.
	Description string `json:"description" db:"description" bson:"description"`

	// Requirements lists the skills or qualifications asked for.
	Requirements []string `json:"requirements" db:"requirements" bson:"requirements"`

	// Salary is the offered salary.
	Salary float64 `json:"salary" db:"salary" bson:"salary"`

	// Location lists the places the job is offered in.
	Location []string `json:"location" db:"location" bson:"location"`

	// JobType describes the engagement (e.g., "Full-time", "Internship").
	JobType string `json:"jobType" db:"job_type" bson:"jobType"`

	// Experience is the required experience level.
	Experience string `json:"experience" db:"experience" bson:"experience"`

	// Position is the number of open positions.
	Position int `json:"position" db:"position" bson:"position"`

	// CompanyID references the company offering the job.
	CompanyID string `json:"companyId" db:"company_id" bson:"companyId"`

	// CreatedBy is the recruiter who posted the job.
	CreatedBy string `json:"createdBy" db:"created_by" bson:"createdBy"`

	// CreatedAt is the timestamp when the job was posted.
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`

	// UpdatedAt is the timestamp of the most recent update to the job.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at" bson:"updatedAt"`
}

// JobView is a job with its related records populated.
type JobView struct {
	Job

	// Company is the company offering the job, when loaded.
	Company *Company `json:"company,omitempty"`

	// Applications lists the applications received, when loaded.
	Applications []ApplicationView `json:"applications,omitempty"`
}
