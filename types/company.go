package types

import "time"

// Company represents an employer registered by a recruiter.
type Company struct {
	// ID is the unique identifier of the company.
	ID string `json:"_id" db:"id" bson:"_id"`

	// CompanyName is the unique display name of the company.
	CompanyName string `json:"companyName" db:"company_name" bson:"companyName"`

	// Description is a free-form summary of the company.
	Description string `json:"description" db:"description" bson:"description"`

	// Website is the company's public homepage.
	Website string `json:"website" db:"website" bson:"website"`

	// Location is the company's headquarters or primary office.
	Location string `json:"location" db:"location" bson:"location"`

	// Logo is the URL of the uploaded company logo.
	Logo string `json:"logo" db:"logo" bson:"logo"`

	// UserID is the recruiter who registered and owns the company.
	UserID string `json:"userId" db:"user_id" bson:"userId"`

	// CreatedAt is the timestamp when the company was registered.
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`

	// UpdatedAt is the timestamp of the most recent update to the company.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at" bson:"updatedAt"`
}
