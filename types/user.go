package types

import "time"

const (
	// RoleStudent is a job seeker.
	RoleStudent = "student"
	// RoleRecruiter administers companies and the jobs they post.
	RoleRecruiter = "recruiter"
)

// User represents an account in the system.
// It contains identity, role, profile, and session metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"_id" db:"id" bson:"_id"`

	// FullName is the user's display or full name.
	FullName string `json:"fullName" db:"full_name" bson:"fullName"`

	// Email is the user's email address. It is unique across all users.
	Email string `json:"email" db:"email" bson:"email"`

	// PhoneNumber is an optional phone number, unique when present.
	// It can be used instead of the email to log in.
	PhoneNumber string `json:"phoneNumber" db:"phone_number" bson:"phoneNumber,omitempty"`

	// Role indicates the user's authorization level within the system
	// ("student" or "recruiter").
	Role string `json:"role" db:"role" bson:"role"`

	// Profile holds the user's public profile data.
	Profile Profile `json:"profile" db:"profile" bson:"profile"`

	// ProfileScore is the completeness score derived from Profile.
	// It is recomputed on every profile write.
	ProfileScore int `json:"profileScore" db:"profile_score" bson:"profileScore"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash" bson:"passwordHash"`

	// RefreshTokenHash is the SHA-256 hash of the single live refresh token.
	// Empty when the user is logged out.
	RefreshTokenHash string `json:"-" db:"refresh_token_hash" bson:"refreshTokenHash"`

	// ResetTokenHash is the SHA-256 hash of the pending password reset token.
	ResetTokenHash string `json:"-" db:"reset_token_hash" bson:"resetTokenHash"`

	// ResetTokenExpiry is the absolute expiry of the pending reset token.
	ResetTokenExpiry *time.Time `json:"-" db:"reset_token_expiry" bson:"resetTokenExpiry"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at" bson:"updatedAt"`
}

// Profile is the user's profile sub-document.
//
// The structured sections (location, education, experience and so on) are
// free-form JSON values supplied by the client and stored as-is.
type Profile struct {
	Bio                string   `json:"bio" bson:"bio"`
	Skills             []string `json:"skills" bson:"skills"`
	Resume             string   `json:"resume" bson:"resume"`
	ResumeOriginalName string   `json:"resumeOriginalName" bson:"resumeOriginalName"`
	Avatar             string   `json:"avatar" bson:"avatar"`
	CoverImage         string   `json:"coverImage" bson:"coverImage"`

	Location          any `json:"location,omitempty" bson:"location,omitempty"`
	Education         any `json:"education,omitempty" bson:"education,omitempty"`
	Experience        any `json:"experience,omitempty" bson:"experience,omitempty"`
	Languages         any `json:"languages,omitempty" bson:"languages,omitempty"`
	Certifications    any `json:"certifications,omitempty" bson:"certifications,omitempty"`
	SocialLinks       any `json:"socialLinks,omitempty" bson:"socialLinks,omitempty"`
	Interests         any `json:"interests,omitempty" bson:"interests,omitempty"`
	PreferredJobTypes any `json:"preferredJobTypes,omitempty" bson:"preferredJobTypes,omitempty"`
	ExpectedSalary    any `json:"expectedSalary,omitempty" bson:"expectedSalary,omitempty"`
}

// Score computes the profile completeness score for a user.
func (u User) Score() int {
	score := 0
	if u.Profile.Bio != "" {
		score += 20
	}
	if len(u.Profile.Skills) > 0 {
		score += 20
	}
	if u.Profile.Resume != "" {
		score += 20
	}
	if u.Profile.Avatar != "" {
		score += 10
	}
	if u.Profile.CoverImage != "" {
		score += 10
	}
	if u.PhoneNumber != "" {
		score += 10
	}
	if u.Email != "" {
		score += 10
	}
	return score
}
