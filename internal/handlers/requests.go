package handlers

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// commaList decodes from a JSON array of strings or a comma-separated string.
type commaList []string

func (l *commaList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*l = splitComma(raw)
	return nil
}

func splitComma(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type RegisterRequest struct {
	FullName    string `json:"fullName" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=20"`
	Role        string `json:"role" validate:"omitempty,oneof=student recruiter"`
	Bio         string `json:"bio" validate:"max=500"`
}

func (req *RegisterRequest) fromForm(form url.Values) {
	req.FullName = form.Get("fullName")
	req.Email = form.Get("email")
	req.Password = form.Get("password")
	req.PhoneNumber = form.Get("phoneNumber")
	req.Role = form.Get("role")
	req.Bio = form.Get("bio")
}

func (req *RegisterRequest) normalize() {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	req.Bio = strings.TrimSpace(req.Bio)
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

// ProfileRequest is a partial profile update. The structured sections
// arrive as JSON-encoded strings.
type ProfileRequest struct {
	FullName    string    `json:"fullName" validate:"max=100"`
	Email       string    `json:"email" validate:"omitempty,email"`
	PhoneNumber string    `json:"phoneNumber" validate:"max=20"`
	Bio         string    `json:"bio" validate:"max=500"`
	Skills      commaList `json:"skills"`
}

// profileSections are the form fields holding JSON-encoded profile sections.
var profileSections = []string{
	"location",
	"education",
	"experience",
	"languages",
	"certifications",
	"socialLinks",
	"interests",
	"preferredJobTypes",
	"expectedSalary",
}

func (req *ProfileRequest) fromForm(form url.Values) map[string]string {
	req.FullName = form.Get("fullName")
	req.Email = form.Get("email")
	req.PhoneNumber = form.Get("phoneNumber")
	req.Bio = form.Get("bio")
	req.Skills = splitComma(form.Get("skills"))

	sections := make(map[string]string)
	for _, name := range profileSections {
		if value := form.Get(name); value != "" {
			sections[name] = value
		}
	}
	return sections
}

// sectionsFromJSON extracts the profile sections of a JSON body. A section
// given as a string is taken to hold encoded JSON already.
func sectionsFromJSON(raw map[string]json.RawMessage) map[string]string {
	sections := make(map[string]string)
	for _, name := range profileSections {
		value, ok := raw[name]
		if !ok || string(value) == "null" {
			continue
		}
		var encoded string
		if err := json.Unmarshal(value, &encoded); err == nil {
			sections[name] = encoded
			continue
		}
		sections[name] = string(value)
	}
	return sections
}

type CompanyRequest struct {
	CompanyName string `json:"companyName" validate:"max=200"`
	Description string `json:"description" validate:"max=2000"`
	Website     string `json:"website" validate:"omitempty,url"`
	Location    string `json:"location" validate:"max=200"`
}

func (req *CompanyRequest) fromForm(form url.Values) {
	req.CompanyName = form.Get("companyName")
	req.Description = form.Get("description")
	req.Website = strings.TrimSpace(form.Get("website"))
	req.Location = form.Get("location")
}

// JobRequest carries job fields. Salary and position accept numbers or
// numeric strings.
type JobRequest struct {
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Requirements commaList   `json:"requirements"`
	Salary       json.Number `json:"salary"`
	Location     commaList   `json:"location"`
	JobType      string      `json:"jobType"`
	Experience   string      `json:"experience"`
	Position     json.Number `json:"position"`
	CompanyID    string      `json:"companyId"`
}

func (req JobRequest) salary() (*float64, error) {
	if req.Salary == "" {
		return nil, nil
	}
	v, err := req.Salary.Float64()
	if err != nil {
		return nil, badRequest("salary must be a number")
	}
	return &v, nil
}

func (req JobRequest) position() (*int, error) {
	if req.Position == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(req.Position.String())
	if err != nil {
		return nil, badRequest("position must be an integer")
	}
	return &v, nil
}

type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}
