package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jobfinder/apiserver/internal/storage"
	"github.com/jobfinder/apiserver/internal/store"
	"github.com/jobfinder/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user types.User) (types.User, error)
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	// GetByIdentifier matches identifier against email or phone number.
	GetByIdentifier(ctx context.Context, identifier string) (types.User, error)
	GetByResetTokenHash(ctx context.Context, tokenHash string) (types.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]types.User, error)
	// Update writes the identity and profile fields of user.
	Update(ctx context.Context, user types.User) (types.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// SetRefreshToken replaces the stored refresh token hash. An empty hash
	// clears it.
	SetRefreshToken(ctx context.Context, id, tokenHash string) error
	// SwapRefreshToken replaces oldHash with newHash, failing with
	// store.ErrNotFound when oldHash is no longer the stored value.
	SwapRefreshToken(ctx context.Context, id, oldHash, newHash string) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiry *time.Time) error
	// ConsumeResetToken sets passwordHash and clears the reset token and
	// refresh token, provided tokenHash is stored and unexpired at now.
	ConsumeResetToken(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error
	Count(ctx context.Context) (int64, error)
	AverageProfileScore(ctx context.Context) (float64, error)
}

var resumeContentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	FullName    string
	Email       string
	Password    string
	PhoneNumber string
	Role        string
	Bio         string
	Avatar      *storage.File
	CoverImage  *storage.File
}

// ProfileInput carries a profile update. Empty fields are left unchanged.
// Sections holds JSON-encoded values keyed by profile section name.
type ProfileInput struct {
	FullName    string
	Email       string
	PhoneNumber string
	Bio         string
	Skills      string
	Sections    map[string]string
	Resume      *storage.File
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo   UserRepository
	hasher PasswordHasher
	files  Uploader
	events *Notifier
	logger *slog.Logger
}

func NewUserService(repo UserRepository, hasher PasswordHasher, files Uploader, events *Notifier, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		files:  files,
		events: events,
		logger: logger,
	}
}

// Register creates a user. The password is hashed before it is stored.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	email := normalizeEmail(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" || email == "" || in.Password == "" {
		return types.User{}, invalid("fullName, email and password are required")
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = types.RoleStudent
	}
	if role != types.RoleStudent && role != types.RoleRecruiter {
		return types.User{}, invalid("role must be one of: %s, %s", types.RoleStudent, types.RoleRecruiter)
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return types.User{}, newError(ErrConflict, "Email Already Exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return types.User{}, err
	}

	user := types.User{
		ID:           newID(),
		FullName:     fullName,
		Email:        email,
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		Role:         role,
		PasswordHash: hashed,
		Profile: types.Profile{
			Bio:    strings.TrimSpace(in.Bio),
			Skills: []string{},
		},
	}

	var uploaded []storage.Object
	if in.Avatar != nil {
		obj, err := upload(ctx, s.files, FolderAvatars, in.Avatar)
		if err != nil {
			return types.User{}, err
		}
		uploaded = append(uploaded, obj)
		user.Profile.Avatar = obj.URL
	}
	if in.CoverImage != nil {
		obj, err := upload(ctx, s.files, FolderCovers, in.CoverImage)
		if err != nil {
			discard(ctx, s.files, s.logger, uploaded...)
			return types.User{}, err
		}
		uploaded = append(uploaded, obj)
		user.Profile.CoverImage = obj.URL
	}
	user.ProfileScore = user.Score()

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		discard(ctx, s.files, s.logger, uploaded...)
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, newError(ErrConflict, "Email or phone number already exists")
		}
		return types.User{}, err
	}

	s.events.Publish(ctx, Event{Type: EventUserRegistered, UserID: created.ID})
	return created, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, notFoundOr(err, "User not found")
	}
	return user, nil
}

// UpdateAvatar uploads file and sets it as the user's avatar.
func (s *UserService) UpdateAvatar(ctx context.Context, id string, file storage.File) (types.User, error) {
	return s.replaceImage(ctx, id, FolderAvatars, file, func(p *types.Profile, url string) { p.Avatar = url })
}

// UpdateCoverImage uploads file and sets it as the user's cover image.
func (s *UserService) UpdateCoverImage(ctx context.Context, id string, file storage.File) (types.User, error) {
	return s.replaceImage(ctx, id, FolderCovers, file, func(p *types.Profile, url string) { p.CoverImage = url })
}

// DeleteCoverImage clears the user's cover image.
func (s *UserService) DeleteCoverImage(ctx context.Context, id string) (types.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	user.Profile.CoverImage = ""
	return s.save(ctx, user)
}

func (s *UserService) replaceImage(ctx context.Context, id, folder string, file storage.File, set func(*types.Profile, string)) (types.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	obj, err := upload(ctx, s.files, folder, &file)
	if err != nil {
		return types.User{}, err
	}
	set(&user.Profile, obj.URL)

	updated, err := s.save(ctx, user)
	if err != nil {
		discard(ctx, s.files, s.logger, obj)
		return types.User{}, err
	}
	return updated, nil
}

// UpdateProfile applies a profile update, uploading a resume if present.
func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (types.User, error) {
	if in.Resume != nil && !resumeContentTypes[in.Resume.ContentType] {
		return types.User{}, invalid("Invalid file type. Please upload a PDF or Word document.")
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if name := strings.TrimSpace(in.FullName); name != "" {
		user.FullName = name
	}
	if email := normalizeEmail(in.Email); email != "" && email != user.Email {
		if _, err := s.repo.GetByEmail(ctx, email); err == nil {
			return types.User{}, newError(ErrConflict, "Email Already Exists")
		} else if !errors.Is(err, store.ErrNotFound) {
			return types.User{}, err
		}
		user.Email = email
	}
	if phone := strings.TrimSpace(in.PhoneNumber); phone != "" {
		user.PhoneNumber = phone
	}
	if bio := strings.TrimSpace(in.Bio); bio != "" {
		user.Profile.Bio = bio
	}
	if strings.TrimSpace(in.Skills) != "" {
		user.Profile.Skills = splitList(in.Skills)
	}
	if err := applySections(&user.Profile, in.Sections); err != nil {
		return types.User{}, err
	}

	var resume storage.Object
	if in.Resume != nil {
		resume, err = upload(ctx, s.files, FolderResumes, in.Resume)
		if err != nil {
			return types.User{}, err
		}
		user.Profile.Resume = resume.URL
		user.Profile.ResumeOriginalName = in.Resume.Name
	}

	updated, err := s.save(ctx, user)
	if err != nil {
		discard(ctx, s.files, s.logger, resume)
		return types.User{}, err
	}
	return updated, nil
}

func (s *UserService) save(ctx context.Context, user types.User) (types.User, error) {
	user.ProfileScore = user.Score()
	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, newError(ErrConflict, "Email or phone number already exists")
		}
		return types.User{}, notFoundOr(err, "User not found")
	}
	return updated, nil
}

// applySections decodes the JSON-encoded profile sections.
func applySections(profile *types.Profile, sections map[string]string) error {
	targets := map[string]*any{
		"location":          &profile.Location,
		"education":         &profile.Education,
		"experience":        &profile.Experience,
		"languages":         &profile.Languages,
		"certifications":    &profile.Certifications,
		"socialLinks":       &profile.SocialLinks,
		"interests":         &profile.Interests,
		"preferredJobTypes": &profile.PreferredJobTypes,
		"expectedSalary":    &profile.ExpectedSalary,
	}
	for name, raw := range sections {
		target, ok := targets[name]
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return invalid("Invalid JSON data in one or more fields.")
		}
		*target = value
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// splitList splits a comma-separated list, dropping blank entries.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
