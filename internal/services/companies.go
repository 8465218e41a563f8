package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jobfinder/apiserver/internal/storage"
	"github.com/jobfinder/apiserver/internal/store"
	"github.com/jobfinder/apiserver/types"
)

// CompanyRepository defines persistence operations for companies.
type CompanyRepository interface {
	Create(ctx context.Context, company types.Company) (types.Company, error)
	GetByID(ctx context.Context, id string) (types.Company, error)
	ListByOwner(ctx context.Context, userID string) ([]types.Company, error)
	ListByIDs(ctx context.Context, ids []string) ([]types.Company, error)
	Update(ctx context.Context, company types.Company) (types.Company, error)
	Count(ctx context.Context) (int64, error)
}

// CompanyInput carries company fields. On update, empty fields are left
// unchanged.
type CompanyInput struct {
	CompanyName string
	Description string
	Website     string
	Location    string
	Logo        *storage.File
}

// CompanyService encapsulates company use-cases.
type CompanyService struct {
	repo   CompanyRepository
	files  Uploader
	logger *slog.Logger
}

func NewCompanyService(repo CompanyRepository, files Uploader, logger *slog.Logger) *CompanyService {
	return &CompanyService{repo: repo, files: files, logger: logger}
}

// Register creates a company owned by userID.
func (s *CompanyService) Register(ctx context.Context, userID string, in CompanyInput) (types.Company, error) {
	name := strings.TrimSpace(in.CompanyName)
	if name == "" {
		return types.Company{}, invalid("companyName is required")
	}

	company := types.Company{
		ID:          newID(),
		CompanyName: name,
		Description: strings.TrimSpace(in.Description),
		Website:     strings.TrimSpace(in.Website),
		Location:    strings.TrimSpace(in.Location),
		UserID:      userID,
	}

	var logo storage.Object
	if in.Logo != nil {
		obj, err := upload(ctx, s.files, FolderLogos, in.Logo)
		if err != nil {
			return types.Company{}, err
		}
		logo = obj
		company.Logo = obj.URL
	}

	created, err := s.repo.Create(ctx, company)
	if err != nil {
		discard(ctx, s.files, s.logger, logo)
		if errors.Is(err, store.ErrConflict) {
			return types.Company{}, duplicateCompany(name)
		}
		return types.Company{}, err
	}
	return created, nil
}

// List returns the companies owned by userID.
func (s *CompanyService) List(ctx context.Context, userID string) ([]types.Company, error) {
	companies, err := s.repo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if companies == nil {
		companies = []types.Company{}
	}
	return companies, nil
}

func (s *CompanyService) Get(ctx context.Context, id string) (types.Company, error) {
	company, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Company{}, notFoundOr(err, "Company not found")
	}
	return company, nil
}

// Update changes a company owned by userID.
func (s *CompanyService) Update(ctx context.Context, userID, id string, in CompanyInput) (types.Company, error) {
	company, err := s.owned(ctx, userID, id)
	if err != nil {
		return types.Company{}, err
	}

	if name := strings.TrimSpace(in.CompanyName); name != "" {
		company.CompanyName = name
	}
	if v := strings.TrimSpace(in.Description); v != "" {
		company.Description = v
	}
	if v := strings.TrimSpace(in.Website); v != "" {
		company.Website = v
	}
	if v := strings.TrimSpace(in.Location); v != "" {
		company.Location = v
	}

	var logo storage.Object
	if in.Logo != nil {
		logo, err = upload(ctx, s.files, FolderLogos, in.Logo)
		if err != nil {
			return types.Company{}, err
		}
		company.Logo = logo.URL
	}

	updated, err := s.repo.Update(ctx, company)
	if err != nil {
		discard(ctx, s.files, s.logger, logo)
		if errors.Is(err, store.ErrConflict) {
			return types.Company{}, duplicateCompany(company.CompanyName)
		}
		return types.Company{}, notFoundOr(err, "Company not found")
	}
	return updated, nil
}

// owned loads company id and checks that userID owns it.
func (s *CompanyService) owned(ctx context.Context, userID, id string) (types.Company, error) {
	company, err := s.Get(ctx, id)
	if err != nil {
		return types.Company{}, err
	}
	if company.UserID != userID {
		return types.Company{}, newError(ErrForbidden, "You are not allowed to modify this company")
	}
	return company, nil
}

func duplicateCompany(name string) error {
	return newError(ErrConflict, fmt.Sprintf("Company with %s name already exists! So try with another name", name))
}
