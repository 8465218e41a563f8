package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jobfinder/apiserver/types"
)

const (
	trendMonths       = 6
	defaultSkillLevel = 80
)

// DashboardService aggregates per-user and site-wide statistics.
type DashboardService struct {
	users        UserRepository
	companies    CompanyRepository
	jobs         JobRepository
	applications ApplicationRepository
	now          func() time.Time
}

func NewDashboardService(users UserRepository, companies CompanyRepository, jobs JobRepository, applications ApplicationRepository) *DashboardService {
	return &DashboardService{
		users:        users,
		companies:    companies,
		jobs:         jobs,
		applications: applications,
		now:          time.Now,
	}
}

// WithClock overrides the time source.
func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	s.now = now
	return s
}

func (s *DashboardService) Stats(ctx context.Context, userID string) (types.UserStats, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return types.UserStats{}, notFoundOr(err, "User not found")
	}

	var stats types.UserStats
	counts := []struct {
		status string
		dst    *int64
	}{
		{"", &stats.TotalAppliedJobs},
		{types.StatusInterview, &stats.TotalInterviews},
		{types.StatusPending, &stats.TotalPending},
		{types.StatusRejected, &stats.TotalRejected},
		{types.StatusSelected, &stats.TotalSelected},
	}
	for _, c := range counts {
		n, err := s.applications.CountByApplicant(ctx, userID, c.status)
		if err != nil {
			return types.UserStats{}, err
		}
		*c.dst = n
	}

	if stats.TotalJobs, err = s.jobs.Count(ctx); err != nil {
		return types.UserStats{}, err
	}
	stats.ProfileScore = user.Score()
	return stats, nil
}

// Trends returns userID's application counts per month over the last six
// months, oldest first. Months without applications are omitted.
func (s *DashboardService) Trends(ctx context.Context, userID string) ([]types.TrendPoint, error) {
	since := s.now().AddDate(0, -trendMonths, 0)
	counts, err := s.applications.MonthlyCounts(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	points := make([]types.TrendPoint, 0, len(counts))
	for _, c := range counts {
		points = append(points, types.TrendPoint{
			Month: fmt.Sprintf("%04d-%02d", c.Year, c.Month),
			Count: c.Count,
		})
	}
	return points, nil
}

func (s *DashboardService) Skills(ctx context.Context, userID string) ([]types.Skill, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	skills := make([]types.Skill, 0, len(user.Profile.Skills))
	for _, name := range user.Profile.Skills {
		skills = append(skills, types.Skill{Name: name, Level: defaultSkillLevel})
	}
	return skills, nil
}

// GlobalStats returns site-wide totals. The average profile score is
// rounded to two decimals.
func (s *DashboardService) GlobalStats(ctx context.Context) (types.GlobalStats, error) {
	var (
		stats types.GlobalStats
		err   error
	)
	if stats.TotalJobs, err = s.jobs.Count(ctx); err != nil {
		return types.GlobalStats{}, err
	}
	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return types.GlobalStats{}, err
	}
	if stats.TotalApplications, err = s.applications.Count(ctx); err != nil {
		return types.GlobalStats{}, err
	}
	if stats.TotalCompanies, err = s.companies.Count(ctx); err != nil {
		return types.GlobalStats{}, err
	}
	avg, err := s.users.AverageProfileScore(ctx)
	if err != nil {
		return types.GlobalStats{}, err
	}
	stats.AverageProfileScore = math.Round(avg*100) / 100
	return stats, nil
}
