package types

// UserStats summarises a user's applications.
type UserStats struct {
	TotalAppliedJobs int64 `json:"totalAppliedJobs"`
	TotalInterviews  int64 `json:"totalInterviews"`
	TotalPending     int64 `json:"totalPending"`
	TotalRejected    int64 `json:"totalRejected"`
	TotalSelected    int64 `json:"totalSelected"`
	TotalJobs        int64 `json:"totalJobs"`
	ProfileScore     int   `json:"profileScore"`
}

// MonthlyCount is the number of applications submitted in one month.
type MonthlyCount struct {
	Year  int
	Month int
	Count int64
}

// TrendPoint is a MonthlyCount formatted for clients.
type TrendPoint struct {
	// Month is formatted as YYYY-MM.
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// Skill is a profile skill with a display level.
type Skill struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// GlobalStats holds site-wide counters.
type GlobalStats struct {
	TotalJobs           int64   `json:"totalJobs"`
	TotalUsers          int64   `json:"totalUsers"`
	TotalApplications   int64   `json:"totalApplications"`
	TotalCompanies      int64   `json:"totalCompanies"`
	AverageProfileScore float64 `json:"averageProfileScore"`
}
