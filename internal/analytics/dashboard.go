package analytics

import (
	"context"
	"sort"
	"time"
)

// DashboardOverview is the headline block for the dashboard.
type DashboardOverview struct {
	TotalClients           int `json:"total_clients"`
	IntakeSubmissions      int `json:"intake_submissions"`
	HighRiskClients        int `json:"high_risk_clients"`
	TotalResourcesAssigned int `json:"total_resources_assigned"`
	RecentResourceUsage    int `json:"recent_resource_usage"`
}

// FactorAverage names one risk factor and its fleet-wide average.
type FactorAverage struct {
	Factor   string  `json:"factor"`
	AvgScore float64 `json:"avg_score"`
}

// DashboardTrends carries the rolling activity windows.
type DashboardTrends struct {
	Weekly  []TrendPoint `json:"weekly"`
	Monthly []TrendPoint `json:"monthly"`
}

// DashboardSummary is the condensed analytics view the dashboard
// renders on load.
type DashboardSummary struct {
	Overview              DashboardOverview `json:"overview"`
	RiskDistribution      map[string]int    `json:"risk_distribution"`
	AverageRiskPercentage float64           `json:"average_risk_percentage"`
	TopRiskFactors        []FactorAverage   `json:"top_risk_factors"`
	ResourceCategories    map[string]int    `json:"resource_categories"`
	ResourceTrends        DashboardTrends   `json:"resource_trends"`
	NeedsSummary          []NeedCount       `json:"needs_summary"`
	LastUpdated           time.Time         `json:"last_updated"`
}

// Dashboard condenses the comprehensive stats plus short-window trends
// into the shape the dashboard consumes.
func (s *Service) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	stats, err := s.ComprehensiveStats(ctx)
	if err != nil {
		return nil, err
	}
	weekly, err := s.ResourceTrends(ctx, 7)
	if err != nil {
		return nil, err
	}
	monthly, err := s.ResourceTrends(ctx, 30)
	if err != nil {
		return nil, err
	}

	highRisk := 0
	for _, a := range stats.DetailedAssessments {
		if a.RiskLevel == "CRITICAL" || a.RiskLevel == "HIGH" {
			highRisk++
		}
	}

	recentUsage := 0
	for _, point := range weekly.TrendData {
		recentUsage += point.Total
	}

	factors := make([]FactorAverage, 0, len(factorNames))
	for _, name := range factorNames {
		if fs, ok := stats.RiskAnalysis.FactorAnalysis[name]; ok {
			factors = append(factors, FactorAverage{Factor: name, AvgScore: fs.AverageScore})
		}
	}

	needs := stats.NeedsAnalysis.MostCommon
	if len(needs) > 5 {
		needs = needs[:5]
	}

	return &DashboardSummary{
		Overview: DashboardOverview{
			TotalClients:           stats.Overview.TotalClients,
			IntakeSubmissions:      stats.Overview.IntakeSubmissions,
			HighRiskClients:        highRisk,
			TotalResourcesAssigned: stats.Overview.TotalResourcesAssigned,
			RecentResourceUsage:    recentUsage,
		},
		RiskDistribution:      stats.RiskAnalysis.LevelDistribution,
		AverageRiskPercentage: stats.RiskAnalysis.AveragePercentage,
		TopRiskFactors:        factors,
		ResourceCategories:    stats.ResourceAnalysis.CategoryDistribution,
		ResourceTrends:        DashboardTrends{Weekly: weekly.TrendData, Monthly: monthly.TrendData},
		NeedsSummary:          needs,
		LastUpdated:           s.now().UTC(),
	}, nil
}

// ResourceStatusEntry is one assigned resource as shown in the
// dashboard activity feed.
type ResourceStatusEntry struct {
	ClientID     int    `json:"client_id"`
	ClientName   string `json:"client_name"`
	ResourceName string `json:"resource_name"`
	Organization string `json:"organization"`
	Status       string `json:"status"`
	AddedDate    string `json:"added_date"`
	LastUpdated  string `json:"last_updated"`
	Category     string `json:"category"`
}

// ResourceStatusReport lists the most recent assignments.
type ResourceStatusReport struct {
	RecentResources []ResourceStatusEntry `json:"recent_resources"`
	TotalCount      int                   `json:"total_count"`
}

// ResourceStatus collects every assigned resource across the roster
// and returns the ten most recently updated.
func (s *Service) ResourceStatus(ctx context.Context) (*ResourceStatusReport, error) {
	records, err := s.clients.List(ctx)
	if err != nil {
		return nil, err
	}

	entries := []ResourceStatusEntry{}
	for _, rec := range records {
		for _, res := range rec.Resources() {
			entries = append(entries, ResourceStatusEntry{
				ClientID:     rec.ID(),
				ClientName:   rec.FullName(),
				ResourceName: stringValue(res, "resource_name"),
				Organization: stringValue(res, "organization"),
				Status:       stringOr(res, "status", "pending"),
				AddedDate:    stringValue(res, "added_date"),
				LastUpdated:  stringValue(res, "last_updated"),
				Category:     stringOr(res, "category", "housing"),
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastUpdated > entries[j].LastUpdated
	})

	report := &ResourceStatusReport{TotalCount: len(entries)}
	if len(entries) > 10 {
		entries = entries[:10]
	}
	report.RecentResources = entries
	return report, nil
}
