// Package savings turns the ledger's deletion events into the dashboard
// report. The report is derived state: every aggregation rebuilds it from
// scratch, so replays and late events converge on the same document.
package savings

import (
	"fmt"
	"sort"
	"time"

	"github.com/costguardian/costguardian/internal/resource"
)

// historicalMonths is the length of the trailing month series, current
// month included.
const historicalMonths = 6

// ServiceSavings is one service's slice of a month.
type ServiceSavings struct {
	Service     string  `json:"service"`
	ServiceCode string  `json:"service_code"`
	Count       int     `json:"count"`
	Savings     float64 `json:"savings"`
}

// MonthSummary totals one calendar month.
type MonthSummary struct {
	TotalSavings   float64          `json:"total_savings"`
	TotalResources int              `json:"total_resources"`
	ByService      []ServiceSavings `json:"savings_by_service"`
}

// HistoricalMonth is one point of the trailing series.
type HistoricalMonth struct {
	Month     string  `json:"month"`
	MonthName string  `json:"month_name"`
	Savings   float64 `json:"savings"`
}

// ResourceDetail is one deletion row.
type ResourceDetail struct {
	Date           string  `json:"date"`
	ResourceID     string  `json:"resource_id"`
	ResourceType   string  `json:"resource_type"`
	InstanceType   string  `json:"instance_type"`
	MonthlySavings float64 `json:"monthly_savings"`
}

// Report is the dashboard document published to S3. Details lists the
// current month's deletions only; earlier months live in their archives.
type Report struct {
	CurrentMonth MonthSummary      `json:"current_month"`
	Cumulative   float64           `json:"cumulative_savings"`
	Historical   []HistoricalMonth `json:"historical"`
	Details      []ResourceDetail  `json:"resources_detail"`
	LastUpdated  string            `json:"last_updated"`
}

// MonthReport is the archived form of one closed month.
type MonthReport struct {
	Month          string           `json:"month"`
	MonthName      string           `json:"month_name"`
	TotalSavings   float64          `json:"total_savings"`
	TotalResources int              `json:"total_resources"`
	ByService      []ServiceSavings `json:"savings_by_service"`
	Details        []ResourceDetail `json:"resources_detail"`
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func monthName(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s %d", t.Month(), t.Year())
}

// Build aggregates all deletion events into the dashboard report. Pure:
// same events and clock, same report.
func Build(events []resource.SavingsEvent, now time.Time) Report {
	currentKey := monthKey(now)
	byMonth := make(map[string]float64)

	var cumulative float64
	var current []resource.SavingsEvent
	for _, ev := range events {
		cumulative += ev.MonthlySavings
		key := monthKey(ev.DeletedAt)
		byMonth[key] += ev.MonthlySavings
		if key == currentKey {
			current = append(current, ev)
		}
	}

	// Trailing series, oldest first, zero-filled where nothing happened.
	historical := make([]HistoricalMonth, 0, historicalMonths)
	base := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := historicalMonths - 1; i >= 0; i-- {
		m := base.AddDate(0, -i, 0)
		historical = append(historical, HistoricalMonth{
			Month:     monthKey(m),
			MonthName: monthName(m),
			Savings:   byMonth[monthKey(m)],
		})
	}

	return Report{
		CurrentMonth: summarize(current),
		Cumulative:   cumulative,
		Historical:   historical,
		Details:      detailRows(current),
		LastUpdated:  now.UTC().Format(time.RFC3339),
	}
}

// BuildMonth aggregates the events of one calendar month for archival.
func BuildMonth(events []resource.SavingsEvent, month time.Time) MonthReport {
	key := monthKey(month)
	var scoped []resource.SavingsEvent
	for _, ev := range events {
		if monthKey(ev.DeletedAt) == key {
			scoped = append(scoped, ev)
		}
	}

	sum := summarize(scoped)
	return MonthReport{
		Month:          key,
		MonthName:      monthName(month),
		TotalSavings:   sum.TotalSavings,
		TotalResources: sum.TotalResources,
		ByService:      sum.ByService,
		Details:        detailRows(scoped),
	}
}

func summarize(events []resource.SavingsEvent) MonthSummary {
	sum := MonthSummary{ByService: []ServiceSavings{}}
	perService := make(map[string]*ServiceSavings)

	for _, ev := range events {
		sum.TotalSavings += ev.MonthlySavings
		sum.TotalResources++

		code := ev.Type.ServiceCode()
		svc, ok := perService[code]
		if !ok {
			svc = &ServiceSavings{Service: resource.ServiceName(code), ServiceCode: code}
			perService[code] = svc
		}
		svc.Count++
		svc.Savings += ev.MonthlySavings
	}

	for _, svc := range perService {
		sum.ByService = append(sum.ByService, *svc)
	}
	sort.Slice(sum.ByService, func(i, j int) bool {
		a, b := sum.ByService[i], sum.ByService[j]
		if a.Savings != b.Savings {
			return a.Savings > b.Savings
		}
		return a.ServiceCode < b.ServiceCode
	})
	return sum
}

func detailRows(events []resource.SavingsEvent) []ResourceDetail {
	details := make([]ResourceDetail, 0, len(events))
	for _, ev := range events {
		details = append(details, ResourceDetail{
			Date:           ev.DeletedAt.UTC().Format("2006-01-02"),
			ResourceID:     ev.ResourceID,
			ResourceType:   ev.Type.ServiceCode(),
			InstanceType:   ev.SizeLabel,
			MonthlySavings: ev.MonthlySavings,
		})
	}
	sort.Slice(details, func(i, j int) bool {
		if details[i].Date != details[j].Date {
			return details[i].Date > details[j].Date
		}
		return details[i].ResourceID < details[j].ResourceID
	})
	return details
}
