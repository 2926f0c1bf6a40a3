package savings

import (
	"testing"
	"time"

	"github.com/costguardian/costguardian/internal/resource"
)

func event(id string, t resource.Type, savings float64, deleted time.Time) resource.SavingsEvent {
	return resource.SavingsEvent{
		ResourceID:     id,
		Type:           t,
		SizeLabel:      "t3.large",
		MonthlySavings: savings,
		DeletedAt:      deleted,
	}
}

// Three deletions worth $120 split across two services: totals, counts,
// and the descending per-service breakdown.
func TestBuildServiceBreakdown(t *testing.T) {
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	events := []resource.SavingsEvent{
		event("i-0one", resource.TypeComputeInstance, 50, now.AddDate(0, 0, -3)),
		event("i-0two", resource.TypeComputeInstance, 40, now.AddDate(0, 0, -2)),
		event("db-one", resource.TypeDatabaseInstance, 30, now.AddDate(0, 0, -1)),
	}

	report := Build(events, now)

	if report.CurrentMonth.TotalSavings != 120 {
		t.Fatalf("expected $120 current month, got %.2f", report.CurrentMonth.TotalSavings)
	}
	if report.CurrentMonth.TotalResources != 3 {
		t.Fatalf("expected 3 resources, got %d", report.CurrentMonth.TotalResources)
	}
	if report.Cumulative != 120 {
		t.Fatalf("expected $120 cumulative, got %.2f", report.Cumulative)
	}

	by := report.CurrentMonth.ByService
	if len(by) != 2 {
		t.Fatalf("expected 2 services, got %d", len(by))
	}
	if by[0].ServiceCode != "EC2" || by[0].Savings != 90 || by[0].Count != 2 {
		t.Fatalf("expected EC2 first with $90/2, got %+v", by[0])
	}
	if by[1].ServiceCode != "RDS" || by[1].Savings != 30 || by[1].Count != 1 {
		t.Fatalf("expected RDS second with $30/1, got %+v", by[1])
	}

	// Round trip: the breakdown sums back to the total.
	var sum float64
	for _, svc := range by {
		sum += svc.Savings
	}
	if sum != report.CurrentMonth.TotalSavings {
		t.Fatalf("breakdown sums to %.2f, total is %.2f", sum, report.CurrentMonth.TotalSavings)
	}
}

func TestBuildHistoricalSeries(t *testing.T) {
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	events := []resource.SavingsEvent{
		event("vol-old", resource.TypeBlockVolume, 10, time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)),
		event("i-0now", resource.TypeComputeInstance, 50, now.AddDate(0, 0, -1)),
	}

	report := Build(events, now)

	if len(report.Historical) != 6 {
		t.Fatalf("expected 6 trailing months, got %d", len(report.Historical))
	}
	if report.Historical[0].Month != "2026-03" {
		t.Fatalf("series must start at the oldest month, got %s", report.Historical[0].Month)
	}
	if report.Historical[5].Month != "2026-08" {
		t.Fatalf("series must end at the current month, got %s", report.Historical[5].Month)
	}
	if report.Historical[5].MonthName != "August 2026" {
		t.Fatalf("unexpected month name %q", report.Historical[5].MonthName)
	}

	for _, h := range report.Historical {
		switch h.Month {
		case "2026-05":
			if h.Savings != 10 {
				t.Fatalf("expected $10 in 2026-05, got %.2f", h.Savings)
			}
		case "2026-08":
			if h.Savings != 50 {
				t.Fatalf("expected $50 in 2026-08, got %.2f", h.Savings)
			}
		default:
			if h.Savings != 0 {
				t.Fatalf("expected zero-filled %s, got %.2f", h.Month, h.Savings)
			}
		}
	}

	// Cumulative spans all months, not just the window.
	if report.Cumulative != 60 {
		t.Fatalf("expected $60 cumulative, got %.2f", report.Cumulative)
	}
	if report.CurrentMonth.TotalSavings != 50 {
		t.Fatalf("expected $50 current month, got %.2f", report.CurrentMonth.TotalSavings)
	}
}

func TestBuildDetailOrdering(t *testing.T) {
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	events := []resource.SavingsEvent{
		event("a-first", resource.TypeElasticIP, 3.6, now.AddDate(0, 0, -9)),
		event("b-later", resource.TypeElasticIP, 3.6, now.AddDate(0, 0, -1)),
		event("c-spring", resource.TypeBlockVolume, 8, time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)),
	}

	report := Build(events, now)
	if len(report.Details) != 2 {
		t.Fatalf("details must cover the current month only, got %d rows", len(report.Details))
	}
	for _, d := range report.Details {
		if d.ResourceID == "c-spring" {
			t.Fatalf("prior-month deletion leaked into the detail list: %+v", d)
		}
	}
	if len(report.Details) != report.CurrentMonth.TotalResources {
		t.Fatalf("detail rows (%d) must match the current-month count (%d)",
			len(report.Details), report.CurrentMonth.TotalResources)
	}
	if report.Details[0].ResourceID != "b-later" {
		t.Fatalf("details must sort by deletion date descending, got %s first", report.Details[0].ResourceID)
	}
	if report.Details[0].Date != "2026-08-14" {
		t.Fatalf("unexpected detail date %s", report.Details[0].Date)
	}
	if report.Details[0].ResourceType != "EIP" {
		t.Fatalf("unexpected resource type %s", report.Details[0].ResourceType)
	}
}

func TestBuildEmptyLedger(t *testing.T) {
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	report := Build(nil, now)

	if report.CurrentMonth.TotalSavings != 0 || report.Cumulative != 0 {
		t.Fatalf("empty ledger must produce a zero report, got %+v", report)
	}
	if len(report.Historical) != 6 {
		t.Fatalf("series stays 6 months even when empty, got %d", len(report.Historical))
	}
	if report.CurrentMonth.ByService == nil || report.Details == nil {
		t.Fatalf("arrays must be present, not null, in the published document")
	}
}

func TestBuildMonthScopesEvents(t *testing.T) {
	july := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	events := []resource.SavingsEvent{
		event("i-july", resource.TypeComputeInstance, 70, time.Date(2026, 7, 20, 0, 0, 0, 0, time.UTC)),
		event("i-aug", resource.TypeComputeInstance, 99, time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)),
	}

	report := BuildMonth(events, july)
	if report.Month != "2026-07" || report.MonthName != "July 2026" {
		t.Fatalf("unexpected month labels %s / %s", report.Month, report.MonthName)
	}
	if report.TotalSavings != 70 || report.TotalResources != 1 {
		t.Fatalf("archive must scope to its month, got %+v", report)
	}
}
