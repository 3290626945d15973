package storage

import (
	"fmt"
	"testing"
	"time"

	"pricesight/internal/models"
)

func newTestStorage(t *testing.T, maxRuns int) *Storage {
	t.Helper()
	s, err := New(maxRuns, ":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testResearch(query string) *models.MarketResearch {
	return &models.MarketResearch{
		Query: query,
		EbaySold: []models.PriceObservation{
			{Source: models.SourceEbaySold, Price: 100, Currency: "EUR", Condition: models.ConditionUsed, Title: "uno"},
			{Source: models.SourceEbaySold, Price: 120, Currency: "EUR", Condition: models.ConditionUsed, Title: "due"},
		},
		Amazon: []models.PriceObservation{
			{Source: models.SourceAmazon, Price: 180, Currency: "EUR", Condition: models.ConditionNew, URL: "https://example.com/x"},
		},
		Catalog: &models.CatalogResult{
			Query:    query,
			Products: []models.CatalogTiers{{ProductName: "Console"}},
		},
	}
}

func TestStorage_SaveAndGetRun(t *testing.T) {
	s := newTestStorage(t, 100)
	started := time.Now()

	run, err := s.SaveRun(testResearch("nintendo switch"), started, 2*time.Second)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected a generated run ID")
	}
	if run.Observations != 3 || run.SoldCount != 2 || run.AmazonCount != 1 || run.CatalogCount != 1 {
		t.Errorf("counts = %+v", run)
	}

	got, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Query != "nintendo switch" {
		t.Errorf("got query %q", got.Query)
	}
	if got.Elapsed != 2*time.Second {
		t.Errorf("got elapsed %s", got.Elapsed)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("got started %s, want %s", got.StartedAt, started)
	}
}

func TestStorage_GetRun_NotFound(t *testing.T) {
	s := newTestStorage(t, 100)
	if _, err := s.GetRun("nonexistent"); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestStorage_Observations(t *testing.T) {
	s := newTestStorage(t, 100)
	run, err := s.SaveRun(testResearch("gameboy"), time.Now(), time.Second)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	obs, err := s.Observations(run.ID)
	if err != nil {
		t.Fatalf("Observations: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("got %d observations, want 3", len(obs))
	}
	bySource := map[models.Source]int{}
	for _, o := range obs {
		bySource[o.Source]++
	}
	if bySource[models.SourceEbaySold] != 2 || bySource[models.SourceAmazon] != 1 {
		t.Errorf("source breakdown = %v", bySource)
	}
}

func TestStorage_RunCap(t *testing.T) {
	s := newTestStorage(t, 3)
	base := time.Now()
	for i := 0; i < 5; i++ {
		research := &models.MarketResearch{Query: fmt.Sprintf("query %d", i)}
		if _, err := s.SaveRun(research, base.Add(time.Duration(i)*time.Minute), time.Second); err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
	}

	runs, err := s.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3 after rotation", len(runs))
	}
	if runs[0].Query != "query 4" {
		t.Errorf("newest run = %q, want query 4", runs[0].Query)
	}
	if runs[2].Query != "query 2" {
		t.Errorf("oldest surviving run = %q, want query 2", runs[2].Query)
	}
}

func TestStorage_RecentRunsEmpty(t *testing.T) {
	s := newTestStorage(t, 10)
	runs, err := s.RecentRuns(5)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs, want 0", len(runs))
	}
}
