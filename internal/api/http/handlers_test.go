package apihttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	billing "estate-billing/internal/billing/domain"
	billingmemory "estate-billing/internal/billing/infrastructure/memory"
	forecast "estate-billing/internal/forecast/domain"
	forecastmemory "estate-billing/internal/forecast/infrastructure/memory"
)

func seedSummaries(t *testing.T) *billingmemory.SummaryRepository {
	t.Helper()
	repo := billingmemory.NewSummaryRepository()
	for _, summary := range []billing.EstateSummary{
		{
			EstateCode:           "ALPHA",
			EstateName:           "Alpha Gardens",
			Month:                5,
			Year:                 2026,
			TotalPayments:        4,
			ConfirmedPayments:    3,
			PendingPayments:      1,
			TotalAmountCollected: 350000,
			TotalCommissions:     17500,
			TotalCustomers:       3,
			ActiveAllocations:    3,
			OutstandingBalance:   650000,
			CollectionRate:       35,
		},
		{
			EstateCode:           "BETA",
			EstateName:           "Beta Heights",
			Month:                5,
			Year:                 2026,
			TotalPayments:        2,
			ConfirmedPayments:    2,
			TotalAmountCollected: 120000,
			TotalCustomers:       2,
			ActiveAllocations:    2,
			OutstandingBalance:   80000,
			CollectionRate:       60,
		},
	} {
		if err := repo.Upsert(context.Background(), summary); err != nil {
			t.Fatalf("seed summary: %v", err)
		}
	}
	return repo
}

func TestSummariesHandlerReturnsPeriod(t *testing.T) {
	handler := NewSummariesHandler(seedSummaries(t))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/summaries?month=5&year=2026", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	var resp struct {
		Period    string `json:"period"`
		Count     int    `json:"count"`
		Summaries []struct {
			EstateCode           string  `json:"estate_code"`
			TotalAmountCollected float64 `json:"total_amount_collected"`
		} `json:"summaries"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Period != "2026-05" || resp.Count != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Summaries[0].EstateCode != "ALPHA" || resp.Summaries[0].TotalAmountCollected != 350000 {
		t.Fatalf("unexpected first summary: %+v", resp.Summaries[0])
	}
}

func TestSummariesHandlerEstateFilter(t *testing.T) {
	handler := NewSummariesHandler(seedSummaries(t))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/summaries?month=5&year=2026&estate_code=BETA", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	var resp struct {
		Count     int `json:"count"`
		Summaries []struct {
			EstateCode string `json:"estate_code"`
		} `json:"summaries"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || resp.Summaries[0].EstateCode != "BETA" {
		t.Fatalf("unexpected filtered response: %+v", resp)
	}
}

func TestSummariesHandlerValidation(t *testing.T) {
	handler := NewSummariesHandler(seedSummaries(t))

	cases := []struct {
		name   string
		target string
		status int
	}{
		{"missing period", "/api/v1/summaries", http.StatusBadRequest},
		{"bad month", "/api/v1/summaries?month=13&year=2026", http.StatusBadRequest},
		{"bad year", "/api/v1/summaries?month=5&year=1900", http.StatusBadRequest},
		{"non numeric", "/api/v1/summaries?month=may&year=2026", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, tc.target, nil))
			if recorder.Code != tc.status {
				t.Fatalf("status = %d, want %d", recorder.Code, tc.status)
			}
		})
	}
}

func TestPredictionsHandlerReturnsRecent(t *testing.T) {
	repo := forecastmemory.NewPredictionRepository()
	accuracy := 91.5
	actual := 430000.0
	records := []forecast.PredictionRecord{
		{
			PredictedMonth:       time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
			PredictionDate:       time.Date(2026, time.May, 31, 0, 0, 0, 0, time.UTC),
			PredictedRevenue:     400000,
			ConfidenceLevel:      78,
			Method:               forecast.MethodLinearRegression,
			HistoricalDataPoints: 3,
			AvgHistoricalRevenue: 200000,
			ActualRevenue:        &actual,
			AccuracyPct:          &accuracy,
		},
		{
			PredictedMonth:   time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
			PredictionDate:   time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC),
			PredictedRevenue: 500000,
			ConfidenceLevel:  78,
			Method:           forecast.MethodLinearRegression,
		},
	}
	for _, record := range records {
		if err := repo.Upsert(context.Background(), record); err != nil {
			t.Fatalf("seed prediction: %v", err)
		}
	}
	handler := NewPredictionsHandler(repo)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/predictions", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", recorder.Code, recorder.Body.String())
	}
	var resp struct {
		Count       int `json:"count"`
		Predictions []struct {
			PredictedMonth string   `json:"predicted_month"`
			PredictionDate string   `json:"prediction_date"`
			AccuracyPct    *float64 `json:"accuracy_pct"`
		} `json:"predictions"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	// Newest run date first.
	if resp.Predictions[0].PredictionDate != "2026-06-15" {
		t.Fatalf("first prediction date = %q", resp.Predictions[0].PredictionDate)
	}
	if resp.Predictions[1].AccuracyPct == nil || *resp.Predictions[1].AccuracyPct != 91.5 {
		t.Fatalf("reconciled row missing accuracy: %+v", resp.Predictions[1])
	}
}

func TestPredictionsHandlerLimitValidation(t *testing.T) {
	handler := NewPredictionsHandler(forecastmemory.NewPredictionRepository())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/predictions?limit=9999", nil))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", recorder.Code)
	}
}
