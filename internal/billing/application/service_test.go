package application

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"estate-billing/internal/billing/cache"
	billing "estate-billing/internal/billing/domain"
	"estate-billing/internal/billing/infrastructure/memory"
)

type stubClock struct {
	now time.Time
}

func (c stubClock) Now() time.Time { return c.now }

type stubGateway struct {
	estates     []billing.Estate
	payments    map[string][]billing.Payment
	allocations map[string][]billing.Allocation
	commissions map[string][]billing.Commission
	failEstates map[string]error
	estatesErr  error

	paymentCalls atomic.Int64
}

func (g *stubGateway) ListActiveEstates(ctx context.Context) ([]billing.Estate, error) {
	_ = ctx
	if g.estatesErr != nil {
		return nil, g.estatesErr
	}
	return g.estates, nil
}

func (g *stubGateway) ListEstatePayments(ctx context.Context, estateCode string, period billing.Period) ([]billing.Payment, error) {
	_ = ctx
	_ = period
	g.paymentCalls.Add(1)
	if err := g.failEstates[estateCode]; err != nil {
		return nil, err
	}
	return g.payments[estateCode], nil
}

func (g *stubGateway) ListEstateAllocations(ctx context.Context, estateCode string) ([]billing.Allocation, error) {
	_ = ctx
	return g.allocations[estateCode], nil
}

func (g *stubGateway) ListEstateCommissions(ctx context.Context, estateCode string, agentIDs []string, period billing.Period) ([]billing.Commission, error) {
	_ = ctx
	_ = agentIDs
	_ = period
	return g.commissions[estateCode], nil
}

func testLogger() *log.Logger {
	return log.New(&strings.Builder{}, "", 0)
}

func twoEstateGateway() *stubGateway {
	return &stubGateway{
		estates: []billing.Estate{
			{ID: "e1", Code: "ALPHA", Name: "Alpha Gardens", Status: billing.EstateStatusActive},
			{ID: "e2", Code: "BETA", Name: "Beta Park", Status: billing.EstateStatusActive},
		},
		payments: map[string][]billing.Payment{
			"ALPHA": {
				{Amount: 100000, Status: billing.PaymentStatusConfirmed},
				{Amount: 50000, Status: billing.PaymentStatusPending},
			},
			"BETA": {
				{Amount: 250000, Status: billing.PaymentStatusConfirmed},
			},
		},
		allocations: map[string][]billing.Allocation{
			"ALPHA": {
				{ID: "a1", CustomerID: "c1", AgentID: "agent-1", TotalAmount: 400000, Balance: 300000, Status: billing.AllocationStatusActive},
			},
			"BETA": {
				{ID: "a2", CustomerID: "c2", AgentID: "agent-2", TotalAmount: 500000, Balance: 250000, Status: billing.AllocationStatusActive},
				{ID: "a3", CustomerID: "c3", Status: billing.AllocationStatusCompleted},
			},
		},
		commissions: map[string][]billing.Commission{
			"ALPHA": {{AgentID: "agent-1", Amount: 5000, Status: billing.CommissionStatusPending}},
			"BETA":  {{AgentID: "agent-2", Amount: 12500, Status: billing.CommissionStatusPaid}},
		},
	}
}

func TestGenerateTotalsMatchSummarySum(t *testing.T) {
	gateway := twoEstateGateway()
	repo := memory.NewSummaryRepository()
	service, err := NewSummaryService(gateway, repo, stubClock{now: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)}, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := service.Generate(context.Background(), GenerateRequest{Month: 3, Year: 2025})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.EstatesProcessed != 2 || len(result.Errors) != 0 {
		t.Fatalf("unexpected result: processed=%d errors=%v", result.EstatesProcessed, result.Errors)
	}

	var revenue float64
	for _, summary := range result.Summaries {
		revenue += summary.TotalAmountCollected
	}
	if result.Totals.TotalRevenue != revenue {
		t.Fatalf("totals revenue %v != sum of summaries %v", result.Totals.TotalRevenue, revenue)
	}
	if result.Totals.TotalRevenue != 350000 {
		t.Fatalf("expected revenue 350000, got %v", result.Totals.TotalRevenue)
	}
	if result.Totals.TotalCommissions != 17500 {
		t.Fatalf("expected commissions 17500, got %v", result.Totals.TotalCommissions)
	}
	if result.Totals.TotalCustomers != 3 {
		t.Fatalf("expected 3 customers, got %d", result.Totals.TotalCustomers)
	}
	if repo.Len() != 2 {
		t.Fatalf("expected 2 persisted rows, got %d", repo.Len())
	}
}

func TestGenerateRerunIsIdempotent(t *testing.T) {
	gateway := twoEstateGateway()
	repo := memory.NewSummaryRepository()
	service, err := NewSummaryService(gateway, repo, stubClock{now: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)}, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()
	req := GenerateRequest{Month: 3, Year: 2025}

	first, err := service.Generate(ctx, req)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := service.Generate(ctx, req)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if repo.Len() != 2 {
		t.Fatalf("rerun must not create duplicate rows, got %d", repo.Len())
	}
	stored, err := repo.Find(ctx, "ALPHA", billing.Period{Month: 3, Year: 2025})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.TotalAmountCollected != 100000 {
		t.Fatalf("stored totals changed on rerun: %v", stored.TotalAmountCollected)
	}
	if first.Totals != second.Totals {
		t.Fatalf("totals changed on rerun: %+v vs %+v", first.Totals, second.Totals)
	}
}

func TestGeneratePartialFailure(t *testing.T) {
	gateway := twoEstateGateway()
	gateway.failEstates = map[string]error{"BETA": errors.New("upstream timeout")}
	repo := memory.NewSummaryRepository()
	service, err := NewSummaryService(gateway, repo, stubClock{now: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)}, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := service.Generate(context.Background(), GenerateRequest{Month: 3, Year: 2025})
	if err != nil {
		t.Fatalf("generate must not abort on per-estate failure: %v", err)
	}
	if result.EstatesProcessed != 1 {
		t.Fatalf("expected 1 processed estate, got %d", result.EstatesProcessed)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "BETA") {
		t.Fatalf("expected BETA error, got %v", result.Errors)
	}
	if repo.Len() != 1 {
		t.Fatalf("expected only ALPHA persisted, got %d rows", repo.Len())
	}
}

func TestGenerateNoActiveEstatesIsFatal(t *testing.T) {
	gateway := &stubGateway{}
	service, err := NewSummaryService(gateway, memory.NewSummaryRepository(), stubClock{now: time.Now()}, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = service.Generate(context.Background(), GenerateRequest{Month: 3, Year: 2025})
	if !errors.Is(err, billing.ErrNoActiveEstates) {
		t.Fatalf("expected ErrNoActiveEstates, got %v", err)
	}
}

func TestGenerateEstateCodeFilter(t *testing.T) {
	gateway := twoEstateGateway()
	repo := memory.NewSummaryRepository()
	service, err := NewSummaryService(gateway, repo, stubClock{now: time.Now()}, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := service.Generate(context.Background(), GenerateRequest{Month: 3, Year: 2025, EstateCode: "ALPHA"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.EstatesProcessed != 1 || result.Summaries[0].EstateCode != "ALPHA" {
		t.Fatalf("filter not applied: %+v", result.Summaries)
	}

	_, err = service.Generate(context.Background(), GenerateRequest{Month: 3, Year: 2025, EstateCode: "NOPE"})
	if !errors.Is(err, billing.ErrNoActiveEstates) {
		t.Fatalf("unknown estate filter must be fatal, got %v", err)
	}
}

func TestGenerateDefaultsToCurrentMonth(t *testing.T) {
	gateway := twoEstateGateway()
	service, err := NewSummaryService(gateway, memory.NewSummaryRepository(), stubClock{now: time.Date(2025, 7, 9, 12, 0, 0, 0, time.UTC)}, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := service.Generate(context.Background(), GenerateRequest{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Period != (billing.Period{Month: 7, Year: 2025}) {
		t.Fatalf("expected current month default, got %+v", result.Period)
	}
}

func TestGenerateInvalidMonth(t *testing.T) {
	service, err := NewSummaryService(twoEstateGateway(), memory.NewSummaryRepository(), stubClock{now: time.Now()}, testLogger())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	_, err = service.Generate(context.Background(), GenerateRequest{Month: 13, Year: 2025})
	if !errors.Is(err, billing.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestGenerateConsultsCacheBeforeRecompute(t *testing.T) {
	gateway := twoEstateGateway()
	repo := memory.NewSummaryRepository()
	summaryCache := cache.NewMemoryCache(time.Hour, nil)
	service, err := NewSummaryService(gateway, repo, stubClock{now: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)}, testLogger(), WithCache(summaryCache))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()
	req := GenerateRequest{Month: 3, Year: 2025}

	if _, err := service.Generate(ctx, req); err != nil {
		t.Fatalf("first run: %v", err)
	}
	calls := gateway.paymentCalls.Load()
	if calls != 2 {
		t.Fatalf("expected 2 payment fetches on cold cache, got %d", calls)
	}

	if _, err := service.Generate(ctx, req); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if gateway.paymentCalls.Load() != calls {
		t.Fatal("cached run must not refetch upstream rows")
	}

	// Forced regeneration bypasses and refills the cache.
	req.ForceRegenerate = true
	if _, err := service.Generate(ctx, req); err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if gateway.paymentCalls.Load() != calls+2 {
		t.Fatalf("forced run must recompute, calls=%d", gateway.paymentCalls.Load())
	}
}
