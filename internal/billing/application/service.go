package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"estate-billing/internal/billing/cache"
	billing "estate-billing/internal/billing/domain"
	"estate-billing/internal/observability/metrics"
)

// Clock provides time for request defaulting.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

// Now returns current time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// GenerateRequest selects the billing period and targets for one run.
type GenerateRequest struct {
	Month           int
	Year            int
	EstateCode      string
	ForceRegenerate bool
}

// Normalize fills an unset period with the current month.
func (r *GenerateRequest) Normalize(now time.Time) {
	if r.Month == 0 && r.Year == 0 {
		current := billing.PeriodOf(now)
		r.Month = current.Month
		r.Year = current.Year
		return
	}
	if r.Year == 0 {
		r.Year = now.UTC().Year()
	}
	if r.Month == 0 {
		r.Month = int(now.UTC().Month())
	}
}

// Period returns the requested billing period.
func (r GenerateRequest) Period() billing.Period {
	return billing.Period{Month: r.Month, Year: r.Year}
}

// Validate checks the requested period.
func (r GenerateRequest) Validate() error {
	return r.Period().Validate()
}

// Totals are the cross-estate sums for one period. Addition is commutative
// and associative, so the fan-in order of estate results does not matter.
type Totals struct {
	TotalRevenue     float64 `json:"total_revenue"`
	TotalCommissions float64 `json:"total_commissions"`
	TotalPayments    int     `json:"total_payments"`
	TotalCustomers   int     `json:"total_customers"`
	TotalOutstanding float64 `json:"total_outstanding"`
}

func (t *Totals) add(summary billing.EstateSummary) {
	t.TotalRevenue += summary.TotalAmountCollected
	t.TotalCommissions += summary.TotalCommissions
	t.TotalPayments += summary.TotalPayments
	t.TotalCustomers += summary.TotalCustomers
	t.TotalOutstanding += summary.OutstandingBalance
}

// GenerateResult is the outcome of one aggregation run. A populated Errors
// slice alongside summaries means partial success.
type GenerateResult struct {
	RunID            string
	Period           billing.Period
	EstatesProcessed int
	Totals           Totals
	Summaries        []billing.EstateSummary
	Errors           []string
	GeneratedAt      time.Time
}

// SummaryService aggregates monthly estate metrics and persists them.
type SummaryService struct {
	gateway billing.SourceGateway
	repo    billing.SummaryRepository
	cache   cache.SummaryCache
	clock   Clock
	logger  *log.Logger
	workers int
}

// ServiceOption configures the service.
type ServiceOption func(*SummaryService)

// WithWorkers bounds per-estate parallelism.
func WithWorkers(workers int) ServiceOption {
	return func(s *SummaryService) {
		if workers > 0 {
			s.workers = workers
		}
	}
}

// WithCache installs a summary cache consulted before recomputation.
func WithCache(c cache.SummaryCache) ServiceOption {
	return func(s *SummaryService) {
		s.cache = c
	}
}

// NewSummaryService constructs the service.
func NewSummaryService(gateway billing.SourceGateway, repo billing.SummaryRepository, clock Clock, logger *log.Logger, opts ...ServiceOption) (*SummaryService, error) {
	if gateway == nil {
		return nil, errors.New("billing service: nil source gateway")
	}
	if repo == nil {
		return nil, errors.New("billing service: nil summary repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	service := &SummaryService{
		gateway: gateway,
		repo:    repo,
		clock:   clock,
		logger:  logger,
		workers: 4,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Generate runs the aggregation for every targeted estate. Per-estate
// failures are collected and do not abort the batch; an empty estate set is
// fatal. Estates already persisted before a cancellation stay durable and a
// retry is safe because the store upserts.
func (s *SummaryService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	req.Normalize(s.clock.Now())
	if err := req.Validate(); err != nil {
		return nil, err
	}
	period := req.Period()

	estates, err := s.gateway.ListActiveEstates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active estates: %w", err)
	}
	if req.EstateCode != "" {
		filtered := estates[:0]
		for _, estate := range estates {
			if estate.Code == req.EstateCode {
				filtered = append(filtered, estate)
			}
		}
		estates = filtered
	}
	if len(estates) == 0 {
		return nil, billing.ErrNoActiveEstates
	}

	result := &GenerateResult{
		RunID:  uuid.NewString(),
		Period: period,
	}
	s.logger.Printf("billing run %s: period=%s estates=%d force=%t", result.RunID, period.Key(), len(estates), req.ForceRegenerate)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.workers)
	)
	for _, estate := range estates {
		wg.Add(1)
		go func(estate billing.Estate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			summary, err := s.aggregateEstate(ctx, estate, period, req.ForceRegenerate)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("estate %s: %v", estate.Code, err))
				return
			}
			result.Summaries = append(result.Summaries, *summary)
			result.Totals.add(*summary)
		}(estate)
	}
	wg.Wait()

	sort.Slice(result.Summaries, func(i, j int) bool {
		return result.Summaries[i].EstateCode < result.Summaries[j].EstateCode
	})
	result.EstatesProcessed = len(result.Summaries)
	result.GeneratedAt = s.clock.Now()

	for _, msg := range result.Errors {
		s.logger.Printf("billing run %s: %s", result.RunID, msg)
	}
	return result, nil
}

func (s *SummaryService) aggregateEstate(ctx context.Context, estate billing.Estate, period billing.Period, force bool) (*billing.EstateSummary, error) {
	key := cache.Key(estate.Code, period)
	if s.cache != nil {
		if force {
			if err := s.cache.Invalidate(ctx, key); err != nil {
				s.logger.Printf("summary cache invalidate %s: %v", key, err)
			}
		} else {
			cached, err := s.cache.Get(ctx, key)
			if err != nil {
				s.logger.Printf("summary cache get %s: %v", key, err)
			}
			if cached != nil {
				metrics.IncSummaryCacheEvent("hit")
				return cached, nil
			}
			metrics.IncSummaryCacheEvent("miss")
		}
	}

	payments, err := s.gateway.ListEstatePayments(ctx, estate.Code, period)
	if err != nil {
		return nil, fmt.Errorf("fetch payments: %w", err)
	}
	allocations, err := s.gateway.ListEstateAllocations(ctx, estate.Code)
	if err != nil {
		return nil, fmt.Errorf("fetch allocations: %w", err)
	}
	var commissions []billing.Commission
	if agents := billing.AgentIDs(allocations); len(agents) > 0 {
		commissions, err = s.gateway.ListEstateCommissions(ctx, estate.Code, agents, period)
		if err != nil {
			return nil, fmt.Errorf("fetch commissions: %w", err)
		}
	}

	summary := billing.BuildEstateSummary(estate, period, payments, allocations, commissions)
	if err := summary.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, summary); err != nil {
		return nil, fmt.Errorf("persist summary: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary); err != nil {
			s.logger.Printf("summary cache set %s: %v", key, err)
		}
	}
	return &summary, nil
}
