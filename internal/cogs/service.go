package cogs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// RepositoryPort abstracts the read-only queries the engine consumes.
// Every fetch is independent of the others; the service issues them
// concurrently and only the final aggregation depends on all of them.
type RepositoryPort interface {
	PriorClosedPeriod(ctx context.Context, before time.Time) (*ReportingPeriod, error)
	ListInventoryItems(ctx context.Context) ([]InventoryItem, error)
	ListInvoices(ctx context.Context, start, end time.Time) ([]Invoice, error)
	ListSoldLines(ctx context.Context, start, end time.Time) ([]SoldLine, error)
	ListSellables(ctx context.Context) ([]Sellable, error)
	ListSellableAliases(ctx context.Context) ([]SellableAlias, error)
	ListProductRecipes(ctx context.Context) ([]ProductRecipe, error)
	ListSellableOverrides(ctx context.Context) ([]SellableOverride, error)
	ListModifierOptions(ctx context.Context) ([]ModifierOption, error)
	ListModifierRecipes(ctx context.Context) ([]ModifierRecipe, error)
	ListWasteMovements(ctx context.Context, start, end time.Time) ([]StockMovement, error)
}

// Provenance values reported in the inputs block.
const (
	invoicesMethodConfirmed = "confirmed_invoice_totals"
	inventoryMethodLive     = "live_snapshot"
	beginSourcePriorPeriod  = "prior_closed_period"
	beginSourceNone         = "none"
)

// Service builds COGS reports from a repository snapshot. It holds no
// mutable state across requests; each invocation works on its own
// fetched data.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	logger *slog.Logger
}

// NewService constructs the report service. The cache may be nil, in
// which case cached lookups fall through to direct computation.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// BuildReport computes a full report for the requested range. Input
// errors reject the request before any fetch; repository failures
// propagate as fatal; per-line data gaps surface only through the
// coverage counters.
func (s *Service) BuildReport(ctx context.Context, req ReportRequest) (Report, error) {
	if err := req.Validate(); err != nil {
		return Report{}, err
	}

	var (
		prior    *ReportingPeriod
		invoices []Invoice
		snap     Snapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.repo.PriorClosedPeriod(gctx, req.StartAt)
		if err != nil {
			return fmt.Errorf("cogs: fetch prior period: %w", err)
		}
		prior = p
		return nil
	})
	g.Go(func() error {
		items, err := s.repo.ListInventoryItems(gctx)
		if err != nil {
			return fmt.Errorf("cogs: fetch inventory: %w", err)
		}
		snap.Inventory = items
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.ListInvoices(gctx, req.StartAt, req.EndAt)
		if err != nil {
			return fmt.Errorf("cogs: fetch invoices: %w", err)
		}
		invoices = rows
		return nil
	})

	if req.IncludeTheoretical {
		g.Go(func() error {
			rows, err := s.repo.ListSoldLines(gctx, req.StartAt, req.EndAt)
			if err != nil {
				return fmt.Errorf("cogs: fetch sold lines: %w", err)
			}
			snap.SoldLines = rows
			return nil
		})
		g.Go(func() error {
			rows, err := s.repo.ListSellables(gctx)
			if err != nil {
				return fmt.Errorf("cogs: fetch sellables: %w", err)
			}
			snap.Sellables = rows
			return nil
		})
		g.Go(func() error {
			rows, err := s.repo.ListSellableAliases(gctx)
			if err != nil {
				return fmt.Errorf("cogs: fetch sellable aliases: %w", err)
			}
			snap.Aliases = rows
			return nil
		})
		g.Go(func() error {
			rows, err := s.repo.ListProductRecipes(gctx)
			if err != nil {
				return fmt.Errorf("cogs: fetch recipes: %w", err)
			}
			snap.Recipes = rows
			return nil
		})
		g.Go(func() error {
			rows, err := s.repo.ListSellableOverrides(gctx)
			if err != nil {
				return fmt.Errorf("cogs: fetch overrides: %w", err)
			}
			snap.Overrides = rows
			return nil
		})
		g.Go(func() error {
			rows, err := s.repo.ListModifierOptions(gctx)
			if err != nil {
				return fmt.Errorf("cogs: fetch modifier options: %w", err)
			}
			snap.ModifierOptions = rows
			return nil
		})
		g.Go(func() error {
			rows, err := s.repo.ListModifierRecipes(gctx)
			if err != nil {
				return fmt.Errorf("cogs: fetch modifier recipes: %w", err)
			}
			snap.ModifierRecipes = rows
			return nil
		})
		g.Go(func() error {
			rows, err := s.repo.ListWasteMovements(gctx, req.StartAt, req.EndAt)
			if err != nil {
				return fmt.Errorf("cogs: fetch waste movements: %w", err)
			}
			snap.Movements = rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{
		Periodic: AccountPeriodic(prior, invoices, snap.Inventory, req),
		Inputs: ReportInputs{
			InvoicesMethod:       invoicesMethodConfirmed,
			InventoryMethod:      inventoryMethodLive,
			BeginInventorySource: beginSourceNone,
		},
	}
	if prior != nil && prior.Status == PeriodStatusClosed && prior.EndingInventoryValue != nil {
		report.Inputs.BeginInventorySource = beginSourcePriorPeriod
	}

	if req.IncludeTheoretical {
		theoretical := AggregateTheoretical(snap)
		theoretical.VarianceValue = round2(report.Periodic.PeriodicCOGSValue - theoretical.TheoreticalCOGSValue)
		report.Theoretical = &theoretical
	}

	if s.logger != nil {
		s.logger.Info("cogs report built",
			slog.Time("start_at", req.StartAt),
			slog.Time("end_at", req.EndAt),
			slog.Bool("theoretical", req.IncludeTheoretical),
			slog.Float64("periodic_cogs", report.Periodic.PeriodicCOGSValue),
		)
	}
	return report, nil
}

// CachedReport serves the report through the versioned Redis cache,
// computing and storing it on a miss. With no cache configured it
// degrades to a direct computation.
func (s *Service) CachedReport(ctx context.Context, req ReportRequest) (Report, error) {
	if err := req.Validate(); err != nil {
		return Report{}, err
	}
	key, err := s.cacheKey(ctx, req)
	if err != nil {
		return Report{}, err
	}
	var report Report
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		return s.BuildReport(ctx, req)
	})
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

func (s *Service) cacheKey(ctx context.Context, req ReportRequest) (string, error) {
	return s.cache.BuildKey(ctx, "cogs", "report",
		req.StartAt.UTC().Format(time.RFC3339),
		req.EndAt.UTC().Format(time.RFC3339),
		fmt.Sprintf("%t", req.IncludeTheoretical),
	)
}

// WarmReport computes the report and writes it through to the cache so
// later CachedReport calls hit. Used by the snapshot warmup job.
func (s *Service) WarmReport(ctx context.Context, req ReportRequest) error {
	report, err := s.BuildReport(ctx, req)
	if err != nil {
		return err
	}
	key, err := s.cacheKey(ctx, req)
	if err != nil {
		return err
	}
	return s.cache.StoreJSON(ctx, key, report)
}
