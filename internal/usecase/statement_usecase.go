package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/iho/ledgerrecon/internal/domain"
)

// StatementConfig wires a StatementUseCase.
type StatementConfig struct {
	Transactions TransactionRepository
	Orders       SalesOrderRepository
	Inventory    InventoryRepository
	Statements   StatementRepository
	Outbox       OutboxRepository
	Rules        RuleSetProvider
	Tax          *TaxUseCase
	IDGen        IDGenerator
	Metrics      StatementMetrics
	Clock        Clock
	Logger       zerolog.Logger
	StageTimeout time.Duration
}

// StatementUseCase builds profit and loss statements.
type StatementUseCase struct {
	transactions TransactionRepository
	orders       SalesOrderRepository
	inventory    InventoryRepository
	statements   StatementRepository
	outbox       OutboxRepository
	rules        RuleSetProvider
	tax          *TaxUseCase
	idGen        IDGenerator
	metrics      StatementMetrics
	now          Clock
	logger       zerolog.Logger
	stageTimeout time.Duration
}

// NewStatementUseCase creates a new StatementUseCase.
func NewStatementUseCase(cfg StatementConfig) *StatementUseCase {
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopStatementMetrics{}
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = DefaultStageTimeout
	}
	if cfg.Tax == nil {
		cfg.Tax = NewTaxUseCase(cfg.Orders, cfg.Transactions, cfg.Logger)
	}

	return &StatementUseCase{
		transactions: cfg.Transactions,
		orders:       cfg.Orders,
		inventory:    cfg.Inventory,
		statements:   cfg.Statements,
		outbox:       cfg.Outbox,
		rules:        cfg.Rules,
		tax:          cfg.Tax,
		idGen:        cfg.IDGen,
		metrics:      cfg.Metrics,
		now:          cfg.Clock,
		logger:       cfg.Logger,
		stageTimeout: cfg.StageTimeout,
	}
}

// StatementOptions configures one generation. Chart and SalesTax override the
// provider's chart and its payable account. A nil IncomeTax books no income tax.
type StatementOptions struct {
	Chart               *domain.ChartOfAccounts
	SalesTax            *domain.SalesTaxConfig
	IncomeTax           *domain.IncomeTaxConfig
	CompareWithPrevious bool
	CompareWithBudget   bool
	Persist             bool
}

// GetStatement returns a previously persisted statement.
func (uc *StatementUseCase) GetStatement(ctx context.Context, id string) (*domain.PLStatement, error) {
	if uc.statements == nil {
		return nil, domain.ErrStatementNotFound
	}
	return uc.statements.GetByID(ctx, id)
}

// Generate builds the statement for period. Inputs are validated before any data is
// read. Revenue and COGS failures abort; the other stages degrade to zero with a
// warning on the statement.
func (uc *StatementUseCase) Generate(ctx context.Context, period domain.Period, opts StatementOptions) (*domain.PLStatement, error) {
	start := time.Now()

	if err := period.Validate(); err != nil {
		return nil, err
	}
	if opts.IncomeTax != nil {
		if err := opts.IncomeTax.Validate(); err != nil {
			return nil, err
		}
	}

	classifier, err := uc.rules.Classifier()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRulesUnavailable, err)
	}

	chart := uc.rules.Chart()
	if opts.Chart != nil {
		chart = *opts.Chart
	}
	if err := chart.Validate(); err != nil {
		return nil, err
	}

	salesTaxCfg := domain.SalesTaxConfig{PayableAccountCode: chart.SalesTaxPayableCode}
	if opts.SalesTax != nil {
		salesTaxCfg = *opts.SalesTax
	}

	stmt := &domain.PLStatement{
		ID:           uc.idGen.Generate(),
		Period:       period,
		GeneratedAt:  uc.now(),
		RulesVersion: classifier.Version(),
	}

	log := uc.logger.With().
		Str("statement_id", stmt.ID).
		Time("period_start", period.Start).
		Time("period_end", period.End).
		Logger()

	var (
		mu       sync.Mutex
		salesTax *domain.SalesTaxResult
	)

	warn := func(stage string, err error) {
		uc.metrics.RecordStageFailure(stage)
		log.Warn().Err(err).Str("stage", stage).Msg("statement stage degraded to zero")
		mu.Lock()
		stmt.Warnings = append(stmt.Warnings, domain.StageWarning{Stage: stage, Message: err.Error()})
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rev, err := uc.revenue(gctx, period, chart)
		if err != nil {
			uc.metrics.RecordStageFailure(StageRevenue)
			log.Error().Err(err).Str("stage", StageRevenue).Msg("statement stage failed")
			return fmt.Errorf("%s stage: %w", StageRevenue, err)
		}
		stmt.Revenue = rev
		return nil
	})

	g.Go(func() error {
		cogs, err := uc.cogs(gctx, period, chart)
		if err != nil {
			uc.metrics.RecordStageFailure(StageCOGS)
			log.Error().Err(err).Str("stage", StageCOGS).Msg("statement stage failed")
			return fmt.Errorf("%s stage: %w", StageCOGS, err)
		}
		stmt.COGS = cogs
		return nil
	})

	g.Go(func() error {
		opex, err := uc.operatingExpenses(gctx, period, chart, classifier)
		if err != nil {
			warn(StageOpex, err)
			opex = domain.NewOperatingExpenses(nil)
		}
		stmt.OperatingExpenses = opex
		return nil
	})

	g.Go(func() error {
		other, err := uc.otherIncomeExpense(gctx, period, chart, classifier)
		if err != nil {
			warn(StageOther, err)
			other = domain.NewOtherSection(nil, nil)
		}
		stmt.Other = other
		return nil
	})

	g.Go(func() error {
		stageCtx, cancel := context.WithTimeout(gctx, uc.stageTimeout)
		defer cancel()

		res, err := uc.tax.SalesTax(stageCtx, period, salesTaxCfg)
		if err != nil {
			warn(StageSalesTax, err)
			return nil
		}
		salesTax = res
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("generate statement: %w", err)
	}

	stmt.ComputeEarnings()

	incomeTax := domain.IncomeTaxResult{Amount: decimal.Zero, EffectiveRate: decimal.Zero}
	if opts.IncomeTax != nil {
		incomeTax, err = uc.tax.IncomeTax(stmt.Totals.EarningsBeforeTax, *opts.IncomeTax)
		if err != nil {
			return nil, fmt.Errorf("income tax: %w", err)
		}
	}
	stmt.ApplyTaxes(incomeTax, salesTax)

	uc.compare(ctx, stmt, opts, warn)

	if opts.Persist && uc.statements != nil {
		if err := uc.statements.Save(ctx, stmt); err != nil {
			log.Error().Err(err).Msg("failed to persist statement")
			return stmt, fmt.Errorf("persist statement: %w", err)
		}
		uc.announce(ctx, log, stmt)
	}

	uc.metrics.RecordGeneration(time.Since(start))

	log.Info().
		Str("total_revenue", stmt.Totals.TotalRevenue.String()).
		Str("net_income", stmt.Totals.NetIncome.String()).
		Int("warnings", len(stmt.Warnings)).
		Msg("statement generated")

	return stmt, nil
}

// announce queues a statement.generated event. Failures are logged only.
func (uc *StatementUseCase) announce(ctx context.Context, log zerolog.Logger, stmt *domain.PLStatement) {
	if uc.outbox == nil {
		return
	}

	err := uc.outbox.Create(ctx, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   stmt.ID,
		AggregateType: domain.AggregateTypeStatement,
		EventType:     domain.EventTypeStatementGenerated,
		Payload: domain.MarshalState(domain.StatementGeneratedEvent{
			StatementID: stmt.ID,
			PeriodStart: stmt.Period.Start.Format(time.RFC3339),
			PeriodEnd:   stmt.Period.End.Format(time.RFC3339),
			NetIncome:   stmt.Totals.NetIncome.String(),
		}),
		CreatedAt: uc.now(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to queue statement event")
	}
}

func (uc *StatementUseCase) compare(ctx context.Context, stmt *domain.PLStatement, opts StatementOptions, warn func(string, error)) {
	if uc.statements == nil {
		return
	}

	if opts.CompareWithPrevious {
		prevPeriod := stmt.Period.Previous()
		prev, err := uc.statements.FindByPeriod(ctx, prevPeriod)
		switch {
		case err == nil:
			stmt.PreviousPeriod = domain.NewComparison(domain.ComparisonPreviousPeriod, prevPeriod, stmt.Totals, prev.Totals)
		case !errors.Is(err, domain.ErrNotFound):
			warn(StageComparison, err)
		}
	}

	if opts.CompareWithBudget {
		budget, err := uc.statements.FindBudget(ctx, stmt.Period)
		switch {
		case err == nil:
			stmt.Budget = domain.NewComparison(domain.ComparisonBudget, stmt.Period, stmt.Totals, *budget)
		case !errors.Is(err, domain.ErrNotFound):
			warn(StageComparison, err)
		}
	}
}

func (uc *StatementUseCase) find(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.stageTimeout)
	defer cancel()
	return uc.transactions.Find(ctx, filter)
}

func (uc *StatementUseCase) confirmedOrders(ctx context.Context, period domain.Period) ([]*domain.SalesOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.stageTimeout)
	defer cancel()
	return uc.orders.ListConfirmed(ctx, period)
}

// revenue derives gross sales from revenue postings, falling back to confirmed
// orders when the period has none.
func (uc *StatementUseCase) revenue(ctx context.Context, period domain.Period, chart domain.ChartOfAccounts) (domain.RevenueSection, error) {
	codes := concat(chart.RevenueCodes, chart.SalesReturnCodes, chart.SalesDiscountCodes)
	txns, err := uc.find(ctx, domain.TransactionFilter{Period: period, AccountCodes: codes})
	if err != nil {
		return domain.RevenueSection{}, fmt.Errorf("load revenue postings: %w", err)
	}

	orders, err := uc.confirmedOrders(ctx, period)
	if err != nil {
		return domain.RevenueSection{}, fmt.Errorf("load sales orders: %w", err)
	}

	posted := decimal.Zero
	returns := decimal.Zero
	discounts := domain.DiscountBreakdown{}

	for _, t := range txns {
		if chart.IsOther(t) {
			continue
		}
		switch {
		case containsString(chart.RevenueCodes, t.AccountCode):
			posted = posted.Add(t.CreditAmount.Sub(t.DebitAmount))
		case containsString(chart.SalesReturnCodes, t.AccountCode):
			returns = returns.Add(t.Net())
		case containsString(chart.SalesDiscountCodes, t.AccountCode):
			discounts.Add(domain.CategorizeDiscount(t), t.Net())
		}
	}

	fromOrders := decimal.Zero
	for _, o := range orders {
		if o.Status == domain.SalesOrderConfirmed && period.Contains(o.ConfirmedAt) {
			fromOrders = fromOrders.Add(o.Subtotal)
		}
	}

	return domain.NewRevenueSection(domain.ResolvePrimaryElseFallback(posted, fromOrders), returns, discounts), nil
}

// cogs values current stock and sums purchase postings. Cost of sales comes from
// COGS postings, falling back to order line costs.
func (uc *StatementUseCase) cogs(ctx context.Context, period domain.Period, chart domain.ChartOfAccounts) (domain.COGSSection, error) {
	stockCtx, cancel := context.WithTimeout(ctx, uc.stageTimeout)
	stock, err := uc.inventory.CurrentStock(stockCtx)
	cancel()
	if err != nil {
		return domain.COGSSection{}, fmt.Errorf("load inventory: %w", err)
	}

	codes := concat(chart.COGSCodes, chart.PurchaseCodes, chart.FreightInCodes, chart.PurchaseReturnCodes, chart.PurchaseDiscountCodes)
	txns, err := uc.find(ctx, domain.TransactionFilter{Period: period, AccountCodes: codes})
	if err != nil {
		return domain.COGSSection{}, fmt.Errorf("load cost postings: %w", err)
	}

	orders, err := uc.confirmedOrders(ctx, period)
	if err != nil {
		return domain.COGSSection{}, fmt.Errorf("load sales orders: %w", err)
	}

	inventory := decimal.Zero
	for _, s := range stock {
		inventory = inventory.Add(s.Value())
	}

	var posted, purchases, freight, returns, discounts decimal.Decimal
	for _, t := range txns {
		if chart.IsOther(t) {
			continue
		}
		switch {
		case containsString(chart.COGSCodes, t.AccountCode):
			posted = posted.Add(t.Net())
		case containsString(chart.PurchaseCodes, t.AccountCode):
			purchases = purchases.Add(t.Net())
		case containsString(chart.FreightInCodes, t.AccountCode):
			freight = freight.Add(t.Net())
		case containsString(chart.PurchaseReturnCodes, t.AccountCode):
			returns = returns.Add(t.CreditAmount.Sub(t.DebitAmount))
		case containsString(chart.PurchaseDiscountCodes, t.AccountCode):
			discounts = discounts.Add(t.CreditAmount.Sub(t.DebitAmount))
		}
	}

	fromLines := decimal.Zero
	for _, o := range orders {
		if o.Status != domain.SalesOrderConfirmed || !period.Contains(o.ConfirmedAt) {
			continue
		}
		for _, l := range o.Lines {
			fromLines = fromLines.Add(l.Cost())
		}
	}

	costOfSales := domain.ResolvePrimaryElseFallback(posted, fromLines)

	return domain.NewCOGSSection(inventory, purchases, freight, returns, discounts, costOfSales), nil
}

// operatingExpenses classifies every debit posting under an expense prefix.
func (uc *StatementUseCase) operatingExpenses(ctx context.Context, period domain.Period, chart domain.ChartOfAccounts, classifier *domain.Classifier) (domain.OperatingExpenses, error) {
	txns, err := uc.find(ctx, domain.TransactionFilter{
		Period:          period,
		Side:            domain.SideDebit,
		AccountPrefixes: chart.OperatingExpensePrefixes,
	})
	if err != nil {
		return domain.OperatingExpenses{}, fmt.Errorf("load expense postings: %w", err)
	}

	items := make([]domain.ClassifiedTransaction, 0, len(txns))
	for _, t := range txns {
		if !chart.IsOperatingExpense(t) {
			continue
		}
		items = append(items, domain.ClassifiedTransaction{
			CreatedAt:   t.CreatedAt,
			ID:          t.ID,
			AccountCode: t.AccountCode,
			AccountName: t.AccountName,
			Description: t.Description,
			Amount:      t.DebitAmount,
			Classification: classifier.Classify(domain.ClassifyInput{
				AccountCode: t.AccountCode,
				AccountName: t.AccountName,
				Description: t.Description,
				Tags:        t.TagList(),
			}),
		})
	}

	return domain.NewOperatingExpenses(items), nil
}

// otherIncomeExpense resolves non-operating postings by code, category and name.
// Postings on configured codes that no rule recognises are booked as misc.
func (uc *StatementUseCase) otherIncomeExpense(ctx context.Context, period domain.Period, chart domain.ChartOfAccounts, classifier *domain.Classifier) (domain.OtherSection, error) {
	txns, err := uc.find(ctx, domain.TransactionFilter{
		Period:       period,
		AccountCodes: concat(chart.OtherIncomeCodes, chart.OtherExpenseCodes),
		Categories:   concat(chart.OtherIncomeCategories, chart.OtherExpenseCategories),
	})
	if err != nil {
		return domain.OtherSection{}, fmt.Errorf("load other income and expense postings: %w", err)
	}

	amounts := make(map[domain.OtherKind]decimal.Decimal)
	counts := make(map[domain.OtherKind]int)

	for _, t := range txns {
		side := chart.OtherSideOf(t.AccountCode, t.AccountCategory)
		kind := classifier.ClassifyOtherOnSide(t.AccountCode, t.AccountName, t.AccountCategory, side).Kind
		if kind == "" {
			switch side {
			case domain.OtherSideIncome:
				kind = domain.OtherMiscIncome
			case domain.OtherSideExpense:
				kind = domain.OtherMiscExpense
			default:
				continue
			}
		}

		amount := t.Net()
		if kind.IsIncome() {
			amount = amount.Neg()
		}
		amounts[kind] = amounts[kind].Add(amount)
		counts[kind]++
	}

	return domain.NewOtherSection(amounts, counts), nil
}

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type noopStatementMetrics struct{}

func (noopStatementMetrics) RecordGeneration(time.Duration) {}
func (noopStatementMetrics) RecordStageFailure(string)      {}
