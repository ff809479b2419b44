package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"multi-merchant-settlement/internal/core/domain"
	"multi-merchant-settlement/internal/core/ports"
	"multi-merchant-settlement/pkg/apperror"
	"multi-merchant-settlement/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	defaultSyncBatchSize = 500
	defaultSyncClaimTTL  = 2 * time.Minute
	defaultRetentionDays = 90
	maxSyncErrorLength   = 500
)

// ReconciliationOptions tune the reconciliation service.
type ReconciliationOptions struct {
	BatchSize     int
	ClaimTTL      time.Duration
	RetentionDays int
}

// ReconciliationDeps are the collaborators of the reconciliation service.
// Owners, Claims, Notifier, Metrics and Tracer are optional.
type ReconciliationDeps struct {
	Sales    ports.SaleRepository
	Orders   ports.OrderSource
	Ledgers  ports.LedgerProvider
	Owners   ports.OwnershipRepository
	Claims   ports.LockStore
	Notifier ports.Notifier
	Metrics  *Metrics
	Tracer   trace.Tracer
}

// ReconciliationServiceImpl implements ports.ReconciliationService.
type ReconciliationServiceImpl struct {
	deps ReconciliationDeps
	opts ReconciliationOptions
	log  zerolog.Logger
	now  func() time.Time
}

// NewReconciliationService creates a new ReconciliationServiceImpl.
func NewReconciliationService(deps ReconciliationDeps, opts ReconciliationOptions, log zerolog.Logger) *ReconciliationServiceImpl {
	if deps.Metrics == nil {
		deps.Metrics = NoopMetrics()
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultSyncBatchSize
	}
	if opts.ClaimTTL <= 0 {
		opts.ClaimTTL = defaultSyncClaimTTL
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = defaultRetentionDays
	}
	return &ReconciliationServiceImpl{
		deps: deps,
		opts: opts,
		log:  logger.Component(log, "reconciliation"),
		now:  time.Now,
	}
}

// SyncOne replicates one completed sale into its merchant's ledger. It is
// safe to call repeatedly and concurrently: the ledger write is keyed by sale
// id and the synced flag flips under a conditional update, so at most one
// caller wins and notifies.
func (s *ReconciliationServiceImpl) SyncOne(ctx context.Context, saleID uuid.UUID) (*ports.SyncOutcome, error) {
	sale, err := s.deps.Sales.GetByID(ctx, saleID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get sale: %w", err))
	}
	if sale == nil {
		return nil, apperror.ErrNotFound("Sale")
	}
	return s.syncOne(ctx, sale)
}

func (s *ReconciliationServiceImpl) syncOne(ctx context.Context, sale *domain.Sale) (*ports.SyncOutcome, error) {
	if sale.Synced {
		return &ports.SyncOutcome{SaleID: sale.ID, Synced: true, AlreadySynced: true}, nil
	}
	if sale.Status != domain.SaleStatusCompleted {
		return nil, apperror.ErrSyncFailed(fmt.Sprintf("sale is %s, only completed sales are synced", sale.Status), nil)
	}

	ctx, span := s.deps.Tracer.Start(ctx, "reconciliation.SyncOne", trace.WithAttributes(
		attribute.String("sale.id", sale.ID.String()),
		attribute.Int64("order.id", sale.OrderID),
	))
	defer span.End()

	log := s.log.With().
		Str("sale_id", sale.ID.String()).
		Int64("order_id", sale.OrderID).
		Str("merchant", sale.Merchant().String()).
		Logger()

	claimKey := "sync:" + sale.ID.String()
	if s.deps.Claims != nil {
		claimed, err := s.deps.Claims.Acquire(ctx, claimKey, s.opts.ClaimTTL)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("sync claim unavailable, relying on conditional update")
		case !claimed:
			s.deps.Metrics.sync(ctx, "in_progress")
			return nil, apperror.ErrSyncInProgress()
		default:
			defer func() {
				if err := s.deps.Claims.Release(ctx, claimKey); err != nil {
					log.Warn().Err(err).Msg("release sync claim")
				}
			}()
		}
	}

	ledgerOrderID, err := s.replicate(ctx, sale)
	if err != nil {
		return nil, s.syncFailed(ctx, span, sale, err, log)
	}

	won, err := s.deps.Sales.MarkSynced(ctx, sale.ID)
	if err != nil {
		return nil, s.syncFailed(ctx, span, sale, fmt.Errorf("mark synced: %w", err), log)
	}
	if !won {
		s.deps.Metrics.sync(ctx, "already_synced")
		log.Debug().Msg("sale synced concurrently")
		return &ports.SyncOutcome{SaleID: sale.ID, Synced: true, AlreadySynced: true, LedgerOrderID: ledgerOrderID}, nil
	}

	sale.Synced = true
	s.deps.Metrics.sync(ctx, "synced")
	log.Info().Int64("ledger_order_id", ledgerOrderID).Msg("sale synced to merchant ledger")

	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.NotifySale(ctx, *sale); err != nil {
			log.Warn().Err(err).Msg("sale notification not sent")
		}
	}

	return &ports.SyncOutcome{SaleID: sale.ID, Synced: true, LedgerOrderID: ledgerOrderID}, nil
}

// replicate writes the merchant-side order. It reads the original order for
// customer details and falls back to a synthetic line when the product does
// not exist in the merchant's ledger.
func (s *ReconciliationServiceImpl) replicate(ctx context.Context, sale *domain.Sale) (int64, error) {
	order, err := s.deps.Orders.GetOrder(ctx, sale.OrderID)
	if err != nil {
		return 0, fmt.Errorf("original order %d unavailable: %w", sale.OrderID, err)
	}

	ledger, err := s.deps.Ledgers.ForMerchant(ctx, sale.Merchant())
	if err != nil {
		return 0, fmt.Errorf("open merchant ledger: %w", err)
	}

	mo := &domain.MerchantOrder{
		SaleID:             sale.ID,
		OriginalOrderID:    sale.OrderID,
		OriginalSiteID:     sale.ListingSiteID,
		TransactionID:      sale.TransactionID,
		Commission:         sale.Commission,
		Billing:            order.Billing,
		Shipping:           order.Shipping,
		LineName:           domain.FallbackLineName,
		Amount:             sale.Amount,
		PaymentMethod:      domain.PaymentMethodNetworkSync,
		PaymentMethodTitle: domain.PaymentMethodNetworkSyncTitle,
		Status:             domain.LedgerOrderStatusCompleted,
		Note: fmt.Sprintf("Order synced from network sale. Original order #%d on site %d. Transaction ID: %s",
			sale.OrderID, sale.ListingSiteID, sale.TransactionID),
	}

	if sale.ProductID > 0 {
		has, err := ledger.HasProduct(ctx, sale.ProductID)
		if err != nil {
			s.log.Warn().Err(err).Int64("product_id", sale.ProductID).Msg("product lookup failed, using fallback line")
		}
		if has {
			productID := sale.ProductID
			mo.ProductID = &productID
			mo.LineName = lineName(order, sale.ProductID)
		}
	}

	id, created, err := ledger.CreateOrder(ctx, mo)
	if err != nil {
		return 0, fmt.Errorf("write merchant order: %w", err)
	}
	if !created {
		s.log.Debug().Str("sale_id", sale.ID.String()).Int64("ledger_order_id", id).Msg("merchant order already present")
	}
	return id, nil
}

func lineName(order *domain.Order, productID int64) string {
	for _, item := range order.Items {
		if item.ProductID == productID && item.Name != "" {
			return item.Name
		}
	}
	return domain.FallbackLineName
}

// truncateUTF8 cuts s to at most max bytes without splitting a character.
// Invalid sequences are dropped first so the result is always valid UTF-8.
func truncateUTF8(s string, max int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func (s *ReconciliationServiceImpl) syncFailed(ctx context.Context, span trace.Span, sale *domain.Sale, cause error, log zerolog.Logger) error {
	reason := truncateUTF8(cause.Error(), maxSyncErrorLength)

	span.RecordError(cause)
	span.SetStatus(codes.Error, "sync failed")
	s.deps.Metrics.sync(ctx, "failed")
	log.Error().Err(cause).Msg("sale sync failed, will retry")

	if err := s.deps.Sales.RecordSyncFailure(ctx, sale.ID, reason); err != nil {
		log.Warn().Err(err).Msg("record sync failure")
	}
	return apperror.ErrSyncFailed("Sale sync failed", cause)
}

// SyncAll syncs one batch of unsynced completed sales, oldest first. A failure
// on one sale never stops the others; the admin alert carries only the count.
func (s *ReconciliationServiceImpl) SyncAll(ctx context.Context) (*ports.SyncReport, error) {
	sales, err := s.deps.Sales.ListUnsynced(ctx, s.opts.BatchSize)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list unsynced sales: %w", err))
	}

	report := s.syncBatch(ctx, sales)

	if report.Failed > 0 && s.deps.Notifier != nil {
		if err := s.deps.Notifier.AlertSyncFailures(ctx, report.Failed); err != nil {
			s.log.Warn().Err(err).Msg("sync failure alert not sent")
		}
	}

	s.log.Info().
		Int("synced", report.Synced).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("sync run finished")
	return report, nil
}

// SyncOrder syncs the unsynced completed sales of one order.
func (s *ReconciliationServiceImpl) SyncOrder(ctx context.Context, orderID int64) (*ports.SyncReport, error) {
	all, err := s.deps.Sales.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list sales: %w", err))
	}
	if len(all) == 0 {
		return nil, apperror.ErrNotFound("Sales for order")
	}

	var pending []domain.Sale
	for _, sale := range all {
		if sale.NeedsSync() {
			pending = append(pending, sale)
		}
	}
	return s.syncBatch(ctx, pending), nil
}

func (s *ReconciliationServiceImpl) syncBatch(ctx context.Context, sales []domain.Sale) *ports.SyncReport {
	report := &ports.SyncReport{}
	for i := range sales {
		outcome, err := s.syncOne(ctx, &sales[i])
		switch {
		case err != nil && apperror.HasPrefix(err, "SYNC_002"):
			report.Skipped++
		case err != nil:
			report.Failed++
		case outcome.AlreadySynced:
			report.Skipped++
		default:
			report.Synced++
		}
	}
	return report
}

// OnSettlementCompleted syncs the freshly completed sales right away. Any
// failure is left for the scheduled run.
func (s *ReconciliationServiceImpl) OnSettlementCompleted(ctx context.Context, event domain.SettlementCompletedEvent) {
	for _, id := range event.SaleIDs {
		if _, err := s.SyncOne(ctx, id); err != nil {
			s.log.Warn().Err(err).
				Int64("order_id", event.OrderID).
				Str("sale_id", id.String()).
				Msg("immediate sync failed, scheduler will retry")
		}
	}
}

// OnExternalSale folds a webhook-reported sale into the sales table, keyed by
// (order id, merchant user id), and syncs it when it is completed. Events
// without a merchant are accepted and ignored.
func (s *ReconciliationServiceImpl) OnExternalSale(ctx context.Context, event domain.ExternalSaleEvent) (*ports.ExternalSaleResult, error) {
	if event.OrderID <= 0 || event.TransactionID == "" {
		return nil, apperror.Validation("order_id and transaction_id are required")
	}
	if event.Amount.IsNegative() {
		return nil, apperror.ErrInvalidAmount()
	}
	status := event.Status
	if status == "" {
		status = domain.SaleStatusCompleted
	}
	if !status.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown sale status %q", status))
	}

	log := s.log.With().Int64("order_id", event.OrderID).Str("transaction_id", event.TransactionID).Logger()

	if !event.HasMerchant() {
		s.deps.Metrics.webhook(ctx, "sale", "no_merchant")
		log.Info().Msg("sale webhook without merchant, nothing to fold in")
		return &ports.ExternalSaleResult{}, nil
	}

	listingSiteID := int64(0)
	if order, err := s.deps.Orders.GetOrder(ctx, event.OrderID); err == nil {
		listingSiteID = order.ListingSiteID
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Msg("original order lookup failed")
	}

	amount := domain.RoundMoney(event.Amount)
	now := s.now().UTC()
	sale := &domain.Sale{
		ID:             uuid.New(),
		OrderID:        event.OrderID,
		ProductID:      event.ProductID,
		MerchantUserID: event.MerchantUserID,
		MerchantSiteID: event.MerchantSiteID,
		ListingSiteID:  listingSiteID,
		Amount:         amount,
		Commission:     s.commissionFor(ctx, event.ProductID, listingSiteID, amount),
		TransactionID:  event.TransactionID,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	stored, created, err := s.deps.Sales.UpsertExternal(ctx, sale)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("upsert external sale: %w", err))
	}
	if created {
		s.deps.Metrics.webhook(ctx, "sale", "created")
	} else {
		s.deps.Metrics.webhook(ctx, "sale", "replayed")
	}

	result := &ports.ExternalSaleResult{SaleID: stored.ID, Created: created, Synced: stored.Synced}
	if stored.NeedsSync() {
		outcome, err := s.syncOne(ctx, stored)
		if err != nil {
			log.Warn().Err(err).Msg("external sale sync deferred to scheduler")
		} else {
			result.Synced = outcome.Synced
		}
	}
	return result, nil
}

// commissionFor applies the product's configured rate when an ownership
// exists for it; webhook-reported sales otherwise carry no commission.
func (s *ReconciliationServiceImpl) commissionFor(ctx context.Context, productID, listingSiteID int64, amount decimal.Decimal) decimal.Decimal {
	if s.deps.Owners == nil || productID <= 0 {
		return decimal.Zero
	}
	owner, err := s.deps.Owners.Get(ctx, productID, listingSiteID)
	if err != nil || owner == nil {
		return decimal.Zero
	}
	return domain.Commission(amount, owner.CommissionRate)
}

// OnExternalRefund mirrors a refund already performed at the processor. Each
// changed sale takes status refunded and the reported amount; rows already
// refunded for that amount are left alone so a replay notifies nobody.
func (s *ReconciliationServiceImpl) OnExternalRefund(ctx context.Context, event domain.ExternalRefundEvent) (*ports.ExternalRefundResult, error) {
	if event.OrderID <= 0 {
		return nil, apperror.Validation("order_id is required")
	}
	if event.RefundAmount.IsNegative() {
		return nil, apperror.ErrInvalidRefundAmount()
	}

	amount := domain.RoundMoney(event.RefundAmount)
	changed, err := s.deps.Sales.ApplyExternalRefund(ctx, event.OrderID, event.TransactionID, amount)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("apply external refund: %w", err))
	}

	if len(changed) == 0 {
		s.deps.Metrics.webhook(ctx, "refund", "unchanged")
	} else {
		s.deps.Metrics.webhook(ctx, "refund", "applied")
	}

	for _, sale := range changed {
		if s.deps.Notifier == nil {
			break
		}
		if err := s.deps.Notifier.NotifyRefund(ctx, sale, amount, event.Reason); err != nil {
			s.log.Warn().Err(err).Str("sale_id", sale.ID.String()).Msg("refund notification not sent")
		}
	}

	s.log.Info().
		Int64("order_id", event.OrderID).
		Int("updated", len(changed)).
		Str("amount", amount.StringFixed(2)).
		Msg("external refund applied")
	return &ports.ExternalRefundResult{Updated: len(changed)}, nil
}

// Stats returns the network-wide sales overview.
func (s *ReconciliationServiceImpl) Stats(ctx context.Context) (*domain.SalesStats, error) {
	stats, err := s.deps.Sales.Stats(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sales stats: %w", err))
	}
	return stats, nil
}

// CleanupOldSales deletes refunded and failed sales untouched for more than
// days days. Non-positive days falls back to the configured retention.
func (s *ReconciliationServiceImpl) CleanupOldSales(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = s.opts.RetentionDays
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)

	deleted, err := s.deps.Sales.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("delete old sales: %w", err))
	}
	s.log.Info().Int("days", days).Int64("deleted", deleted).Msg("old sales cleaned up")
	return deleted, nil
}
