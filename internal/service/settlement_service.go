package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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
	defaultSettleLockTTL    = 3 * time.Minute
	defaultResultCacheTTL   = 24 * time.Hour
	defaultRedirectTemplate = "/checkout/order-received/%d"
)

// SettlementOptions tune the settlement service.
type SettlementOptions struct {
	RedirectTemplate string // fmt template taking the order id
	LockTTL          time.Duration
	ResultCacheTTL   time.Duration
}

// SettlementDeps are the collaborators of the settlement service. Locks,
// Cache, Sink, Notifier, Metrics and Tracer are optional.
type SettlementDeps struct {
	Orders   ports.OrderSource
	Resolver ports.OwnershipResolver
	Gateway  ports.ProcessorGateway
	Sales    ports.SaleRepository
	Creds    ports.CredentialRepository
	Revealer CredentialRevealer
	Hooks    ports.CheckoutHooks
	Locks    ports.LockStore
	Cache    ports.SettlementCache
	Sink     ports.SettlementEventSink
	Notifier ports.Notifier
	Metrics  *Metrics
	Tracer   trace.Tracer
}

// SettlementServiceImpl implements ports.SettlementService.
type SettlementServiceImpl struct {
	deps SettlementDeps
	opts SettlementOptions
	log  zerolog.Logger
	now  func() time.Time
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(deps SettlementDeps, opts SettlementOptions, log zerolog.Logger) *SettlementServiceImpl {
	if deps.Metrics == nil {
		deps.Metrics = NoopMetrics()
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("")
	}
	if opts.RedirectTemplate == "" {
		opts.RedirectTemplate = defaultRedirectTemplate
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = defaultSettleLockTTL
	}
	if opts.ResultCacheTTL <= 0 {
		opts.ResultCacheTTL = defaultResultCacheTTL
	}
	return &SettlementServiceImpl{
		deps: deps,
		opts: opts,
		log:  logger.Component(log, "settlement"),
		now:  time.Now,
	}
}

// ValidateCard checks card fields before any network call and maps the
// failure to its customer-facing error.
func ValidateCard(card domain.Card, now time.Time) error {
	err := card.Validate(now)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrCardFieldsMissing):
		return apperror.ErrMissingCardFields()
	case errors.Is(err, domain.ErrCardNumberInvalid):
		return apperror.ErrInvalidCardNumber()
	case errors.Is(err, domain.ErrExpiryInvalid):
		return apperror.ErrInvalidExpiry()
	case errors.Is(err, domain.ErrCardExpired):
		return apperror.ErrCardExpired()
	case errors.Is(err, domain.ErrCVCInvalid):
		return apperror.ErrInvalidCVC()
	default:
		return apperror.Validation(err.Error())
	}
}

// Settle charges every line of the order against its owning merchant. Either
// every line ends up as a completed Sale or none does: on the first failure
// prior charges are voided and their pending rows retracted.
//
// The call is detached from ctx cancellation once it starts; an abandoned
// checkout still runs to completion, compensation included.
func (s *SettlementServiceImpl) Settle(ctx context.Context, req ports.SettleRequest) (*domain.SettlementResult, error) {
	ctx = context.WithoutCancel(ctx)
	started := time.Now()

	ctx, span := s.deps.Tracer.Start(ctx, "settlement.Settle", trace.WithAttributes(attribute.Int64("order.id", req.OrderID)))
	defer span.End()

	result, err := s.settle(ctx, req)
	if err != nil {
		outcome := "failed"
		if appErr, ok := apperror.As(err); ok {
			outcome = appErr.Code
		}
		span.SetStatus(codes.Error, outcome)
		s.deps.Metrics.settlement(ctx, outcome, started)
		return nil, err
	}

	span.SetAttributes(attribute.Int("settlement.charges", len(result.TransactionIDs)))
	s.deps.Metrics.settlement(ctx, "completed", started)
	return result, nil
}

func (s *SettlementServiceImpl) settle(ctx context.Context, req ports.SettleRequest) (*domain.SettlementResult, error) {
	log := s.log.With().Int64("order_id", req.OrderID).Logger()

	if req.OrderID <= 0 {
		return nil, apperror.Validation("order id is required")
	}
	if err := ValidateCard(req.Card, s.now()); err != nil {
		return nil, err
	}

	// Fast path: a double-submitted checkout gets the first result back.
	if s.deps.Cache != nil {
		cached, err := s.deps.Cache.Get(ctx, req.OrderID)
		if err != nil {
			log.Warn().Err(err).Msg("settlement cache check failed, falling through to DB")
		}
		if cached != nil {
			log.Info().Msg("returning cached settlement result")
			return cached, nil
		}
	}

	lockKey := fmt.Sprintf("settle:%d", req.OrderID)
	if s.deps.Locks != nil {
		acquired, err := s.deps.Locks.Acquire(ctx, lockKey, s.opts.LockTTL)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("settlement lock unavailable, relying on DB check")
		case !acquired:
			return nil, apperror.ErrSettlementInProgress()
		default:
			defer func() {
				if err := s.deps.Locks.Release(ctx, lockKey); err != nil {
					log.Warn().Err(err).Msg("release settlement lock")
				}
			}()
		}
	}

	order, err := s.deps.Orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.ErrNotFound("Order")
		}
		return nil, apperror.InternalError(fmt.Errorf("load order: %w", err))
	}
	if len(order.Items) == 0 {
		return nil, apperror.Validation("Order has no items to pay for")
	}

	existing, err := s.deps.Sales.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list sales: %w", err))
	}
	for _, sale := range existing {
		if sale.Status == domain.SaleStatusCompleted || sale.Status == domain.SaleStatusRefunded {
			return nil, apperror.ErrAlreadySettled()
		}
	}

	// Ownership or credentials may have changed since the cart was rendered.
	resolution, err := s.deps.Resolver.Resolve(ctx, order.ListingSiteID, order.CartItems())
	if err != nil {
		return nil, err
	}
	if !resolution.Valid {
		log.Warn().Strs("invalid_items", resolution.InvalidItems).Msg("settlement rejected before charging")
		return nil, apperror.ErrInvalidPaymentConfiguration(resolution.InvalidItems)
	}

	billing := order.Billing
	if req.Billing != nil {
		billing = *req.Billing
	}
	customerIP := req.CustomerIP
	if customerIP == "" {
		customerIP = order.CustomerIP
	}

	attempt := domain.NewSettlementAttempt(order.ID)
	attempt.State = domain.SettlementCharging

	for _, item := range order.ChargeLines() {
		resolved, ok := resolution.PerItemMerchant[item.ItemID]
		if !ok {
			return nil, s.fail(ctx, attempt, apperror.ErrProductConfiguration(item.Name), log)
		}

		amount := domain.RoundMoney(item.Total)
		if !amount.IsPositive() {
			log.Info().Int64("item_id", item.ItemID).Msg("skipping zero-amount line")
			continue
		}

		charge := s.deps.Gateway.Charge(ctx, resolved.Credentials, ports.ChargeRequest{
			OrderID:    order.ID,
			Amount:     amount,
			Card:       req.Card,
			Billing:    billing,
			Shipping:   order.Shipping,
			CustomerIP: customerIP,
		})
		s.deps.Metrics.charge(ctx, string(charge.Outcome))

		if !charge.Success() {
			log.Warn().
				Int64("item_id", item.ItemID).
				Str("merchant", resolved.Ownership.Owner().String()).
				Str("outcome", string(charge.Outcome)).
				Str("response_text", charge.RawText).
				Msg("item charge failed")
			return nil, s.fail(ctx, attempt, chargeFailure(charge), log)
		}

		entry := domain.AttemptEntry{
			ItemID:        item.ItemID,
			ProductID:     item.ProductID,
			Merchant:      resolved.Ownership.Owner(),
			Credentials:   resolved.Credentials,
			Amount:        amount,
			TransactionID: charge.TransactionID,
		}

		now := s.now().UTC()
		sale := &domain.Sale{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ProductID:      item.ProductID,
			MerchantUserID: entry.Merchant.UserID,
			MerchantSiteID: entry.Merchant.SiteID,
			ListingSiteID:  order.ListingSiteID,
			Amount:         amount,
			Commission:     domain.Commission(amount, resolved.Ownership.CommissionRate),
			TransactionID:  charge.TransactionID,
			Status:         domain.SaleStatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.deps.Sales.Create(ctx, sale); err != nil {
			// The charge went through but has no record; it is voided with the rest.
			attempt.Record(entry)
			return nil, s.fail(ctx, attempt, apperror.InternalError(fmt.Errorf("record sale: %w", err)), log)
		}
		entry.SaleID = sale.ID
		attempt.Record(entry)
	}

	if len(attempt.Entries()) == 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	attempt.State = domain.SettlementAllCharged
	if err := s.deps.Sales.CompleteAll(ctx, attempt.SaleIDs()); err != nil {
		return nil, s.fail(ctx, attempt, apperror.InternalError(fmt.Errorf("complete sales: %w", err)), log)
	}

	attempt.State = domain.SettlementFinalizing
	s.finalize(ctx, order, attempt, log)
	attempt.State = domain.SettlementDone

	result := &domain.SettlementResult{
		OrderID:        order.ID,
		Success:        true,
		TransactionIDs: attempt.TransactionIDs(),
		TotalCharged:   attempt.Total(),
		RedirectURL:    fmt.Sprintf(s.opts.RedirectTemplate, order.ID),
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, result, s.opts.ResultCacheTTL); err != nil {
			log.Warn().Err(err).Msg("cache settlement result")
		}
	}

	s.confirmPayments(ctx, order.ID, attempt, log)

	if s.deps.Sink != nil {
		s.deps.Sink.OnSettlementCompleted(ctx, domain.SettlementCompletedEvent{
			OrderID:        order.ID,
			TransactionIDs: result.TransactionIDs,
			SaleIDs:        attempt.SaleIDs(),
		})
	}

	log.Info().
		Strs("transaction_ids", result.TransactionIDs).
		Str("total", result.TotalCharged.StringFixed(2)).
		Msg("order settled")

	return result, nil
}

// chargeFailure maps a failed processor result into the error taxonomy.
func chargeFailure(res *ports.ProcessorResult) *apperror.AppError {
	switch {
	case res.Outcome == ports.OutcomeDeclined:
		return apperror.ErrDeclined(res.Message)
	case res.Curated:
		return apperror.ErrProcessorRejected(res.Message, errors.New(res.RawText))
	default:
		return apperror.ErrProcessorUnavailable(errors.New(res.RawText))
	}
}

// fail runs compensation and returns the error the customer sees. Void and
// retraction failures are logged only; the original failure always wins.
func (s *SettlementServiceImpl) fail(ctx context.Context, attempt *domain.SettlementAttempt, cause *apperror.AppError, log zerolog.Logger) error {
	attempt.State = domain.SettlementFailed
	entries := attempt.Entries()
	if len(entries) == 0 {
		return cause
	}

	for _, e := range entries {
		res := s.deps.Gateway.Void(ctx, e.Credentials, e.TransactionID)
		s.deps.Metrics.void(ctx, res.Success())
		if !res.Success() {
			log.Error().
				Str("transaction_id", e.TransactionID).
				Str("merchant", e.Merchant.String()).
				Str("response_text", res.RawText).
				Msg("compensating void failed, manual review required")
			continue
		}
		log.Info().Str("transaction_id", e.TransactionID).Msg("charge voided")
	}

	if ids := attempt.SaleIDs(); len(ids) > 0 {
		if err := s.deps.Sales.Retract(ctx, ids); err != nil {
			log.Error().Err(err).Msg("retract pending sales, marking failed")
			if err := s.deps.Sales.MarkFailed(ctx, ids); err != nil {
				log.Error().Err(err).Msg("mark pending sales failed")
			}
		}
	}

	return apperror.ErrPartialSettlement(cause)
}

// finalize runs the host shop hooks. The money has moved and is recorded, so
// hook failures are logged rather than surfaced.
func (s *SettlementServiceImpl) finalize(ctx context.Context, order *domain.Order, attempt *domain.SettlementAttempt, log zerolog.Logger) {
	if s.deps.Hooks == nil {
		return
	}
	txnIDs := attempt.TransactionIDs()

	if err := s.deps.Hooks.MarkPaid(ctx, order.ID, txnIDs); err != nil {
		log.Error().Err(err).Msg("mark order paid")
	}
	note := fmt.Sprintf("Payment processed via Multi-Merchant gateway. Transaction IDs: %s. Total: $%s",
		strings.Join(txnIDs, ", "), attempt.Total().StringFixed(2))
	if err := s.deps.Hooks.AddOrderNote(ctx, order.ID, note); err != nil {
		log.Error().Err(err).Msg("add order note")
	}
	if err := s.deps.Hooks.ReduceStock(ctx, order.ID); err != nil {
		log.Error().Err(err).Msg("reduce stock")
	}
	if err := s.deps.Hooks.ClearCart(ctx, order.CustomerID); err != nil {
		log.Error().Err(err).Msg("clear cart")
	}
}

// confirmPayments sends each merchant one confirmation with its grouped total.
func (s *SettlementServiceImpl) confirmPayments(ctx context.Context, orderID int64, attempt *domain.SettlementAttempt, log zerolog.Logger) {
	if s.deps.Notifier == nil {
		return
	}

	type group struct {
		total  decimal.Decimal
		txnIDs []string
	}
	groups := make(map[domain.MerchantRef]*group)
	var order []domain.MerchantRef
	for _, e := range attempt.Entries() {
		g, ok := groups[e.Merchant]
		if !ok {
			g = &group{total: decimal.Zero}
			groups[e.Merchant] = g
			order = append(order, e.Merchant)
		}
		g.total = g.total.Add(e.Amount)
		g.txnIDs = append(g.txnIDs, e.TransactionID)
	}

	for _, ref := range order {
		g := groups[ref]
		if err := s.deps.Notifier.NotifyPaymentConfirmation(ctx, ref, orderID, g.total, g.txnIDs); err != nil {
			log.Warn().Err(err).Str("merchant", ref.String()).Msg("payment confirmation not sent")
		}
	}
}

// Refund refunds completed sales of an order. A nil amount refunds
// everything; an explicit amount is split across the sales in proportion to
// their amounts. Refunds already issued in this call are never rolled back
// when a later one fails.
func (s *SettlementServiceImpl) Refund(ctx context.Context, req ports.RefundRequest) (*domain.RefundResult, error) {
	ctx = context.WithoutCancel(ctx)
	ctx, span := s.deps.Tracer.Start(ctx, "settlement.Refund", trace.WithAttributes(attribute.Int64("order.id", req.OrderID)))
	defer span.End()

	result, err := s.refund(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

func (s *SettlementServiceImpl) refund(ctx context.Context, req ports.RefundRequest) (*domain.RefundResult, error) {
	log := s.log.With().Int64("order_id", req.OrderID).Str("actor", req.Actor).Logger()

	lockKey := fmt.Sprintf("refund:%d", req.OrderID)
	if s.deps.Locks != nil {
		acquired, err := s.deps.Locks.Acquire(ctx, lockKey, s.opts.LockTTL)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("refund lock unavailable")
		case !acquired:
			return nil, apperror.ErrRefundInProgress()
		default:
			defer func() {
				if err := s.deps.Locks.Release(ctx, lockKey); err != nil {
					log.Warn().Err(err).Msg("release refund lock")
				}
			}()
		}
	}

	all, err := s.deps.Sales.ListByOrder(ctx, req.OrderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list sales: %w", err))
	}
	var sales []domain.Sale
	for _, sale := range all {
		if sale.IsRefundable() {
			sales = append(sales, sale)
		}
	}
	if len(sales) == 0 {
		return nil, apperror.ErrNoPaymentRecord()
	}

	weights := make([]decimal.Decimal, len(sales))
	for i, sale := range sales {
		weights[i] = sale.Amount
	}
	paid := domain.Sum(weights)

	requested := paid
	if req.Amount != nil {
		requested = domain.RoundMoney(*req.Amount)
		if !requested.IsPositive() || requested.GreaterThan(paid) {
			return nil, apperror.ErrInvalidRefundAmount()
		}
	}

	shares, err := domain.AllocateProportionally(requested, weights)
	if err != nil {
		return nil, apperror.ErrNoPaymentRecord()
	}

	reason := strings.TrimSpace(req.Reason)
	result := &domain.RefundResult{OrderID: req.OrderID, Refunded: decimal.Zero}

	for i, sale := range sales {
		share := shares[i]
		if !share.IsPositive() {
			continue
		}

		creds, err := s.saleCredentials(ctx, &sale)
		if err != nil {
			log.Error().Err(err).Str("sale_id", sale.ID.String()).Msg("refund credentials unavailable")
			return nil, apperror.ErrRefundFailed(fmt.Sprintf("Payment configuration error for merchant %s", sale.Merchant()))
		}

		res := s.deps.Gateway.Refund(ctx, creds, sale.TransactionID, share, reason)
		s.deps.Metrics.refund(ctx, res.Success())
		if !res.Success() {
			log.Error().
				Str("sale_id", sale.ID.String()).
				Str("transaction_id", sale.TransactionID).
				Str("response_text", res.RawText).
				Int("already_refunded", len(result.Refunds)).
				Msg("refund failed")
			return nil, apperror.ErrRefundFailed(res.Message)
		}

		changed, err := s.deps.Sales.MarkRefunded(ctx, sale.ID)
		if err != nil {
			log.Error().Err(err).Str("sale_id", sale.ID.String()).Msg("mark sale refunded")
		} else if !changed {
			log.Warn().Str("sale_id", sale.ID.String()).Msg("sale was no longer completed when marking refunded")
		}

		if s.deps.Notifier != nil {
			if err := s.deps.Notifier.NotifyRefund(ctx, sale, share, reason); err != nil {
				log.Warn().Err(err).Str("sale_id", sale.ID.String()).Msg("refund notification not sent")
			}
		}

		result.Refunded = result.Refunded.Add(share)
		result.Refunds = append(result.Refunds, domain.SaleRefund{
			SaleID:              sale.ID,
			TransactionID:       sale.TransactionID,
			RefundTransactionID: res.TransactionID,
			Amount:              share,
		})
	}

	if s.deps.Hooks != nil {
		note := fmt.Sprintf("Refund processed: $%s.", result.Refunded.StringFixed(2))
		if reason != "" {
			note += " Reason: " + reason
		}
		if err := s.deps.Hooks.AddOrderNote(ctx, req.OrderID, note); err != nil {
			log.Warn().Err(err).Msg("add refund note")
		}
	}

	log.Info().Str("refunded", result.Refunded.StringFixed(2)).Int("sales", len(result.Refunds)).Msg("order refunded")
	return result, nil
}

func (s *SettlementServiceImpl) saleCredentials(ctx context.Context, sale *domain.Sale) (domain.ProcessorCredentials, error) {
	cred, err := s.deps.Creds.Get(ctx, sale.Merchant())
	if err != nil {
		return domain.ProcessorCredentials{}, err
	}
	if cred == nil {
		return domain.ProcessorCredentials{}, fmt.Errorf("credential %s: %w", sale.Merchant(), domain.ErrNotFound)
	}
	creds, err := s.deps.Revealer.Reveal(cred)
	if err != nil {
		return domain.ProcessorCredentials{}, err
	}
	if !creds.IsComplete() {
		return domain.ProcessorCredentials{}, fmt.Errorf("credential %s incomplete", sale.Merchant())
	}
	return creds, nil
}
