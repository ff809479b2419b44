package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"multi-merchant-settlement/internal/core/domain"
	"multi-merchant-settlement/internal/core/ports"
	"multi-merchant-settlement/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// notificationRetryIntervals are the waits between delivery attempts.
var notificationRetryIntervals = []time.Duration{
	15 * time.Second,
	60 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

// Notification event types.
const (
	EventSaleSynced         = "SALE_SYNCED"
	EventSaleRefunded       = "SALE_REFUNDED"
	EventPaymentConfirmed   = "PAYMENT_CONFIRMED"
	EventSyncFailuresNotice = "SYNC_FAILURES"
)

// NotificationPayload is the JSON body posted to the notification relay.
type NotificationPayload struct {
	EventType string      `json:"event_type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

type saleNotice struct {
	SaleID         string `json:"sale_id"`
	OrderID        int64  `json:"order_id"`
	ProductID      int64  `json:"product_id"`
	MerchantUserID int64  `json:"merchant_user_id"`
	MerchantSiteID int64  `json:"merchant_site_id"`
	Amount         string `json:"amount"`
	Commission     string `json:"commission"`
	TransactionID  string `json:"transaction_id"`
	Status         string `json:"status"`
}

type refundNotice struct {
	saleNotice
	RefundAmount string `json:"refund_amount"`
	Reason       string `json:"reason,omitempty"`
}

type paymentNotice struct {
	MerchantUserID int64    `json:"merchant_user_id"`
	MerchantSiteID int64    `json:"merchant_site_id"`
	OrderID        int64    `json:"order_id"`
	Total          string   `json:"total"`
	TransactionIDs []string `json:"transaction_ids"`
}

type syncFailuresNotice struct {
	Failed int `json:"failed"`
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NotificationService implements ports.Notifier by posting signed JSON events
// to a relay. With no URL configured events are only logged.
type NotificationService struct {
	url        string
	secret     string
	sigSvc     ports.SignatureService
	httpClient HTTPClient
	timeout    time.Duration
	retries    []time.Duration
	log        zerolog.Logger
	wg         sync.WaitGroup
}

// NewNotificationService creates a new notification service.
func NewNotificationService(url, secret string, timeout time.Duration, sigSvc ports.SignatureService, httpClient HTTPClient, log zerolog.Logger) *NotificationService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NotificationService{
		url:        url,
		secret:     secret,
		sigSvc:     sigSvc,
		httpClient: httpClient,
		timeout:    timeout,
		retries:    notificationRetryIntervals,
		log:        logger.Component(log, "notifier"),
	}
}

func (s *NotificationService) NotifySale(ctx context.Context, sale domain.Sale) error {
	return s.enqueue(ctx, EventSaleSynced, newSaleNotice(sale))
}

func (s *NotificationService) NotifyRefund(ctx context.Context, sale domain.Sale, amount decimal.Decimal, reason string) error {
	return s.enqueue(ctx, EventSaleRefunded, refundNotice{
		saleNotice:   newSaleNotice(sale),
		RefundAmount: amount.StringFixed(2),
		Reason:       reason,
	})
}

func (s *NotificationService) NotifyPaymentConfirmation(ctx context.Context, merchant domain.MerchantRef, orderID int64, total decimal.Decimal, transactionIDs []string) error {
	return s.enqueue(ctx, EventPaymentConfirmed, paymentNotice{
		MerchantUserID: merchant.UserID,
		MerchantSiteID: merchant.SiteID,
		OrderID:        orderID,
		Total:          total.StringFixed(2),
		TransactionIDs: transactionIDs,
	})
}

func (s *NotificationService) AlertSyncFailures(ctx context.Context, failed int) error {
	if failed <= 0 {
		return nil
	}
	return s.enqueue(ctx, EventSyncFailuresNotice, syncFailuresNotice{Failed: failed})
}

// Wait blocks until every in-flight delivery has finished.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func newSaleNotice(sale domain.Sale) saleNotice {
	return saleNotice{
		SaleID:         sale.ID.String(),
		OrderID:        sale.OrderID,
		ProductID:      sale.ProductID,
		MerchantUserID: sale.MerchantUserID,
		MerchantSiteID: sale.MerchantSiteID,
		Amount:         sale.Amount.StringFixed(2),
		Commission:     sale.Commission.StringFixed(2),
		TransactionID:  sale.TransactionID,
		Status:         string(sale.Status),
	}
}

// enqueue signs the event and delivers it in the background.
func (s *NotificationService) enqueue(ctx context.Context, eventType string, data interface{}) error {
	body, err := json.Marshal(NotificationPayload{
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal %s notification: %w", eventType, err)
	}

	if s.url == "" {
		s.log.Info().Str("event", eventType).RawJSON("payload", body).Msg("notification (no relay configured)")
		return nil
	}

	signature := s.sigSvc.Sign(s.secret, string(body))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliverWithRetries(context.WithoutCancel(ctx), eventType, body, signature)
	}()
	return nil
}

// deliverWithRetries posts the event until a 2xx answer or the retry
// schedule runs out.
func (s *NotificationService) deliverWithRetries(ctx context.Context, eventType string, body []byte, signature string) {
	for attempt := 0; attempt <= len(s.retries); attempt++ {
		if attempt > 0 {
			time.Sleep(s.retries[attempt-1])
		}

		status, err := s.deliver(ctx, body, signature)
		if err != nil {
			s.log.Warn().Err(err).Str("event", eventType).Int("attempt", attempt+1).Msg("notification delivery failed")
			continue
		}
		if status >= 200 && status < 300 {
			s.log.Debug().Str("event", eventType).Int("attempt", attempt+1).Msg("notification delivered")
			return
		}
		s.log.Warn().Str("event", eventType).Int("attempt", attempt+1).Int("status", status).Msg("notification non-2xx response, retrying")
	}

	s.log.Error().Str("event", eventType).Msg("notification: all retry attempts exhausted")
}

func (s *NotificationService) deliver(ctx context.Context, body []byte, signature string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, signature)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
