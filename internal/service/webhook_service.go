package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"

	domainErrors "github.com/chantierpro/payments/internal/domain/errors"
	"github.com/chantierpro/payments/internal/domain/payment"
	"github.com/chantierpro/payments/internal/infrastructure/observability"
	"github.com/chantierpro/payments/internal/providers"
	"github.com/rs/zerolog"
)

// Deduper remembers processed webhook event ids across instances.
type Deduper interface {
	MarkSeen(ctx context.Context, provider, eventID string) (bool, error)
	Forget(ctx context.Context, provider, eventID string) error
}

// WebhookService turns raw gateway deliveries into state changes on stored
// payment records: verify the signature against the raw body, discard
// redeliveries, resolve the record, fold in the reported status and notify
// the invoice engine on success.
type WebhookService struct {
	registry  ProviderSource
	configs   ProviderConfigSource
	repo      payment.Repository
	dedup     Deduper
	invoices  payment.InvoiceMarker
	txManager TransactionManager
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

func NewWebhookService(
	registry ProviderSource,
	configs ProviderConfigSource,
	repo payment.Repository,
	dedup Deduper,
	invoices payment.InvoiceMarker,
	txManager TransactionManager,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *WebhookService {
	return &WebhookService{
		registry:  registry,
		configs:   configs,
		repo:      repo,
		dedup:     dedup,
		invoices:  invoices,
		txManager: txManager,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleWebhook processes one delivery. Verification failures return a
// WebhookError; a delivery that verifies but cannot be matched to a stored
// record is acknowledged and dropped, since the gateway would otherwise
// retry it forever.
func (s *WebhookService) HandleWebhook(ctx context.Context, t payment.ProviderType, tenantID string, payload []byte, header http.Header) (*payment.WebhookEvent, error) {
	if !t.IsSupported() {
		return nil, domainErrors.ErrUnsupportedProvider
	}
	cfg, ok := s.configs.ProviderConfig(t, tenantID)
	if !ok {
		return nil, domainErrors.ErrProviderNotFound
	}
	p, err := s.registry.CreateProvider(t, cfg)
	if err != nil {
		return nil, err
	}

	event, err := p.VerifyWebhook(payload, header, s.configs.WebhookSecret(t))
	if err != nil {
		if s.metrics != nil {
			s.metrics.WebhookVerificationFailures.WithLabelValues(string(t)).Inc()
		}
		s.logger.Warn().Err(err).Str("provider", string(t)).Msg("webhook rejected")
		return nil, err
	}

	// Some gateways deliver the resource itself rather than an event
	// envelope, so the event id alone cannot tell a redelivery apart from a
	// genuine status change. The body hash disambiguates.
	dedupKey := deliveryKey(event.ID, payload)
	if s.dedup != nil && event.ID != "" {
		seen, err := s.dedup.MarkSeen(ctx, string(t), dedupKey)
		if err != nil {
			return nil, err
		}
		if seen {
			s.count(t, "duplicate")
			if s.metrics != nil {
				s.metrics.WebhookDuplicates.WithLabelValues(string(t)).Inc()
			}
			return event, domainErrors.ErrDuplicateWebhook
		}
	}

	if err := s.apply(ctx, t, event); err != nil {
		// Release the dedup claim so the gateway's retry can reprocess.
		if s.dedup != nil && event.ID != "" {
			if fErr := s.dedup.Forget(ctx, string(t), dedupKey); fErr != nil {
				s.logger.Error().Err(fErr).Str("event_id", event.ID).Msg("failed to release dedup claim")
			}
		}
		s.count(t, "error")
		return nil, err
	}

	s.count(t, "applied")
	return event, nil
}

func (s *WebhookService) apply(ctx context.Context, t payment.ProviderType, event *payment.WebhookEvent) error {
	ref, err := providers.ExtractReference(event)
	if err != nil {
		// Verified but not a payment-shaped event. Acknowledge it.
		s.logger.Debug().Str("provider", string(t)).Str("type", event.Type).
			Msg("webhook event carries no payment reference, ignored")
		return nil
	}

	rec, err := s.repo.GetByProviderPaymentID(ctx, t, ref.ProviderPaymentID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPaymentNotFound) {
			s.count(t, "unmatched")
			s.logger.Warn().Str("provider", string(t)).
				Str("provider_payment_id", ref.ProviderPaymentID).
				Msg("webhook references unknown payment, ignored")
			return nil
		}
		return err
	}

	if err := rec.ApplyStatus(ref.Status, event.ID); err != nil {
		if errors.Is(err, domainErrors.ErrDuplicateWebhook) {
			s.count(t, "duplicate")
			return nil
		}
		return err
	}

	update := func(ctx context.Context) error {
		if err := s.repo.Update(ctx, rec); err != nil {
			return err
		}
		if s.invoices != nil && rec.InvoiceID != "" && ref.Status == payment.StatusSucceeded {
			return s.invoices.MarkPaid(ctx, rec.InvoiceID, ref.Status)
		}
		return nil
	}
	if s.txManager != nil {
		err = s.txManager.WithTransaction(ctx, update)
	} else {
		err = update(ctx)
	}
	if err != nil {
		return err
	}

	if s.metrics != nil && ref.Status.IsTerminal() {
		s.metrics.ActiveCheckouts.Dec()
	}
	s.logger.Info().Str("provider", string(t)).
		Str("event_id", event.ID).Str("type", event.Type).
		Str("status", string(ref.Status)).
		Msg("webhook applied")
	return nil
}

func deliveryKey(eventID string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return eventID + ":" + hex.EncodeToString(sum[:8])
}

func (s *WebhookService) count(t payment.ProviderType, result string) {
	if s.metrics != nil {
		s.metrics.WebhookEventsTotal.WithLabelValues(string(t), result).Inc()
	}
}
