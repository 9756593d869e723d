package controller

import (
	"net/http"
	"strconv"

	"github.com/chantierpro/payments/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CheckoutController handles payment API requests.
type CheckoutController struct {
	checkoutService *service.CheckoutService
}

func NewCheckoutController(checkoutService *service.CheckoutService) *CheckoutController {
	return &CheckoutController{checkoutService: checkoutService}
}

// CreateSession handles POST /api/v1/checkout/sessions
func (h *CheckoutController) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateCheckoutSessionRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	rec, session, err := h.checkoutService.CreateSession(r.Context(), service.CheckoutSessionInput{
		Provider:      req.Provider,
		AmountCents:   req.AmountCents,
		Currency:      req.Currency,
		Description:   req.Description,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
		QuoteID:       req.QuoteID,
		InvoiceID:     req.InvoiceID,
		Metadata:      req.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CheckoutSessionResponse{
		PaymentID:   rec.ID.String(),
		SessionID:   session.ID,
		CheckoutURL: session.URL,
		Provider:    string(rec.Provider),
		Status:      string(rec.Status),
	})
}

// CreateLink handles POST /api/v1/checkout/links
func (h *CheckoutController) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentLinkRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	rec, link, err := h.checkoutService.CreateLink(r.Context(), service.PaymentLinkInput{
		Provider:    req.Provider,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Description: req.Description,
		QuoteID:     req.QuoteID,
		InvoiceID:   req.InvoiceID,
		Metadata:    req.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, PaymentLinkResponse{
		PaymentID: rec.ID.String(),
		LinkID:    link.ID,
		URL:       link.URL,
		Provider:  string(rec.Provider),
	})
}

// RefundPayment handles POST /api/v1/payments/{id}/refund
func (h *CheckoutController) RefundPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid payment id", Code: "invalid_id"})
		return
	}

	req := RefundPaymentRequest{}
	if r.ContentLength > 0 {
		if err := decodeAndValidate(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	rec, result, err := h.checkoutService.Refund(r.Context(), id, service.RefundInput{
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Reason:      req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RefundResponse{
		RefundID:       result.ID,
		AmountCents:    result.Amount.Cents,
		Currency:       result.Amount.Currency,
		Status:         string(rec.Status),
		RefundedCents:  rec.RefundedCents,
		RemainingCents: rec.Amount.Cents - rec.RefundedCents,
	})
}

// GetStatus handles GET /api/v1/payments/{id}/status
func (h *CheckoutController) GetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid payment id", Code: "invalid_id"})
		return
	}

	rec, result, err := h.checkoutService.GetStatus(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		PaymentID:    rec.ID.String(),
		Status:       string(result.Status),
		NativeStatus: result.NativeStatus,
		Provider:     string(rec.Provider),
	})
}

// GetPayment handles GET /api/v1/payments/{id}
func (h *CheckoutController) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid payment id", Code: "invalid_id"})
		return
	}

	rec, err := h.checkoutService.GetPayment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromRecord(rec))
}

// ListPayments handles GET /api/v1/payments
func (h *CheckoutController) ListPayments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	records, err := h.checkoutService.ListPayments(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*PaymentRecordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, FromRecord(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"payments": resp, "count": len(resp)})
}

// ListProviders handles GET /api/v1/providers
func (h *CheckoutController) ListProviders(w http.ResponseWriter, r *http.Request) {
	infos := h.checkoutService.Providers()
	resp := make([]ProviderInfoResponse, 0, len(infos))
	for _, info := range infos {
		resp = append(resp, ProviderInfoResponse{
			Provider: string(info.Type),
			Active:   info.Active,
			Default:  info.Default,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": resp})
}

// CreateCustomer handles POST /api/v1/customers
func (h *CheckoutController) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	providerType, result, err := h.checkoutService.CreateCustomer(r.Context(), service.CustomerInput{
		Provider:   req.Provider,
		Email:      req.Email,
		Name:       req.Name,
		Phone:      req.Phone,
		AddressL1:  req.AddressL1,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CustomerResponse{
		CustomerID: result.ID,
		Email:      result.Email,
		Provider:   string(providerType),
	})
}
