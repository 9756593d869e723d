package service

// CheckoutSessionInput is the service-level input for creating a checkout
// session. Amounts arrive as integer cents; conversion to each gateway's
// wire format happens inside the adapter.
type CheckoutSessionInput struct {
	Provider      string
	AmountCents   int64
	Currency      string
	Description   string
	CustomerEmail string
	CustomerName  string
	SuccessURL    string
	CancelURL     string
	QuoteID       string
	InvoiceID     string
	Metadata      map[string]string
}

// PaymentLinkInput is the service-level input for creating a payment link.
type PaymentLinkInput struct {
	Provider    string
	AmountCents int64
	Currency    string
	Description string
	QuoteID     string
	InvoiceID   string
	Metadata    map[string]string
}

// RefundInput references a stored payment record. AmountCents == 0 requests
// a full refund.
type RefundInput struct {
	AmountCents int64
	Currency    string
	Reason      string
}

// CustomerInput is the service-level input for registering a payer with a
// gateway's customer subsystem.
type CustomerInput struct {
	Provider   string
	Email      string
	Name       string
	Phone      string
	AddressL1  string
	City       string
	PostalCode string
	Country    string
}
