package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"sadaka/internal/domain"
	"sadaka/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Checkout is what the client needs to send the donor to the provider.
type Checkout struct {
	Provider   domain.PaymentMethod   `json:"provider"`
	URL        string                 `json:"url"`
	Params     map[string]interface{} `json:"params,omitempty"`
	ExternalID string                 `json:"external_id,omitempty"`
}

// Notification is a verified, normalized provider callback.
type Notification struct {
	TransactionID  string
	IntentID       int64
	Amount         decimal.Decimal
	Currency       domain.Currency
	ProviderStatus string
	Status         domain.IntentStatus
}

// Provider adapts one payment provider's protocol.
type Provider interface {
	Method() domain.PaymentMethod
	Checkout(intent *domain.Intent, description string) (*Checkout, error)
	// ParseNotification authenticates and decodes a webhook body. signature is
	// the value of the provider's signature header, if it uses one.
	ParseNotification(body []byte, signature string) (*Notification, error)
	// Ack renders the response body the provider expects for err (nil = success).
	Ack(err error) interface{}
}

// Registry resolves providers by name.
type Registry struct {
	providers map[domain.PaymentMethod]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[domain.PaymentMethod]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Method()] = p
	}
	return r
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[domain.PaymentMethod(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return nil, errors.ErrUnknownProvider
	}
	return p, nil
}

// sign returns the lowercase hex HMAC-SHA256 of data.
func sign(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func verify(secret, data, signature string) bool {
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hmac.Equal(mac.Sum(nil), got)
}

// flexString accepts a JSON string or number and keeps its literal text.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func parseIntentID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.ErrMalformedPayload
	}
	return id, nil
}

// ------------------------------------------------------------------------------
// CloudPayments
// ------------------------------------------------------------------------------

const cloudPaymentsWidgetURL = "https://widget.cloudpayments.ru/payment"

var cloudPaymentsStatuses = map[string]domain.IntentStatus{
	"Completed":  domain.IntentCompleted,
	"Authorized": domain.IntentPending,
	"Pending":    domain.IntentPending,
	"Cancelled":  domain.IntentFailed,
	"Declined":   domain.IntentFailed,
	"Refunded":   domain.IntentRefunded,
}

// CloudPayments response codes.
const (
	cpCodeOK             = 0
	cpCodeInvalidInvoice = 10
	cpCodeInvalidAmount  = 12
	cpCodeRejected       = 13
)

type CloudPayments struct {
	publicID string
	secret   string
}

func NewCloudPayments(publicID, secret string) *CloudPayments {
	return &CloudPayments{publicID: publicID, secret: secret}
}

func (p *CloudPayments) Method() domain.PaymentMethod { return domain.MethodCloudPayments }

// Checkout returns signed widget parameters. The signature covers
// Amount+Currency+InvoiceId+Description.
func (p *CloudPayments) Checkout(intent *domain.Intent, description string) (*Checkout, error) {
	amount := intent.Amount.StringFixed(2)
	invoice := intent.CorrelationID()
	signature := sign(p.secret, amount+string(intent.Currency)+invoice+description)

	return &Checkout{
		Provider: domain.MethodCloudPayments,
		URL:      cloudPaymentsWidgetURL,
		Params: map[string]interface{}{
			"publicId":    p.publicID,
			"amount":      amount,
			"currency":    intent.Currency,
			"invoiceId":   invoice,
			"accountId":   intent.UserID.String(),
			"description": description,
			"signature":   signature,
		},
	}, nil
}

type cloudPaymentsPayload struct {
	TransactionID flexString `json:"TransactionId"`
	InvoiceID     flexString `json:"InvoiceId"`
	Amount        flexString `json:"Amount"`
	Currency      string     `json:"Currency"`
	Status        string     `json:"Status"`
	Signature     string     `json:"Signature"`
}

// ParseNotification verifies HMAC-SHA256 over TransactionId+Amount+Currency+Status.
// The signature is read from the body unless a header value is given.
func (p *CloudPayments) ParseNotification(body []byte, signature string) (*Notification, error) {
	var payload cloudPaymentsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.E(errors.KindValidation, errors.ErrMalformedPayload.Message, err)
	}
	if signature == "" {
		signature = payload.Signature
	}

	canonical := string(payload.TransactionID) + string(payload.Amount) + payload.Currency + payload.Status
	if !verify(p.secret, canonical, signature) {
		return nil, errors.ErrInvalidSignature
	}

	if payload.TransactionID == "" || payload.Status == "" {
		return nil, errors.ErrMalformedPayload
	}
	intentID, err := parseIntentID(string(payload.InvoiceID))
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(string(payload.Amount))
	if err != nil {
		return nil, errors.ErrMalformedPayload
	}

	status, ok := cloudPaymentsStatuses[payload.Status]
	if !ok {
		status = domain.IntentPending
	}

	return &Notification{
		TransactionID:  string(payload.TransactionID),
		IntentID:       intentID,
		Amount:         amount,
		Currency:       domain.Currency(payload.Currency),
		ProviderStatus: payload.Status,
		Status:         status,
	}, nil
}

type cloudPaymentsAck struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (p *CloudPayments) Ack(err error) interface{} {
	if err == nil {
		return cloudPaymentsAck{Code: cpCodeOK, Message: "OK"}
	}
	code := cpCodeRejected
	switch {
	case errors.KindOf(err) == errors.KindNotFound:
		code = cpCodeInvalidInvoice
	case errors.Is(err, errors.ErrAmountMismatch):
		code = cpCodeInvalidAmount
	}
	return cloudPaymentsAck{Code: code, Message: errors.MessageOf(err)}
}

// ------------------------------------------------------------------------------
// YooKassa
// ------------------------------------------------------------------------------

const yooKassaCheckoutURL = "https://yoomoney.ru/checkout/payments/v2/contract"

var yooKassaStatuses = map[string]domain.IntentStatus{
	"pending":             domain.IntentPending,
	"waiting_for_capture": domain.IntentPending,
	"succeeded":           domain.IntentCompleted,
	"canceled":            domain.IntentFailed,
}

type YooKassa struct {
	shopID    string
	secret    string
	returnURL string
}

func NewYooKassa(shopID, secret, returnURL string) *YooKassa {
	return &YooKassa{shopID: shopID, secret: secret, returnURL: returnURL}
}

func (p *YooKassa) Method() domain.PaymentMethod { return domain.MethodYooKassa }

// Checkout allocates an external order id and builds the confirmation URL.
func (p *YooKassa) Checkout(intent *domain.Intent, description string) (*Checkout, error) {
	orderID := uuid.NewString()

	q := url.Values{}
	q.Set("shopId", p.shopID)
	q.Set("orderId", orderID)
	q.Set("sum", intent.Amount.StringFixed(2))
	q.Set("currency", string(intent.Currency))
	q.Set("intentId", intent.CorrelationID())
	q.Set("description", description)
	if p.returnURL != "" {
		q.Set("returnUrl", p.returnURL)
	}

	return &Checkout{
		Provider:   domain.MethodYooKassa,
		URL:        yooKassaCheckoutURL + "?" + q.Encode(),
		ExternalID: orderID,
	}, nil
}

type yooKassaPayload struct {
	Event  string `json:"event"`
	Object struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Amount struct {
			Value    flexString `json:"value"`
			Currency string     `json:"currency"`
		} `json:"amount"`
		Metadata struct {
			IntentID flexString `json:"intent_id"`
		} `json:"metadata"`
	} `json:"object"`
}

// ParseNotification verifies HMAC-SHA256 over id+amount+currency+status,
// taken from the X-Signature header.
func (p *YooKassa) ParseNotification(body []byte, signature string) (*Notification, error) {
	var payload yooKassaPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.E(errors.KindValidation, errors.ErrMalformedPayload.Message, err)
	}
	obj := payload.Object

	canonical := obj.ID + string(obj.Amount.Value) + obj.Amount.Currency + obj.Status
	if !verify(p.secret, canonical, signature) {
		return nil, errors.ErrInvalidSignature
	}

	if obj.ID == "" || obj.Status == "" {
		return nil, errors.ErrMalformedPayload
	}
	intentID, err := parseIntentID(string(obj.Metadata.IntentID))
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(string(obj.Amount.Value))
	if err != nil {
		return nil, errors.ErrMalformedPayload
	}

	status, ok := yooKassaStatuses[obj.Status]
	if !ok {
		status = domain.IntentPending
	}
	if strings.HasPrefix(payload.Event, "refund.") && obj.Status == "succeeded" {
		status = domain.IntentRefunded
	}

	return &Notification{
		TransactionID:  obj.ID,
		IntentID:       intentID,
		Amount:         amount,
		Currency:       domain.Currency(obj.Amount.Currency),
		ProviderStatus: obj.Status,
		Status:         status,
	}, nil
}

func (p *YooKassa) Ack(err error) interface{} {
	if err == nil {
		return map[string]string{"status": "ok"}
	}
	return map[string]string{"status": "error", "message": errors.MessageOf(err)}
}
