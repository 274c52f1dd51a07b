package paypal

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/yourorg/commerce-orchestrator/internal/commerce"
	"github.com/yourorg/commerce-orchestrator/internal/faults"
)

// Wire shapes for the payments API.

type wireAmount struct {
	Currency string `json:"currency"`
	Total    string `json:"total"`
}

type wireItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SKU         string `json:"sku"`
	Currency    string `json:"currency"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
}

type wireItemList struct {
	Items []wireItem `json:"items"`
}

type wireTransaction struct {
	Description      string                 `json:"description,omitempty"`
	Custom           string                 `json:"custom,omitempty"`
	ItemList         *wireItemList          `json:"item_list,omitempty"`
	Amount           wireAmount             `json:"amount"`
	RelatedResources []wireRelatedResource `json:"related_resources,omitempty"`
}

type wireRelatedResource struct {
	Authorization struct {
		ID string `json:"id"`
	} `json:"authorization"`
}

type wirePayment struct {
	ID                  string            `json:"id,omitempty"`
	Intent              string            `json:"intent,omitempty"`
	State               string            `json:"state,omitempty"`
	ExperienceProfileID string            `json:"experience_profile_id,omitempty"`
	Payer               *wirePayer        `json:"payer,omitempty"`
	Transactions        []wireTransaction `json:"transactions,omitempty"`
	RedirectURLs        *wireRedirectURLs `json:"redirect_urls,omitempty"`
	Links               []wireLink        `json:"links,omitempty"`
}

type wirePayer struct {
	PaymentMethod string `json:"payment_method"`
}

type wireRedirectURLs struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type wireLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// formatAmount renders a monetary value at the currency's native precision.
// Currencies without subdivision get zero decimal places.
func formatAmount(v float64, decimalDigits int) string {
	return strconv.FormatFloat(roundAmount(v, decimalDigits), 'f', decimalDigits, 64)
}

func roundAmount(v float64, decimalDigits int) float64 {
	scale := math.Pow10(decimalDigits)
	return math.Round(v*scale) / scale
}

// correlationToken embeds the customer identifier and operation type on the
// provider transaction so the order can be reconstructed after the redirect.
func correlationToken(order commerce.PurchaseOrder) string {
	return fmt.Sprintf("%s#%s", order.CustomerID, order.Operation)
}

func parseCorrelationToken(token string) (customerID string, op commerce.OperationType, err error) {
	parts := strings.Split(token, "#")
	if len(parts) != 2 {
		return "", "", faults.New(faults.PaymentGatewayFailure, "payment carries a malformed correlation token")
	}
	op, err = commerce.ParseOperationType(parts[1])
	if err != nil {
		return "", "", faults.Wrap(faults.PaymentGatewayFailure, err, "payment carries a malformed correlation token")
	}
	return parts[0], op, nil
}

// GenerateCheckoutURI creates a pending payment with intent "authorize" and
// returns the provider-hosted approval URL.
func (a *Adapter) GenerateCheckoutURI(ctx context.Context, redirectURL string, order commerce.PurchaseOrder) (string, error) {
	if redirectURL == "" {
		return "", faults.New(faults.InvalidInput, "redirect URL is required")
	}
	brand, err := a.branding.Retrieve()
	if err != nil {
		return "", faults.Wrap(faults.PaymentGatewayFailure, err, "retrieving branding configuration")
	}
	payCfg, err := a.payments.Retrieve()
	if err != nil {
		return "", faults.Wrap(faults.PaymentGatewayFailure, err, "retrieving payment configuration")
	}

	items := make([]wireItem, 0, len(order.Subscriptions))
	var total float64
	for _, li := range order.Subscriptions {
		sku := li.SubscriptionID
		if sku == "" {
			sku = li.OfferID
		}
		name := li.FriendlyName
		if name == "" {
			name = li.OfferID
		}
		items = append(items, wireItem{
			Name:        name,
			Description: a.description,
			SKU:         sku,
			Currency:    brand.CurrencyCode,
			Price:       formatAmount(li.SeatPrice, brand.CurrencyDecimalDigits),
			Quantity:    strconv.Itoa(li.Quantity),
		})
		total += roundAmount(float64(li.Quantity)*li.SeatPrice, brand.CurrencyDecimalDigits)
	}

	payment := wirePayment{
		Intent:              "authorize",
		Payer:               &wirePayer{PaymentMethod: "paypal"},
		ExperienceProfileID: payCfg.WebExperienceProfileID,
		Transactions: []wireTransaction{{
			Description: a.description,
			Custom:      correlationToken(order),
			ItemList:    &wireItemList{Items: items},
			Amount: wireAmount{
				Currency: brand.CurrencyCode,
				Total:    formatAmount(total, brand.CurrencyDecimalDigits),
			},
		}},
		RedirectURLs: &wireRedirectURLs{
			ReturnURL: redirectURL + "&payment=success",
			CancelURL: redirectURL + "&payment=failure",
		},
	}

	var created wirePayment
	if err := a.call(ctx, http.MethodPost, "/v1/payments/payment", payment, &created); err != nil {
		return "", err
	}
	for _, link := range created.Links {
		if strings.EqualFold(strings.TrimSpace(link.Rel), "approval_url") {
			return link.Href, nil
		}
	}
	return "", faults.New(faults.PaymentGatewayFailure, "provider did not return a checkout approval URL")
}

// ExecutePayment finalizes the payer's consent into an authorization hold.
func (a *Adapter) ExecutePayment(ctx context.Context, payerID, paymentID string) (string, error) {
	if payerID == "" || paymentID == "" {
		return "", faults.New(faults.InvalidInput, "payer id and payment id are required")
	}
	body := struct {
		PayerID string `json:"payer_id"`
	}{PayerID: payerID}

	var executed wirePayment
	path := fmt.Sprintf("/v1/payments/payment/%s/execute", paymentID)
	if err := a.call(ctx, http.MethodPost, path, body, &executed); err != nil {
		return "", err
	}
	if !strings.EqualFold(executed.State, "approved") {
		return "", faults.New(faults.PaymentGatewayPaymentError, "payment was not approved by the provider").
			WithDetail("paymentState", executed.State)
	}
	if len(executed.Transactions) == 0 || len(executed.Transactions[0].RelatedResources) == 0 {
		return "", faults.New(faults.PaymentGatewayFailure, "approved payment carries no authorization")
	}
	code := executed.Transactions[0].RelatedResources[0].Authorization.ID
	if code == "" {
		return "", faults.New(faults.PaymentGatewayFailure, "approved payment carries no authorization")
	}
	return code, nil
}

// Capture looks up the held amount by authorization code and settles it in
// full, releasing any residual hold. Partial capture is not supported.
func (a *Adapter) Capture(ctx context.Context, authorizationCode string) error {
	if authorizationCode == "" {
		return faults.New(faults.InvalidInput, "authorization code is required")
	}
	var auth struct {
		Amount wireAmount `json:"amount"`
	}
	if err := a.call(ctx, http.MethodGet,
		"/v1/payments/authorization/"+authorizationCode, nil, &auth); err != nil {
		return err
	}

	capture := struct {
		Amount         wireAmount `json:"amount"`
		IsFinalCapture bool       `json:"is_final_capture"`
	}{Amount: auth.Amount, IsFinalCapture: true}

	return a.call(ctx, http.MethodPost,
		"/v1/payments/authorization/"+authorizationCode+"/capture", capture, nil)
}

// Void releases an authorization hold without capturing funds. Voiding an
// already-void authorization is accepted by the provider.
func (a *Adapter) Void(ctx context.Context, authorizationCode string) error {
	if authorizationCode == "" {
		return faults.New(faults.InvalidInput, "authorization code is required")
	}
	return a.call(ctx, http.MethodPost,
		"/v1/payments/authorization/"+authorizationCode+"/void", nil, nil)
}

// FetchOrderFromPayment reconstructs a purchase order from a previously
// created payment's correlation token and item list.
func (a *Adapter) FetchOrderFromPayment(ctx context.Context, paymentID string) (commerce.PurchaseOrder, error) {
	if paymentID == "" {
		return commerce.PurchaseOrder{}, faults.New(faults.InvalidInput, "payment id is required")
	}
	var payment wirePayment
	if err := a.call(ctx, http.MethodGet, "/v1/payments/payment/"+paymentID, nil, &payment); err != nil {
		return commerce.PurchaseOrder{}, err
	}
	if len(payment.Transactions) == 0 {
		return commerce.PurchaseOrder{}, faults.New(faults.PaymentGatewayFailure, "payment carries no transactions")
	}

	tx := payment.Transactions[0]
	customerID, op, err := parseCorrelationToken(tx.Custom)
	if err != nil {
		return commerce.PurchaseOrder{}, err
	}

	order := commerce.PurchaseOrder{CustomerID: customerID, Operation: op}
	if tx.ItemList != nil {
		for _, item := range tx.ItemList.Items {
			qty, convErr := strconv.Atoi(item.Quantity)
			if convErr != nil {
				return commerce.PurchaseOrder{}, faults.Wrap(faults.PaymentGatewayFailure, convErr,
					"payment item carries a malformed quantity")
			}
			price, convErr := strconv.ParseFloat(item.Price, 64)
			if convErr != nil {
				return commerce.PurchaseOrder{}, faults.Wrap(faults.PaymentGatewayFailure, convErr,
					"payment item carries a malformed price")
			}
			order.Subscriptions = append(order.Subscriptions, commerce.LineItem{
				SubscriptionID: item.SKU,
				OfferID:        item.SKU,
				FriendlyName:   item.Name,
				Quantity:       qty,
				SeatPrice:      price,
			})
		}
	}
	return order, nil
}
