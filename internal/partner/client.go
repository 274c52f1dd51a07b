// Package partner is the HTTP client for the order management backend. It
// classifies backend failures into the faults taxonomy at the boundary:
// bad input, conflicting resource, or a generic downstream failure.
package partner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yourorg/commerce-orchestrator/internal/commerce"
	"github.com/yourorg/commerce-orchestrator/internal/faults"
)

const (
	defaultRetryAttempts = 2
	defaultRetryDelay    = 500 * time.Millisecond
)

// Client talks to the order backend. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a Client for the backend at baseURL.
func NewClient(client *http.Client, baseURL, apiKey string) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{httpClient: client, baseURL: baseURL, apiKey: apiKey}
}

type wireOrderRequest struct {
	ReferenceCustomerID string              `json:"referenceCustomerId"`
	Operation           string              `json:"operation"`
	LineItems           []wireOrderLineItem `json:"lineItems"`
}

type wireOrderLineItem struct {
	LineItemNumber int    `json:"lineItemNumber"`
	OfferID        string `json:"offerId"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	FriendlyName   string `json:"friendlyName,omitempty"`
	Quantity       int    `json:"quantity"`
}

type wireError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// CreateOrder submits the order. Backend failures come back classified:
// HTTP 400 as InvalidInput, 409 as AlreadyExists, anything else as
// DownstreamServiceError.
func (c *Client) CreateOrder(ctx context.Context, order commerce.PurchaseOrder) (commerce.PlacedOrder, error) {
	req := wireOrderRequest{
		ReferenceCustomerID: order.CustomerID,
		Operation:           string(order.Operation),
	}
	for i, li := range order.Subscriptions {
		req.LineItems = append(req.LineItems, wireOrderLineItem{
			LineItemNumber: i,
			OfferID:        li.OfferID,
			SubscriptionID: li.SubscriptionID,
			FriendlyName:   li.FriendlyName,
			Quantity:       li.Quantity,
		})
	}

	var placed commerce.PlacedOrder
	path := fmt.Sprintf("/v1/customers/%s/orders", order.CustomerID)
	if err := c.call(ctx, http.MethodPost, path, req, &placed); err != nil {
		return commerce.PlacedOrder{}, err
	}
	return placed, nil
}

// GetSubscription fetches one subscription of a customer.
func (c *Client) GetSubscription(ctx context.Context, customerID, subscriptionID string) (commerce.Subscription, error) {
	var sub commerce.Subscription
	path := fmt.Sprintf("/v1/customers/%s/subscriptions/%s", customerID, subscriptionID)
	if err := c.call(ctx, http.MethodGet, path, nil, &sub); err != nil {
		return commerce.Subscription{}, err
	}
	return sub, nil
}

// PatchSubscription updates a subscription's status and display name.
func (c *Client) PatchSubscription(ctx context.Context, customerID string, sub commerce.Subscription) (commerce.Subscription, error) {
	var updated commerce.Subscription
	path := fmt.Sprintf("/v1/customers/%s/subscriptions/%s", customerID, sub.ID)
	if err := c.call(ctx, http.MethodPatch, path, sub, &updated); err != nil {
		return commerce.Subscription{}, err
	}
	return updated, nil
}

func (c *Client) call(ctx context.Context, method, path string, payload, out any) error {
	var requestBody []byte
	if payload != nil {
		var err error
		requestBody, err = json.Marshal(payload)
		if err != nil {
			return faults.Wrap(faults.DownstreamServiceError, err, "encoding backend request")
		}
	}

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt <= defaultRetryAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(defaultRetryDelay)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(requestBody))
		if err != nil {
			return faults.Wrap(faults.DownstreamServiceError, err, "building backend request")
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		current, doErr := c.httpClient.Do(req)
		if doErr != nil {
			lastErr = doErr
			continue
		}
		if current.StatusCode == http.StatusTooManyRequests || current.StatusCode >= http.StatusInternalServerError {
			body, _ := io.ReadAll(current.Body)
			current.Body.Close()
			lastErr = fmt.Errorf("backend returned HTTP %d: %s", current.StatusCode, body)
			if attempt < defaultRetryAttempts {
				continue
			}
			return faults.Wrap(faults.DownstreamServiceError, lastErr, "backend call failed after retries")
		}
		resp = current
		break
	}
	if resp == nil {
		return faults.Wrap(faults.DownstreamServiceError, lastErr, "backend unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return faults.Wrap(faults.DownstreamServiceError, err, "reading backend response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyError(resp.StatusCode, body)
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return faults.Wrap(faults.DownstreamServiceError, err, "decoding backend response")
		}
	}
	return nil
}

func classifyError(status int, body []byte) error {
	var we wireError
	detail := string(body)
	if json.Unmarshal(body, &we) == nil && we.Description != "" {
		detail = we.Description
	}

	var kind faults.Kind
	switch status {
	case http.StatusBadRequest:
		kind = faults.InvalidInput
	case http.StatusConflict:
		kind = faults.AlreadyExists
	default:
		kind = faults.DownstreamServiceError
	}
	f := faults.New(kind, "order backend rejected the request: %s", detail)
	if we.Code != "" {
		f.WithDetail("backendCode", we.Code)
	}
	return f
}
