package cartsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPRemote is a RemoteCart backed by the cart REST endpoints, for Go
// clients such as a storefront backend-for-frontend that keep a guest cart
// locally and talk to this API over the network. The API itself uses the
// in-process command.CartRemote. The bearer token is forwarded as is.
// A 404 on an add wraps ErrItemRejected.
type HTTPRemote struct {
	baseURL string
	token   string
	client  *http.Client
}

type cartPayload struct {
	Items []Item `json:"items"`
}

type addItemPayload struct {
	ProductID string `json:"product_id"`
	UnitType  string `json:"unit_type,omitempty"`
	Quantity  int    `json:"quantity"`
}

type updateItemPayload struct {
	Quantity int `json:"quantity"`
}

// NewHTTPRemote creates a client for the API at baseURL (for example http://localhost:8080/api)
func NewHTTPRemote(baseURL, token string, client *http.Client) *HTTPRemote {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPRemote{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

func (h *HTTPRemote) GetCart(ctx context.Context) ([]Item, error) {
	return h.do(ctx, http.MethodGet, "/cart", nil)
}

func (h *HTTPRemote) AddItem(ctx context.Context, productID, unitType string, quantity int) ([]Item, error) {
	return h.do(ctx, http.MethodPost, "/cart/items", addItemPayload{
		ProductID: productID,
		UnitType:  unitType,
		Quantity:  quantity,
	})
}

func (h *HTTPRemote) UpdateItem(ctx context.Context, productID, unitType string, quantity int) ([]Item, error) {
	return h.do(ctx, http.MethodPut, itemPath(productID, unitType), updateItemPayload{Quantity: quantity})
}

func (h *HTTPRemote) RemoveItem(ctx context.Context, productID, unitType string) ([]Item, error) {
	return h.do(ctx, http.MethodDelete, itemPath(productID, unitType), nil)
}

func (h *HTTPRemote) ClearCart(ctx context.Context) error {
	_, err := h.do(ctx, http.MethodDelete, "/cart", nil)
	return err
}

func itemPath(productID, unitType string) string {
	path := "/cart/items/" + url.PathEscape(productID)
	if unitType != "" {
		path += "?unit=" + url.QueryEscape(unitType)
	}
	return path
}

func (h *HTTPRemote) do(ctx context.Context, method, path string, body any) ([]Item, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		err := fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, apiErr.Error)
		if resp.StatusCode == http.StatusNotFound && method == http.MethodPost {
			return nil, fmt.Errorf("%w: %w", ErrItemRejected, err)
		}
		return nil, err
	}

	if resp.StatusCode == http.StatusNoContent {
		return []Item{}, nil
	}

	var cart cartPayload
	if err := json.NewDecoder(resp.Body).Decode(&cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	if cart.Items == nil {
		cart.Items = []Item{}
	}
	return cart.Items, nil
}
