// Package cep resolves Brazilian postal codes through ViaCEP.
package cep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"hemagenda-backend/internal/parse"
)

var (
	// ErrInvalidCEP is returned for input that is not eight digits.
	ErrInvalidCEP = errors.New("cep: invalid postal code")
	// ErrNotFound is returned when the service flags the code as unknown.
	ErrNotFound = errors.New("cep: not found")
)

// Address is the subset of the ViaCEP payload the application uses.
type Address struct {
	Street string `json:"logradouro"`
	City   string `json:"localidade"`
	State  string `json:"uf"`
}

// Client queries {baseURL}/ws/{cep}/json/.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the given base URL. A nil httpClient uses
// http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type viaCEPResponse struct {
	Address
	Erro json.RawMessage `json:"erro"`
}

// Lookup resolves a postal code.
func (c *Client) Lookup(ctx context.Context, raw string) (Address, error) {
	code, err := parse.CEP(raw)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidCEP, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/ws/%s/json/", c.baseURL, code), nil)
	if err != nil {
		return Address{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Address{}, fmt.Errorf("cep lookup failed: %w", err)
	}
	defer resp.Body.Close()

	// ViaCEP answers 400 for malformed codes.
	if resp.StatusCode == http.StatusBadRequest {
		return Address{}, ErrInvalidCEP
	}
	if resp.StatusCode != http.StatusOK {
		return Address{}, fmt.Errorf("cep lookup returned status %d", resp.StatusCode)
	}

	var body viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Address{}, fmt.Errorf("failed to decode cep response: %w", err)
	}
	if isErro(body.Erro) {
		return Address{}, ErrNotFound
	}
	return body.Address, nil
}

// isErro accepts both `"erro": true` and `"erro": "true"`.
func isErro(raw json.RawMessage) bool {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	return s == "true"
}
