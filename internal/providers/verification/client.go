// Package verification talks to the account verification provider: bank
// account name lookup and dedicated virtual account issuance.
package verification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"kudi/internal/providers"
)

const (
	opVerifyAccount       = "verify_account"
	opIssueVirtualAccount = "issue_virtual_account"
)

type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type resolvedAccount struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

type dedicatedAccount struct {
	ID            json.RawMessage `json:"id"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	Bank          struct {
		Name string `json:"name"`
	} `json:"bank"`
}

type dedicatedAccountRequest struct {
	Customer  string `json:"customer"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	BVN       string `json:"bvn,omitempty"`
}

// Client implements providers.VerificationProvider.
type Client struct {
	http *providers.Client
}

func NewClient(http *providers.Client) *Client {
	return &Client{http: http}
}

func (c *Client) Name() string {
	return c.http.Name()
}

func (c *Client) VerifyAccount(ctx context.Context, accountNumber, bankCode string) (*providers.AccountName, error) {
	q := url.Values{}
	q.Set("account_number", accountNumber)
	q.Set("bank_code", bankCode)

	var resp envelope[resolvedAccount]
	if err := c.http.Do(ctx, opVerifyAccount, http.MethodGet, "/bank/resolve?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Status || strings.TrimSpace(resp.Data.AccountName) == "" {
		return nil, rejected(c.Name(), opVerifyAccount, resp.Message, "could not verify account")
	}
	return &providers.AccountName{
		AccountNumber: accountNumber,
		BankCode:      bankCode,
		AccountName:   strings.TrimSpace(resp.Data.AccountName),
	}, nil
}

func (c *Client) IssueVirtualAccount(ctx context.Context, identity providers.Identity) (*providers.IssuedAccount, error) {
	req := dedicatedAccountRequest{
		Customer:  identity.UserID,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		Email:     identity.Email,
		Phone:     identity.Phone,
		BVN:       identity.BVN,
	}

	var resp envelope[dedicatedAccount]
	if err := c.http.Do(ctx, opIssueVirtualAccount, http.MethodPost, "/dedicated_account", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Status || resp.Data.AccountNumber == "" {
		return nil, rejected(c.Name(), opIssueVirtualAccount, resp.Message, "could not issue virtual account")
	}
	return &providers.IssuedAccount{
		AccountNumber:     resp.Data.AccountNumber,
		BankName:          resp.Data.Bank.Name,
		AccountName:       resp.Data.AccountName,
		ProviderReference: providerID(resp.Data.ID, resp.Data.AccountNumber),
	}, nil
}

func rejected(provider, op, message, fallback string) error {
	if message == "" {
		message = fallback
	}
	return &providers.ProviderError{Provider: provider, Op: op, Message: message}
}

// providerID normalizes ids the provider sends as either numbers or strings.
func providerID(raw json.RawMessage, fallback string) string {
	id := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if id == "" || id == "null" {
		return fallback
	}
	return id
}
