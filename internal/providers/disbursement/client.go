// Package disbursement talks to the payout provider: recipient resolution,
// bank transfers and bill, airtime and data settlement.
package disbursement

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"kudi/internal/providers"

	"github.com/shopspring/decimal"
)

const (
	opResolveRecipient = "resolve_recipient"
	opTransfer         = "transfer"
	opPayBill          = "pay_bill"
	opBuyAirtime       = "buy_airtime"
	opBuyData          = "buy_data"

	billTypeBill    = "BILL"
	billTypeAirtime = "AIRTIME"
	billTypeData    = "DATA_BUNDLE"

	country  = "NG"
	currency = "NGN"
)

type envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func (e envelope[T]) ok() bool {
	return strings.EqualFold(e.Status, "success")
}

type resolveRequest struct {
	AccountNumber string `json:"account_number"`
	AccountBank   string `json:"account_bank"`
}

type resolveResponse struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

type transferRequest struct {
	AccountBank     string      `json:"account_bank"`
	AccountNumber   string      `json:"account_number"`
	Amount          json.Number `json:"amount"`
	Narration       string      `json:"narration"`
	Currency        string      `json:"currency"`
	Reference       string      `json:"reference"`
	BeneficiaryName string      `json:"beneficiary_name,omitempty"`
}

type transferResponse struct {
	ID        json.RawMessage `json:"id"`
	Reference string          `json:"reference"`
	Status    string          `json:"status"`
	Message   string          `json:"complete_message"`
}

type billRequest struct {
	Country    string      `json:"country"`
	Customer   string      `json:"customer"`
	Amount     json.Number `json:"amount"`
	Type       string      `json:"type"`
	Reference  string      `json:"reference"`
	BillerCode string      `json:"biller_code,omitempty"`
	ItemCode   string      `json:"item_code,omitempty"`
	Network    string      `json:"network,omitempty"`
}

type billResponse struct {
	FlwRef    string `json:"flw_ref"`
	TxRef     string `json:"tx_ref"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// Client implements providers.DisbursementProvider.
type Client struct {
	http *providers.Client
}

func NewClient(http *providers.Client) *Client {
	return &Client{http: http}
}

func (c *Client) Name() string {
	return c.http.Name()
}

func (c *Client) ResolveRecipient(ctx context.Context, accountNumber, bankCode string) (*providers.AccountName, error) {
	var resp envelope[resolveResponse]
	req := resolveRequest{AccountNumber: accountNumber, AccountBank: bankCode}
	if err := c.http.Do(ctx, opResolveRecipient, http.MethodPost, "/accounts/resolve", req, &resp); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(resp.Data.AccountName)
	if !resp.ok() || name == "" {
		return nil, c.rejected(opResolveRecipient, resp.Message, "could not resolve recipient")
	}
	return &providers.AccountName{AccountNumber: accountNumber, BankCode: bankCode, AccountName: name}, nil
}

func (c *Client) Transfer(ctx context.Context, req providers.TransferRequest) (*providers.Disbursement, error) {
	payload := transferRequest{
		AccountBank:     req.BankCode,
		AccountNumber:   req.AccountNumber,
		Amount:          amount(req.Amount),
		Narration:       req.Narration,
		Currency:        currency,
		Reference:       req.Reference,
		BeneficiaryName: req.BeneficiaryName,
	}

	var resp envelope[transferResponse]
	if err := c.http.Do(ctx, opTransfer, http.MethodPost, "/transfers", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, c.rejected(opTransfer, resp.Message, "transfer was not accepted")
	}

	status := transferStatus(resp.Data.Status)
	if status == providers.StatusFailed {
		return nil, c.rejected(opTransfer, resp.Data.Message, "transfer failed")
	}
	return &providers.Disbursement{
		ProviderRef: rawID(resp.Data.ID, resp.Data.Reference),
		Status:      status,
		Message:     resp.Message,
	}, nil
}

func (c *Client) PayBill(ctx context.Context, req providers.BillRequest) (*providers.Disbursement, error) {
	return c.bill(ctx, opPayBill, billRequest{
		Country:    country,
		Customer:   req.CustomerID,
		Amount:     amount(req.Amount),
		Type:       billTypeBill,
		Reference:  req.Reference,
		BillerCode: req.BillerCode,
	})
}

func (c *Client) BuyAirtime(ctx context.Context, req providers.AirtimeRequest) (*providers.Disbursement, error) {
	return c.bill(ctx, opBuyAirtime, billRequest{
		Country:   country,
		Customer:  req.Phone,
		Amount:    amount(req.Amount),
		Type:      billTypeAirtime,
		Reference: req.Reference,
		Network:   req.Network,
	})
}

func (c *Client) BuyData(ctx context.Context, req providers.DataRequest) (*providers.Disbursement, error) {
	return c.bill(ctx, opBuyData, billRequest{
		Country:   country,
		Customer:  req.Phone,
		Amount:    amount(req.Amount),
		Type:      billTypeData,
		Reference: req.Reference,
		ItemCode:  req.Plan,
		Network:   req.Network,
	})
}

func (c *Client) bill(ctx context.Context, op string, payload billRequest) (*providers.Disbursement, error) {
	var resp envelope[billResponse]
	if err := c.http.Do(ctx, op, http.MethodPost, "/bills", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, c.rejected(op, resp.Message, "purchase was not accepted")
	}

	status := providers.StatusSuccessful
	if resp.Data.Status != "" {
		status = transferStatus(resp.Data.Status)
	}
	if status == providers.StatusFailed {
		return nil, c.rejected(op, resp.Message, "purchase failed")
	}

	ref := resp.Data.FlwRef
	if ref == "" {
		ref = resp.Data.Reference
	}
	if ref == "" {
		ref = payload.Reference
	}
	return &providers.Disbursement{ProviderRef: ref, Status: status, Message: resp.Message}, nil
}

func (c *Client) rejected(op, message, fallback string) error {
	if message == "" {
		message = fallback
	}
	return &providers.ProviderError{Provider: c.Name(), Op: op, Message: message}
}

// transferStatus maps the provider's status vocabulary onto ours. Anything
// not clearly final is pending and settles by webhook.
func transferStatus(s string) providers.Status {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SUCCESSFUL", "SUCCESS":
		return providers.StatusSuccessful
	case "FAILED":
		return providers.StatusFailed
	default:
		return providers.StatusPending
	}
}

func rawID(raw json.RawMessage, fallback string) string {
	id := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if id == "" || id == "null" {
		return fallback
	}
	return id
}

// amount renders money as a bare JSON number with kobo precision.
func amount(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}
