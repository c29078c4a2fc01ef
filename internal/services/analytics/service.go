package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	apperrors "kudi/internal/errors"
	"kudi/internal/models"
	"kudi/internal/repositories"

	"github.com/shopspring/decimal"
)

const (
	defaultRange = 30 * 24 * time.Hour
	maxRange     = 366 * 24 * time.Hour
	topUsers     = 10
)

type Service interface {
	LoyaltyAnalytics(ctx context.Context, from, to time.Time) (*LoyaltyReport, error)
}

type service struct {
	transactions repositories.TransactionRepository
	loc          *time.Location
	now          func() time.Time
}

type LoyaltyReport struct {
	From              time.Time          `json:"from"`
	To                time.Time          `json:"to"`
	TotalPurchases    int                `json:"totalPurchases"`
	EligiblePurchases int                `json:"eligiblePurchases"`
	Daily             []DailyBreakdown   `json:"daily"`
	Services          []ServiceBreakdown `json:"services"`
	Cashback          CashbackTotals     `json:"cashback"`
	TopUsers          []UserCashback     `json:"topUsers"`
}

type DailyBreakdown struct {
	Date     string                 `json:"date"`
	Total    int                    `json:"total"`
	Services map[models.Service]int `json:"services"`
}

type ServiceBreakdown struct {
	Service   models.Service  `json:"service"`
	Purchases int             `json:"purchases"`
	Eligible  int             `json:"eligible"`
	Volume    decimal.Decimal `json:"volume"`
}

type CashbackTotals struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type UserCashback struct {
	UserID string          `json:"userId"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// NewService reads from the transaction ledger. Days are bucketed in loc.
func NewService(transactions repositories.TransactionRepository, loc *time.Location) Service {
	if loc == nil {
		loc = time.UTC
	}
	return &service{transactions: transactions, loc: loc, now: time.Now}
}

// LoyaltyAnalytics summarizes purchases and cashback between from and to.
// Zero bounds default to the last 30 days.
func (s *service) LoyaltyAnalytics(ctx context.Context, from, to time.Time) (*LoyaltyReport, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.Add(-defaultRange)
	}
	if !from.Before(to) {
		return nil, apperrors.ErrValidation.WithMessage("from must be before to")
	}
	if to.Sub(from) > maxRange {
		return nil, apperrors.ErrValidation.WithMessage("range cannot exceed 366 days")
	}

	purchases, err := s.transactions.List(ctx, repositories.TransactionFilter{
		Types:    []models.TransactionType{models.TransactionTypePayment},
		Services: []models.Service{models.ServiceAirtime, models.ServiceData, models.ServiceBill},
		Statuses: []models.TransactionStatus{models.StatusPending, models.StatusCompleted},
		From:     from,
		To:       to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	cashbacks, err := s.transactions.List(ctx, repositories.TransactionFilter{
		Types:    []models.TransactionType{models.TransactionTypeDeposit},
		Kinds:    []models.TransactionKind{models.KindCashback},
		Statuses: []models.TransactionStatus{models.StatusCompleted},
		From:     from,
		To:       to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cashback: %w", err)
	}

	report := &LoyaltyReport{
		From:     from,
		To:       to,
		Daily:    s.daily(purchases),
		Services: byService(purchases),
		Cashback: CashbackTotals{Count: len(cashbacks), Total: decimal.Zero},
		TopUsers: rankUsers(cashbacks),
	}
	report.TotalPurchases = len(purchases)
	for i := range purchases {
		if purchases[i].Metadata.IsEligibleForCashback {
			report.EligiblePurchases++
		}
	}
	for i := range cashbacks {
		report.Cashback.Total = report.Cashback.Total.Add(cashbacks[i].Amount)
	}
	return report, nil
}

func (s *service) daily(purchases []models.Transaction) []DailyBreakdown {
	days := make(map[string]*DailyBreakdown)
	for i := range purchases {
		tx := &purchases[i]
		key := tx.CreatedAt.In(s.loc).Format("2006-01-02")
		day, ok := days[key]
		if !ok {
			day = &DailyBreakdown{Date: key, Services: make(map[models.Service]int)}
			days[key] = day
		}
		day.Total++
		day.Services[tx.Service]++
	}

	out := make([]DailyBreakdown, 0, len(days))
	for _, day := range days {
		out = append(out, *day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func byService(purchases []models.Transaction) []ServiceBreakdown {
	order := []models.Service{models.ServiceAirtime, models.ServiceData, models.ServiceBill}
	rows := make(map[models.Service]*ServiceBreakdown, len(order))
	for _, svc := range order {
		rows[svc] = &ServiceBreakdown{Service: svc, Volume: decimal.Zero}
	}
	for i := range purchases {
		tx := &purchases[i]
		row, ok := rows[tx.Service]
		if !ok {
			continue
		}
		row.Purchases++
		row.Volume = row.Volume.Add(tx.Amount)
		if tx.Metadata.IsEligibleForCashback {
			row.Eligible++
		}
	}

	out := make([]ServiceBreakdown, 0, len(order))
	for _, svc := range order {
		out = append(out, *rows[svc])
	}
	return out
}

func rankUsers(cashbacks []models.Transaction) []UserCashback {
	users := make(map[string]*UserCashback)
	for i := range cashbacks {
		tx := &cashbacks[i]
		u, ok := users[tx.UserID]
		if !ok {
			u = &UserCashback{UserID: tx.UserID, Total: decimal.Zero}
			users[tx.UserID] = u
		}
		u.Count++
		u.Total = u.Total.Add(tx.Amount)
	}

	out := make([]UserCashback, 0, len(users))
	for _, u := range users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > topUsers {
		out = out[:topUsers]
	}
	return out
}
