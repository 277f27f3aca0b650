package core

import (
	"errors"
	"testing"
	"time"
)

func validExpense() Expense {
	return Expense{
		UserID:        1,
		Date:          NewDate(2025, 6, 15),
		TimePeriod:    PeriodMorning,
		ItemName:      "午餐",
		Amount:        Money{Fen: 1250},
		PaymentMethod: PaymentMethods[0],
		CreatedAt:     time.Now(),
	}
}

func TestExpenseValidate(t *testing.T) {
	if err := validExpense().Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Expense)
		want   error
	}{
		{"zero date", func(e *Expense) { e.Date = Date{} }, ErrInvalidDate},
		{"unknown period", func(e *Expense) { e.TimePeriod = "深夜" }, ErrUnknownTimePeriod},
		{"empty item", func(e *Expense) { e.ItemName = "  " }, ErrEmptyItemName},
		{"zero amount", func(e *Expense) { e.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(e *Expense) { e.Amount = Money{Fen: -10} }, ErrInvalidAmount},
		{"unknown method", func(e *Expense) { e.PaymentMethod = "现金" }, ErrUnknownPaymentMethod},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := validExpense()
			tc.mutate(&e)
			if err := e.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-02-28")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ISO() != "2025-02-28" {
		t.Fatalf("round trip mismatch: %s", d.ISO())
	}

	if _, err := ParseDate("28/02/2025"); err == nil {
		t.Fatal("expected error for non-ISO date")
	}
}
