package core

import (
	"errors"
	"strings"
	"time"
)

// Time-of-day periods, fixed closed set.
const (
	PeriodMorning   TimePeriod = "上午"
	PeriodMidday    TimePeriod = "中午"
	PeriodAfternoon TimePeriod = "下午"
	PeriodEvening   TimePeriod = "晚上"
)

type (
	TimePeriod string

	Date struct {
		time.Time
	}

	Money struct {
		Fen int64
	}

	Expense struct {
		ID            int64
		UserID        int64
		Date          Date
		TimePeriod    TimePeriod
		ItemName      string
		Amount        Money
		PaymentMethod string
		CreatedAt     time.Time
	}
)

// TimePeriods lists the selectable time-of-day periods in display order.
var TimePeriods = []TimePeriod{PeriodMorning, PeriodMidday, PeriodAfternoon, PeriodEvening}

// PaymentMethods is the fixed closed set of payment instruments.
var PaymentMethods = []string{
	"兴业银行信用卡",
	"浦发红沙宣",
	"inmotion香港信用卡",
	"招商储蓄卡",
	"花呗",
}

var (
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyItemName        = errors.New("empty item name")
	ErrUnknownTimePeriod    = errors.New("unknown time period")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
)

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a calendar date in ISO form (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// ISO returns the date in YYYY-MM-DD form. ISO ordering equals
// chronological ordering, which the chart bucketing relies on.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (p TimePeriod) Validate() error {
	for _, tp := range TimePeriods {
		if p == tp {
			return nil
		}
	}
	return ErrUnknownTimePeriod
}

// ValidPaymentMethod reports whether m belongs to the closed set.
func ValidPaymentMethod(m string) bool {
	for _, pm := range PaymentMethods {
		if m == pm {
			return true
		}
	}
	return false
}

func (m Money) Validate() error {
	if m.Fen <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.TimePeriod.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.ItemName)) == 0 {
		return ErrEmptyItemName
	}
	if len(e.ItemName) > 200 {
		return errors.New("item name too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !ValidPaymentMethod(e.PaymentMethod) {
		return ErrUnknownPaymentMethod
	}
	return nil
}
