// Package catalog holds the ticket price table and the promo rule.
// Everything here is pure; callers pass the clock in.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

const (
	MinQuantity = 1
	MaxQuantity = 20

	PromoCode     = "luty"
	PromoTimeZone = "Europe/Warsaw"
)

var (
	ErrUnknownTicketType = errors.New("unknown ticket type")
	ErrInvalidQuantity   = errors.New("invalid quantity")
)

var promoFactor = decimal.New(5, -1)

type TicketType struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice"`
}

// Prices in grosze.
var ticketTypes = map[string]TicketType{
	"premium":            {Code: "premium", Name: "Premium", UnitPrice: 49900},
	"biznes_plus":        {Code: "biznes_plus", Name: "Biznes Plus", UnitPrice: 59900},
	"vip":                {Code: "vip", Name: "VIP", UnitPrice: 99900},
	"premium_online":     {Code: "premium_online", Name: "Premium Online", UnitPrice: 19900},
	"biznes_plus_online": {Code: "biznes_plus_online", Name: "Biznes Plus Online", UnitPrice: 34900},
}

type Price struct {
	TicketType   TicketType
	UnitPrice    int64
	Quantity     int
	TotalAmount  int64
	PromoApplied bool
}

func Lookup(code string) (TicketType, error) {
	t, ok := ticketTypes[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return TicketType{}, fmt.Errorf("%w: %q", ErrUnknownTicketType, code)
	}
	return t, nil
}

// Types lists the catalog ordered by code.
func Types() []TicketType {
	out := make([]TicketType, 0, len(ticketTypes))
	for _, t := range ticketTypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// ClampQuantity accepts nil, a string or a JSON number. Missing means 1;
// anything parseable is clamped into [MinQuantity, MaxQuantity]. Strings are
// read as base 10 up to the first non-digit, so "010" is ten and "0x0A" zero.
func ClampQuantity(raw any) (int, error) {
	var n int64
	switch v := raw.(type) {
	case nil:
		return MinQuantity, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return MinQuantity, nil
		}
		parsed, err := leadingDecimal(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidQuantity, v)
		}
		n = parsed
	default:
		parsed, err := cast.ToInt64E(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidQuantity, v)
		}
		n = parsed
	}

	if n < MinQuantity {
		return MinQuantity, nil
	}
	if n > MaxQuantity {
		return MaxQuantity, nil
	}
	return int(n), nil
}

// leadingDecimal reads an optional sign and the decimal digits after it,
// ignoring the rest. Values past int64 saturate.
func leadingDecimal(s string) (int64, error) {
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, strconv.ErrSyntax
	}

	n, err := strconv.ParseInt(s[:end], 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return n, nil
	}
	return n, err
}

// PromoCutoff is 00:00 on March 1st, Warsaw time, of now's year.
func PromoCutoff(now time.Time) time.Time {
	loc, err := time.LoadLocation(PromoTimeZone)
	if err != nil {
		loc = time.FixedZone("CET", 3600)
	}
	return time.Date(now.In(loc).Year(), time.March, 1, 0, 0, 0, 0, loc)
}

func PromoActive(code string, now time.Time) bool {
	if !strings.EqualFold(strings.TrimSpace(code), PromoCode) {
		return false
	}
	return now.Before(PromoCutoff(now))
}

func PriceFor(ticketTypeCode, promoCode string, quantity int, now time.Time) (Price, error) {
	t, err := Lookup(ticketTypeCode)
	if err != nil {
		return Price{}, err
	}
	if quantity < MinQuantity || quantity > MaxQuantity {
		return Price{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	unit := t.UnitPrice
	promo := PromoActive(promoCode, now)
	if promo {
		// Round is half away from zero, which is half-up for prices.
		unit = decimal.NewFromInt(unit).Mul(promoFactor).Round(0).IntPart()
	}

	return Price{
		TicketType:   t,
		UnitPrice:    unit,
		Quantity:     quantity,
		TotalAmount:  unit * int64(quantity),
		PromoApplied: promo,
	}, nil
}
