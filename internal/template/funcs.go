package template

import (
	"time"

	"github.com/shopspring/decimal"
)

func funcs() map[string]any {
	return map[string]any{
		"money":     money,
		"humanDate": humanDate,
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func humanDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("January 2, 2006")
}
