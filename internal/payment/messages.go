package payment

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Messages renders one warning line per mismatched amount. Vietnamese is used
// unless lang is an English tag; amounts are grouped the way the locale
// writes VND.
func (s Status) Messages(lang language.Tag) []string {
	if !s.HasMismatch {
		return nil
	}
	base, _ := lang.Base()
	english := base.String() == "en"
	p := message.NewPrinter(lang)

	var out []string
	if line := describe(p, english, "Local charge", "Local charge", s.LCDiff); line != "" {
		out = append(out, line)
	}
	if line := describe(p, english, "Deposit", "Cược", s.DepositDiff); line != "" {
		out = append(out, line)
	}
	return out
}

func describe(p *message.Printer, english bool, enLabel, viLabel string, diff decimal.Decimal) string {
	if diff.IsZero() {
		return ""
	}
	amount := number.Decimal(diff.Abs().Round(0).IntPart())
	switch {
	case english && diff.IsPositive():
		return p.Sprintf("%s over by %v VND", enLabel, amount)
	case english:
		return p.Sprintf("%s short by %v VND", enLabel, amount)
	case diff.IsPositive():
		return p.Sprintf("%s dư %v VND", viLabel, amount)
	default:
		return p.Sprintf("%s thiếu %v VND", viLabel, amount)
	}
}
