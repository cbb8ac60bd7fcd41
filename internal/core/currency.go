package core

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultCurrency is the display currency when none is configured.
const DefaultCurrency = "INR"

// Currency is a display preference. It never travels with transactions.
type Currency struct {
	Code        string
	Locale      string
	Name        string
	Symbol      string
	SymbolAfter bool
}

var currencies = []Currency{
	{Code: "INR", Locale: "en-IN", Name: "Indian Rupee", Symbol: "₹"},
	{Code: "USD", Locale: "en-US", Name: "US Dollar", Symbol: "$"},
	{Code: "EUR", Locale: "de-DE", Name: "Euro", Symbol: "€", SymbolAfter: true},
	{Code: "BRL", Locale: "pt-BR", Name: "Brazilian Real", Symbol: "R$"},
	{Code: "JPY", Locale: "ja-JP", Name: "Japanese Yen", Symbol: "¥"},
	{Code: "GBP", Locale: "en-GB", Name: "British Pound", Symbol: "£"},
	{Code: "CAD", Locale: "en-CA", Name: "Canadian Dollar", Symbol: "$"},
	{Code: "AUD", Locale: "en-AU", Name: "Australian Dollar", Symbol: "$"},
	{Code: "CHF", Locale: "de-CH", Name: "Swiss Franc", Symbol: "CHF "},
	{Code: "CNY", Locale: "zh-CN", Name: "Chinese Yuan", Symbol: "¥"},
	{Code: "KRW", Locale: "ko-KR", Name: "South Korean Won", Symbol: "₩"},
	{Code: "SGD", Locale: "en-SG", Name: "Singapore Dollar", Symbol: "$"},
	{Code: "HKD", Locale: "en-HK", Name: "Hong Kong Dollar", Symbol: "HK$"},
	{Code: "SEK", Locale: "sv-SE", Name: "Swedish Krona", Symbol: "kr", SymbolAfter: true},
	{Code: "NOK", Locale: "nb-NO", Name: "Norwegian Krone", Symbol: "kr", SymbolAfter: true},
	{Code: "DKK", Locale: "da-DK", Name: "Danish Krone", Symbol: "kr.", SymbolAfter: true},
	{Code: "PLN", Locale: "pl-PL", Name: "Polish Zloty", Symbol: "zł", SymbolAfter: true},
	{Code: "RUB", Locale: "ru-RU", Name: "Russian Ruble", Symbol: "₽", SymbolAfter: true},
	{Code: "TRY", Locale: "tr-TR", Name: "Turkish Lira", Symbol: "₺"},
	{Code: "MXN", Locale: "es-MX", Name: "Mexican Peso", Symbol: "$"},
	{Code: "ZAR", Locale: "en-ZA", Name: "South African Rand", Symbol: "R"},
	{Code: "NZD", Locale: "en-NZ", Name: "New Zealand Dollar", Symbol: "$"},
	{Code: "THB", Locale: "th-TH", Name: "Thai Baht", Symbol: "฿"},
	{Code: "MYR", Locale: "ms-MY", Name: "Malaysian Ringgit", Symbol: "RM"},
	{Code: "AED", Locale: "ar-AE", Name: "UAE Dirham", Symbol: "د.إ.", SymbolAfter: true},
	{Code: "SAR", Locale: "ar-SA", Name: "Saudi Riyal", Symbol: "ر.س.", SymbolAfter: true},
	{Code: "ILS", Locale: "he-IL", Name: "Israeli Shekel", Symbol: "₪", SymbolAfter: true},
	{Code: "CZK", Locale: "cs-CZ", Name: "Czech Koruna", Symbol: "Kč", SymbolAfter: true},
}

// Currencies returns the supported display currencies in menu order.
func Currencies() []Currency {
	out := make([]Currency, len(currencies))
	copy(out, currencies)
	return out
}

// LookupCurrency finds a supported currency by ISO code.
func LookupCurrency(code string) (Currency, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range currencies {
		if c.Code == code {
			return c, true
		}
	}
	return Currency{}, false
}

// SearchCurrencies matches term against code and name, case-insensitively.
func SearchCurrencies(term string) []Currency {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []Currency
	for _, c := range currencies {
		if strings.Contains(strings.ToLower(c.Code), term) || strings.Contains(strings.ToLower(c.Name), term) {
			out = append(out, c)
		}
	}
	return out
}

// FormatCurrency renders m in the given currency using the currency's locale
// for digit grouping and its ISO minor units for the number of decimals.
// Unknown codes are printed as a code prefix with English formatting.
func FormatCurrency(m Money, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	c, ok := LookupCurrency(code)
	if !ok {
		c = Currency{Code: code, Locale: "en", Symbol: code + " "}
	}

	tag, err := language.Parse(c.Locale)
	if err != nil {
		tag = language.English
	}
	scale := 2
	if unit, err := currency.ParseISO(c.Code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}

	abs := m.Decimal().Abs()
	f, _ := abs.Round(int32(scale)).Float64()
	digits := message.NewPrinter(tag).Sprint(number.Decimal(f, number.Scale(scale)))

	sign := ""
	if m.Cents < 0 {
		sign = "-"
	}
	if c.SymbolAfter {
		return sign + digits + " " + c.Symbol
	}
	return sign + c.Symbol + digits
}
