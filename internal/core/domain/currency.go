package domain

// Currency represents a supported currency.
type Currency struct {
	CurrencyCode string `json:"currencyCode"` // ISO 4217 style code, e.g. USD
	Symbol       string `json:"symbol"`       // e.g. $
	Name         string `json:"name"`         // e.g. US Dollar
	Precision    int    `json:"precision"`    // Number of decimal places
	IsActive     bool   `json:"isActive"`
	AuditFields
}
