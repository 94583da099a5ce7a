package model

// ExchangeRate configures the conversion of points to currency.
// PointsPerUnit points buy one currency unit; exchanges below
// MinimumExchange points are refused.
type ExchangeRate struct {
	PointsPerUnit   int `json:"points_per_unit"`
	MinimumExchange int `json:"minimum_exchange"`
}
