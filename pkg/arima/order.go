package arima

import "fmt"

// Order is a seasonal ARIMA order (p,d,q)(P,D,Q)[m].
// Seasonal terms are ignored unless Period is at least 1.
type Order struct {
	P int `json:"p"`
	D int `json:"d"`
	Q int `json:"q"`

	SeasonalP int `json:"P"`
	SeasonalD int `json:"D"`
	SeasonalQ int `json:"Q"`
	Period    int `json:"m"`
}

// String renders the order as ARIMA(p,d,q) or ARIMA(p,d,q)(P,D,Q)[m].
func (o Order) String() string {
	if !o.Seasonal() {
		return fmt.Sprintf("ARIMA(%d,%d,%d)", o.P, o.D, o.Q)
	}
	return fmt.Sprintf("ARIMA(%d,%d,%d)(%d,%d,%d)[%d]",
		o.P, o.D, o.Q, o.SeasonalP, o.SeasonalD, o.SeasonalQ, o.Period)
}

// Seasonal reports whether any seasonal term is in use.
func (o Order) Seasonal() bool {
	return o.Period > 0 && (o.SeasonalP > 0 || o.SeasonalD > 0 || o.SeasonalQ > 0)
}

// MinLength is the number of leading observations consumed by differencing.
func (o Order) MinLength() int {
	return o.D + o.SeasonalD*o.Period
}

// Validate rejects negative orders and seasonal terms without a period.
func (o Order) Validate() error {
	if o.P < 0 || o.D < 0 || o.Q < 0 || o.SeasonalP < 0 || o.SeasonalD < 0 || o.SeasonalQ < 0 {
		return fmt.Errorf("%w: negative term in %s", ErrInvalidOrder, o)
	}
	if o.Period < 0 {
		return fmt.Errorf("%w: negative period %d", ErrInvalidOrder, o.Period)
	}
	if o.Period == 0 && (o.SeasonalP > 0 || o.SeasonalD > 0 || o.SeasonalQ > 0) {
		return fmt.Errorf("%w: seasonal terms (%d,%d,%d) require a period",
			ErrInvalidOrder, o.SeasonalP, o.SeasonalD, o.SeasonalQ)
	}
	return nil
}
