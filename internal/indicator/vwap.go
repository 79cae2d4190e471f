package indicator

import (
	"time"

	"github.com/shopspring/decimal"
)

// VWAP accumulates price*volume over a window that restarts every resetPeriod,
// measured from the first trade after the previous reset.
type VWAP struct {
	priceVolume decimal.Decimal
	volume      decimal.Decimal
	trades      int
	resetPeriod time.Duration
	lastReset   time.Time
	hasReset    bool
	current     decimal.Decimal
	hasValue    bool
}

func NewVWAP(resetPeriod time.Duration) *VWAP {
	return &VWAP{resetPeriod: resetPeriod}
}

func NewDailyVWAP() *VWAP { return NewVWAP(24 * time.Hour) }

func NewHourlyVWAP() *VWAP { return NewVWAP(time.Hour) }

func NewSessionVWAP() *VWAP { return NewVWAP(8 * time.Hour) }

func (v *VWAP) SetResetPeriod(period time.Duration) {
	v.resetPeriod = period
}

func (v *VWAP) ResetPeriod() time.Duration { return v.resetPeriod }

func (v *VWAP) Update(price, volume decimal.Decimal, at time.Time) {
	if v.shouldReset(at) {
		v.reset(at)
	}

	v.priceVolume = v.priceVolume.Add(price.Mul(volume))
	v.volume = v.volume.Add(volume)
	v.trades++

	if v.volume.IsPositive() {
		v.current = v.priceVolume.Div(v.volume)
		v.hasValue = true
	}
}

func (v *VWAP) Value() (decimal.Decimal, bool) {
	return v.current, v.hasValue
}

func (v *VWAP) Ready() bool {
	return v.hasValue
}

func (v *VWAP) TotalVolume() decimal.Decimal { return v.volume }

func (v *VWAP) TradeCount() int { return v.trades }

func (v *VWAP) shouldReset(at time.Time) bool {
	if !v.hasReset {
		return true
	}
	// out-of-order timestamps count as no time elapsed
	elapsed := at.Sub(v.lastReset)
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed >= v.resetPeriod
}

func (v *VWAP) reset(at time.Time) {
	v.priceVolume = decimal.Zero
	v.volume = decimal.Zero
	v.trades = 0
	v.current = decimal.Zero
	v.hasValue = false
	v.lastReset = at
	v.hasReset = true
}
