package indicator

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultRSIWindow = 180 * time.Second

var hundred = decimal.NewFromInt(100)

type sample struct {
	value decimal.Decimal
	at    time.Time
}

// RSI averages signed price changes over a rolling time window instead of a
// fixed sample count; period only sets how many samples the window must
// hold before a value is produced.
type RSI struct {
	period     int
	window     time.Duration
	gains      []sample
	losses     []sample
	lastPrice  decimal.Decimal
	lastUpdate time.Time
	hasLast    bool
	avgGain    decimal.Decimal
	avgLoss    decimal.Decimal
	hasAvg     bool
}

func NewRSI(period int) *RSI {
	return &RSI{period: period, window: DefaultRSIWindow}
}

func (r *RSI) SetWindow(window time.Duration) {
	r.window = window
}

func (r *RSI) Window() time.Duration { return r.window }

// Samples is the number of changes currently retained in the window.
func (r *RSI) Samples() int { return len(r.gains) }

func (r *RSI) Update(price decimal.Decimal, at time.Time) {
	if !r.hasLast {
		r.lastPrice, r.lastUpdate, r.hasLast = price, at, true
		return
	}
	// repeated prints of the same price would drag both averages toward zero
	if price.Equal(r.lastPrice) {
		return
	}

	change := price.Sub(r.lastPrice)
	if change.IsPositive() {
		r.gains = append(r.gains, sample{change, at})
		r.losses = append(r.losses, sample{decimal.Zero, at})
	} else {
		r.gains = append(r.gains, sample{decimal.Zero, at})
		r.losses = append(r.losses, sample{change.Abs(), at})
	}

	cutoff := at.Add(-r.window)
	r.gains = prune(r.gains, cutoff)
	r.losses = prune(r.losses, cutoff)

	if len(r.gains) > 0 && len(r.gains) >= r.period {
		r.avgGain = mean(r.gains)
		r.avgLoss = mean(r.losses)
		r.hasAvg = true
	}

	r.lastPrice, r.lastUpdate = price, at
}

func (r *RSI) Value() (decimal.Decimal, bool) {
	if !r.hasAvg {
		return decimal.Zero, false
	}
	if r.avgLoss.IsZero() {
		return hundred, true
	}
	rs := r.avgGain.Div(r.avgLoss)
	return hundred.Sub(hundred.Div(decimal.NewFromInt(1).Add(rs))), true
}

// Ready reports whether the window currently holds enough samples. Value can
// still return the last averages after the window thins out.
func (r *RSI) Ready() bool {
	return r.hasAvg && len(r.gains) >= r.period
}

func prune(queue []sample, cutoff time.Time) []sample {
	idx := 0
	for idx < len(queue) && queue[idx].at.Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return queue
	}
	return append(queue[:0], queue[idx:]...)
}

func mean(queue []sample) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range queue {
		sum = sum.Add(s.value)
	}
	return sum.Div(decimal.NewFromInt(int64(len(queue))))
}
