package indicator

import (
	"github.com/shopspring/decimal"

	"gridtrader/internal/md"
)

// SMA is the arithmetic mean of the last period prices. A period below one
// never becomes ready.
type SMA struct {
	period  int
	prices  *md.RingBuffer
	current decimal.Decimal
	ready   bool
}

func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
		prices: md.NewRingBuffer(period),
	}
}

func (s *SMA) Period() int { return s.period }

func (s *SMA) Update(price decimal.Decimal) {
	s.prices.Add(price)
	mean, err := s.prices.Mean(s.period)
	if err != nil {
		return
	}
	s.current = mean
	s.ready = true
}

func (s *SMA) Value() (decimal.Decimal, bool) {
	return s.current, s.ready
}

func (s *SMA) Ready() bool {
	return s.ready
}

func (s *SMA) Reset() {
	s.prices.Reset()
	s.current = decimal.Zero
	s.ready = false
}
