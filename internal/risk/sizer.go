package risk

import "github.com/shopspring/decimal"

// DefaultRiskPercentage is the fraction of the wallet put at risk per order.
var DefaultRiskPercentage = decimal.RequireFromString("0.005")

const quantityPlaces = 8

// PositionSizer turns a price into an order quantity so that every order
// commits the same slice of the wallet.
type PositionSizer struct {
	walletSize     decimal.Decimal
	riskPercentage decimal.Decimal
}

func NewPositionSizer(walletSize decimal.Decimal) *PositionSizer {
	return &PositionSizer{walletSize: walletSize, riskPercentage: DefaultRiskPercentage}
}

func NewPositionSizerWithRisk(walletSize, riskPercentage decimal.Decimal) *PositionSizer {
	return &PositionSizer{walletSize: walletSize, riskPercentage: riskPercentage}
}

// CalculateQuantity returns wallet*risk/price rounded half-to-even to eight
// places. Non-positive prices size to zero.
func (p *PositionSizer) CalculateQuantity(price decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}
	return p.RiskAmount().Div(price).RoundBank(quantityPlaces)
}

func (p *PositionSizer) CalculatePositionValue(price decimal.Decimal) decimal.Decimal {
	return p.CalculateQuantity(price).Mul(price)
}

func (p *PositionSizer) RiskAmount() decimal.Decimal {
	return p.walletSize.Mul(p.riskPercentage)
}

func (p *PositionSizer) UpdateWalletSize(walletSize decimal.Decimal) {
	p.walletSize = walletSize
}

func (p *PositionSizer) UpdateRiskPercentage(riskPercentage decimal.Decimal) {
	p.riskPercentage = riskPercentage
}

func (p *PositionSizer) WalletSize() decimal.Decimal { return p.walletSize }

func (p *PositionSizer) RiskPercentage() decimal.Decimal { return p.riskPercentage }
