package strategy

import (
	"fmt"

	"github.com/rs/zerolog"
)

type Kind string

const (
	KindGrid    Kind = "grid"
	KindVWAPRSI Kind = "vwap_rsi"
)

type Config struct {
	Grid    GridConfig
	VWAPRSI VWAPRSIConfig
}

func Build(kind Kind, cfg Config, logger zerolog.Logger) (Strategy, error) {
	switch kind {
	case KindGrid:
		return NewGrid(cfg.Grid, logger), nil
	case KindVWAPRSI:
		return NewVWAPRSI(cfg.VWAPRSI, logger), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", kind)
	}
}
