package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type Symbol string
type AccountName string

const ( // on-chain token symbols, all 8 decimal places
	WAX   Symbol = "WAX"
	SWAX  Symbol = "SWAX"
	LSWAX Symbol = "LSWAX"
)

const WaxDigitMultiplier = 100000000 // multiplier from whole WAX to the non-decimal amounts used everywhere internally

// MaxAssetAmount is the largest representable token amount, 2^62 - 1.
const MaxAssetAmount = int64(4611686018427387903)

// Asset is a token quantity with 8 implied decimal places. Amount is the
// raw non-decimal value, so 1.00000000 WAX has Amount == 100000000.
type Asset struct {
	Amount int64  `json:"amount"`
	Symbol Symbol `json:"symbol"`
}

func NewAsset(amount int64, symbol Symbol) Asset {
	return Asset{Amount: amount, Symbol: symbol}
}

func NewWax(amount int64) Asset   { return Asset{Amount: amount, Symbol: WAX} }
func NewSwax(amount int64) Asset  { return Asset{Amount: amount, Symbol: SWAX} }
func NewLswax(amount int64) Asset { return Asset{Amount: amount, Symbol: LSWAX} }

func (a Asset) IsValid() bool {
	return a.Amount >= 0 && a.Amount <= MaxAssetAmount
}

func (a Asset) IsPositive() bool { return a.Amount > 0 }
func (a Asset) IsZero() bool     { return a.Amount == 0 }

// String renders the asset the way wallets display it, e.g. "10.50000000 WAX".
func (a Asset) String() string {
	whole := a.Amount / WaxDigitMultiplier
	frac := a.Amount % WaxDigitMultiplier
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%08d %s", whole, frac, a.Symbol)
}

// ParseAsset parses the wallet display format produced by Asset.String.
func ParseAsset(s string) (Asset, error) {
	parts := strings.Split(strings.TrimSpace(s), " ")
	if len(parts) != 2 {
		return Asset{}, errors.Errorf("malformed asset `%s`", s)
	}
	numeric := strings.SplitN(parts[0], ".", 2)
	whole, err := strconv.ParseInt(numeric[0], 10, 64)
	if err != nil {
		return Asset{}, errors.Wrapf(err, "malformed asset amount `%s`", parts[0])
	}
	frac := int64(0)
	if len(numeric) == 2 {
		if len(numeric[1]) != 8 {
			return Asset{}, errors.Errorf("asset `%s` must have 8 decimal places", s)
		}
		frac, err = strconv.ParseInt(numeric[1], 10, 64)
		if err != nil {
			return Asset{}, errors.Wrapf(err, "malformed asset fraction `%s`", numeric[1])
		}
	}
	amount := whole*WaxDigitMultiplier + frac
	out := Asset{Amount: amount, Symbol: Symbol(parts[1])}
	if !out.IsValid() {
		return Asset{}, errors.Errorf("asset `%s` out of range", s)
	}
	return out, nil
}
