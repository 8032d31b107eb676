package domain

import (
	"math/bits"
	"strconv"
)

// UnitsPerCoin é a escala usada só na apresentação (9 casas decimais).
const UnitsPerCoin = 1_000_000_000

// Money é uma contagem inteira de unidades indivisíveis. Nunca usa float.
type Money uint64

// Odds é o multiplicador inteiro aplicado ao valor apostado (payout = stake × odds).
type Odds uint64

// Add soma com checagem; estouro devolve ErrOverflow.
func (m Money) Add(o Money) (Money, error) {
	sum, carry := bits.Add64(uint64(m), uint64(o), 0)
	if carry != 0 {
		return 0, Errorf(CodeOverflow, "%d + %d exceeds 2^64-1", m, o)
	}
	return Money(sum), nil
}

// Mul multiplica pelas odds com checagem; estouro devolve ErrOverflow.
func (m Money) Mul(odds Odds) (Money, error) {
	hi, lo := bits.Mul64(uint64(m), uint64(odds))
	if hi != 0 {
		return 0, Errorf(CodeOverflow, "%d x %d exceeds 2^64-1", m, odds)
	}
	return Money(lo), nil
}

// String formata o valor com 9 casas decimais, ex: 1500000000 => "1.500000000".
// Usado apenas em logs.
func (m Money) String() string {
	whole := uint64(m) / UnitsPerCoin
	frac := uint64(m) % UnitsPerCoin
	fs := strconv.FormatUint(frac, 10)
	for len(fs) < 9 {
		fs = "0" + fs
	}
	return strconv.FormatUint(whole, 10) + "." + fs
}
