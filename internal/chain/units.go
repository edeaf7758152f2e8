package chain

import "math/big"

// weiPerEth is the 1e18 fixed-point scale shared by the contracts for both
// token amounts and USD-denominated profit figures.
var weiPerEth = new(big.Float).SetFloat64(1e18)

// ToWei converts a float amount to its 1e18 fixed-point representation,
// truncating sub-wei precision. Negative inputs clamp to zero: the contracts
// only accept unsigned quantities.
func ToWei(amount float64) *big.Int {
	if amount <= 0 {
		return new(big.Int)
	}
	wei, _ := new(big.Float).Mul(new(big.Float).SetFloat64(amount), weiPerEth).Int(nil)
	return wei
}

// FromWei converts a 1e18 fixed-point amount back to a float64.
func FromWei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEth).Float64()
	return f
}
