package domain

import (
	"math/big"

	"github.com/wyfcoding/vaultengine/internal/fixedmath"
)

// TokenType occupies the upper 8 bits of a long/short option token id
// (§6); the pool uses the same byte to distinguish free/reserved
// liquidity ids (see liqID). Layout below bit 248 is this vault's own
// choice — the source contract derives ids from a pool-side keccak
// digest it never exposes, so here the id is built deterministically
// from its own inputs instead: bits 247-184 hold the expiry (unix
// seconds), bits 183-56 hold the signed 64.64 strike, bits 55-0 are
// zero-padded.
type TokenType uint8

const (
	TokenLongCall TokenType = iota
	TokenShortCall
	TokenLongPut
	TokenShortPut
)

// EncodeOptionTokenID derives a long or short option token id from its
// (type, expiry, strike) triple.
func EncodeOptionTokenID(tt TokenType, expiry int64, strike fixedmath.Fixed) *big.Int {
	id := new(big.Int).Lsh(big.NewInt(int64(tt)), 248)

	expiryPart := new(big.Int).Lsh(big.NewInt(expiry), 184)
	id.Or(id, expiryPart)

	strikeBits := new(big.Int).And(strike.Bits(), new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)))
	strikePart := new(big.Int).Lsh(strikeBits, 56)
	id.Or(id, strikePart)

	return id
}

func longTokenType(isCall bool) TokenType {
	if isCall {
		return TokenLongCall
	}
	return TokenLongPut
}

func shortTokenType(isCall bool) TokenType {
	if isCall {
		return TokenShortCall
	}
	return TokenShortPut
}

// LongShortTokenIDs derives both legs of an option position for the
// given expiry/strike/side.
func LongShortTokenIDs(isCall bool, expiry int64, strike fixedmath.Fixed) (long, short *big.Int) {
	return EncodeOptionTokenID(longTokenType(isCall), expiry, strike),
		EncodeOptionTokenID(shortTokenType(isCall), expiry, strike)
}
