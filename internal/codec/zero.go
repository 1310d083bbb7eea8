package codec

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// The ledger returns zero values for unset fields and removed list entries.

func IsZeroAddress(a common.Address) bool {
	return a == (common.Address{})
}

func IsZeroHash(h common.Hash) bool {
	return h == (common.Hash{})
}

func IsZeroBig(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}

func IsZeroName(b [NameSize]byte) bool {
	return b == [NameSize]byte{}
}

// NonZero returns v, or nil when v is the zero sentinel.
func NonZero(v *big.Int) *big.Int {
	if IsZeroBig(v) {
		return nil
	}
	return v
}
