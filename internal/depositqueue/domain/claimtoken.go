package domain

import (
	"encoding/binary"
	"math/big"
)

// AddressSize is the width, in bytes, of the queue address packed into
// the high bits of a claim-token id.
const AddressSize = 20

// EncodeClaimTokenID packs a 256-bit claim-token id: high 20 bytes =
// queue address, next 8 bytes = epoch, low 4 bytes zero. Grounded on the
// teacher's SnowflakeID bit-packing idiom (pkg/utils/utils.go), which
// composes a single integer id from shifted, concatenated fields.
func EncodeClaimTokenID(queueAddress [AddressSize]byte, epoch uint64) *big.Int {
	buf := make([]byte, 32)
	copy(buf[0:AddressSize], queueAddress[:])
	binary.BigEndian.PutUint64(buf[AddressSize:AddressSize+8], epoch)
	return new(big.Int).SetBytes(buf)
}

// ParseClaimTokenID recovers (address, epoch) from a claim-token id
// produced by EncodeClaimTokenID.
func ParseClaimTokenID(id *big.Int) (address [AddressSize]byte, epoch uint64) {
	raw := id.Bytes()
	full := make([]byte, 32)
	copy(full[32-len(raw):], raw)
	copy(address[:], full[0:AddressSize])
	epoch = binary.BigEndian.Uint64(full[AddressSize : AddressSize+8])
	return
}
