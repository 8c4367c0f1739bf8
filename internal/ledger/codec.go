// internal/ledger/codec.go
package ledger

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const discriminatorSize = 8

// Account names used for record discriminators.
const (
	accountGlobal   = "Global"
	accountCurve    = "BondingCurve"
	accountBalance  = "TokenAccount"
	accountMetadata = "Metadata"
	accountUsed     = "UsedMessage"
)

// Metadata describes a created asset.
type Metadata struct {
	Mint     solana.PublicKey
	Name     string
	Symbol   string
	URI      string
	Decimals uint8
}

type balanceRecord struct {
	Asset  solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

// usedMessage marks a signed message that has already been acted on.
type usedMessage struct {
	Signer solana.PublicKey
	Digest [sha256.Size]byte
}

func (u usedMessage) key() string {
	k := make([]byte, 0, len(usedPrefix)+len(u.Signer)+len(u.Digest))
	k = append(k, usedPrefix...)
	k = append(k, u.Signer[:]...)
	k = append(k, u.Digest[:]...)
	return string(k)
}

// discriminator returns the first 8 bytes of sha256("account:<name>").
func discriminator(name string) [discriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [discriminatorSize]byte
	copy(d[:], sum[:discriminatorSize])
	return d
}

func encodeAccount(name string, v interface{}) ([]byte, error) {
	d := discriminator(name)
	buf := new(bytes.Buffer)
	buf.Write(d[:])
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func decodeAccount(name string, data []byte, v interface{}) error {
	if len(data) < discriminatorSize {
		return fmt.Errorf("%w: %s record is %d bytes", ErrCorruptRecord, name, len(data))
	}
	d := discriminator(name)
	if !bytes.Equal(data[:discriminatorSize], d[:]) {
		return fmt.Errorf("%w: %s discriminator mismatch", ErrCorruptRecord, name)
	}
	if err := bin.NewBorshDecoder(data[discriminatorSize:]).Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptRecord, name, err)
	}
	return nil
}

// Keys.
var (
	globalKey      = []byte("g")
	curvePrefix    = []byte("c/")
	balancePrefix  = []byte("b/")
	metadataPrefix = []byte("m/")
	usedPrefix     = []byte("u/")
)

func curveKey(mint solana.PublicKey) []byte {
	return append(append([]byte{}, curvePrefix...), mint[:]...)
}

func metadataKey(mint solana.PublicKey) []byte {
	return append(append([]byte{}, metadataPrefix...), mint[:]...)
}

func balanceKey(asset, owner solana.PublicKey) string {
	k := make([]byte, 0, len(balancePrefix)+len(asset)+len(owner))
	k = append(k, balancePrefix...)
	k = append(k, asset[:]...)
	k = append(k, owner[:]...)
	return string(k)
}

