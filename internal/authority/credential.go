// internal/authority/credential.go
package authority

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidSignature = errors.New("invalid signature")
)

const messagePrefix = "coinfun:"

// Message is the canonical byte string a credential signs: a domain tag
// followed by the Borsh encoding of v.
func Message(domain string, v interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteString(messagePrefix)
	buf.WriteString(domain)
	buf.WriteByte(0)
	if err := bin.NewBorshEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", domain, err)
	}
	return buf.Bytes(), nil
}

// Credential proves that Signer approved a message.
type Credential struct {
	Signer    solana.PublicKey
	Signature solana.Signature
}

// Sign produces a credential for msg.
func Sign(key solana.PrivateKey, msg []byte) (Credential, error) {
	sig, err := key.Sign(msg)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to sign message: %w", err)
	}
	return Credential{Signer: key.PublicKey(), Signature: sig}, nil
}

// SignMessage builds the canonical message for v and signs it.
func SignMessage(key solana.PrivateKey, domain string, v interface{}) (Credential, error) {
	msg, err := Message(domain, v)
	if err != nil {
		return Credential{}, err
	}
	return Sign(key, msg)
}

// Verify checks the signature against msg.
func (c Credential) Verify(msg []byte) error {
	if !c.Signature.Verify(c.Signer, msg) {
		return fmt.Errorf("%w from %s", ErrInvalidSignature, c.Signer)
	}
	return nil
}

// VerifyMessage checks that c signs the canonical message for v.
func (c Credential) VerifyMessage(domain string, v interface{}) error {
	msg, err := Message(domain, v)
	if err != nil {
		return err
	}
	return c.Verify(msg)
}

// RequireSigner fails with ErrUnauthorized unless the credential was issued
// by expected.
func (c Credential) RequireSigner(expected solana.PublicKey) error {
	if !c.Signer.Equals(expected) {
		return fmt.Errorf("%w: signer %s, expected %s", ErrUnauthorized, c.Signer, expected)
	}
	return nil
}
