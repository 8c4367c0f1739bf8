// internal/settlement/order.go
package settlement

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/coinfun/internal/authority"
	"github.com/rovshanmuradov/coinfun/internal/curve"
)

// TradeDomain tags signed trade messages.
const TradeDomain = "trade"

// TradeRequest is what a trader signs. For buys Amount is native units in
// and MinOut is the minimum token output; for sells Amount is tokens in and
// MinOut is the minimum net native output. A signed request settles at most
// once, so two otherwise equal trades need different nonces.
type TradeRequest struct {
	Mint   solana.PublicKey
	Trader solana.PublicKey
	Side   curve.Side
	Amount uint64
	MinOut uint64
	Nonce  uint64
}

// Order is a trade request together with the trader's credential.
type Order struct {
	Request    TradeRequest
	Credential authority.Credential
}

// SignOrder signs req with the trader's key.
func SignOrder(key solana.PrivateKey, req TradeRequest) (Order, error) {
	cred, err := authority.SignMessage(key, TradeDomain, req)
	if err != nil {
		return Order{}, err
	}
	return Order{Request: req, Credential: cred}, nil
}

// Message returns the canonical bytes the trader signed.
func (o Order) Message() ([]byte, error) {
	return authority.Message(TradeDomain, o.Request)
}

// Authenticate checks that the order was signed by the owner of the trading
// balance it spends. It does not check whether the order was already settled.
func (o Order) Authenticate() error {
	if err := o.Credential.RequireSigner(o.Request.Trader); err != nil {
		return err
	}
	msg, err := o.Message()
	if err != nil {
		return err
	}
	if err := o.Credential.Verify(msg); err != nil {
		return fmt.Errorf("%w: %v", authority.ErrUnauthorized, err)
	}
	return nil
}
