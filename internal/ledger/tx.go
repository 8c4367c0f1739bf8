// internal/ledger/tx.go
package ledger

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/syndtr/goleveldb/leveldb"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinfun/internal/curve"
)

// Record addresses one balance: the holdings of Owner in Asset.
type Record struct {
	Asset solana.PublicKey
	Owner solana.PublicKey
}

func (r Record) key() string { return balanceKey(r.Asset, r.Owner) }

// Delta is a signed change applied with AdjustBalance.
type Delta struct {
	amount uint64
	debit  bool
}

// Credit increases a balance by n.
func Credit(n uint64) Delta { return Delta{amount: n} }

// Debit decreases a balance by n.
func Debit(n uint64) Delta { return Delta{amount: n, debit: true} }

type delta struct {
	rec    Record
	credit uint64
	debit  uint64
}

func (d *delta) apply(base uint64) (uint64, error) {
	v := base + d.credit
	if v < base {
		return 0, fmt.Errorf("%w: %s/%s", ErrBalanceOverflow, d.rec.Asset, d.rec.Owner)
	}
	if v < d.debit {
		return 0, fmt.Errorf("%w: %s/%s has %d, needs %d", ErrInsufficientBalance, d.rec.Asset, d.rec.Owner, v, d.debit)
	}
	return v - d.debit, nil
}

// Tx is an all-or-nothing unit of ledger changes. Nothing it does is visible
// to other readers until Commit.
type Tx struct {
	store  *Store
	scope  solana.PublicKey
	unlock func()
	closed bool

	writes map[string][]byte
	deltas map[string]*delta
	used   map[string]usedMessage
}

// Scope returns the key the transaction is locked on.
func (tx *Tx) Scope() solana.PublicKey { return tx.scope }

func (tx *Tx) read(key []byte) ([]byte, error) {
	if data, ok := tx.writes[string(key)]; ok {
		return data, nil
	}
	return tx.store.get(key)
}

func (tx *Tx) put(key []byte, name string, v interface{}) error {
	if tx.closed {
		return ErrTxClosed
	}
	data, err := encodeAccount(name, v)
	if err != nil {
		return err
	}
	tx.writes[string(key)] = data
	return nil
}

// Global loads the config as seen by this transaction.
func (tx *Tx) Global() (curve.Global, error) {
	var g curve.Global
	data, err := tx.read(globalKey)
	if err != nil {
		return g, fmt.Errorf("load global config: %w", err)
	}
	return g, decodeAccount(accountGlobal, data, &g)
}

// PutGlobal stages a config write.
func (tx *Tx) PutGlobal(g curve.Global) error {
	return tx.put(globalKey, accountGlobal, &g)
}

// Curve loads a curve record as seen by this transaction.
func (tx *Tx) Curve(mint solana.PublicKey) (curve.State, error) {
	var st curve.State
	data, err := tx.read(curveKey(mint))
	if err != nil {
		return st, fmt.Errorf("load curve %s: %w", mint, err)
	}
	return st, decodeAccount(accountCurve, data, &st)
}

// PutCurve stages a curve record write.
func (tx *Tx) PutCurve(st curve.State) error {
	return tx.put(curveKey(st.Mint), accountCurve, &st)
}

// Metadata loads asset metadata as seen by this transaction.
func (tx *Tx) Metadata(mint solana.PublicKey) (Metadata, error) {
	var m Metadata
	data, err := tx.read(metadataKey(mint))
	if err != nil {
		return m, fmt.Errorf("load metadata %s: %w", mint, err)
	}
	return m, decodeAccount(accountMetadata, data, &m)
}

// PutMetadata stages a metadata write.
func (tx *Tx) PutMetadata(m Metadata) error {
	return tx.put(metadataKey(m.Mint), accountMetadata, &m)
}

// Balance returns the committed balance plus this transaction's pending changes.
func (tx *Tx) Balance(asset, owner solana.PublicKey) (uint64, error) {
	rec := Record{Asset: asset, Owner: owner}
	base, err := tx.store.balance(rec.key())
	if err != nil {
		return 0, err
	}
	d, ok := tx.deltas[rec.key()]
	if !ok {
		return base, nil
	}
	return d.apply(base)
}

func (tx *Tx) journal(rec Record) *delta {
	d, ok := tx.deltas[rec.key()]
	if !ok {
		d = &delta{rec: rec}
		tx.deltas[rec.key()] = d
	}
	return d
}

func (tx *Tx) credit(rec Record, amount uint64) error {
	d := tx.journal(rec)
	v := d.credit + amount
	if v < d.credit {
		return fmt.Errorf("%w: %s/%s", ErrBalanceOverflow, rec.Asset, rec.Owner)
	}
	d.credit = v
	return nil
}

func (tx *Tx) debit(rec Record, amount uint64) error {
	have, err := tx.Balance(rec.Asset, rec.Owner)
	if err != nil {
		return err
	}
	if have < amount {
		return fmt.Errorf("%w: %s/%s has %d, needs %d", ErrInsufficientBalance, rec.Asset, rec.Owner, have, amount)
	}
	// have >= amount bounds the journaled debit below the credited total.
	tx.journal(rec).debit += amount
	return nil
}

// Transfer moves amount of asset from one owner to another. authority must
// be the owner of the source record. A zero amount is a no-op.
func (tx *Tx) Transfer(asset, from, to solana.PublicKey, amount uint64, authority solana.PublicKey) error {
	if tx.closed {
		return ErrTxClosed
	}
	if !authority.Equals(from) {
		return fmt.Errorf("%w: %s cannot move funds of %s", ErrAuthorityInvalid, authority, from)
	}
	if amount == 0 {
		return nil
	}
	if err := tx.debit(Record{Asset: asset, Owner: from}, amount); err != nil {
		return fmt.Errorf("transfer %d of %s: %w", amount, asset, err)
	}
	if err := tx.credit(Record{Asset: asset, Owner: to}, amount); err != nil {
		return fmt.Errorf("transfer %d of %s: %w", amount, asset, err)
	}
	return nil
}

// AdjustBalance changes a balance directly, without a counterparty. Debits
// are only allowed on records owned by a keyless (off-curve) address, i.e.
// vaults the program itself controls.
func (tx *Tx) AdjustBalance(rec Record, d Delta) error {
	if tx.closed {
		return ErrTxClosed
	}
	if d.amount == 0 {
		return nil
	}
	if !d.debit {
		return tx.credit(rec, d.amount)
	}
	if solana.IsOnCurve(rec.Owner[:]) {
		return fmt.Errorf("%w: %s is not a program vault", ErrAuthorityInvalid, rec.Owner)
	}
	return tx.debit(rec, d.amount)
}

// UseMessage records that signer's signed msg has been acted on. Each message
// is accepted once; a second use fails with ErrMessageReplayed. The record is
// written only if the transaction commits.
func (tx *Tx) UseMessage(signer solana.PublicKey, msg []byte) error {
	if tx.closed {
		return ErrTxClosed
	}
	u := usedMessage{Signer: signer, Digest: sha256.Sum256(msg)}
	key := u.key()
	if _, ok := tx.used[key]; ok {
		return fmt.Errorf("%w: signer %s", ErrMessageReplayed, signer)
	}
	if _, err := tx.store.get([]byte(key)); err == nil {
		return fmt.Errorf("%w: signer %s", ErrMessageReplayed, signer)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	tx.used[key] = u
	return nil
}

// Commit applies every staged write and balance change atomically and
// releases the scope lock. On error nothing is applied.
func (tx *Tx) Commit() error {
	if tx.closed {
		return ErrTxClosed
	}
	defer tx.close()

	s := tx.store
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	batch := new(leveldb.Batch)
	for key, data := range tx.writes {
		batch.Put([]byte(key), data)
	}
	// другая транзакция могла использовать то же сообщение после UseMessage
	for key, u := range tx.used {
		seen, err := s.db.Has([]byte(key), nil)
		if err != nil {
			return err
		}
		if seen {
			return fmt.Errorf("%w: signer %s", ErrMessageReplayed, u.Signer)
		}
		data, err := encodeAccount(accountUsed, &u)
		if err != nil {
			return err
		}
		batch.Put([]byte(key), data)
	}
	for key, d := range tx.deltas {
		base, err := s.balance(key)
		if err != nil {
			return err
		}
		amount, err := d.apply(base)
		if err != nil {
			return err
		}
		data, err := encodeAccount(accountBalance, &balanceRecord{Asset: d.rec.Asset, Owner: d.rec.Owner, Amount: amount})
		if err != nil {
			return err
		}
		batch.Put([]byte(key), data)
	}

	if err := s.db.Write(batch, s.wo); err != nil {
		return fmt.Errorf("failed to commit ledger batch: %w", err)
	}
	s.logger.Debug("committed",
		zap.String("scope", tx.scope.String()),
		zap.Int("records", len(tx.writes)),
		zap.Int("balances", len(tx.deltas)))
	return nil
}

// Rollback discards the transaction. It is safe to call after Commit.
func (tx *Tx) Rollback() {
	if !tx.closed {
		tx.close()
	}
}

func (tx *Tx) close() {
	tx.closed = true
	tx.writes = nil
	tx.deltas = nil
	tx.used = nil
	tx.unlock()
}
