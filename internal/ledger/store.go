// internal/ledger/store.go
package ledger

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinfun/internal/curve"
)

// NativeAsset identifies balances held in the native currency.
var NativeAsset = solana.SolMint

// Store is the account ledger: config, curve records, metadata and balances.
//
// Writes only happen through a Tx. A Tx holds the lock of its scope (usually
// a mint) for its whole life, so two transactions against the same curve are
// never open at once. Balance changes are journaled as deltas and applied
// against the current stored balance at commit time, which lets unrelated
// curves credit the shared reserve concurrently without losing updates.
type Store struct {
	db     *leveldb.DB
	logger *zap.Logger
	wo     *opt.WriteOptions

	commitMu sync.Mutex
	scopes   sync.Map // string -> *sync.Mutex
}

// Open opens (or creates) a durable ledger at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := leveldb.OpenFile(filepath.Clean(path), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger at %s: %w", path, err)
	}
	return newStore(db, logger, &opt.WriteOptions{Sync: true}), nil
}

// OpenMemory returns a ledger that lives only in memory.
func OpenMemory(logger *zap.Logger) (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory ledger: %w", err)
	}
	return newStore(db, logger, nil), nil
}

func newStore(db *leveldb.DB, logger *zap.Logger, wo *opt.WriteOptions) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.Named("ledger"), wo: wo}
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key []byte) ([]byte, error) {
	data, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

// Global loads the singleton config.
func (s *Store) Global() (curve.Global, error) {
	var g curve.Global
	data, err := s.get(globalKey)
	if err != nil {
		return g, fmt.Errorf("load global config: %w", err)
	}
	return g, decodeAccount(accountGlobal, data, &g)
}

// Curve loads the curve record of mint.
func (s *Store) Curve(mint solana.PublicKey) (curve.State, error) {
	var st curve.State
	data, err := s.get(curveKey(mint))
	if err != nil {
		return st, fmt.Errorf("load curve %s: %w", mint, err)
	}
	return st, decodeAccount(accountCurve, data, &st)
}

// Curves returns every curve record in key order.
func (s *Store) Curves() ([]curve.State, error) {
	iter := s.db.NewIterator(util.BytesPrefix(curvePrefix), nil)
	defer iter.Release()

	var out []curve.State
	for iter.Next() {
		var st curve.State
		if err := decodeAccount(accountCurve, iter.Value(), &st); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, iter.Error()
}

// Metadata loads the metadata registered for mint.
func (s *Store) Metadata(mint solana.PublicKey) (Metadata, error) {
	var m Metadata
	data, err := s.get(metadataKey(mint))
	if err != nil {
		return m, fmt.Errorf("load metadata %s: %w", mint, err)
	}
	return m, decodeAccount(accountMetadata, data, &m)
}

// Balance returns the committed balance of owner in asset. Missing records read as zero.
func (s *Store) Balance(asset, owner solana.PublicKey) (uint64, error) {
	return s.balance(balanceKey(asset, owner))
}

func (s *Store) balance(key string) (uint64, error) {
	data, err := s.get([]byte(key))
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var rec balanceRecord
	if err := decodeAccount(accountBalance, data, &rec); err != nil {
		return 0, err
	}
	return rec.Amount, nil
}

// Begin opens a transaction holding the lock of scope. It does not wait:
// if the scope is held, ErrCurveBusy is returned.
func (s *Store) Begin(scope solana.PublicKey) (*Tx, error) {
	v, _ := s.scopes.LoadOrStore(scope.String(), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, fmt.Errorf("%w: %s", ErrCurveBusy, scope)
	}
	return &Tx{
		store:  s,
		scope:  scope,
		unlock: mu.Unlock,
		writes: make(map[string][]byte),
		deltas: make(map[string]*delta),
		used:   make(map[string]usedMessage),
	}, nil
}
