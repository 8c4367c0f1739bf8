// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"gopkg.in/yaml.v3"

	"github.com/rovshanmuradov/coinfun/internal/settlement"
)

// Wallet: именованный ключ трейдера.
type Wallet struct {
	Name       string
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey

	nonce atomic.Uint64
}

// NewWallet создаёт кошелёк из base58-encoded приватного ключа.
func NewWallet(name, privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		Name:       name,
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}, nil
}

// Generate создаёт кошелёк со случайным ключом.
func Generate(name string) (*Wallet, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &Wallet{Name: name, PrivateKey: key, PublicKey: key.PublicKey()}, nil
}

// LoadWallets загружает кошельки из CSV (name,private_key) или YAML,
// формат выбирается по расширению файла.
func LoadWallets(path string) (map[string]*Wallet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		return loadCSV(path)
	}
}

func loadCSV(path string) (map[string]*Wallet, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV file is empty or missing data")
	}

	entries := make([][2]string, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != 2 {
			continue
		}
		entries = append(entries, [2]string{record[0], record[1]})
	}
	return build(entries)
}

type walletFile struct {
	Wallets []struct {
		Name       string `yaml:"name"`
		PrivateKey string `yaml:"private_key"`
	} `yaml:"wallets"`
}

func loadYAML(path string) (map[string]*Wallet, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	var cfg walletFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	entries := make([][2]string, 0, len(cfg.Wallets))
	for _, w := range cfg.Wallets {
		entries = append(entries, [2]string{w.Name, w.PrivateKey})
	}
	return build(entries)
}

func build(entries [][2]string) (map[string]*Wallet, error) {
	wallets := make(map[string]*Wallet)
	for _, e := range entries {
		if e[0] == "" || e[1] == "" {
			continue
		}
		w, err := NewWallet(e[0], e[1])
		if err != nil {
			continue
		}
		wallets[e[0]] = w
	}
	if len(wallets) == 0 {
		return nil, fmt.Errorf("no valid wallets loaded")
	}
	return wallets, nil
}

// SaveWallets пишет кошельки в CSV в порядке имён.
func SaveWallets(path string, wallets map[string]*Wallet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create wallet file: %w", err)
	}
	defer file.Close()

	names := make([]string, 0, len(wallets))
	for name := range wallets {
		names = append(names, name)
	}
	sort.Strings(names)

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"name", "private_key"}); err != nil {
		return err
	}
	for _, name := range names {
		if err := writer.Write([]string{name, base58.Encode(wallets[name].PrivateKey)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// SignOrder подписывает торговый запрос ключом кошелька.
func (w *Wallet) SignOrder(req settlement.TradeRequest) (settlement.Order, error) {
	if !req.Trader.Equals(w.PublicKey) {
		return settlement.Order{}, fmt.Errorf("wallet %s cannot sign for trader %s", w.Name, req.Trader)
	}
	return settlement.SignOrder(w.PrivateKey, req)
}

// NextNonce возвращает новый nonce для подписи. Счётчик стартует от
// текущего времени в наносекундах, поэтому после перезапуска значения не повторяются.
func (w *Wallet) NextNonce() uint64 {
	w.nonce.CompareAndSwap(0, uint64(time.Now().UnixNano()))
	return w.nonce.Add(1)
}

// String возвращает публичный ключ кошелька.
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
