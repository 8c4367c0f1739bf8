// internal/bot/bootstrap.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinfun/internal/admin"
	"github.com/rovshanmuradov/coinfun/internal/authority"
	"github.com/rovshanmuradov/coinfun/internal/ledger"
	"github.com/rovshanmuradov/coinfun/internal/wallet"
)

// Bootstrap prepares a local ledger: the operator wallet initializes the
// global config if it is missing, every wallet receives the configured
// airdrop, and each mint referenced by a task gets a curve created by the
// operator. Running it again on a seeded ledger only repeats the airdrop.
func (r *Runner) Bootstrap(ctx context.Context) error {
	logger := r.logger.Named("bootstrap")

	operator, err := r.operator(logger)
	if err != nil {
		return err
	}
	if err := r.ensureConfig(ctx, operator, logger); err != nil {
		return err
	}

	names := make([]string, 0, len(r.wallets))
	for name := range r.wallets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if r.cfg.Bootstrap.Airdrop == 0 {
			break
		}
		if err := r.admin.Airdrop(ctx, r.wallets[name].PublicKey, r.cfg.Bootstrap.Airdrop); err != nil {
			return fmt.Errorf("airdrop to %s: %w", name, err)
		}
	}

	created := 0
	for _, mint := range r.taskMints() {
		ok, err := r.ensureAsset(ctx, operator, mint)
		if err != nil {
			return err
		}
		if ok {
			created++
		}
	}

	logger.Info("Ledger bootstrapped",
		zap.String("operator", operator.PublicKey.String()),
		zap.Int("wallets", len(r.wallets)),
		zap.Int("assets_created", created))
	return nil
}

func (r *Runner) operator(logger *zap.Logger) (*wallet.Wallet, error) {
	name := r.cfg.Bootstrap.Operator
	if w, ok := r.wallets[name]; ok {
		return w, nil
	}
	w, err := wallet.Generate(name)
	if err != nil {
		return nil, err
	}
	r.wallets[name] = w
	logger.Warn("Operator wallet not found, generated a new one",
		zap.String("wallet", name),
		zap.String("address", w.PublicKey.String()))
	return w, nil
}

func (r *Runner) ensureConfig(ctx context.Context, operator *wallet.Wallet, logger *zap.Logger) error {
	if _, err := r.store.Global(); err == nil {
		logger.Debug("Global config already present")
		return nil
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return err
	}

	c := r.cfg.Curve
	params := admin.ConfigParams{
		Authority:                    operator.PublicKey,
		FeeRecipient:                 operator.PublicKey,
		InitialVirtualTokenReserves:  c.InitialVirtualTokenReserves,
		InitialVirtualNativeReserves: c.InitialVirtualNativeReserves,
		TotalSupply:                  c.TotalSupply,
		PlatformFeeBps:               c.PlatformFeeBps,
		ReserveFeeBps:                c.ReserveFeeBps,
		GraduationThreshold:          c.GraduationThreshold,
		Nonce:                        operator.NextNonce(),
	}
	cred, err := authority.SignMessage(operator.PrivateKey, admin.DomainInitialize, params)
	if err != nil {
		return err
	}
	_, err = r.admin.InitializeConfig(ctx, cred, params)
	return err
}

// ensureAsset creates a curve for mint unless one exists. The operator is
// funded with exactly the vault minimum before each creation.
func (r *Runner) ensureAsset(ctx context.Context, operator *wallet.Wallet, mint solana.PublicKey) (bool, error) {
	if _, err := r.store.Curve(mint); err == nil {
		return false, nil
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return false, err
	}

	if vaultMin := r.cfg.Curve.VaultMinBalance; vaultMin > 0 {
		if err := r.admin.Airdrop(ctx, operator.PublicKey, vaultMin); err != nil {
			return false, err
		}
	}

	symbol := strings.ToUpper(mint.String()[:4])
	req := admin.CreateAssetRequest{
		Mint:   mint,
		Name:   "Local " + symbol,
		Symbol: symbol,
		Nonce:  operator.NextNonce(),
	}
	cred, err := authority.SignMessage(operator.PrivateKey, admin.DomainCreateAsset, req)
	if err != nil {
		return false, err
	}
	if _, err := r.admin.CreateAsset(ctx, cred, req); err != nil {
		return false, fmt.Errorf("create asset %s: %w", mint, err)
	}
	return true, nil
}

func (r *Runner) taskMints() []solana.PublicKey {
	seen := make(map[solana.PublicKey]bool)
	var mints []solana.PublicKey
	for _, t := range r.tasks {
		if seen[t.Mint] {
			continue
		}
		seen[t.Mint] = true
		mints = append(mints, t.Mint)
	}
	return mints
}
