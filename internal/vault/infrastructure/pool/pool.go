// Package pool implements domain.Pool as an in-process balance ledger
// keyed by (holder, tokenID). It stands in for the on-chain options
// pool the real Pool port would front; grounded on the teacher's
// in-memory balance-map style in collateral/domain (debit/credit
// helpers guarded by a mutex, same as a single-threaded ERC1155
// balance table would be).
package pool

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/wyfcoding/vaultengine/internal/fixedmath"
	"github.com/wyfcoding/vaultengine/internal/vault/domain"
)

// InMemory is a deterministic stand-in for the external options pool.
type InMemory struct {
	mu       sync.Mutex
	settings domain.PoolSettings
	balances map[string]map[string]*big.Int // tokenID -> holder -> amount
	spot     fixedmath.Fixed
	divest   map[bool]int64 // keyed by isCall
}

// New returns an empty pool quoting settings and a flat spot price.
func New(settings domain.PoolSettings, spot fixedmath.Fixed) *InMemory {
	return &InMemory{
		settings: settings,
		balances: make(map[string]map[string]*big.Int),
		spot:     spot,
		divest:   make(map[bool]int64),
	}
}

func key(tokenID *big.Int) string { return tokenID.String() }

// GetPoolSettings implements domain.Pool.
func (p *InMemory) GetPoolSettings() (domain.PoolSettings, error) {
	return p.settings, nil
}

// WriteFrom credits to's long-position balance for expiry/strike/isCall
// against from's free liquidity, recording only the net effect on to's
// short-as-collateral bookkeeping (the real pool's free/reserved
// liquidity split is out of scope here; the vault's own ledger mirrors
// what this call represents).
func (p *InMemory) WriteFrom(from, to string, expiry int64, strike fixedmath.Fixed, size domain.Amount, isCall bool) error {
	if size.Sign() < 0 {
		return fmt.Errorf("pool: negative size")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, short := domain.LongShortTokenIDs(isCall, expiry, strike)
	p.credit(to, short, size)
	return nil
}

// SetDivestmentTimestamp records ts as the divestment timestamp for the
// isCall side of the pool.
func (p *InMemory) SetDivestmentTimestamp(ts int64, isCall bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.divest[isCall] = ts
	return nil
}

// WithdrawReservedLiquidity is a no-op in this in-process stand-in: the
// vault's own CollateralBalance ledger already tracks what it would
// withdraw.
func (p *InMemory) WithdrawReservedLiquidity(amount domain.Amount, isCall bool) error {
	return nil
}

// GetPriceAfter64x64 returns the pool's flat spot quote.
func (p *InMemory) GetPriceAfter64x64(expiry int64) (fixedmath.Fixed, error) {
	return p.spot, nil
}

// BalanceOf returns holder's balance of tokenID.
func (p *InMemory) BalanceOf(holder string, tokenID domain.Amount) (domain.Amount, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balanceLocked(holder, tokenID), nil
}

// SafeTransferFrom moves amount of tokenID from from to to.
func (p *InMemory) SafeTransferFrom(from, to string, tokenID domain.Amount, amount domain.Amount) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	bal := p.balanceLocked(from, tokenID)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("pool: insufficient balance for transfer")
	}
	p.debitLocked(from, tokenID, amount)
	p.credit(to, tokenID, amount)
	return nil
}

func (p *InMemory) balanceLocked(holder string, tokenID *big.Int) *big.Int {
	byHolder, ok := p.balances[key(tokenID)]
	if !ok {
		return big.NewInt(0)
	}
	bal, ok := byHolder[holder]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(bal)
}

func (p *InMemory) debitLocked(holder string, tokenID, amount *big.Int) {
	byHolder := p.balances[key(tokenID)]
	cur := byHolder[holder]
	byHolder[holder] = new(big.Int).Sub(cur, amount)
}

func (p *InMemory) credit(holder string, tokenID, amount *big.Int) {
	byHolder, ok := p.balances[key(tokenID)]
	if !ok {
		byHolder = make(map[string]*big.Int)
		p.balances[key(tokenID)] = byHolder
	}
	cur, ok := byHolder[holder]
	if !ok {
		cur = big.NewInt(0)
	}
	byHolder[holder] = new(big.Int).Add(cur, amount)
}
