// Package domain implements the per-epoch deposit queue: fungible
// claim-token minting, one-time price-per-share recording at epoch
// processing, and redemption of past-epoch claim tokens into vault
// shares. Grounded on the teacher's repository-interface + sentinel
// error style (order/domain/order.go, derivatives/domain/derivatives.go).
package domain

import (
	"math/big"

	"github.com/wyfcoding/vaultengine/internal/vaulterrors"
)

// shareScale is the 10^18 fixed-point scale pricePerShare is quoted in.
var shareScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// SharesVault is the slice of the vault port the queue needs: minting
// vault shares against newly transferred collateral, and crediting
// shares to a redeemer. Defined here as a domain-level port so the
// queue never imports the vault aggregate directly.
type SharesVault interface {
	// Deposit transfers collateral into the vault and returns the
	// shares minted, using totalAssets measured before the transfer.
	Deposit(collateral *big.Int) (sharesMinted *big.Int, err error)
	// MintSharesTo credits shares to receiver without touching collateral.
	MintSharesTo(receiver string, shares *big.Int) error
}

// Queue is the per-vault deposit buffer.
type Queue struct {
	Address [AddressSize]byte
	Epoch   uint64
	Paused  bool
	MaxTVL  *big.Int

	CurrentTokenID        *big.Int
	TotalQueuedCollateral *big.Int

	pricePerShare  map[string]*big.Int
	claimBalances  map[string]map[string]*big.Int
	holderTokenIDs map[string]map[string]struct{}
}

// New returns an empty queue for epoch 0 of the given vault address.
func New(address [AddressSize]byte, maxTVL *big.Int) *Queue {
	q := &Queue{
		Address:               address,
		MaxTVL:                maxTVL,
		TotalQueuedCollateral: big.NewInt(0),
		pricePerShare:         make(map[string]*big.Int),
		claimBalances:         make(map[string]map[string]*big.Int),
		holderTokenIDs:        make(map[string]map[string]struct{}),
	}
	q.CurrentTokenID = EncodeClaimTokenID(address, 0)
	return q
}

func (q *Queue) balance(holder, tokenID string) *big.Int {
	if byHolder, ok := q.claimBalances[tokenID]; ok {
		if b, ok := byHolder[holder]; ok {
			return b
		}
	}
	return big.NewInt(0)
}

func (q *Queue) credit(holder, tokenID string, amount *big.Int) {
	if q.claimBalances[tokenID] == nil {
		q.claimBalances[tokenID] = make(map[string]*big.Int)
	}
	cur := q.balance(holder, tokenID)
	q.claimBalances[tokenID][holder] = new(big.Int).Add(cur, amount)
	if q.holderTokenIDs[holder] == nil {
		q.holderTokenIDs[holder] = make(map[string]struct{})
	}
	q.holderTokenIDs[holder][tokenID] = struct{}{}
}

func (q *Queue) debit(holder, tokenID string, amount *big.Int) error {
	cur := q.balance(holder, tokenID)
	if cur.Cmp(amount) < 0 {
		return vaulterrors.ErrValueExceedsMaximum
	}
	q.claimBalances[tokenID][holder] = new(big.Int).Sub(cur, amount)
	return nil
}

func (q *Queue) tokenSupply(tokenID string) *big.Int {
	total := big.NewInt(0)
	for _, bal := range q.claimBalances[tokenID] {
		total.Add(total, bal)
	}
	return total
}

// Deposit requires the queue is unpaused, amount > 0 and, when maxTVL is
// positive, totalQueuedCollateral+amount <= maxTVL (a maxTVL of zero
// imposes no cap). If the holder carries claim
// tokens from an already-processed epoch, those are swept into vault
// shares via RedeemMax before the new claim tokens are minted, so a
// holder never carries claim tokens for more than one unprocessed epoch.
func (q *Queue) Deposit(holder string, amount *big.Int, vault SharesVault) error {
	if q.Paused {
		return vaulterrors.ErrBadStatus
	}
	if amount.Sign() <= 0 {
		return vaulterrors.ErrValueBelowMinimum
	}
	projected := new(big.Int).Add(q.TotalQueuedCollateral, amount)
	if q.MaxTVL.Sign() > 0 && projected.Cmp(q.MaxTVL) > 0 {
		return vaulterrors.ErrMaxTVLExceeded
	}
	if _, err := q.RedeemMax(holder, holder, vault); err != nil {
		return err
	}
	q.credit(holder, q.CurrentTokenID.String(), amount)
	q.TotalQueuedCollateral.Add(q.TotalQueuedCollateral, amount)
	return nil
}

// Cancel burns amount claim tokens of the current epoch and returns the
// same amount of collateral; past-epoch claim tokens cannot be
// cancelled, only redeemed.
func (q *Queue) Cancel(holder string, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return vaulterrors.ErrValueBelowMinimum
	}
	if err := q.debit(holder, q.CurrentTokenID.String(), amount); err != nil {
		return err
	}
	q.TotalQueuedCollateral.Sub(q.TotalQueuedCollateral, amount)
	return nil
}

// ProcessDeposits transfers all queued collateral to the vault, mints
// shares against the pre-transfer totalAssets, records pricePerShare for
// the epoch just closed, and advances to a fresh claim-token id.
func (q *Queue) ProcessDeposits(vault SharesVault) (*big.Int, error) {
	currentID := q.CurrentTokenID.String()
	supply := q.tokenSupply(currentID)

	sharesMinted, err := vault.Deposit(q.TotalQueuedCollateral)
	if err != nil {
		return nil, err
	}

	pps := big.NewInt(0)
	if supply.Sign() != 0 {
		pps = new(big.Int).Div(new(big.Int).Mul(sharesMinted, shareScale), supply)
	}
	q.pricePerShare[currentID] = pps

	q.Epoch++
	q.CurrentTokenID = EncodeClaimTokenID(q.Address, q.Epoch)
	q.TotalQueuedCollateral = big.NewInt(0)
	return sharesMinted, nil
}

// Redeem burns the caller's claim-token balance for tokenID (which must
// not be the current epoch's) and credits the equivalent vault shares to
// receiver.
func (q *Queue) Redeem(tokenID *big.Int, holder, receiver string, vault SharesVault) (*big.Int, error) {
	if tokenID.Cmp(q.CurrentTokenID) == 0 {
		return nil, vaulterrors.ErrCurrentClaimTokenNotRedeemable
	}
	key := tokenID.String()
	bal := q.balance(holder, key)
	if bal.Sign() == 0 {
		return big.NewInt(0), nil
	}
	pps, ok := q.pricePerShare[key]
	if !ok {
		pps = big.NewInt(0)
	}
	shares := new(big.Int).Div(new(big.Int).Mul(bal, pps), shareScale)
	if err := q.debit(holder, key, bal); err != nil {
		return nil, err
	}
	if shares.Sign() > 0 {
		if err := vault.MintSharesTo(receiver, shares); err != nil {
			return nil, err
		}
	}
	return shares, nil
}

// RedeemMax redeems every claim token the holder owns except the
// current epoch's, returning the total shares credited.
func (q *Queue) RedeemMax(holder, receiver string, vault SharesVault) (*big.Int, error) {
	total := big.NewInt(0)
	ids, ok := q.holderTokenIDs[holder]
	if !ok {
		return total, nil
	}
	currentKey := q.CurrentTokenID.String()
	for key := range ids {
		if key == currentKey {
			continue
		}
		tokenID, ok := new(big.Int).SetString(key, 10)
		if !ok {
			continue
		}
		shares, err := q.Redeem(tokenID, holder, receiver, vault)
		if err != nil {
			return nil, err
		}
		total.Add(total, shares)
	}
	return total, nil
}

// PreviewUnredeemed returns the shares Redeem would yield for
// (tokenID, holder) without mutating state; 0 for the current epoch.
func (q *Queue) PreviewUnredeemed(tokenID *big.Int, holder string) *big.Int {
	if tokenID.Cmp(q.CurrentTokenID) == 0 {
		return big.NewInt(0)
	}
	key := tokenID.String()
	bal := q.balance(holder, key)
	pps, ok := q.pricePerShare[key]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Div(new(big.Int).Mul(bal, pps), shareScale)
}

// BalanceOf returns the holder's live claim-token balance for tokenID.
func (q *Queue) BalanceOf(tokenID *big.Int, holder string) *big.Int {
	return q.balance(holder, tokenID.String())
}
