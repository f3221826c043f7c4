package mysql

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	auctiondomain "github.com/wyfcoding/vaultengine/internal/auction/domain"
	depositqueuedomain "github.com/wyfcoding/vaultengine/internal/depositqueue/domain"
	"github.com/wyfcoding/vaultengine/internal/vault/domain"
)

// Repository persists vault aggregates as single JSON-backed rows.
type Repository struct{ db *gorm.DB }

// New returns a gorm-backed vault repository.
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Save upserts the vault's full state, including its current auction
// and deposit queue.
func (r *Repository) Save(ctx context.Context, v *domain.Vault) error {
	vaultJSON, err := json.Marshal(v.ToSnapshot())
	if err != nil {
		return fmt.Errorf("marshal vault snapshot: %w", err)
	}

	var auctionJSON []byte
	if v.Auction != nil {
		auctionJSON, err = json.Marshal(v.Auction.ToSnapshot())
		if err != nil {
			return fmt.Errorf("marshal auction snapshot: %w", err)
		}
	}

	queueJSON, err := json.Marshal(v.Queue.ToSnapshot())
	if err != nil {
		return fmt.Errorf("marshal queue snapshot: %w", err)
	}

	record := VaultRecord{
		Address:     hex.EncodeToString(v.Address[:]),
		Epoch:       v.Epoch,
		VaultJSON:   string(vaultJSON),
		AuctionJSON: string(auctionJSON),
		QueueJSON:   string(queueJSON),
	}
	return r.db.WithContext(ctx).Save(&record).Error
}

// Load rehydrates a vault, its current auction (if any) and its deposit
// queue from storage.
func (r *Repository) Load(ctx context.Context, address [20]byte) (*domain.Vault, error) {
	var record VaultRecord
	err := r.db.WithContext(ctx).First(&record, "address = ?", hex.EncodeToString(address[:])).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load vault: %w", err)
	}

	var vaultSnap domain.Snapshot
	if err := json.Unmarshal([]byte(record.VaultJSON), &vaultSnap); err != nil {
		return nil, fmt.Errorf("unmarshal vault snapshot: %w", err)
	}
	v := domain.RestoreFromSnapshot(vaultSnap)

	var queueSnap depositqueuedomain.Snapshot
	if err := json.Unmarshal([]byte(record.QueueJSON), &queueSnap); err != nil {
		return nil, fmt.Errorf("unmarshal queue snapshot: %w", err)
	}
	v.Queue = depositqueuedomain.RestoreFromSnapshot(queueSnap)

	if record.AuctionJSON != "" {
		var auctionSnap auctiondomain.Snapshot
		if err := json.Unmarshal([]byte(record.AuctionJSON), &auctionSnap); err != nil {
			return nil, fmt.Errorf("unmarshal auction snapshot: %w", err)
		}
		v.Auction = auctiondomain.RestoreFromSnapshot(auctionSnap)
	}

	return v, nil
}
