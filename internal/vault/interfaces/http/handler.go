// Package http exposes the vault application service over gin,
// following the teacher's order HTTP handler (RegisterRoutes on a
// *gin.RouterGroup, one handler method per route, a common JSON
// envelope for success/error responses).
package http

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/vaultengine/internal/fixedmath"
	orderbook "github.com/wyfcoding/vaultengine/internal/orderbook/domain"
	"github.com/wyfcoding/vaultengine/internal/vault/application"
	"github.com/wyfcoding/vaultengine/pkg/response"
)

func parseFixed(s string) (fixedmath.Fixed, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fixedmath.Zero, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return fixedmath.FromDecimal(d), nil
}

// Handler serves keeper commands and the vault's read views.
type Handler struct {
	app *application.VaultAppService
}

// New returns an HTTP handler over app.
func New(app *application.VaultAppService) *Handler {
	return &Handler{app: app}
}

// RegisterRoutes mounts every vault route under router.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/vaults/:address")
	{
		api.POST("/initialize-auction", h.InitializeAuction)
		api.POST("/initialize-epoch", h.InitializeEpoch)
		api.POST("/process-auction", h.ProcessAuction)
		api.POST("/finalize-auction", h.FinalizeAuction)
		api.POST("/deposits", h.Deposit)
		api.POST("/deposits/cancel", h.CancelDeposit)
		api.POST("/withdrawals", h.Withdraw)
		api.POST("/auction-withdrawals", h.WithdrawFromAuction)
		api.POST("/auction-withdrawals/preview", h.PreviewWithdrawFromAuction)
		api.POST("/orders", h.PlaceLimitOrder)
		api.POST("/market-orders", h.PlaceMarketOrder)
		api.DELETE("/orders/:id", h.CancelLimitOrder)
		api.POST("/redeem", h.Redeem)
		api.POST("/redeem-max", h.RedeemMax)
		api.GET("/preview-unredeemed/:epoch/:holder", h.PreviewUnredeemed)

		api.GET("/auction", h.GetAuction)
		api.GET("/orders/:id", h.GetOrderByID)
		api.GET("/status", h.GetStatus)
		api.GET("/total-contracts", h.GetTotalContracts)
		api.GET("/total-contracts-sold", h.GetTotalContractsSold)
		api.GET("/is-cancelled", h.IsCancelled)
		api.GET("/is-finalized", h.IsFinalized)
		api.GET("/total-collateral", h.TotalCollateral)
		api.GET("/total-short-as-collateral", h.TotalShortAsCollateral)
		api.GET("/total-short-as-contracts", h.TotalShortAsContracts)
		api.GET("/total-reserves", h.TotalReserves)
		api.GET("/epoch", h.GetEpoch)
		api.GET("/option", h.GetOption)
		api.GET("/epochs-by-buyer/:buyer", h.GetEpochsByBuyer)
	}
}

func address(c *gin.Context) ([20]byte, bool) {
	var addr [20]byte
	raw, err := hex.DecodeString(c.Param("address"))
	if err != nil || len(raw) != 20 {
		response.ErrorWithStatus(c, http.StatusBadRequest, "address must be a 20-byte hex string")
		return addr, false
	}
	copy(addr[:], raw)
	return addr, true
}

func orderID(c *gin.Context) (orderbook.ID, bool) {
	raw, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "id must be a non-negative integer")
		return 0, false
	}
	return orderbook.ID(raw), true
}

// InitializeAuction runs the keeper's weekly InitializeAuction step.
func (h *Handler) InitializeAuction(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	var req struct {
		Now int64 `json:"now" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.app.InitializeAuction(c.Request.Context(), addr, req.Now); err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"status": "initialized"})
}

// InitializeEpoch runs the keeper's weekly InitializeEpoch step.
func (h *Handler) InitializeEpoch(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	var req struct {
		Now          int64  `json:"now" binding:"required"`
		OffsetStrike string `json:"offset_strike" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := parseFixed(req.OffsetStrike)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "offset_strike: "+err.Error())
		return
	}
	if err := h.app.InitializeEpoch(c.Request.Context(), addr, req.Now, offset); err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"status": "initialized"})
}

// ProcessAuction runs the keeper's weekly ProcessAuction step.
func (h *Handler) ProcessAuction(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	var req struct {
		Now int64 `json:"now" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.app.ProcessAuction(c.Request.Context(), addr, req.Now); err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"status": "processed"})
}

// Deposit enqueues a participant's collateral for the next epoch.
func (h *Handler) Deposit(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	var req struct {
		Holder string `json:"holder" binding:"required"`
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		response.ErrorWithStatus(c, http.StatusBadRequest, "amount must be a base-10 integer")
		return
	}
	if err := h.app.Deposit(c.Request.Context(), addr, req.Holder, amount); err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"status": "queued"})
}

// Withdraw burns a participant's shares and returns the net legs owed.
func (h *Handler) Withdraw(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	var req struct {
		Now         int64  `json:"now" binding:"required"`
		Owner       string `json:"owner" binding:"required"`
		Receiver    string `json:"receiver" binding:"required"`
		AssetAmount string `json:"asset_amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	assetAmount, ok := new(big.Int).SetString(req.AssetAmount, 10)
	if !ok {
		response.ErrorWithStatus(c, http.StatusBadRequest, "asset_amount must be a base-10 integer")
		return
	}
	residualCollateral, residualShort, feeCollateral, feeShort, err := h.app.Withdraw(c.Request.Context(), addr, req.Now, req.Owner, req.Receiver, assetAmount)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{
		"residual_collateral": residualCollateral.String(),
		"residual_short":      residualShort.String(),
		"fee_collateral":      feeCollateral.String(),
		"fee_short":           feeShort.String(),
	})
}

// PlaceLimitOrder submits a resting bid against the current auction.
func (h *Handler) PlaceLimitOrder(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	var req struct {
		Now   int64  `json:"now" binding:"required"`
		Price string `json:"price" binding:"required"`
		Size  string `json:"size" binding:"required"`
		Buyer string `json:"buyer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	price, err := parseFixed(req.Price)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "price: "+err.Error())
		return
	}
	size, ok := new(big.Int).SetString(req.Size, 10)
	if !ok {
		response.ErrorWithStatus(c, http.StatusBadRequest, "size must be a base-10 integer")
		return
	}
	id, filled, err := h.app.PlaceLimitOrder(c.Request.Context(), addr, req.Now, price, size, req.Buyer)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"order_id": id, "filled": filled.String()})
}

// PlaceMarketOrder submits an immediate-fill bid against the current
// auction at the live curve price.
func (h *Handler) PlaceMarketOrder(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	var req struct {
		Now     int64  `json:"now" binding:"required"`
		Size    string `json:"size" binding:"required"`
		MaxCost string `json:"max_cost" binding:"required"`
		Buyer   string `json:"buyer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	size, ok := new(big.Int).SetString(req.Size, 10)
	if !ok {
		response.ErrorWithStatus(c, http.StatusBadRequest, "size must be a base-10 integer")
		return
	}
	maxCost, ok := new(big.Int).SetString(req.MaxCost, 10)
	if !ok {
		response.ErrorWithStatus(c, http.StatusBadRequest, "max_cost must be a base-10 integer")
		return
	}
	id, price, cost, err := h.app.PlaceMarketOrder(c.Request.Context(), addr, req.Now, size, maxCost, req.Buyer)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"order_id": id, "price": price.Decimal().String(), "cost": cost.String()})
}

// FinalizeAuction runs the "callable by anyone" rescue/finalize
// transition against the current auction.
func (h *Handler) FinalizeAuction(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	var req struct {
		Now int64 `json:"now" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.app.FinalizeAuction(c.Request.Context(), addr, req.Now); err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"status": "finalized"})
}

// WithdrawFromAuction settles every order the caller holds against the
// current auction and credits the refund/fill owed.
func (h *Handler) WithdrawFromAuction(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	var req struct {
		Now   int64  `json:"now" binding:"required"`
		Buyer string `json:"buyer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	refund, fill, err := h.app.WithdrawFromAuction(c.Request.Context(), addr, req.Now, req.Buyer)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"refund": refund.String(), "fill": fill.String()})
}

// PreviewWithdrawFromAuction computes the same result as
// WithdrawFromAuction without mutating the order book.
func (h *Handler) PreviewWithdrawFromAuction(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	var req struct {
		Now   int64  `json:"now" binding:"required"`
		Buyer string `json:"buyer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	refund, fill, err := h.app.PreviewWithdrawFromAuction(c.Request.Context(), addr, req.Now, req.Buyer)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"refund": refund.String(), "fill": fill.String()})
}

// CancelDeposit burns the caller's current-epoch claim tokens and
// removes the same amount from the queue's total queued collateral.
func (h *Handler) CancelDeposit(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	var req struct {
		Holder string `json:"holder" binding:"required"`
		Amount string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		response.ErrorWithStatus(c, http.StatusBadRequest, "amount must be a base-10 integer")
		return
	}
	if err := h.app.CancelDeposit(c.Request.Context(), addr, req.Holder, amount); err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"status": "cancelled"})
}

// Redeem burns the caller's claim-token balance for a past epoch and
// credits the equivalent vault shares to the receiver.
func (h *Handler) Redeem(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	var req struct {
		Epoch    uint64 `json:"epoch"`
		Holder   string `json:"holder" binding:"required"`
		Receiver string `json:"receiver" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	shares, err := h.app.Redeem(c.Request.Context(), addr, req.Epoch, req.Holder, req.Receiver)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"shares": shares.String()})
}

// RedeemMax redeems every past-epoch claim token the caller holds.
func (h *Handler) RedeemMax(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	var req struct {
		Holder   string `json:"holder" binding:"required"`
		Receiver string `json:"receiver" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	shares, err := h.app.RedeemMax(c.Request.Context(), addr, req.Holder, req.Receiver)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"shares": shares.String()})
}

// PreviewUnredeemed returns the shares Redeem would yield for the
// holder's claim-token balance at epoch, without mutating state.
func (h *Handler) PreviewUnredeemed(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	epoch, err := strconv.ParseUint(c.Param("epoch"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "epoch must be a non-negative integer")
		return
	}
	shares, err := h.app.PreviewUnredeemed(c.Request.Context(), addr, epoch, c.Param("holder"))
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"shares": shares.String()})
}

// CancelLimitOrder withdraws a resting bid.
func (h *Handler) CancelLimitOrder(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req struct {
		Now   int64  `json:"now" binding:"required"`
		Buyer string `json:"buyer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.app.CancelLimitOrder(c.Request.Context(), addr, req.Now, id, req.Buyer); err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"status": "cancelled"})
}

// GetAuction returns the vault's current auction.
func (h *Handler) GetAuction(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	auction, err := h.app.GetAuction(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, auction)
}

// GetOrderByID returns a single resting order from the current auction.
func (h *Handler) GetOrderByID(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}
	order, err := h.app.GetOrderByID(c.Request.Context(), addr, id)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, order)
}

// GetStatus returns the current auction's status.
func (h *Handler) GetStatus(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	status, err := h.app.GetStatus(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"status": status.String()})
}

// GetTotalContracts returns the current auction's size.
func (h *Handler) GetTotalContracts(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	total, err := h.app.GetTotalContracts(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"total_contracts": total.String()})
}

// GetTotalContractsSold returns how many contracts the current auction
// has sold.
func (h *Handler) GetTotalContractsSold(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	sold, err := h.app.GetTotalContractsSold(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"total_contracts_sold": sold.String()})
}

// IsCancelled reports whether the current auction was cancelled.
func (h *Handler) IsCancelled(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	cancelled, err := h.app.IsCancelled(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"is_cancelled": cancelled})
}

// IsFinalized reports whether the current auction was finalized.
func (h *Handler) IsFinalized(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	finalized, err := h.app.IsFinalized(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"is_finalized": finalized})
}

// TotalCollateral returns the vault's current collateral balance, net
// of reserves.
func (h *Handler) TotalCollateral(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	total, err := h.app.TotalCollateral(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"total_collateral": total.String()})
}

// TotalShortAsCollateral values the vault's open short position.
func (h *Handler) TotalShortAsCollateral(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	total, err := h.app.TotalShortAsCollateral(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"total_short_as_collateral": total.String()})
}

// TotalShortAsContracts returns the vault's open short position size.
func (h *Handler) TotalShortAsContracts(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	total, err := h.app.TotalShortAsContracts(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"total_short_as_contracts": total.String()})
}

// TotalReserves returns collateral reserved against pending withdrawals.
func (h *Handler) TotalReserves(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	total, err := h.app.TotalReserves(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"total_reserves": total.String()})
}

// GetEpoch returns the vault's current epoch number.
func (h *Handler) GetEpoch(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	epoch, err := h.app.GetEpoch(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"epoch": epoch})
}

// GetOption returns the vault's current option parameters.
func (h *Handler) GetOption(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	option, err := h.app.GetOption(c.Request.Context(), addr)
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, option)
}

// GetEpochsByBuyer returns the epochs in which buyer holds an
// unredeemed deposit-queue balance.
func (h *Handler) GetEpochsByBuyer(c *gin.Context) {
	addr, ok := address(c)
	if !ok {
		return
	}
	epochs, err := h.app.GetEpochsByBuyer(c.Request.Context(), addr, c.Param("buyer"))
	if err != nil {
		response.Error(c, err.Error())
		return
	}
	response.Success(c, gin.H{"epochs": epochs})
}
