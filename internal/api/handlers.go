package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"roulette_service/internal/apperr"
	"roulette_service/internal/auth"
	"roulette_service/internal/betting"
	"roulette_service/internal/chat"
	"roulette_service/internal/commission"
	"roulette_service/internal/round"
	"roulette_service/internal/wallet"
)

type RoundService interface {
	InitialHistory() []round.Outcome
	SetOverride(ctx context.Context, color round.Color) error
	State() round.State
}

type BettingService interface {
	Settle(ctx context.Context, userID string, w betting.Wager) (*betting.Result, error)
	RecentBets(ctx context.Context) ([]betting.PublicBet, error)
	GameHistory(ctx context.Context, userID string) ([]betting.GameLog, error)
}

type WalletService interface {
	GetBalance(ctx context.Context, userID string) (*wallet.BalanceView, error)
	Withdraw(ctx context.Context, userID string, amount decimal.Decimal) (*wallet.TransactionResponse, error)
	ProcessTransaction(ctx context.Context, req wallet.TransactionRequest) (*wallet.TransactionResponse, error)
	ChangeRole(ctx context.Context, userID string, role wallet.Role) error
	History(ctx context.Context, userID string) ([]wallet.FinancialTransaction, error)
}

type CommissionService interface {
	Dashboard(ctx context.Context, userID string) (*commission.Dashboard, error)
	Statement(ctx context.Context, recipientID string) ([]commission.Transaction, error)
}

type ChatService interface {
	Post(ctx context.Context, author chat.Author, text string) (*chat.Message, error)
	Recent(ctx context.Context) ([]chat.Message, error)
}

type AuthService interface {
	Register(ctx context.Context, username, password, affiliateCode string) (*wallet.Account, error)
	Login(ctx context.Context, username, password string) (*auth.LoginResult, error)
}

type Handler struct {
	rounds     RoundService
	bets       BettingService
	wallets    WalletService
	commission CommissionService
	chat       ChatService
	auth       AuthService
}

type registerRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	AffiliateCode string `json:"affiliateCode"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, apperr.KindInvalidRequest, err)
		return
	}
	a, err := h.auth.Register(c.Request.Context(), req.Username, req.Password, req.AffiliateCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "userId": a.UserID})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, apperr.KindInvalidRequest, err)
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"token":    res.Token,
		"userId":   res.UserID,
		"username": res.Username,
		"role":     res.Role,
		"balance":  res.Balance.StringFixed(2),
	})
}

func (h *Handler) initialDraw(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "history": h.rounds.InitialHistory()})
}

func (h *Handler) roundState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "state": h.rounds.State()})
}

func (h *Handler) placeBet(c *gin.Context) {
	var w betting.Wager
	if err := c.ShouldBindJSON(&w); err != nil {
		badRequest(c, apperr.KindInvalidWager, err)
		return
	}
	res, err := h.bets.Settle(c.Request.Context(), auth.Identity(c).UserID, w)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settlementResponse{Success: true, Result: res})
}

type settlementResponse struct {
	Success bool `json:"success"`
	*betting.Result
}

func (h *Handler) balance(c *gin.Context) {
	b, err := h.wallets.GetBalance(c.Request.Context(), auth.Identity(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "balance": b})
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) withdraw(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, apperr.KindInvalidRequest, err)
		return
	}
	res, err := h.wallets.Withdraw(c.Request.Context(), auth.Identity(c).UserID, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transaction": res})
}

func (h *Handler) gameHistory(c *gin.Context) {
	logs, err := h.bets.GameHistory(c.Request.Context(), auth.Identity(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "history": logs})
}

func (h *Handler) walletHistory(c *gin.Context) {
	txs, err := h.wallets.History(c.Request.Context(), auth.Identity(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": txs})
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) postChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, apperr.KindInvalidRequest, err)
		return
	}
	id := auth.Identity(c)
	m, err := h.chat.Post(c.Request.Context(), chat.Author{
		UserID:   id.UserID,
		Username: id.Username,
		Avatar:   id.Avatar,
		Role:     id.Role,
	}, req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "chat": []*chat.Message{m}})
}

func (h *Handler) liveFeed(c *gin.Context) {
	msgs, err := h.chat.Recent(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	bets, err := h.bets.RecentBets(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chat": msgs, "bets": bets})
}

func (h *Handler) affiliateDashboard(c *gin.Context) {
	d, err := h.commission.Dashboard(c.Request.Context(), auth.Identity(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "dashboard": d})
}

func (h *Handler) statement(c *gin.Context) {
	txs, err := h.commission.Statement(c.Request.Context(), auth.Identity(c).UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "statement": txs})
}

type setDrawRequest struct {
	Color round.Color `json:"color"`
}

func (h *Handler) setDraw(c *gin.Context) {
	var req setDrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, apperr.KindInvalidRequest, err)
		return
	}
	if err := h.rounds.SetOverride(c.Request.Context(), req.Color); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "nextColorOverride": req.Color})
}

func (h *Handler) adminTransaction(c *gin.Context) {
	var req wallet.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, apperr.KindInvalidRequest, err)
		return
	}
	req.InitiatedBy = auth.Identity(c).UserID
	res, err := h.wallets.ProcessTransaction(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transaction": res})
}

type roleRequest struct {
	Role wallet.Role `json:"role"`
}

func (h *Handler) changeRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, apperr.KindInvalidRequest, err)
		return
	}
	if err := h.wallets.ChangeRole(c.Request.Context(), c.Param("userId"), req.Role); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
