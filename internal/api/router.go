// Package api exposes the game over HTTP and the live event socket.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"

	"roulette_service/internal/auth"
	"roulette_service/internal/broadcast"
	"roulette_service/internal/round"
	"roulette_service/internal/wallet"
)

type Deps struct {
	Rounds      RoundService
	Bets        BettingService
	Wallets     WalletService
	Commission  CommissionService
	Chat        ChatService
	Auth        AuthService
	Tokens      *auth.Tokens
	Hub         *broadcast.Hub
	CORSOrigins []string
}

// NewRouter builds the gin engine with every route mounted, behind the CORS
// policy for the configured browser origins.
func NewRouter(d Deps) http.Handler {
	h := &Handler{
		rounds:     d.Rounds,
		bets:       d.Bets,
		wallets:    d.Wallets,
		commission: d.Commission,
		chat:       d.Chat,
		auth:       d.Auth,
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	snapshot := func() any {
		st := d.Rounds.State()
		return round.TimerUpdate{Phase: st.Phase, SecondsRemaining: st.SecondsRemaining}
	}
	r.GET("/ws", gin.WrapH(broadcast.NewWSHandler(d.Hub, snapshot, d.CORSOrigins)))

	public := r.Group("/api")
	public.POST("/auth/register", h.register)
	public.POST("/auth/login", h.login)
	public.GET("/initial-draw", h.initialDraw)
	public.GET("/round", h.roundState)
	public.GET("/live-feed", h.liveFeed)

	authed := r.Group("/api", auth.Middleware(d.Tokens))
	authed.POST("/bet", h.placeBet)
	authed.GET("/balance", h.balance)
	authed.POST("/withdraw", h.withdraw)
	authed.GET("/user/game-history", h.gameHistory)
	authed.GET("/user/wallet-history", h.walletHistory)
	authed.POST("/chat", h.postChat)
	authed.GET("/affiliate/dashboard", h.affiliateDashboard)
	authed.GET("/influencer/statement",
		auth.RequireRole(string(wallet.RoleInfluencer), string(wallet.RoleAdmin), string(wallet.RoleAffiliate)),
		h.statement)

	admin := authed.Group("/admin", auth.RequireRole(string(wallet.RoleAdmin)))
	admin.POST("/set-draw", h.setDraw)
	admin.POST("/transaction", h.adminTransaction)
	admin.PUT("/user/:userId", h.changeRole)

	return cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	})(r)
}
