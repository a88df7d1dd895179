// Package rest is the HTTP command surface: order submission and
// management, account queries, market data reads, and the websocket
// upgrade endpoints. Prices cross this boundary as decimals only; the
// PriceScale registry does every tick conversion.
package rest

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradematch/api/feed"
	"tradematch/domain/account"
	"tradematch/domain/scale"
	"tradematch/service"
)

// Instrument is one tradable symbol as shown to clients.
type Instrument struct {
	Ticker      string          `json:"ticker"`
	TickSize    decimal.Decimal `json:"tickSize"`
	MinOrderQty int64           `json:"minOrderQty"`
}

type Server struct {
	log         *zap.Logger
	engine      *service.Engine
	accounts    *account.Manager
	scales      *scale.Registry
	ids         *service.OrderIDGenerator
	public      *feed.PublicHub
	private     *feed.PrivateHub
	instruments []Instrument
	upgrader    websocket.Upgrader
}

func NewServer(
	log *zap.Logger,
	engine *service.Engine,
	accounts *account.Manager,
	scales *scale.Registry,
	ids *service.OrderIDGenerator,
	public *feed.PublicHub,
	private *feed.PrivateHub,
	instruments []Instrument,
) *Server {
	return &Server{
		log:         log.Named("rest"),
		engine:      engine,
		accounts:    accounts,
		scales:      scales,
		ids:         ids,
		public:      public,
		private:     private,
		instruments: instruments,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

const accountKey = "account"

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), cors())

	api := r.Group("/api")
	{
		api.GET("/instruments", s.getInstruments)
		api.GET("/market/status", s.getMarketStatus)
		api.GET("/market/:ticker/book", s.getBook)

		authed := api.Group("", s.requireUser())
		{
			authed.POST("/order", s.submitOrder)
			authed.PUT("/order/:orderId", s.modifyOrder)
			authed.DELETE("/order/:orderId", s.cancelOrder)
			authed.GET("/account", s.getAccount)
			authed.GET("/orders", s.getOpenOrders)
			authed.GET("/fills", s.getFills)
		}

		admin := api.Group("", s.requireUser(), s.requireAdmin())
		{
			admin.POST("/script", s.runScript)
			admin.POST("/reset", s.reset)
		}
	}

	r.GET("/ws/public", s.publicFeed)
	r.GET("/ws/private", s.privateFeed)

	return r
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requireUser resolves the Bearer token to an account.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Invalid or missing API token"})
			return
		}
		acct, found := s.accounts.FindByToken(token)
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Invalid or missing API token"})
			return
		}
		c.Set(accountKey, acct)
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentAccount(c).Admin() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Admin privileges required"})
			return
		}
		c.Next()
	}
}

func currentAccount(c *gin.Context) *account.Account {
	return c.MustGet(accountKey).(*account.Account)
}

func (s *Server) getInstruments(c *gin.Context) {
	c.JSON(http.StatusOK, s.instruments)
}

func (s *Server) getMarketStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessionStatus": "OPEN"})
}

func (s *Server) getBook(c *gin.Context) {
	ticker, ok := s.supportedTicker(c.Param("ticker"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "UNKNOWN_TICKER"})
		return
	}
	view := s.engine.BookSnapshot()
	c.JSON(http.StatusOK, gin.H{"ticker": ticker, "bids": view.Bids, "asks": view.Asks})
}

func (s *Server) getAccount(c *gin.Context) {
	acct := currentAccount(c)
	positions := make([]gin.H, 0)
	for ticker, qty := range acct.SnapshotPositions() {
		positions = append(positions, gin.H{"ticker": ticker, "quantity": qty})
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":    acct.UserID(),
		"cash":      acct.Cash(),
		"positions": positions,
	})
}

func (s *Server) getOpenOrders(c *gin.Context) {
	acct := currentAccount(c)
	orders := make([]gin.H, 0)
	for _, snap := range s.engine.OpenOrdersForUser(acct.UserID()) {
		orders = append(orders, gin.H{
			"orderId":   snap.OrderID,
			"ticker":    snap.Instrument,
			"side":      snap.Side,
			"orderType": snap.Type,
			"price":     s.scales.Get(snap.Instrument).ToDisplayPrice(snap.Price),
			"quantity":  snap.Remaining,
		})
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) getFills(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.FillsForUser(currentAccount(c).UserID()))
}

func (s *Server) reset(c *gin.Context) {
	s.log.Info("reset requested", zap.String("user", currentAccount(c).UserID()))
	s.engine.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "Reset complete"})
}

func (s *Server) supportedTicker(raw string) (string, bool) {
	normalized := normalizeToken(raw)
	for _, inst := range s.instruments {
		if inst.Ticker == normalized {
			return normalized, true
		}
	}
	return "", false
}

func bearerToken(header string) (string, bool) {
	trimmed := strings.TrimSpace(header)
	if len(trimmed) < 7 || !strings.EqualFold(trimmed[:7], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(trimmed[7:])
	return token, token != ""
}
