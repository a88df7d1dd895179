package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradematch/domain/book"
	"tradematch/service"
)

type orderPayload struct {
	OrderID         string           `json:"orderId"` // client-assigned, echoed back
	Ticker          string           `json:"ticker"`
	OrderType       string           `json:"orderType"`
	TimeInForce     string           `json:"timeInForce"`
	Side            string           `json:"side"`
	Price           *decimal.Decimal `json:"price"`
	TriggerPrice    *decimal.Decimal `json:"triggerPrice"`
	Quantity        *int64           `json:"quantity"`
	PostOnly        *bool            `json:"postOnly"`
	DisplayQuantity *int64           `json:"displayQuantity"`
}

func (s *Server) submitOrder(c *gin.Context) {
	acct := currentAccount(c)

	var payload orderPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid order payload"})
		return
	}

	orderID := s.ids.NextID()
	clientOrderID := strings.TrimSpace(payload.OrderID)

	order, err := s.toDomainOrder(acct.UserID(), payload, orderID)
	if err == nil {
		_, err = s.engine.ProcessOrder(order)
	}
	if err != nil {
		s.log.Warn("order rejected",
			zap.Uint64("orderId", orderID),
			zap.String("user", acct.UserID()),
			zap.Error(err))
		s.private.SendReject(acct.UserID(), orderID, clientOrderID, err.Error())
		body := gin.H{"status": "error", "message": err.Error(), "orderId": orderID}
		if clientOrderID != "" {
			body["clientOrderId"] = clientOrderID
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}

	s.private.SendAck(acct.UserID(), orderID, clientOrderID)
	body := gin.H{"status": "Order received", "orderId": orderID}
	if clientOrderID != "" {
		body["clientOrderId"] = clientOrderID
	}
	c.JSON(http.StatusOK, body)
}

type modifyPayload struct {
	Side     string           `json:"side"`
	Price    *decimal.Decimal `json:"price"`
	Quantity *int64           `json:"quantity"`
}

func (s *Server) modifyOrder(c *gin.Context) {
	acct := currentAccount(c)

	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "INVALID_ORDER_ID"})
		return
	}

	var payload modifyPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid modify payload"})
		return
	}
	side, err := parseSideToken(payload.Side)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	if payload.Price == nil || payload.Quantity == nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "price and quantity are required"})
		return
	}

	price, err := s.scales.Get(s.engine.Instrument()).ToBookPrice(*payload.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	_, err = s.engine.ModifyOrder(acct.UserID(), book.Modify{
		OrderID:  orderID,
		Side:     side,
		Price:    price,
		Quantity: *payload.Quantity,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "Modified", "orderId": orderID})
	case errors.Is(err, service.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
	}
}

func (s *Server) cancelOrder(c *gin.Context) {
	acct := currentAccount(c)

	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "INVALID_ORDER_ID"})
		return
	}

	if err := s.engine.CancelOrder(acct.UserID(), orderID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": err.Error()})
		return
	}

	s.private.SendCanceled(acct.UserID(), orderID)
	c.JSON(http.StatusOK, gin.H{"status": "Canceled", "orderId": orderID})
}

// toDomainOrder applies the boundary defaulting rules and converts
// display prices to ticks before constructing the domain order.
func (s *Server) toDomainOrder(userID string, payload orderPayload, orderID uint64) (*book.Order, error) {
	attrs, err := resolveOrderAttributes(payload.OrderType, payload.TimeInForce)
	if err != nil {
		return nil, err
	}
	side, err := parseSideToken(payload.Side)
	if err != nil {
		return nil, err
	}
	if payload.Quantity == nil || *payload.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	quantity := *payload.Quantity

	ticker := normalizeToken(payload.Ticker)
	if ticker == "" {
		ticker = s.engine.Instrument()
	}
	sc := s.scales.Get(ticker)

	price := decimal.Zero
	if payload.Price != nil {
		price = *payload.Price
	}
	trigger := price
	if payload.TriggerPrice != nil {
		trigger = *payload.TriggerPrice
	}

	var bookPrice int64
	if attrs.Type != book.Market {
		if bookPrice, err = sc.ToBookPrice(price); err != nil {
			return nil, err
		}
	}
	bookTrigger := bookPrice
	if attrs.Type == book.StopMarket || attrs.Type == book.StopLimit {
		if bookTrigger, err = sc.ToBookPrice(trigger); err != nil {
			return nil, err
		}
	}

	postOnly := payload.PostOnly != nil && *payload.PostOnly
	displayQty := quantity
	if payload.DisplayQuantity != nil {
		displayQty = *payload.DisplayQuantity
	}

	return book.NewOrder(
		orderID, userID, ticker,
		side, attrs.Type, attrs.TIF,
		quantity, bookPrice, bookTrigger,
		postOnly, displayQty,
	)
}
