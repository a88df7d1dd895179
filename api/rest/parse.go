package rest

import (
	"fmt"
	"strings"

	"tradematch/domain/book"
)

// orderAttributes is the resolved order type and time-in-force after
// token normalization and defaulting.
type orderAttributes struct {
	Type book.OrderType
	TIF  book.TimeInForce
}

// resolveOrderAttributes maps order-type and TIF tokens, including the
// legacy combined aliases (GoodTillCancel, FillAndKill, ...), onto a
// concrete type and TIF. Market orders default to IOC, everything else
// to GTC.
func resolveOrderAttributes(orderTypeToken, tifToken string) (orderAttributes, error) {
	var (
		orderType = book.Limit
		tif       book.TimeInForce
		tifSet    bool
	)

	if strings.TrimSpace(orderTypeToken) != "" {
		switch normalizeToken(orderTypeToken) {
		case "MARKET":
			orderType = book.Market
		case "LIMIT":
			orderType = book.Limit
		case "STOPMARKET", "STOP":
			orderType = book.StopMarket
		case "STOPLIMIT":
			orderType = book.StopLimit
		case "GOODTILLCANCEL", "GTC":
			orderType = book.Limit
			tif, tifSet = book.GTC, true
		case "GOODFORDAY", "DAY":
			orderType = book.Limit
			tif, tifSet = book.Day, true
		case "FILLANDKILL", "FAK", "IOC":
			orderType = book.Limit
			tif, tifSet = book.IOC, true
		case "FILLORKILL", "FOK":
			orderType = book.Limit
			tif, tifSet = book.FOK, true
		default:
			return orderAttributes{}, fmt.Errorf("unsupported order type token %q", orderTypeToken)
		}
	}

	if strings.TrimSpace(tifToken) != "" {
		parsed, err := parseTimeInForceToken(tifToken)
		if err != nil {
			return orderAttributes{}, err
		}
		tif, tifSet = parsed, true
	}

	if !tifSet {
		if orderType == book.Market {
			tif = book.IOC
		} else {
			tif = book.GTC
		}
	}

	return orderAttributes{Type: orderType, TIF: tif}, nil
}

func parseTimeInForceToken(token string) (book.TimeInForce, error) {
	switch normalizeToken(token) {
	case "GTC", "GOODTILLCANCEL":
		return book.GTC, nil
	case "DAY", "GFD", "GOODFORDAY":
		return book.Day, nil
	case "IOC", "FAK", "FILLANDKILL":
		return book.IOC, nil
	case "FOK", "FILLORKILL":
		return book.FOK, nil
	default:
		return 0, fmt.Errorf("unsupported time-in-force token %q", token)
	}
}

// parseSideToken accepts anything starting with B or S.
func parseSideToken(token string) (book.Side, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return 0, fmt.Errorf("side token missing")
	}
	switch trimmed[0] {
	case 'B', 'b':
		return book.Buy, nil
	case 'S', 's':
		return book.Sell, nil
	default:
		return 0, fmt.Errorf("unknown side token %q", token)
	}
}

func normalizeToken(token string) string {
	replacer := strings.NewReplacer("_", "", "-", "", " ", "")
	return strings.ToUpper(replacer.Replace(token))
}
