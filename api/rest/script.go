package rest

import (
	"encoding/json"
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

// runScript executes a batch of book commands on behalf of the admin:
//
//	A <side> <type> <price> <qty> <id>
//	M <id> <side> <price> <qty>
//	C <id>
//
// Execution stops at the first failing line.
func (s *Server) runScript(c *gin.Context) {
	acct := currentAccount(c)

	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "unreadable body"})
		return
	}

	commands, err := parseScriptPayload(raw)
	if err != nil {
		s.log.Warn("rejected script payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	s.log.Info("executing script", zap.Int("commands", len(commands)), zap.String("user", acct.UserID()))
	executed := 0
	for _, command := range commands {
		line := strings.TrimSpace(command)
		if line == "" {
			continue
		}
		if err := s.executeScriptLine(acct.UserID(), line); err != nil {
			s.log.Warn("script line failed", zap.String("line", line), zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error(), "line": line})
			return
		}
		executed++
	}

	c.JSON(http.StatusOK, gin.H{"status": "Script executed", "commandsProcessed": executed})
}

func (s *Server) executeScriptLine(userID, line string) error {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil
	}
	sc := s.scales.Get(s.engine.Instrument())

	switch strings.ToUpper(tokens[0])[0] {
	case 'A':
		if len(tokens) < 6 {
			return fmt.Errorf("add command requires 6 tokens")
		}
		side, err := parseSideToken(tokens[1])
		if err != nil {
			return err
		}
		attrs, err := resolveOrderAttributes(tokens[2], "")
		if err != nil {
			return err
		}
		price, err := decimal.NewFromString(tokens[3])
		if err != nil {
			return fmt.Errorf("invalid price %q", tokens[3])
		}
		quantity, err := strconv.ParseInt(tokens[4], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid quantity %q", tokens[4])
		}
		orderID, err := strconv.ParseUint(tokens[5], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid order id %q", tokens[5])
		}

		var bookPrice int64
		if attrs.Type != book.Market {
			if bookPrice, err = sc.ToBookPrice(price); err != nil {
				return err
			}
		}
		order, err := book.NewOrder(
			orderID, userID, s.engine.Instrument(),
			side, attrs.Type, attrs.TIF,
			quantity, bookPrice, bookPrice,
			false, quantity,
		)
		if err != nil {
			return err
		}
		_, err = s.engine.ProcessOrder(order)
		return err

	case 'M':
		if len(tokens) < 5 {
			return fmt.Errorf("modify command requires 5 tokens")
		}
		orderID, err := strconv.ParseUint(tokens[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid order id %q", tokens[1])
		}
		side, err := parseSideToken(tokens[2])
		if err != nil {
			return err
		}
		price, err := decimal.NewFromString(tokens[3])
		if err != nil {
			return fmt.Errorf("invalid price %q", tokens[3])
		}
		bookPrice, err := sc.ToBookPrice(price)
		if err != nil {
			return err
		}
		quantity, err := strconv.ParseInt(tokens[4], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid quantity %q", tokens[4])
		}
		// Unknown ids are a no-op in scripts, like the book's own cancel.
		_, err = s.engine.ModifyOrder(userID, book.Modify{
			OrderID:  orderID,
			Side:     side,
			Price:    bookPrice,
			Quantity: quantity,
		})
		if errors.Is(err, service.ErrOrderNotFound) {
			return nil
		}
		return err

	case 'C', 'R':
		if len(tokens) < 2 {
			return fmt.Errorf("cancel command requires an order id")
		}
		orderID, err := strconv.ParseUint(tokens[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid order id %q", tokens[1])
		}
		if err := s.engine.CancelOrder(userID, orderID); err != nil && !errors.Is(err, service.ErrOrderNotFound) {
			return err
		}
		return nil

	default:
		return fmt.Errorf("unsupported script code %q", tokens[0])
	}
}

// parseScriptPayload accepts a JSON array of command strings, an object
// with a "commands" array, or entries wrapped as {"command": "..."}.
func parseScriptPayload(raw []byte) ([]string, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}

	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("body must be valid JSON")
	}

	switch v := root.(type) {
	case nil:
		return nil, nil
	case []any:
		return extractCommands(v)
	case map[string]any:
		commands, ok := v["commands"]
		if !ok {
			return nil, fmt.Errorf("script payload must be an array of command strings")
		}
		arr, ok := commands.([]any)
		if !ok {
			return nil, fmt.Errorf("'commands' property must be an array")
		}
		return extractCommands(arr)
	default:
		return nil, fmt.Errorf("script payload must be an array of command strings")
	}
}

func extractCommands(entries []any) ([]string, error) {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		switch v := entry.(type) {
		case nil:
			continue
		case string:
			out = append(out, v)
		case map[string]any:
			if cmd, ok := v["command"].(string); ok {
				out = append(out, cmd)
				continue
			}
			if val, ok := v["value"].(string); ok {
				out = append(out, val)
				continue
			}
			return nil, fmt.Errorf("unsupported script entry")
		default:
			return nil, fmt.Errorf("unsupported script entry")
		}
	}
	return out, nil
}
