package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"dex-daydata/internal/domain"
)

// ErrInvalidMessage is returned for messages that cannot be decoded or fail
// validation. Such messages are skipped.
var ErrInvalidMessage = errors.New("invalid message")

// MessageType tags the payload of a Message.
type MessageType string

// Message types.
const (
	TypeEvent   MessageType = "event"
	TypePair    MessageType = "pair"
	TypeToken   MessageType = "token"
	TypeUser    MessageType = "user"
	TypeFactory MessageType = "factory"
	TypeBundle  MessageType = "bundle"
)

// Message is one ingestion record. Exactly the field matching Type is set.
// Entity messages carry upstream state; event messages trigger aggregation.
type Message struct {
	Type    MessageType        `json:"type"`
	Event   *domain.Event      `json:"event,omitempty"`
	Pair    *domain.Pair       `json:"pair,omitempty"`
	Token   *domain.Token      `json:"token,omitempty"`
	User    *domain.User       `json:"user,omitempty"`
	Factory *domain.DexFactory `json:"factory,omitempty"`
	Bundle  *domain.Bundle     `json:"bundle,omitempty"`
}

// DecodeMessage parses and validates raw JSON. Addresses are lower-cased
// and events without an id get a random one.
func DecodeMessage(raw []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := m.normalize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return &m, nil
}

func (m *Message) normalize() error {
	switch m.Type {
	case TypeEvent:
		if m.Event == nil {
			return errors.New("event payload missing")
		}
		return normalizeEvent(m.Event)

	case TypePair:
		if m.Pair == nil {
			return errors.New("pair payload missing")
		}
		return addresses(
			field{"pair.id", &m.Pair.ID},
			field{"pair.token0", &m.Pair.Token0},
			field{"pair.token1", &m.Pair.Token1},
		)

	case TypeToken:
		if m.Token == nil {
			return errors.New("token payload missing")
		}
		if m.Token.Decimals < 0 {
			return fmt.Errorf("token.decimals %d is negative", m.Token.Decimals)
		}
		return addresses(field{"token.id", &m.Token.ID})

	case TypeUser:
		if m.User == nil {
			return errors.New("user payload missing")
		}
		return addresses(field{"user.id", &m.User.ID})

	case TypeFactory:
		if m.Factory == nil {
			return errors.New("factory payload missing")
		}
		return addresses(field{"factory.id", &m.Factory.ID})

	case TypeBundle:
		if m.Bundle == nil {
			return errors.New("bundle payload missing")
		}
		if m.Bundle.ETHPrice.IsNegative() {
			return errors.New("bundle.ethPrice is negative")
		}
		m.Bundle.ID = domain.BundleID
		return nil

	case "":
		return errors.New("type missing")
	default:
		return fmt.Errorf("unknown type %q", m.Type)
	}
}

// normalizeEvent validates the envelope. The kind itself is checked by
// aggregation so unknown kinds are reported there.
func normalizeEvent(ev *domain.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Kind == "" {
		return errors.New("event.kind missing")
	}
	if ev.Timestamp < 0 {
		return fmt.Errorf("event.timestamp %d is negative", ev.Timestamp)
	}

	fields := []field{{"event.pair", &ev.Pair}}
	if ev.Kind == domain.EventSwap || ev.From != "" {
		fields = append(fields, field{"event.from", &ev.From})
	}
	if err := addresses(fields...); err != nil {
		return err
	}

	amounts := map[string]decimal.Decimal{
		"amount0":      ev.Amount0,
		"amount1":      ev.Amount1,
		"amountUSD":    ev.AmountUSD,
		"amountETH":    ev.AmountETH,
		"untrackedUSD": ev.UntrackedUSD,
	}
	for name, v := range amounts {
		if v.IsNegative() {
			return fmt.Errorf("event.%s %s is negative", name, v)
		}
	}
	return nil
}

type field struct {
	name string
	val  *string
}

// addresses checks each field holds a 20-byte hex address and lower-cases it.
func addresses(fields ...field) error {
	for _, f := range fields {
		if !common.IsHexAddress(*f.val) {
			return fmt.Errorf("%s %q is not an address", f.name, *f.val)
		}
		*f.val = strings.ToLower(common.HexToAddress(*f.val).Hex())
	}
	return nil
}
