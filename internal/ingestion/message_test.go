package ingestion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dex-daydata/internal/domain"
)

const (
	mixedCasePair = "0xA478c2975Ab1Ea89e8196811F51A7B7Ade33eB11"
	lowerPair     = "0xa478c2975ab1ea89e8196811f51a7b7ade33eb11"
	lowerUser     = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
)

func TestDecodeMessage_Event(t *testing.T) {
	raw := `{"type":"event","event":{"id":"0xabc-1","kind":"swap","timestamp":1700000000,
		"pair":"` + mixedCasePair + `","from":"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"amount0":"1.5","amount1":"3000","amountUSD":"3000","amountETH":"1.5","untrackedUSD":"2999.5"}}`

	msg, err := DecodeMessage([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, TypeEvent, msg.Type)
	require.NotNil(t, msg.Event)

	ev := msg.Event
	assert.Equal(t, "0xabc-1", ev.ID)
	assert.Equal(t, domain.EventSwap, ev.Kind)
	assert.Equal(t, int64(1700000000), ev.Timestamp)
	assert.Equal(t, lowerPair, ev.Pair)
	assert.Equal(t, lowerUser, ev.From)
	assert.Equal(t, "1.5", ev.Amount0.String())
	assert.Equal(t, "2999.5", ev.UntrackedUSD.String())
}

func TestDecodeMessage_EventWithoutID(t *testing.T) {
	raw := `{"type":"event","event":{"kind":"mint","timestamp":10,"pair":"` + lowerPair + `"}}`

	a, err := DecodeMessage([]byte(raw))
	require.NoError(t, err)
	b, err := DecodeMessage([]byte(raw))
	require.NoError(t, err)

	assert.Len(t, a.Event.ID, 36, "expected a uuid")
	assert.NotEqual(t, a.Event.ID, b.Event.ID)
	assert.Empty(t, a.Event.From, "mint without sender keeps empty from")
}

func TestDecodeMessage_UnknownKindPassesThrough(t *testing.T) {
	raw := `{"type":"event","event":{"id":"x","kind":"sync","timestamp":10,"pair":"` + lowerPair + `"}}`

	msg, err := DecodeMessage([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, domain.EventKind("sync"), msg.Event.Kind)
}

func TestDecodeMessage_Bundle(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"type":"bundle","bundle":{"id":"7","ethPrice":"3000"}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.BundleID, msg.Bundle.ID)
	assert.Equal(t, "3000", msg.Bundle.ETHPrice.String())
}

func TestDecodeMessage_Pair(t *testing.T) {
	raw := `{"type":"pair","pair":{"id":"` + mixedCasePair + `",
		"token0":"0x6B175474E89094C44Da98b954EedeAC495271d0F",
		"token1":"0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		"reserve0":"10","reserve1":"20","totalSupply":"14","reserveUSD":"60000"}}`

	msg, err := DecodeMessage([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, lowerPair, msg.Pair.ID)
	assert.Equal(t, "0x6b175474e89094c44da98b954eedeac495271d0f", msg.Pair.Token0)
	assert.Equal(t, "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", msg.Pair.Token1)
	assert.Equal(t, "14", msg.Pair.TotalSupply.String())
}

func TestDecodeMessage_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"type":`},
		{"missing type", `{"event":{}}`},
		{"unknown type", `{"type":"candle"}`},
		{"missing payload", `{"type":"event"}`},
		{"missing kind", `{"type":"event","event":{"timestamp":1,"pair":"` + lowerPair + `"}}`},
		{"negative timestamp", `{"type":"event","event":{"kind":"mint","timestamp":-1,"pair":"` + lowerPair + `"}}`},
		{"bad pair address", `{"type":"event","event":{"kind":"mint","timestamp":1,"pair":"0x1234"}}`},
		{"swap without sender", `{"type":"event","event":{"kind":"swap","timestamp":1,"pair":"` + lowerPair + `"}}`},
		{"negative amount", `{"type":"event","event":{"kind":"swap","timestamp":1,"pair":"` + lowerPair + `","from":"` + lowerUser + `","amountUSD":"-5"}}`},
		{"bad token address", `{"type":"token","token":{"id":"not-an-address"}}`},
		{"negative decimals", `{"type":"token","token":{"id":"` + lowerUser + `","decimals":-1}}`},
		{"negative eth price", `{"type":"bundle","bundle":{"ethPrice":"-1"}}`},
		{"bad amount", `{"type":"event","event":{"kind":"mint","timestamp":1,"pair":"` + lowerPair + `","amount0":"abc"}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeMessage([]byte(tc.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidMessage), "got %v", err)
		})
	}
}
