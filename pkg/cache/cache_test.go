package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type meta struct {
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "token_meta:0xabc", meta{Decimals: 6, Symbol: "USDT"}, time.Minute))

	var got meta
	require.NoError(t, c.Get(ctx, "token_meta:0xabc", &got))
	assert.Equal(t, uint8(6), got.Decimals)
	assert.Equal(t, "USDT", got.Symbol)

	// miss 返回错误而不是零值
	assert.Error(t, c.Get(ctx, "token_meta:0xdef", &got))

	require.NoError(t, c.Delete(ctx, "token_meta:0xabc"))
	assert.Error(t, c.Get(ctx, "token_meta:0xabc", &got))
}
