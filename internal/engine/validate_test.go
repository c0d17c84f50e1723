package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHexAddress(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"Checksummed", addrA, true},
		{"Lowercase", "0x742d35cc6634c0532925a3b844bc454e4438f44e", true},
		{"Uppercase hex", "0x742D35CC6634C0532925A3B844BC454E4438F44E", true},
		{"Missing prefix", "742d35Cc6634C0532925a3b844Bc454e4438f44e", false},
		{"Too short", "0x742d35", false},
		{"Too long", addrA + "00", false},
		{"Non-hex", "0xZZ2d35Cc6634C0532925a3b844Bc454e4438f44e", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHexAddress(tt.input))
		})
	}
}

func TestValidateRecipients(t *testing.T) {
	t.Run("All valid", func(t *testing.T) {
		rows := []Row{{Address: addrA, Amount: "1.5"}, {Address: addrB, Amount: "2"}}
		result := ValidateRecipients(rows, true, 6)

		assert.True(t, result.IsValid)
		assert.Empty(t, result.Errors)
		assert.Len(t, result.Accepted, 2)
	})

	t.Run("Single bad row invalidates the batch", func(t *testing.T) {
		rows := []Row{
			{Address: addrA, Amount: "1.5"},
			{Address: "0xBAD", Amount: "1.0"},
			{Address: addrB, Amount: "2"},
		}
		result := ValidateRecipients(rows, true, 6)

		assert.False(t, result.IsValid)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "Line 2")
		// 合法行仍然列出，便于调用方展示
		assert.Len(t, result.Accepted, 2)
	})

	t.Run("Reason codes", func(t *testing.T) {
		rows := []Row{
			{Address: "", Amount: "1"},
			{Address: "nonsense", Amount: "1"},
			{Address: addrA, Amount: ""},
			{Address: addrA, Amount: "-3"},
		}
		result := ValidateRecipients(rows, true, 6)

		require.Len(t, result.Errors, 4)
		assert.Contains(t, result.Errors[0], "Address is required")
		assert.Contains(t, result.Errors[1], "Invalid address")
		assert.Contains(t, result.Errors[2], "Amount is required")
		assert.Contains(t, result.Errors[3], "Invalid amount")
	})

	t.Run("Amounts ignored when not required", func(t *testing.T) {
		rows := []Row{{Address: addrA, Amount: "garbage"}}
		result := ValidateRecipients(rows, false, 6)
		assert.True(t, result.IsValid)
	})
}

func TestValidateImport(t *testing.T) {
	t.Run("Invalid address references line 1", func(t *testing.T) {
		result := ValidateImport("address\n0xBAD,1.0", true, false, 18)

		assert.False(t, result.IsValid)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "Line 1")
	})

	t.Run("Valid custom import", func(t *testing.T) {
		text := fmt.Sprintf("address,amount\n%s,1.5\n%s,0.25", addrA, addrB)
		result := ValidateImport(text, true, true, 6)

		assert.True(t, result.IsValid)
		assert.Len(t, result.Accepted, 2)
	})
}

func TestTopErrors(t *testing.T) {
	var rows []Row
	for i := 0; i < 8; i++ {
		rows = append(rows, Row{Address: "bad"})
	}
	result := ValidateRecipients(rows, false, 18)

	assert.Len(t, result.Errors, 8)
	assert.Len(t, result.TopErrors(5), 5)
	assert.Contains(t, result.TopErrors(5)[4], "Line 5")
}
