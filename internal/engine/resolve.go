package engine

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ResolveBatch derives the final send payload from the raw rows. It is a
// pure function meant to be re-invoked on every input change; an empty batch
// is the "not ready yet" sentinel while the user is still typing, never an
// error.
//
// Equal mode keeps every row with a valid address (duplicates allowed,
// order preserved) and gives each the shared amount. Custom mode keeps rows
// with both a valid address and a present, positive, numeric-looking amount;
// if any retained amount then fails strict codec parsing (for example excess
// fractional precision), the whole batch resolves empty rather than sending
// a partial total.
func ResolveBatch(mode Mode, rows []Row, equalAmount string, decimals uint8) ResolvedBatch {
	if mode == ModeEqual {
		return resolveEqual(rows, equalAmount, decimals)
	}
	return resolveCustom(rows, decimals)
}

func resolveEqual(rows []Row, equalAmount string, decimals uint8) ResolvedBatch {
	batch := emptyBatch()

	for _, row := range rows {
		address := strings.TrimSpace(row.Address)
		if IsHexAddress(address) {
			batch.Recipients = append(batch.Recipients, common.HexToAddress(address))
		}
	}
	if len(batch.Recipients) == 0 {
		return emptyBatch()
	}

	per, err := ToPositiveMinorUnits(equalAmount, decimals)
	if err != nil {
		return emptyBatch()
	}

	batch.Amounts = make([]*big.Int, len(batch.Recipients))
	for i := range batch.Amounts {
		batch.Amounts[i] = new(big.Int).Set(per)
	}
	batch.Total = new(big.Int).Mul(per, big.NewInt(int64(len(batch.Recipients))))
	return batch
}

func resolveCustom(rows []Row, decimals uint8) ResolvedBatch {
	var retained []Row
	for _, row := range rows {
		address := strings.TrimSpace(row.Address)
		amount := strings.TrimSpace(row.Amount)
		if IsHexAddress(address) && looksPositiveNumeric(amount) {
			retained = append(retained, Row{Address: address, Amount: amount})
		}
	}
	if len(retained) == 0 {
		return emptyBatch()
	}

	batch := emptyBatch()
	for _, row := range retained {
		v, err := ToPositiveMinorUnits(row.Amount, decimals)
		if err != nil {
			// 宽松过滤通过但严格解析失败 (如小数位超限): 宁可整批置空也不发送错误的总额
			return emptyBatch()
		}
		batch.Recipients = append(batch.Recipients, common.HexToAddress(row.Address))
		batch.Amounts = append(batch.Amounts, v)
		batch.Total.Add(batch.Total, v)
	}
	return batch
}

// looksPositiveNumeric is the lenient pre-filter: rows failing it stay
// visible and editable but do not participate in the send.
func looksPositiveNumeric(s string) bool {
	if s == "" {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f > 0
}
