package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// HistoryEntry 记录一次已确认的分发。主键是交易哈希，Seq 用于保持插入顺序。
type HistoryEntry struct {
	ID        string `gorm:"primaryKey;type:varchar(66)" json:"id"`
	Seq       uint64 `gorm:"autoIncrement;uniqueIndex" json:"-"`
	Timestamp int64  `gorm:"not null" json:"timestamp"` // 毫秒

	AssetLabel     string `gorm:"type:varchar(64);not null" json:"asset"`
	IsNative       bool   `gorm:"not null" json:"is_native"`
	Mode           string `gorm:"type:varchar(16);not null" json:"mode"`
	RecipientCount int    `gorm:"not null" json:"recipient_count"`
	// 展示单位 (已按资产精度换算), 非最小单位
	TotalAmount decimal.Decimal `gorm:"type:numeric(96,18);not null" json:"total_amount"`
	Fee         decimal.Decimal `gorm:"type:numeric(96,18);not null" json:"fee"`

	// 逗号分隔的前几个收款地址，仅用于展示。
	SampleRecipients string `gorm:"type:text" json:"-"`
	ReferenceID      string `gorm:"type:varchar(64)" json:"reference_id,omitempty"`

	CreatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (HistoryEntry) TableName() string {
	return "history_entries"
}

// Samples splits the stored sample recipients back into a slice.
func (h *HistoryEntry) Samples() []string {
	if h.SampleRecipients == "" {
		return nil
	}
	return strings.Split(h.SampleRecipients, ",")
}

// SetSamples stores up to n recipient addresses for display.
func (h *HistoryEntry) SetSamples(addrs []string, n int) {
	if len(addrs) > n {
		addrs = addrs[:n]
	}
	h.SampleRecipients = strings.Join(addrs, ",")
}

// AddressBookEntry 地址簿条目，按地址（小写）唯一。
type AddressBookEntry struct {
	ID      uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	Address string `gorm:"type:varchar(42);uniqueIndex;not null" json:"address"`
	Label   string `gorm:"type:varchar(128);not null" json:"label"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (AddressBookEntry) TableName() string {
	return "address_book_entries"
}
