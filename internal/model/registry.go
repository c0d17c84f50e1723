package model

// AllModels 返回所有需要迁移的模型，供 AutoMigrate 使用。
func AllModels() []interface{} {
	return []interface{}{
		&HistoryEntry{},
		&AddressBookEntry{},
	}
}
