package models

type InventoryItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity int64  `json:"quantity"`
	Status   string `json:"status"`
	Notes    string `json:"notes,omitempty"`
}

func (i InventoryItem) RecordID() int64 { return i.ID }
