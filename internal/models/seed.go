package models

import "github.com/shopspring/decimal"

// DefaultClients returns the clients used when no snapshot exists.
func DefaultClients() []Client {
	return []Client{
		{ID: 1, Name: "John Doe", Email: "john@example.com", Phone: "123-456-7890", Address: "123 Main St"},
		{ID: 2, Name: "Jane Smith", Email: "jane@example.com", Phone: "098-765-4321", Address: "456 Oak Ave"},
	}
}

// DefaultServices returns the seed rate catalog.
func DefaultServices() []Service {
	return []Service{
		{ID: 1, Name: "Plumbing", HourlyRate: decimal.NewFromInt(75)},
		{ID: 2, Name: "Electrical", HourlyRate: decimal.NewFromInt(85)},
		{ID: 3, Name: "Masonry", HourlyRate: decimal.NewFromInt(90)},
		{ID: 4, Name: "Carpentry Works", HourlyRate: decimal.NewFromInt(80)},
		{ID: 5, Name: "Others", HourlyRate: decimal.NewFromInt(70)},
	}
}

// DefaultInventory returns the seed tool inventory.
func DefaultInventory() []InventoryItem {
	return []InventoryItem{
		{ID: 1, Name: "Pipe Wrench", Category: "Plumbing", Quantity: 5, Status: InventoryAvailable},
		{ID: 2, Name: "Voltage Tester", Category: "Electrical", Quantity: 3, Status: InventoryAvailable},
		{ID: 3, Name: "Trowel", Category: "Masonry", Quantity: 8, Status: InventoryAvailable},
		{ID: 4, Name: "Circular Saw", Category: "Carpentry", Quantity: 2, Status: InventoryAvailable},
		{ID: 5, Name: "Hammer", Category: "General", Quantity: 10, Status: InventoryAvailable},
	}
}
