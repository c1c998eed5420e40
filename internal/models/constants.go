package models

const (
	StatusScheduled = "Scheduled"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

const (
	PaymentUnpaid = "Unpaid"
	PaymentPaid   = "Paid"
)

const (
	InventoryAvailable   = "Available"
	InventoryInUse       = "In Use"
	InventoryMaintenance = "Maintenance"
	InventoryOutOfStock  = "Out of Stock"
)

// Snapshot keys, one per collection.
const (
	KeyClients   = "clients"
	KeyServices  = "services"
	KeyBookings  = "bookings"
	KeyInventory = "inventory"
	KeyPayments  = "payments"
)

// CollectionKeys lists every snapshot key in load order.
var CollectionKeys = []string{KeyClients, KeyServices, KeyBookings, KeyInventory, KeyPayments}

const (
	// UnknownClient отображается вместо удалённого клиента
	UnknownClient = "Unknown Client"

	// UnknownService отображается вместо удалённой услуги
	UnknownService = "Unknown Service"

	// DayLayout формат календарного дня
	DayLayout = "2006-01-02"

	// UpcomingWindowDays окно "на этой неделе" для дашборда
	UpcomingWindowDays = 7
)

func IsBookingStatus(status string) bool {
	switch status {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func IsInventoryStatus(status string) bool {
	switch status {
	case InventoryAvailable, InventoryInUse, InventoryMaintenance, InventoryOutOfStock:
		return true
	}
	return false
}
