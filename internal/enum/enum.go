package enum

// ── Order state machine ──
//
// HELD is POS-owned (parked at the terminal, never dispatched to the kitchen).
// NEW through COMPLETED are kitchen-owned once the order is dispatched.

const (
	OrderStatusHeld      = "HELD"
	OrderStatusNew       = "NEW"
	OrderStatusPreparing = "PREPARING"
	OrderStatusReady     = "READY"
	OrderStatusCompleted = "COMPLETED"
)

const (
	OrderTypeDineIn        = "DINE_IN"
	OrderTypeTakeaway      = "TAKEAWAY"
	OrderTypeDelivery      = "DELIVERY"
	OrderTypeNonChargeable = "NON_CHARGEABLE"
)

// ── Line item pricing ──

const (
	PricingTypeFixed  = "FIXED"
	PricingTypeWeight = "WEIGHT"
	PricingTypeVolume = "VOLUME"
	PricingTypeUnit   = "UNIT"
)

const (
	UnitKilogram   = "kg"
	UnitGram       = "g"
	UnitLiter      = "L"
	UnitMilliliter = "ml"
	UnitPiece      = "piece"
	UnitPlate      = "plate"
	UnitCount      = "unit"
)

const (
	DiscountTypePercentage = "PERCENTAGE"
	DiscountTypeFixed      = "FIXED_AMOUNT"
)

// ── Users ──

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleCashier = "CASHIER"
	UserRoleKitchen = "KITCHEN"
)
