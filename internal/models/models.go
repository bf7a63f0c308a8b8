package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MissionStatus string

const (
	MissionOpen       MissionStatus = "OPEN"
	MissionInProgress MissionStatus = "IN_PROGRESS"
	MissionResolved   MissionStatus = "RESOLVED"
	MissionAbandoned  MissionStatus = "ABANDONED"
)

// Terminal missions accept no further mutation.
func (s MissionStatus) Terminal() bool {
	return s == MissionResolved || s == MissionAbandoned
}

type ItemStatus string

const (
	ItemPending  ItemStatus = "PENDING"
	ItemFound    ItemStatus = "FOUND"
	ItemNotFound ItemStatus = "NOT_FOUND"
)

type CheckStatus string

const (
	CheckPending  CheckStatus = "PENDING"
	CheckFound    CheckStatus = "CHECKED_FOUND"
	CheckNotFound CheckStatus = "CHECKED_NOT_FOUND"
)

type CheckOutcome string

const (
	OutcomeFound    CheckOutcome = "FOUND"
	OutcomeNotFound CheckOutcome = "NOT_FOUND"
)

func (o CheckOutcome) Valid() bool {
	return o == OutcomeFound || o == OutcomeNotFound
}

type Order struct {
	ID           int64      `json:"id"`
	OrderNumber  string     `json:"order_number"`
	RegisteredAt *time.Time `json:"registered_at"`
	Commessa     string     `json:"commessa,omitempty"`
	Proprieta    string     `json:"proprieta,omitempty"`
	BatchID      int64      `json:"batch_id"`
}

type OrderItem struct {
	ID         int64           `json:"id"`
	OrderID    int64           `json:"order_id"`
	NLista     int64           `json:"n_lista"`
	Listone    *int64          `json:"listone"`
	SKU        string          `json:"sku"`
	QtyOrdered decimal.Decimal `json:"qty_ordered"`
	Cesta      string          `json:"cesta"`
	BatchID    int64           `json:"batch_id"`
}

// ExpectedItem is an order item joined with its order number, the unit the
// reconciliation engine compares against shipped quantities.
type ExpectedItem struct {
	NOrdine    string
	NLista     int64
	Listone    *int64
	SKU        string
	QtyOrdered decimal.Decimal
}

type PickingEvent struct {
	ID          int64           `json:"id"`
	OrderItemID int64           `json:"order_item_id"`
	UDC         string          `json:"udc"`
	Carrello    string          `json:"carrello,omitempty"`
	QtyPicked   decimal.Decimal `json:"qty_picked"`
	Operator    string          `json:"operator,omitempty"`
	PickedAt    *time.Time      `json:"picked_at"`
}

type UdcInventory struct {
	UDC     string          `json:"udc"`
	SKU     string          `json:"sku"`
	Listone int64           `json:"listone"`
	Qty     decimal.Decimal `json:"qty"`
}

type UdcLocation struct {
	UDC          string     `json:"udc"`
	Mag          string     `json:"mag,omitempty"`
	Scaf         string     `json:"scaf,omitempty"`
	Col          string     `json:"col,omitempty"`
	Pia          string     `json:"pia,omitempty"`
	Sc           string     `json:"sc,omitempty"`
	Comp         string     `json:"comp,omitempty"`
	PositionCode string     `json:"position_code"`
	LastMovement *time.Time `json:"last_movement"`
}

type ShippedItem struct {
	ID         int64           `json:"id"`
	Cesta      string          `json:"cesta"`
	BatchID    int64           `json:"batch_id"`
	NOrdine    string          `json:"n_ordine"`
	NLista     int64           `json:"n_lista"`
	SKU        string          `json:"sku"`
	QtyShipped decimal.Decimal `json:"qty_shipped"`
	Sovracollo string          `json:"sovracollo,omitempty"`
	Vettore    string          `json:"vettore,omitempty"`
	ShippedAt  *time.Time      `json:"shipped_at"`
}

// MissingItem is the value passed from the reconciliation engine to the
// mission builder. It is never read back from shared state.
type MissingItem struct {
	NOrdine    string          `json:"n_ordine"`
	NLista     int64           `json:"n_lista"`
	Listone    *int64          `json:"listone"`
	SKU        string          `json:"sku"`
	QtyOrdered decimal.Decimal `json:"qty_ordered"`
	QtyShipped decimal.Decimal `json:"qty_shipped"`
	QtyMissing decimal.Decimal `json:"qty_missing"`
}

type Mission struct {
	ID             int64           `json:"id"`
	MissionCode    string          `json:"mission_code"`
	Cesta          string          `json:"cesta"`
	BatchID        int64           `json:"batch_id"`
	Status         MissionStatus   `json:"status"`
	ManualHandling bool            `json:"manual_handling"`
	CreatedBy      string          `json:"created_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	StartedAt      *time.Time      `json:"started_at"`
	CompletedAt    *time.Time      `json:"completed_at"`
	Items          []MissionItem   `json:"items,omitempty"`
	Checks         []PositionCheck `json:"checks,omitempty"`
}

type MissionItem struct {
	ID         int64           `json:"id"`
	MissionID  int64           `json:"mission_id"`
	NOrdine    string          `json:"n_ordine"`
	NLista     int64           `json:"n_lista"`
	Listone    *int64          `json:"listone"`
	SKU        string          `json:"sku"`
	QtyOrdered decimal.Decimal `json:"qty_ordered"`
	QtyShipped decimal.Decimal `json:"qty_shipped"`
	QtyMissing decimal.Decimal `json:"qty_missing"`
	Status     ItemStatus      `json:"status"`
	ResolvedAt *time.Time      `json:"resolved_at"`
}

// PositionCheck is one physical position to visit. Positions are unique
// within a mission; SKUs lists every missing SKU the position may hold.
type PositionCheck struct {
	ID           int64       `json:"id"`
	MissionID    int64       `json:"mission_id"`
	PositionCode string      `json:"position_code"`
	UDC          string      `json:"udc"`
	Ordinal      int         `json:"ordinal"`
	SKUs         []string    `json:"skus"`
	Status       CheckStatus `json:"status"`
	CheckedBy    string      `json:"checked_by,omitempty"`
	CheckedAt    *time.Time  `json:"checked_at"`
	Notes        string      `json:"notes,omitempty"`
}

type ImportLog struct {
	ID          int64      `json:"id"`
	SourceType  string     `json:"source_type"`
	FilePath    string     `json:"file_path,omitempty"`
	FileHash    string     `json:"file_hash"`
	FileDate    *time.Time `json:"file_date"`
	Records     int        `json:"records_imported"`
	StartedAt   time.Time  `json:"import_started_at"`
	CompletedAt *time.Time `json:"import_completed_at"`
	Status      string     `json:"status"`
	Error       string     `json:"error_message,omitempty"`
}

type MissionSummary struct {
	MissionID         int64         `json:"mission_id"`
	MissionCode       string        `json:"mission_code"`
	Cesta             string        `json:"cesta"`
	Status            MissionStatus `json:"status"`
	ManualHandling    bool          `json:"manual_handling"`
	CreatedBy         string        `json:"created_by,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	TotalMissingItems int           `json:"total_missing_items"`
	ResolvedItems     int           `json:"resolved_items"`
	TotalPositions    int           `json:"total_positions"`
	PositionsPending  int           `json:"positions_pending"`
	PositionsFound    int           `json:"positions_found"`
	PositionsNotFound int           `json:"positions_not_found"`
	CompletionPct     float64       `json:"completion_percentage"`
}
