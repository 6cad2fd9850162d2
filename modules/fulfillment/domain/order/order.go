package order

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusReady   = "ready"
	StatusPacked  = "packed"
	StatusShipped = "shipped"
)

const DisplayIDPrefix = "ORD"

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityNormal = "normal"
)

// mediumPriorityAge is how long an order may wait before it bubbles up.
const mediumPriorityAge = 72 * time.Hour

// PackingChecklist must be fully ticked before an order can be packed.
type PackingChecklist struct {
	ContentsVerified   bool `json:"contents_verified"`
	LotNumbersRecorded bool `json:"lot_numbers_recorded"`
	PackagingSealed    bool `json:"packaging_sealed"`
	DocumentsIncluded  bool `json:"documents_included"`
}

func (c PackingChecklist) Complete() bool {
	return c.ContentsVerified && c.LotNumbersRecorded && c.PackagingSealed && c.DocumentsIncluded
}

type ShipmentDetails struct {
	Carrier        string  `json:"carrier"`
	TrackingNumber string  `json:"tracking_number"`
	PackageCount   int     `json:"package_count"`
	WeightKg       float64 `json:"weight_kg"`
	LabelAttached  bool    `json:"label_attached"`
	DocsAttached   bool    `json:"docs_attached"`
}

type Order struct {
	ID        uuid.UUID
	DisplayID string
	RequestID uuid.UUID
	Status    string

	Checklist          *PackingChecklist
	LotNumbers         []string
	PackedBy           *string
	PackedAt           *time.Time
	DocumentsConfirmed bool

	Shipment  *ShipmentDetails
	ShippedBy *string
	ShippedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PriorityFor computes the queue-ordering priority. Not persisted; the value
// changes as the order ages.
func (o *Order) PriorityFor(vip bool, now time.Time) string {
	if vip {
		return PriorityHigh
	}
	if now.Sub(o.CreatedAt) > mediumPriorityAge {
		return PriorityMedium
	}
	return PriorityNormal
}
