// Package cogs computes cost-of-goods-sold reports for a reporting
// period: a periodic figure derived from inventory deltas and a
// theoretical figure reconstructed from time-versioned recipes applied
// to every unit sold.
package cogs

import (
	"errors"
	"time"
)

// PeriodStatus enumerates reporting period lifecycle values.
type PeriodStatus string

const (
	// PeriodStatusOpen indicates the period is still accumulating data.
	PeriodStatusOpen PeriodStatus = "open"
	// PeriodStatusClosed indicates the period was closed and its ending
	// inventory value persisted.
	PeriodStatusClosed PeriodStatus = "closed"
)

// ReportingPeriod is an immutable-once-closed window [StartAt, EndAt).
type ReportingPeriod struct {
	ID                   int64
	StartAt              time.Time
	EndAt                time.Time
	Status               PeriodStatus
	EndingInventoryValue *float64
	ClosedAt             *time.Time
}

// UnitType is the measurement vocabulary shared by inventory items and
// recipe lines.
type UnitType string

const (
	UnitEach       UnitType = "each"
	UnitPound      UnitType = "lb"
	UnitOunce      UnitType = "oz"
	UnitGallon     UnitType = "gallon"
	UnitLiter      UnitType = "liter"
	UnitMilliliter UnitType = "ml"
)

// InventoryItem is a priced stock-keeping unit. The engine never
// mutates inventory; items are read as a snapshot.
type InventoryItem struct {
	ID           int64
	Name         string
	UnitCost     float64
	UnitType     UnitType
	CurrentStock float64
	DeletedAt    *time.Time
}

// Sellable is an orderable size/variant of a menu product, identified
// externally by its catalog variation id.
type Sellable struct {
	ID          int64
	ProductID   int64
	Name        string
	VariationID string
}

// SellableAlias maps a historical catalog variation id onto a sellable,
// tolerating catalog id churn over time.
type SellableAlias struct {
	ID          int64
	SellableID  int64
	VariationID string
	ValidFrom   *time.Time
	ValidTo     *time.Time
}

// ProductRecipe is one version of a product's recipe. Versions form a
// timeline; the one with the latest EffectiveFrom at or before the sale
// instant is in force.
type ProductRecipe struct {
	ID            int64
	ProductID     int64
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	YieldQty      float64
	YieldUnit     string
	Lines         []RecipeLine
}

// EffectiveWindow reports the recipe's validity window.
func (r ProductRecipe) EffectiveWindow() (time.Time, *time.Time) {
	return r.EffectiveFrom, r.EffectiveTo
}

// RecipeLine is one ingredient requirement of a recipe batch. LossPct
// is a multiplicative prep/spoilage uplift in percent.
type RecipeLine struct {
	InventoryItemID int64
	Qty             float64
	Unit            UnitType
	LossPct         float64
}

// OverrideOpKind discriminates override mutation operations.
type OverrideOpKind string

const (
	OpAdd        OverrideOpKind = "add"
	OpRemove     OverrideOpKind = "remove"
	OpReplace    OverrideOpKind = "replace"
	OpMultiplier OverrideOpKind = "multiplier"
)

// OverrideOp is one mutation in an override's ordered log. Optional
// fields are pointers; absence falls back to the replaced line's values
// during replay. Ops replay in ascending CreatedAt order.
type OverrideOp struct {
	ID           int64
	Kind         OverrideOpKind
	TargetItemID int64
	NewItemID    int64
	Qty          *float64
	Unit         *UnitType
	LossPct      *float64
	Multiplier   *float64
	CreatedAt    time.Time
}

// SellableOverride is a time-windowed patch scope attached to one
// sellable, carrying an ordered set of mutation ops.
type SellableOverride struct {
	ID            int64
	SellableID    int64
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	Ops           []OverrideOp
}

// EffectiveWindow reports the override's validity window.
func (o SellableOverride) EffectiveWindow() (time.Time, *time.Time) {
	return o.EffectiveFrom, o.EffectiveTo
}

// ModifierOption is a sold modifier (extra shot, alt milk) identified
// externally by a catalog id.
type ModifierOption struct {
	ID        int64
	CatalogID string
	Name      string
}

// ModifierRecipe is a versioned recipe scoped to a modifier option.
// Modifiers are not yield-batched; lines are consumed per modifier
// unit.
type ModifierRecipe struct {
	ID               int64
	ModifierOptionID int64
	EffectiveFrom    time.Time
	EffectiveTo      *time.Time
	Lines            []RecipeLine
}

// EffectiveWindow reports the modifier recipe's validity window.
func (r ModifierRecipe) EffectiveWindow() (time.Time, *time.Time) {
	return r.EffectiveFrom, r.EffectiveTo
}

// MovementType tags stock ledger entries.
type MovementType string

// MovementWaste is the only movement type this engine consumes.
const MovementWaste MovementType = "waste"

// StockMovement is an append-only ledger entry. Waste movements carry a
// negative QuantityChange and optionally their own unit-cost snapshot.
type StockMovement struct {
	ID              int64
	InventoryItemID int64
	MovementType    MovementType
	QuantityChange  float64
	UnitCost        *float64
	OccurredAt      time.Time
}

// SoldModifier is a modifier attached to a sold line.
type SoldModifier struct {
	CatalogID string
	Qty       float64
}

// LineMetadata is the loosely-typed metadata blob on a sold line,
// validated at the repository boundary.
type LineMetadata struct {
	VariationID             string
	OriginalCatalogObjectID string
}

// SoldLine is one sold transaction line with its sale instant and any
// applied modifiers.
type SoldLine struct {
	CatalogObjectID string
	Qty             float64
	SoldAt          time.Time
	Metadata        LineMetadata
	Modifiers       []SoldModifier
}

// InvoiceStatus enumerates purchase invoice states.
type InvoiceStatus string

// InvoiceConfirmed is the only status counted as a purchase.
const InvoiceConfirmed InvoiceStatus = "confirmed"

// Invoice is a supplier purchase document.
type Invoice struct {
	ID          int64
	Status      InvoiceStatus
	InvoiceDate time.Time
	ConfirmedAt *time.Time
	TotalAmount float64
}

// EffectiveDate is the instant an invoice counts against a period:
// confirmation time, falling back to the invoice date.
func (i Invoice) EffectiveDate() time.Time {
	if i.ConfirmedAt != nil {
		return *i.ConfirmedAt
	}
	return i.InvoiceDate
}

// Coverage quantifies how much of a period's sales data mapped to
// recipes and costs. These counters are first-class report outputs.
type Coverage struct {
	SalesLines           int `json:"salesLines"`
	MappedSalesLines     int `json:"mappedSalesLines"`
	SalesLinesWithRecipe int `json:"salesLinesWithRecipe"`
	ModifiersSeen        int `json:"modifiersSeen"`
	MappedModifiers      int `json:"mappedModifiers"`
	ModifiersWithRecipe  int `json:"modifiersWithRecipe"`
	MissingCostLines     int `json:"missingCostLines"`
	UnitConversionIssues int `json:"unitConversionIssues"`
}

// TheoreticalResult is the recipe-derived half of the report.
type TheoreticalResult struct {
	TheoreticalCOGSValue float64  `json:"theoreticalCogsValue"`
	WasteCostValue       float64  `json:"wasteCostValue"`
	VarianceValue        float64  `json:"varianceValue"`
	Coverage             Coverage `json:"coverage"`
}

// PeriodicResult is the inventory-delta half of the report.
type PeriodicResult struct {
	BeginInventoryValue float64 `json:"beginInventoryValue"`
	PurchasesValue      float64 `json:"purchasesValue"`
	EndInventoryValue   float64 `json:"endInventoryValue"`
	PeriodicCOGSValue   float64 `json:"periodicCogsValue"`
}

// ReportInputs records the provenance of each report component.
type ReportInputs struct {
	InvoicesMethod       string `json:"invoices_method"`
	InventoryMethod      string `json:"inventory_method"`
	BeginInventorySource string `json:"begin_inventory_source"`
}

// Report merges both COGS computations for one period.
type Report struct {
	Periodic    PeriodicResult     `json:"periodic"`
	Theoretical *TheoreticalResult `json:"theoretical,omitempty"`
	Inputs      ReportInputs       `json:"inputs"`
}

// ReportRequest bounds one report computation.
type ReportRequest struct {
	StartAt            time.Time
	EndAt              time.Time
	IncludeTheoretical bool
}

// Validate rejects empty or inverted date ranges before any fetch.
func (r ReportRequest) Validate() error {
	if r.StartAt.IsZero() || r.EndAt.IsZero() {
		return ErrInvalidRange
	}
	if !r.EndAt.After(r.StartAt) {
		return ErrInvalidRange
	}
	return nil
}

var (
	// ErrInvalidRange indicates a missing or inverted reporting range.
	ErrInvalidRange = errors.New("cogs: end_at must be after start_at")
)
