package model

import "time"

type ItemStatus string

const (
	ItemPending         ItemStatus = "pending"
	ItemVerified        ItemStatus = "verified"
	ItemPendingApproval ItemStatus = "pending_approval"
	ItemConflict        ItemStatus = "conflict"
	ItemAssignedRecount ItemStatus = "assigned_recount"
)

type CartonConfig struct {
	CartonCount    float64 `json:"cartonCount"`
	UnitsPerCarton float64 `json:"unitsPerCarton"`
	IsCartonBased  bool    `json:"isCartonBased"`
}

// BatchEntry is one ERP batch record of a SKU. ObservedQty is the share of the
// item's count apportioned to this batch.
type BatchEntry struct {
	ID          string  `json:"id"`
	BatchNumber string  `json:"batchNumber"`
	MRP         float64 `json:"mrp"`
	ExpiryDate  string  `json:"expiryDate,omitempty"`
	SystemQty   float64 `json:"systemQty"`
	ObservedQty float64 `json:"observedQty"`
}

// Item is one SKU within a counting session. SystemQty, SnapshotQty and
// ObservedQty are independent figures and are never derived from each other.
type Item struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	SKU       string     `json:"sku"`
	Image     string     `json:"image"`
	Status    ItemStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`

	SystemQty   float64 `json:"systemQty"`
	SnapshotQty float64 `json:"snapshotQty"`
	ObservedQty float64 `json:"observedQty"`

	Version     int64  `json:"version"`
	LastUser    string `json:"lastUser"`
	LocationRef string `json:"locationRef"`

	Category                string        `json:"category"`
	SubCategory             string        `json:"subCategory"`
	MRP                     float64       `json:"mrp"`
	MRPVerified             bool          `json:"mrpVerified"`
	ManufacturingDate       string        `json:"manufacturingDate,omitempty"`
	ManufacturingDateFormat string        `json:"manufacturingDateFormat,omitempty"` // full, month-year, year-only
	ExpiryDate              string        `json:"expiryDate,omitempty"`
	IsSerialized            bool          `json:"isSerialized"`
	SerialNumber            string        `json:"serialNumber,omitempty"`
	SerialList              []string      `json:"serialList,omitempty"`
	IsDamaged               bool          `json:"isDamaged"`
	DamagedQty              float64       `json:"damagedQty"`
	IsReturnable            bool          `json:"isReturnable"`
	IsTagged                bool          `json:"isTagged"`
	ComplaintNumber         string        `json:"complaintNumber,omitempty"`
	Narration               string        `json:"narration,omitempty"`
	CapturedImage           string        `json:"capturedImage,omitempty"`
	IsDisplayItem           bool          `json:"isDisplayItem"`
	BatchNumber             string        `json:"batchNumber,omitempty"`
	UOM                     string        `json:"uom,omitempty"`
	IsUnidentified          bool          `json:"isUnidentified"`
	SplitEntries            []float64     `json:"splitEntries,omitempty"`
	CartonConfig            *CartonConfig `json:"cartonConfig,omitempty"`
	Batches                 []BatchEntry  `json:"batches,omitempty"`

	// ERP reference data, read-only on the client
	ItemCode            string  `json:"itemCode"`
	ManualBarcode       string  `json:"manualBarcode"`
	AutoBarcode         string  `json:"autoBarcode"`
	SalePrice           float64 `json:"salePrice"`
	TaxPercentage       float64 `json:"taxPercentage"`
	HSNCode             string  `json:"hsnCode"`
	Brand               string  `json:"brand"`
	LastPurchaseQty     float64 `json:"lastPurchaseQty"`
	LastPurchaseDate    string  `json:"lastPurchaseDate"`
	LastPurchasePrice   float64 `json:"lastPurchasePrice"`
	LastPurchaseCost    float64 `json:"lastPurchaseCost"`
	LastSupplier        string  `json:"lastSupplier"`
	LastPurchaseDocType string  `json:"lastPurchaseDocType"`
}

// Clone returns a deep copy so callers can hand items out without sharing slices.
func (i Item) Clone() Item {
	c := i
	if i.SerialList != nil {
		c.SerialList = append([]string(nil), i.SerialList...)
	}
	if i.SplitEntries != nil {
		c.SplitEntries = append([]float64(nil), i.SplitEntries...)
	}
	if i.CartonConfig != nil {
		cc := *i.CartonConfig
		c.CartonConfig = &cc
	}
	if i.Batches != nil {
		c.Batches = append([]BatchEntry(nil), i.Batches...)
	}
	return c
}

// ItemDetails carries the governance attributes captured during a verify.
// Nil fields are left untouched when merged into an item.
type ItemDetails struct {
	Category                *string            `json:"category,omitempty"`
	SubCategory             *string            `json:"subCategory,omitempty"`
	MRP                     *float64           `json:"mrp,omitempty"`
	MRPVerified             *bool              `json:"mrpVerified,omitempty"`
	ManufacturingDate       *string            `json:"manufacturingDate,omitempty"`
	ManufacturingDateFormat *string            `json:"manufacturingDateFormat,omitempty"`
	ExpiryDate              *string            `json:"expiryDate,omitempty"`
	IsSerialized            *bool              `json:"isSerialized,omitempty"`
	SerialNumber            *string            `json:"serialNumber,omitempty"`
	SerialList              []string           `json:"serialList,omitempty"`
	IsDamaged               *bool              `json:"isDamaged,omitempty"`
	DamagedQty              *float64           `json:"damagedQty,omitempty"`
	IsReturnable            *bool              `json:"isReturnable,omitempty"`
	IsTagged                *bool              `json:"isTagged,omitempty"`
	ComplaintNumber         *string            `json:"complaintNumber,omitempty"`
	CapturedImage           *string            `json:"capturedImage,omitempty"`
	Narration               *string            `json:"narration,omitempty"`
	IsDisplayItem           *bool              `json:"isDisplayItem,omitempty"`
	SplitEntries            []float64          `json:"splitEntries,omitempty"`
	CartonConfig            *CartonConfig      `json:"cartonConfig,omitempty"`
	BatchCounts             map[string]float64 `json:"batchCounts,omitempty"` // batch id -> observed
}

// Apply merges the non-nil attributes into item. Non-empty BatchCounts
// replace every batch's observed count; a batch missing from the map counts
// as zero.
func (d *ItemDetails) Apply(item *Item) {
	if d == nil {
		return
	}
	setString(&item.Category, d.Category)
	setString(&item.SubCategory, d.SubCategory)
	setFloat(&item.MRP, d.MRP)
	setBool(&item.MRPVerified, d.MRPVerified)
	setString(&item.ManufacturingDate, d.ManufacturingDate)
	setString(&item.ManufacturingDateFormat, d.ManufacturingDateFormat)
	setString(&item.ExpiryDate, d.ExpiryDate)
	setBool(&item.IsSerialized, d.IsSerialized)
	setString(&item.SerialNumber, d.SerialNumber)
	setBool(&item.IsDamaged, d.IsDamaged)
	setFloat(&item.DamagedQty, d.DamagedQty)
	setBool(&item.IsReturnable, d.IsReturnable)
	setBool(&item.IsTagged, d.IsTagged)
	setString(&item.ComplaintNumber, d.ComplaintNumber)
	setString(&item.CapturedImage, d.CapturedImage)
	setString(&item.Narration, d.Narration)
	setBool(&item.IsDisplayItem, d.IsDisplayItem)
	if d.SerialList != nil {
		item.SerialList = append([]string(nil), d.SerialList...)
	}
	if d.SplitEntries != nil {
		item.SplitEntries = append([]float64(nil), d.SplitEntries...)
	}
	if d.CartonConfig != nil {
		cc := *d.CartonConfig
		item.CartonConfig = &cc
	}
	if len(d.BatchCounts) > 0 && len(item.Batches) > 0 {
		batches := append([]BatchEntry(nil), item.Batches...)
		for i := range batches {
			batches[i].ObservedQty = d.BatchCounts[batches[i].ID]
		}
		item.Batches = batches
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
