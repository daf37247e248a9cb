package domain

// AllocationStatus says how much of a line the current supply can cover.
type AllocationStatus string

const (
	AllocationFull        AllocationStatus = "fully_allocatable"
	AllocationPartial     AllocationStatus = "partially_allocatable"
	AllocationUnavailable AllocationStatus = "unavailable"
)

// PriorityTier buckets a priority score for filtering.
type PriorityTier string

const (
	PriorityHigh   PriorityTier = "high"
	PriorityMedium PriorityTier = "medium"
	PriorityLow    PriorityTier = "low"
)

// WarehouseCandidate is one ranked source for an allocation.
type WarehouseCandidate struct {
	WarehouseID         string  `json:"warehouseId"`
	WarehouseName       string  `json:"warehouseName"`
	Available           int     `json:"available"`
	Score               float64 `json:"score"`
	RecommendedQuantity int     `json:"recommendedQuantity"`
	SameCountry         bool    `json:"sameCountry"`
	SameCity            bool    `json:"sameCity"`
}

// PriorityContribution shows how each weighted factor contributed to a
// priority score. The four fields sum to the score.
type PriorityContribution struct {
	Customer float64 `json:"customer"`
	Value    float64 `json:"value"`
	Age      float64 `json:"age"`
	Channel  float64 `json:"channel"`
}

// AllocationRecommendation proposes where to source one open order line.
type AllocationRecommendation struct {
	OrderID      string  `json:"orderId"`
	LineID       string  `json:"lineId"`
	ProductID    string  `json:"productId"`
	SKU          string  `json:"sku"`
	ProductName  string  `json:"productName"`
	CustomerID   string  `json:"customerId"`
	CustomerName string  `json:"customerName"`
	Channel      Channel `json:"channel"`

	RequestedQuantity int `json:"requestedQuantity"`
	TotalAvailable    int `json:"totalAvailable"`

	CustomerPriority float64              `json:"customerPriority"`
	PriorityScore    float64              `json:"priorityScore"`
	PriorityTier     PriorityTier         `json:"priorityTier"`
	Contributions    PriorityContribution `json:"contributions"`

	Candidates             []WarehouseCandidate `json:"candidates"`
	RecommendedWarehouseID string               `json:"recommendedWarehouseId"`
	RecommendedQuantity    int                  `json:"recommendedQuantity"`
	Status                 AllocationStatus     `json:"status"`
	PickupEligible         bool                 `json:"pickupEligible"`
}

// RiskLevel is the overall classification of an inventory position.
type RiskLevel string

const (
	RiskCritical  RiskLevel = "critical"
	RiskHigh      RiskLevel = "high"
	RiskMedium    RiskLevel = "medium"
	RiskLow       RiskLevel = "low"
	RiskOverstock RiskLevel = "overstock"
)

// PositionRef identifies the inventory position an output row describes.
type PositionRef struct {
	PositionID    string `json:"positionId"`
	ProductID     string `json:"productId"`
	SKU           string `json:"sku"`
	ProductName   string `json:"productName"`
	WarehouseID   string `json:"warehouseId"`
	WarehouseName string `json:"warehouseName"`
}

// RiskScore is the stockout/overstock assessment of one position.
type RiskScore struct {
	PositionRef

	CurrentQuantity int      `json:"currentQuantity"`
	MaxQuantity     int      `json:"maxQuantity"`
	AvgDailyDemand  float64  `json:"avgDailyDemand"`
	DemandStdDev    float64  `json:"demandStdDev"`
	DaysOfStock     *float64 `json:"daysOfStock"`

	StockoutScore  int       `json:"stockoutScore"`
	OverstockScore int       `json:"overstockScore"`
	OverallScore   int       `json:"overallScore"`
	Level          RiskLevel `json:"level"`
}

// ReorderSuggestion holds stocking bounds and the suggested order quantity.
type ReorderSuggestion struct {
	PositionRef

	CurrentQuantity   int  `json:"currentQuantity"`
	ReorderPoint      int  `json:"reorderPoint"`
	SafetyStock       int  `json:"safetyStock"`
	MinQuantity       int  `json:"minQuantity"`
	MaxQuantity       int  `json:"maxQuantity"`
	SuggestedQuantity int  `json:"suggestedQuantity"`
	NeedsReorder      bool `json:"needsReorder"`
	DaysUntilReorder  int  `json:"daysUntilReorder"`
}

// ChannelAllocation is the replenishment attributed to one sales channel.
type ChannelAllocation struct {
	Channel            Channel `json:"channel"`
	AvgDailyDemand     float64 `json:"avgDailyDemand"`
	Quantity           int     `json:"quantity"`
	NeedsReplenishment bool    `json:"needsReplenishment"`
}

// ChannelSplit partitions a position's replenishment across channels.
// TotalQuantity sums the channels independently and can exceed the single
// reorder suggestion for the same position.
type ChannelSplit struct {
	PositionRef

	CurrentQuantity int                 `json:"currentQuantity"`
	ReorderPoint    int                 `json:"reorderPoint"`
	SafetyStock     int                 `json:"safetyStock"`
	Channels        []ChannelAllocation `json:"channels"`
	TotalQuantity   int                 `json:"totalQuantity"`
}

// Channel returns the allocation for ch, or a zero value.
func (s ChannelSplit) Channel(ch Channel) ChannelAllocation {
	for _, c := range s.Channels {
		if c.Channel == ch {
			return c
		}
	}
	return ChannelAllocation{Channel: ch}
}

// RecommendationTier grades a simulated policy.
type RecommendationTier string

const (
	TierHigh   RecommendationTier = "high"
	TierMedium RecommendationTier = "medium"
	TierLow    RecommendationTier = "low"
)

// ScenarioResult is the evaluation of one weighting preset.
type ScenarioResult struct {
	Name          string             `json:"name"`
	Label         string             `json:"label"`
	ServiceWeight float64            `json:"serviceWeight"`
	MarginWeight  float64            `json:"marginWeight"`
	TotalSupply   int                `json:"totalSupply"`
	TotalDemand   int                `json:"totalDemand"`
	FillRate      float64            `json:"fillRate"`
	ServiceLevel  float64            `json:"serviceLevel"`
	MarginImpact  float64            `json:"marginImpact"`
	OverallScore  float64            `json:"overallScore"`
	Tier          RecommendationTier `json:"tier"`
	Recommended   bool               `json:"recommended"`
}

// NewPositionRef describes a position stocked at w.
func NewPositionRef(p InventoryPosition, w Warehouse) PositionRef {
	name := w.Name
	if name == "" {
		name = p.WarehouseID
	}
	return PositionRef{
		PositionID:    p.ID,
		ProductID:     p.Product.ID,
		SKU:           p.Product.SKU,
		ProductName:   p.Product.Name,
		WarehouseID:   p.WarehouseID,
		WarehouseName: name,
	}
}
