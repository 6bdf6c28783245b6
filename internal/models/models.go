package models

import (
	"time"
)

// Role is the marketplace persona governing which dashboard area a
// session may access.
type Role string

const (
	RoleNone   Role = ""
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
)

// ParseRole maps a string onto a known role. Unknown values come back as
// RoleNone so they can never satisfy a protected-route check.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleFarmer:
		return RoleFarmer
	case RoleBuyer:
		return RoleBuyer
	default:
		return RoleNone
	}
}

func (r Role) Valid() bool {
	return r == RoleFarmer || r == RoleBuyer
}

// DashboardPath is the dashboard root for the role.
func (r Role) DashboardPath() string {
	return "/dashboard/" + string(r)
}

// User is a marketplace profile keyed by phone number.
type User struct {
	ID              int       `json:"id"`
	Phone           string    `json:"phone"`
	Name            string    `json:"name"`
	Role            Role      `json:"role"`
	LocationPincode string    `json:"location_pincode"`
	CreatedAt       time.Time `json:"created_at"`
}

// Challenge is a single-use OTP challenge. The code is stored as a bcrypt
// hash and never serialized.
type Challenge struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	CodeHash  string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Consumed  bool      `json:"consumed"`
	CreatedAt time.Time `json:"created_at"`
}

// Listing is a farmer's waste listing.
type Listing struct {
	ID            int       `json:"id"`
	Ref           string    `json:"ref"` // public short id
	Phone         string    `json:"-"`
	WasteType     string    `json:"waste_type"`
	QuantityTons  float64   `json:"quantity_tons"`
	ExpectedPrice float64   `json:"expected_price"`
	Status        string    `json:"status"` // "active", "sold", "cancelled"
	CreatedAt     time.Time `json:"created_at"`
}

// ClassificationResult is the inference service's structured answer to a
// classify-waste call. The gateway passes these figures through verbatim;
// it never recomputes or reinterprets them.
type ClassificationResult struct {
	PredictedClass        string                `json:"predicted_class"`
	DisplayName           string                `json:"display_name"`
	Confidence            float64               `json:"confidence"`
	AllPredictions        map[string]float64    `json:"all_predictions,omitempty"`
	IndustrialUses        []IndustrialUse       `json:"industrial_uses"`
	EnvironmentalBenefits EnvironmentalBenefits `json:"environmental_benefits"`
	PriceRange            PriceRange            `json:"price_range"`
}

// IndustrialUse is one reuse option for a waste category.
type IndustrialUse struct {
	Industry    string `json:"industry"`
	Use         string `json:"use"`
	Demand      string `json:"demand,omitempty"`
	Description string `json:"description,omitempty"`
}

// EnvironmentalBenefits are per-ton impact figures supplied by the model.
type EnvironmentalBenefits struct {
	CO2ReductionPerTon     float64 `json:"co2_reduction_per_ton"`
	SoilNitrogenPerTon     float64 `json:"soil_nitrogen_per_ton,omitempty"`
	WaterSavedLitersPerTon float64 `json:"water_saved_liters_per_ton,omitempty"`
}

// PriceRange is the estimated market value band per ton.
type PriceRange struct {
	MinPerTon float64 `json:"min_per_ton"`
	MaxPerTon float64 `json:"max_per_ton"`
	Currency  string  `json:"currency,omitempty"`
}

// PriceQuery is one edit of the price-estimation inputs.
type PriceQuery struct {
	WasteType       string  `json:"waste_type"`
	Quantity        float64 `json:"quantity"`
	LocationPincode string  `json:"location_pincode"`
}

// PriceEstimate is the inference service's valuation answer.
type PriceEstimate struct {
	EstimatedPricePerTon float64            `json:"estimated_price_per_ton"`
	TotalValue           float64            `json:"total_value"`
	ConfidenceScore      float64            `json:"confidence_score"`
	SustainabilityImpact map[string]float64 `json:"sustainability_impact,omitempty"`
}

// LeaderboardEntry is one ranked farmer on the green-score board.
type LeaderboardEntry struct {
	ID            string `json:"id"`
	Rank          int    `json:"rank"`
	Name          string `json:"name"`
	Location      string `json:"location,omitempty"`
	GreenScore    int    `json:"green_score"`
	CO2Saved      string `json:"co2_saved,omitempty"`
	WasteRecycled string `json:"waste_recycled,omitempty"`
	Badge         string `json:"badge,omitempty"`
}

// Leaderboard is the full board plus the caller's own rank row.
type Leaderboard struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	UserRank    LeaderboardEntry   `json:"user_rank"`
}

// GreenStats are locally computed per-farmer aggregates.
type GreenStats struct {
	Phone          string  `json:"-"`
	TonsListed     float64 `json:"tons_listed"`
	TonsSold       float64 `json:"tons_sold"`
	CO2SavedKg     float64 `json:"co2_saved_kg"`
	GreenScore     int     `json:"green_score"`
	ActiveListings int     `json:"active_listings"`
}
