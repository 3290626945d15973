package models

// Recommendation is the action the decision engine suggests for a listing.
type Recommendation string

const (
	RecommendBuy   Recommendation = "BUY"
	RecommendWatch Recommendation = "WATCH"
	RecommendSkip  Recommendation = "SKIP"
)

// DecisionPayload is the validated, bounded decision record produced from the
// model's free-text JSON reply. Every field is already coerced into range by
// the decision parser; callers never see raw model output.
//
// EstimatedValueMax is not guaranteed to be >= EstimatedValueMin: the
// upstream model occasionally swaps them and consumers must tolerate it.
type DecisionPayload struct {
	Score             int            `json:"score"`
	Category          string         `json:"category"`
	Brand             string         `json:"brand,omitempty"`
	Model             string         `json:"model,omitempty"`
	EstimatedValueMin float64        `json:"estimated_value_min"`
	EstimatedValueMax float64        `json:"estimated_value_max"`
	MarginPercentage  float64        `json:"margin_percentage"`
	Recommendation    Recommendation `json:"recommendation"`
	Reasoning         string         `json:"reasoning"`
	RedFlags          []string       `json:"red_flags"`
	SellingTips       string         `json:"selling_tips"`
	Analyzed          bool           `json:"analyzed"`
}
