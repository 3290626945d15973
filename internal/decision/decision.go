// Package decision validates the free-text JSON reply of an external language
// model into a bounded DecisionPayload. The model's output is treated as
// hostile input: every field is coerced and clamped, and a reply that cannot
// be parsed at all degrades to a deterministic SKIP payload rather than an
// error.
package decision

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"pricesight/internal/logger"
	"pricesight/internal/models"
)

const (
	minScore     = 1
	maxScore     = 100
	defaultScore = 50
)

// Parse validates a model reply into a DecisionPayload. Code-fence wrapping
// is stripped, each field is coerced with a per-field default, and the score
// is clamped into range. Malformed JSON yields the fallback payload with the
// cause embedded in the reasoning; Parse never returns an error.
func Parse(raw string) models.DecisionPayload {
	content := stripFences(raw)

	var fields map[string]any
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		logger.Warn("Decision: unparseable model reply: %v", err)
		return fallback(err)
	}

	return models.DecisionPayload{
		Score:             clampScore(asInt(fields["score"], defaultScore)),
		Category:          asString(fields["category"], "Altro"),
		Brand:             asString(fields["brand"], ""),
		Model:             asString(fields["model"], ""),
		EstimatedValueMin: nonNegative(asFloat(fields["estimated_value_min"], 0)),
		EstimatedValueMax: nonNegative(asFloat(fields["estimated_value_max"], 0)),
		MarginPercentage:  asFloat(fields["margin_percentage"], 0),
		Recommendation:    asRecommendation(fields["recommendation"]),
		Reasoning:         asString(fields["reasoning"], ""),
		RedFlags:          asStringList(fields["red_flags"]),
		SellingTips:       asString(fields["selling_tips"], ""),
		Analyzed:          true,
	}
}

func fallback(cause error) models.DecisionPayload {
	return models.DecisionPayload{
		Score:          0,
		Category:       "Sconosciuto",
		Recommendation: models.RecommendSkip,
		Reasoning:      fmt.Sprintf("Analisi non disponibile: %v", cause),
		RedFlags:       []string{},
		Analyzed:       false,
	}
}

// stripFences removes a markdown code fence (with optional json language tag)
// around the payload.
func stripFences(raw string) string {
	content := strings.TrimSpace(raw)
	if strings.HasPrefix(content, "```") {
		parts := strings.Split(content, "```")
		if len(parts) > 1 {
			content = parts[1]
		}
		content = strings.TrimPrefix(content, "json")
	}
	return strings.TrimSpace(content)
}

func clampScore(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func asRecommendation(v any) models.Recommendation {
	rec := models.Recommendation(strings.ToUpper(asString(v, "")))
	switch rec {
	case models.RecommendBuy, models.RecommendWatch, models.RecommendSkip:
		return rec
	}
	return models.RecommendSkip
}

func asInt(v any, def int) int {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		if f, err := n.Float64(); err == nil {
			return int(f)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return def
}

func asFloat(v any, def float64) float64 {
	switch n := v.(type) {
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return def
}

func asString(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

func asStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
