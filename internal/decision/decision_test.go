package decision

import (
	"reflect"
	"strings"
	"testing"

	"pricesight/internal/models"
)

func TestParseClampsAndDefaults(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want models.DecisionPayload
	}{
		{
			name: "out of range score and lowercase recommendation",
			raw:  `{"score": 150, "recommendation": "buy"}`,
			want: models.DecisionPayload{
				Score: 100, Category: "Altro", Recommendation: models.RecommendBuy,
				RedFlags: []string{}, Analyzed: true,
			},
		},
		{
			name: "score below range",
			raw:  `{"score": -10, "recommendation": "WATCH"}`,
			want: models.DecisionPayload{
				Score: 1, Category: "Altro", Recommendation: models.RecommendWatch,
				RedFlags: []string{}, Analyzed: true,
			},
		},
		{
			name: "missing score defaults then unknown recommendation",
			raw:  `{"recommendation": "MAYBE"}`,
			want: models.DecisionPayload{
				Score: 50, Category: "Altro", Recommendation: models.RecommendSkip,
				RedFlags: []string{}, Analyzed: true,
			},
		},
		{
			name: "non numeric score defaults",
			raw:  `{"score": "alto", "recommendation": "SKIP"}`,
			want: models.DecisionPayload{
				Score: 50, Category: "Altro", Recommendation: models.RecommendSkip,
				RedFlags: []string{}, Analyzed: true,
			},
		},
		{
			name: "full payload passes through",
			raw: `{"score": 85.7, "category": "Gaming", "brand": "Nintendo", "model": "HAC-001",
				"estimated_value_min": 180, "estimated_value_max": 220, "margin_percentage": 45.5,
				"recommendation": "BUY", "reasoning": "prezzo sotto mercato",
				"red_flags": ["foto generiche"], "selling_tips": "vendi con foto reali"}`,
			want: models.DecisionPayload{
				Score: 85, Category: "Gaming", Brand: "Nintendo", Model: "HAC-001",
				EstimatedValueMin: 180, EstimatedValueMax: 220, MarginPercentage: 45.5,
				Recommendation: models.RecommendBuy, Reasoning: "prezzo sotto mercato",
				RedFlags: []string{"foto generiche"}, SellingTips: "vendi con foto reali",
				Analyzed: true,
			},
		},
		{
			name: "negative monetary values floored",
			raw:  `{"estimated_value_min": -5, "estimated_value_max": -1}`,
			want: models.DecisionPayload{
				Score: 50, Category: "Altro", Recommendation: models.RecommendSkip,
				RedFlags: []string{}, Analyzed: true,
			},
		},
		{
			name: "inverted value bounds tolerated",
			raw:  `{"estimated_value_min": 200, "estimated_value_max": 100}`,
			want: models.DecisionPayload{
				Score: 50, Category: "Altro", EstimatedValueMin: 200, EstimatedValueMax: 100,
				Recommendation: models.RecommendSkip, RedFlags: []string{}, Analyzed: true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) =\n%+v\nwant\n%+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"score\": 70, \"recommendation\": \"WATCH\"}\n```"
	got := Parse(raw)
	if got.Score != 70 || got.Recommendation != models.RecommendWatch || !got.Analyzed {
		t.Errorf("fenced payload = %+v", got)
	}

	raw = "```\n{\"score\": 30}\n```"
	if got := Parse(raw); got.Score != 30 {
		t.Errorf("bare fence payload = %+v", got)
	}
}

func TestParseFallbackOnGarbage(t *testing.T) {
	got := Parse("not json")
	if got.Score != 0 || got.Recommendation != models.RecommendSkip || got.Analyzed {
		t.Errorf("fallback = %+v", got)
	}
	if !strings.Contains(got.Reasoning, "Analisi non disponibile") {
		t.Errorf("fallback reasoning = %q", got.Reasoning)
	}
	if got.RedFlags == nil || len(got.RedFlags) != 0 {
		t.Errorf("fallback red flags = %#v", got.RedFlags)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(Listing{
		Title: "Nintendo Switch OLED", Price: 180, Condition: "usato",
	}, "DATI DI MERCATO per 'nintendo switch':")

	for _, want := range []string{
		"- Titolo: Nintendo Switch OLED",
		"- Descrizione: Non disponibile",
		"- Prezzo richiesto: €180",
		"- Località: Non specificata",
		"- Condizione: usato",
		"DATI DI MERCATO per 'nintendo switch':",
		`"recommendation": "<BUY|SKIP|WATCH>"`,
		"Rispondi SOLO con il JSON",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptWithoutMarketData(t *testing.T) {
	prompt := BuildPrompt(Listing{Title: "Radio vintage", Price: 25}, "")
	if !strings.Contains(prompt, "⚠️ Nessun dato di mercato disponibile") {
		t.Error("missing no-data notice")
	}
}
