package decision

import (
	"fmt"
	"strings"
)

// Listing is the subject of an analysis prompt.
type Listing struct {
	Title       string
	Description string
	Price       float64
	Location    string
	Condition   string
}

// BuildPrompt renders the analysis prompt for one listing, embedding the
// market-data context produced by the research coordinator. The reply format
// requested here is what Parse expects back.
func BuildPrompt(l Listing, marketContext string) string {
	description := l.Description
	if description == "" {
		description = "Non disponibile"
	}
	location := l.Location
	if location == "" {
		location = "Non specificata"
	}
	condition := l.Condition
	if condition == "" {
		condition = "Non specificata"
	}

	marketSection := "\n⚠️ Nessun dato di mercato disponibile - usa la tua conoscenza dei prezzi.\n"
	if marketContext != "" {
		marketSection = "\n" + marketContext + "\n"
	}

	var b strings.Builder
	b.WriteString("Sei un esperto di arbitraggio online. Analizza questo annuncio e valuta se è un'opportunità di profitto per rivenderlo su eBay/Vinted.\n\n")
	b.WriteString("ANNUNCIO:\n")
	fmt.Fprintf(&b, "- Titolo: %s\n", l.Title)
	fmt.Fprintf(&b, "- Descrizione: %s\n", description)
	fmt.Fprintf(&b, "- Prezzo richiesto: €%g\n", l.Price)
	fmt.Fprintf(&b, "- Località: %s\n", location)
	fmt.Fprintf(&b, "- Condizione: %s\n", condition)
	b.WriteString(marketSection)
	b.WriteString(`ANALIZZA E RISPONDI IN JSON:
{
    "score": <1-100, dove 100 = opportunità eccezionale>,
    "category": "<categoria merceologica>",
    "brand": "<marca se identificabile, altrimenti null>",
    "model": "<modello se identificabile, altrimenti null>",
    "estimated_value_min": <prezzo minimo di rivendita stimato in EUR>,
    "estimated_value_max": <prezzo massimo di rivendita stimato in EUR>,
    "margin_percentage": <margine % potenziale>,
    "recommendation": "<BUY|SKIP|WATCH>",
    "reasoning": "<spiegazione breve in italiano>",
    "red_flags": ["<eventuali segnali di allarme>"],
    "selling_tips": "<consigli per la rivendita>"
}

CRITERI DI VALUTAZIONE:
- Score 80-100: Margine >40%, prodotto richiesto, facile da vendere
- Score 60-79: Margine 25-40%, buona opportunità
- Score 40-59: Margine 15-25%, rischio medio
- Score <40: Margine basso o rischio alto, SKIP

Considera:
1. Prezzo di mercato su eBay per prodotti simili VENDUTI (non in vendita)
2. Domanda del prodotto
3. Facilità di spedizione
4. Rischio di contraffazione
5. Stagionalità

Rispondi SOLO con il JSON, nessun altro testo.`)
	return b.String()
}
