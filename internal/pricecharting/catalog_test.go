package pricecharting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
)

type fakeFetcher struct {
	doc     string
	err     error
	lastURL string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (string, error) {
	f.lastURL = rawURL
	return f.doc, f.err
}

func TestIsApplicable(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{"Nintendo Switch OLED", true},
		{"gioco PS5 sigillato", true},
		{"Super Mario Odyssey", true},
		{"Set LEGO Star Wars 75192", true},
		{"Lavatrice Bosch Serie 6", false},
		{"iPhone 13 Pro 128GB", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsApplicable(tt.title); got != tt.want {
			t.Errorf("IsApplicable(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func catalogRow(href, name string, prices ...string) string {
	row := fmt.Sprintf(`<tr><td class="title"><a href="%s">%s</a></td>`, href, name)
	for _, p := range prices {
		row += fmt.Sprintf(`<td><span class="js-price">%s</span></td>`, p)
	}
	return row + "</tr>"
}

func catalogDoc(rows ...string) string {
	return `<html><body><table id="games_table"><tr><th>Title</th><th>Loose</th></tr>` +
		strings.Join(rows, "") + `</table></body></html>`
}

func TestSearchParsesTiers(t *testing.T) {
	doc := catalogDoc(
		catalogRow("/game/nintendo-switch/super-mario-odyssey", "Super Mario Odyssey",
			"$25.00", "$40.00", "$60.00"),
	)
	f := &fakeFetcher{doc: doc}
	c := New(f)

	res, err := c.Search(context.Background(), "super mario odyssey")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(res.Products))
	}

	p := res.Products[0]
	if p.ProductName != "Super Mario Odyssey" {
		t.Errorf("name = %q", p.ProductName)
	}
	if p.Console != "Nintendo Switch" {
		t.Errorf("console = %q, want Nintendo Switch", p.Console)
	}
	if p.ProductID != "super-mario-odyssey" {
		t.Errorf("product id = %q", p.ProductID)
	}
	if !strings.HasPrefix(p.URL, "https://") {
		t.Errorf("url not absolute: %q", p.URL)
	}
	if p.LoosePrice == nil || *p.LoosePrice != 25 {
		t.Errorf("loose = %v, want 25", p.LoosePrice)
	}
	if p.CIBPrice == nil || *p.CIBPrice != 40 {
		t.Errorf("cib = %v, want 40", p.CIBPrice)
	}
	if p.NewPrice == nil || *p.NewPrice != 60 {
		t.Errorf("new = %v, want 60", p.NewPrice)
	}
	if p.LooseEUR == nil || math.Abs(*p.LooseEUR-23) > 1e-9 {
		t.Errorf("loose EUR = %v, want 23", p.LooseEUR)
	}
}

func TestSearchSkipsMissingTiers(t *testing.T) {
	doc := catalogDoc(
		catalogRow("/game/gameboy/tetris", "Tetris", "$12.50"),
	)
	c := New(&fakeFetcher{doc: doc})

	res, err := c.Search(context.Background(), "tetris")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	p := res.Products[0]
	if p.LoosePrice == nil || *p.LoosePrice != 12.5 {
		t.Errorf("loose = %v, want 12.5", p.LoosePrice)
	}
	if p.CIBPrice != nil || p.NewPrice != nil {
		t.Errorf("expected nil cib/new tiers, got %v / %v", p.CIBPrice, p.NewPrice)
	}
}

func TestSearchCapsProducts(t *testing.T) {
	var rows []string
	for i := 0; i < 8; i++ {
		rows = append(rows, catalogRow(
			fmt.Sprintf("/game/wii/title-%d", i), fmt.Sprintf("Title %d", i), "$10.00"))
	}
	c := New(&fakeFetcher{doc: catalogDoc(rows...)})

	res, err := c.Search(context.Background(), "wii")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Products) != maxProducts {
		t.Errorf("expected %d products, got %d", maxProducts, len(res.Products))
	}
}

func TestSearchBuildsQueryURL(t *testing.T) {
	f := &fakeFetcher{doc: catalogDoc()}
	c := New(f)

	if _, err := c.Search(context.Background(), "  zelda breath of the wild "); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !strings.Contains(f.lastURL, "q=zelda+breath+of+the+wild") {
		t.Errorf("query not encoded: %q", f.lastURL)
	}
	if !strings.Contains(f.lastURL, "search-products") {
		t.Errorf("unexpected path: %q", f.lastURL)
	}
}

func TestSearchPropagatesFetchError(t *testing.T) {
	c := New(&fakeFetcher{err: errors.New("proxy down")})
	if _, err := c.Search(context.Background(), "mario"); err == nil {
		t.Fatal("expected error from failing fetcher")
	}
}

func TestSearchNoTable(t *testing.T) {
	c := New(&fakeFetcher{doc: "<html><body>no results</body></html>"})
	res, err := c.Search(context.Background(), "mario")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Products) != 0 {
		t.Errorf("expected no products, got %d", len(res.Products))
	}
}
