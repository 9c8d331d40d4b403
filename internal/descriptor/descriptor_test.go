package descriptor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokewatch/stockworker/internal/status"
)

func testDescriptor() StoreDescriptor {
	return StoreDescriptor{
		SellerID:   "test_seller",
		Name:       "Test Seller",
		BaseURL:    "https://shop.example.com",
		SearchURL:  "https://shop.example.com/search?q={query}",
		ProductURL: "https://shop.example.com/products/{sku}",
		NameRules:  []string{"h1"},
		PriceRules: []string{".price"},
		Indicators: status.Indicators{
			OutOfStock: []string{"sold out"},
			InStock:    []string{"add to cart"},
		},
	}
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testDescriptor()))

	d, err := r.Resolve("test_seller")
	require.NoError(t, err)
	assert.Equal(t, "test_seller", d.SellerID)
	assert.Equal(t, FetchHTTP, d.Fetch, "fetch kind should default to http")
	assert.NotZero(t, d.BlockTTL, "block TTL should get a default")
}

func TestRegistryResolveUnknownSeller(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownSeller))
	assert.Contains(t, err.Error(), "nope")
}

func TestRegistryResolveReturnsCopy(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testDescriptor()))

	d1, err := r.Resolve("test_seller")
	require.NoError(t, err)
	d1.NameRules[0] = "mutated"
	d1.Name = "Mutated"

	d2, err := r.Resolve("test_seller")
	require.NoError(t, err)
	assert.Equal(t, "h1", d2.NameRules[0])
	assert.Equal(t, "Test Seller", d2.Name)
}

func TestRegistryReregisterReplaces(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testDescriptor()))

	updated := testDescriptor()
	updated.Name = "Renamed Seller"
	require.NoError(t, r.Register(updated))

	d, err := r.Resolve("test_seller")
	require.NoError(t, err)
	assert.Equal(t, "Renamed Seller", d.Name)
	assert.Equal(t, 1, r.Len())
}

func TestRegistrySellersSorted(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"zebra", "alpha", "mid"} {
		d := testDescriptor()
		d.SellerID = id
		require.NoError(t, r.Register(d))
	}

	assert.Equal(t, []string{"alpha", "mid", "zebra"}, r.Sellers())
}

func TestRegistryMatchURL(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(testDescriptor()))

	d, ok := r.MatchURL("https://shop.example.com/products/booster-box")
	assert.True(t, ok)
	assert.Equal(t, "test_seller", d.SellerID)

	_, ok = r.MatchURL("https://other.example.com/products/x")
	assert.False(t, ok)
}

func TestDescriptorValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*StoreDescriptor)
		wantErr string
	}{
		{
			name:   "valid descriptor",
			mutate: func(d *StoreDescriptor) {},
		},
		{
			name:    "missing seller id",
			mutate:  func(d *StoreDescriptor) { d.SellerID = "" },
			wantErr: "seller_id",
		},
		{
			name:    "missing base url",
			mutate:  func(d *StoreDescriptor) { d.BaseURL = "" },
			wantErr: "base_url",
		},
		{
			name:    "missing name rules",
			mutate:  func(d *StoreDescriptor) { d.NameRules = nil },
			wantErr: "name rules",
		},
		{
			name: "feed without feed url",
			mutate: func(d *StoreDescriptor) {
				d.Fetch = FetchFeed
				d.FeedURL = ""
			},
			wantErr: "feed_url",
		},
		{
			name:    "unknown fetch kind",
			mutate:  func(d *StoreDescriptor) { d.Fetch = "carrier-pigeon" },
			wantErr: "unknown fetch kind",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := testDescriptor()
			d.applyDefaults()
			tc.mutate(&d)

			err := d.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestRelevanceMatch(t *testing.T) {
	rel := Relevance{
		Include: []string{"pokemon", "booster"},
		Exclude: []string{"nintendo switch"},
	}

	testCases := []struct {
		name    string
		product string
		want    bool
	}{
		{"include keyword", "Pokemon TCG Scarlet & Violet Booster Box", true},
		{"include keyword case insensitive", "POKEMON 151 Elite Trainer Box", true},
		{"no include keyword", "Magic The Gathering Bundle", false},
		{"exclude beats include", "Pokemon Scarlet for Nintendo Switch", false},
		{"empty name", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, rel.Match(tc.product))
		})
	}

	// Empty include list accepts everything not excluded
	open := Relevance{Exclude: []string{"plush"}}
	assert.True(t, open.Match("Anything At All"))
	assert.False(t, open.Match("Pikachu Plush"))
}

func TestURLTemplates(t *testing.T) {
	d := testDescriptor()

	assert.Equal(t,
		"https://shop.example.com/search?q=pokemon+booster",
		d.SearchURLFor("pokemon booster"))
	assert.Equal(t,
		"https://shop.example.com/products/sv-151-etb",
		d.ProductURLFor("sv-151-etb"))

	empty := StoreDescriptor{}
	assert.Equal(t, "", empty.SearchURLFor("x"))
	assert.Equal(t, "", empty.ProductURLFor("x"))
}

func TestBuiltinRegistersClean(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, RegisterBuiltin(r))

	sellers := r.Sellers()
	assert.GreaterOrEqual(t, len(sellers), 10)
	assert.Contains(t, sellers, "eb_games")
	assert.Contains(t, sellers, "the_warehouse")
	assert.Contains(t, sellers, "pokemon_center")
	assert.Contains(t, sellers, "card_merchant")

	feed, err := r.Resolve("card_merchant")
	require.NoError(t, err)
	assert.Equal(t, FetchFeed, feed.Fetch)
	assert.NotEmpty(t, feed.FeedURL)

	browser, err := r.Resolve("pokemon_center")
	require.NoError(t, err)
	assert.Equal(t, FetchBrowser, browser.Fetch)
}

func TestLoadFile(t *testing.T) {
	content := `sellers:
  - seller_id: hobby_hut
    name: Hobby Hut
    base_url: https://hobbyhut.example.com
    search_url: https://hobbyhut.example.com/search?q={query}
    item_container: ".product"
    name_rules: ["h1", ".title"]
    price_rules: [".price"]
    indicators:
      out_of_stock: ["sold out"]
      in_stock: ["add to cart"]
    relevance:
      include: ["pokemon"]
  - seller_id: eb_games
    name: EB Games Override
    base_url: https://www.ebgames.co.nz
    name_rules: ["h1"]
`
	path := filepath.Join(t.TempDir(), "sellers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r := NewRegistry()
	require.NoError(t, RegisterBuiltin(r))

	n, err := LoadFile(path, r)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	d, err := r.Resolve("hobby_hut")
	require.NoError(t, err)
	assert.Equal(t, "Hobby Hut", d.Name)
	assert.Equal(t, []string{"h1", ".title"}, d.NameRules)
	assert.Equal(t, []string{"sold out"}, d.Indicators.OutOfStock)

	// File entry overrides the builtin with the same ID
	eb, err := r.Resolve("eb_games")
	require.NoError(t, err)
	assert.Equal(t, "EB Games Override", eb.Name)
}

func TestLoadFileErrors(t *testing.T) {
	r := NewRegistry()

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), r)
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(":\n  - ["), 0o644))
	_, err = LoadFile(bad, r)
	assert.Error(t, err)
}
