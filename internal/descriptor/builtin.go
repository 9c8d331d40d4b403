package descriptor

import "pokewatch/stockworker/internal/status"

// pokemonRelevance keeps general retailers down to TCG sealed product.
// Dedicated card stores register with an empty filter instead.
var pokemonRelevance = Relevance{
	Include: []string{
		"pokemon", "pokémon", "tcg", "trading card", "booster",
		"elite trainer", "pack", "pikachu", "charizard", "deck", "collection",
	},
}

// nzIndicators covers the stock phrasing most NZ storefronts share.
var nzIndicators = status.Indicators{
	OutOfStock: []string{"sold out", "out of stock", "unavailable"},
	Preorder:   []string{"pre-order", "preorder", "pre order"},
	InStock:    []string{"add to cart", "in stock", "buy now"},
}

// Builtin returns the descriptors for the sellers monitored out of the box.
func Builtin() []StoreDescriptor {
	return []StoreDescriptor{
		{
			SellerID:      "nova_games",
			Name:          "Nova Games",
			BaseURL:       "https://www.novagames.co.nz",
			SearchURL:     "https://www.novagames.co.nz/search?q={query}",
			ProductURL:    "https://www.novagames.co.nz/products/{sku}",
			ItemContainer: ".product-card, .grid__item",
			NameRules:     []string{"h1.product-single__title", "h1", ".product-card__title"},
			PriceRules:    []string{".price-item--regular", ".price", `[class*="price"]`},
			LinkRule:      "a",
			Indicators:    nzIndicators,
			Relevance:     pokemonRelevance,
		},
		{
			SellerID:      "eb_games",
			Name:          "EB Games",
			BaseURL:       "https://www.ebgames.co.nz",
			SearchURL:     "https://www.ebgames.co.nz/search?q={query}",
			ProductURL:    "https://www.ebgames.co.nz/product/{sku}",
			ItemContainer: ".product-tile",
			NameRules:     []string{"h1.product-name", "h1", ".product-tile__title"},
			PriceRules:    []string{".price", ".product-price", `[class*="price"]`},
			LinkRule:      "a",
			Indicators: status.Indicators{
				OutOfStock: []string{"sold out", "out of stock", "unavailable online"},
				Preorder:   []string{"pre-order", "preorder"},
				InStock:    []string{"add to cart", "in stock"},
			},
			Relevance: Relevance{
				Include: pokemonRelevance.Include,
				Exclude: []string{"nintendo switch", "ps4", "ps5", "xbox"},
			},
		},
		{
			SellerID:      "the_warehouse",
			Name:          "The Warehouse",
			BaseURL:       "https://www.thewarehouse.co.nz",
			SearchURL:     "https://www.thewarehouse.co.nz/search?q={query}",
			ProductURL:    "https://www.thewarehouse.co.nz/p/{sku}",
			ItemContainer: ".product-tile",
			NameRules:     []string{"h1.product-name", "h1", ".product-tile__name"},
			PriceRules:    []string{".sales .value", ".price", `[class*="price"]`},
			LinkRule:      "a",
			Indicators: status.Indicators{
				OutOfStock: []string{"out of stock", "sold out", "not available"},
				Preorder:   []string{"pre-order", "preorder"},
				InStock:    []string{"add to cart", "in stock", "available"},
			},
			Relevance: pokemonRelevance,
		},
		{
			SellerID:      "jb_hifi",
			Name:          "JB Hi-Fi",
			BaseURL:       "https://www.jbhifi.co.nz",
			SearchURL:     "https://www.jbhifi.co.nz/search?query={query}",
			ProductURL:    "https://www.jbhifi.co.nz/products/{sku}",
			ItemContainer: ".product-tile, [data-testid=product-card]",
			NameRules:     []string{"h1", ".product-tile__title"},
			PriceRules:    []string{".price", `[class*="PriceTag"]`, `[class*="price"]`},
			LinkRule:      "a",
			Indicators: status.Indicators{
				OutOfStock: []string{"sold out", "out of stock"},
				Preorder:   []string{"pre-order", "preorder", "coming soon"},
				InStock:    []string{"add to cart", "in stock"},
			},
			Relevance: Relevance{
				Include: pokemonRelevance.Include,
				Exclude: []string{"nintendo switch", "video game"},
			},
		},
		{
			SellerID:      "kmart",
			Name:          "Kmart",
			BaseURL:       "https://www.kmart.co.nz",
			SearchURL:     "https://www.kmart.co.nz/search/?q={query}",
			ProductURL:    "https://www.kmart.co.nz/product/{sku}",
			ItemContainer: ".product-card",
			NameRules:     []string{"h1", ".product-card__title"},
			PriceRules:    []string{".price", `[class*="price"]`},
			LinkRule:      "a",
			Indicators:    nzIndicators,
			Relevance:     pokemonRelevance,
		},
		{
			SellerID:      "farmers",
			Name:          "Farmers",
			BaseURL:       "https://www.farmers.co.nz",
			SearchURL:     "https://www.farmers.co.nz/search?q={query}",
			ProductURL:    "https://www.farmers.co.nz/product/{sku}",
			ItemContainer: ".product-item",
			NameRules:     []string{"h1", ".product-item__title"},
			PriceRules:    []string{".price", ".product-price", `[class*="price"]`},
			LinkRule:      "a",
			Indicators:    nzIndicators,
			Relevance:     pokemonRelevance,
		},
		{
			SellerID:      "pokemon_center",
			Name:          "Pokemon Center",
			BaseURL:       "https://www.pokemoncenter.com",
			SearchURL:     "https://www.pokemoncenter.com/search/{query}",
			ProductURL:    "https://www.pokemoncenter.com/product/{sku}",
			Fetch:         FetchBrowser,
			ItemContainer: `[class*="product-grid-item"]`,
			NameRules:     []string{"h1", `[class*="product-title"]`},
			PriceRules:    []string{`[class*="product-price"]`, ".price"},
			LinkRule:      "a",
			Indicators: status.Indicators{
				OutOfStock: []string{"sold out", "out of stock"},
				Preorder:   []string{"pre-order", "coming soon"},
				InStock:    []string{"add to cart"},
			},
		},
		{
			SellerID:      "best_buy",
			Name:          "Best Buy",
			BaseURL:       "https://www.bestbuy.com",
			SearchURL:     "https://www.bestbuy.com/site/searchpage.jsp?st={query}",
			ProductURL:    "https://www.bestbuy.com/site/{sku}.p",
			ItemContainer: ".sku-item",
			NameRules:     []string{"h1", "h4.sku-title"},
			PriceRules:    []string{`[data-testid="customer-price"]`, ".priceView-customer-price span", ".price"},
			LinkRule:      "a",
			Indicators: status.Indicators{
				OutOfStock: []string{"sold out", "unavailable"},
				Preorder:   []string{"pre-order", "preorder", "coming soon"},
				InStock:    []string{"add to cart"},
			},
			Relevance: pokemonRelevance,
		},
		{
			SellerID:      "target",
			Name:          "Target",
			BaseURL:       "https://www.target.com",
			SearchURL:     "https://www.target.com/s?searchTerm={query}",
			ProductURL:    "https://www.target.com/p/-/A-{sku}",
			ItemContainer: `[data-test="product-card"]`,
			NameRules:     []string{"h1", `[data-test="product-title"]`},
			PriceRules:    []string{`[data-test="product-price"]`, ".price", `[class*="price"]`},
			LinkRule:      "a",
			Indicators: status.Indicators{
				OutOfStock: []string{"sold out", "out of stock"},
				Preorder:   []string{"preorder", "pre-order"},
				InStock:    []string{"add to cart", "pick it up", "shipping"},
			},
			Relevance: pokemonRelevance,
		},
		{
			SellerID: "card_merchant",
			Name:     "Card Merchant",
			BaseURL:  "https://cardmerchant.co.nz",
			FeedURL:  "https://cardmerchant.co.nz/collections/pokemon-sealed.json",
			Fetch:    FetchFeed,
		},
	}
}

// RegisterBuiltin registers every builtin descriptor into the registry.
func RegisterBuiltin(r *Registry) error {
	for _, d := range Builtin() {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}
