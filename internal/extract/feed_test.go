package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokewatch/stockworker/internal/descriptor"
	"pokewatch/stockworker/internal/status"
)

func feedDescriptor() descriptor.StoreDescriptor {
	return descriptor.StoreDescriptor{
		SellerID: "card_merchant",
		BaseURL:  "https://cards.example.co.nz",
		FeedURL:  "https://cards.example.co.nz/collections/pokemon-sealed.json",
		Fetch:    descriptor.FetchFeed,
	}
}

const feedJSON = `{
  "collection": {
    "products": [
      {
        "id": 101,
        "title": "Pokemon Scarlet & Violet Booster Box",
        "handle": "sv-booster-box",
        "variants": [
          {"id": 9001, "title": "Default Title", "price": "23999", "available": true}
        ]
      },
      {
        "id": 102,
        "title": "Pokemon 151 Elite Trainer Box",
        "handle": "151-etb",
        "variants": [
          {"id": 9002, "title": "Default Title", "price": "8999", "available": false}
        ]
      },
      {
        "id": 103,
        "title": "Pokemon Paldean Fates Tins",
        "handle": "paldean-fates-tin",
        "variants": [
          {"id": 9003, "title": "Great Tusk", "price": "4499", "available": true},
          {"id": 9004, "title": "Iron Treads", "price": "4499", "available": false}
        ]
      }
    ]
  }
}`

func TestExtractFeed(t *testing.T) {
	records := ExtractFeed(feedJSON, feedDescriptor())
	require.Len(t, records, 4)

	boosterBox := records[0]
	assert.Equal(t, "Pokemon Scarlet & Violet Booster Box", boosterBox.Name)
	assert.Equal(t, "sv-booster-box", boosterBox.Key)
	assert.Equal(t, status.InStock, boosterBox.Status)
	assert.True(t, boosterBox.FromFeed)
	require.NotNil(t, boosterBox.Price)
	assert.InDelta(t, 239.99, *boosterBox.Price, 0.001)
	assert.Equal(t,
		"https://cards.example.co.nz/collections/pokemon-sealed/products/sv-booster-box",
		boosterBox.URL)

	etb := records[1]
	assert.Equal(t, status.OutOfStock, etb.Status)
	require.NotNil(t, etb.Price)
	assert.InDelta(t, 89.99, *etb.Price, 0.001)
}

func TestExtractFeedVariantFanOut(t *testing.T) {
	records := ExtractFeed(feedJSON, feedDescriptor())
	require.Len(t, records, 4)

	tusk := records[2]
	treads := records[3]
	assert.Equal(t, "paldean-fates-tin-9003", tusk.Key)
	assert.Equal(t, "Pokemon Paldean Fates Tins (Great Tusk)", tusk.Name)
	assert.Equal(t, status.InStock, tusk.Status)
	assert.Equal(t, "paldean-fates-tin-9004", treads.Key)
	assert.Equal(t, status.OutOfStock, treads.Status)
}

func TestExtractFeedTopLevelProducts(t *testing.T) {
	content := `{"products": [
		{"id": 1, "title": "Pokemon Surging Sparks Bundle", "handle": "surging-sparks",
		 "variants": [{"id": 5, "price": "5999"}]}
	]}`

	records := ExtractFeed(content, feedDescriptor())
	require.Len(t, records, 1)
	assert.Equal(t, "surging-sparks", records[0].Key)
	// no availability flag on a listed product means in stock
	assert.Equal(t, status.InStock, records[0].Status)
}

func TestExtractFeedRelevance(t *testing.T) {
	d := feedDescriptor()
	d.Relevance = descriptor.Relevance{Include: []string{"booster"}}

	records := ExtractFeed(feedJSON, d)
	require.Len(t, records, 1)
	assert.Equal(t, "sv-booster-box", records[0].Key)
}

func TestExtractFeedBadContent(t *testing.T) {
	d := feedDescriptor()

	assert.Nil(t, ExtractFeed("", d))
	assert.Nil(t, ExtractFeed("<html>not json</html>", d))
	assert.Nil(t, ExtractFeed(`{"collection": "wrong shape"}`, d))
	assert.Empty(t, ExtractFeed(`{"products": []}`, d))
}

func TestExtractDispatchesFeedKind(t *testing.T) {
	records := Extract(feedJSON, feedDescriptor())
	assert.Len(t, records, 4)
}
