/*
This file fetches live USD prices from the Pyth Hermes price service.

A portfolio needs one price per distinct token. Lookups are deduplicated by symbol
and fanned out with bounded concurrency under a single deadline; a symbol whose
lookup fails or times out gets a failed Result, never an error for the whole batch.
*/

package datafetcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aptomizer/core/internal/logger"
	"github.com/aptomizer/core/internal/types"
	"golang.org/x/sync/errgroup"
)

var priceLogger = logger.GetForComponent("price_retriever")

var ErrPriceFeedNotFound = errors.New("no price feed found")
var ErrInvalidPriceData = errors.New("invalid price data received")

// PriceSource looks up the USD price of a token symbol.
type PriceSource interface {
	TokenPrice(ctx context.Context, symbol string) (types.TokenPrice, error)
}

// HermesClient is a PriceSource backed by Pyth Hermes.
type HermesClient struct {
	client  *http.Client
	baseURL string
}

// NewHermesClient returns a client for the Hermes service at baseURL, e.g. https://hermes.pyth.network.
func NewHermesClient(client *http.Client, baseURL string) *HermesClient {
	return &HermesClient{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type hermesFeed struct {
	ID         string `json:"id"`
	Attributes struct {
		Base          string `json:"base"`
		QuoteCurrency string `json:"quote_currency"`
		Symbol        string `json:"symbol"`
	} `json:"attributes"`
}

type hermesLatest struct {
	Parsed []struct {
		ID    string `json:"id"`
		Price struct {
			Price       string `json:"price"`
			Conf        string `json:"conf"`
			Expo        int    `json:"expo"`
			PublishTime int64  `json:"publish_time"`
		} `json:"price"`
	} `json:"parsed"`
}

// FeedID finds the USD feed whose base asset is symbol. If no feed matches the
// base exactly, the first USD feed of the search is used.
func (h *HermesClient) FeedID(ctx context.Context, symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	endpoint := fmt.Sprintf("%s/v2/price_feeds?query=%s&asset_type=crypto", h.baseURL, url.QueryEscape(symbol))

	var feeds []hermesFeed
	if err := getJSON(ctx, h.client, endpoint, nil, &feeds); err != nil {
		return "", err
	}

	fallback := ""
	for _, feed := range feeds {
		if !strings.EqualFold(feed.Attributes.QuoteCurrency, "USD") {
			continue
		}
		if strings.EqualFold(feed.Attributes.Base, symbol) {
			return feed.ID, nil
		}
		if fallback == "" {
			fallback = feed.ID
		}
	}
	if fallback == "" {
		return "", fmt.Errorf("%w for %s", ErrPriceFeedNotFound, symbol)
	}
	return fallback, nil
}

// TokenPrice implements PriceSource.
func (h *HermesClient) TokenPrice(ctx context.Context, symbol string) (types.TokenPrice, error) {
	feedID, err := h.FeedID(ctx, symbol)
	if err != nil {
		return types.TokenPrice{}, err
	}

	endpoint := fmt.Sprintf("%s/v2/updates/price/latest?ids[]=%s", h.baseURL, url.QueryEscape(feedID))
	var latest hermesLatest
	if err := getJSON(ctx, h.client, endpoint, nil, &latest); err != nil {
		return types.TokenPrice{}, err
	}
	if len(latest.Parsed) == 0 {
		return types.TokenPrice{}, fmt.Errorf("%w: no parsed price for %s", ErrInvalidPriceData, symbol)
	}

	raw := latest.Parsed[0].Price
	mantissa, err := strconv.ParseFloat(raw.Price, 64)
	if err != nil {
		return types.TokenPrice{}, fmt.Errorf("%w: price %q for %s: %w", ErrInvalidPriceData, raw.Price, symbol, err)
	}
	price := mantissa * math.Pow10(raw.Expo)
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return types.TokenPrice{}, fmt.Errorf("%w: price %f for %s", ErrInvalidPriceData, price, symbol)
	}

	return types.TokenPrice{Symbol: strings.ToUpper(symbol), FeedID: feedID, Price: price}, nil
}

// PriceSourceName returns the warning source name of a symbol's price.
func PriceSourceName(symbol string) string {
	return "price:" + strings.ToUpper(symbol)
}

// FetchPrices looks up every distinct symbol at most once, with at most
// concurrency requests in flight, all bounded by timeout. The result is keyed
// by uppercased symbol and holds one Result per distinct symbol.
func FetchPrices(ctx context.Context, source PriceSource, symbols []string, concurrency int, timeout time.Duration) map[string]Result[float64] {
	unique := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, symbol := range symbols {
		key := strings.ToUpper(strings.TrimSpace(symbol))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, key)
	}

	if concurrency < 1 {
		concurrency = 1
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	results := make([]Result[float64], len(unique))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, symbol := range unique {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Fail[float64](PriceSourceName(symbol), err)
				return nil
			}
			quote, err := source.TokenPrice(ctx, symbol)
			if err != nil {
				priceLogger.Warn().Err(err).Str("symbol", symbol).Msg("Price lookup failed")
				results[i] = Fail[float64](PriceSourceName(symbol), err)
				return nil
			}
			results[i] = Ok(PriceSourceName(symbol), quote.Price)
			return nil
		})
	}
	_ = g.Wait()

	priceLogger.Debug().
		Int("requested", len(symbols)).
		Int("distinct", len(unique)).
		Int("concurrency", concurrency).
		Msg("Price fan-out finished")

	out := make(map[string]Result[float64], len(unique))
	for i, symbol := range unique {
		out[symbol] = results[i]
	}
	return out
}
