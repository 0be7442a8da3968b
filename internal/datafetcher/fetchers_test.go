package datafetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aptomizer/core/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultFold(t *testing.T) {
	var warnings Warnings

	assert.Equal(t, 3.5, Fold(Ok("price:APT", 3.5), 0, &warnings))
	assert.Empty(t, warnings.List())

	assert.Equal(t, 0.0, Fold(Fail[float64]("price:XYZ", errors.New("boom")), 0, &warnings))
	assert.Equal(t, []string{"price:XYZ unavailable: boom"}, warnings.List())

	assert.Equal(t, []string{"x"}, Fail[[]string]("list", errors.New("down")).Or([]string{"x"}))
}

func TestCoinBalancesFromResources(t *testing.T) {
	resources := []AccountResource{
		{Type: "0x1::account::Account", Data: json.RawMessage(`{"sequence_number":"3"}`)},
		{Type: "0x1::coin::CoinStore<0x1::aptos_coin::AptosCoin>", Data: json.RawMessage(`{"coin":{"value":"100000000"}}`)},
		{Type: "0x1::coin::CoinStore<" + usdcCoinType + ">", Data: json.RawMessage(`{"coin":{"value":"2500000"},"frozen":false}`)},
		{Type: "0x1::coin::CoinStore<0xabc::coin::ZERO>", Data: json.RawMessage(`{"coin":{"value":"0"}}`)},
		{Type: "0x1::coin::CoinStore<0xabc::coin::BAD>", Data: json.RawMessage(`"not an object"`)},
	}

	balances := CoinBalancesFromResources(resources)

	assert.Equal(t, []RawCoinBalance{{CoinType: usdcCoinType, RawAmount: "2500000"}}, balances)
}

func TestAptosClientNativeBalanceAndResources(t *testing.T) {
	const address = "0x00000000000000000000000000000000000000000000000000000000000000a1"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/view":
			var req ViewRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "0x1::coin::balance", req.Function)
			assert.Equal(t, []string{"0x1::aptos_coin::AptosCoin"}, req.TypeArguments)
			assert.Equal(t, []any{address}, req.Arguments)
			fmt.Fprint(w, `["150000000"]`)
		case r.Method == http.MethodGet && r.URL.Path == "/v1/accounts/"+address+"/resources":
			fmt.Fprintf(w, `[{"type":"0x1::coin::CoinStore<%s>","data":{"coin":{"value":"42"}}}]`, usdcCoinType)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewAptosClient(srv.Client(), srv.URL+"/")

	native := client.NativeBalance(context.Background(), address)
	require.True(t, native.OK(), "%v", native.Err)
	assert.Equal(t, "150000000", native.Value)

	coins := client.CoinBalances(context.Background(), address)
	require.True(t, coins.OK(), "%v", coins.Err)
	assert.Equal(t, []RawCoinBalance{{CoinType: usdcCoinType, RawAmount: "42"}}, coins.Value)

	_, err := client.Transaction(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress("0x1"))
	assert.NoError(t, ValidateAddress("0x"+strings.Repeat("ab", 32)))
	assert.ErrorIs(t, ValidateAddress("1234"), ErrInvalidAddress)
	assert.ErrorIs(t, ValidateAddress("0x"+strings.Repeat("a", 65)), ErrInvalidAddress)
	assert.ErrorIs(t, ValidateAddress("0xzz"), ErrInvalidAddress)
}

func TestHermesTokenPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/price_feeds":
			assert.Equal(t, "APT", r.URL.Query().Get("query"))
			assert.Equal(t, "crypto", r.URL.Query().Get("asset_type"))
			fmt.Fprint(w, `[
				{"id":"stapt","attributes":{"base":"STAPT","quote_currency":"USD"}},
				{"id":"apt","attributes":{"base":"APT","quote_currency":"USD"}}
			]`)
		case "/v2/updates/price/latest":
			assert.Equal(t, "apt", r.URL.Query().Get("ids[]"))
			fmt.Fprint(w, `{"parsed":[{"id":"apt","price":{"price":"812345678","conf":"1","expo":-8,"publish_time":1}}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	price, err := NewHermesClient(srv.Client(), srv.URL).TokenPrice(context.Background(), "apt")
	require.NoError(t, err)
	assert.Equal(t, "apt", price.FeedID)
	assert.InDelta(t, 8.12345678, price.Price, 1e-9)
}

func TestHermesNoFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	_, err := NewHermesClient(srv.Client(), srv.URL).TokenPrice(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrPriceFeedNotFound)
}

type countingPriceSource struct {
	mu       sync.Mutex
	calls    map[string]int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
	prices   map[string]float64
}

func (c *countingPriceSource) TokenPrice(ctx context.Context, symbol string) (types.TokenPrice, error) {
	c.mu.Lock()
	c.calls[symbol]++
	c.mu.Unlock()

	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		seen := c.maxSeen.Load()
		if n <= seen || c.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return types.TokenPrice{}, ctx.Err()
	}

	price, ok := c.prices[symbol]
	if !ok {
		return types.TokenPrice{}, ErrPriceFeedNotFound
	}
	return types.TokenPrice{Symbol: symbol, Price: price}, nil
}

func TestFetchPricesDeduplicatesAndBoundsConcurrency(t *testing.T) {
	source := &countingPriceSource{
		calls:  map[string]int{},
		delay:  20 * time.Millisecond,
		prices: map[string]float64{"APT": 8, "USDC": 1, "USDT": 1, "DAI": 1, "WETH": 3000},
	}

	symbols := []string{"APT", "apt", "USDC", "USDT", "DAI", "WETH", "USDC", "UNKNOWN", ""}
	prices := FetchPrices(context.Background(), source, symbols, 2, time.Second)

	require.Len(t, prices, 6)
	for symbol, calls := range source.calls {
		assert.Equal(t, 1, calls, "symbol %s looked up once", symbol)
	}
	assert.LessOrEqual(t, source.maxSeen.Load(), int32(2))

	assert.Equal(t, 8.0, prices["APT"].Value)
	assert.True(t, prices["WETH"].OK())
	assert.False(t, prices["UNKNOWN"].OK())
	assert.Equal(t, "price:UNKNOWN", prices["UNKNOWN"].Source)
}

func TestFetchPricesSingleTimeoutBudget(t *testing.T) {
	source := &countingPriceSource{
		calls:  map[string]int{},
		delay:  time.Second,
		prices: map[string]float64{"APT": 8, "USDC": 1},
	}

	start := time.Now()
	prices := FetchPrices(context.Background(), source, []string{"APT", "USDC"}, 1, 50*time.Millisecond)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.ErrorIs(t, prices["APT"].Err, context.DeadlineExceeded)
	assert.ErrorIs(t, prices["USDC"].Err, context.DeadlineExceeded)
}

func TestJouleMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"asset":{"type":"0x1::aptos_coin::AptosCoin","assetName":"APT","displayName":"Aptos","ltv":7000},
			 "ltv":"7000","marketSize":"1000","totalBorrowed":"500","depositApy":4.5,"borrowApy":7,
			 "extraAPY":{"depositAPY":"1.5"},"priceInfo":{"tokenAddress":"0x1::aptos_coin::AptosCoin","price":8}},
			{"asset":{"type":"0xusdt","assetName":"USDT"},"marketSize":"10","totalBorrowed":null,"depositApy":"3"},
			{"asset":{"type":"0xbad","assetName":"BAD"},"marketSize":"n/a","totalBorrowed":"1","depositApy":"2"}
		]}`)
	}))
	defer srv.Close()

	client := NewJouleMarketClient(srv.Client(), srv.URL)
	markets := client.Markets(context.Background())
	require.True(t, markets.OK(), "%v", markets.Err)
	require.Len(t, markets.Value, 3, "a bad numeric string degrades one field, not the list")

	apt := markets.Value[0]
	assert.Equal(t, 7000.0, apt.LTV.Value)
	assert.Equal(t, 1.5, apt.ExtraDepositAPY())
	assert.False(t, markets.Value[1].TotalBorrowed.Valid)
	assert.True(t, markets.Value[1].TotalBorrowed.Present())
	assert.False(t, markets.Value[2].MarketSize.Valid)
	assert.True(t, markets.Value[2].MarketSize.Present())
	assert.Equal(t, 2.0, markets.Value[2].DepositAPY.Value)
	assert.Equal(t, 3.0, markets.Value[1].DepositAPY.Value)

	market, err := client.PoolDetails(context.Background(), "usdt")
	require.NoError(t, err)
	assert.Equal(t, "0xusdt", market.Asset.Type)

	_, err = client.PoolDetails(context.Background(), "DOGE")
	assert.ErrorIs(t, err, ErrMarketNotFound)
}

func TestJouleMarketsInvalidEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"markets":[]}`)
	}))
	defer srv.Close()

	markets := NewJouleMarketClient(srv.Client(), srv.URL).Markets(context.Background())
	assert.ErrorIs(t, markets.Err, ErrInvalidMarketData)
}

const mapPositionJSON = `{"positions_map":{"data":[
	{"key":"1","value":{"position_name":"Main","lend_positions":{"data":[{"key":"0x1::aptos_coin::AptosCoin","value":"200000000"}]},
	 "borrow_positions":{"data":[{"key":"0xusdc","value":"5000000"}]}}},
	{"key":"2","value":{"position_name":"","lend_positions":{"data":[{"key":"0xusdc","value":"1000000"}]},"borrow_positions":{"data":[]}}}
]},"user_address":"0xa1"}`

const legacyPositionJSON = `{"position_id":"7","position_name":"Old","lend_positions":{"data":[{"key":"0xusdc","value":"3"}]},"borrow_positions":{"data":[]}}`

func TestParseLendingPositionRecord(t *testing.T) {
	record, err := ParseLendingPositionRecord(json.RawMessage(mapPositionJSON))
	require.NoError(t, err)
	assert.Equal(t, types.ShapeMap, record.Shape)
	assert.Equal(t, []types.RawLendingLeg{
		{PositionID: "1", PositionName: "Main", TokenAddress: "0x1::aptos_coin::AptosCoin", Side: types.SideLend, RawAmount: "200000000"},
		{PositionID: "1", PositionName: "Main", TokenAddress: "0xusdc", Side: types.SideBorrow, RawAmount: "5000000"},
		{PositionID: "2", PositionName: "Joule Position", TokenAddress: "0xusdc", Side: types.SideLend, RawAmount: "1000000"},
	}, record.Legs())

	record, err = ParseLendingPositionRecord(json.RawMessage(legacyPositionJSON))
	require.NoError(t, err)
	assert.Equal(t, types.ShapeLegacy, record.Shape)
	assert.Equal(t, []types.RawLendingLeg{
		{PositionID: "7", PositionName: "Old", TokenAddress: "0xusdc", Side: types.SideLend, RawAmount: "3"},
	}, record.Legs())

	_, err = ParseLendingPositionRecord(json.RawMessage(`{"something":"else"}`))
	assert.ErrorIs(t, err, ErrUnknownPositionShape)

	_, err = ParseLendingPositionRecord(json.RawMessage(`42`))
	assert.ErrorIs(t, err, ErrUnknownPositionShape)
}

type fakeViewCaller struct {
	out []json.RawMessage
	err error
	req ViewRequest
}

func (f *fakeViewCaller) View(_ context.Context, req ViewRequest) ([]json.RawMessage, error) {
	f.req = req
	return f.out, f.err
}

func TestJoulePositions(t *testing.T) {
	view := &fakeViewCaller{out: []json.RawMessage{json.RawMessage("[" + mapPositionJSON + "]")}}
	client := NewJoulePositionsClient(view, "0xjoule::pool::user_positions_map")

	legs := client.Positions(context.Background(), "0xa1")
	require.True(t, legs.OK(), "%v", legs.Err)
	assert.Len(t, legs.Value, 3)
	assert.Equal(t, "0xjoule::pool::user_positions_map", view.req.Function)
	assert.Equal(t, []any{"0xa1"}, view.req.Arguments)

	view.out = []json.RawMessage{json.RawMessage(`{"unexpected":true}`)}
	failed := client.Positions(context.Background(), "0xa1")
	assert.ErrorIs(t, failed.Err, ErrUnknownPositionShape)
	assert.Equal(t, SourceJoulePositions, failed.Source)

	view.err = io.ErrUnexpectedEOF
	assert.ErrorIs(t, client.Positions(context.Background(), "0xa1").Err, io.ErrUnexpectedEOF)
}

func TestPanoraQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		q := r.URL.Query()
		assert.Equal(t, "0x1::aptos_coin::AptosCoin", q.Get("fromTokenAddress"))
		assert.Equal(t, "0xbae2", q.Get("toTokenAddress"))
		assert.Equal(t, "1.25", q.Get("fromTokenAmount"))
		assert.Equal(t, "0xai", q.Get("toWalletAddress"))
		fmt.Fprint(w, `{"quotes":[{"txData":{"function":"0x1c3::panora_swap::router_entry","type_arguments":["0x1::aptos_coin::AptosCoin"],"arguments":["125000000"]}}]}`)
	}))
	defer srv.Close()

	quote, err := NewPanoraClient(srv.Client(), srv.URL, "secret").
		Quote(context.Background(), "0x1::aptos_coin::AptosCoin", "0xbae2", 1.25, "0xai")
	require.NoError(t, err)
	assert.Equal(t, "0x1c3::panora_swap::router_entry", quote.Function)
	assert.Equal(t, []string{"0x1::aptos_coin::AptosCoin"}, quote.TypeArguments)
	assert.Equal(t, []any{"125000000"}, quote.Arguments)
}

func TestPanoraNoQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("x-api-key"))
		fmt.Fprint(w, `{"quotes":[]}`)
	}))
	defer srv.Close()

	_, err := NewPanoraClient(srv.Client(), srv.URL, "").Quote(context.Background(), "APT", "USDC", 1, "0xai")
	assert.ErrorIs(t, err, ErrNoSwapQuote)
}
