package datafetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

var ErrNoSwapQuote = errors.New("no swap quote available")

// SwapQuote is the entry function of the best Panora route.
type SwapQuote struct {
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

type panoraResponse struct {
	Quotes []struct {
		TxData SwapQuote `json:"txData"`
	} `json:"quotes"`
}

// PanoraClient requests swap routes from the Panora aggregator.
type PanoraClient struct {
	client *http.Client
	url    string
	apiKey string
}

// NewPanoraClient returns a client for the swap endpoint at url.
func NewPanoraClient(client *http.Client, url, apiKey string) *PanoraClient {
	return &PanoraClient{client: client, url: url, apiKey: apiKey}
}

// Quote returns the best route for swapping amount (in human units) of
// fromToken into toToken, delivered to toWallet.
func (p *PanoraClient) Quote(ctx context.Context, fromToken, toToken string, amount float64, toWallet string) (SwapQuote, error) {
	query := url.Values{}
	query.Set("fromTokenAddress", fromToken)
	query.Set("toTokenAddress", toToken)
	query.Set("fromTokenAmount", strconv.FormatFloat(amount, 'f', -1, 64))
	query.Set("toWalletAddress", toWallet)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"?"+query.Encode(), nil)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("failed to build swap request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("x-api-key", p.apiKey)
	}

	var resp panoraResponse
	if err := doJSON(p.client, req, &resp); err != nil {
		return SwapQuote{}, err
	}
	if len(resp.Quotes) == 0 || resp.Quotes[0].TxData.Function == "" {
		return SwapQuote{}, fmt.Errorf("%w: %s -> %s", ErrNoSwapQuote, fromToken, toToken)
	}
	return resp.Quotes[0].TxData, nil
}
