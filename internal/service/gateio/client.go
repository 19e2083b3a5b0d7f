package gateio

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"LiqPulse/internal/domain/models"
	drepo "LiqPulse/internal/domain/repository"
	"LiqPulse/internal/service/ratelimit"
	pkghttp "LiqPulse/pkg/http"
	applogger "LiqPulse/pkg/logger"
)

const (
	// contract_stats caps a page at 200 rows
	maxPageRows  = 200
	hourSecs     = 3600
	limiterKey   = "gateio_contract_stats"
	limiterCap   = 5
	limiterRefil = 1 // req/s, well under the public quota
)

// Client implements a LiquidationSource backed by the Gate.io futures
// contract_stats endpoint (hourly long/short liquidation notionals).
type Client struct {
	baseURL   string
	contracts map[string]string // instrument -> futures contract
	httpc     *pkghttp.Client
	limiter   *ratelimit.Limiter
	log       *applogger.Logger
}

// New creates a Gate.io liquidation source. contracts maps instrument ids to
// futures contract names; unmapped instruments fall back to the
// BASE-QUOTE -> BASE_USDT convention.
func New(baseURL string, contracts map[string]string, limiter *ratelimit.Limiter, log *applogger.Logger) drepo.LiquidationSource {
	return &Client{
		baseURL:   baseURL,
		contracts: contracts,
		httpc:     pkghttp.NewClient(pkghttp.WithTimeout(15 * time.Second)),
		limiter:   limiter,
		log:       log,
	}
}

type statsRow struct {
	Time        int64   `json:"time"`
	LongLiqUSD  float64 `json:"long_liq_usd"`
	ShortLiqUSD float64 `json:"short_liq_usd"`
}

// History fetches up to limit hourly records from `from` forward, paging in
// 200-row batches.
func (c *Client) History(ctx context.Context, instrument string, from int64, limit int) ([]models.LiquidationReading, error) {
	var out []models.LiquidationReading
	remaining := limit
	curFrom := from

	for remaining > 0 {
		batch := remaining
		if batch > maxPageRows {
			batch = maxPageRows
		}
		rows, err := c.fetch(ctx, instrument, curFrom, batch)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}
		out = append(out, rows...)
		if len(rows) < batch {
			break
		}
		curFrom = rows[len(rows)-1].Timestamp + hourSecs
		remaining -= len(rows)
	}

	c.log.Info("gateio: history fetched",
		applogger.String("instrument", instrument), applogger.Int("rows", len(out)))
	return out, nil
}

// Latest fetches the newest n hourly records.
func (c *Client) Latest(ctx context.Context, instrument string, n int) ([]models.LiquidationReading, error) {
	return c.fetch(ctx, instrument, 0, n)
}

func (c *Client) fetch(ctx context.Context, instrument string, from int64, limit int) ([]models.LiquidationReading, error) {
	for !c.limiter.Allow(limiterKey, limiterCap, limiterRefil) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}

	params := map[string][]string{
		"contract": {c.contract(instrument)},
		"interval": {"1h"},
		"limit":    {strconv.Itoa(limit)},
	}
	if from > 0 {
		params["from"] = []string{strconv.FormatInt(from, 10)}
	}

	var rows []statsRow
	err := c.httpc.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         c.baseURL + "/futures/usdt/contract_stats",
		QueryParams: params,
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("gateio contract_stats %s: %w", instrument, err)
	}

	out := make([]models.LiquidationReading, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.LiquidationReading{
			Timestamp:  r.Time,
			Instrument: instrument,
			LongValue:  r.LongLiqUSD,
			ShortValue: r.ShortLiqUSD,
		})
	}
	return out, nil
}

func (c *Client) contract(instrument string) string {
	if ct, ok := c.contracts[instrument]; ok {
		return ct
	}
	base, _, found := strings.Cut(instrument, "-")
	if !found {
		base = instrument
	}
	return base + "_USDT"
}
