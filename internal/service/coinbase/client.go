package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"LiqPulse/internal/domain/models"
	drepo "LiqPulse/internal/domain/repository"
	pkghttp "LiqPulse/pkg/http"
	applogger "LiqPulse/pkg/logger"
)

const (
	// 5m bars; the REST API caps a page at 300 candles.
	granularity     = "FIVE_MINUTE"
	granularitySecs = 300
	pageBars        = 300
)

// Client implements a BarStream backed by the Coinbase Advanced Trade
// WebSocket candles channel, with REST backfill for bootstrap.
type Client struct {
	creds          *Credentials
	websocketURL   string
	restBaseURL    string
	products       []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	httpc *pkghttp.Client
	log   *applogger.Logger

	conn      *websocket.Conn
	connected bool
}

// New creates a new Coinbase BarStream.
func New(creds *Credentials, websocketURL, restBaseURL string, products []string, reconnectDelay, pingInterval time.Duration, log *applogger.Logger) drepo.BarStream {
	return &Client{
		creds:          creds,
		websocketURL:   websocketURL,
		restBaseURL:    restBaseURL,
		products:       products,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		httpc:          pkghttp.NewClient(pkghttp.WithTimeout(30 * time.Second)),
		log:            log,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("coinbase connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	c.log.Info("coinbase: connected", applogger.String("url", c.websocketURL))
	return nil
}

// Subscribe subscribes to the candles channel for the configured products.
// The subscribe frame is authenticated with a fresh JWT.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("coinbase not connected")
	}
	token, err := c.creds.BuildJWT("")
	if err != nil {
		return err
	}
	msg := map[string]interface{}{
		"type":        "subscribe",
		"product_ids": c.products,
		"channel":     "candles",
		"jwt":         token,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe candles: %w", err)
	}
	c.log.Info("coinbase: subscribed candles", applogger.Strings("products", c.products))
	return nil
}

type wsCandle struct {
	Start     string `json:"start"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
	Volume    string `json:"volume"`
	ProductID string `json:"product_id"`
}

type wsEvent struct {
	Candles []wsCandle `json:"candles"`
}

type wsMessage struct {
	Channel string    `json:"channel"`
	Events  []wsEvent `json:"events"`
}

// Read streams bar updates and errors.
func (c *Client) Read(ctx context.Context) (<-chan models.Bar, <-chan error) {
	bars := make(chan models.Bar, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(bars)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("coinbase conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("coinbase read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-json frames
					continue
				}
				if m.Channel != "candles" {
					continue
				}
				for _, ev := range m.Events {
					for _, cd := range ev.Candles {
						bar, err := cd.toBar()
						if err != nil {
							c.log.Warn("coinbase: bad candle frame", applogger.Error(err))
							continue
						}
						select {
						case bars <- bar:
						default:
							// drop on backpressure
						}
					}
				}
			}
		}
	}()

	return bars, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }

type restCandles struct {
	Candles []wsCandle `json:"candles"`
}

// Backfill fetches historical 5m candles for [from, to], paging backwards in
// 300-bar batches, deduplicated and sorted ascending.
func (c *Client) Backfill(ctx context.Context, instrument string, from, to int64) ([]models.Bar, error) {
	path := fmt.Sprintf("/api/v3/brokerage/market/products/%s/candles", instrument)
	endpoint := c.restBaseURL + path
	host, err := url.Parse(c.restBaseURL)
	if err != nil {
		return nil, fmt.Errorf("coinbase rest url: %w", err)
	}
	uriClaim := fmt.Sprintf("GET %s%s", host.Host, path)

	const pageSecs = pageBars * granularitySecs
	seen := make(map[int64]struct{})
	var out []models.Bar

	for curEnd := to; curEnd > from; {
		curStart := curEnd - pageSecs
		if curStart < from {
			curStart = from
		}
		token, err := c.creds.BuildJWT(uriClaim)
		if err != nil {
			return nil, err
		}

		var page restCandles
		err = c.httpc.SendAndParse(ctx, &pkghttp.RequestOptions{
			Method: pkghttp.MethodGet,
			URL:    endpoint,
			Headers: map[string]string{
				"Authorization": "Bearer " + token,
			},
			QueryParams: map[string][]string{
				"granularity": {granularity},
				"start":       {strconv.FormatInt(curStart, 10)},
				"end":         {strconv.FormatInt(curEnd, 10)},
			},
		}, &page)
		if err != nil {
			return nil, fmt.Errorf("coinbase backfill %s: %w", instrument, err)
		}

		for _, cd := range page.Candles {
			bar, err := cd.toBar()
			if err != nil {
				continue
			}
			bar.Instrument = instrument
			if _, dup := seen[bar.Timestamp]; dup {
				continue
			}
			seen[bar.Timestamp] = struct{}{}
			out = append(out, bar)
		}

		curEnd = curStart
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	c.log.Info("coinbase: backfill complete",
		applogger.String("instrument", instrument), applogger.Int("bars", len(out)))
	return out, nil
}

func (cd wsCandle) toBar() (models.Bar, error) {
	ts, err := strconv.ParseInt(cd.Start, 10, 64)
	if err != nil {
		return models.Bar{}, fmt.Errorf("candle start %q: %w", cd.Start, err)
	}
	fields := [5]string{cd.Open, cd.High, cd.Low, cd.Close, cd.Volume}
	var vals [5]float64
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Bar{}, fmt.Errorf("candle field %q: %w", s, err)
		}
		vals[i] = v
	}
	return models.Bar{
		Timestamp:  ts,
		Instrument: cd.ProductID,
		Open:       vals[0],
		High:       vals[1],
		Low:        vals[2],
		Close:      vals[3],
		Volume:     vals[4],
	}, nil
}
