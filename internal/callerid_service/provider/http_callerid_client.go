package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jdialer/commhub/internal/callerid_service/domain"
)

var (
	// ErrLookupFailed marks any remote failure. Callers absorb it.
	ErrLookupFailed = errors.New("caller lookup failed")
	// ErrRateLimited is returned when the local limiter rejects a lookup.
	// It wraps domain.ErrLookupTransient.
	ErrRateLimited = fmt.Errorf("%w: rate limited", domain.ErrLookupTransient)
)

const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultReadTimeout    = 10 * time.Second
	maxResponseBytes      = 1 << 20
)

// HTTPCallerIDClient queries a remote caller-ID service over HTTP.
type HTTPCallerIDClient struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewHTTPCallerIDClient builds a client with the given connect and read timeouts.
// httpClient overrides the built-in client when non-nil. rps <= 0 disables throttling.
func NewHTTPCallerIDClient(logger *slog.Logger, baseURL string, connectTimeout, readTimeout time.Duration, rps float64, httpClient *http.Client) *HTTPCallerIDClient {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
		transport.TLSHandshakeTimeout = connectTimeout
		transport.ResponseHeaderTimeout = readTimeout
		httpClient = &http.Client{Transport: transport, Timeout: connectTimeout + readTimeout}
	}
	var limiter *rate.Limiter
	if rps > 0 {
		burst := int(math.Ceil(rps))
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &HTTPCallerIDClient{
		logger:     logger.With("provider", "http_callerid"),
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    limiter,
	}
}

// Lookup fetches what the remote service knows about normalizedNumber.
// Non-2xx statuses, blank bodies and malformed JSON all return ErrLookupFailed.
func (c *HTTPCallerIDClient) Lookup(ctx context.Context, normalizedNumber string) (*domain.CallerLookupResult, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		c.logger.WarnContext(ctx, "Caller lookup throttled", "number", normalizedNumber)
		return nil, ErrRateLimited
	}

	endpoint := fmt.Sprintf("%s/lookup?number=%s&format=json&features=spam,caller", c.baseURL, url.QueryEscape(normalizedNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrLookupFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Caller lookup request failed", "number", normalizedNumber, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrLookupFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WarnContext(ctx, "Caller lookup returned non-2xx", "number", normalizedNumber, "status_code", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}
	if strings.TrimSpace(string(body)) == "" {
		return nil, fmt.Errorf("%w: empty body", ErrLookupFailed)
	}

	result, err := ParseLookupResponse(body)
	if err != nil {
		c.logger.WarnContext(ctx, "Caller lookup body could not be parsed", "number", normalizedNumber, "error", err)
		return nil, err
	}
	c.logger.DebugContext(ctx, "Caller lookup succeeded", "number", normalizedNumber, "spam_score", result.SpamScore, "is_spam", result.IsSpam)
	return result, nil
}

// ParseLookupResponse reads a provider response. The payload may sit under a
// "data" or "result" object, and field names vary between providers.
func ParseLookupResponse(body []byte) (*domain.CallerLookupResult, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("%w: malformed json: %w", ErrLookupFailed, err)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: null body", ErrLookupFailed)
	}

	payload := root
	if data, ok := root["data"].(map[string]interface{}); ok {
		payload = data
	} else if res, ok := root["result"].(map[string]interface{}); ok {
		payload = res
	}

	score := domain.ClampScore(flexInt(payload, "spamScore", "score", "spam_score"))
	return &domain.CallerLookupResult{
		DisplayName: flexString(payload, "displayName", "name", "callerName"),
		City:        flexString(payload, "city", "location"),
		Carrier:     flexString(payload, "carrier"),
		Reason:      flexString(payload, "reason", "label"),
		IsSpam:      flexBool(payload, "isSpam", "spam", "is_spam") || score >= domain.BlockScore,
		SpamScore:   score,
	}, nil
}

func flexBool(obj map[string]interface{}, keys ...string) bool {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case bool:
			return v
		case float64:
			return v == 1
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "1", "yes":
				return true
			case "false", "0", "no":
				return false
			}
		}
	}
	return false
}

func flexInt(obj map[string]interface{}, keys ...string) int {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case float64:
			return clampFloat(v)
		case string:
			s := strings.TrimSpace(v)
			if n, err := strconv.Atoi(s); err == nil {
				return n
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return clampFloat(f)
			}
		}
	}
	return 0
}

// clampFloat bounds v to the score range before the int conversion, which is
// undefined for out-of-range floats.
func clampFloat(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Max(0, math.Min(100, v)))
}

func flexString(obj map[string]interface{}, keys ...string) *string {
	for _, k := range keys {
		if v, ok := obj[k].(string); ok {
			if s := strings.TrimSpace(v); s != "" {
				return &s
			}
		}
	}
	return nil
}
