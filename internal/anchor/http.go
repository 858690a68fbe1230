package anchor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"attestor/pkg/platform/circuit"
)

// HTTPAnchorer posts hashes to a ledger gateway: POST {base}/anchors {"hash": "..."}
// answered by {"transaction_ref": "..."}.
type HTTPAnchorer struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	breaker *circuit.Breaker
	logger  *slog.Logger

	probeInterval time.Duration
	mu            sync.Mutex
	lastProbe     time.Time
}

type HTTPOption func(*HTTPAnchorer)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(a *HTTPAnchorer) { a.client = c }
}

func WithTimeout(d time.Duration) HTTPOption {
	return func(a *HTTPAnchorer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithBreaker(b *circuit.Breaker) HTTPOption {
	return func(a *HTTPAnchorer) { a.breaker = b }
}

// WithProbeInterval sets how often a call may reach the ledger while the breaker is open.
func WithProbeInterval(d time.Duration) HTTPOption {
	return func(a *HTTPAnchorer) { a.probeInterval = d }
}

func WithLogger(l *slog.Logger) HTTPOption {
	return func(a *HTTPAnchorer) { a.logger = l }
}

func NewHTTPAnchorer(baseURL string, opts ...HTTPOption) *HTTPAnchorer {
	a := &HTTPAnchorer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
		timeout: 3 * time.Second,
		breaker: circuit.New("ledger", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(1)),

		probeInterval: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type anchorRequest struct {
	Hash string `json:"hash"`
}

type anchorResponse struct {
	TransactionRef string `json:"transaction_ref"`
}

// Anchor submits payloadHash. While the breaker is open calls fail fast with
// ErrCircuitOpen, apart from one probe per probe interval.
func (a *HTTPAnchorer) Anchor(ctx context.Context, payloadHash string) (string, error) {
	if a.breaker.IsOpen() && !a.allowProbe() {
		return "", ErrCircuitOpen
	}

	ref, err := a.submit(ctx, payloadHash)
	if err != nil {
		useFallback, change := a.breaker.RecordFailure()
		if change.Opened && a.logger != nil {
			a.logger.WarnContext(ctx, "ledger circuit opened", "breaker", a.breaker.Name(), "error", err)
		}
		if useFallback {
			return "", fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return "", err
	}
	if _, change := a.breaker.RecordSuccess(); change.Closed && a.logger != nil {
		a.logger.InfoContext(ctx, "ledger circuit closed", "breaker", a.breaker.Name())
	}
	return ref, nil
}

func (a *HTTPAnchorer) allowProbe() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := time.Now()
	if now.Sub(a.lastProbe) < a.probeInterval {
		return false
	}
	a.lastProbe = now
	return true
}

func (a *HTTPAnchorer) submit(ctx context.Context, payloadHash string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	body, err := json.Marshal(anchorRequest{Hash: payloadHash})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/anchors", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("anchor: ledger request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out anchorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return "", fmt.Errorf("anchor: decode ledger response: %w", err)
	}
	if out.TransactionRef == "" {
		return "", fmt.Errorf("%w: empty transaction reference", ErrRejected)
	}
	return out.TransactionRef, nil
}
