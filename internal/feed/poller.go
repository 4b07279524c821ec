package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"rrtimeline/internal/config"
	"rrtimeline/internal/logutil"
	"rrtimeline/internal/models"
)

const (
	requestTimeout = 10 * time.Second
	minRefresh     = time.Second
)

// Sink receives every snapshot fetched from the upstream node.
type Sink interface {
	Replace([]models.ProcessEntry) error
}

// Poller mirrors the process list of a remote node into a local sink.
type Poller struct {
	baseURL string
	apiKey  string
	refresh time.Duration
	sink    Sink
	client  *http.Client
	logger  *zap.Logger

	mu        sync.RWMutex
	lastError string
	lastSync  time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller configures a poller. A nil client gets a default transport with
// conservative timeouts.
func NewPoller(cfg config.Upstream, sink Sink, client *http.Client, logger *zap.Logger) *Poller {
	refresh := time.Duration(cfg.RefreshSec) * time.Second
	if refresh < minRefresh {
		refresh = minRefresh
	}
	if client == nil {
		transport := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          4,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		client = &http.Client{Transport: transport, Timeout: requestTimeout}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		baseURL: strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  cfg.APIKey,
		refresh: refresh,
		sink:    sink,
		client:  client,
		logger:  logutil.OrNop(logger).Named("feed"),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start launches background synchronisation.
func (p *Poller) Start() {
	go p.run()
}

// Stop terminates background synchronisation and waits for it to exit.
func (p *Poller) Stop() {
	p.cancel()
	<-p.done
}

// Status reports the last successful sync time and the last error, if any.
func (p *Poller) Status() (time.Time, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync, p.lastError
}

func (p *Poller) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.refresh)
	defer ticker.Stop()

	p.sync()
	for {
		select {
		case <-ticker.C:
			p.sync()
		case <-p.ctx.Done():
			return
		}
	}
}

func (p *Poller) sync() {
	if err := p.FetchOnce(p.ctx); err != nil {
		p.logger.Warn("upstream sync failed", zap.String("base_url", p.baseURL), zap.Error(err))
	}
}

// FetchOnce pulls the remote process list and hands it to the sink. On
// failure the sink keeps its previous data.
func (p *Poller) FetchOnce(ctx context.Context) error {
	err := p.fetch(ctx)

	p.mu.Lock()
	if err != nil {
		p.lastError = err.Error()
	} else {
		p.lastError = ""
		p.lastSync = time.Now().UTC()
	}
	p.mu.Unlock()
	return err
}

func (p *Poller) fetch(ctx context.Context) error {
	if p.baseURL == "" {
		return errors.New("upstream has empty base_url")
	}

	var entries []models.ProcessEntry
	if err := p.getJSON(ctx, p.baseURL+"/api/processes", &entries); err != nil {
		return fmt.Errorf("processes fetch failed: %w", err)
	}
	if err := p.sink.Replace(entries); err != nil {
		return fmt.Errorf("store processes: %w", err)
	}
	p.logger.Debug("upstream synced", zap.Int("processes", len(entries)))
	return nil
}

func (p *Poller) getJSON(ctx context.Context, url string, dest any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
