package namesrv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	// EnvNameServerAddr is the environment variable read by the env provider
	EnvNameServerAddr = "NAMESRV_ADDR"

	// DefaultDomain is the address server queried by the HTTP provider
	DefaultDomain = "http://jmenv.tbsite.net:8080/rocketmq/nsaddr"

	httpTimeout = 5 * time.Second
)

// IAddressProvider resolves the list of name server addresses
type IAddressProvider interface {
	// Resolve returns the current name server addresses (host:port)
	Resolve(ctx context.Context) ([]string, error)
	// Description returns a short name used in log messages
	Description() string
}

// --------------------------------------------------------------------------
// Static Provider
// --------------------------------------------------------------------------

type staticProvider struct {
	addrs []string
}

// NewStaticProvider returns a provider that always resolves to addrs
func NewStaticProvider(addrs []string) IAddressProvider {
	return &staticProvider{addrs: normalize(addrs)}
}

func (p *staticProvider) Resolve(context.Context) ([]string, error) {
	return append([]string(nil), p.addrs...), nil
}

func (p *staticProvider) Description() string { return "static provider" }

// --------------------------------------------------------------------------
// Env Provider
// --------------------------------------------------------------------------

type envProvider struct{}

// NewEnvProvider returns a provider reading the ';' separated list in NAMESRV_ADDR.
// An unset variable resolves to an empty list.
func NewEnvProvider() IAddressProvider {
	return envProvider{}
}

func (envProvider) Resolve(context.Context) ([]string, error) {
	return split(os.Getenv(EnvNameServerAddr)), nil
}

func (envProvider) Description() string { return "envvar provider" }

// --------------------------------------------------------------------------
// Passthrough Provider
// --------------------------------------------------------------------------

type passthroughProvider struct {
	addrs    []string
	fallback IAddressProvider
}

// NewPassthroughProvider resolves to addrs, or to the result of fallback if addrs is empty
func NewPassthroughProvider(addrs []string, fallback IAddressProvider) IAddressProvider {
	return &passthroughProvider{addrs: normalize(addrs), fallback: fallback}
}

func (p *passthroughProvider) Resolve(ctx context.Context) ([]string, error) {
	if len(p.addrs) == 0 && p.fallback != nil {
		return p.fallback.Resolve(ctx)
	}
	return append([]string(nil), p.addrs...), nil
}

func (p *passthroughProvider) Description() string { return "passthrough provider" }

// --------------------------------------------------------------------------
// HTTP Provider
// --------------------------------------------------------------------------

type httpProvider struct {
	domain   string
	client   *http.Client
	fallback IAddressProvider
}

// NewHTTPProvider returns a provider fetching the ';' separated list from an address server.
// An empty domain uses DefaultDomain. If the request fails the env provider is used.
func NewHTTPProvider(domain string) IAddressProvider {
	if domain == "" {
		domain = DefaultDomain
	}
	return &httpProvider{
		domain:   domain,
		client:   &http.Client{Timeout: httpTimeout},
		fallback: NewEnvProvider(),
	}
}

func (p *httpProvider) Resolve(ctx context.Context) ([]string, error) {
	addrs, err := p.fetch(ctx)
	if err != nil {
		Logger.Warningf("Failed to fetch name servers from %s, falling back to %s: %v", p.domain, p.fallback.Description(), err)
		return p.fallback.Resolve(ctx)
	}
	return addrs, nil
}

func (p *httpProvider) Description() string { return "http provider" }

func (p *httpProvider) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.domain, nil)
	if err != nil {
		return nil, err
	}

	res, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 64*1024))
	if err != nil {
		return nil, err
	}
	return split(string(body)), nil
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// split parses a ';' separated address list
func split(s string) []string {
	return normalize(strings.Split(s, ";"))
}

// normalize trims entries, strips http(s):// prefixes and drops empty entries
func normalize(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		addr = strings.TrimSpace(addr)
		addr = strings.TrimPrefix(addr, "http://")
		addr = strings.TrimPrefix(addr, "https://")
		addr = strings.TrimSuffix(addr, "/")
		if addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
