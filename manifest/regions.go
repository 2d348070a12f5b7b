package manifest

import (
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnknownRegion is reported when no table entry matches the endpoint.
const UnknownRegion = "Unknown region"

type regionRule struct {
	Match  string `yaml:"match"`
	Region string `yaml:"region"`
	Exact  bool   `yaml:"exact,omitempty"`
}

// RegionTable maps processing endpoints to human-readable geographic regions.
// It is an explicit value handed to the README generator; there is no global
// table. Resolution tries exact hostname matches first, then substring rules
// in registration order.
type RegionTable struct {
	exact  map[string]string
	substr []regionRule
}

// NewRegionTable returns an empty table.
func NewRegionTable() *RegionTable {
	return &RegionTable{exact: make(map[string]string)}
}

// DefaultRegions returns the built-in endpoint mapping.
func DefaultRegions() *RegionTable {
	t := NewRegionTable()
	t.AddExact("api.mathocr.com", "United States (Virginia)")
	t.AddExact("eu-api.mathocr.com", "Europe (Frankfurt)")
	t.Add("eu-", "Europe (Frankfurt)")
	t.Add(".eu", "Europe (Frankfurt)")
	t.Add("asia", "Asia Pacific (Singapore)")
	t.Add("ap-", "Asia Pacific (Singapore)")
	t.Add("us-", "United States (Virginia)")
	t.Add("localhost", "Local development")
	t.Add("127.0.0.1", "Local development")
	return t
}

// AddExact registers an exact-hostname rule.
func (t *RegionTable) AddExact(host, region string) {
	t.exact[strings.ToLower(host)] = region
}

// Add registers a substring rule. Rules match in registration order.
func (t *RegionTable) Add(fragment, region string) {
	t.substr = append(t.substr, regionRule{Match: strings.ToLower(fragment), Region: region})
}

// Resolve maps an endpoint URL or hostname to a region name.
func (t *RegionTable) Resolve(endpoint string) string {
	host := hostOf(endpoint)
	if host == "" {
		return UnknownRegion
	}
	if region, ok := t.exact[host]; ok {
		return region
	}
	for _, rule := range t.substr {
		if strings.Contains(host, rule.Match) {
			return rule.Region
		}
	}
	return UnknownRegion
}

func hostOf(endpoint string) string {
	endpoint = strings.TrimSpace(strings.ToLower(endpoint))
	if endpoint == "" {
		return ""
	}
	if strings.Contains(endpoint, "://") {
		if u, err := url.Parse(endpoint); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	// Bare host, possibly with a path or port.
	host := endpoint
	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

// LoadRegions parses a YAML rule list into a table. Each entry has a match
// fragment, a region name and an optional exact flag.
func LoadRegions(raw []byte) (*RegionTable, error) {
	var rules []regionRule
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("parse region rules: %w", err)
	}
	t := NewRegionTable()
	for i, r := range rules {
		if r.Match == "" || r.Region == "" {
			return nil, fmt.Errorf("region rule %d: match and region are required", i)
		}
		if r.Exact {
			t.AddExact(r.Match, r.Region)
		} else {
			t.Add(r.Match, r.Region)
		}
	}
	return t, nil
}
