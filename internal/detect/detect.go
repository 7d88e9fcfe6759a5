// Package detect classifies a domain's mail provider from its MX hostnames.
package detect

import "strings"

const (
	// ProviderOther is reported when MX hosts exist but no rule matches.
	ProviderOther = "Custom/Other"
	// ProviderNone is reported when there are no MX hosts at all.
	ProviderNone = "None"
)

// Classifier matches MX hostnames against ordered provider rules.
type Classifier struct {
	rules []ProviderRule
}

// NewClassifier builds a Classifier from loaded patterns. Substrings are
// lowercased once here.
func NewClassifier(p Patterns) *Classifier {
	rules := make([]ProviderRule, 0, len(p.Providers))
	for _, r := range p.Providers {
		lowered := make([]string, 0, len(r.Contains))
		for _, s := range r.Contains {
			lowered = append(lowered, strings.ToLower(s))
		}
		rules = append(rules, ProviderRule{Provider: r.Provider, Contains: lowered})
	}
	return &Classifier{rules: rules}
}

// Provider returns the first rule whose substring occurs in any host.
// Rule order decides ties, not host order.
func (c *Classifier) Provider(mxHosts []string) string {
	if len(mxHosts) == 0 {
		return ProviderNone
	}
	hosts := make([]string, len(mxHosts))
	for i, h := range mxHosts {
		hosts[i] = strings.ToLower(h)
	}
	for _, r := range c.rules {
		for _, sub := range r.Contains {
			for _, h := range hosts {
				if strings.Contains(h, sub) {
					return r.Provider
				}
			}
		}
	}
	return ProviderOther
}
