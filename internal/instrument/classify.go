// Package instrument maps provider instrument keys such as "gold_mcx" or
// "silver_lbma_am" onto a (metal, market) pair.
package instrument

import (
	"strings"

	"github.com/epeers/metalprices/internal/models"
)

// Rule assigns Market to any key containing one of Markers. Every marker is
// stripped from the key, in order, to leave the metal name.
type Rule struct {
	Market  string
	Markers []string
}

// Rules are evaluated top to bottom; the first rule with a matching marker wins.
// Keys matching no rule are Spot prices.
var Rules = []Rule{
	{Market: models.MarketMCX, Markers: []string{"_mcx"}},
	{Market: models.MarketLBMA, Markers: []string{"_lbma", "_am", "_pm"}},
}

// Classification is the result of classifying one instrument key
type Classification struct {
	Key    string
	Metal  string
	Market string
}

// Classifier applies a rule table to instrument keys
type Classifier struct {
	rules         []Rule
	defaultMarket string
}

// NewClassifier returns a classifier over the package Rules
func NewClassifier() *Classifier {
	return NewClassifierWithRules(Rules, models.MarketSpot)
}

// NewClassifierWithRules returns a classifier over a custom rule table
func NewClassifierWithRules(rules []Rule, defaultMarket string) *Classifier {
	return &Classifier{rules: rules, defaultMarket: defaultMarket}
}

// Classify resolves key into a metal/market pair
func (c *Classifier) Classify(key string) Classification {
	name, market := key, c.defaultMarket

	for _, r := range c.rules {
		if !containsAny(key, r.Markers) {
			continue
		}
		market = r.Market
		for _, m := range r.Markers {
			name = strings.ReplaceAll(name, m, "")
		}
		break
	}

	return Classification{Key: key, Metal: Capitalize(name), Market: market}
}

// SilverOnly reports whether a classification is tracked by silver-only ingestion:
// the key must mention silver and LBMA fixings are excluded.
func SilverOnly(c Classification) bool {
	return strings.Contains(strings.ToLower(c.Key), "silver") && c.Market != models.MarketLBMA
}

// Capitalize upper-cases the first character and lower-cases the rest
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
