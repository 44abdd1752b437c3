package classify

import (
	"net/url"
	"sort"
	"strings"
)

// UnknownCategory is assigned when no path segment matches a known slug.
const UnknownCategory = "unknown"

// knownSlugs is the source's path taxonomy: the first path segment under
// the blog root names the channel a post was published to.
var knownSlugs = map[string]struct{}{
	"architecture": {}, "mt": {}, "gametech": {}, "aws-insights": {},
	"awsmarketplace": {}, "aws": {}, "apn": {}, "smb": {}, "big-data": {},
	"business-intelligence": {}, "business-productivity": {},
	"enterprise-strategy": {}, "aws-cloud-financial-management": {},
	"compute": {}, "containers": {}, "database": {},
	"desktop-and-application-streaming": {}, "developer": {}, "devops": {},
	"mobile": {}, "hpc": {}, "ibm-redhat": {}, "industries": {},
	"infrastructure-and-automation": {}, "iot": {}, "machine-learning": {},
	"media": {}, "messaging-and-targeting": {}, "modernizing-with-aws": {},
	"migration-and-modernization": {}, "dotnet": {},
	"networking-and-content-delivery": {}, "opensource": {},
	"publicsector": {}, "quantum-computing": {}, "robotics": {},
	"awsforsap": {}, "security": {}, "spatial": {}, "startups": {},
	"storage": {}, "supply-chain": {}, "training-and-certification": {},
}

// RuleClassifier deterministically maps a post's source-URL path to
// category labels. Pure: no side effects, no external calls.
type RuleClassifier struct{}

// NewRuleClassifier returns the deterministic classifier.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Categories returns the ordered label set for a source URL. The first
// known path segment wins; no match yields the single label "unknown".
func (c *RuleClassifier) Categories(rawURL string) []string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return []string{UnknownCategory}
	}

	for _, segment := range strings.Split(parsed.Path, "/") {
		segment = strings.ToLower(strings.TrimSpace(segment))
		if segment == "" || segment == "blogs" {
			continue
		}
		if _, ok := knownSlugs[segment]; ok {
			return []string{segment}
		}
	}

	return []string{UnknownCategory}
}

// KnownCategories returns the slug table in stable order, used to build
// inference prompts.
func KnownCategories() []string {
	out := make([]string, 0, len(knownSlugs))
	for slug := range knownSlugs {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}
