// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package affiliation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tag says which way a rule votes.
type Tag string

const (
	TagIndustryInclude Tag = "industry-include"
	TagAcademicExclude Tag = "academic-exclude"
)

// Rule names, in evaluation order.
const (
	RuleKnownCompany    = "known-company"
	RuleIndustryKeyword = "industry-keyword"
	RuleCompanySuffix   = "company-suffix"
	RuleIndustryEmail   = "industry-email"
	RuleAcademicMarker  = "academic-marker"
)

// Rule is one tagged matcher. match returns the extracted company name for
// industry rules; academic rules return an empty name.
type Rule struct {
	Name       string
	Tag        Tag
	Confidence Confidence

	match func(c *Classifier, in input) (string, bool)
}

// Match applies this rule alone to an affiliation using c's markers.
func (r Rule) Match(c *Classifier, affiliation string) (string, bool) {
	in := c.parse(affiliation)
	if in.empty() {
		return "", false
	}
	return r.match(c, in)
}

// defaultRules is the fixed evaluation order. Industry rules come first so
// they win over the academic rule on joint appointments.
func defaultRules() []Rule {
	return []Rule{
		{Name: RuleKnownCompany, Tag: TagIndustryInclude, Confidence: Certain, match: matchKnownCompany},
		{Name: RuleIndustryKeyword, Tag: TagIndustryInclude, Confidence: Heuristic, match: matchIndustryKeyword},
		{Name: RuleCompanySuffix, Tag: TagIndustryInclude, Confidence: Heuristic, match: matchCompanySuffix},
		{Name: RuleIndustryEmail, Tag: TagIndustryInclude, Confidence: Heuristic, match: matchIndustryEmail},
		{Name: RuleAcademicMarker, Tag: TagAcademicExclude, Confidence: Heuristic, match: matchAcademicMarker},
	}
}

func matchKnownCompany(c *Classifier, in input) (string, bool) {
	for _, seg := range in.segs {
		for _, k := range c.known {
			if i := findSeq(seg.toks, k.seq); i >= 0 {
				return c.extractName(seg, i, i+len(k.seq)), true
			}
		}
	}
	return "", false
}

func matchIndustryKeyword(c *Classifier, in input) (string, bool) {
	for _, seg := range in.segs {
		for i, t := range seg.toks {
			if !c.isKeyword(t.norm) || c.disciplineUse(seg.toks, i) {
				continue
			}
			return c.extractName(seg, i, i+1), true
		}
	}
	return "", false
}

// matchCompanySuffix needs at least one name token before the suffix.
// "AG" only counts at the end of a segment; elsewhere it is usually the
// German Arbeitsgruppe ("AG Muller").
func matchCompanySuffix(c *Classifier, in input) (string, bool) {
	for _, seg := range in.segs {
		var academic, checked bool
		for i := 1; i < len(seg.toks); i++ {
			n := seg.toks[i].norm
			if !c.suffixes[n] && !c.weak[n] {
				continue
			}
			if n == "ag" && i+1 < len(seg.toks) {
				continue
			}
			if c.weak[n] {
				if !checked {
					academic, checked = c.hasAcademic(seg.toks), true
				}
				if academic {
					continue
				}
			}
			p := seg.toks[i-1].norm
			if stopWords[p] || c.units[p] || c.academicWord[p] {
				continue
			}
			return c.extractName(seg, i, i+1), true
		}
	}
	return "", false
}

func matchIndustryEmail(c *Classifier, in input) (string, bool) {
	for _, email := range in.emails {
		at := strings.LastIndexByte(email, '@')
		if at < 0 {
			continue
		}
		domain := strings.ToLower(email[at+1:])
		if c.freeMail[domain] || c.academicDomain(domain) {
			continue
		}
		labels := domainLabels(domain)
		for _, k := range c.known {
			if len(k.squashed) < 3 {
				continue
			}
			for _, l := range labels {
				if l == k.squashed || (len(k.squashed) >= 5 && strings.Contains(l, k.squashed)) {
					return k.display, true
				}
			}
		}
		for _, l := range labels {
			if c.industryLabel(l) {
				return titleLabel(labels[0]), true
			}
		}
	}
	return "", false
}

func matchAcademicMarker(c *Classifier, in input) (string, bool) {
	if c.hasAcademic(in.allTokens()) {
		return "", true
	}
	for _, email := range in.emails {
		if at := strings.LastIndexByte(email, '@'); at >= 0 && c.academicDomain(strings.ToLower(email[at+1:])) {
			return "", true
		}
	}
	return "", false
}

// academicDomain reports whether an email domain belongs to a university,
// government body, or non-profit.
func (c *Classifier) academicDomain(domain string) bool {
	for _, m := range c.acDomains {
		if strings.HasPrefix(m, ".") {
			if strings.HasSuffix(domain, m) || strings.Contains(domain, m+".") {
				return true
			}
			continue
		}
		if strings.Contains(domain, m) {
			return true
		}
	}
	return false
}

// industryLabel reports whether a domain label reads like a pharma or
// biotech company ("acme-pharma", "acmebio", "acmetherapeutics").
func (c *Classifier) industryLabel(l string) bool {
	if c.isKeyword(l) {
		return true
	}
	for _, p := range []string{"pharm", "biotech", "therap"} {
		if strings.Contains(l, p) {
			return true
		}
	}
	return strings.HasPrefix(l, "bio") || strings.HasSuffix(l, "bio")
}

// domainLabels splits a domain into its name labels, dropping the public
// suffix ("acme-pharma.co.uk" -> acme, pharma).
func domainLabels(domain string) []string {
	parts := strings.Split(domain, ".")
	for len(parts) > 1 {
		last := parts[len(parts)-1]
		if len(last) <= 3 && (len(parts) > 2 || len(last) == 2 || last == "com" || last == "net" || last == "biz") {
			parts = parts[:len(parts)-1]
			continue
		}
		break
	}
	var labels []string
	for _, p := range parts {
		for _, l := range strings.Split(p, "-") {
			if l != "" && l != "www" && l != "mail" {
				labels = append(labels, l)
			}
		}
	}
	return labels
}

// titleLabel capitalizes a domain label for display ("acme" -> "Acme").
func titleLabel(l string) string {
	r, size := utf8.DecodeRuneInString(l)
	if r == utf8.RuneError {
		return l
	}
	return string(unicode.ToUpper(r)) + l[size:]
}
