// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package affiliation decides whether a free-text author affiliation names a
// pharmaceutical or biotech company, and extracts the company name.
//
// Classification runs an ordered list of tagged rules (see Rules). Every
// industry-include rule is tried before the academic-exclude rule, so an
// affiliation that names both a university and a company counts as industry.
// Matching works on accent-stripped, case-folded tokens; non-Latin scripts
// are handled on a best-effort basis only.
package affiliation

import (
	"regexp"
	"strings"

	"github.com/pdiddy/fetch-papers/pkg/types"
)

// Confidence qualifies a classification.
type Confidence string

const (
	// Certain means a known company name matched.
	Certain Confidence = "certain"

	// Heuristic means the decision rests on keywords or the absence of any.
	Heuristic Confidence = "heuristic"
)

// Result is the outcome of classifying one affiliation string.
type Result struct {
	IsIndustry  bool       `json:"is_industry"`
	CompanyName string     `json:"company_name,omitempty"`
	Confidence  Confidence `json:"confidence"`

	// Rule names the rule that decided the result, "empty" for blank
	// input, or "none" when nothing matched.
	Rule string `json:"rule"`
}

// Rule names for inputs no rule decides.
const (
	RuleEmpty = "empty"
	RuleNone  = "none"
)

// Hit is one rule that fired on an affiliation.
type Hit struct {
	Rule        string     `json:"rule"`
	Tag         Tag        `json:"tag"`
	Confidence  Confidence `json:"confidence"`
	CompanyName string     `json:"company_name,omitempty"`
}

// Classifier evaluates affiliation strings. It is immutable after New and
// safe for concurrent use.
type Classifier struct {
	rules []Rule

	known        []knownCompany
	keywords     map[string]bool
	keywordList  []string
	suffixes     map[string]bool
	weak         map[string]bool
	academic     [][]string
	academicWord map[string]bool
	units        map[string]bool
	acDomains    []string
	freeMail     map[string]bool

	// joinable tokens may form a segment of their own that belongs to the
	// company name before it.
	joinable map[string]bool
}

type knownCompany struct {
	display  string
	seq      []string
	squashed string
}

// New compiles a Classifier from marker lists.
func New(m Markers) *Classifier {
	c := &Classifier{
		keywords:     make(map[string]bool),
		suffixes:     make(map[string]bool),
		weak:         make(map[string]bool),
		academicWord: make(map[string]bool),
		units:        make(map[string]bool),
		freeMail:     make(map[string]bool),
		joinable:     make(map[string]bool),
	}
	for _, k := range m.KnownCompanies {
		seq := normSeq(k)
		if len(seq) == 0 {
			continue
		}
		c.known = append(c.known, knownCompany{
			display:  strings.TrimSpace(k),
			seq:      seq,
			squashed: squash(seq),
		})
	}
	for _, k := range m.IndustryKeywords {
		if n := normToken(k); n != "" && !c.keywords[n] {
			c.keywords[n] = true
			c.keywordList = append(c.keywordList, n)
		}
	}
	for _, s := range m.CompanySuffixes {
		c.suffixes[normToken(s)] = true
		c.joinable[normToken(s)] = true
	}
	for _, s := range m.WeakSuffixes {
		c.weak[normToken(s)] = true
		c.joinable[normToken(s)] = true
	}
	for _, a := range m.AcademicMarkers {
		seq := normSeq(a)
		if len(seq) == 0 {
			continue
		}
		c.academic = append(c.academic, seq)
		if len(seq) == 1 {
			c.academicWord[seq[0]] = true
		}
	}
	for _, u := range m.AcademicUnits {
		c.units[normToken(u)] = true
	}
	for _, d := range m.AcademicDomains {
		c.acDomains = append(c.acDomains, strings.ToLower(d))
	}
	for _, d := range m.FreeMailDomains {
		c.freeMail[strings.ToLower(d)] = true
	}
	c.rules = defaultRules()
	return c
}

// Default returns a Classifier built from DefaultMarkers.
func Default() *Classifier { return New(DefaultMarkers()) }

// FromConfig returns a Classifier using the default markers extended with
// the configured ones.
func FromConfig(cfg types.ClassifierConfig) *Classifier {
	return New(DefaultMarkers().Extend(cfg))
}

// Rules returns the rules in evaluation order.
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Classify decides whether affiliation names an industry employer.
// Industry-include rules take precedence over the academic-exclude rule;
// among industry rules the first in evaluation order supplies the company
// name and confidence.
func (c *Classifier) Classify(affiliation string) Result {
	in := c.parse(affiliation)
	if in.empty() {
		return Result{Confidence: Heuristic, Rule: RuleEmpty}
	}
	var academic *Hit
	for _, r := range c.rules {
		name, ok := r.match(c, in)
		if !ok {
			continue
		}
		if r.Tag == TagIndustryInclude {
			return Result{IsIndustry: true, CompanyName: name, Confidence: r.Confidence, Rule: r.Name}
		}
		if academic == nil {
			academic = &Hit{Rule: r.Name, Tag: r.Tag, Confidence: r.Confidence}
		}
	}
	if academic != nil {
		return Result{Confidence: academic.Confidence, Rule: academic.Rule}
	}
	return Result{Confidence: Heuristic, Rule: RuleNone}
}

// Evaluate runs every rule and returns all that fired, in evaluation order.
// It exists for auditing the tie-break; Classify stops at the first
// industry hit.
func (c *Classifier) Evaluate(affiliation string) []Hit {
	in := c.parse(affiliation)
	if in.empty() {
		return nil
	}
	var hits []Hit
	for _, r := range c.rules {
		if name, ok := r.match(c, in); ok {
			hits = append(hits, Hit{Rule: r.Name, Tag: r.Tag, Confidence: r.Confidence, CompanyName: name})
		}
	}
	return hits
}

// input is a parsed affiliation string.
type input struct {
	segs   []segment
	emails []string
}

func (in input) empty() bool { return len(in.segs) == 0 && len(in.emails) == 0 }

// allTokens returns the tokens of every segment in order.
func (in input) allTokens() []token {
	var all []token
	for _, s := range in.segs {
		all = append(all, s.toks...)
	}
	return all
}

func (c *Classifier) parse(affiliation string) input {
	affiliation = strings.TrimSpace(affiliation)
	if affiliation == "" {
		return input{}
	}
	emails := ExtractEmails(affiliation)
	rest := emailRe.ReplaceAllString(affiliation, " ")
	rest = emailLabelRe.ReplaceAllString(rest, " ")
	return input{segs: splitSegments(rest, c.joinable), emails: emails}
}

// emailLabelRe matches the "Electronic address:" prefix PubMed puts in
// front of author emails.
var emailLabelRe = regexp.MustCompile(`(?i)(electronic address|e-mail|email)\s*:`)

// isKeyword reports whether a normalized token carries an industry keyword:
// as the whole word, as a hyphenated part, or glued to the end of a name.
func (c *Classifier) isKeyword(n string) bool {
	if c.keywords[n] {
		return true
	}
	if strings.Contains(n, "-") {
		for _, part := range strings.Split(n, "-") {
			if c.keywords[part] {
				return true
			}
		}
	}
	for _, kw := range c.keywordList {
		if len(n) > len(kw)+2 && strings.HasSuffix(n, kw) {
			return true
		}
	}
	return false
}

// disciplineWords follow a keyword when it names a field of study.
var disciplineWords = map[string]bool{
	"science": true, "sciences": true, "engineering": true,
	"chemistry": true, "education": true, "policy": true,
}

// disciplineKeywords are the industry keywords that double as field names.
// Company forms such as "pharma", "biotech" or "pharmaceuticals" are not
// listed and never name a discipline.
var disciplineKeywords = map[string]bool{
	"biotechnology": true, "pharmaceutical": true, "therapeutics": true,
	"genomics": true, "bioscience": true, "biosciences": true,
}

// disciplineUse reports whether the keyword at toks[i] names an academic
// discipline ("Department of Biotechnology", "Pharmaceutical Sciences")
// rather than a company. Outside the discipline-word case the keyword must
// be a field-name form reached from "<unit> of|for" without crossing another
// stop word or unit, so "Institute for Immunology and Zeta Therapeutics"
// and "Center for Cancer Research at Acme Therapeutics" stay industry.
// A single "and" directly before the keyword joins two fields
// ("Chemistry and Biotechnology").
func (c *Classifier) disciplineUse(toks []token, i int) bool {
	if i+1 < len(toks) && disciplineWords[toks[i+1].norm] {
		return true
	}
	if !disciplineKeywords[toks[i].norm] {
		return false
	}
	for j := i - 1; j >= 0 && j >= i-4; j-- {
		n := toks[j].norm
		switch {
		case n == "of" || n == "for":
			return j > 0 && c.units[toks[j-1].norm]
		case (n == "and" || n == "&") && j == i-1:
			continue
		case stopWords[n] || n == "&" || c.units[n]:
			return false
		}
	}
	return false
}

// hasAcademic reports whether any academic marker occurs in toks.
func (c *Classifier) hasAcademic(toks []token) bool {
	for _, seq := range c.academic {
		if findSeq(toks, seq) >= 0 {
			return true
		}
	}
	return hospitalDepartment(toks)
}

// hospitalDepartment matches a hospital named together with a department.
func hospitalDepartment(toks []token) bool {
	var hospital, dept bool
	for _, t := range toks {
		switch t.norm {
		case "hospital", "hopital", "hospitals":
			hospital = true
		case "department", "dept":
			dept = true
		}
	}
	return hospital && dept
}

// stopWords end the backward scan for a company name.
var stopWords = map[string]bool{
	"of": true, "at": true, "for": true, "in": true, "from": true, "and": true,
}

// trailingDot lists suffixes whose abbreviation dot is part of the name.
var trailingDot = map[string]bool{"inc": true, "ltd": true, "corp": true, "co": true}

// extractName returns the longest run of original tokens that ends with the
// matched span [start, end) and any legal-form suffix after it. The run
// starts after the nearest stop word, academic unit, or academic word.
func (c *Classifier) extractName(seg segment, start, end int) string {
	s := start
	for s > 0 {
		p := seg.toks[s-1].norm
		if stopWords[p] || c.units[p] || c.academicWord[p] {
			break
		}
		s--
	}
	e := end
	for e < len(seg.toks) {
		n := seg.toks[e].norm
		if c.suffixes[n] || c.weak[n] || c.isKeyword(n) || n == "co" || n == "company" || n == "&" {
			e++
			continue
		}
		break
	}
	for e > end && seg.toks[e-1].norm == "&" {
		e--
	}

	raws := make([]string, 0, e-s)
	for _, t := range seg.toks[s:e] {
		raws = append(raws, t.raw)
	}
	name := strings.Trim(strings.Join(raws, " "), " ,;:()[]{}\"'")
	if !trailingDot[seg.toks[e-1].norm] {
		name = strings.TrimRight(name, ".")
	}
	return name
}

// squash joins normalized words without separators for domain matching.
func squash(seq []string) string {
	var b strings.Builder
	for _, w := range seq {
		for _, r := range w {
			if r != '-' && r != '&' {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
