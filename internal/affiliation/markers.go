// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package affiliation

import "github.com/pdiddy/fetch-papers/pkg/types"

// Markers are the keyword lists the rules match against. Values are plain
// phrases; they are folded and tokenized when a Classifier is built.
type Markers struct {
	// KnownCompanies are pharma/biotech company names matched as whole
	// words. The first spelling of each entry is used as written.
	KnownCompanies []string

	// IndustryKeywords flag a company when they appear as a word, a
	// hyphenated part, or the tail of a glued name ("AcmeTherapeutics").
	IndustryKeywords []string

	// CompanySuffixes are legal-form suffixes that follow a company name.
	CompanySuffixes []string

	// WeakSuffixes count as suffixes only when the segment carries no
	// academic marker ("Laboratories" in "Merck Research Laboratories"
	// versus a university laboratory).
	WeakSuffixes []string

	// AcademicMarkers are phrases naming universities, hospitals, public
	// labs and other non-commercial institutions.
	AcademicMarkers []string

	// AcademicUnits are words that, followed by "of" or "for", turn an
	// industry keyword into a discipline name ("Department of Biotechnology").
	AcademicUnits []string

	// AcademicDomains are email domain suffixes or labels that mark an
	// address as academic or governmental.
	AcademicDomains []string

	// FreeMailDomains carry no institutional signal.
	FreeMailDomains []string
}

// DefaultMarkers returns the built-in marker lists.
func DefaultMarkers() Markers {
	return Markers{
		KnownCompanies: []string{
			"Pfizer", "Merck", "MSD", "Novartis", "Roche", "Hoffmann-La Roche",
			"Johnson & Johnson", "Johnson and Johnson", "Janssen", "AstraZeneca", "GSK", "GlaxoSmithKline",
			"Bristol-Myers Squibb", "Bristol Myers Squibb", "BMS", "Sanofi", "AbbVie",
			"Eli Lilly", "Lilly Research Laboratories", "Amgen", "Gilead", "Biogen",
			"Celgene", "Regeneron", "Alexion", "Alnylam", "Moderna", "BioNTech",
			"CureVac", "Genentech", "Novo Nordisk", "Takeda", "Bayer",
			"Boehringer Ingelheim", "Astellas", "Daiichi Sankyo", "Teva", "Mylan",
			"Viatris", "Fresenius", "Hikma", "Eisai", "Chugai", "Servier", "Ipsen",
			"Lundbeck", "Grifols", "CSL Behring", "Incyte", "Seagen", "BeiGene", "Illumina",
			"Jiangsu Hengrui", "Sun Pharma", "Dr. Reddy's", "Cipla", "Zydus",
		},
		IndustryKeywords: []string{
			"pharma", "pharmaceutical", "pharmaceuticals", "pharmaceutica",
			"biopharma", "biopharmaceutical", "biopharmaceuticals",
			"biotech", "biotechnology", "biotechnologies",
			"therapeutics", "biotherapeutics", "bioscience", "biosciences",
			"biologics", "genomics",
		},
		CompanySuffixes: []string{
			"inc", "incorporated", "ltd", "llc", "corp", "corporation",
			"gmbh", "ag", "plc", "bv", "kk", "srl", "spa", "sas",
		},
		WeakSuffixes: []string{
			"laboratories", "limited",
		},
		AcademicMarkers: []string{
			"university", "universidad", "universidade", "universite", "universita",
			"universitat", "universiteit", "universitet", "univ",
			"college", "institute of technology", "school of", "faculty",
			"academy", "medical center", "medical centre", "medical school",
			"national laboratory", "national institutes of health", "nih",
			"national cancer institute", "cnrs", "inserm", "max planck",
			"polytechnic", "ecole", "charite", "universitatsmedizin",
		},
		AcademicUnits: []string{
			"department", "dept", "school", "faculty", "institute", "college",
			"division", "center", "centre", "laboratory", "unit", "program",
			"programme", "chair", "section",
		},
		AcademicDomains: []string{
			".edu", ".gov", ".org", ".mil", ".int", ".ac", ".nhs", "univ", "uni-",
			"hosp", "inserm", "cnrs",
		},
		FreeMailDomains: []string{
			"gmail.com", "googlemail.com", "yahoo.com", "hotmail.com", "outlook.com",
			"live.com", "aol.com", "icloud.com", "protonmail.com", "163.com", "126.com",
			"qq.com", "sina.com", "mail.ru", "yandex.ru", "gmx.de", "web.de",
		},
	}
}

// Extend returns a copy of m with the configured extra markers appended.
// Extra industry markers join IndustryKeywords.
func (m Markers) Extend(cfg types.ClassifierConfig) Markers {
	out := m
	out.KnownCompanies = append(append([]string(nil), m.KnownCompanies...), cfg.KnownCompanies...)
	out.IndustryKeywords = append(append([]string(nil), m.IndustryKeywords...), cfg.IndustryMarkers...)
	out.AcademicMarkers = append(append([]string(nil), m.AcademicMarkers...), cfg.AcademicMarkers...)
	return out
}
