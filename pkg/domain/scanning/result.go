package scanning

// Verdict is the final classification of a scanned input. VerdictInfo is a
// sentinel used by chat mode, whose numeric fields carry no meaning.
type Verdict string

const (
	VerdictSafe    Verdict = "SAFE"
	VerdictWarning Verdict = "WARNING"
	VerdictBlocked Verdict = "BLOCKED"
	VerdictInfo    Verdict = "INFO"
)

// Risk score thresholds fixed by the instruction templates and enforced by
// the fallback heuristic.
const (
	BlockedThreshold = 80
	WarningThreshold = 30

	FallbackBlockedScore = 85
	FallbackSafeScore    = 5
)

type AttackCategory string

const (
	CategoryNone               AttackCategory = "None"
	CategoryPromptInjection    AttackCategory = "Prompt Injection"
	CategoryJailbreak          AttackCategory = "Jailbreak"
	CategoryDataExtraction     AttackCategory = "Data Extraction"
	CategoryPhishing           AttackCategory = "Phishing"
	CategoryMalware            AttackCategory = "Malware"
	CategoryCodeVulnerability  AttackCategory = "Code Vulnerability"
	CategoryBruteForce         AttackCategory = "Brute Force"
	CategoryCredentialStuffing AttackCategory = "Credential Stuffing"
)

// CategoriesFor returns the attack categories a mode may emit. Unrecognized
// values are substituted with a mode default by the normalizer.
func CategoriesFor(mode Mode) []AttackCategory {
	base := []AttackCategory{
		CategoryNone,
		CategoryPromptInjection,
		CategoryJailbreak,
		CategoryDataExtraction,
		CategoryPhishing,
	}
	switch mode {
	case ModeLogAnalysis:
		return append(base, CategoryBruteForce, CategoryCredentialStuffing, CategoryMalware)
	case ModeCodeScan:
		return append(base, CategoryCodeVulnerability, CategoryMalware)
	default:
		return base
	}
}

// DefaultCategory is substituted when a blocked result carries an
// unrecognized category.
func DefaultCategory(mode Mode) AttackCategory {
	switch mode {
	case ModeLogAnalysis:
		return CategoryBruteForce
	case ModeCodeScan:
		return CategoryCodeVulnerability
	default:
		return CategoryPromptInjection
	}
}

type Finding struct {
	Severity    string `json:"severity"`
	Line        int    `json:"line"`
	Description string `json:"description"`
}

type CodeStats struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Result is the canonical normalized output of classification, produced from
// either the LLM path or the fallback heuristic. It is never mutated after
// creation.
type Result struct {
	Verdict        Verdict        `json:"verdict"`
	RiskScore      int            `json:"riskScore"`
	ThreatType     string         `json:"threatType"`
	AttackCategory AttackCategory `json:"attackCategory"`

	// LogAnalysis mode only.
	Summary    string `json:"summary,omitempty"`
	Mitigation string `json:"mitigation,omitempty"`

	// Chat mode only; bypasses the numeric verdict fields.
	Message string `json:"message,omitempty"`

	// CodeScan mode only.
	Findings []Finding  `json:"findings,omitempty"`
	Stats    *CodeStats `json:"stats,omitempty"`

	// Non-empty when the result was produced in degraded/offline mode.
	Note string `json:"note,omitempty"`
}

// IsClean reports whether the result carries no threat signal.
func (r *Result) IsClean() bool {
	return r.Verdict == VerdictSafe
}

// ClampScore coerces a raw risk score into [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// VerdictForScore derives a verdict from the risk score thresholds. Modes
// without WARNING collapse the middle band into SAFE, matching the binary
// contract of the prompt surface.
func VerdictForScore(score int, mode Mode) Verdict {
	switch {
	case score >= BlockedThreshold:
		return VerdictBlocked
	case score >= WarningThreshold && mode.SupportsWarning():
		return VerdictWarning
	default:
		return VerdictSafe
	}
}
