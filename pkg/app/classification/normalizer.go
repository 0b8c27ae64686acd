package classification

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	domainErrors "github.com/aegis-sentinel/aegis/pkg/domain/errors"
	"github.com/aegis-sentinel/aegis/pkg/domain/scanning"
)

// Providers occasionally wrap the JSON object in a markdown fence despite the
// template forbidding it.
var fenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// rawVerdict mirrors the instruction template output contracts. Score and
// line numbers arrive as json.Number so integer and float renderings both
// parse.
type rawVerdict struct {
	Verdict        string       `json:"verdict"`
	RiskScore      json.Number  `json:"risk_score"`
	ThreatType     string       `json:"threat_type"`
	AttackCategory string       `json:"attack_category"`
	Summary        string       `json:"summary"`
	Mitigation     string       `json:"mitigation"`
	Message        string       `json:"message"`
	Findings       []rawFinding `json:"findings"`
	Stats          *rawStats    `json:"stats"`
}

func (r rawVerdict) empty() bool {
	return r.Verdict == "" && r.RiskScore == "" && r.ThreatType == "" &&
		r.AttackCategory == "" && r.Summary == "" && r.Mitigation == "" &&
		r.Message == "" && len(r.Findings) == 0 && r.Stats == nil
}

type rawFinding struct {
	Severity    string      `json:"severity"`
	Line        json.Number `json:"line"`
	Description string      `json:"description"`
}

type rawStats struct {
	Critical json.Number `json:"critical"`
	High     json.Number `json:"high"`
	Medium   json.Number `json:"medium"`
	Low      json.Number `json:"low"`
}

// Normalize coerces raw classifier output into a canonical Result. Output
// that cannot be parsed but clearly signals a block is treated as BLOCKED;
// anything else unparseable returns ErrMalformedClassifierOutput so the
// caller can fall through to the offline heuristic.
func Normalize(mode scanning.Mode, raw string) (scanning.Result, error) {
	cleaned := stripFence(raw)

	var parsed rawVerdict
	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.UseNumber()
	if err := decoder.Decode(&parsed); err != nil {
		if strings.Contains(strings.ToLower(raw), "blocked") {
			return scanning.Result{
				Verdict:        scanning.VerdictBlocked,
				RiskScore:      scanning.FallbackBlockedScore,
				ThreatType:     "Suspicious Content",
				AttackCategory: scanning.DefaultCategory(mode),
			}, nil
		}
		return scanning.Result{}, fmt.Errorf("%w: %v", domainErrors.ErrMalformedClassifierOutput, err)
	}

	// "null" and "{}" decode cleanly but carry no verdict. Refusing them here
	// keeps the degraded path honest instead of minting a confident SAFE.
	if parsed.empty() {
		return scanning.Result{}, fmt.Errorf("%w: empty envelope", domainErrors.ErrMalformedClassifierOutput)
	}

	if mode == scanning.ModeChat {
		if parsed.Message == "" {
			// Tolerate a model answering in plain text instead of the
			// message envelope.
			if cleaned == "" {
				return scanning.Result{}, fmt.Errorf("%w: empty chat reply", domainErrors.ErrMalformedClassifierOutput)
			}
			parsed.Message = cleaned
		}
		return scanning.Result{
			Verdict:        scanning.VerdictInfo,
			RiskScore:      0,
			ThreatType:     "None",
			AttackCategory: scanning.CategoryNone,
			Message:        parsed.Message,
		}, nil
	}

	score := scanning.ClampScore(numberToInt(parsed.RiskScore))
	verdict := normalizeVerdict(parsed.Verdict, score, mode)

	result := scanning.Result{
		Verdict:        verdict,
		RiskScore:      score,
		ThreatType:     parsed.ThreatType,
		AttackCategory: resolveCategory(parsed.AttackCategory, verdict, mode),
		Summary:        parsed.Summary,
		Mitigation:     parsed.Mitigation,
	}
	if result.ThreatType == "" {
		result.ThreatType = "None"
	}

	if mode == scanning.ModeCodeScan {
		result.Findings = normalizeFindings(parsed.Findings)
		result.Stats = normalizeStats(parsed.Stats, result.Findings)
	}
	return result, nil
}

// normalizeVerdict trusts a recognized verdict string and falls back to the
// score thresholds otherwise. WARNING from a mode that does not support it is
// demoted through the thresholds.
func normalizeVerdict(label string, score int, mode scanning.Mode) scanning.Verdict {
	switch scanning.Verdict(strings.ToUpper(strings.TrimSpace(label))) {
	case scanning.VerdictBlocked:
		return scanning.VerdictBlocked
	case scanning.VerdictWarning:
		if mode.SupportsWarning() {
			return scanning.VerdictWarning
		}
	case scanning.VerdictSafe:
		return scanning.VerdictSafe
	}
	return scanning.VerdictForScore(score, mode)
}

// resolveCategory validates the category against the mode's taxonomy. Clean
// verdicts always report None regardless of what the model labeled.
func resolveCategory(label string, verdict scanning.Verdict, mode scanning.Mode) scanning.AttackCategory {
	if verdict == scanning.VerdictSafe {
		return scanning.CategoryNone
	}
	category := scanning.AttackCategory(strings.TrimSpace(label))
	for _, allowed := range scanning.CategoriesFor(mode) {
		if category == allowed {
			return category
		}
	}
	return scanning.DefaultCategory(mode)
}

func normalizeFindings(raw []rawFinding) []scanning.Finding {
	if len(raw) == 0 {
		return nil
	}
	findings := make([]scanning.Finding, 0, len(raw))
	for _, f := range raw {
		findings = append(findings, scanning.Finding{
			Severity:    normalizeSeverity(f.Severity),
			Line:        numberToInt(f.Line),
			Description: f.Description,
		})
	}
	return findings
}

// normalizeStats prefers the model's own tally but recomputes it from the
// findings when absent.
func normalizeStats(raw *rawStats, findings []scanning.Finding) *scanning.CodeStats {
	if raw != nil {
		return &scanning.CodeStats{
			Critical: numberToInt(raw.Critical),
			High:     numberToInt(raw.High),
			Medium:   numberToInt(raw.Medium),
			Low:      numberToInt(raw.Low),
		}
	}
	if len(findings) == 0 {
		return nil
	}
	stats := &scanning.CodeStats{}
	for _, f := range findings {
		switch f.Severity {
		case "Critical":
			stats.Critical++
		case "High":
			stats.High++
		case "Medium":
			stats.Medium++
		case "Low":
			stats.Low++
		}
	}
	return stats
}

func normalizeSeverity(severity string) string {
	trimmed := strings.TrimSpace(severity)
	if trimmed == "" {
		return "Low"
	}
	return strings.ToUpper(trimmed[:1]) + strings.ToLower(trimmed[1:])
}

func stripFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if match := fenceRe.FindStringSubmatch(trimmed); match != nil {
		return match[1]
	}
	return trimmed
}

func numberToInt(n json.Number) int {
	if n == "" {
		return 0
	}
	if v, err := n.Int64(); err == nil {
		return int(v)
	}
	if f, err := strconv.ParseFloat(n.String(), 64); err == nil {
		return int(f)
	}
	return 0
}
