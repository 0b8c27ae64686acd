package classification

import (
	"strings"

	"github.com/aegis-sentinel/aegis/pkg/domain/scanning"
)

// OfflineNote is attached to every verdict produced without the classifier.
const OfflineNote = "System switched to offline mode (AI service unavailable). Basic keyword screening applied."

const offlineChatMessage = "The analysis service is temporarily offline. Please try again in a moment."

// fallbackKeyword pairs a lowercase marker with the category it evidences.
type fallbackKeyword struct {
	marker   string
	category scanning.AttackCategory
}

// Ordering matters: the first match decides the reported category.
var fallbackKeywords = []fallbackKeyword{
	{"ignore", scanning.CategoryPromptInjection},
	{"previous instructions", scanning.CategoryPromptInjection},
	{"system prompt", scanning.CategoryDataExtraction},
	{"reveal", scanning.CategoryDataExtraction},
	{"drop table", scanning.CategoryDataExtraction},
	{"delete from", scanning.CategoryDataExtraction},
	{"hack", scanning.CategoryJailbreak},
	{"bypass", scanning.CategoryJailbreak},
}

// log excerpts get screened against incident markers in addition to the base
// list.
var fallbackLogMarkers = []fallbackKeyword{
	{"failed password", scanning.CategoryBruteForce},
	{"auth_failure", scanning.CategoryBruteForce},
	{"unauthorized", scanning.CategoryCredentialStuffing},
	{"fatal", scanning.CategoryMalware},
}

// Screen produces a deterministic verdict when the classifier cannot. It
// never fails: any content yields either a conservative BLOCKED or a SAFE
// with a reduced-confidence note.
func Screen(mode scanning.Mode, content string) scanning.Result {
	if mode == scanning.ModeChat {
		return scanning.Result{
			Verdict:        scanning.VerdictInfo,
			RiskScore:      0,
			ThreatType:     "None",
			AttackCategory: scanning.CategoryNone,
			Message:        offlineChatMessage,
			Note:           OfflineNote,
		}
	}

	keywords := fallbackKeywords
	if mode == scanning.ModeLogAnalysis {
		keywords = append(fallbackLogMarkers, fallbackKeywords...)
	}

	lowered := strings.ToLower(content)
	for _, kw := range keywords {
		if strings.Contains(lowered, kw.marker) {
			return scanning.Result{
				Verdict:        scanning.VerdictBlocked,
				RiskScore:      scanning.FallbackBlockedScore,
				ThreatType:     "Fail-Safe Pattern Match",
				AttackCategory: normalizeCategoryForMode(kw.category, mode),
				Note:           OfflineNote,
			}
		}
	}

	return scanning.Result{
		Verdict:        scanning.VerdictSafe,
		RiskScore:      scanning.FallbackSafeScore,
		ThreatType:     "None",
		AttackCategory: scanning.CategoryNone,
		Note:           OfflineNote,
	}
}

// normalizeCategoryForMode keeps the reported category inside the mode's
// taxonomy, falling back to the mode default when a marker's category does
// not apply.
func normalizeCategoryForMode(category scanning.AttackCategory, mode scanning.Mode) scanning.AttackCategory {
	for _, allowed := range scanning.CategoriesFor(mode) {
		if category == allowed {
			return category
		}
	}
	return scanning.DefaultCategory(mode)
}
