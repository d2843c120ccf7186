// Package recommend derives, for each capability family, the account best
// positioned to take over from the active one. It is a pure function of the
// account snapshot: no caching, re-derived on every call.
package recommend

import (
	"math"
	"sort"

	"github.com/l11223/kiro-ai-gateway/internal/models"
)

// Family identifies a capability family.
type Family string

const (
	// FamilyGemini blends the pro and flash capabilities 70/30.
	FamilyGemini Family = "gemini"
	// FamilyClaude matches any capability containing "claude".
	FamilyClaude Family = "claude"
)

// Capability names scored per family. Gemini names are matched exactly
// (case-insensitive); the claude family matches by substring.
const (
	geminiProCapability   = "gemini-3-pro-high"
	geminiFlashCapability = "gemini-3-flash"
	claudeFragment        = "claude"
)

// Blend weights for the gemini family.
const (
	geminiProWeight   = 0.7
	geminiFlashWeight = 0.3
)

// Recommendation is one per-family suggestion.
type Recommendation struct {
	Family    Family `json:"family"`
	AccountID string `json:"account_id"`
	Score     int    `json:"score"`
}

// candidate is one scored account within a family ranking.
type candidate struct {
	accountID string
	score     int
}

// GeminiScore blends the pro and flash percentages for one account.
// Either capability defaults to 0 when absent from the snapshot.
func GeminiScore(account models.Account) int {
	pro, _ := account.Quota.PercentageFor(geminiProCapability)
	flash, _ := account.Quota.PercentageFor(geminiFlashCapability)
	return int(math.Round(geminiProWeight*float64(pro) + geminiFlashWeight*float64(flash)))
}

// ClaudeScore returns the percentage of the first claude-named capability,
// 0 when absent.
func ClaudeScore(account models.Account) int {
	score, _ := account.Quota.PercentageContaining(claudeFragment)
	return score
}

// Recommend computes at most one recommendation per family from the given
// snapshot, excluding the active account. Accounts scoring 0 for a family
// are not recommendable for it: in this derived ranking, exhausted and
// unknown quota collapse to the same outcome. An account whose snapshot is
// forbidden is still scored as-is.
func Recommend(accounts []models.Account, currentID string) []Recommendation {
	var gemini, claude []candidate
	for _, account := range accounts {
		if account.ID == currentID {
			continue
		}
		if score := GeminiScore(account); score > 0 {
			gemini = append(gemini, candidate{accountID: account.ID, score: score})
		}
		if score := ClaudeScore(account); score > 0 {
			claude = append(claude, candidate{accountID: account.ID, score: score})
		}
	}

	// Descending by score; the stable sort keeps collection order on ties.
	sort.SliceStable(gemini, func(i, j int) bool { return gemini[i].score > gemini[j].score })
	sort.SliceStable(claude, func(i, j int) bool { return claude[i].score > claude[j].score })

	geminiPick, claudePick := resolve(gemini, claude)

	out := make([]Recommendation, 0, 2)
	if geminiPick != nil {
		out = append(out, Recommendation{Family: FamilyGemini, AccountID: geminiPick.accountID, Score: geminiPick.score})
	}
	if claudePick != nil {
		out = append(out, Recommendation{Family: FamilyClaude, AccountID: claudePick.accountID, Score: claudePick.score})
	}
	return out
}

// resolve picks the top candidate per family, breaking the case where both
// families rank the same account first. The two alternative assignments are
// compared by combined score: keeping the contested account for gemini and
// demoting claude to its runner-up, versus the reverse. The gemini-keeping
// assignment wins ties.
func resolve(gemini, claude []candidate) (*candidate, *candidate) {
	geminiTop := head(gemini)
	claudeTop := head(claude)
	if geminiTop == nil || claudeTop == nil || geminiTop.accountID != claudeTop.accountID {
		return geminiTop, claudeTop
	}

	geminiNext := second(gemini)
	claudeNext := second(claude)

	switch {
	case geminiNext == nil && claudeNext == nil:
		// Nothing to demote to: gemini keeps the contested account.
		return geminiTop, nil
	case claudeNext == nil:
		// Claude has no fallback, so it keeps the contested account.
		return geminiNext, claudeTop
	case geminiNext == nil:
		return geminiTop, claudeNext
	default:
		keepForGemini := geminiTop.score + claudeNext.score
		keepForClaude := geminiNext.score + claudeTop.score
		if keepForGemini >= keepForClaude {
			return geminiTop, claudeNext
		}
		return geminiNext, claudeTop
	}
}

func head(ranked []candidate) *candidate {
	if len(ranked) == 0 {
		return nil
	}
	return &ranked[0]
}

func second(ranked []candidate) *candidate {
	if len(ranked) < 2 {
		return nil
	}
	return &ranked[1]
}
