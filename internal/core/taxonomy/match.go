package taxonomy

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// closestMatch は key に最も近い既存 term を返します。ratio が cutoff 未満なら nil です。
// 候補の比較は文字単位の SequenceMatcher で行い、同率の場合は先に現れた候補を優先します。
func closestMatch(key string, candidates []*Term, cutoff float64) *Term {
	if key == "" || len(candidates) == 0 {
		return nil
	}

	matcher := difflib.NewMatcher(nil, nil)
	matcher.SetSeq2(strings.Split(key, ""))

	var (
		best      *Term
		bestRatio float64
	)
	for _, candidate := range candidates {
		candidateKey := candidate.Key
		if candidateKey == "" {
			candidateKey = Fold(candidate.Name)
		}
		matcher.SetSeq1(strings.Split(candidateKey, ""))
		if matcher.RealQuickRatio() < cutoff || matcher.QuickRatio() < cutoff {
			continue
		}
		ratio := matcher.Ratio()
		if ratio >= cutoff && ratio > bestRatio {
			best = candidate
			bestRatio = ratio
		}
	}
	return best
}
