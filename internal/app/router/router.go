// Package router turns free-text chat input into a dashboard view decision.
package router

import (
	"strings"

	"github.com/PabloGalante/insight-agent/internal/domain"
)

const (
	ReplyCausal = "네, 캠페인 집행 그룹과 비교 그룹을 **이중차분(DiD)** 방식으로 비교해 순수 증분 효과를 검증했습니다. 오른쪽 결과를 확인해주세요! 👉"

	ReplyAttribution = "네, 전체 고객 여정 데이터를 기반으로 **MTA(멀티 터치 어트리뷰션)** 분석을 수행했습니다. 오른쪽 결과를 확인해주세요! 👉"

	ReplyHome = "메인 대시보드로 돌아왔습니다. 목표 대비 매출 현황을 확인해보세요."

	ReplyFallback = "죄송합니다. 저는 마케팅 성과 분석 에이전트입니다. **'성과 분석'**이나 **'기여도'**, **'효과 검증'**에 대해 물어봐주세요. 😅"

	LabelCausal      = "대조군과 실험군의 증분 효과를 검증하는 중..."
	LabelAttribution = "전체 고객 여정 데이터를 분석하는 중..."
)

// Router is a first-match-wins keyword classifier. It holds no mutable state
// and is safe for concurrent use.
type Router struct {
	catalog Catalog
}

var _ domain.Classifier = (*Router)(nil)

// New builds a Router over c. The catalog is copied.
func New(c Catalog) *Router {
	return &Router{catalog: Catalog{
		Causal:      append([]string(nil), c.Causal...),
		Attribution: append([]string(nil), c.Attribution...),
		Home:        append([]string(nil), c.Home...),
	}}
}

// NewDefault builds a Router over DefaultCatalog.
func NewDefault() *Router {
	return New(DefaultCatalog())
}

// Classify matches text against the causal, attribution and home sets in that
// order. Matching is case-sensitive substring containment on the raw text.
func (r *Router) Classify(text string, current domain.ViewMode) domain.Decision {
	switch {
	case containsAny(text, r.catalog.Causal):
		return domain.Decision{
			Intent:         domain.IntentCausal,
			From:           current,
			Next:           domain.ModeCausal,
			Reply:          ReplyCausal,
			UsesTransition: true,
			LoadingLabel:   LabelCausal,
		}
	case containsAny(text, r.catalog.Attribution):
		return domain.Decision{
			Intent:         domain.IntentAttribution,
			From:           current,
			Next:           domain.ModeAttribution,
			Reply:          ReplyAttribution,
			UsesTransition: true,
			LoadingLabel:   LabelAttribution,
		}
	case containsAny(text, r.catalog.Home):
		return domain.Decision{
			Intent: domain.IntentHome,
			From:   current,
			Next:   domain.ModeDefault,
			Reply:  ReplyHome,
		}
	default:
		return domain.Decision{
			Intent: domain.IntentUnknown,
			From:   current,
			Reply:  ReplyFallback,
		}
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
