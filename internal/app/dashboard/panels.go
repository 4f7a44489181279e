// Package dashboard holds the fixed panels shown for each view mode. The
// numbers are literal and are never recomputed.
package dashboard

import (
	"github.com/PabloGalante/insight-agent/internal/domain"
)

type ChartKind string

const (
	ChartLine ChartKind = "line"
	ChartBar  ChartKind = "bar"
)

type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Panel is one dashboard layout. Labels and every series have the same length.
type Panel struct {
	Mode     domain.ViewMode `json:"mode"`
	Title    string          `json:"title"`
	Caption  string          `json:"caption"`
	Kind     ChartKind       `json:"kind"`
	YAxis    string          `json:"y_axis"`
	Labels   []string        `json:"labels"`
	Series   []Series        `json:"series"`
	Insights []string        `json:"insights,omitempty"`
}

// PanelFor returns a fresh copy of the panel for mode. Unknown modes get the
// default dashboard.
func PanelFor(mode domain.ViewMode) Panel {
	switch mode {
	case domain.ModeAttribution:
		return attributionPanel()
	case domain.ModeCausal:
		return causalPanel()
	default:
		return defaultPanel()
	}
}

func defaultPanel() Panel {
	return Panel{
		Mode:    domain.ModeDefault,
		Title:   "일별 누적 매출 (목표 vs 실적)",
		Caption: "현재 'Last Click' 기준 데이터를 보고 계십니다.",
		Kind:    ChartLine,
		YAxis:   "매출(원)",
		Labels:  []string{"D1", "D2", "D3", "D4", "D5", "D6", "D7"},
		Series: []Series{
			{Name: "target", Values: []float64{10000, 25000, 45000, 70000, 90000, 110000, 125000}},
			{Name: "actual", Values: []float64{12000, 28000, 48000, 75000, 105000, 138000, 142500}},
		},
	}
}

func attributionPanel() Panel {
	return Panel{
		Mode:    domain.ModeAttribution,
		Title:   "기여도 모델 비교 (Last Click vs MTA)",
		Caption: "숨겨진 영웅 발견: 인스타/카카오톡의 '인지 기여(어시스트)'가 전체 성과의 70%를 차지합니다.",
		Kind:    ChartBar,
		YAxis:   "기여도(%)",
		Labels:  []string{"Google", "Instagram", "Kakao"},
		Series: []Series{
			{Name: "last_click", Values: []float64{90, 5, 5}},
			{Name: "model", Values: []float64{30, 40, 30}},
		},
		Insights: []string{
			"인스타/카톡: '킬러 패스(어시스트)' 역할",
			"구글: '골(슈팅)' 역할",
		},
	}
}

func causalPanel() Panel {
	return Panel{
		Mode:    domain.ModeCausal,
		Title:   "캠페인 증분 효과 (대조군 vs 실험군)",
		Caption: "W3 캠페인 집행 이후 실험군 전환율이 대조군 추세를 크게 벗어났습니다.",
		Kind:    ChartLine,
		YAxis:   "전환율(%)",
		Labels:  []string{"W1", "W2", "W3", "W4", "W5"},
		Series: []Series{
			{Name: "control", Values: []float64{2.0, 2.2, 2.5, 2.8, 3.0}},
			{Name: "treatment", Values: []float64{2.0, 2.3, 4.5, 6.0, 7.5}},
		},
		Insights: []string{
			"W1~W2 두 그룹 추세가 평행해 비교 기준이 성립합니다.",
			"W5 기준 증분 효과: +4.5%p",
		},
	}
}

// Max returns the largest value across all series, used to scale charts.
func (p Panel) Max() float64 {
	var m float64
	for _, s := range p.Series {
		for _, v := range s.Values {
			if v > m {
				m = v
			}
		}
	}
	return m
}
