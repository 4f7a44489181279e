package router_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/insight-agent/internal/app/router"
	"github.com/PabloGalante/insight-agent/internal/domain"
)

func TestClassifyScenarios(t *testing.T) {
	r := router.NewDefault()

	tests := []struct {
		name       string
		text       string
		current    domain.ViewMode
		wantIntent domain.Intent
		wantNext   domain.ViewMode
		wantReply  string
		transition bool
	}{
		{"causal request", "S25 검증해줘", domain.ModeDefault, domain.IntentCausal, domain.ModeCausal, router.ReplyCausal, true},
		{"attribution request", "매체 기여도 분석", domain.ModeDefault, domain.IntentAttribution, domain.ModeAttribution, router.ReplyAttribution, true},
		{"home request", "처음으로 가줘", domain.ModeCausal, domain.IntentHome, domain.ModeDefault, router.ReplyHome, false},
		{"greeting is not understood", "안녕", domain.ModeAttribution, domain.IntentUnknown, "", router.ReplyFallback, false},
		{"empty input", "", domain.ModeDefault, domain.IntentUnknown, "", router.ReplyFallback, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Classify(tt.text, tt.current)

			assert.Equal(t, tt.wantIntent, d.Intent)
			assert.Equal(t, tt.wantNext, d.Next)
			assert.Equal(t, tt.wantReply, d.Reply)
			assert.Equal(t, tt.transition, d.UsesTransition)
			assert.Equal(t, tt.current, d.From)
		})
	}
}

func TestClassifyPrecedence(t *testing.T) {
	r := router.NewDefault()

	// causal beats attribution
	d := r.Classify("기여도 말고 인과 효과를 검증해줘", domain.ModeDefault)
	assert.Equal(t, domain.ModeCausal, d.Next)

	// causal beats home
	d = r.Classify("처음 캠페인 리프트", domain.ModeAttribution)
	assert.Equal(t, domain.ModeCausal, d.Next)

	// attribution beats home
	d = r.Classify("메인 말고 성과 분석", domain.ModeCausal)
	assert.Equal(t, domain.ModeAttribution, d.Next)
}

func TestClassifyIsCaseSensitive(t *testing.T) {
	r := router.NewDefault()

	assert.Equal(t, domain.ModeCausal, r.Classify("run a DiD please", domain.ModeDefault).Next)
	assert.False(t, r.Classify("run a did please", domain.ModeDefault).ChangesMode())
	assert.Equal(t, domain.ModeAttribution, r.Classify("MTA", domain.ModeDefault).Next)
	assert.False(t, r.Classify("mta", domain.ModeDefault).ChangesMode())
}

func TestHomeNeverUsesTransition(t *testing.T) {
	r := router.NewDefault()

	for _, kw := range router.DefaultCatalog().Home {
		d := r.Classify(kw, domain.ModeCausal)
		assert.Equal(t, domain.IntentHome, d.Intent, kw)
		assert.False(t, d.UsesTransition, kw)
		assert.Empty(t, d.LoadingLabel, kw)
	}
}

func TestEveryCausalKeywordWinsOverAttribution(t *testing.T) {
	r := router.NewDefault()
	attr := router.DefaultCatalog().Attribution

	for _, kw := range router.DefaultCatalog().Causal {
		for _, other := range attr {
			d := r.Classify(other+" "+kw, domain.ModeDefault)
			assert.Equal(t, domain.ModeCausal, d.Next, "%q + %q", other, kw)
		}
	}
}

func TestNewCopiesCatalog(t *testing.T) {
	c := router.Catalog{
		Causal:      []string{"검증"},
		Attribution: []string{"기여도"},
		Home:        []string{"처음"},
	}
	r := router.New(c)
	c.Causal[0] = "기여도"

	assert.Equal(t, domain.ModeAttribution, r.Classify("기여도", domain.ModeDefault).Next)
	assert.Equal(t, domain.ModeCausal, r.Classify("검증", domain.ModeDefault).Next)
}

func TestDefaultCatalogIsValid(t *testing.T) {
	require.NoError(t, router.DefaultCatalog().Validate())
}

func TestLoadCatalog(t *testing.T) {
	c, err := router.LoadCatalog("testdata/keywords.yaml")
	require.NoError(t, err)

	r := router.New(c)
	assert.Equal(t, domain.ModeCausal, r.Classify("uplift test", domain.ModeDefault).Next)
	assert.Equal(t, domain.ModeAttribution, r.Classify("attribution", domain.ModeDefault).Next)
	assert.Equal(t, domain.ModeDefault, r.Classify("go home", domain.ModeCausal).Next)

	// "검증" alone is no longer a causal keyword with this file
	assert.False(t, r.Classify("검증", domain.ModeDefault).ChangesMode())
}

func TestLoadCatalogRejectsOverlapAndEmptySets(t *testing.T) {
	_, err := router.LoadCatalog("testdata/overlap.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"분석"`)
	assert.Contains(t, err.Error(), "home: no keywords")
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := router.LoadCatalog("testdata/nope.yaml")
	require.Error(t, err)
}
