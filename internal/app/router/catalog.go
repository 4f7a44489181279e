package router

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog holds the three keyword sets. Order inside a set does not matter for
// the result, but the sets themselves are always tested causal first, then
// attribution, then home.
type Catalog struct {
	Causal      []string `yaml:"causal"`
	Attribution []string `yaml:"attribution"`
	Home        []string `yaml:"home"`
}

// DefaultCatalog returns the built-in vocabulary.
func DefaultCatalog() Catalog {
	return Catalog{
		Causal:      []string{"검증", "인과", "증분", "리프트", "이중차분", "DiD", "Lift"},
		Attribution: []string{"기여도", "어트리뷰션", "MTA", "분석", "성과", "이유", "왜", "다시"},
		Home:        []string{"처음", "메인", "홈", "대시보드", "돌아가"},
	}
}

// LoadCatalog reads a YAML keyword file:
//
//	causal: [검증, 인과]
//	attribution: [기여도, 분석]
//	home: [처음, 메인]
func LoadCatalog(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read keyword catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse keyword catalog %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return Catalog{}, fmt.Errorf("keyword catalog %s: %w", path, err)
	}
	return c, nil
}

// Validate checks that every set is non-empty, has no blank entries and that no
// keyword appears in more than one set.
func (c Catalog) Validate() error {
	sets := []struct {
		name string
		kws  []string
	}{
		{"causal", c.Causal},
		{"attribution", c.Attribution},
		{"home", c.Home},
	}

	var errs []error
	owner := make(map[string]string)
	for _, s := range sets {
		if len(s.kws) == 0 {
			errs = append(errs, fmt.Errorf("%s: no keywords", s.name))
			continue
		}
		for _, kw := range s.kws {
			if kw == "" {
				errs = append(errs, fmt.Errorf("%s: empty keyword", s.name))
				continue
			}
			if prev, ok := owner[kw]; ok && prev != s.name {
				errs = append(errs, fmt.Errorf("keyword %q is in both %s and %s", kw, prev, s.name))
				continue
			}
			owner[kw] = s.name
		}
	}
	return errors.Join(errs...)
}
