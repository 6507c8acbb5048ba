package scanners

import (
	"fmt"

	"github.com/user/scanhub/pkg/engine"
	"github.com/user/scanhub/pkg/process"
)

// Selector maps a scan category to its scanner.
type Selector struct {
	scanners map[engine.Category]Scanner
}

// NewSelector builds the stock category table on top of runner.
func NewSelector(runner process.Runner, cfg Config) *Selector {
	return NewSelectorWith(map[engine.Category]Scanner{
		engine.CategorySAST:    NewStaticAnalysis(runner, cfg),
		engine.CategorySCA:     NewDependencyScan(runner, cfg),
		engine.CategoryDocker:  NewContainerImageScan(runner, cfg),
		engine.CategorySecrets: NewSecretScan(runner, cfg),
	})
}

// NewSelectorWith builds a selector from an explicit table.
func NewSelectorWith(table map[engine.Category]Scanner) *Selector {
	s := &Selector{scanners: make(map[engine.Category]Scanner, len(table))}
	for c, sc := range table {
		s.scanners[c] = sc
	}
	return s
}

// Select returns the scanner for a category.
func (s *Selector) Select(c engine.Category) (Scanner, error) {
	sc, ok := s.scanners[c]
	if !ok {
		return nil, fmt.Errorf("%w: unknown scan type %q", engine.ErrConfiguration, c)
	}
	return sc, nil
}

// Validate parses a category name and checks that a scanner serves it.
func (s *Selector) Validate(category string) (engine.Category, error) {
	c, err := engine.ParseCategory(category)
	if err != nil {
		return "", err
	}
	if _, err := s.Select(c); err != nil {
		return "", err
	}
	return c, nil
}
