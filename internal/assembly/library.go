package assembly

import (
	"fmt"
	"sort"

	"molevo/internal/model"
)

// BuildingBlock is a reusable molecular fragment. Head and Tail index the
// atoms used to link the fragment to its neighbors during assembly.
type BuildingBlock struct {
	Name  string
	Atoms []model.Atom
	Bonds []model.Bond
	Head  int
	Tail  int
}

// Library maps building block names to fragments.
type Library struct {
	blocks map[string]BuildingBlock
}

// NewLibrary validates and indexes the given fragments.
func NewLibrary(blocks ...BuildingBlock) (*Library, error) {
	indexed := make(map[string]BuildingBlock, len(blocks))
	for _, block := range blocks {
		if block.Name == "" {
			return nil, fmt.Errorf("building block name is required")
		}
		if len(block.Atoms) == 0 {
			return nil, fmt.Errorf("building block %s has no atoms", block.Name)
		}
		if block.Head < 0 || block.Head >= len(block.Atoms) || block.Tail < 0 || block.Tail >= len(block.Atoms) {
			return nil, fmt.Errorf("building block %s has link atoms out of range", block.Name)
		}
		if _, exists := indexed[block.Name]; exists {
			return nil, fmt.Errorf("duplicate building block: %s", block.Name)
		}
		indexed[block.Name] = block
	}
	return &Library{blocks: indexed}, nil
}

// Get returns the named fragment.
func (l *Library) Get(name string) (BuildingBlock, bool) {
	block, ok := l.blocks[name]
	return block, ok
}

// Names returns all block names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.blocks))
	for name := range l.blocks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultLibrary is a small heavy-atom fragment set used by the CLI and
// tests. Real deployments supply their own fragments.
func DefaultLibrary() *Library {
	library, err := NewLibrary(
		BuildingBlock{
			Name:  "ethylene",
			Atoms: []model.Atom{{Element: "C"}, {Element: "C"}},
			Bonds: []model.Bond{{A: 0, B: 1, Order: 1}},
			Head:  0,
			Tail:  1,
		},
		BuildingBlock{
			Name:  "propylene",
			Atoms: []model.Atom{{Element: "C"}, {Element: "C"}, {Element: "C"}},
			Bonds: []model.Bond{{A: 0, B: 1, Order: 1}, {A: 1, B: 2, Order: 1}},
			Head:  0,
			Tail:  2,
		},
		BuildingBlock{
			Name:  "ether",
			Atoms: []model.Atom{{Element: "C"}, {Element: "O"}, {Element: "C"}},
			Bonds: []model.Bond{{A: 0, B: 1, Order: 1}, {A: 1, B: 2, Order: 1}},
			Head:  0,
			Tail:  2,
		},
		BuildingBlock{
			Name:  "amine",
			Atoms: []model.Atom{{Element: "C"}, {Element: "N"}},
			Bonds: []model.Bond{{A: 0, B: 1, Order: 1}},
			Head:  0,
			Tail:  1,
		},
		BuildingBlock{
			Name:  "carbonyl",
			Atoms: []model.Atom{{Element: "C"}, {Element: "O"}, {Element: "C"}},
			Bonds: []model.Bond{{A: 0, B: 1, Order: 2}, {A: 0, B: 2, Order: 1}},
			Head:  0,
			Tail:  2,
		},
		BuildingBlock{
			Name:  "thioether",
			Atoms: []model.Atom{{Element: "C"}, {Element: "S"}, {Element: "C"}},
			Bonds: []model.Bond{{A: 0, B: 1, Order: 1}, {A: 1, B: 2, Order: 1}},
			Head:  0,
			Tail:  2,
		},
	)
	if err != nil {
		panic(err)
	}
	return library
}
