package objective

import (
	"context"
	"testing"

	"molevo/internal/model"
)

func TestRotatableBondsScore(t *testing.T) {
	chain := model.Structure{
		Atoms: []model.Atom{{Element: "C"}, {Element: "C"}, {Element: "C"}, {Element: "C"}},
		Bonds: []model.Bond{{A: 0, B: 1, Order: 1}, {A: 1, B: 2, Order: 1}, {A: 2, B: 3, Order: 1}},
	}
	score, err := RotatableBonds{}.Score(context.Background(), chain)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != -1 {
		t.Fatalf("score = %f, want -1", score)
	}
}

func TestMolecularWeightTargetScore(t *testing.T) {
	carbon := model.Structure{Atoms: []model.Atom{{Element: "C"}}}
	score, err := MolecularWeightTarget{Target: 12.011}.Score(context.Background(), carbon)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 0 {
		t.Fatalf("score = %f, want 0", score)
	}
}

func TestFromName(t *testing.T) {
	if _, err := FromName("rotatable_bonds", 0); err != nil {
		t.Fatalf("rotatable_bonds: %v", err)
	}
	if _, err := FromName("mw_target", 100); err != nil {
		t.Fatalf("mw_target: %v", err)
	}
	if _, err := FromName("mw_target", 0); err == nil {
		t.Fatal("expected param validation error")
	}
	if _, err := FromName("docking", 0); err == nil {
		t.Fatal("expected unsupported objective error")
	}
}
