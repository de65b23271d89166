package chem

import (
	"fmt"

	"molevo/internal/model"
)

// atomicWeights covers the elements the built-in building block libraries
// use. Unknown elements fall back to a neutral weight of 1.
var atomicWeights = map[string]float64{
	"H":  1.008,
	"C":  12.011,
	"N":  14.007,
	"O":  15.999,
	"F":  18.998,
	"P":  30.974,
	"S":  32.06,
	"Cl": 35.45,
	"Br": 79.904,
	"I":  126.904,
}

// MolecularWeight sums atomic weights over the structure's atoms.
func MolecularWeight(s model.Structure) float64 {
	total := 0.0
	for _, atom := range s.Atoms {
		weight, ok := atomicWeights[atom.Element]
		if !ok {
			weight = 1.0
		}
		total += weight
	}
	return total
}

// Degrees returns per-atom bond counts.
func Degrees(s model.Structure) []int {
	degrees := make([]int, len(s.Atoms))
	for _, bond := range s.Bonds {
		degrees[bond.A]++
		degrees[bond.B]++
	}
	return degrees
}

// CountRotatableBonds counts single bonds that are not part of a ring and
// whose endpoints both connect to at least one further atom.
func CountRotatableBonds(s model.Structure) int {
	degrees := Degrees(s)
	count := 0
	for i, bond := range s.Bonds {
		if bond.Order != 1 {
			continue
		}
		if degrees[bond.A] < 2 || degrees[bond.B] < 2 {
			continue
		}
		if bondInRing(s, i) {
			continue
		}
		count++
	}
	return count
}

// bondInRing reports whether bond idx lies on a cycle: its endpoints remain
// connected when the bond itself is removed.
func bondInRing(s model.Structure, idx int) bool {
	target := s.Bonds[idx]
	visited := make([]bool, len(s.Atoms))
	stack := []int{target.A}
	visited[target.A] = true
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == target.B {
			return true
		}
		for i, bond := range s.Bonds {
			if i == idx {
				continue
			}
			next := -1
			switch cur {
			case bond.A:
				next = bond.B
			case bond.B:
				next = bond.A
			}
			if next >= 0 && !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// Validate checks bond indices against the atom count.
func Validate(s model.Structure) error {
	for i, bond := range s.Bonds {
		if bond.A < 0 || bond.A >= len(s.Atoms) || bond.B < 0 || bond.B >= len(s.Atoms) {
			return fmt.Errorf("bond %d references atom out of range: %d-%d", i, bond.A, bond.B)
		}
		if bond.A == bond.B {
			return fmt.Errorf("bond %d is a self loop on atom %d", i, bond.A)
		}
		if bond.Order <= 0 {
			return fmt.Errorf("bond %d has invalid order %d", i, bond.Order)
		}
	}
	return nil
}
