package chem

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"molevo/internal/model"
)

// Fingerprint derives a canonical cache key from a molecular graph. Two
// structures that differ only in atom or bond ordering map to the same key.
//
// Atom labels start from (element, charge) and are refined iteratively by
// folding in the sorted multiset of (bond order, neighbor label) pairs, one
// round per atom, which is enough for refinement to stabilize. The final key
// hashes the sorted label multiset together with the sorted edge labels, so
// the result is independent of input order by construction.
func Fingerprint(s model.Structure) string {
	n := len(s.Atoms)
	if n == 0 {
		return hashHex("empty")
	}

	type edge struct {
		nbr   int
		order int
	}
	adjacency := make([][]edge, n)
	for _, bond := range s.Bonds {
		adjacency[bond.A] = append(adjacency[bond.A], edge{nbr: bond.B, order: bond.Order})
		adjacency[bond.B] = append(adjacency[bond.B], edge{nbr: bond.A, order: bond.Order})
	}

	labels := make([]string, n)
	for i, atom := range s.Atoms {
		labels[i] = hashHex(fmt.Sprintf("atom|%s|%d", atom.Element, atom.Charge))
	}

	for round := 0; round < n; round++ {
		next := make([]string, n)
		for i := range labels {
			parts := make([]string, 0, len(adjacency[i]))
			for _, e := range adjacency[i] {
				parts = append(parts, fmt.Sprintf("%d:%s", e.order, labels[e.nbr]))
			}
			sort.Strings(parts)
			next[i] = hashHex(labels[i] + "|" + strings.Join(parts, ","))
		}
		labels = next
	}

	atomLabels := append([]string(nil), labels...)
	sort.Strings(atomLabels)

	edgeLabels := make([]string, 0, len(s.Bonds))
	for _, bond := range s.Bonds {
		a, b := labels[bond.A], labels[bond.B]
		if b < a {
			a, b = b, a
		}
		edgeLabels = append(edgeLabels, fmt.Sprintf("%s~%s~%d", a, b, bond.Order))
	}
	sort.Strings(edgeLabels)

	return hashHex(strings.Join(atomLabels, ".") + "#" + strings.Join(edgeLabels, "."))
}

func hashHex(s string) string {
	digest := sha256.Sum256([]byte(s))
	return hex.EncodeToString(digest[:])
}
