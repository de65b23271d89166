package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Atom is a single node of a molecular graph. The engine treats structures
// as opaque; only the chem, assembly and objective packages look inside.
type Atom struct {
	Element string `json:"element"`
	Charge  int    `json:"charge,omitempty"`
}

// Bond connects two atoms by index into Structure.Atoms.
type Bond struct {
	A     int `json:"a"`
	B     int `json:"b"`
	Order int `json:"order"`
}

// Structure is an assembled molecular graph.
type Structure struct {
	Atoms []Atom `json:"atoms"`
	Bonds []Bond `json:"bonds"`
}

// Clone returns a deep copy of the structure.
func (s Structure) Clone() Structure {
	return Structure{
		Atoms: append([]Atom(nil), s.Atoms...),
		Bonds: append([]Bond(nil), s.Bonds...),
	}
}

// Genotype is the buildable recipe for a candidate: an ordered sequence of
// building block names plus the topology used to assemble them.
type Genotype struct {
	Blocks   []string `json:"blocks"`
	Topology string   `json:"topology"`
}

// Clone returns a deep copy of the genotype.
func (g Genotype) Clone() Genotype {
	return Genotype{
		Blocks:   append([]string(nil), g.Blocks...),
		Topology: g.Topology,
	}
}

// FailureKind marks why a candidate has no valid fitness this generation.
type FailureKind string

const (
	FailureNone         FailureKind = ""
	FailureConstruction FailureKind = "construction"
	FailureEvaluation   FailureKind = "evaluation"
)

// Candidate is one genotype instance in the search space. Structure and
// Fingerprint are populated on first evaluation; Fitness stays nil until a
// score resolves, which is distinct from a computed score of zero. Lineage
// holds the parent fingerprints, empty for seeded candidates.
type Candidate struct {
	ID          string      `json:"id"`
	Genotype    Genotype    `json:"genotype"`
	Structure   *Structure  `json:"structure,omitempty"`
	Fingerprint string      `json:"fingerprint,omitempty"`
	Fitness     *float64    `json:"fitness,omitempty"`
	Failure     FailureKind `json:"failure,omitempty"`
	Lineage     []string    `json:"lineage,omitempty"`
}

// Scored reports whether the candidate holds a valid fitness.
func (c Candidate) Scored() bool {
	return c.Fitness != nil && c.Failure == FailureNone
}

// Clone returns a deep copy of the candidate.
func (c Candidate) Clone() Candidate {
	out := c
	out.Genotype = c.Genotype.Clone()
	if c.Structure != nil {
		structure := c.Structure.Clone()
		out.Structure = &structure
	}
	if c.Fitness != nil {
		fitness := *c.Fitness
		out.Fitness = &fitness
	}
	out.Lineage = append([]string(nil), c.Lineage...)
	return out
}

// CacheRecord is the persisted result of one fitness evaluation, keyed by
// structure fingerprint. Created on first successful evaluation and never
// mutated afterwards.
type CacheRecord struct {
	VersionedRecord
	Fingerprint   string  `json:"fingerprint"`
	Fitness       float64 `json:"fitness"`
	Objective     string  `json:"objective"`
	ElapsedMicros int64   `json:"elapsed_micros"`
	CreatedAtUTC  string  `json:"created_at_utc"`
}

// GenerationRecord summarizes one completed generation. It carries no
// timestamps so that fixed-seed runs emit byte-identical record sequences.
type GenerationRecord struct {
	Generation      int     `json:"generation"`
	PopulationSize  int     `json:"population_size"`
	Evaluated       int     `json:"evaluated"`
	Failures        int     `json:"failures"`
	CacheHits       int64   `json:"cache_hits"`
	BestFitness     float64 `json:"best_fitness"`
	MeanFitness     float64 `json:"mean_fitness"`
	MinFitness      float64 `json:"min_fitness"`
	BestFingerprint string  `json:"best_fingerprint"`
}

// LineageRecord tracks how a candidate was produced, for diagnostics.
type LineageRecord struct {
	CandidateID string   `json:"candidate_id"`
	Parents     []string `json:"parents,omitempty"`
	Generation  int      `json:"generation"`
	Operation   string   `json:"operation"`
	Fingerprint string   `json:"fingerprint,omitempty"`
}

// TopCandidateRecord is a ranked final-population entry persisted per run.
type TopCandidateRecord struct {
	Rank      int       `json:"rank"`
	Fitness   float64   `json:"fitness"`
	Candidate Candidate `json:"candidate"`
}
