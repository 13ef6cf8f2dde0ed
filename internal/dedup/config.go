package dedup

// Config holds the deduplication engine's tunables. Stored values, not
// hard-coded constants, so tests (and configure_deduplication) can vary
// them.
type Config struct {
	Enabled             bool
	SimilarityThreshold float64
	AutoMerge           bool

	NameWeight        float64
	DescriptionWeight float64
	SchemaWeight      float64
}

// DefaultConfig returns the default weights and threshold.
func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		SimilarityThreshold: 0.8,
		AutoMerge:           true,
		NameWeight:          0.40,
		DescriptionWeight:   0.35,
		SchemaWeight:        0.25,
	}
}
