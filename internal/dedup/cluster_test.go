package dedup

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-meta-server/internal/registry"
)

func member(provider, name, description string, schema map[string]any) Member {
	return Member{
		ProviderID: provider,
		Spec:       registry.ToolSpec{Name: name, Description: description, InputSchema: schema},
	}
}

func TestCluster_DefaultThresholdKeepsDistinctTools(t *testing.T) {
	// Name-similar but description-less pair stays unmerged at the default
	// threshold.
	members := []Member{
		member("A", "list_files", "", stringSchema("path")),
		member("B", "listFiles", "", stringSchema("path")),
	}

	merged, stats := Cluster(members, DefaultConfig())
	require.Len(t, merged, 2)
	assert.Equal(t, 0, stats.MergedGroups)
	assert.Equal(t, 0.0, stats.ReductionPercentage)
}

func TestCluster_LowThresholdMerges(t *testing.T) {
	members := []Member{
		member("A", "list_files", "", stringSchema("path")),
		member("B", "listFiles", "", stringSchema("path")),
	}

	cfg := DefaultConfig()
	cfg.SimilarityThreshold = 0.5

	merged, stats := Cluster(members, cfg)
	require.Len(t, merged, 1)
	assert.Equal(t, 1, stats.MergedGroups)
	assert.Equal(t, 50.0, stats.ReductionPercentage)

	mt := merged[0]
	// Tied name frequencies resolve to the first encountered.
	assert.Equal(t, "list_files", mt.Name)
	require.Len(t, mt.Members, 2)
	assert.Contains(t, []string{"A", "B"}, mt.PrimaryProviderID)
}

func TestCluster_SingletonInvariants(t *testing.T) {
	members := []Member{member("A", "only_tool", "does things", stringSchema("x"))}

	merged, _ := Cluster(members, DefaultConfig())
	require.Len(t, merged, 1)
	assert.Equal(t, 1.0, merged[0].Confidence)
	assert.Equal(t, "A", merged[0].PrimaryProviderID)
}

func TestCluster_RepresentativeByLongestDescription(t *testing.T) {
	schema := stringSchema("path")
	members := []Member{
		member("A", "read_file", "reads", schema),
		member("B", "read_file", "reads a file from the local filesystem", schema),
	}

	cfg := DefaultConfig()
	cfg.SimilarityThreshold = 0.5

	merged, _ := Cluster(members, cfg)
	require.Len(t, merged, 1)
	assert.Equal(t, "reads a file from the local filesystem", merged[0].Description)
	assert.Equal(t, "B", merged[0].PrimaryProviderID)
}

func TestCluster_PlaceholderDescription(t *testing.T) {
	members := []Member{
		member("A", "ping", "", nil),
	}
	merged, _ := Cluster(members, DefaultConfig())
	require.Len(t, merged, 1)
	assert.Equal(t, "No description available", merged[0].Description)
}

func TestCluster_Idempotent(t *testing.T) {
	schema := stringSchema("path")
	members := []Member{
		member("A", "read_file", "reads a file", schema),
		member("B", "read_file", "reads a file", schema),
		member("C", "send_email", "sends an email", stringSchema("to", "body")),
	}

	merged, _ := Cluster(members, DefaultConfig())

	// Feed the merged output back in as singletons: the set must not
	// change shape again.
	var again []Member
	for _, mt := range merged {
		again = append(again, Member{
			ProviderID: mt.PrimaryProviderID,
			Spec: registry.ToolSpec{
				Name:        mt.Name,
				Description: mt.Description,
				InputSchema: mt.InputSchema,
			},
		})
	}

	remerged, _ := Cluster(again, DefaultConfig())
	assert.Len(t, remerged, len(merged))
}

func TestCluster_LargeSetPreGrouping(t *testing.T) {
	// Above the large-set threshold, a pair with identical description and
	// schema but dissimilar names can never merge: pre-grouping by name
	// keeps them apart.
	shared := stringSchema("value")
	members := []Member{
		member("A", "alpha_tool", "shared description text", shared),
		member("B", "zzz_thing", "shared description text", shared),
	}
	for i := 0; i < 120; i++ {
		members = append(members, member("F", fmt.Sprintf("filler_%03d", i), "", stringSchema("n")))
	}

	cfg := DefaultConfig()
	cfg.SimilarityThreshold = 0.3

	merged, stats := Cluster(members, cfg)
	assert.Equal(t, len(members), stats.TotalInputTools)

	names := make(map[string]bool)
	for _, mt := range merged {
		names[mt.Name] = true
	}
	assert.True(t, names["alpha_tool"])
	assert.True(t, names["zzz_thing"], "dissimilar names must stay split in the pre-grouped pass")
}

func TestCluster_ConfidenceIsAverageOfMergeScores(t *testing.T) {
	schema := stringSchema("path")
	members := []Member{
		member("A", "read_file", "reads a file", schema),
		member("B", "read_file", "reads a file", schema),
	}

	cfg := DefaultConfig()
	cfg.SimilarityThreshold = 0.5

	merged, stats := Cluster(members, cfg)
	require.Len(t, merged, 1)
	sim := Compare(members[0].Spec, members[1].Spec, cfg)
	assert.InDelta(t, sim.Score, merged[0].Confidence, 1e-9)
	assert.InDelta(t, merged[0].Confidence, stats.AvgConfidence, 1e-9)
}
