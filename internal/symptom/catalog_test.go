package symptom

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() Catalog {
	return Catalog{Tiers: [TierCount][]string{
		{"Runny nose", "Sneezing"},
		{"Cough", "Fever"},
		{"Breathlessness", "Chest pain"},
	}}
}

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader("a,b\r\nc\n\nd,e\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, c.Tiers[0])
	assert.Equal(t, []string{"c"}, c.Tiers[1])
	assert.Empty(t, c.Tiers[2])
}

func TestParseIgnoresExtraLinesAndEmptyNames(t *testing.T) {
	c, err := Parse(strings.NewReader("a,,b,\nc\nd\nextra,line"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, c.Tiers[0])
	assert.Equal(t, []string{"d"}, c.Tiers[2])
	for _, tier := range c.Tiers {
		assert.NotContains(t, tier, "extra")
	}
}

func TestParseShortFile(t *testing.T) {
	c, err := Parse(strings.NewReader("only"))
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, c.Tiers[0])
	assert.Empty(t, c.Tiers[1])
	assert.Empty(t, c.Tiers[2])
	assert.False(t, c.Empty())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, Load(filepath.Join(dir, "missing.csv")).Empty())

	path := filepath.Join(dir, "symptoms.csv")
	require.NoError(t, os.WriteFile(path, []byte("Runny nose,Sneezing\nCough,Fever\nBreathlessness,Chest pain\n"), 0644))
	assert.Equal(t, testCatalog(), Load(path))
}

func TestEmpty(t *testing.T) {
	assert.True(t, Catalog{}.Empty())
	assert.False(t, testCatalog().Empty())
}

func TestClassify(t *testing.T) {
	c := testCatalog()
	tests := []struct {
		name  string
		input []string
		want  Tier
	}{
		{"nothing", nil, NoneReported},
		{"unknown only", []string{"Headache"}, NoneReported},
		{"case sensitive", []string{"cough"}, NoneReported},
		{"tier 0", []string{"Sneezing"}, 0},
		{"tier 1", []string{"Runny nose", "Fever"}, 1},
		{"tier 2 first", []string{"Chest pain", "Runny nose"}, 2},
		{"lower after higher keeps max", []string{"Cough", "Sneezing"}, 1},
		{"stops at Done", []string{"Cough", Done, "Chest pain"}, 1},
		{"only Done", []string{Done}, NoneReported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(c, tt.input))
		})
	}
}

func TestClassifyMonotonic(t *testing.T) {
	c := testCatalog()
	for k := 0; k < TierCount; k++ {
		var names []string
		for i := 0; i <= k; i++ {
			names = append(names, c.Tiers[i]...)
		}
		names = append(names, "unknown")
		assert.Equal(t, Tier(k), Classify(c, names), "tier %d", k)
	}
}

func TestClassifyNameInSeveralTiers(t *testing.T) {
	c := Catalog{Tiers: [TierCount][]string{{"Fatigue"}, {"Fatigue"}, {}}}
	assert.Equal(t, Tier(1), Classify(c, []string{"Fatigue"}))
}

func TestTracker(t *testing.T) {
	tr := NewTracker(testCatalog())
	assert.Equal(t, NoneReported, tr.Tier())

	assert.False(t, tr.Report("Fever"))
	assert.Equal(t, Tier(1), tr.Tier())
	assert.False(t, tr.Report("Sneezing"))
	assert.Equal(t, Tier(1), tr.Tier())
	assert.True(t, tr.Report(Done))
	assert.Equal(t, Tier(1), tr.Tier())
}
