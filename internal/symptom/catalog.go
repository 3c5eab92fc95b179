// Package symptom loads the three-tier symptom vocabulary and classifies
// reported symptoms against it.
package symptom

import (
	"bufio"
	"io"
	"os"
	"strings"

	"covidtrack/internal/logging"
)

// TierCount is the number of severity tiers in a catalog.
const TierCount = 3

// Tier is a severity level, 0 lowest. NoneReported means no reported name
// matched the catalog.
type Tier int

const NoneReported Tier = -1

// Done ends interactive symptom entry.
const Done = "Done"

// Catalog holds symptom names per tier, lowest severity first.
type Catalog struct {
	Tiers [TierCount][]string
}

// Parse reads up to three comma-separated lines; line n is tier n. Further
// lines are ignored and missing lines leave their tier empty.
func Parse(r io.Reader) (Catalog, error) {
	var c Catalog
	scanner := bufio.NewScanner(r)
	for i := 0; i < TierCount && scanner.Scan(); i++ {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		for _, name := range strings.Split(line, ",") {
			if name != "" {
				c.Tiers[i] = append(c.Tiers[i], name)
			}
		}
	}
	return c, scanner.Err()
}

// Load reads the catalog file. A missing or unreadable file yields an empty catalog.
func Load(path string) Catalog {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Get(logging.CategoryCatalog).Warn("Symptom file %s unreadable: %v", path, err)
		}
		return Catalog{}
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		logging.Get(logging.CategoryCatalog).Warn("Partial read of %s: %v", path, err)
	}
	logging.CatalogDebug("Loaded symptom catalog %s: %d/%d/%d", path, len(c.Tiers[0]), len(c.Tiers[1]), len(c.Tiers[2]))
	return c
}

// Empty reports whether no tier has any symptoms, meaning no symptom data is available.
func (c Catalog) Empty() bool {
	for _, tier := range c.Tiers {
		if len(tier) > 0 {
			return false
		}
	}
	return true
}

// contains reports whether name is listed in tier i (exact, case-sensitive).
func (c Catalog) contains(i int, name string) bool {
	for _, s := range c.Tiers[i] {
		if s == name {
			return true
		}
	}
	return false
}

// Tracker accumulates the most severe tier across reported symptoms.
type Tracker struct {
	catalog Catalog
	max     Tier
}

// NewTracker starts a classification with nothing reported.
func NewTracker(c Catalog) *Tracker {
	return &Tracker{catalog: c, max: NoneReported}
}

// Report records one symptom name. It returns true when name is the Done
// sentinel, which is not classified.
func (t *Tracker) Report(name string) bool {
	if name == Done {
		return true
	}
	// Tiers below the running maximum cannot raise it.
	start := int(t.max)
	if start < 0 {
		start = 0
	}
	for i := start; i < TierCount; i++ {
		if t.catalog.contains(i, name) {
			t.max = Tier(i)
		}
	}
	return false
}

// Tier returns the highest tier matched so far.
func (t *Tracker) Tier() Tier {
	return t.max
}

// Classify returns the highest tier matched by names, stopping at Done.
func Classify(c Catalog, names []string) Tier {
	t := NewTracker(c)
	for _, name := range names {
		if t.Report(name) {
			break
		}
	}
	return t.Tier()
}
