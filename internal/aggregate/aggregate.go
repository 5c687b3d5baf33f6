// Package aggregate tallies voters into chart-ready counts.
package aggregate

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/abrezinsky/voterreg/internal/models"
)

// Unknown is the bucket for records with an empty value
const Unknown = "Unknown"

// Bucket is one category and its count
type Bucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// RegionBreakdown is a region's total and its per-constituency counts
type RegionBreakdown struct {
	Region         string   `json:"region"`
	Total          int      `json:"total"`
	Constituencies []Bucket `json:"constituencies"`
}

// Stats is the full set of dashboard tallies
type Stats struct {
	Total        int               `json:"total"`
	Gender       []Bucket          `json:"gender"`
	Region       []Bucket          `json:"region"`
	Constituency []RegionBreakdown `json:"constituency"`
}

// capitalize upper-cases the first letter and lower-cases the rest
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func bucketName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown
	}
	return s
}

func toBuckets(counts map[string]int) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for name, n := range counts {
		out = append(out, Bucket{Name: name, Value: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Compute tallies voters by gender, region and region/constituency in one
// pass. Output is sorted by name so equal inputs give identical results
// regardless of record order.
func Compute(voters []models.Voter) Stats {
	gender := make(map[string]int)
	region := make(map[string]int)
	nested := make(map[string]map[string]int)

	for _, v := range voters {
		g := bucketName(string(v.Gender))
		if g != Unknown {
			g = capitalize(g)
		}
		gender[g]++

		r := bucketName(v.Region)
		region[r]++

		c := bucketName(v.Constituency)
		if nested[r] == nil {
			nested[r] = make(map[string]int)
		}
		nested[r][c]++
	}

	stats := Stats{
		Total:        len(voters),
		Gender:       toBuckets(gender),
		Region:       toBuckets(region),
		Constituency: make([]RegionBreakdown, 0, len(nested)),
	}
	for _, b := range stats.Region {
		stats.Constituency = append(stats.Constituency, RegionBreakdown{
			Region:         b.Name,
			Total:          b.Value,
			Constituencies: toBuckets(nested[b.Name]),
		})
	}
	return stats
}

// GenderCounts returns the gender tally as a map
func (s Stats) GenderCounts() map[string]int {
	return toMap(s.Gender)
}

// RegionCounts returns the region tally as a map
func (s Stats) RegionCounts() map[string]int {
	return toMap(s.Region)
}

// ConstituencyCounts returns region -> constituency -> count
func (s Stats) ConstituencyCounts() map[string]map[string]int {
	out := make(map[string]map[string]int, len(s.Constituency))
	for _, rb := range s.Constituency {
		out[rb.Region] = toMap(rb.Constituencies)
	}
	return out
}

func toMap(buckets []Bucket) map[string]int {
	out := make(map[string]int, len(buckets))
	for _, b := range buckets {
		out[b.Name] = b.Value
	}
	return out
}
