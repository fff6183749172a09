package fixtures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cnhs-records-api/internal/models"
)

func TestGenerateCounts(t *testing.T) {
	ds := Generate(1, "2024-2025")

	assert.Len(t, ds.Subjects, 8)
	assert.Len(t, ds.Teachers, 8)
	assert.Len(t, ds.Classes, 32)
	assert.Len(t, ds.Students, 160)
	assert.Len(t, ds.Enrollments, 1280)
	// 10 complete and 15 partial cards per section, for each of 8 subjects.
	assert.Len(t, ds.ReportCards, 4*8*(10+15))
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := Generate(42, "2024-2025")
	b := Generate(42, "2024-2025")
	assert.Equal(t, a, b)

	c := Generate(43, "2024-2025")
	assert.NotEqual(t, a.ReportCards, c.ReportCards)
}

func TestGenerateRespectsInvariants(t *testing.T) {
	ds := Generate(7, "2025-2026")

	ids := map[string]bool{}
	lrns := map[string]bool{}
	for _, s := range ds.Students {
		require.False(t, ids[s.ID], "duplicate student id %s", s.ID)
		require.False(t, lrns[s.LRN], "duplicate lrn %s", s.LRN)
		ids[s.ID] = true
		lrns[s.LRN] = true
		assert.Len(t, s.LRN, 12)
	}

	advisers := map[string]int{}
	active := map[string]int{}
	for _, c := range ds.Classes {
		assert.Equal(t, "2025-2026", c.SchoolYear)
		if c.IsAdviser {
			advisers[c.SectionName]++
		}
	}
	for _, e := range ds.Enrollments {
		if e.Status == models.EnrollmentStatusActive {
			active[e.ClassID]++
		}
	}
	for _, section := range Sections {
		assert.Equal(t, 1, advisers[section], section)
	}
	for _, c := range ds.Classes {
		assert.LessOrEqual(t, active[c.ID], c.MaxCapacity)
	}
	for _, rc := range ds.ReportCards {
		for _, q := range rc.Quarters() {
			if q != nil {
				assert.True(t, *q >= 75 && *q < 95)
			}
		}
	}
}
