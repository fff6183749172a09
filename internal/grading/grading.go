// Package grading derives final grades, general averages and promotion
// standing from quarterly grades. Every function is pure.
package grading

import (
	"fmt"

	"github.com/noah-isme/cnhs-records-api/internal/models"
)

// Policy holds the grading constants.
type Policy struct {
	PassingGrade int
	QuarterCount int
}

// DefaultPolicy is the policy the school applies.
var DefaultPolicy = Policy{PassingGrade: 75, QuarterCount: 4}

// Normalize fills zero fields from DefaultPolicy.
func (p Policy) Normalize() Policy {
	if p.PassingGrade <= 0 {
		p.PassingGrade = DefaultPolicy.PassingGrade
	}
	if p.QuarterCount <= 0 {
		p.QuarterCount = DefaultPolicy.QuarterCount
	}
	return p
}

// SubjectGrade is the derived state of one subject.
type SubjectGrade struct {
	Quarters   []*int               `json:"quarters"`
	IsComplete bool                 `json:"isComplete"`
	Final      *int                 `json:"final"`
	Status     models.SubjectStatus `json:"status"`
}

// YearStanding is the derived year-end state of a student.
type YearStanding struct {
	GeneralAverage  *int                   `json:"generalAverage"`
	PromotionStatus models.PromotionStatus `json:"promotionStatus"`
}

// Subject computes the final grade and status of a subject. The final grade
// exists only when every quarter is present.
func (p Policy) Subject(quarters []*int) SubjectGrade {
	p = p.Normalize()
	padded := make([]*int, p.QuarterCount)
	copy(padded, quarters)

	result := SubjectGrade{Quarters: padded, Status: models.SubjectStatusOngoing}
	values := make([]int, 0, p.QuarterCount)
	for _, q := range padded {
		if q == nil {
			return result
		}
		values = append(values, *q)
	}
	final := RoundedMean(values)
	result.IsComplete = true
	result.Final = &final
	if final >= p.PassingGrade {
		result.Status = models.SubjectStatusPassed
	} else {
		result.Status = models.SubjectStatusFailed
	}
	return result
}

// Standing computes the general average across a student's subjects. The
// average is defined only when at least one subject exists and every subject
// has a final grade.
func (p Policy) Standing(finals []*int) YearStanding {
	p = p.Normalize()
	standing := YearStanding{PromotionStatus: models.PromotionPending}
	if len(finals) == 0 {
		return standing
	}
	values := make([]int, 0, len(finals))
	for _, f := range finals {
		if f == nil {
			return standing
		}
		values = append(values, *f)
	}
	avg := RoundedMean(values)
	standing.GeneralAverage = &avg
	if avg >= p.PassingGrade {
		standing.PromotionStatus = models.PromotionPromoted
	} else {
		standing.PromotionStatus = models.PromotionRetained
	}
	return standing
}

// RoundedMean returns the arithmetic mean rounded half up. Grades are
// non-negative so integer arithmetic is exact.
func RoundedMean(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	n := len(values)
	return (2*sum + n) / (2 * n)
}

// ValidateQuarter rejects grades outside 0..100.
func ValidateQuarter(q *int) error {
	if q == nil {
		return nil
	}
	if *q < 0 || *q > 100 {
		return fmt.Errorf("quarter grade %d out of range 0-100", *q)
	}
	return nil
}

// Bucket labels of the grade distribution, highest first.
var BucketLabels = []string{"90-100", "85-89", "80-84", "75-79", "<75"}

// Distribution counts final grades per bucket.
func Distribution(finals []int) []models.GradeBucket {
	buckets := make([]models.GradeBucket, len(BucketLabels))
	for i, label := range BucketLabels {
		buckets[i] = models.GradeBucket{Label: label}
	}
	for _, f := range finals {
		switch {
		case f >= 90:
			buckets[0].Count++
		case f >= 85:
			buckets[1].Count++
		case f >= 80:
			buckets[2].Count++
		case f >= 75:
			buckets[3].Count++
		default:
			buckets[4].Count++
		}
	}
	return buckets
}
