package grading_test

import (
	"math/rand"
	"testing"

	"github.com/okian/nrtgrade/internal/domain/grading"
	. "github.com/smartystreets/goconvey/convey"
)

func result(subject grading.Subject, value int, composite float64) grading.ComputedSubjectResult {
	return grading.ComputedSubjectResult{Subject: subject, GradeValue: value, FinalCompositeScore: composite}
}

func subjectsOf(rs []grading.ComputedSubjectResult) []grading.Subject {
	out := make([]grading.Subject, len(rs))
	for i, r := range rs {
		out[i] = r.Subject
	}
	return out
}

func TestComputeAggregate(t *testing.T) {
	Convey("Given eight graded subjects", t, func() {
		cfg := grading.DefaultConfiguration()
		results := []grading.ComputedSubjectResult{
			result("Art", 3, 66),
			result("Biology", 1, 91),
			result("Chemistry", 9, 20),
			result("Economics", 2, 72),
			result("English", 2, 75),
			result("French", 5, 58),
			result("Geography", 7, 40),
			result("History", 4, 61),
		}

		Convey("When computing the aggregate", func() {
			agg := grading.ComputeAggregate(results, cfg)

			Convey("Then the six best grade values are summed", func() {
				So(agg.BestSix, ShouldHaveLength, 6)
				So(agg.Aggregate, ShouldEqual, 1+2+2+3+4+5)
				So(agg.Category, ShouldEqual, "Credit")
			})

			Convey("And grade ties are broken by the higher composite", func() {
				So(subjectsOf(agg.BestSix), ShouldResemble, []grading.Subject{
					"Biology", "English", "Economics", "Art", "History", "French",
				})
			})

			Convey("And the input is not reordered", func() {
				So(results[0].Subject, ShouldEqual, grading.Subject("Art"))
			})
		})

		Convey("When only one subject may be selected", func() {
			cfg.BestN = 1
			tied := []grading.ComputedSubjectResult{result("Economics", 2, 72), result("English", 2, 75)}
			agg := grading.ComputeAggregate(tied, cfg)

			Convey("Then the higher raw score wins the grade tie", func() {
				So(subjectsOf(agg.BestSix), ShouldResemble, []grading.Subject{"English"})
			})
		})
	})

	Convey("Given fewer graded subjects than the selection size", t, func() {
		cfg := grading.DefaultConfiguration()
		results := []grading.ComputedSubjectResult{result("Art", 1, 90), result("Biology", 1, 88), result("Civics", 1, 85)}

		Convey("Then the aggregate covers only what exists", func() {
			agg := grading.ComputeAggregate(results, cfg)
			So(agg.BestSix, ShouldHaveLength, 3)
			So(agg.Aggregate, ShouldEqual, 3)
			So(agg.Category, ShouldEqual, grading.Uncategorized)
		})

		Convey("And no results gives an empty aggregate", func() {
			agg := grading.ComputeAggregate(nil, cfg)
			So(agg.BestSix, ShouldBeEmpty)
			So(agg.Aggregate, ShouldEqual, 0)
			So(agg.Category, ShouldEqual, grading.Uncategorized)
		})
	})

	Convey("Given core subjects are configured", t, func() {
		cfg := grading.DefaultConfiguration()
		cfg.CoreSubjects = []grading.Subject{"English", "Mathematics"}
		results := []grading.ComputedSubjectResult{
			result("Art", 1, 90),
			result("Biology", 1, 89),
			result("Chemistry", 1, 88),
			result("Economics", 1, 87),
			result("English", 8, 35),
			result("French", 1, 86),
			result("Geography", 1, 85),
			result("Mathematics", 7, 42),
		}

		Convey("Then core subjects the student sat are always selected", func() {
			agg := grading.ComputeAggregate(results, cfg)
			So(agg.BestSix, ShouldHaveLength, 6)
			So(agg.Aggregate, ShouldEqual, 4+7+8)
			So(subjectsOf(agg.BestSix), ShouldContain, grading.Subject("English"))
			So(subjectsOf(agg.BestSix), ShouldContain, grading.Subject("Mathematics"))
		})

		Convey("And without core subjects the free selection applies", func() {
			cfg.CoreSubjects = nil
			agg := grading.ComputeAggregate(results, cfg)
			So(agg.Aggregate, ShouldEqual, 6)
		})
	})

	Convey("Given random students with at least six subjects", t, func() {
		cfg := grading.DefaultConfiguration()
		rng := rand.New(rand.NewSource(7))
		subjects := []grading.Subject{"A", "B", "C", "D", "E", "F", "G", "H", "I"}

		Convey("Then the aggregate always lies within 6 and 54", func() {
			for i := 0; i < 200; i++ {
				n := 6 + rng.Intn(len(subjects)-5)
				results := make([]grading.ComputedSubjectResult, n)
				for j := 0; j < n; j++ {
					results[j] = result(subjects[j], 1+rng.Intn(9), rng.Float64()*100)
				}
				agg := grading.ComputeAggregate(results, cfg)
				So(agg.Aggregate, ShouldBeBetweenOrEqual, 6, 54)
			}
		})
	})
}

func TestCategorize(t *testing.T) {
	Convey("Given the default category bands", t, func() {
		bands := grading.DefaultCategories()

		Convey("Then band bounds are inclusive", func() {
			So(grading.Categorize(6, bands), ShouldEqual, "Distinction")
			So(grading.Categorize(10, bands), ShouldEqual, "Distinction")
			So(grading.Categorize(11, bands), ShouldEqual, "Credit")
			So(grading.Categorize(24, bands), ShouldEqual, "Credit")
			So(grading.Categorize(54, bands), ShouldEqual, "Fail")
		})

		Convey("Then aggregates outside every band are uncategorized", func() {
			So(grading.Categorize(5, bands), ShouldEqual, grading.Uncategorized)
			So(grading.Categorize(55, bands), ShouldEqual, grading.Uncategorized)
		})

		Convey("Then a gap between bands is uncategorized", func() {
			gapped := []grading.CategoryBand{{Label: "Top", Min: 6, Max: 10}, {Label: "Rest", Min: 12, Max: 54}}
			So(grading.Categorize(11, gapped), ShouldEqual, grading.Uncategorized)
		})
	})
}
