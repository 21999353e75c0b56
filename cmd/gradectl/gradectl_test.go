package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/nrtgrade/internal/adapters/http/api"
	app "github.com/okian/nrtgrade/internal/app"
	"github.com/okian/nrtgrade/internal/domain/grading"
	"github.com/okian/nrtgrade/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const cohortYAML = `cycle: 2024-T1
students:
  - student_id: s1
    name: Ama
    scores:
      Mathematics: {section_a: 38, section_b: 55, sba: 90}
      English:     {section_a: 30, section_b: 50, sba: 80}
  - student_id: s2
    name: Kofi
    scores:
      Mathematics: {section_a: 20, section_b: 30, sba: 60}
      English:     {section_a: 25, section_b: 40, sba: 70}
  - student_id: s3
    name: Esi
    scores:
      "  Mathematics ": {section_a: 10, section_b: 20, sba: 40}
      English:          {section_a: 10, section_b: 15, sba: 30}
`

func init() {
	_ = logger.Init()
}

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGradeCommand(t *testing.T) {
	Convey("Given a cohort file", t, func() {
		cohort := writeFile(t, "cohort.yaml", cohortYAML)

		Convey("When it is graded as JSON", func() {
			out, err := execute("grade", "--cohort", cohort, "--format", "json")
			So(err, ShouldBeNil)

			var report struct {
				Cycle    string                     `json:"cycle"`
				Students []grading.ProcessedStudent `json:"students"`
			}
			So(json.Unmarshal([]byte(out), &report), ShouldBeNil)

			Convey("Then students come back ranked", func() {
				So(report.Cycle, ShouldEqual, "2024-T1")
				So(report.Students, ShouldHaveLength, 3)
				So(report.Students[0].StudentID, ShouldEqual, "s1")
				So(report.Students[0].Rank, ShouldEqual, 1)
			})

			Convey("And subject names are canonicalized", func() {
				s3 := report.Students[2]
				So(s3.StudentID, ShouldEqual, "s3")
				So(s3.Rank, ShouldEqual, 3)
				subjects := make([]grading.Subject, 0, len(s3.Subjects))
				for _, r := range s3.Subjects {
					subjects = append(subjects, r.Subject)
				}
				So(subjects, ShouldContain, grading.Subject("Mathematics"))
			})
		})

		Convey("When it is graded as a table ordered by name", func() {
			out, err := execute("grade", "--cohort", cohort, "--order", "name", "--stats")
			So(err, ShouldBeNil)

			Convey("Then the statistics and the grade grid are printed", func() {
				So(out, ShouldContainSubstring, "SUBJECT")
				So(out, ShouldContainSubstring, "RANK")
				So(out, ShouldContainSubstring, "Mathematics")
				So(strings.Index(out, "Ama"), ShouldBeLessThan, strings.Index(out, "Esi"))
				So(strings.Index(out, "Esi"), ShouldBeLessThan, strings.Index(out, "Kofi"))
			})
		})

		Convey("When the rules come from a config file", func() {
			cfg := writeFile(t, "config.yaml", "grading:\n  best_n: 1\n")
			out, err := execute("grade", "--cohort", cohort, "--config", cfg, "--format", "json")
			So(err, ShouldBeNil)

			Convey("Then they are applied", func() {
				var report struct {
					Students []grading.ProcessedStudent `json:"students"`
				}
				So(json.Unmarshal([]byte(out), &report), ShouldBeNil)
				for _, s := range report.Students {
					So(len(s.BestSix), ShouldBeLessThanOrEqualTo, 1)
				}
			})
		})

		Convey("When the arguments are wrong", func() {
			_, err := execute("grade", "--cohort", cohort, "--order", "height")
			So(err, ShouldNotBeNil)
			_, err = execute("grade", "--cohort", cohort, "--format", "xml")
			So(err, ShouldNotBeNil)
			_, err = execute("grade")
			So(err, ShouldNotBeNil)
			_, err = execute("grade", "--cohort", filepath.Join(t.TempDir(), "missing.yaml"))
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a student with two spellings of one subject", t, func() {
		cohort := writeFile(t, "clash.yaml", `students:
  - student_id: s1
    scores:
      "Core Maths":  {section_a: 40, section_b: 50}
      "Core  Maths": {section_a: 10, section_b: 20}
`)

		Convey("Then the cohort is refused every time, naming both keys", func() {
			for i := 0; i < 20; i++ {
				_, err := readCohort(cohort)
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "s1")
				So(err.Error(), ShouldContainSubstring, `"Core  Maths" and "Core Maths"`)
			}
			_, err := execute("grade", "--cohort", cohort)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a cohort with a repeated student", t, func() {
		cohort := writeFile(t, "dup.yaml", "students:\n  - student_id: s1\n  - student_id: s1\n")

		Convey("Then it is refused", func() {
			_, err := execute("grade", "--cohort", cohort)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "appears twice")
		})
	})
}

func TestLoadCommand(t *testing.T) {
	Convey("Given a running grading server", t, func() {
		svc := app.New(app.WithWorkerCount(2), app.WithQueueSize(256))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		mux := http.NewServeMux()
		api.NewServer(svc).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("When a small load run is executed", func() {
			out, err := execute("load", "--url", srv.URL, "--students", "20", "--subjects", "7",
				"--workers", "4", "--seed", "9", "--poll", "10ms", "--settle", "10s")

			Convey("Then it verifies and reports", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "graded 20 students")
			})
		})
	})
}
