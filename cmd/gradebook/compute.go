package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Hansol916/OSSFinal/internal/grading"
)

// cohortFile is the offline input of "gradebook compute". Scores are keyed
// by category name; a missing or null entry is ungraded.
type cohortFile struct {
	Policy     string                 `yaml:"policy"`
	Cutoffs    grading.RelativeConfig `yaml:"cutoffs"`
	Categories []grading.Category     `yaml:"categories"`
	Students   []struct {
		ID     int64               `yaml:"id"`
		Name   string              `yaml:"name"`
		Scores map[string]*float64 `yaml:"scores"`
	} `yaml:"students"`
}

// computed is everything "compute" prints.
type computed struct {
	Policy   grading.Policy        `json:"policy"`
	Results  []grading.GradeResult `json:"results"`
	Averages map[string]*float64   `json:"averages"`
	Weights  grading.WeightSum     `json:"weights"`
	Warning  string                `json:"warning,omitempty"`
}

func parseCohort(r io.Reader) (cohortFile, error) {
	var cf cohortFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil {
		return cf, fmt.Errorf("parse cohort: %w", err)
	}
	return cf, nil
}

// sheets turns the file into engine input. Categories without an id are
// numbered in file order.
func (cf *cohortFile) sheets() ([]grading.StudentSheet, error) {
	byName := map[string]grading.Category{}
	for i := range cf.Categories {
		if cf.Categories[i].ID == 0 {
			cf.Categories[i].ID = int64(i + 1)
		}
		byName[cf.Categories[i].Name] = cf.Categories[i]
	}
	out := make([]grading.StudentSheet, 0, len(cf.Students))
	for i, st := range cf.Students {
		for name := range st.Scores {
			if _, ok := byName[name]; !ok {
				return nil, fmt.Errorf("student %q: unknown category %q", st.Name, name)
			}
		}
		id := st.ID
		if id == 0 {
			id = int64(i + 1)
		}
		sh := grading.StudentSheet{StudentID: id, StudentName: st.Name}
		for _, c := range cf.Categories {
			sh.Rows = append(sh.Rows, grading.ScoreRow{
				StudentID:    id,
				StudentName:  st.Name,
				CategoryID:   c.ID,
				CategoryName: c.Name,
				Score:        st.Scores[c.Name],
				MaxScore:     c.MaxScore,
				Weight:       c.Weight,
			})
		}
		out = append(out, sh)
	}
	return out, nil
}

func compute(cf cohortFile, fallback grading.RelativeConfig) (computed, error) {
	policy := grading.PolicyAbsolute
	if cf.Policy != "" {
		p, err := grading.ParsePolicy(cf.Policy)
		if err != nil {
			return computed{}, err
		}
		policy = p
	}
	cohort, err := cf.sheets()
	if err != nil {
		return computed{}, err
	}
	cutoffs := cf.Cutoffs
	if len(cutoffs) == 0 {
		cutoffs = fallback
	}
	c, err := grading.NewClassifier(policy, grading.WithRelativeConfig(cutoffs))
	if err != nil {
		return computed{}, err
	}
	results, err := grading.Grade(cohort, c)
	if err != nil {
		return computed{}, err
	}

	avg := grading.ComputeCategoryAverages(cf.Categories, cohort)
	named := make(map[string]*float64, len(avg))
	for _, cat := range cf.Categories {
		named[cat.Name] = avg[cat.ID]
	}
	w := grading.ComputeWeightSum(cf.Categories)
	return computed{Policy: policy, Results: results, Averages: named, Weights: w, Warning: w.Warning()}, nil
}

var gradeColors = map[byte]*color.Color{
	'A': color.New(color.FgGreen, color.Bold),
	'B': color.New(color.FgCyan),
	'C': color.New(color.FgYellow),
	'D': color.New(color.FgMagenta),
	'F': color.New(color.FgRed, color.Bold),
}

func colorGrade(g string) string {
	if g == "" {
		return g
	}
	if c, ok := gradeColors[g[0]]; ok {
		return c.Sprint(g)
	}
	return g
}

func fmtScore(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func writeTable(w io.Writer, out computed) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Student", "Total", "Grade"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for _, r := range out.Results {
		data = append(data, []string{
			strconv.FormatInt(r.StudentID, 10),
			r.StudentName,
			fmtScore(r.Total),
			colorGrade(r.Grade),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	names := make([]string, 0, len(out.Averages))
	for n := range out.Averages {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		v := "-"
		if a := out.Averages[n]; a != nil {
			v = fmtScore(*a)
		}
		parts = append(parts, n+" "+v)
	}
	if _, err := fmt.Fprintf(w, "Policy: %s. Class averages: %s\n", out.Policy, strings.Join(parts, ", ")); err != nil {
		return err
	}
	if out.Warning != "" {
		if _, err := color.New(color.FgYellow).Fprintln(w, "Warning: "+out.Warning); err != nil {
			return err
		}
	}
	return nil
}

var computeCmd = &cobra.Command{
	Use:   "compute <cohort.yaml>",
	Short: "Grade a cohort file without a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		cf, err := parseCohort(f)
		if err != nil {
			return err
		}
		out, err := compute(cf, cfg.DefaultRelative)
		if err != nil {
			return err
		}

		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			color.NoColor = true
		}
		switch format, _ := cmd.Flags().GetString("output"); format {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		case "text", "":
			return writeTable(cmd.OutOrStdout(), out)
		default:
			return fmt.Errorf("unknown output format %q", format)
		}
	},
}

func init() {
	computeCmd.Flags().StringP("output", "o", "text", "Output format: text or json")
	computeCmd.Flags().Bool("no-color", false, "Disable colored grades")
}
