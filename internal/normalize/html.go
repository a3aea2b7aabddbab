package normalize

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	pctPattern        = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	countPattern      = regexp.MustCompile(`^\d+$`)
	enrollmentPattern = regexp.MustCompile(`^(\d{3,5})$`)
	fiscalYearPattern = regexp.MustCompile(`20(\d{2})[/-]20?(\d{2})`)
	levyPctPattern    = regexp.MustCompile(`(?i)levy.*?(\d+(?:\.\d+)?)\s*%`)
	levyLimitPattern  = regexp.MustCompile(`(?i)levy\s+limit.*?\$?([\d,]+(?:\.\d+)?)`)
	proposedPattern   = regexp.MustCompile(`(?i)proposed\s+levy.*?\$?([\d,]+(?:\.\d+)?)`)
)

func loadDocument(path string) (*goquery.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return goquery.NewDocumentFromReader(f)
}

// parseAssessmentFile scans report tables for rows pairing a grade label
// with a proficiency percentage. A cell holding a bare count above 10 is
// taken as the tested-student N when present.
func parseAssessmentFile(path, district string, year int, subject, sourceURL string) ([]AssessmentRow, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}

	var rows []AssessmentRow
	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		cells := cellTexts(tr)
		if len(cells) < 3 {
			return
		}

		gradeBand := findGradeBand(cells)
		if gradeBand == "" {
			return
		}
		pct, ok := findPercentage(cells)
		if !ok {
			return
		}

		rows = append(rows, AssessmentRow{
			District:      district,
			Year:          year,
			Subject:       subject,
			GradeBand:     gradeBand,
			ProficientPct: pct,
			TestedN:       findTestedN(cells),
			SourceURL:     sourceURL,
		})
	})
	return rows, nil
}

// parseEnrollmentFile finds the Total/All Students row and pulls the
// first plausible enrollment count out of it. Numbers outside 100-20000
// are rejected as table noise.
func parseEnrollmentFile(path, district string, year int, sourceURL string) (*EnrollmentRow, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}

	var row *EnrollmentRow
	doc.Find("table tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		cells := cellTexts(tr)
		if len(cells) == 0 {
			return true
		}
		first := strings.ToLower(cells[0])
		if !strings.Contains(first, "total") && !strings.Contains(first, "all") {
			return true
		}
		for _, text := range cells[1:] {
			m := enrollmentPattern.FindStringSubmatch(strings.ReplaceAll(text, ",", ""))
			if m == nil {
				continue
			}
			total, _ := strconv.Atoi(m[1])
			if total < 100 || total > 20000 {
				continue
			}
			row = &EnrollmentRow{
				District:        district,
				Year:            year,
				EnrollmentTotal: total,
				SourceURL:       sourceURL,
			}
			return false
		}
		return true
	})
	return row, nil
}

// parseBudgetFile extracts levy figures from free-form budget page text.
// Returns nil when nothing levy-shaped is found.
func parseBudgetFile(path, district, sourceURL string) (*LevyRow, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}
	text := doc.Text()

	row := LevyRow{District: district, SourceURL: sourceURL}

	if m := fiscalYearPattern.FindStringSubmatch(text); m != nil {
		row.FiscalYear = "20" + m[1] + "-20" + m[2]
	}
	if m := levyPctPattern.FindStringSubmatch(text); m != nil {
		if pct, err := strconv.ParseFloat(m[1], 64); err == nil {
			row.LevyPctChange = &pct
		}
	}
	if m := levyLimitPattern.FindStringSubmatch(text); m != nil {
		row.LevyLimit = strings.ReplaceAll(m[1], ",", "")
	}
	if m := proposedPattern.FindStringSubmatch(text); m != nil {
		row.ProposedLevy = strings.ReplaceAll(m[1], ",", "")
	}

	if row.LevyPctChange == nil && row.LevyLimit == "" && row.ProposedLevy == "" {
		return nil, nil
	}
	return &row, nil
}

func cellTexts(tr *goquery.Selection) []string {
	var cells []string
	tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, strings.TrimSpace(cell.Text()))
	})
	return cells
}

func findGradeBand(cells []string) string {
	for _, text := range cells {
		if strings.Contains(strings.ToLower(text), "grade") {
			return text
		}
	}
	return ""
}

func findPercentage(cells []string) (float64, bool) {
	for _, text := range cells {
		if m := pctPattern.FindStringSubmatch(text); m != nil {
			pct, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				return pct, true
			}
		}
	}
	return 0, false
}

func findTestedN(cells []string) int {
	for _, text := range cells {
		if !countPattern.MatchString(text) {
			continue
		}
		n, err := strconv.Atoi(text)
		if err == nil && n > 10 {
			return n
		}
	}
	return 0
}
