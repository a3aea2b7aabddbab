package fetch

import (
	"context"
	"fmt"

	"github.com/evcatalyst/nys-district-dashboard/internal/config"
)

var subjects = []string{"math", "ela"}

// FetchDistrict runs the full sequential workflow for one district:
// assessments for all years and subjects, enrollment, graduation rate,
// graduation pathways, and the budget page when the roster names one.
// Districts run in parallel; within a district the sub-fetches stay
// sequential so results aggregate per district without extra plumbing.
func (f *Fetcher) FetchDistrict(ctx context.Context, d config.District) {
	f.logger.Info("processing district", "district", d.Name, "instid", d.InstID)

	f.fetchAssessments(ctx, d)
	f.fetchEnrollment(ctx, d)
	f.fetchGraduationRate(ctx, d)
	f.fetchGraduationPathways(ctx, d)

	if d.BudgetURL != "" {
		f.fetchBudgetPage(ctx, d)
	}

	f.logger.Info("completed district", "district", d.Name)
}

func (f *Fetcher) fetchAssessments(ctx context.Context, d config.District) {
	for _, year := range f.cfg.AssessmentYears() {
		for _, subject := range subjects {
			url := fmt.Sprintf("%s/assessment38.php?instid=%s&year=%d&subject=%s",
				f.cfg.DataSiteBaseURL, d.InstID, year, subject)
			filename := fmt.Sprintf("%s_assessment_%s_%d.html", d.Slug(), subject, year)
			f.fetchSource(ctx, url, filename, f.cfg.FrequentWindow(), defaultTimeout)
		}
	}
}

func (f *Fetcher) fetchEnrollment(ctx context.Context, d config.District) {
	for _, year := range f.cfg.AssessmentYears() {
		url := fmt.Sprintf("%s/enrollment.php?instid=%s&year=%d",
			f.cfg.DataSiteBaseURL, d.InstID, year)
		filename := fmt.Sprintf("%s_enrollment_%d.html", d.Slug(), year)
		f.fetchSource(ctx, url, filename, f.cfg.FrequentWindow(), defaultTimeout)
	}
}

func (f *Fetcher) fetchGraduationRate(ctx context.Context, d config.District) {
	for _, year := range f.cfg.GraduationYears() {
		url := f.gradRateURL(d, year)
		filename := fmt.Sprintf("%s_gradrate_%d.html", d.Slug(), year)
		f.fetchSource(ctx, url, filename, f.cfg.FrequentWindow(), defaultTimeout)
	}
}

// fetchGraduationPathways pulls the same gradrate pages as the rate
// workflow but stores them under pathways filenames; the normalizer reads
// different tables out of them.
func (f *Fetcher) fetchGraduationPathways(ctx context.Context, d config.District) {
	for _, year := range f.cfg.GraduationYears() {
		url := f.gradRateURL(d, year)
		filename := fmt.Sprintf("%s_pathways_%d.html", d.Slug(), year)
		f.fetchSource(ctx, url, filename, f.cfg.FrequentWindow(), defaultTimeout)
	}
}

func (f *Fetcher) gradRateURL(d config.District, year int) string {
	return fmt.Sprintf("%s/gradrate.php?instid=%s&year=%d", f.cfg.DataSiteBaseURL, d.InstID, year)
}

func (f *Fetcher) fetchBudgetPage(ctx context.Context, d config.District) {
	filename := fmt.Sprintf("%s_budget.html", d.Slug())
	f.fetchSource(ctx, d.BudgetURL, filename, f.cfg.BackgroundWindow(), defaultTimeout)
}
