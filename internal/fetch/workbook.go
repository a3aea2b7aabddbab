package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// WorkbookFilename is the well-known artifact name for the shared fiscal
// profiles workbook. Cache lookups key on this name rather than the
// download URL, which shifts whenever the hosting page changes its link.
const WorkbookFilename = "fiscal_profiles.xlsx"

// FetchFiscalProfiles downloads the statewide fiscal profiles workbook
// once per run, shared across all districts. The XLSX link is discovered
// from the hosting page, since NYSED does not publish a stable URL.
func (f *Fetcher) FetchFiscalProfiles(ctx context.Context) {
	if rec, ok := f.prior.LookupFilename(WorkbookFilename); ok && f.reuseIfFresh(rec.URL, f.cfg.BackgroundWindow()) {
		f.logger.Info("using cached fiscal profiles workbook")
		return
	}

	pageURL := f.cfg.FiscalProfilesPageURL
	f.logger.Info("discovering fiscal profiles workbook link", "url", pageURL)

	page, err := f.client.Get(ctx, pageURL, defaultTimeout)
	if err != nil {
		f.logger.Warn("fetching fiscal profiles page failed", "url", pageURL, "error", err)
		f.recordFailure(pageURL)
		return
	}

	xlsxURL, err := discoverWorkbookURL(page.Body, pageURL)
	if err != nil {
		f.logger.Warn("could not discover fiscal profiles workbook link", "url", pageURL, "error", err)
		f.recordFailure(pageURL)
		return
	}

	f.logger.Info("downloading fiscal profiles workbook", "url", xlsxURL)
	res, err := f.client.Get(ctx, xlsxURL, workbookTimeout)
	if err != nil {
		f.logger.Warn("downloading fiscal profiles workbook failed", "url", xlsxURL, "error", err)
		f.recordFailure(xlsxURL)
		return
	}
	f.recordSuccess(xlsxURL, WorkbookFilename, res)
}

// discoverWorkbookURL finds the first .xlsx link in the page, resolved
// against the page's own URL when relative.
func discoverWorkbookURL(page []byte, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if !strings.HasSuffix(strings.ToLower(href), ".xlsx") {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		found = base.ResolveReference(ref).String()
		return false
	})

	if found == "" {
		return "", errNoWorkbookLink
	}
	return found, nil
}

var errNoWorkbookLink = errors.New("no .xlsx link on fiscal profiles page")
