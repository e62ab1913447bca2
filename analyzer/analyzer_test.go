package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/seo-insight/backend/extractor"
	"github.com/seo-insight/backend/fetcher"
	"github.com/seo-insight/backend/urlguard"
)

type fakeFetcher struct {
	html string
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.html, f.err
}

const samplePage = `<html><head>
	<title>Affordable Website Design | Acme</title>
	<meta name="description" content="Affordable website design for small businesses.">
</head><body>
	<h1>Affordable Website Design</h1>
	<h2>Why choose affordable website design</h2>
	<p>Our affordable website design service helps small businesses grow online.</p>
	<a href="/contact">Contact</a>
	<a href="https://developer.mozilla.org/">MDN</a>
</body></html>`

func newTestService(f Fetcher) *Service {
	guard := urlguard.New(nil, true)
	return NewService(guard, f, extractor.New(0), NewEngine(nil), nil)
}

func TestAnalyze(t *testing.T) {
	ff := &fakeFetcher{html: samplePage}
	svc := newTestService(ff)

	result, err := svc.Analyze(context.Background(), Request{
		URL:       "example.com/services/affordable-website-design",
		Keyphrase: "affordable website design",
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.URL != "https://example.com/services/affordable-website-design" {
		t.Errorf("result URL = %q, want normalized https URL", result.URL)
	}
	if len(ff.urls) != 1 || ff.urls[0] != result.URL {
		t.Errorf("fetcher called with %v, want the normalized URL", ff.urls)
	}
	if len(result.Checks) != 18 {
		t.Fatalf("got %d checks, want 18", len(result.Checks))
	}
	if result.PassedChecks+result.FailedChecks != 18 {
		t.Errorf("passed %d + failed %d != 18", result.PassedChecks, result.FailedChecks)
	}
	if result.Score < 0 || result.Score > 100 {
		t.Errorf("score %d out of range", result.Score)
	}
	if result.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
	if result.APIDataUsed {
		t.Error("APIDataUsed should be false without page data")
	}
}

func TestAnalyze_RequiresKeyphrase(t *testing.T) {
	svc := newTestService(&fakeFetcher{html: samplePage})

	_, err := svc.Analyze(context.Background(), Request{URL: "https://example.com/"})
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Errorf("error = %v, want ErrAnalysisFailed", err)
	}
}

func TestAnalyze_InvalidURLSkipsFetch(t *testing.T) {
	ff := &fakeFetcher{html: samplePage}
	svc := newTestService(ff)

	_, err := svc.Analyze(context.Background(), Request{
		URL:       "ftp://example.com/",
		Keyphrase: "web design",
	})
	if !errors.Is(err, urlguard.ErrInvalidURL) {
		t.Errorf("error = %v, want ErrInvalidURL", err)
	}
	if len(ff.urls) != 0 {
		t.Errorf("fetcher should not be called for an invalid URL, got %v", ff.urls)
	}
}

func TestAnalyze_FetchFailurePropagates(t *testing.T) {
	fetchErr := fetcher.ErrFetchFailed
	svc := newTestService(&fakeFetcher{err: fetchErr})

	result, err := svc.Analyze(context.Background(), Request{
		URL:       "https://example.com/",
		Keyphrase: "web design",
	})
	if !errors.Is(err, fetcher.ErrFetchFailed) {
		t.Errorf("error = %v, want ErrFetchFailed", err)
	}
	if result != nil {
		t.Error("no partial result expected on fetch failure")
	}
}

func TestAnalyze_PageDataMarksAPIUsage(t *testing.T) {
	svc := newTestService(&fakeFetcher{html: samplePage})

	result, err := svc.Analyze(context.Background(), Request{
		URL:       "https://example.com/p",
		Keyphrase: "affordable website design",
		PageData:  &PageData{Title: "Affordable Website Design"},
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !result.APIDataUsed {
		t.Error("APIDataUsed should be true when page data is supplied")
	}
}
