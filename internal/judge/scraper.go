package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

// ProblemPage is the parsed content of a task page.
type ProblemPage struct {
	Title     string
	Statement string
	Samples   []domain.Sample
}

// Profile is the public part of a judge user page.
type Profile struct {
	Handle string
	Avatar string
	Rating int
}

// Scraper reads judge HTML pages.
type Scraper struct {
	baseURL string
	fetch   *fetcher
}

// NewScraper creates a scraper for the judge site.
func NewScraper(opts Options) *Scraper {
	opts = opts.withDefaults()
	return &Scraper{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		fetch:   newFetcher(opts),
	}
}

var (
	sampleHeading = regexp.MustCompile(`(?i)^sample\s+(input|output)\s*(\d+)`)
	spaceRun      = regexp.MustCompile(`[ \t]+`)
	blankRun      = regexp.MustCompile(`\n{3,}`)
)

// ProblemPage scrapes the English statement and samples of a task.
func (s *Scraper) ProblemPage(ctx context.Context, contestID, problemID string) (*ProblemPage, error) {
	path := fmt.Sprintf("/contests/%s/tasks/%s?lang=en", url.PathEscape(contestID), url.PathEscape(problemID))
	doc, err := s.document(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("scrape problem %s: %w", problemID, err)
	}
	return parseProblemPage(doc), nil
}

func parseProblemPage(doc *goquery.Document) *ProblemPage {
	page := &ProblemPage{}

	title := doc.Find("span.h2").First().Clone()
	title.Find("a").Remove()
	page.Title = strings.TrimSpace(title.Text())

	root := doc.Find("#task-statement span.lang-en")
	if root.Length() == 0 {
		root = doc.Find("#task-statement")
	}

	inputs := map[int]string{}
	outputs := map[int]string{}
	var parts []string

	root.Find("section").Each(func(_ int, sec *goquery.Selection) {
		heading := strings.TrimSpace(sec.Find("h3").First().Text())
		if m := sampleHeading.FindStringSubmatch(heading); m != nil {
			n, _ := strconv.Atoi(m[2])
			body := sec.Find("pre").First().Text()
			if strings.EqualFold(m[1], "input") {
				inputs[n] = body
			} else {
				outputs[n] = body
			}
			return
		}
		// nested sections are reached through their parent
		if sec.ParentsFiltered("section").Length() > 0 {
			return
		}
		parts = append(parts, cleanText(sec.Text()))
	})

	page.Statement = strings.TrimSpace(strings.Join(parts, "\n\n"))

	nums := make([]int, 0, len(inputs))
	for n := range inputs {
		if _, ok := outputs[n]; ok {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	for _, n := range nums {
		page.Samples = append(page.Samples, domain.Sample{Input: inputs[n], Output: outputs[n]})
	}
	return page
}

// Editorial returns the text of the first editorial linked from a task.
// Tasks without an editorial return an empty string.
func (s *Scraper) Editorial(ctx context.Context, contestID, problemID string) (string, error) {
	listPath := fmt.Sprintf("/contests/%s/tasks/%s/editorial?lang=en", url.PathEscape(contestID), url.PathEscape(problemID))
	doc, err := s.document(ctx, listPath)
	if err != nil {
		return "", fmt.Errorf("scrape editorial list %s: %w", problemID, err)
	}

	href, ok := doc.Find(`a[href*="/editorial/"]`).First().Attr("href")
	if !ok {
		return "", nil
	}
	if !strings.HasPrefix(href, "/") {
		if u, err := url.Parse(href); err == nil {
			href = u.RequestURI()
		}
	}

	page, err := s.document(ctx, href)
	if err != nil {
		return "", fmt.Errorf("scrape editorial %s: %w", problemID, err)
	}
	page.Find("script, style, nav, header, footer").Remove()

	body := page.Find("#main-container")
	if body.Length() == 0 {
		body = page.Find("body")
	}
	return cleanText(body.Text()), nil
}

// UserProfile scrapes avatar and current rating.
func (s *Scraper) UserProfile(ctx context.Context, handle string) (*Profile, error) {
	doc, err := s.document(ctx, "/users/"+url.PathEscape(handle))
	if err != nil {
		return nil, fmt.Errorf("scrape profile %s: %w", handle, err)
	}

	p := &Profile{Handle: handle}
	if src, ok := doc.Find("img.avatar").First().Attr("src"); ok {
		p.Avatar = src
	}
	doc.Find("table tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if strings.TrimSpace(tr.Find("th").First().Text()) != "Rating" {
			return true
		}
		if n, err := strconv.Atoi(strings.TrimSpace(tr.Find("td span").First().Text())); err == nil {
			p.Rating = n
		}
		return false
	})
	return p, nil
}

type historyEntry struct {
	IsRated           bool   `json:"IsRated"`
	NewRating         int    `json:"NewRating"`
	ContestScreenName string `json:"ContestScreenName"`
	EndTime           string `json:"EndTime"`
}

// RatingHistory returns the rated contest results of a user, oldest first.
func (s *Scraper) RatingHistory(ctx context.Context, handle string) ([]domain.RatingSample, error) {
	body, err := s.fetch.get(ctx, s.baseURL+"/users/"+url.PathEscape(handle)+"/history/json", "application/json")
	if err != nil {
		return nil, fmt.Errorf("fetch rating history %s: %w", handle, err)
	}

	var entries []historyEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode rating history: %w", err)
	}

	samples := make([]domain.RatingSample, 0, len(entries))
	for _, e := range entries {
		if !e.IsRated {
			continue
		}
		at, err := time.Parse(time.RFC3339, e.EndTime)
		if err != nil {
			continue
		}
		contest, _, _ := strings.Cut(e.ContestScreenName, ".")
		samples = append(samples, domain.RatingSample{
			Rating:    e.NewRating,
			ContestID: contest,
			TakenAt:   at.UTC(),
		})
	}
	return samples, nil
}

func (s *Scraper) document(ctx context.Context, path string) (*goquery.Document, error) {
	body, err := s.fetch.get(ctx, s.baseURL+path, "text/html")
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRun.ReplaceAllString(l, " "))
	}
	return strings.TrimSpace(blankRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
