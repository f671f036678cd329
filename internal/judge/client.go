package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
)

// SubmissionPageSize is the most submissions the aggregator returns per call.
const SubmissionPageSize = 500

// ProblemModel is the aggregator's difficulty estimate for a problem.
type ProblemModel struct {
	Difficulty     *float64 `json:"difficulty"`
	IsExperimental bool     `json:"is_experimental"`
}

// Submission is one judged submission.
type Submission struct {
	ID          int64   `json:"id"`
	EpochSecond int64   `json:"epoch_second"`
	ProblemID   string  `json:"problem_id"`
	ContestID   string  `json:"contest_id"`
	User        string  `json:"user_id"`
	Language    string  `json:"language"`
	Point       float64 `json:"point"`
	Result      string  `json:"result"`
}

// Accepted reports whether the verdict is AC.
func (s Submission) Accepted() bool {
	return s.Result == "AC"
}

// SubmittedAt converts the epoch timestamp.
func (s Submission) SubmittedAt() time.Time {
	return time.Unix(s.EpochSecond, 0).UTC()
}

// Client reads the aggregator JSON API.
type Client struct {
	baseURL string
	fetch   *fetcher
}

// NewClient creates an aggregator client.
func NewClient(opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		fetch:   newFetcher(opts),
	}
}

type contestJSON struct {
	ID               string `json:"id"`
	StartEpochSecond int64  `json:"start_epoch_second"`
	DurationSecond   int64  `json:"duration_second"`
	Title            string `json:"title"`
	RateChange       string `json:"rate_change"`
}

type problemJSON struct {
	ID           string `json:"id"`
	ContestID    string `json:"contest_id"`
	ProblemIndex string `json:"problem_index"`
	Name         string `json:"name"`
	Title        string `json:"title"`
}

type contestProblemJSON struct {
	ContestID    string `json:"contest_id"`
	ProblemID    string `json:"problem_id"`
	ProblemIndex string `json:"problem_index"`
}

// Contests lists every contest the aggregator knows.
func (c *Client) Contests(ctx context.Context) ([]domain.Contest, error) {
	var raw []contestJSON
	if err := c.getJSON(ctx, "/resources/contests.json", &raw); err != nil {
		return nil, fmt.Errorf("fetch contests: %w", err)
	}

	contests := make([]domain.Contest, 0, len(raw))
	for _, r := range raw {
		contests = append(contests, domain.Contest{
			ID:         r.ID,
			Title:      r.Title,
			StartAt:    time.Unix(r.StartEpochSecond, 0).UTC(),
			Duration:   time.Duration(r.DurationSecond) * time.Second,
			RateChange: r.RateChange,
		})
	}
	return contests, nil
}

// Problems lists every problem. Difficulty is not set here; see ProblemModels.
func (c *Client) Problems(ctx context.Context) ([]domain.Problem, error) {
	var raw []problemJSON
	if err := c.getJSON(ctx, "/resources/problems.json", &raw); err != nil {
		return nil, fmt.Errorf("fetch problems: %w", err)
	}

	problems := make([]domain.Problem, 0, len(raw))
	for _, r := range raw {
		title := r.Name
		if title == "" {
			title = r.Title
		}
		problems = append(problems, domain.Problem{
			ID:        r.ID,
			ContestID: r.ContestID,
			Index:     r.ProblemIndex,
			Title:     title,
		})
	}
	return problems, nil
}

// ContestProblems lists contest-problem links.
func (c *Client) ContestProblems(ctx context.Context) ([]domain.ContestProblem, error) {
	var raw []contestProblemJSON
	if err := c.getJSON(ctx, "/resources/contest-problem.json", &raw); err != nil {
		return nil, fmt.Errorf("fetch contest problems: %w", err)
	}

	links := make([]domain.ContestProblem, 0, len(raw))
	for _, r := range raw {
		links = append(links, domain.ContestProblem{
			ContestID: r.ContestID,
			ProblemID: r.ProblemID,
			Index:     r.ProblemIndex,
		})
	}
	return links, nil
}

// ProblemModels returns difficulty estimates keyed by problem id.
func (c *Client) ProblemModels(ctx context.Context) (map[string]ProblemModel, error) {
	models := make(map[string]ProblemModel)
	if err := c.getJSON(ctx, "/resources/problem-models.json", &models); err != nil {
		return nil, fmt.Errorf("fetch problem models: %w", err)
	}
	return models, nil
}

// UserSubmissions returns one page of submissions at or after fromSecond.
// A page shorter than SubmissionPageSize is the last one.
func (c *Client) UserSubmissions(ctx context.Context, handle string, fromSecond int64) ([]Submission, error) {
	q := url.Values{}
	q.Set("user", handle)
	q.Set("from_second", strconv.FormatInt(fromSecond, 10))

	var subs []Submission
	if err := c.getJSON(ctx, "/atcoder-api/v3/user/submissions?"+q.Encode(), &subs); err != nil {
		return nil, fmt.Errorf("fetch submissions for %s: %w", handle, err)
	}
	return subs, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, err := c.fetch.get(ctx, c.baseURL+path, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
