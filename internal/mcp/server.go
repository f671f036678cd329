package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/solvehelper/internal/domain"
	"github.com/felixgeelhaar/solvehelper/internal/practice"
	"github.com/felixgeelhaar/solvehelper/internal/recommend"
)

// Version is reported to MCP clients.
const Version = "0.1.0"

// statementLimit caps the statement text returned to the client.
const statementLimit = 6000

// ProblemSource loads problem metadata and statements
type ProblemSource interface {
	Problem(ctx context.Context, id string) (*domain.Problem, error)
}

// HintSource returns a problem's progressive hints
type HintSource interface {
	Hints(ctx context.Context, userID uuid.UUID, problemID string) ([]string, error)
}

// Recommender picks problems near the user's rating
type Recommender interface {
	Recommend(ctx context.Context, userID uuid.UUID, count int) (*recommend.Result, error)
}

// PracticeChecker looks up practice sessions and checks them against the judge
type PracticeChecker interface {
	List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.PracticeSession, error)
	CheckSubmission(ctx context.Context, userID, id uuid.UUID) (*practice.CheckResult, error)
}

// Server exposes Solve Helper tools over MCP for one user
type Server struct {
	mcpServer *server.Server
	userID    uuid.UUID
	problems  ProblemSource
	hints     HintSource
	recommend Recommender
	practice  PracticeChecker
}

// Config contains configuration for the MCP server
type Config struct {
	// UserID is the account every tool call acts as.
	UserID    uuid.UUID
	Problems  ProblemSource
	Hints     HintSource
	Recommend Recommender
	Practice  PracticeChecker
}

// NewServer creates a new MCP server
func NewServer(cfg Config) *Server {
	s := &Server{
		userID:    cfg.UserID,
		problems:  cfg.Problems,
		hints:     cfg.Hints,
		recommend: cfg.Recommend,
		practice:  cfg.Practice,
	}

	s.mcpServer = server.New(server.Info{
		Name:    "solvehelper",
		Version: Version,
	}, server.WithInstructions(`
Solve Helper is a tutor for competitive programming practice.
Prefer giving the learner one hint at a time over full solutions.

Available tools:
- solve_problem: Show a problem statement and its difficulty
- solve_hints: Reveal the first N progressive hints for a problem
- solve_recommend: Suggest unsolved problems near the user's rating
- solve_practice_check: Check whether a practice session's problem was accepted
`))

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("solve_problem").
		Description("Show a problem's statement, difficulty and color band.").
		Handler(s.handleProblem)

	s.mcpServer.Tool("solve_hints").
		Description("Reveal progressive hints for a problem, weakest first. Ask for more only when the learner is stuck.").
		Handler(s.handleHints)

	s.mcpServer.Tool("solve_recommend").
		Description("Suggest unsolved problems slightly above the user's rating.").
		Handler(s.handleRecommend)

	s.mcpServer.Tool("solve_practice_check").
		Description("Check the judge for an accepted submission for a practice session. Defaults to the latest session.").
		Handler(s.handlePracticeCheck)
}

type ProblemInput struct {
	ProblemID string `json:"problem_id" jsonschema:"description=Problem ID such as abc300_a"`
}

type ProblemOutput struct {
	ProblemID  string `json:"problem_id"`
	ContestID  string `json:"contest_id"`
	Title      string `json:"title"`
	Difficulty *int   `json:"difficulty,omitempty"`
	Color      string `json:"color"`
	Statement  string `json:"statement"`
	Truncated  bool   `json:"truncated,omitempty"`
}

type HintsInput struct {
	ProblemID string `json:"problem_id" jsonschema:"description=Problem ID such as abc300_a"`
	Upto      int    `json:"upto,omitempty" jsonschema:"description=Number of hints to reveal (default: 1)"`
}

type HintsOutput struct {
	ProblemID string   `json:"problem_id"`
	Hints     []string `json:"hints"`
	Remaining int      `json:"remaining"`
}

type RecommendInput struct {
	Count int `json:"count,omitempty" jsonschema:"description=Number of problems (default: 5)"`
}

type RecommendedProblem struct {
	ProblemID  string `json:"problem_id"`
	Title      string `json:"title"`
	Difficulty *int   `json:"difficulty,omitempty"`
	Color      string `json:"color"`
}

type RecommendOutput struct {
	Rating   int                  `json:"rating"`
	Window   string               `json:"window"`
	Problems []RecommendedProblem `json:"problems"`
}

type PracticeCheckInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"description=Practice session ID (default: latest session)"`
}

type PracticeCheckOutput struct {
	SessionID    string `json:"session_id"`
	ProblemID    string `json:"problem_id"`
	Solved       bool   `json:"solved"`
	Status       string `json:"status"`
	SubmissionID int64  `json:"submission_id,omitempty"`
	Message      string `json:"message"`
}

func (s *Server) handleProblem(ctx context.Context, input ProblemInput) (ProblemOutput, error) {
	id := strings.TrimSpace(input.ProblemID)
	if id == "" {
		return ProblemOutput{}, errors.New("problem_id is required")
	}
	p, err := s.problems.Problem(ctx, id)
	if err != nil {
		return ProblemOutput{}, fmt.Errorf("load problem %s: %w", id, err)
	}

	out := ProblemOutput{
		ProblemID:  p.ID,
		ContestID:  p.ContestID,
		Title:      p.Title,
		Difficulty: p.Difficulty,
		Color:      domain.RatingColor(p.DifficultyOr(0)),
		Statement:  p.Statement,
	}
	if r := []rune(out.Statement); len(r) > statementLimit {
		out.Statement = string(r[:statementLimit])
		out.Truncated = true
	}
	return out, nil
}

func (s *Server) handleHints(ctx context.Context, input HintsInput) (HintsOutput, error) {
	id := strings.TrimSpace(input.ProblemID)
	if id == "" {
		return HintsOutput{}, errors.New("problem_id is required")
	}
	hints, err := s.hints.Hints(ctx, s.userID, id)
	if err != nil {
		return HintsOutput{}, fmt.Errorf("get hints: %w", err)
	}

	n := input.Upto
	if n <= 0 {
		n = 1
	}
	n = min(n, len(hints))
	return HintsOutput{ProblemID: id, Hints: hints[:n], Remaining: len(hints) - n}, nil
}

func (s *Server) handleRecommend(ctx context.Context, input RecommendInput) (RecommendOutput, error) {
	count := input.Count
	if count <= 0 {
		count = 5
	}
	res, err := s.recommend.Recommend(ctx, s.userID, count)
	if err != nil {
		return RecommendOutput{}, fmt.Errorf("recommend: %w", err)
	}

	out := RecommendOutput{
		Rating:   res.Rating,
		Window:   fmt.Sprintf("%d-%d", res.Window.Min, res.Window.Max),
		Problems: make([]RecommendedProblem, 0, len(res.Recommendations)),
	}
	for _, r := range res.Recommendations {
		out.Problems = append(out.Problems, RecommendedProblem{
			ProblemID:  r.Problem.ID,
			Title:      r.Problem.Title,
			Difficulty: r.Problem.Difficulty,
			Color:      r.Color,
		})
	}
	return out, nil
}

func (s *Server) handlePracticeCheck(ctx context.Context, input PracticeCheckInput) (PracticeCheckOutput, error) {
	id, err := s.resolveSession(ctx, input.SessionID)
	if err != nil {
		return PracticeCheckOutput{}, err
	}

	res, err := s.practice.CheckSubmission(ctx, s.userID, id)
	if err != nil {
		return PracticeCheckOutput{}, fmt.Errorf("check submission: %w", err)
	}

	out := PracticeCheckOutput{
		SessionID: res.Session.ID.String(),
		ProblemID: res.Session.ProblemID,
		Solved:    res.Solved,
		Status:    string(res.Session.Status),
		Message:   "No accepted submission yet.",
	}
	if res.Submission != nil {
		out.SubmissionID = res.Submission.ID
	}
	if res.Solved {
		out.Message = "Accepted. The problem is recorded as solved."
		if res.Session.Overtime() {
			out.Message = "Accepted after the time limit. The problem is recorded as solved."
		}
		if res.Praise != nil {
			out.Message += " " + res.Praise.Text
		}
	}
	return out, nil
}

// resolveSession parses raw, or picks the most recent session when raw is empty.
func (s *Server) resolveSession(ctx context.Context, raw string) (uuid.UUID, error) {
	if raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid session_id: %w", err)
		}
		return id, nil
	}

	sessions, err := s.practice.List(ctx, s.userID, 1)
	if err != nil {
		return uuid.Nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		return uuid.Nil, errors.New("no practice sessions; start one first")
	}
	return sessions[0].ID, nil
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
