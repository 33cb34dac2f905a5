package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/news-scout/internal/apperr"
	"github.com/DjordjeVuckovic/news-scout/internal/domain"
	"github.com/DjordjeVuckovic/news-scout/internal/ingest"
	"github.com/DjordjeVuckovic/news-scout/internal/rank"
	"github.com/DjordjeVuckovic/news-scout/internal/source"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	maxLimitPerSource = 100
	maxRankBatch      = 50
)

// NewsRouter binds the ingestion, job and ranking endpoints.
type NewsRouter struct {
	e         *echo.Echo
	ingestSvc *ingest.Service
	rankSvc   *rank.Service
	bgCtx     context.Context
	logger    *slog.Logger
}

type NewsRouterOption func(*NewsRouter)

// WithBackgroundContext sets the context async ingestion runs inherit
// from, so they outlive the request but not the process.
func WithBackgroundContext(ctx context.Context) NewsRouterOption {
	return func(r *NewsRouter) { r.bgCtx = ctx }
}

func WithLogger(logger *slog.Logger) NewsRouterOption {
	return func(r *NewsRouter) { r.logger = logger }
}

func NewNewsRouter(e *echo.Echo, ingestSvc *ingest.Service, rankSvc *rank.Service, opts ...NewsRouterOption) *NewsRouter {
	r := &NewsRouter{
		e:         e,
		ingestSvc: ingestSvc,
		rankSvc:   rankSvc,
		bgCtx:     context.Background(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *NewsRouter) Bind() {
	r.e.POST("/ingest", r.ingestHandler)
	r.e.GET("/jobs/:jobId", r.jobHandler)
	r.e.POST("/rank", r.rankHandler)
	r.e.GET("/articles/pending", r.pendingHandler)
	r.e.GET("/articles/top-ranked", r.topRankedHandler)
	r.e.GET("/articles/:id", r.articleHandler)
}

type ingestRequest struct {
	Sources        []string `json:"sources"`
	LimitPerSource int      `json:"limitPerSource"`
	Category       string   `json:"category"`
}

type ingestAcceptedResponse struct {
	JobID  uuid.UUID `json:"jobId"`
	Status string    `json:"status"`
}

// ingestHandler starts an ingestion job and returns immediately; the
// fetch runs in the background and GET /jobs/:jobId reports progress.
func (r *NewsRouter) ingestHandler(c echo.Context) error {
	var req ingestRequest
	if err := c.Bind(&req); err != nil {
		return apperr.NewValidationWrap("invalid request body", err)
	}

	for _, name := range req.Sources {
		if !source.Known(name) {
			return apperr.NewValidation(fmt.Sprintf("unknown source %q, supported sources: %s",
				name, strings.Join(source.KnownNames(), ", ")))
		}
	}
	if req.LimitPerSource < 0 || req.LimitPerSource > maxLimitPerSource {
		return apperr.NewValidation(fmt.Sprintf("limitPerSource must be between 1 and %d", maxLimitPerSource))
	}

	job, err := r.ingestSvc.Begin(c.Request().Context())
	if err != nil {
		return err
	}

	params := ingest.Params{
		Sources:        req.Sources,
		LimitPerSource: req.LimitPerSource,
		Category:       req.Category,
	}
	go func() {
		if _, err := r.ingestSvc.Run(r.bgCtx, job, params); err != nil {
			r.logger.Error("background ingestion run failed", "jobId", job.ID, "error", err)
		}
	}()

	return c.JSON(http.StatusAccepted, ingestAcceptedResponse{
		JobID:  job.ID,
		Status: "accepted",
	})
}

func (r *NewsRouter) jobHandler(c echo.Context) error {
	jobID, err := uuid.Parse(c.Param("jobId"))
	if err != nil {
		return apperr.NewValidationWrap("jobId must be a valid UUID", err)
	}

	job, err := r.ingestSvc.GetJob(c.Request().Context(), jobID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

type rankRequest struct {
	ArticleIDs  []int64 `json:"articleIds"`
	ForceRerank bool    `json:"forceRerank"`
}

type rankResponse struct {
	RankedCount  int                           `json:"rankedCount"`
	SkippedCount int                           `json:"skippedCount"`
	Scores       map[int64]domain.RankingScore `json:"scores"`
	Errors       map[int64]string              `json:"errors"`
}

// rankHandler scores the requested articles synchronously. Per-article
// failures land in the errors map; the request itself still succeeds.
func (r *NewsRouter) rankHandler(c echo.Context) error {
	var req rankRequest
	if err := c.Bind(&req); err != nil {
		return apperr.NewValidationWrap("invalid request body", err)
	}

	if len(req.ArticleIDs) == 0 {
		return apperr.NewValidation("articleIds must not be empty")
	}
	if len(req.ArticleIDs) > maxRankBatch {
		return apperr.NewValidation(fmt.Sprintf("articleIds must hold at most %d ids", maxRankBatch))
	}

	result, err := r.rankSvc.RankArticles(c.Request().Context(), req.ArticleIDs, req.ForceRerank)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, rankResponse{
		RankedCount:  result.RankedCount,
		SkippedCount: result.SkippedCount,
		Scores:       result.Scores,
		Errors:       result.Errors,
	})
}

func (r *NewsRouter) pendingHandler(c echo.Context) error {
	limit := queryInt(c, "limit", 0)
	articles, err := r.ingestSvc.ListPending(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	return c.JSON(http.StatusOK, map[string]any{"articles": articles})
}

func (r *NewsRouter) topRankedHandler(c echo.Context) error {
	limit := queryInt(c, "limit", 0)
	// An absent minScore falls back to the service's configured threshold;
	// an explicit minScore=0 asks for the unfiltered list.
	minScore := queryFloat(c, "minScore", -1)

	ranked, err := r.rankSvc.TopRanked(c.Request().Context(), limit, minScore)
	if err != nil {
		return err
	}
	if ranked == nil {
		ranked = []domain.RankedArticle{}
	}
	return c.JSON(http.StatusOK, map[string]any{"articles": ranked})
}

type articleResponse struct {
	Article     domain.Article       `json:"article"`
	LatestScore *domain.RankingScore `json:"latestScore"`
}

func (r *NewsRouter) articleHandler(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return apperr.NewValidationWrap("id must be an integer", err)
	}

	article, err := r.ingestSvc.GetArticle(c.Request().Context(), id)
	if err != nil {
		return err
	}

	resp := articleResponse{Article: article}
	score, err := r.rankSvc.LatestScore(c.Request().Context(), id)
	if err == nil {
		resp.LatestScore = &score
	} else if !apperr.IsNotFound(err) {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func queryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

func queryFloat(c echo.Context, name string, fallback float64) float64 {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
