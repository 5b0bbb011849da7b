package httptransport

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"ispeak-server-go/internal/domain/assess"
	"ispeak-server-go/internal/domain/audio/timbre"
	"ispeak-server-go/internal/domain/cache"
	"ispeak-server-go/internal/domain/features"
	"ispeak-server-go/internal/domain/scoring"
	"ispeak-server-go/internal/domain/semantic"
	"ispeak-server-go/internal/domain/text"
	"ispeak-server-go/internal/platform/errors"
	"ispeak-server-go/internal/platform/logging"
	"ispeak-server-go/internal/platform/storage"
)

// Service wires the HTTP handlers to the assessment pipeline.
type Service struct {
	assess   *assess.Service
	scoring  *scoring.Service
	store    *storage.Store
	cache    cache.Store
	datasets *text.Datasets
	semantic *semantic.Analyzer
	tts      timbre.Synthesizer
	logger   *logging.Logger
}

// NewService builds the handler set. Store, cache, datasets, semantic and tts
// may be nil; the matching endpoints then answer with an explanatory error.
func NewService(
	assessSvc *assess.Service,
	scoringSvc *scoring.Service,
	store *storage.Store,
	cacheStore cache.Store,
	datasets *text.Datasets,
	analyzer *semantic.Analyzer,
	tts timbre.Synthesizer,
	logger *logging.Logger,
) *Service {
	return &Service{
		assess:   assessSvc,
		scoring:  scoringSvc,
		store:    store,
		cache:    cacheStore,
		datasets: datasets,
		semantic: analyzer,
		tts:      tts,
		logger:   logger,
	}
}

// RegisterRoutes attaches every endpoint to the API group.
func (s *Service) RegisterRoutes(r *Router) {
	api := r.API
	api.GET("/health", s.handleHealth)
	api.POST("/assess", s.handleAssess)
	api.POST("/score", s.handleScore)
	api.POST("/score/batch", s.handleScoreBatch)
	api.GET("/results/:id", s.handleGetResult)

	data := api.Group("/data")
	data.POST("/idioms", s.handleIdioms)
	data.POST("/cefr", s.handleCEFR)
	data.POST("/bundles", s.handleBundles)
	data.POST("/topic-similarity", s.handleTopicSimilarity)
	data.POST("/tts", s.handleTTS)
}

func (s *Service) handleHealth(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if s.cache != nil {
		if stats, err := s.cache.Stats(c.Request.Context()); err == nil {
			resp["cache"] = stats
		}
	}
	c.JSON(http.StatusOK, resp)
}

// handleAssess accepts a multipart recording plus transcript and returns the
// extracted feature record. With form field score=true the record is also
// scored and persisted in the same request.
func (s *Service) handleAssess(c *gin.Context) {
	file, err := c.FormFile("audio")
	if err != nil {
		file, err = c.FormFile("file")
	}
	if err != nil {
		respondError(c, http.StatusBadRequest, "audio file required")
		return
	}
	f, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "cannot open upload: "+err.Error())
		return
	}
	defer f.Close()
	audioBytes, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, "cannot read upload: "+err.Error())
		return
	}

	req := assess.Request{
		RecordingID:    c.PostForm("recording_id"),
		Audio:          audioBytes,
		Filename:       file.Filename,
		Transcript:     c.PostForm("transcript"),
		ReferenceTopic: c.PostForm("reference_topic"),
		UseASR:         c.PostForm("use_asr") == "true",
	}

	out, err := s.assess.Assess(c.Request.Context(), req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	resp := gin.H{
		"recording_id": out.RecordingID,
		"duration":     out.Duration,
		"transcript":   out.Transcript,
		"features":     out.Features,
		"extras":       out.Extras,
		"warnings":     out.Warnings,
	}

	// Scoring failures never discard the extracted features: a partial score
	// is returned with its per-construct error markers, and only a complete
	// score is persisted.
	if c.PostForm("score") == "true" {
		result, err := s.scoring.Score(c.Request.Context(), out.Features)
		switch {
		case err != nil:
			resp["score_error"] = err.Error()
		case !result.Complete():
			resp["score"] = result
			resp["warnings"] = mergeWarnings(out.Warnings, result.Errors)
		default:
			row, subscores, err := s.persistScore(c.Request.Context(), out.RecordingID, out.Features, result, out)
			if err != nil {
				resp["score_error"] = err.Error()
			} else {
				resp["score"] = row
				resp["subscores"] = subscores
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

func mergeWarnings(warnings, scoreErrs map[string]string) map[string]string {
	merged := make(map[string]string, len(warnings)+len(scoreErrs))
	for k, v := range warnings {
		merged[k] = v
	}
	for k, v := range scoreErrs {
		merged[k] = v
	}
	return merged
}

type scoreRequest struct {
	RecordingID string             `json:"recording_id"`
	Features    map[string]float64 `json:"features"`
}

func (s *Service) handleScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RecordingID == "" || req.Features == nil {
		respondError(c, http.StatusBadRequest, "body must be { recording_id, features }")
		return
	}

	row, subscores, err := s.scoreAndPersist(c.Request.Context(), req.RecordingID, features.FromMap(req.Features), nil)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "score": row, "subscores": subscores})
}

type scoreBatchRequest struct {
	Items []scoreRequest `json:"items"`
}

// handleScoreBatch scores many feature records in one call. Invalid items are
// skipped, failed ones dropped; the response reports what was inserted.
func (s *Service) handleScoreBatch(c *gin.Context) {
	var req scoreBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Items) == 0 {
		respondError(c, http.StatusBadRequest, "body must be { items: [{ recording_id, features }, ...] }")
		return
	}

	inserted := make([]*storage.AssessmentResult, 0, len(req.Items))
	for _, item := range req.Items {
		if item.RecordingID == "" || item.Features == nil {
			continue
		}
		row, _, err := s.scoreAndPersist(c.Request.Context(), item.RecordingID, features.FromMap(item.Features), nil)
		if err != nil {
			s.logger.WarnTag("SCORE", "batch item %s failed: %v", item.RecordingID, err)
			continue
		}
		inserted = append(inserted, row)
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"insertedCount": len(inserted),
		"scores":        inserted,
	})
}

func (s *Service) handleGetResult(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if s.cache != nil {
		if raw, ok, _ := s.cache.Get(ctx, id); ok {
			c.Data(http.StatusOK, "application/json", raw)
			return
		}
	}
	if s.store == nil {
		respondError(c, http.StatusNotFound, "result not found: "+id)
		return
	}

	res, err := s.store.GetResult(ctx, id)
	if err != nil {
		respondError(c, http.StatusNotFound, err.Error())
		return
	}
	s.cachePut(ctx, id, res)
	c.JSON(http.StatusOK, res)
}

type textRequest struct {
	Text      string `json:"text"`
	Reference string `json:"reference"`
}

func (s *Service) handleIdioms(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		respondError(c, http.StatusBadRequest, "body must be { text }")
		return
	}
	if s.datasets == nil {
		respondError(c, http.StatusInternalServerError, "idiom dataset not configured")
		return
	}
	idioms, err := s.datasets.Idioms()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	found := text.FindIdioms(req.Text, idioms)
	if found == nil {
		found = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(found), "idioms": found})
}

func (s *Service) handleCEFR(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		respondError(c, http.StatusBadRequest, "body must be { text }")
		return
	}
	if s.datasets == nil {
		respondError(c, http.StatusInternalServerError, "cefr dataset not configured")
		return
	}
	dict, err := s.datasets.CEFRDict()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	levels := text.WordLevels(req.Text, dict)
	c.JSON(http.StatusOK, gin.H{
		"distribution": text.CEFRDistribution(levels),
		"wordLevels":   levels,
	})
}

func (s *Service) handleBundles(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		respondError(c, http.StatusBadRequest, "body must be { text }")
		return
	}
	counts := text.CountBundles(req.Text)
	c.JSON(http.StatusOK, gin.H{
		"bigram_count":     counts.Bigrams,
		"trigram_count":    counts.Trigrams,
		"fourgram_count":   counts.Fourgrams,
		"bigram_matches":   emptyIfNil(counts.BigramMatches),
		"trigram_matches":  emptyIfNil(counts.TrigramMatches),
		"fourgram_matches": emptyIfNil(counts.FourgramMatches),
	})
}

func (s *Service) handleTopicSimilarity(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == "" || req.Reference == "" {
		respondError(c, http.StatusBadRequest, "body must be { text, reference }")
		return
	}
	if s.semantic == nil {
		respondError(c, http.StatusInternalServerError, "embedding provider not configured")
		return
	}
	score, err := s.semantic.TopicSimilarity(c.Request.Context(), req.Text, req.Reference)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"similarityPercent": score})
}

func (s *Service) handleTTS(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		respondError(c, http.StatusBadRequest, "body must be { text }")
		return
	}
	if s.tts == nil {
		respondError(c, http.StatusInternalServerError, "tts provider not configured")
		return
	}
	audio, err := s.tts.Synthesize(c.Request.Context(), req.Text)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.Data(http.StatusOK, "audio/mpeg", audio)
}

// scoreAndPersist runs the construct models and stores the row, all or
// nothing: any degraded model fails the call and nothing is written. The
// subscores map mirrors the persisted column layout.
func (s *Service) scoreAndPersist(
	ctx context.Context,
	recordingID string,
	rec features.Record,
	assessment *assess.Assessment,
) (*storage.AssessmentResult, map[string]any, error) {
	result, err := s.scoring.Score(ctx, rec)
	if err != nil {
		return nil, nil, err
	}
	if !result.Complete() {
		return nil, nil, scoringFailure(result.Errors)
	}
	return s.persistScore(ctx, recordingID, rec, result, assessment)
}

// scoringFailure flattens per-model errors into one error, in model order.
func scoringFailure(scoreErrs map[string]string) error {
	names := make([]string, 0, len(scoreErrs))
	for _, name := range append(append([]string{}, features.ConstructOrder...), scoring.CEFRModelName) {
		if _, ok := scoreErrs[name]; ok {
			names = append(names, name)
		}
	}
	return errors.New(errors.KindScoring, "score", "models failed: "+strings.Join(names, ", "))
}

// persistScore stores a completely scored record and refreshes the cache.
func (s *Service) persistScore(
	ctx context.Context,
	recordingID string,
	rec features.Record,
	result *scoring.Result,
	assessment *assess.Assessment,
) (*storage.AssessmentResult, map[string]any, error) {
	row := &storage.AssessmentResult{
		RecordingID:    recordingID,
		ScoreCEFR:      result.CEFR,
		CEFRIndex:      result.CEFRIndex,
		Fluency:        result.Subscores["Fluency"],
		Pronunciation:  result.Subscores["Pronunciation"],
		Prosody:        result.Subscores["Prosody"],
		Coherence:      result.Subscores["Coherence and Cohesion"],
		TopicRelevance: result.Subscores["Topic Relevance"],
		Complexity:     result.Subscores["Complexity"],
		Accuracy:       result.Subscores["Accuracy"],
	}
	if data, err := sonic.Marshal(rec); err == nil {
		row.Features = data
	}

	var recording *storage.Recording
	if assessment != nil {
		if len(assessment.Warnings) > 0 {
			if data, err := sonic.Marshal(assessment.Warnings); err == nil {
				row.Warnings = data
			}
		}
		recording = &storage.Recording{
			RecordingID: assessment.RecordingID,
			Duration:    assessment.Duration,
			Transcript:  assessment.Transcript,
		}
	}

	if s.store != nil {
		if err := s.store.SaveAssessment(ctx, recording, row); err != nil {
			return nil, nil, err
		}
	}
	s.cachePut(ctx, recordingID, row)

	subscores := map[string]any{
		"recording_id":    recordingID,
		"score_cefr":      result.CEFR,
		"fluency":         row.Fluency,
		"pronunciation":   row.Pronunciation,
		"prosody":         row.Prosody,
		"coherence":       row.Coherence,
		"topic_relevance": row.TopicRelevance,
		"complexity":      row.Complexity,
		"accuracy":        row.Accuracy,
		"labels":          result.Labels,
	}
	return row, subscores, nil
}

func (s *Service) cachePut(ctx context.Context, id string, row *storage.AssessmentResult) {
	if s.cache == nil {
		return
	}
	if data, err := sonic.Marshal(row); err == nil {
		if err := s.cache.Put(ctx, id, data); err != nil {
			s.logger.WarnTag("CACHE", "cache put failed for %s: %v", id, err)
		}
	}
}

func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
