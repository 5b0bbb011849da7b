package httptransport

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ispeak-server-go/internal/domain/assess"
	"ispeak-server-go/internal/domain/cache"
	"ispeak-server-go/internal/domain/scoring"
	"ispeak-server-go/internal/domain/text"
	"ispeak-server-go/internal/platform/config"
	"ispeak-server-go/internal/platform/storage"
)

type stubClassifier struct {
	value float64
}

func (s stubClassifier) Predict(context.Context, []float64) (scoring.RawResult, error) {
	return scoring.Numeric(s.value), nil
}

type stubModels struct {
	values map[string]float64
	errs   map[string]error
}

func (m stubModels) Model(name string) (scoring.Classifier, error) {
	if err, ok := m.errs[name]; ok {
		return nil, err
	}
	return stubClassifier{value: m.values[name]}, nil
}

func testModels() stubModels {
	return stubModels{values: map[string]float64{
		"Fluency":                3,
		"Pronunciation":          3,
		"Prosody":                2,
		"Coherence and Cohesion": 3,
		"Topic Relevance":        4,
		"Complexity":             3,
		"Accuracy":               3,
		"CEFR":                   3.2,
	}}
}

func testDatasets(t *testing.T) *text.Datasets {
	t.Helper()
	dir := t.TempDir()
	cefr := filepath.Join(dir, "cefr.csv")
	idioms := filepath.Join(dir, "idioms.csv")
	os.WriteFile(cefr, []byte("headword,CEFR\nfruit,A1\nmarket,A2\n"), 0o644)
	os.WriteFile(idioms, []byte("idiom\na good day\n"), 0o644)
	return text.NewDatasets(cefr, idioms)
}

func toneWAV(t *testing.T, seconds float64) []byte {
	t.Helper()
	const rate = 16000
	n := int(seconds * rate)
	pcm := make([]int16, n)
	for i := range pcm {
		pcm[i] = int16(0.5 * 32767 * math.Sin(2*math.Pi*150*float64(i)/rate))
	}
	var data bytes.Buffer
	binary.Write(&data, binary.LittleEndian, pcm)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())
	return buf.Bytes()
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	return testServerWithModels(t, testModels())
}

func testServerWithModels(t *testing.T, models stubModels) *httptest.Server {
	t.Helper()
	cfg := config.Default()

	store, err := storage.Open(config.StorageConfig{Dir: t.TempDir(), File: "test.db"}, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cacheStore := cache.NewMemory(config.CacheConfig{TTL: time.Minute})
	t.Cleanup(func() { _ = cacheStore.Close(context.Background()) })

	datasets := testDatasets(t)
	assessSvc := assess.NewService(cfg.Pipeline, cfg.Assess, assess.Deps{Datasets: datasets})
	scoringSvc := scoring.NewService(models, scoring.ScalerSet{}, nil)

	router := Build(Options{Config: cfg})
	svc := NewService(assessSvc, scoringSvc, store, cacheStore, datasets, nil, nil, nil)
	svc.RegisterRoutes(router)

	srv := httptest.NewServer(router.Engine)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	var decoded map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestScoreAndFetchResult(t *testing.T) {
	srv := testServer(t)

	feats := map[string]float64{"Durasi (s)": 3.0, "Total Words": 18, "WPM": 360}
	resp, body := postJSON(t, srv.URL+"/api/score", map[string]any{
		"recording_id": "rec-1",
		"features":     feats,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["ok"] != true {
		t.Errorf("ok = %v", body["ok"])
	}
	subscores, _ := body["subscores"].(map[string]any)
	if subscores["score_cefr"] != "B2" {
		t.Errorf("score_cefr = %v, expected B2 for index 3.2", subscores["score_cefr"])
	}
	if subscores["topic_relevance"] != 4.0 {
		t.Errorf("topic_relevance = %v", subscores["topic_relevance"])
	}

	getResp, err := http.Get(srv.URL + "/api/results/rec-1")
	if err != nil {
		t.Fatalf("GET result: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("result status = %d", getResp.StatusCode)
	}
	var row map[string]any
	json.NewDecoder(getResp.Body).Decode(&row)
	if row["score_cefr"] != "B2" {
		t.Errorf("persisted score = %v", row["score_cefr"])
	}
}

func TestScoreRejectsBadBody(t *testing.T) {
	srv := testServer(t)
	resp, _ := postJSON(t, srv.URL+"/api/score", map[string]any{"recording_id": "rec-1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", resp.StatusCode)
	}
}

func TestScoreBatchSkipsInvalidItems(t *testing.T) {
	srv := testServer(t)
	resp, body := postJSON(t, srv.URL+"/api/score/batch", map[string]any{
		"items": []map[string]any{
			{"recording_id": "rec-a", "features": map[string]float64{"Durasi (s)": 2}},
			{"recording_id": ""},
			{"recording_id": "rec-b", "features": map[string]float64{"Durasi (s)": 4}},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["insertedCount"] != 2.0 {
		t.Errorf("insertedCount = %v, expected 2", body["insertedCount"])
	}
}

func TestResultNotFound(t *testing.T) {
	srv := testServer(t)
	resp, err := http.Get(srv.URL + "/api/results/ghost")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, expected 404", resp.StatusCode)
	}
}

func TestDataEndpoints(t *testing.T) {
	srv := testServer(t)

	resp, body := postJSON(t, srv.URL+"/api/data/idioms", map[string]any{
		"text": "It was a good day at the market.",
	})
	if resp.StatusCode != http.StatusOK || body["count"] != 1.0 {
		t.Errorf("idioms: status=%d body=%v", resp.StatusCode, body)
	}

	resp, body = postJSON(t, srv.URL+"/api/data/cefr", map[string]any{
		"text": "fresh fruit from the market",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cefr status = %d", resp.StatusCode)
	}
	dist, _ := body["distribution"].(map[string]any)
	if dist["A1"] != 1.0 || dist["A2"] != 1.0 {
		t.Errorf("distribution = %v", dist)
	}

	resp, body = postJSON(t, srv.URL+"/api/data/bundles", map[string]any{
		"text": "I think that it is a kind of on the other hand example.",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bundles status = %d", resp.StatusCode)
	}
	if body["bigram_count"] == nil || body["fourgram_matches"] == nil {
		t.Errorf("bundles body = %v", body)
	}

	resp, _ = postJSON(t, srv.URL+"/api/data/topic-similarity", map[string]any{
		"text": "a", "reference": "b",
	})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("topic-similarity without embedder: status = %d, expected 500", resp.StatusCode)
	}
}

func TestAssessEndpointScoresAndPersists(t *testing.T) {
	srv := testServer(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("audio", "tone.wav")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(toneWAV(t, 2.0))
	w.WriteField("transcript", "I went to the market and bought some fresh fruit. It was a good day.")
	w.WriteField("score", "true")
	w.Close()

	resp, err := http.Post(srv.URL+"/api/assess", w.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST assess: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	id, _ := body["recording_id"].(string)
	if id == "" {
		t.Fatal("missing recording id")
	}
	feats, _ := body["features"].(map[string]any)
	if feats["Durasi (s)"] == nil || feats["Total Words"] == nil {
		t.Errorf("features missing: %v", feats)
	}
	score, _ := body["score"].(map[string]any)
	if score["score_cefr"] != "B2" {
		t.Errorf("score = %v", score)
	}

	getResp, err := http.Get(srv.URL + "/api/results/" + id)
	if err != nil {
		t.Fatalf("GET result: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Errorf("persisted result status = %d", getResp.StatusCode)
	}
}

func TestAssessReturnsFeaturesWhenScoringDegrades(t *testing.T) {
	models := testModels()
	models.errs = map[string]error{"Prosody": fmt.Errorf("model server unreachable")}
	srv := testServerWithModels(t, models)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("audio", "tone.wav")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(toneWAV(t, 2.0))
	w.WriteField("recording_id", "rec-degraded")
	w.WriteField("transcript", "I went to the market and bought some fresh fruit.")
	w.WriteField("score", "true")
	w.Close()

	resp, err := http.Post(srv.URL+"/api/assess", w.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST assess: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, one failing model must not fail the request", resp.StatusCode)
	}

	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)

	feats, _ := body["features"].(map[string]any)
	if feats["Durasi (s)"] == nil || feats["Total Words"] == nil {
		t.Errorf("features must survive a scoring failure: %v", feats)
	}

	score, _ := body["score"].(map[string]any)
	labels, _ := score["labels"].(map[string]any)
	if labels["Prosody"] != "Error" {
		t.Errorf("Prosody label = %v, expected Error", labels["Prosody"])
	}
	if labels["Fluency"] != "B2" {
		t.Errorf("Fluency label = %v, remaining constructs must still score", labels["Fluency"])
	}
	warnings, _ := body["warnings"].(map[string]any)
	if warnings["Prosody"] == nil {
		t.Errorf("warnings must name the degraded construct: %v", warnings)
	}

	getResp, err := http.Get(srv.URL + "/api/results/rec-degraded")
	if err != nil {
		t.Fatalf("GET result: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, a partial score must not be persisted", getResp.StatusCode)
	}
}

func TestScoreFailsClosedWhenModelDegrades(t *testing.T) {
	models := testModels()
	models.errs = map[string]error{"Prosody": fmt.Errorf("model server unreachable")}
	srv := testServerWithModels(t, models)

	resp, body := postJSON(t, srv.URL+"/api/score", map[string]any{
		"recording_id": "rec-strict",
		"features":     map[string]float64{"Durasi (s)": 3.0},
	})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, expected 500 for all-or-nothing persistence", resp.StatusCode)
	}
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "Prosody") {
		t.Errorf("error = %q, expected the failed model named", msg)
	}

	getResp, err := http.Get(srv.URL + "/api/results/rec-strict")
	if err != nil {
		t.Fatalf("GET result: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, nothing must be persisted on failure", getResp.StatusCode)
	}
}

func TestAssessEndpointRequiresAudio(t *testing.T) {
	srv := testServer(t)
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("transcript", "hello.")
	w.Close()

	resp, err := http.Post(srv.URL+"/api/assess", w.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", resp.StatusCode)
	}
}
