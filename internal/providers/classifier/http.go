package classifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"

	"ispeak-server-go/internal/domain/scoring"
	"ispeak-server-go/internal/platform/errors"
	"ispeak-server-go/internal/platform/logging"
)

// httpModelSet forwards prediction requests to an external model server,
// one endpoint per construct. Whatever shape the server answers with goes
// through the result gateway.
type httpModelSet struct {
	baseURL string
	client  *http.Client
	logger  *logging.Logger
}

func newHTTPModelSet(baseURL string, logger *logging.Logger) *httpModelSet {
	return &httpModelSet{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

func (s *httpModelSet) Model(name string) (scoring.Classifier, error) {
	if _, ok := modelFiles[name]; !ok {
		return nil, errors.New(errors.KindScoring, "classifier.model", "unknown model: "+name)
	}
	return &httpClassifier{set: s, name: name}, nil
}

type httpClassifier struct {
	set  *httpModelSet
	name string
}

func (c *httpClassifier) Predict(ctx context.Context, vector []float64) (scoring.RawResult, error) {
	const op = "classifier.http"

	body, err := sonic.Marshal(map[string]any{"vector": vector})
	if err != nil {
		return nil, errors.Wrap(errors.KindScoring, op, "encode request", err)
	}

	endpoint := c.set.baseURL + "/" + url.PathEscape(c.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.KindScoring, op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.set.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.KindScoring, op, "call model server", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(errors.KindScoring, op,
			fmt.Sprintf("model server returned %d for %s", resp.StatusCode, c.name))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.KindScoring, op, "read response", err)
	}

	var payload struct {
		Result any `json:"result"`
	}
	if err := sonic.Unmarshal(data, &payload); err != nil || payload.Result == nil {
		// plain responses carry the prediction at the top level
		var top any
		if err := sonic.Unmarshal(data, &top); err != nil {
			return nil, errors.Wrap(errors.KindScoring, op, "decode response", err)
		}
		return scoring.DecodeRaw(top), nil
	}
	return scoring.DecodeRaw(payload.Result), nil
}
