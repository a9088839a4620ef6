package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/clearfreight/customs-audit/internal/checklist"
	"github.com/clearfreight/customs-audit/internal/config"
	"github.com/clearfreight/customs-audit/internal/engine"
	"github.com/clearfreight/customs-audit/internal/model"
	"github.com/clearfreight/customs-audit/pkg/anthropic"
	anthropicmocks "github.com/clearfreight/customs-audit/pkg/anthropic/mocks"
)

func serverTestConfig(outputDir string) *config.Config {
	return &config.Config{
		Output: config.OutputConfig{Directory: outputDir},
		Anthropic: config.AnthropicConfig{
			ClassifierModel: "m-classify",
			ExtractorModel:  "m-extract",
			ValidatorModel:  "m-validate",
			MaxInflight:     8,
			TimeoutSecs:     10,
		},
		Engine:  config.EngineConfig{MaxParallelJobs: 2, MaxParallelFiles: 4, AllocatorAttempts: 4},
		Retry:   config.RetryConfig{MaxAttempts: 1, InitialBackoffMs: 1, MaxBackoffMs: 2, Multiplier: 2},
		Circuit: config.CircuitConfig{FailureThreshold: 100, ResetTimeoutSecs: 1},
		Server:  config.ServerConfig{Port: 0, MaxUploadBytes: 8 << 20},
	}
}

func serverChecklistStore(t *testing.T) *checklist.Store {
	t.Helper()
	content := `{
		"version": "1.0.0", "region": "AU", "description": "fixture", "last_updated": "2026-01-01",
		"categories": {
			"header": {"name": "Header", "description": "", "checks": [{
				"id": "H1", "auditing_criteria": "c", "description": "d",
				"checking_logic": "l", "pass_conditions": "p",
				"compare_fields": {
					"source_doc": "entry_print", "source_field": "ownerName",
					"target_doc": "commercial_invoice", "target_field": "buyer_company_name"
				}
			}]},
			"valuation": {"name": "Valuation", "description": "", "checks": []}
		}
	}`
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "au_checklist.json"), []byte(content), 0o644))
	return checklist.NewStore(dir)
}

func newTestServer(t *testing.T, aiClient anthropic.Client) (http.Handler, *checklist.Store) {
	t.Helper()
	cfg := serverTestConfig(t.TempDir())
	store := serverChecklistStore(t)
	eng := engine.New(cfg, aiClient, store, nil)
	return newRouter(eng, store, cfg.Server), store
}

func multipartBody(t *testing.T, contentType string, filenames ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range filenames {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, name))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = io.WriteString(part, "%PDF-1.7 "+name)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestServer(t, anthropicmocks.NewMockClient(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUploadBatchGroupsWithoutProcessing(t *testing.T) {
	aiClient := anthropicmocks.NewMockClient(t)
	router, _ := newTestServer(t, aiClient)

	body, contentType := multipartBody(t, "application/pdf",
		"2219477116_AWB.pdf", "2219477116_ENT.pdf", "2555462195_INV.pdf")
	req := httptest.NewRequest("POST", "/api/upload-batch", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var summary model.UploadSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.TotalFiles)
	assert.Equal(t, 2, summary.TotalJobs)
	require.Len(t, summary.Jobs, 2)
	assert.Equal(t, "2219477116", summary.Jobs[0].JobID)

	// Partition-only: the pipeline never ran.
	aiClient.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestUploadBatchRejectsEmpty(t *testing.T) {
	router, _ := newTestServer(t, anthropicmocks.NewMockClient(t))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.Close())
	req := httptest.NewRequest("POST", "/api/upload-batch", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessBatchRejectsInvalidRegion(t *testing.T) {
	router, _ := newTestServer(t, anthropicmocks.NewMockClient(t))

	body, contentType := multipartBody(t, "application/pdf", "2219477116_AWB.pdf")
	req := httptest.NewRequest("POST", "/api/process-batch?region=US", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "region must be")
}

func TestProcessBatchRejectsNonPDF(t *testing.T) {
	router, _ := newTestServer(t, anthropicmocks.NewMockClient(t))

	body, contentType := multipartBody(t, "text/plain", "2219477116_AWB.txt")
	req := httptest.NewRequest("POST", "/api/process-batch?region=AU", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not a PDF")
}

func TestProcessBatchRunsPipeline(t *testing.T) {
	aiClient := anthropicmocks.NewMockClient(t)
	aiClient.On("CreateMessage", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			return &anthropic.MessageResponse{Content: []anthropic.ContentBlock{
				{Type: "text", Text: `{"document_type": "air_waybill"}`},
			}}, nil
		})
	router, _ := newTestServer(t, aiClient)

	body, contentType := multipartBody(t, "application/pdf", "2219477116_AWB.pdf")
	// The region parameter defaults to AU when omitted.
	req := httptest.NewRequest("POST", "/api/process-batch", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var manifest model.RunManifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &manifest))
	assert.Equal(t, model.RegionAU, manifest.Region)
	assert.Equal(t, 1, manifest.TotalJobs)
	require.Len(t, manifest.Jobs, 1)
	assert.Equal(t, "2219477116", manifest.Jobs[0].JobID)
	assert.Nil(t, manifest.Jobs[0].ValidationResults)
}

func TestChecklistGet(t *testing.T) {
	router, store := newTestServer(t, anthropicmocks.NewMockClient(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/checklist/AU", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success  bool            `json:"success"`
		Region   model.Region    `json:"region"`
		Content  json.RawMessage `json:"content"`
		FilePath string          `json:"file_path"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, model.RegionAU, resp.Region)
	assert.Equal(t, store.Path(model.RegionAU), resp.FilePath)
	assert.Contains(t, string(resp.Content), `"H1"`)
}

func TestChecklistGetUnknownRegion(t *testing.T) {
	router, _ := newTestServer(t, anthropicmocks.NewMockClient(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/checklist/EU", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChecklistPutRoundTrip(t *testing.T) {
	router, store := newTestServer(t, anthropicmocks.NewMockClient(t))

	raw, err := store.Raw(model.RegionAU)
	require.NoError(t, err)
	updated := strings.Replace(string(raw), `"1.0.0"`, `"1.1.0"`, 1)

	payload, err := json.Marshal(map[string]json.RawMessage{"content": json.RawMessage(updated)})
	require.NoError(t, err)

	req := httptest.NewRequest("PUT", "/api/checklist/AU", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	cl, err := store.Load(model.RegionAU)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", cl.Version)
}

func TestChecklistPutRegionMismatch(t *testing.T) {
	router, store := newTestServer(t, anthropicmocks.NewMockClient(t))

	raw, err := store.Raw(model.RegionAU)
	require.NoError(t, err)
	mismatched := strings.Replace(string(raw), `"region": "AU"`, `"region": "NZ"`, 1)

	payload, err := json.Marshal(map[string]json.RawMessage{"content": json.RawMessage(mismatched)})
	require.NoError(t, err)

	req := httptest.NewRequest("PUT", "/api/checklist/AU", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "region mismatch")
}
