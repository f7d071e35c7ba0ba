package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/smartassist-rag/internal/core"
	"github.com/markdave123-py/smartassist-rag/internal/models"
	"github.com/markdave123-py/smartassist-rag/internal/services"
)

type nopDocs struct{}

func (nopDocs) Upload(context.Context, services.UploadRequest) (*models.IngestResult, error) {
	return nil, core.ErrUnsupportedType
}

func (nopDocs) List(context.Context) ([]models.DocumentSummary, error) {
	return []models.DocumentSummary{}, nil
}

type nopRooms struct{}

func (nopRooms) SearchRooms(context.Context) ([]models.Room, error) {
	return []models.Room{{ID: "1", Name: "LT1"}}, nil
}

type echoAnswerer struct{}

func (echoAnswerer) Answer(_ context.Context, msg string) (*models.AnswerResult, error) {
	return &models.AnswerResult{Type: models.AnswerTypeText, Answer: msg, Citations: []models.Citation{}}, nil
}

func TestRouter(t *testing.T) {
	srv := httptest.NewServer(NewRouter(nopDocs{}, services.NewSyncService(nil, nil, nil), echoAnswerer{}, nopRooms{}))
	defer srv.Close()

	cases := []struct {
		method, path, body string
		status             int
		contains           string
	}{
		{http.MethodGet, "/health", "", http.StatusOK, `"service":"rag"`},
		{http.MethodPost, "/rag/ingest/sync", "", http.StatusOK, `"reason":"external folder not configured"`},
		{http.MethodGet, "/rag/ingest/status", "", http.StatusOK, `"documents":[]`},
		{http.MethodGet, "/rag/rooms", "", http.StatusOK, `"name":"LT1"`},
		{http.MethodPost, "/rag/query", `{"message":"hi"}`, http.StatusOK, `"answer":"hi"`},
		{http.MethodGet, "/rag/query", "", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/nope", "", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, srv.URL+tc.path, strings.NewReader(tc.body))
			require.NoError(t, err)
			resp, err := srv.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.status, resp.StatusCode)
			if tc.contains != "" {
				var b strings.Builder
				_, _ = io.Copy(&b, resp.Body)
				assert.Contains(t, b.String(), tc.contains)
			}
		})
	}
}
