package devserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/maternity/internal/platform/auth"
	"github.com/ehr/maternity/internal/platform/blobstore"
)

type testServer struct {
	t     *testing.T
	e     *echo.Echo
	blobs *blobstore.MemoryStore
	token string
}

func newTestServer(t *testing.T) *testServer {
	blobs := blobstore.NewMemoryStore()
	return &testServer{
		t:     t,
		blobs: blobs,
		e:     New(Options{Blobs: blobs, Logger: zerolog.Nop()}),
	}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) create(path string, body map[string]interface{}) Document {
	s.t.Helper()
	rec := s.do(http.MethodPost, path, body)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var doc Document
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &doc))
	return doc
}

type listBody struct {
	Data    []Document `json:"data"`
	Total   int        `json:"total"`
	Page    int        `json:"page"`
	Size    int        `json:"size"`
	HasMore bool       `json:"hasMore"`
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) listBody {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out listBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *testServer) seedPregnancy() (patientID, pregnancyID string) {
	p := s.create("/patients", map[string]interface{}{"firstName": "Awa", "lastName": "Diallo"})
	preg := s.create("/pregnancies", map[string]interface{}{
		"patientId":           p.ID(),
		"lastMenstrualPeriod": "2026-03-01T00:00:00Z",
		"status":              "ongoing",
	})
	return p.ID(), preg.ID()
}

func TestCreate_AssignsIDAndCreatedAt(t *testing.T) {
	s := newTestServer(t)
	doc := s.create("/patients", map[string]interface{}{"firstName": "Awa", "lastName": "Diallo", "id": "client-id"})

	assert.NotEmpty(t, doc.ID())
	assert.NotEqual(t, "client-id", doc.ID(), "ids are assigned by the server")
	_, err := time.Parse(time.RFC3339Nano, doc.String("createdAt"))
	assert.NoError(t, err)

	rec := s.do(http.MethodGet, "/patients/"+doc.ID(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"firstName":"Awa"`)
}

func TestCreate_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		body   map[string]interface{}
		status int
		msg    string
	}{
		{"missing field", "/patients", map[string]interface{}{"firstName": "Awa"}, http.StatusBadRequest, "lastName is required"},
		{"missing parent", "/consultations", map[string]interface{}{"date": "2026-05-01T00:00:00Z"}, http.StatusBadRequest, "pregnancyId is required"},
		{"unknown parent", "/consultations", map[string]interface{}{"pregnancyId": "nope", "date": "2026-05-01T00:00:00Z"}, http.StatusUnprocessableEntity, "pregnancy does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.msg, body["message"])
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListByParent(t *testing.T) {
	s := newTestServer(t)
	_, pregnancyID := s.seedPregnancy()

	empty := decodeList(t, s.do(http.MethodGet, "/consultations/pregnancy/"+pregnancyID, nil))
	assert.Empty(t, empty.Data)
	assert.NotNil(t, empty.Data, "an empty listing is [] not null")

	rec := s.do(http.MethodGet, "/consultations/pregnancy/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, obs := range []string{"first visit", "second visit"} {
		s.create("/consultations", map[string]interface{}{"pregnancyId": pregnancyID, "date": "2026-05-01T00:00:00Z", "observation": obs})
	}
	list := decodeList(t, s.do(http.MethodGet, "/consultations/pregnancy/"+pregnancyID, nil))
	require.Len(t, list.Data, 2)
	assert.Equal(t, "first visit", list.Data[0].String("observation"))
	assert.Equal(t, 2, list.Total)
}

func TestList_PagingAndSort(t *testing.T) {
	s := newTestServer(t)
	for _, name := range []string{"Chloe", "Amina", "Binta"} {
		s.create("/patients", map[string]interface{}{"firstName": name, "lastName": "X"})
	}

	first := decodeList(t, s.do(http.MethodGet, "/patients?page=0&size=2", nil))
	assert.Len(t, first.Data, 2)
	assert.Equal(t, 3, first.Total)
	assert.True(t, first.HasMore)

	second := decodeList(t, s.do(http.MethodGet, "/patients?page=1&size=2", nil))
	require.Len(t, second.Data, 1)
	assert.False(t, second.HasMore)

	sorted := decodeList(t, s.do(http.MethodGet, "/patients?sortBy=firstName&sortDir=desc", nil))
	require.Len(t, sorted.Data, 3)
	assert.Equal(t, "Chloe", sorted.Data[0].String("firstName"))
	assert.Equal(t, "Amina", sorted.Data[2].String("firstName"))

	beyond := decodeList(t, s.do(http.MethodGet, "/patients?page=9&size=2", nil))
	assert.Empty(t, beyond.Data)
}

func TestSearchAndRecent(t *testing.T) {
	s := newTestServer(t)
	_, pregnancyID := s.seedPregnancy()
	_, otherPregnancy := s.seedPregnancy()

	s.create("/consultations", map[string]interface{}{"pregnancyId": pregnancyID, "date": "2026-05-01T00:00:00Z", "observation": "Oedema noted"})
	s.create("/consultations", map[string]interface{}{"pregnancyId": pregnancyID, "date": "2026-05-08T00:00:00Z", "observation": "routine"})
	s.create("/consultations", map[string]interface{}{"pregnancyId": otherPregnancy, "date": "2026-05-09T00:00:00Z", "observation": "oedema again"})

	all := decodeList(t, s.do(http.MethodGet, "/consultations/search?term=OEDEMA", nil))
	assert.Len(t, all.Data, 2)

	scoped := decodeList(t, s.do(http.MethodGet, "/consultations/search?term=oedema&parentId="+pregnancyID, nil))
	require.Len(t, scoped.Data, 1)
	assert.Equal(t, "Oedema noted", scoped.Data[0].String("observation"))

	rec := s.do(http.MethodGet, "/consultations/recent?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var recent []Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recent))
	require.Len(t, recent, 2)
	assert.Equal(t, "oedema again", recent[0].String("observation"), "newest first")
}

func TestUpdateAndDelete(t *testing.T) {
	s := newTestServer(t)
	_, pregnancyID := s.seedPregnancy()
	c := s.create("/consultations", map[string]interface{}{"pregnancyId": pregnancyID, "date": "2026-05-01T00:00:00Z"})

	rec := s.do(http.MethodPut, "/consultations/"+c.ID(), map[string]interface{}{"date": "2026-05-02T00:00:00Z", "observation": "updated"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, c.ID(), updated.ID())
	assert.Equal(t, pregnancyID, updated.String("pregnancyId"), "parent kept when omitted")
	assert.Equal(t, c.String("createdAt"), updated.String("createdAt"))
	assert.NotEmpty(t, updated.String("updatedAt"))

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPut, "/consultations/missing", map[string]interface{}{}).Code)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/consultations/"+c.ID(), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/consultations/"+c.ID(), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/consultations/"+c.ID(), nil).Code)
}

func TestUltrasound_MultipartImages(t *testing.T) {
	s := newTestServer(t)
	_, pregnancyID := s.seedPregnancy()
	c := s.create("/consultations", map[string]interface{}{"pregnancyId": pregnancyID, "date": "2026-05-01T00:00:00Z"})

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("data", `{"consultationId":"`+c.ID()+`","crownRumpLength":45}`))
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="images"; filename="scan.png"`)
	h.Set("Content-Type", "image/png")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte("pixels"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/ultrasounds", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID              string  `json:"id"`
		CrownRumpLength float64 `json:"crownRumpLength"`
		Images          []struct {
			ID    string `json:"id"`
			Path  string `json:"path"`
			Title string `json:"title"`
		} `json:"images"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 45.0, created.CrownRumpLength)
	require.Len(t, created.Images, 1)
	assert.Equal(t, "scan.png", created.Images[0].Title)
	assert.Equal(t, blobstore.URL(created.Images[0].ID), created.Images[0].Path)

	file := s.do(http.MethodGet, created.Images[0].Path, nil)
	require.Equal(t, http.StatusOK, file.Code)
	assert.Equal(t, "pixels", file.Body.String())

	// A JSON update without images keeps them.
	rec = s.do(http.MethodPut, "/ultrasounds/"+created.ID, map[string]interface{}{"crownRumpLength": 46})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), created.Images[0].ID)

	require.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/ultrasounds/"+created.ID, nil).Code)
	_, err = s.blobs.Stat(req.Context(), created.Images[0].ID)
	assert.ErrorIs(t, err, blobstore.ErrBlobNotFound, "images are removed with their exam")
}

func TestUltrasound_MultipartWithoutData(t *testing.T) {
	s := newTestServer(t)
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("other", "x"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/ultrasounds", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthentication(t *testing.T) {
	issuer := auth.NewIssuer(auth.IssuerConfig{
		SigningKey: []byte("test-key"),
		Users:      map[string]string{"midwife": "secret"},
	})
	s := &testServer{t: t, e: New(Options{Issuer: issuer, Logger: zerolog.Nop()})}

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/patients", nil).Code)

	rec := s.do(http.MethodPost, "/auth/login", map[string]string{"username": "midwife", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	var tokens auth.Tokens
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))

	s.token = tokens.Access
	list := decodeList(t, s.do(http.MethodGet, "/patients", nil))
	assert.Empty(t, list.Data)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/patients", nil)

	rec := s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "maternity_http_requests_total")
}
