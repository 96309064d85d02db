package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/agentx/internal/pim"
	"github.com/samcharles93/agentx/internal/profile"
	"github.com/samcharles93/agentx/internal/topology"
	"github.com/samcharles93/agentx/internal/trace"
)

func newTestEcho() (*echo.Echo, *TraceStore) {
	store := NewTraceStore(4)
	server := NewServer(store, pim.DefaultConfig(), nil)
	e := echo.New()
	server.Register(e)
	return e, store
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error ResponseError `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ResponseError {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body.Error
}

func TestProfiles(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho()
	rec := doJSON(t, e, http.MethodGet, "/v1/profiles", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var list ProfileList
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if list.Object != "list" || len(list.Data) != len(profile.All()) {
		t.Fatalf("unexpected profile list %+v", list)
	}
	if list.Data[0].Label != "8B" {
		t.Fatalf("expected catalog order, first is %q", list.Data[0].Label)
	}
}

func TestCreateGetContentDeleteLifecycle(t *testing.T) {
	t.Parallel()

	e, store := newTestEcho()
	createRec := doJSON(t, e, http.MethodPost, "/v1/traces", `{"model":"8b","context_len":128}`)
	if createRec.Code != http.StatusOK {
		t.Fatalf("create status: got %d body=%s", createRec.Code, createRec.Body.String())
	}

	var created TraceObject
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if !strings.HasPrefix(created.ID, "trace_") {
		t.Fatalf("unexpected id format: %q", created.ID)
	}
	if created.Object != "trace" || created.Summary.Model != "8B" {
		t.Fatalf("unexpected trace object %+v", created)
	}
	if created.Summary.Params.BatchSize != 1 || created.Summary.Params.MaxLen != profile.DefaultMaxLen {
		t.Fatalf("defaults not applied: %+v", created.Summary.Params)
	}
	if created.Summary.ElementBytes != pim.DefaultElementBytes {
		t.Fatalf("expected default element width, got %d", created.Summary.ElementBytes)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 stored trace, got %d", store.Len())
	}

	getRec := doJSON(t, e, http.MethodGet, "/v1/traces/"+created.ID, "")
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status: got %d body=%s", getRec.Code, getRec.Body.String())
	}
	var got TraceObject
	if err := json.Unmarshal(getRec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode get: %v", err)
	}
	if got.ID != created.ID || got.Summary.Digest != created.Summary.Digest {
		t.Fatalf("get returned a different trace: %+v", got)
	}

	contentRec := doJSON(t, e, http.MethodGet, "/v1/traces/"+created.ID+"/content", "")
	if contentRec.Code != http.StatusOK {
		t.Fatalf("content status: got %d", contentRec.Code)
	}
	if ct := contentRec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if contentRec.Header().Get("X-Trace-Sha256") != created.Summary.Digest {
		t.Fatal("digest header does not match the summary")
	}
	cmds, err := trace.Read(contentRec.Body)
	if err != nil {
		t.Fatalf("read content: %v", err)
	}
	if len(cmds) != created.Summary.Stats.Total {
		t.Fatalf("content has %d commands, summary says %d", len(cmds), created.Summary.Stats.Total)
	}
	if trace.Digest(cmds) != created.Summary.Digest {
		t.Fatal("content digest does not match the summary")
	}

	deleteRec := doJSON(t, e, http.MethodDelete, "/v1/traces/"+created.ID, "")
	if deleteRec.Code != http.StatusOK {
		t.Fatalf("delete status: got %d body=%s", deleteRec.Code, deleteRec.Body.String())
	}
	var deleted DeleteResponse
	if err := json.Unmarshal(deleteRec.Body.Bytes(), &deleted); err != nil {
		t.Fatalf("decode delete: %v", err)
	}
	if !deleted.Deleted || deleted.ID != created.ID {
		t.Fatalf("unexpected delete response %+v", deleted)
	}

	missingRec := doJSON(t, e, http.MethodGet, "/v1/traces/"+created.ID, "")
	if missingRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", missingRec.Code)
	}
	if apiErr := decodeError(t, missingRec); apiErr.Type != "not_found_error" {
		t.Fatalf("unexpected error type %q", apiErr.Type)
	}
}

func TestContentFirstLine(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho()
	createRec := doJSON(t, e, http.MethodPost, "/v1/traces", `{"model":"8B","context_len":128,"batch_size":1,"dtype_bytes":2}`)
	var created TraceObject
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	rec := doJSON(t, e, http.MethodGet, "/v1/traces/"+created.ID+"/content", "")
	sc := bufio.NewScanner(rec.Body)
	if !sc.Scan() {
		t.Fatal("empty trace content")
	}
	if sc.Text() != "PIM_MACAB 0x00000000" {
		t.Fatalf("unexpected first line %q", sc.Text())
	}
}

func TestCreateTraceErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		errType string
		param   string
	}{
		{"bad json", `{"model":`, "invalid_request_error", ""},
		{"unknown field", `{"model":"8B","context_len":128,"contxt":1}`, "invalid_request_error", ""},
		{"missing model", `{"context_len":128}`, "invalid_request_error", "model"},
		{"unknown model", `{"model":"13B","context_len":128}`, "invalid_request_error", ""},
		{"zero context", `{"model":"8B","context_len":0}`, "invalid_request_error", ""},
		{"zero batch", `{"model":"8B","context_len":128,"batch_size":0}`, "invalid_request_error", ""},
		{"context over max", `{"model":"8B","context_len":4096,"max_len":2048}`, "invalid_request_error", ""},
		{"wide element", `{"model":"8B","context_len":128,"dtype_bytes":64}`, "invalid_request_error", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e, store := newTestEcho()
			rec := doJSON(t, e, http.MethodPost, "/v1/traces", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
			}
			got := decodeError(t, rec)
			if got.Type != tc.errType || got.Param != tc.param {
				t.Fatalf("unexpected error %+v", got)
			}
			if store.Len() != 0 {
				t.Fatal("failed requests must not store a trace")
			}
		})
	}
}

func TestCreateTraceCapacityExceeded(t *testing.T) {
	t.Parallel()

	e, store := newTestEcho()
	rec := doJSON(t, e, http.MethodPost, "/v1/traces", `{"model":"70B","context_len":32768,"batch_size":1073741824}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rec.Code, rec.Body.String())
	}
	got := decodeError(t, rec)
	if got.Type != "capacity_exceeded" || got.Code != "capacity_exceeded" {
		t.Fatalf("unexpected error %+v", got)
	}
	if store.Len() != 0 {
		t.Fatal("failed requests must not store a trace")
	}
}

func TestMissingTraceRoutes(t *testing.T) {
	t.Parallel()

	e, _ := newTestEcho()
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/traces/trace_missing"},
		{http.MethodGet, "/v1/traces/trace_missing/content"},
		{http.MethodDelete, "/v1/traces/trace_missing"},
	} {
		rec := doJSON(t, e, tc.method, tc.path, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	capErr := &pim.CapacityError{Pass: profile.QProj, PassOffset: 128, FinalOffset: 256, Capacity: 64}
	tests := []struct {
		err     error
		status  int
		errType string
	}{
		{fmt.Errorf("generate: %w", capErr), http.StatusUnprocessableEntity, "capacity_exceeded"},
		{fmt.Errorf("%w: 13B", profile.ErrUnknownProfile), http.StatusBadRequest, "invalid_request_error"},
		{fmt.Errorf("%w: batch", profile.ErrInvalidParams), http.StatusBadRequest, "invalid_request_error"},
		{fmt.Errorf("%w: q_proj", pim.ErrMalformedShape), http.StatusBadRequest, "invalid_request_error"},
		{fmt.Errorf("%w: 3", topology.ErrInvalidElementWidth), http.StatusBadRequest, "invalid_request_error"},
		{newInvalidRequest("model", "model is required"), http.StatusBadRequest, "invalid_request_error"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "server_error"},
	}
	for _, tc := range tests {
		status, errType, _ := classify(tc.err)
		if status != tc.status || errType != tc.errType {
			t.Errorf("classify(%v) = %d %q, want %d %q", tc.err, status, errType, tc.status, tc.errType)
		}
	}
}

func TestTraceStoreEviction(t *testing.T) {
	t.Parallel()

	store := NewTraceStore(2)
	a := store.Put(pim.Summary{Model: "a"}, nil, time.Time{})
	b := store.Put(pim.Summary{Model: "b"}, nil, time.Time{})
	c := store.Put(pim.Summary{Model: "c"}, nil, time.Time{})
	if _, ok := store.Get(a.ID); ok {
		t.Fatal("oldest trace should have been evicted")
	}
	for _, rec := range []*traceRecord{b, c} {
		if _, ok := store.Get(rec.ID); !ok {
			t.Fatalf("trace %s should still be stored", rec.Summary.Model)
		}
	}
	if !store.Delete(b.ID) || store.Delete(b.ID) {
		t.Fatal("delete should succeed exactly once")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 trace left, got %d", store.Len())
	}
}
