package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/roster/internal/config"
	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/store/memory"
)

// failingStore rejects every write and scan.
type failingStore struct{}

var errBackendDown = errors.New("connection refused")

func (failingStore) UpsertBatch(context.Context, []core.Document) error { return errBackendDown }
func (failingStore) Delete(context.Context, string) error              { return errBackendDown }
func (failingStore) Scan(context.Context, func(core.Document) error) error {
	return errBackendDown
}
func (failingStore) Ping(context.Context) error { return errBackendDown }

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{RequestTimeout: time.Minute},
		Upload:   config.UploadConfig{MaxFileSize: 1 << 20, MaxFiles: 3, MaxConcurrent: 2, MaxWait: 50 * time.Millisecond},
		Security: config.SecurityConfig{CORSOrigins: []string{"*"}},
	}
}

func newTestServer(t *testing.T, st core.Store) *Server {
	t.Helper()
	svc, err := core.NewService(st, core.Options{})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return NewServer(svc, testConfig())
}

type filePart struct {
	field, name, body string
}

func multipartRequest(t *testing.T, parts ...filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		fw, err := mw.CreateFormFile(p.field, p.name)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		fw.Write([]byte(p.body))
	}
	mw.WriteField("note", "not a file")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/students/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestRoot(t *testing.T) {
	s := newTestServer(t, memory.New())
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != rootMessage {
		t.Errorf("body = %q, want %q", rec.Body.String(), rootMessage)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name  string
		store core.Store
		want  int
	}{
		{"healthy", memory.New(), http.StatusOK},
		{"store down", failingStore{}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.store)
			rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want != http.StatusOK {
				return
			}
			var body HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != "ok" || body.Uploads.MaxConcurrent != 2 {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestUpload_Success(t *testing.T) {
	st := memory.New()
	s := newTestServer(t, st)

	req := multipartRequest(t,
		filePart{"file", "a.csv", "rollNumber,branch,section,academicYear\n7,CS,A,2024\n,CS,A,2024\n"},
		filePart{"extra", "b.tsv", " RollNumber\tBRANCH\tsection\tAcademicYear\n8\tEE\tB\t2023\n"},
	)
	rec := serve(s, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var body UploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Written != 2 {
		t.Errorf("written = %d, want 2", body.Written)
	}
	if body.Rejected != 1 || len(body.RejectedRows) != 1 {
		t.Errorf("rejected = %d (%d rows), want 1", body.Rejected, len(body.RejectedRows))
	}
	if body.IngestID == "" {
		t.Error("ingestId is empty")
	}
	if !strings.Contains(body.Message, "2 students") {
		t.Errorf("message = %q", body.Message)
	}
	for _, id := range []string{"cs-a-2024-7", "ee-b-2023-8"} {
		if _, ok := st.Get(id); !ok {
			t.Errorf("record %s not stored", id)
		}
	}
}

func TestUpload_Errors(t *testing.T) {
	header := "rollNumber,branch,section,academicYear\n"

	tests := []struct {
		name     string
		store    core.Store
		req      func(t *testing.T) *http.Request
		wantCode int
		wantErr  string
	}{
		{
			name:  "not multipart",
			store: memory.New(),
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/students/upload", strings.NewReader("x"))
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE004",
		},
		{
			name:     "no file parts",
			store:    memory.New(),
			req:      func(t *testing.T) *http.Request { return multipartRequest(t) },
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE004",
		},
		{
			name:  "missing header",
			store: memory.New(),
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, filePart{"file", "a.csv", "rollNumber,section,academicYear\n1,A,2024\n"})
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "VAL004",
		},
		{
			name:  "no valid rows",
			store: memory.New(),
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, filePart{"file", "a.csv", header + ",CS,A,2024\n"})
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "VAL007",
		},
		{
			name:  "unsupported type",
			store: memory.New(),
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, filePart{"file", "a.pdf", header})
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE006",
		},
		{
			name:  "too many files",
			store: memory.New(),
			req: func(t *testing.T) *http.Request {
				p := filePart{"file", "a.csv", header + "1,CS,A,2024\n"}
				return multipartRequest(t, p, p, p, p)
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE007",
		},
		{
			name:  "too large",
			store: memory.New(),
			req: func(t *testing.T) *http.Request {
				big := header + strings.Repeat("1,CS,A,2024\n", 200000)
				return multipartRequest(t, filePart{"file", "a.csv", big})
			},
			wantCode: http.StatusRequestEntityTooLarge,
			wantErr:  "FILE001",
		},
		{
			name:  "store down",
			store: failingStore{},
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, filePart{"file", "a.csv", header + "1,CS,A,2024\n"})
			},
			wantCode: http.StatusServiceUnavailable,
			wantErr:  "DB004",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.store)
			rec := serve(s, tt.req(t))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body = %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			body := decodeError(t, rec)
			if body.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", body.Code, tt.wantErr)
			}
			if strings.Contains(body.Message, errBackendDown.Error()) {
				t.Errorf("message leaks store detail: %q", body.Message)
			}
		})
	}
}

func TestAddListDelete(t *testing.T) {
	st := memory.New()
	s := newTestServer(t, st)

	body := `{"RollNumber": 12, "branch": "ME", "section": "C", "academicYear": "2022"}`
	req := httptest.NewRequest(http.MethodPost, "/api/students", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(s, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d, want %d; body = %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var created map[string]string
	json.NewDecoder(rec.Body).Decode(&created)
	if created["studentId"] != "me-c-2022-12" {
		t.Errorf("studentId = %q, want %q", created["studentId"], "me-c-2022-12")
	}

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/students", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var records []core.StudentRecord
	if err := json.NewDecoder(rec.Body).Decode(&records); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(records) != 1 || records[0].Name != "Student 12" {
		t.Errorf("records = %+v", records)
	}

	rec = serve(s, httptest.NewRequest(http.MethodDelete, "/api/students/me-c-2022-12", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if st.Len() != 0 {
		t.Errorf("store has %d records after delete", st.Len())
	}

	rec = serve(s, httptest.NewRequest(http.MethodDelete, "/api/students/never-existed", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete missing status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestDeleteStudent_EscapedIDs(t *testing.T) {
	tests := []struct {
		name string
		id   string
		path string
	}{
		{"slash in supplied id", "CS/IT 7", "/api/students/CS%2FIT%207"},
		{"slash in derived id", "cs/it-a-2024-7", "/api/students/cs%2Fit-a-2024-7"},
		{"percent sign", "100%", "/api/students/100%25"},
		{"space only", "CS IT 7", "/api/students/CS%20IT%207"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.New()
			st.Seed(tt.id, map[string]string{core.FieldStudentID: tt.id})
			st.Seed("other", map[string]string{core.FieldStudentID: "other"})
			s := newTestServer(t, st)

			rec := serve(s, httptest.NewRequest(http.MethodDelete, tt.path, nil))
			if rec.Code != http.StatusNoContent {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
			}
			if _, ok := st.Get(tt.id); ok {
				t.Errorf("%q still stored after delete", tt.id)
			}
			if st.Len() != 1 {
				t.Errorf("store has %d records, want 1", st.Len())
			}
		})
	}
}

func TestAddThenDelete_SlashInSuppliedID(t *testing.T) {
	st := memory.New()
	s := newTestServer(t, st)

	body := `{"studentId": "CS/IT 7", "rollNumber": "7", "branch": "CS/IT", "section": "A", "academicYear": "2024"}`
	rec := serve(s, httptest.NewRequest(http.MethodPost, "/api/students", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("add status = %d", rec.Code)
	}

	rec = serve(s, httptest.NewRequest(http.MethodDelete, "/api/students/"+url.PathEscape("CS/IT 7"), nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if st.Len() != 0 {
		t.Errorf("store has %d records after delete", st.Len())
	}
}

func TestStudentIDParam_InvalidEscape(t *testing.T) {
	r := httptest.NewRequest(http.MethodDelete, "/api/students/x", nil)
	r.URL.RawPath = "/api/students/%zz"
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("studentId", "%zz")
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	_, err := studentIDParam(r)
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if statusFor(err) != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", statusFor(err))
	}
}

func TestAddStudent_Invalid(t *testing.T) {
	s := newTestServer(t, memory.New())

	tests := []struct {
		name string
		body string
	}{
		{"missing fields", `{"rollNumber": "1"}`},
		{"not an object", `[1, 2]`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/students", strings.NewReader(tt.body))
			rec := serve(s, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if got := decodeError(t, rec).Code; got != "VAL003" {
				t.Errorf("code = %q, want VAL003", got)
			}
		})
	}
}

func TestListStudents_StoreDown(t *testing.T) {
	s := newTestServer(t, failingStore{})
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/students", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, memory.New())

	req := httptest.NewRequest(http.MethodOptions, "/api/students", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(s, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "*")
	}
}
