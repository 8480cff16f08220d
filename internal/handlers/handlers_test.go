package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"framefolio/internal/database"
	"framefolio/internal/ingest"
	"framefolio/internal/media"
	"framefolio/internal/startup"
)

type testServer struct {
	h       *Handlers
	tracker *ingest.Tracker
	db      *database.Database
	folder  *database.Folder
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	db, err := database.New(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	library := filepath.Join(dir, "library")
	if err := os.Mkdir(library, 0o755); err != nil {
		t.Fatal(err)
	}
	folder, err := db.AddFolder(context.Background(), library)
	if err != nil {
		t.Fatal(err)
	}

	tracker, err := ingest.NewTracker(ingest.Config{
		Store:       db,
		Codec:       media.Codec{},
		Transformer: media.NewTransformer(),
		StagingDir:  filepath.Join(dir, "staging"),
		Workers:     2,
	})
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = tracker.Shutdown(ctx)
	})

	h := New(tracker, db, &startup.Config{MaxUploadMB: 8})
	return &testServer{h: h, tracker: tracker, db: db, folder: folder}
}

func pngBytes(t *testing.T, w, h int, seed uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: seed, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type formFile struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, folderID string, files ...formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if folderID != "" {
		if err := mw.WriteField("folder_id", folderID); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(f.data)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, path string, v interface{}, vars map[string]string) *http.Request {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

func (s *testServer) upload(t *testing.T, files ...formFile) string {
	t.Helper()
	rec := httptest.NewRecorder()
	s.h.Upload(rec, multipartRequest(t, strconv.FormatInt(s.folder.ID, 10), files...))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Upload status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp UploadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if _, err := s.tracker.Wait(ctx, resp.JobID); err != nil {
		t.Fatal(err)
	}
	return resp.JobID
}

func (s *testServer) status(t *testing.T, id string) (int, ingest.JobSnapshot) {
	t.Helper()
	req := mux.SetURLVars(httptest.NewRequest("GET", "/api/upload/"+id, nil), map[string]string{"id": id})
	rec := httptest.NewRecorder()
	s.h.GetUploadStatus(rec, req)
	var snap ingest.JobSnapshot
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
			t.Fatal(err)
		}
	}
	return rec.Code, snap
}

func TestUploadAndStatus(t *testing.T) {
	s := newTestServer(t)
	id := s.upload(t, formFile{"beach.png", pngBytes(t, 160, 90, 1)})

	code, snap := s.status(t, id)
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if snap.Status != ingest.JobComplete || snap.Progress != 100 {
		t.Errorf("job = %s %d%%, want complete 100%%", snap.Status, snap.Progress)
	}
	if len(snap.Files) != 1 || snap.Files[0].Status != ingest.StatusSuccess {
		t.Errorf("files = %+v", snap.Files)
	}
}

func TestUpload_BadRequests(t *testing.T) {
	s := newTestServer(t)
	png := pngBytes(t, 16, 9, 1)

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
	}{
		{"missing folder_id", multipartRequest(t, "", formFile{"a.png", png}), http.StatusBadRequest},
		{"non-numeric folder_id", multipartRequest(t, "abc", formFile{"a.png", png}), http.StatusBadRequest},
		{"no files", multipartRequest(t, "1"), http.StatusBadRequest},
		{"unknown folder", multipartRequest(t, "9999", formFile{"a.png", png}), http.StatusNotFound},
		{"not multipart", httptest.NewRequest("POST", "/api/upload", bytes.NewReader([]byte("{}"))), http.StatusBadRequest},
		{"too large", multipartRequest(t, "1", formFile{"big.png", make([]byte, 9<<20)}), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.h.Upload(rec, tt.req)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestGetUploadStatus_Unknown(t *testing.T) {
	s := newTestServer(t)
	if code, _ := s.status(t, "nope"); code != http.StatusNotFound {
		t.Errorf("status code = %d, want 404", code)
	}
}

func TestResolveDuplicateEndpoint(t *testing.T) {
	s := newTestServer(t)
	data := pngBytes(t, 160, 90, 2)
	s.upload(t, formFile{"a.png", data})
	id := s.upload(t, formFile{"b.png", data})

	_, snap := s.status(t, id)
	if snap.Status != ingest.JobWaitingForUserAction {
		t.Fatalf("job status = %s, want waiting_for_user_action", snap.Status)
	}

	tests := []struct {
		name     string
		body     interface{}
		wantCode int
	}{
		{"missing action", DuplicateRequest{Filename: "b.png"}, http.StatusBadRequest},
		{"unknown action", DuplicateRequest{Filename: "b.png", Action: "merge"}, http.StatusBadRequest},
		{"unknown file", DuplicateRequest{Filename: "c.png", Action: "skip"}, http.StatusNotFound},
		{"unknown field", map[string]string{"filename": "b.png", "action": "skip", "extra": "x"}, http.StatusBadRequest},
		{"skip", DuplicateRequest{Filename: "b.png", Action: "skip"}, http.StatusOK},
		{"already resolved", DuplicateRequest{Filename: "b.png", Action: "skip"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.h.ResolveDuplicate(rec, jsonRequest(t, "POST", "/api/upload/"+id+"/duplicate", tt.body, map[string]string{"id": id}))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK {
				var resp ResolveResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatal(err)
				}
				if resp.File.Status != ingest.StatusSkipped || resp.Job.Status != ingest.JobComplete {
					t.Errorf("response = %+v", resp)
				}
			}
		})
	}
}

func TestResolvePositioningEndpoint(t *testing.T) {
	s := newTestServer(t)
	id := s.upload(t, formFile{"pano.png", pngBytes(t, 200, 100, 3)})
	vars := map[string]string{"id": id}

	bad := httptest.NewRecorder()
	s.h.ResolvePositioning(bad, jsonRequest(t, "POST", "/", map[string]interface{}{
		"filename": "pano.png",
		"crop":     map[string]float64{"x": 0.5, "y": 0, "w": 0.9, "h": 1},
	}, vars))
	if bad.Code != http.StatusBadRequest {
		t.Errorf("invalid crop status = %d, want 400", bad.Code)
	}

	rec := httptest.NewRecorder()
	s.h.ResolvePositioning(rec, jsonRequest(t, "POST", "/", map[string]interface{}{
		"filename": "pano.png",
		"crop":     map[string]float64{"x": 0, "y": 0, "w": 1, "h": 0.5},
	}, vars))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp ResolveResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.File.Status != ingest.StatusSuccess {
		t.Errorf("file status = %s (%s)", resp.File.Status, resp.File.Error)
	}
	if resp.Job.Status != ingest.JobComplete {
		t.Errorf("job status = %s", resp.Job.Status)
	}
}

func TestListJobs(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.h.ListJobs(rec, httptest.NewRequest("GET", "/api/jobs", nil))
	if body := bytes.TrimSpace(rec.Body.Bytes()); string(body) != "[]" {
		t.Errorf("empty list body = %s, want []", body)
	}

	s.upload(t, formFile{"a.png", pngBytes(t, 16, 9, 4)})
	s.upload(t, formFile{"b.png", pngBytes(t, 16, 9, 5)})

	rec = httptest.NewRecorder()
	s.h.ListJobs(rec, httptest.NewRequest("GET", "/api/jobs", nil))
	var jobs []ingest.JobSummary
	if err := json.NewDecoder(rec.Body).Decode(&jobs); err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Errorf("jobs = %d, want 2", len(jobs))
	}
}

func TestFolders(t *testing.T) {
	s := newTestServer(t)
	newDir := t.TempDir()

	tests := []struct {
		name     string
		body     interface{}
		wantCode int
	}{
		{"relative path", FolderRequest{Path: "photos"}, http.StatusBadRequest},
		{"missing directory", FolderRequest{Path: filepath.Join(newDir, "nope")}, http.StatusBadRequest},
		{"new folder", FolderRequest{Path: newDir}, http.StatusCreated},
		{"same folder again", FolderRequest{Path: newDir}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.h.AddFolder(rec, jsonRequest(t, "POST", "/api/folders", tt.body, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}

	rec := httptest.NewRecorder()
	s.h.ListFolders(rec, httptest.NewRequest("GET", "/api/folders", nil))
	var folders []database.Folder
	if err := json.NewDecoder(rec.Body).Decode(&folders); err != nil {
		t.Fatal(err)
	}
	if len(folders) != 2 {
		t.Errorf("folders = %+v, want the test library and the new folder", folders)
	}
}

func TestWriteIngestError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ingest.ErrNotFound, http.StatusNotFound},
		{ingest.ErrValidation, http.StatusBadRequest},
		{ingest.ErrIO, http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeIngestError(rec, tt.err)
		if rec.Code != tt.want {
			t.Errorf("writeIngestError(%v) = %d, want %d", tt.err, rec.Code, tt.want)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
			t.Errorf("error body = %v, %v", body, err)
		}
	}
}
