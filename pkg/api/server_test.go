package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/wavenotes/pkg/converter"
	"github.com/james-see/wavenotes/pkg/notes"
	"github.com/james-see/wavenotes/pkg/preview"
	"github.com/james-see/wavenotes/pkg/session"
)

// silentDecoder stands in for ffmpeg by writing three seconds of silence
type silentDecoder struct{}

func (silentDecoder) Decode(ctx context.Context, in, out string, sr int) (string, error) {
	return out, preview.WriteWAV(out, make([]int16, 3*sr), sr)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := New(Config{Session: session.Options{
		Root:         t.TempDir(),
		Decoder:      silentDecoder{},
		PreviewRate:  8000,
		PreviewDelay: time.Hour,
	}})
	t.Cleanup(s.Close)
	return s
}

func upload(t *testing.T, url, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := serve(s, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "healthy")
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, httptest.NewRequest(http.MethodOptions, "/api/v1/clean", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestInfoEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/settings/defaults", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got notes.Settings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, notes.DefaultSettings(), got)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/transcribers", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "basic-pitch")

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/formats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "midi -> wav")
}

func sampleMIDI(t *testing.T) []byte {
	t.Helper()
	data, err := converter.NewMIDIConverter().GenerateMIDI([]notes.NoteEvent{
		notes.New(0, 0.5, 60, 100),
		notes.New(0.5, 0.52, 64, 100), // too short, filtered
	})
	require.NoError(t, err)
	return data
}

func TestCleanMIDI(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, upload(t, "/api/v1/clean", "take1.mid", sampleMIDI(t), map[string]string{
		"settings": `{"velocity": 70}`,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "audio/midi", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "take1_clean.mid")

	got, err := converter.NewMIDIConverter().ParseMIDI(rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 70, got[0].Velocity)
}

func TestCleanJSONResponse(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, upload(t, "/api/v1/clean?format=json", "take1.mid", sampleMIDI(t), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var doc converter.NotesDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Len(t, doc.Notes, 1)
	assert.Equal(t, 120.0, doc.Tempo)
}

func TestCleanRejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"no file", httptest.NewRequest(http.MethodPost, "/api/v1/clean", nil)},
		{"unsupported file", upload(t, "/api/v1/clean", "x.txt", []byte("hello"), nil)},
		{"invalid settings", upload(t, "/api/v1/clean", "x.mid", sampleMIDI(t), map[string]string{"settings": `{"velocity": 500}`})},
		{"malformed settings", upload(t, "/api/v1/clean", "x.mid", sampleMIDI(t), map[string]string{"settings": `{`})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPreviewEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, upload(t, "/api/v1/preview?sample_rate=8000", "take1.mid", sampleMIDI(t), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	body := rec.Body.Bytes()
	require.Greater(t, len(body), 44)
	assert.Equal(t, "RIFF", string(body[:4]))
	assert.Equal(t, "WAVE", string(body[8:12]))
}

func TestNotesToMIDI(t *testing.T) {
	s := newTestServer(t)

	body := `{"tempo_bpm": 90, "notes": [{"start_sec": 0, "end_sec": 1, "midi_pitch": 62, "velocity": 80}], "settings": {"velocity": 100}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes/midi", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	m := converter.NewMIDIConverter()
	got, err := m.ParseMIDI(rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 100, got[0].Velocity)
	assert.InDelta(t, 90.0, m.ParsedTempo(), 0.01)
	assert.InDelta(t, 1.0, got[0].End, 0.002)
}

func waitForJob(t *testing.T, s *Server, id string) JobView {
	t.Helper()
	var view JobView
	require.Eventually(t, func() bool {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+id, nil))
		if rec.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
			return false
		}
		return view.Status != StatusProcessing
	}, 5*time.Second, 10*time.Millisecond)
	return view
}

func TestJobLifecycle(t *testing.T) {
	s := newTestServer(t)

	wav := []byte("RIFF\x00\x00\x00\x00WAVEfmt ")
	rec := serve(s, upload(t, "/api/v1/jobs", "song.wav", wav, nil))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var created JobView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	view := waitForJob(t, s, created.ID)
	require.Equal(t, StatusComplete, view.Status, view.Error)
	assert.Equal(t, 100, view.Progress)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+created.ID+"/notes", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var doc converter.NotesDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Len(t, doc.Notes, 4) // stub arpeggio

	req := httptest.NewRequest(http.MethodPut, "/api/v1/jobs/"+created.ID+"/settings", bytes.NewBufferString(`{"pitch_max": 65}`))
	rec = serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Len(t, doc.Notes, 2) // 60 and 64

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+created.ID+"/midi", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "song.mid")
	got, err := converter.NewMIDIConverter().ParseMIDI(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, got, 2)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+created.ID+"/preview", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "RIFF", rec.Body.String()[:4])

	rec = serve(s, httptest.NewRequest(http.MethodDelete, "/api/v1/jobs/"+created.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobRejectsUnsupportedUpload(t *testing.T) {
	s := newTestServer(t)

	rec := serve(s, upload(t, "/api/v1/jobs", "notes.txt", []byte("just some text"), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownJob(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/v1/jobs/nope", "/api/v1/jobs/nope/notes", "/api/v1/jobs/nope/midi"} {
		rec := serve(s, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}
