package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/soundalike/adapters"
	"github.com/satriahrh/soundalike/domain"
	"github.com/satriahrh/soundalike/domain/entities"
	"github.com/satriahrh/soundalike/domain/repositories"
	"github.com/satriahrh/soundalike/internal/auth"
	"github.com/satriahrh/soundalike/internal/ingest"
)

type fakeGenerator struct {
	dir      string
	variants int
	err      error
	analysis entities.MusicCharacteristics
	lastPath string
}

func (f *fakeGenerator) Generate(ctx context.Context, sourcePath string) (*entities.GenerationResult, error) {
	f.lastPath = sourcePath
	if f.err != nil {
		return nil, f.err
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, domain.Wrap(err, domain.KindSourceNotFound, "source audio not found")
	}
	result := &entities.GenerationResult{Remote: true}
	for i := 0; i < f.variants; i++ {
		path := filepath.Join(f.dir, "generated_"+string(rune('a'+i))+".mp3")
		if err := os.WriteFile(path, []byte("out"), 0o644); err != nil {
			return nil, err
		}
		result.Tracks = append(result.Tracks, entities.GeneratedTrack{FilePath: path, Duration: "0:42"})
	}
	return result, nil
}

func (f *fakeGenerator) Analyze(ctx context.Context, sourcePath string) (entities.MusicCharacteristics, error) {
	f.lastPath = sourcePath
	return f.analysis, f.err
}

type fakeMeasurer struct{}

func (fakeMeasurer) Measure(path string) (string, string) { return "1:05", "[0.5,1]" }

type recordingPublisher struct {
	events []domain.Event
}

func (r *recordingPublisher) Publish(event domain.Event) { r.events = append(r.events, event) }

func (r *recordingPublisher) types() []domain.EventType {
	types := make([]domain.EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

type testServer struct {
	e         *echo.Echo
	repo      *adapters.MemoryTrackRepository
	store     *ingest.Store
	generator *fakeGenerator
	events    *recordingPublisher
}

// flakyCreateRepo fails every Create after the first okCreates calls
type flakyCreateRepo struct {
	*adapters.MemoryTrackRepository
	okCreates int
	creates   int
}

func (r *flakyCreateRepo) Create(ctx context.Context, track *entities.Track) error {
	r.creates++
	if r.creates > r.okCreates {
		return errors.New("write concern timeout")
	}
	return r.MemoryTrackRepository.Create(ctx, track)
}

func newTestServer(t *testing.T, remoteConfigured bool, requireAuth echo.MiddlewareFunc) *testServer {
	return newTestServerWithRepo(t, remoteConfigured, requireAuth, nil)
}

// newTestServerWithRepo serves tracks through wrap(repo) when wrap is set
func newTestServerWithRepo(t *testing.T, remoteConfigured bool, requireAuth echo.MiddlewareFunc,
	wrap func(*adapters.MemoryTrackRepository) repositories.TrackRepository) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store, err := ingest.NewStore(filepath.Join(t.TempDir(), "uploads"), 1024)
	require.NoError(t, err)

	ts := &testServer{
		e:         echo.New(),
		repo:      adapters.NewMemoryTrackRepository(),
		store:     store,
		generator: &fakeGenerator{dir: store.Dir, variants: 3},
		events:    &recordingPublisher{},
	}

	var tracks repositories.TrackRepository = ts.repo
	if wrap != nil {
		tracks = wrap(ts.repo)
	}

	h := NewHandler(HandlerConfig{
		Tracks:           tracks,
		Generator:        ts.generator,
		Store:            store,
		Measurer:         fakeMeasurer{},
		Events:           ts.events,
		RemoteConfigured: remoteConfigured,
	}, logger)
	InitRoutes(ts.e, h, nil, requireAuth, logger)
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) seedTrack(t *testing.T, name string, withFile bool) *entities.Track {
	t.Helper()
	track := entities.NewTrack(name, "seed-"+name, "0:10")
	if withFile {
		require.NoError(t, os.WriteFile(ts.store.Resolve(track.FilePath), []byte("ID3"), 0o644))
	}
	require.NoError(t, ts.repo.Create(context.Background(), track))
	return track
}

func uploadRequest(t *testing.T, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write(content)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tracks/upload", body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, true, nil)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestUploadAndList(t *testing.T) {
	ts := newTestServer(t, true, nil)

	rec := ts.do(uploadRequest(t, "song.mp3", "audio/mpeg", []byte("ID3 data")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var track entities.Track
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &track))
	assert.NotEmpty(t, track.ID)
	assert.Equal(t, "song.mp3", track.Name)
	assert.Equal(t, "1:05", track.Duration)
	assert.False(t, track.IsGenerated)
	require.NotNil(t, track.WaveformData)
	assert.Equal(t, ".mp3", filepath.Ext(track.FilePath))
	assert.FileExists(t, ts.store.Resolve(track.FilePath))

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/tracks", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var tracks []entities.Track
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tracks))
	require.Len(t, tracks, 1)
	assert.Equal(t, track.ID, tracks[0].ID)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/tracks/"+track.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []domain.EventType{domain.EventTrackCreated}, ts.events.types())
}

func TestUploadRejections(t *testing.T) {
	ts := newTestServer(t, true, nil)

	rec := ts.do(uploadRequest(t, "notes.txt", "text/plain", []byte("hello")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "MP3, WAV, and OGG")

	rec = ts.do(uploadRequest(t, "big.mp3", "audio/mpeg", bytes.Repeat([]byte("x"), 2048)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/tracks/upload", strings.NewReader("{}"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = ts.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", decodeError(t, rec).Message)

	entries, _ := os.ReadDir(ts.store.Dir)
	assert.Empty(t, entries)
}

func TestGenerate(t *testing.T) {
	ts := newTestServer(t, true, nil)
	source := ts.seedTrack(t, "song.mp3", true)

	rec := ts.do(jsonRequest(http.MethodPost, "/api/tracks/generate", `{"id":"`+source.ID+`"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created []entities.Track
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created, 3)
	for _, track := range created {
		assert.Equal(t, "AI Generated - song.mp3", track.Name)
		assert.True(t, track.IsGenerated)
		assert.Equal(t, "0:42", track.Duration)
		assert.Equal(t, filepath.Base(track.FilePath), track.FilePath)
		assert.FileExists(t, ts.store.Resolve(track.FilePath))
	}
	assert.Equal(t, ts.store.Resolve(source.FilePath), ts.generator.lastPath)

	all, _ := ts.repo.GetAll(context.Background())
	assert.Len(t, all, 4)

	assert.Equal(t, []domain.EventType{
		domain.EventGenerationStarted,
		domain.EventTrackCreated,
		domain.EventTrackCreated,
		domain.EventTrackCreated,
		domain.EventGenerationCompleted,
	}, ts.events.types())
}

func TestGenerateErrors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		ts := newTestServer(t, false, nil)
		source := ts.seedTrack(t, "song.mp3", true)

		rec := ts.do(jsonRequest(http.MethodPost, "/api/tracks/generate", `{"id":"`+source.ID+`"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Message, "not configured")
		assert.Empty(t, ts.generator.lastPath)
	})

	t.Run("missing id", func(t *testing.T) {
		ts := newTestServer(t, true, nil)
		rec := ts.do(jsonRequest(http.MethodPost, "/api/tracks/generate", `{}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown track", func(t *testing.T) {
		ts := newTestServer(t, true, nil)
		rec := ts.do(jsonRequest(http.MethodPost, "/api/tracks/generate", `{"id":"nope"}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Source track not found", decodeError(t, rec).Message)
	})

	t.Run("missing file", func(t *testing.T) {
		ts := newTestServer(t, true, nil)
		source := ts.seedTrack(t, "ghost.mp3", false)

		rec := ts.do(jsonRequest(http.MethodPost, "/api/tracks/generate", `{"id":"`+source.ID+`"}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Source audio file not found", decodeError(t, rec).Message)
	})

	t.Run("processing failure", func(t *testing.T) {
		ts := newTestServer(t, true, nil)
		source := ts.seedTrack(t, "song.mp3", true)
		ts.generator.err = domain.Wrap(errors.New("ffmpeg: exit status 1"), domain.KindProcessingFailure, "audio processing failed")

		rec := ts.do(jsonRequest(http.MethodPost, "/api/tracks/generate", `{"id":"`+source.ID+`"}`))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		resp := decodeError(t, rec)
		assert.NotContains(t, resp.Message, "ffmpeg")
		assert.Contains(t, resp.Message, "Failed to generate music")

		types := ts.events.types()
		assert.Equal(t, domain.EventGenerationFailed, types[len(types)-1])
	})
}

func TestGenerateStoreFailureRollsBack(t *testing.T) {
	var repo *flakyCreateRepo
	ts := newTestServerWithRepo(t, true, nil, func(m *adapters.MemoryTrackRepository) repositories.TrackRepository {
		// seeding bypasses the wrapper; the second generated track fails
		repo = &flakyCreateRepo{MemoryTrackRepository: m, okCreates: 1}
		return repo
	})
	source := ts.seedTrack(t, "song.mp3", true)

	rec := ts.do(jsonRequest(http.MethodPost, "/api/tracks/generate", `{"id":"`+source.ID+`"}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 2, repo.creates)

	all, err := ts.repo.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, source.ID, all[0].ID)

	entries, err := os.ReadDir(ts.store.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, source.FilePath, entries[0].Name())

	assert.Equal(t, []domain.EventType{
		domain.EventGenerationStarted,
		domain.EventGenerationFailed,
	}, ts.events.types())
}

func TestAnalyze(t *testing.T) {
	ts := newTestServer(t, true, nil)
	source := ts.seedTrack(t, "song.mp3", true)
	ts.generator.analysis = entities.MusicCharacteristics{"mood": "calm"}

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/api/tracks/"+source.ID+"/analyze", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, source.ID, resp.TrackID)
	assert.Equal(t, "calm", resp.Characteristics.Mood())

	ts.generator.err = domain.Wrap(errors.New("503"), domain.KindRemoteUnavailable, "remote service unavailable")
	rec = ts.do(httptest.NewRequest(http.MethodPost, "/api/tracks/"+source.ID+"/analyze", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestDelete(t *testing.T) {
	ts := newTestServer(t, true, nil)
	track := ts.seedTrack(t, "song.mp3", true)

	rec := ts.do(httptest.NewRequest(http.MethodDelete, "/api/tracks/"+track.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoFileExists(t, ts.store.Resolve(track.FilePath))

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/api/tracks/"+track.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodDelete, "/api/tracks/"+track.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeUploadContentType(t *testing.T) {
	ts := newTestServer(t, true, nil)
	for _, name := range []string{"a.mp3", "b.wav", "c.ogg"} {
		require.NoError(t, os.WriteFile(ts.store.Resolve(name), []byte("data"), 0o644))
	}

	tests := map[string]string{
		"a.mp3": "audio/mpeg",
		"b.wav": "audio/wav",
		"c.ogg": "audio/ogg",
	}
	for name, want := range tests {
		rec := ts.do(httptest.NewRequest(http.MethodGet, "/uploads/"+name, nil))
		assert.Equal(t, http.StatusOK, rec.Code, name)
		assert.Equal(t, want, rec.Header().Get(echo.HeaderContentType), name)
		assert.Equal(t, "data", rec.Body.String())
	}

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/uploads/missing.mp3", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMutatingRoutesRequireToken(t *testing.T) {
	issuer, err := auth.NewIssuer("secret", time.Hour)
	require.NoError(t, err)
	ts := newTestServer(t, true, auth.Middleware(issuer, zaptest.NewLogger(t)))
	source := ts.seedTrack(t, "song.mp3", true)

	// reads stay public
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/api/tracks", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(jsonRequest(http.MethodPost, "/api/tracks/generate", `{"id":"`+source.ID+`"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, _, err := issuer.GenerateToken("tester", auth.RoleClient)
	require.NoError(t, err)
	req := jsonRequest(http.MethodPost, "/api/tracks/generate", `{"id":"`+source.ID+`"}`)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec = ts.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotConfigured, http.StatusBadRequest},
		{domain.ErrTrackNotFound, http.StatusNotFound},
		{domain.ErrSourceNotFound, http.StatusNotFound},
		{domain.ErrUploadTooLarge, http.StatusRequestEntityTooLarge},
		{domain.ErrInvalidUpload, http.StatusBadRequest},
		{domain.ErrAnalysisParse, http.StatusBadGateway},
		{domain.ErrProcessingFailed, http.StatusInternalServerError},
		{errors.New("surprise"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		got, body := errorStatus(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
		assert.NotEmpty(t, body.Message)
	}
}
