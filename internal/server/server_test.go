package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkgupta29/assignment-story-creation-app/internal/auth"
	"github.com/rkgupta29/assignment-story-creation-app/internal/config"
	"github.com/rkgupta29/assignment-story-creation-app/internal/docstore"
	"github.com/rkgupta29/assignment-story-creation-app/internal/objectstore"
	"github.com/rkgupta29/assignment-story-creation-app/internal/transcript"
	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

type testEnv struct {
	server *Server
	docs   docstore.Store
	media  *objectstore.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, transcript.NewMockTranscriber())
}

func newTestEnvWith(t *testing.T, transcriber transcript.Transcriber) *testEnv {
	t.Helper()

	docs := docstore.NewMemoryStore()
	media := objectstore.NewMemoryObjectStore()
	authService := auth.NewService(
		docs,
		&config.PasswordConfig{BcryptCost: 10},
		auth.NewJWTService(&config.JWTConfig{Secret: "test-secret", ExpirationHours: 1}),
	)

	srv := NewWithDeps(0, Deps{
		Docs:        docs,
		Media:       media,
		MediaCfg:    &config.MediaConfig{Bucket: "test-bucket"},
		Auth:        authService,
		Transcriber: transcriber,
		Exporter:    nil,
		Limiter:     nil,
	})
	t.Cleanup(func() {
		srv.sessionStore.Close()
		srv.storyStore.Close()
	})

	return &testEnv{server: srv, docs: docs, media: media}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

// register creates an account through the API and returns the session.
func (e *testEnv) register(t *testing.T, email, name string) types.SessionResponse {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"hunter2pass","display_name":%q}`, email, name)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	w := e.do(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data types.SessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func authed(req *http.Request, session types.SessionResponse) *http.Request {
	req.Header.Set("Authorization", "Bearer "+session.Token)
	return req
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, into))
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestRegisterLoginAndMe(t *testing.T) {
	env := newTestEnv(t)

	session := env.register(t, "ada@example.com", "Ada")
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "ada@example.com", session.Credential.Email)

	t.Run("duplicate email conflicts", func(t *testing.T) {
		body := `{"email":"ada@example.com","password":"hunter2pass","display_name":"Ada"}`
		w := env.do(t, httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body)))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("login with wrong password is unauthorized", func(t *testing.T) {
		body := `{"email":"ada@example.com","password":"wrong-password"}`
		w := env.do(t, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("login returns a fresh session", func(t *testing.T) {
		body := `{"email":"ada@example.com","password":"hunter2pass"}`
		w := env.do(t, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, w.Code)

		var fresh types.SessionResponse
		decodeData(t, w, &fresh)
		assert.Equal(t, session.Credential.ID, fresh.Credential.ID)
	})

	t.Run("me returns the credential", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodGet, "/auth/me", nil), session)
		w := env.do(t, req)
		require.Equal(t, http.StatusOK, w.Code)

		var cred types.Credential
		decodeData(t, w, &cred)
		assert.Equal(t, session.Credential.ID, cred.ID)
	})

	t.Run("me without token is unauthorized", func(t *testing.T) {
		w := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestSessionEndpointFollowsAuthFeed(t *testing.T) {
	env := newTestEnv(t)

	sessionState := func() (out struct {
		IsAuthenticated bool              `json:"is_authenticated"`
		Credential      *types.Credential `json:"credential"`
		Profile         *types.Profile    `json:"profile"`
	}) {
		w := env.do(t, httptest.NewRequest(http.MethodGet, "/auth/session", nil))
		require.Equal(t, http.StatusOK, w.Code)
		decodeData(t, w, &out)
		return out
	}

	st := sessionState()
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.Credential)

	session := env.register(t, "sess@example.com", "Sasha")

	st = sessionState()
	assert.True(t, st.IsAuthenticated, "register broadcasts the signed-in state")
	require.NotNil(t, st.Credential)
	assert.Equal(t, session.Credential.ID, st.Credential.ID)
	require.NotNil(t, st.Profile, "a profile is resolved or synthesized")
	assert.Equal(t, session.Credential.ID, st.Profile.ID)
	assert.Equal(t, "Sasha", st.Profile.Candidate.FullName)

	w := env.do(t, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	require.Equal(t, http.StatusOK, w.Code)

	st = sessionState()
	assert.False(t, st.IsAuthenticated, "logout clears the session")
	assert.Nil(t, st.Profile)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "grace@example.com", "Grace")

	w := env.do(t, httptest.NewRequest(http.MethodPost, "/auth/reset-password",
		strings.NewReader(`{"email":"grace@example.com"}`)))
	require.Equal(t, http.StatusOK, w.Code)

	var issued struct {
		ResetCode string `json:"reset_code"`
	}
	decodeData(t, w, &issued)
	require.NotEmpty(t, issued.ResetCode)

	body := fmt.Sprintf(`{"code":%q,"new_password":"brand-new-pass"}`, issued.ResetCode)
	w = env.do(t, httptest.NewRequest(http.MethodPost, "/auth/confirm-reset", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)

	// Old password no longer works, new one does.
	w = env.do(t, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"grace@example.com","password":"hunter2pass"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"grace@example.com","password":"brand-new-pass"}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	t.Run("reset code is single use", func(t *testing.T) {
		w := env.do(t, httptest.NewRequest(http.MethodPost, "/auth/confirm-reset", strings.NewReader(body)))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestStoryLifecycle(t *testing.T) {
	env := newTestEnv(t)
	session := env.register(t, "author@example.com", "Avery Author")

	t.Run("create requires auth", func(t *testing.T) {
		body := `{"title":"My Story","content":"<p>hi</p>","type":"text"}`
		w := env.do(t, httptest.NewRequest(http.MethodPost, "/stories", strings.NewReader(body)))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	var created types.Story
	t.Run("create text story", func(t *testing.T) {
		body := `{"title":"My First Story","content":"<p>Hello world</p>","type":"text"}`
		req := authed(httptest.NewRequest(http.MethodPost, "/stories", strings.NewReader(body)), session)
		w := env.do(t, req)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		decodeData(t, w, &created)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "Avery Author", created.AuthorName)
		assert.Regexp(t, `^my-first-story-\d+$`, created.Slug)
	})

	t.Run("create rejects missing title", func(t *testing.T) {
		body := `{"title":"","content":"<p>x</p>","type":"text"}`
		req := authed(httptest.NewRequest(http.MethodPost, "/stories", strings.NewReader(body)), session)
		w := env.do(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list returns the story", func(t *testing.T) {
		w := env.do(t, httptest.NewRequest(http.MethodGet, "/stories", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var stories []types.Story
		decodeData(t, w, &stories)
		require.Len(t, stories, 1)
		assert.Equal(t, created.ID, stories[0].ID)
	})

	t.Run("get by slug", func(t *testing.T) {
		w := env.do(t, httptest.NewRequest(http.MethodGet, "/stories/"+created.Slug, nil))
		require.Equal(t, http.StatusOK, w.Code)

		var st types.Story
		decodeData(t, w, &st)
		assert.Equal(t, created.ID, st.ID)
	})

	t.Run("get unknown slug is 404", func(t *testing.T) {
		w := env.do(t, httptest.NewRequest(http.MethodGet, "/stories/not-a-story-1", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("update own story", func(t *testing.T) {
		body := `{"title":"Retitled"}`
		req := authed(httptest.NewRequest(http.MethodPut, "/stories/"+created.ID, strings.NewReader(body)), session)
		w := env.do(t, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var st types.Story
		decodeData(t, w, &st)
		assert.Equal(t, "Retitled", st.Title)
		assert.Equal(t, created.Slug, st.Slug, "slug never changes after creation")
	})

	t.Run("another user cannot update or delete", func(t *testing.T) {
		other := env.register(t, "intruder@example.com", "Mallory")

		req := authed(httptest.NewRequest(http.MethodPut, "/stories/"+created.ID,
			strings.NewReader(`{"title":"Hijacked"}`)), other)
		assert.Equal(t, http.StatusForbidden, env.do(t, req).Code)

		req = authed(httptest.NewRequest(http.MethodDelete, "/stories/"+created.ID, nil), other)
		assert.Equal(t, http.StatusForbidden, env.do(t, req).Code)
	})

	t.Run("delete own story", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodDelete, "/stories/"+created.ID, nil), session)
		require.Equal(t, http.StatusOK, env.do(t, req).Code)

		w := env.do(t, httptest.NewRequest(http.MethodGet, "/stories", nil))
		var stories []types.Story
		decodeData(t, w, &stories)
		assert.Empty(t, stories)
	})

	t.Run("delete missing story is 404", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodDelete, "/stories/nope", nil), session)
		assert.Equal(t, http.StatusNotFound, env.do(t, req).Code)
	})
}

func audioMIMEForName(name string) string {
	if strings.HasSuffix(name, ".mp3") {
		return "audio/mpeg"
	}
	return "audio/webm"
}

func multipartStory(t *testing.T, fields map[string]string, audioName string, audio []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if audioName != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, audioName))
		header.Set("Content-Type", audioMIMEForName(audioName))
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCreateVoiceStoryMultipart(t *testing.T) {
	env := newTestEnv(t)
	session := env.register(t, "voice@example.com", "Vera")

	body, contentType := multipartStory(t, map[string]string{
		"title":   "Recorded Thoughts",
		"content": "<p>voice note</p>",
		"type":    "voice",
	}, "note.webm", []byte("fake-webm-bytes"))

	req := authed(httptest.NewRequest(http.MethodPost, "/stories", body), session)
	req.Header.Set("Content-Type", contentType)
	w := env.do(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var st types.Story
	decodeData(t, w, &st)
	assert.Equal(t, types.StoryVoice, st.Type)
	assert.NotEmpty(t, st.AudioURL, "audio should be uploaded to the media store")
	assert.NotEmpty(t, st.AudioTranscript, "missing transcript should be filled by the transcriber")
	assert.Equal(t, 1, env.media.UploadCalls())
}

// recordingTranscriber counts Polish calls and marks its output so tests can
// see the polished text end to end.
type recordingTranscriber struct {
	*transcript.MockTranscriber
	polishCalls int
}

func (r *recordingTranscriber) Polish(_ context.Context, raw string) (string, error) {
	r.polishCalls++
	return "Polished: " + strings.TrimSpace(raw), nil
}

func TestCreateVoiceStoryPolishesTranscript(t *testing.T) {
	rec := &recordingTranscriber{MockTranscriber: transcript.NewMockTranscriber()}
	env := newTestEnvWith(t, rec)
	session := env.register(t, "polish@example.com", "Pat")

	body, contentType := multipartStory(t, map[string]string{
		"title":   "Cleaned Up",
		"content": "<p>voice note</p>",
		"type":    "voice",
	}, "note.webm", []byte("fake-webm-bytes"))

	req := authed(httptest.NewRequest(http.MethodPost, "/stories", body), session)
	req.Header.Set("Content-Type", contentType)
	w := env.do(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var st types.Story
	decodeData(t, w, &st)
	assert.Equal(t, 1, rec.polishCalls, "raw transcript is polished before persisting")
	assert.True(t, strings.HasPrefix(st.AudioTranscript, "Polished: "), st.AudioTranscript)
}

func TestCreateVoiceStoryKeepsProvidedTranscript(t *testing.T) {
	env := newTestEnv(t)
	session := env.register(t, "voice2@example.com", "Vern")

	body, contentType := multipartStory(t, map[string]string{
		"title":            "Dictated",
		"content":          "<p>dictated</p>",
		"type":             "voice",
		"audio_transcript": "I wrote this down already.",
	}, "note.mp3", []byte("mp3-bytes"))

	req := authed(httptest.NewRequest(http.MethodPost, "/stories", body), session)
	req.Header.Set("Content-Type", contentType)
	w := env.do(t, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var st types.Story
	decodeData(t, w, &st)
	assert.Equal(t, "I wrote this down already.", st.AudioTranscript)
}

func TestProfileEndpoints(t *testing.T) {
	env := newTestEnv(t)
	session := env.register(t, "cand@example.com", "Casey")
	id := session.Credential.ID

	t.Run("profile of another candidate is forbidden", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodGet, "/candidates/someone-else/profile", nil), session)
		assert.Equal(t, http.StatusForbidden, env.do(t, req).Code)
	})

	t.Run("missing profile is 404", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodGet, "/candidates/"+id+"/profile", nil), session)
		assert.Equal(t, http.StatusNotFound, env.do(t, req).Code)
	})

	t.Run("completion of missing profile is zero", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodGet, "/candidates/"+id+"/profile/completion", nil), session)
		w := env.do(t, req)
		require.Equal(t, http.StatusOK, w.Code)

		var status types.ProfileCompletionStatus
		decodeData(t, w, &status)
		assert.Equal(t, 0, status.Percentage)
		assert.False(t, status.Overall)
	})

	t.Run("basic info step sets ten percent", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodPost, "/candidates/"+id+"/profile/steps/basic_info",
			strings.NewReader(`{"full_name":"Casey Jones"}`)), session)
		w := env.do(t, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Profile    types.CandidateProfile        `json:"profile"`
			Completion types.ProfileCompletionStatus `json:"completion"`
			LastStep   bool                          `json:"last_step"`
		}
		decodeData(t, w, &resp)
		assert.Equal(t, "Casey Jones", resp.Profile.FullName)
		assert.Equal(t, 10, resp.Completion.Percentage)
		assert.False(t, resp.LastStep)
	})

	t.Run("empty body is a valid skip", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodPost, "/candidates/"+id+"/profile/steps/skills", nil), session)
		w := env.do(t, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Completion types.ProfileCompletionStatus `json:"completion"`
			LastStep   bool                          `json:"last_step"`
		}
		decodeData(t, w, &resp)
		assert.False(t, resp.Completion.Skills)
		assert.True(t, resp.LastStep)
	})

	t.Run("unknown step is rejected", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodPost, "/candidates/"+id+"/profile/steps/astrology",
			strings.NewReader(`{}`)), session)
		assert.Equal(t, http.StatusBadRequest, env.do(t, req).Code)
	})

	t.Run("put recomputes completion server side", func(t *testing.T) {
		// The client claims 100 percent; the server must not believe it.
		req := authed(httptest.NewRequest(http.MethodPut, "/candidates/"+id+"/profile",
			strings.NewReader(`{"full_name":"Casey Jones","profile_completion_percentage":100,"is_profile_complete":true}`)), session)
		w := env.do(t, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp profileResponse
		decodeData(t, w, &resp)
		assert.Equal(t, 10, resp.Profile.ProfileCompletionPercentage)
		assert.False(t, resp.Profile.IsProfileComplete)
	})

	t.Run("get returns the saved profile", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodGet, "/candidates/"+id+"/profile", nil), session)
		w := env.do(t, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp profileResponse
		decodeData(t, w, &resp)
		assert.Equal(t, "Casey Jones", resp.Profile.FullName)
		assert.Equal(t, 10, resp.Completion.Percentage)
	})
}

func TestProfileStepsAccumulateAcrossRequests(t *testing.T) {
	env := newTestEnv(t)
	session := env.register(t, "steps@example.com", "Sam")
	id := session.Credential.ID

	type stepResponse struct {
		Profile    types.CandidateProfile        `json:"profile"`
		Completion types.ProfileCompletionStatus `json:"completion"`
	}

	postStep := func(step, body string) stepResponse {
		req := authed(httptest.NewRequest(http.MethodPost,
			"/candidates/"+id+"/profile/steps/"+step, strings.NewReader(body)), session)
		w := env.do(t, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp stepResponse
		decodeData(t, w, &resp)
		return resp
	}

	first := postStep("basic_info", `{"full_name":"Sam Spade"}`)
	assert.Equal(t, 10, first.Completion.Percentage)

	second := postStep("contact_info", `{"mobile_number":"5550100","country_code":"+44"}`)
	assert.Equal(t, 20, second.Completion.Percentage, "sections accumulate across requests")
	assert.Equal(t, "Sam Spade", second.Profile.FullName, "earlier sections survive later steps")
	require.NotNil(t, second.Profile.ContactInfo)
	assert.Equal(t, "+44 5550100", second.Profile.ContactInfo.FullPhoneNumber)
}

func TestMediaEndpoints(t *testing.T) {
	env := newTestEnv(t)
	session := env.register(t, "media@example.com", "Mel")

	t.Run("config probe reports availability", func(t *testing.T) {
		w := env.do(t, httptest.NewRequest(http.MethodGet, "/media/config", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var cfg struct {
			Available bool `json:"available"`
		}
		decodeData(t, w, &cfg)
		assert.True(t, cfg.Available)
	})

	t.Run("upload stores the file", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "clip.mp3")
		require.NoError(t, err)
		_, err = part.Write([]byte("audio-bytes"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := authed(httptest.NewRequest(http.MethodPost, "/media/upload", &buf), session)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := env.do(t, req)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var result objectstore.UploadResult
		decodeData(t, w, &result)
		assert.NotEmpty(t, result.URL)
		assert.Contains(t, result.PublicID, "uploads/"+session.Credential.ID)
	})

	t.Run("empty file is a 400", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_, err := mw.CreateFormFile("file", "empty.mp3")
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := authed(httptest.NewRequest(http.MethodPost, "/media/upload", &buf), session)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		assert.Equal(t, http.StatusBadRequest, env.do(t, req).Code)
	})

	t.Run("upload requires auth", func(t *testing.T) {
		w := env.do(t, httptest.NewRequest(http.MethodPost, "/media/upload", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestStoryStreamSendsInitialSnapshot(t *testing.T) {
	env := newTestEnv(t)
	session := env.register(t, "stream@example.com", "Sam")

	body := `{"title":"Streamed","content":"<p>live</p>","type":"text"}`
	req := authed(httptest.NewRequest(http.MethodPost, "/stories", strings.NewReader(body)), session)
	require.Equal(t, http.StatusCreated, env.do(t, req).Code)

	// A pre-cancelled context makes the handler emit the initial snapshot
	// and return instead of blocking on further pushes.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	streamReq := httptest.NewRequest(http.MethodGet, "/stories/stream", nil).WithContext(ctx)
	w := env.do(t, streamReq)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "event: stories")
	assert.Contains(t, w.Body.String(), "Streamed")
}
