package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventdesk/internal/auth"
	"eventdesk/internal/importjob"
	"eventdesk/internal/logging"
	"eventdesk/internal/participant"
	"eventdesk/internal/queue"
)

const (
	testKey    = "test-signing-key-0123456789"
	testIssuer = "eventdesk-test"
)

var created = time.Date(2024, 8, 17, 0, 0, 0, 0, time.UTC)

type fixture struct {
	router   *gin.Engine
	handler  *ParticipantHandler
	store    *participant.MemoryStore
	queue    *queue.InMemory
	statuses *importjob.MemoryStatus
	svc      *participant.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := participant.NewMemoryStore(
		participant.Participant{ID: "p1", ChildName: "Ali", ParentName: "Budi", Email: "budi@example.com", Status: participant.StatusPending, CreatedAt: created, UpdatedAt: created},
		participant.Participant{ID: "p2", ChildName: "Citra", ParentName: "Alisha", Status: participant.StatusPending, CreatedAt: created, UpdatedAt: created},
	)
	svc := participant.NewService(store, participant.WithLogger(logging.Discard()))
	q := queue.NewInMemory(8)
	statuses := importjob.NewMemoryStatus()
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	h := NewParticipantHandler(svc, q, statuses, jakarta, 1<<20, logging.Discard())
	r := NewRouter(h, Options{
		SigningKey: testKey,
		Issuer:     testIssuer,
		Checks:     map[string]HealthCheck{"db": func(context.Context) bool { return true }},
		Log:        logging.Discard(),
	})
	return &fixture{router: r, handler: h, store: store, queue: q, statuses: statuses, svc: svc}
}

func token(t *testing.T, role auth.Role) string {
	t.Helper()
	tok, err := auth.Issue(string(role)+"-1", role, testIssuer, testKey, time.Hour)
	require.NoError(t, err)
	return tok.Value
}

func (f *fixture) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestSearchIsPublic(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/v1/participants/search?q=ali", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[struct {
		Participants []participant.Participant `json:"participants"`
	}](t, w)
	require.Len(t, res.Participants, 2)
	assert.Equal(t, "p1", res.Participants[0].ID)

	w = f.do(t, http.MethodGet, "/v1/participants/search?q=", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"participants":[]}`, w.Body.String())
}

func TestGetParticipant(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/v1/participants/p1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[participantResponse](t, w)
	assert.Equal(t, "Ali", res.Participant.ChildName)
	assert.Equal(t, []participant.Milestone{participant.MilestoneCheckIn}, res.OfferedMilestones)

	w = f.do(t, http.MethodGet, "/v1/participants/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/v1/participants/p1", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminChecksInParticipant(t *testing.T) {
	f := newFixture(t)
	admin := token(t, auth.RoleAdmin)

	w := f.do(t, http.MethodPatch, "/v1/participants/p1", admin, map[string]any{"check_in": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[struct {
		Participant participant.Participant `json:"participant"`
		Delta       participant.Delta       `json:"delta"`
	}](t, w)
	assert.True(t, res.Participant.CheckIn)
	assert.NotNil(t, res.Participant.CheckInTime)
	assert.Equal(t, participant.StatusCheckedIn, res.Participant.Status)
	assert.Equal(t, 1, res.Delta.CheckedIn)
	assert.Equal(t, "admin-1", res.Participant.UpdatedBy)

	w = f.do(t, http.MethodPost, "/v1/participants/p1/milestones/snack_box", admin, map[string]any{"done": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/v1/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"checkedIn":1,"notCheckedIn":1,"snackDistributed":1,"lunchDistributed":0,"total":2}`, w.Body.String())
}

func TestUpdateAuthorization(t *testing.T) {
	f := newFixture(t)
	user := token(t, auth.RoleUser)

	w := f.do(t, http.MethodPatch, "/v1/participants/p1", "", map[string]any{"representative_name": "Citra"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPatch, "/v1/participants/p1", user, map[string]any{"check_in": true})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPatch, "/v1/participants/p1", user, map[string]any{"representative_name": "Citra", "representative_phone": "0812"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	p, err := f.store.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, p.CheckIn)
	assert.Equal(t, "Citra", *p.RepresentativeName)

	w = f.do(t, http.MethodPost, "/v1/participants/p1/milestones/check_in", user, map[string]any{"done": true})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t)
	admin := token(t, auth.RoleAdmin)

	cases := []struct {
		name   string
		path   string
		body   any
		status int
		field  string
	}{
		{"empty body", "/v1/participants/p1", map[string]any{}, http.StatusBadRequest, ""},
		{"blank name", "/v1/participants/p1", map[string]any{"child_name": " "}, http.StatusBadRequest, "child_name"},
		{"explicit time", "/v1/participants/p1", map[string]any{"check_in": true, "check_in_time": "2024-08-17T01:00:00Z"}, http.StatusBadRequest, "check_in_time"},
		{"id change", "/v1/participants/p1", map[string]any{"id": "p9"}, http.StatusUnprocessableEntity, ""},
		{"unknown milestone", "/v1/participants/p1/milestones/dinner", map[string]any{"done": true}, http.StatusNotFound, ""},
		{"missing done", "/v1/participants/p1/milestones/check_in", map[string]any{}, http.StatusBadRequest, ""},
		{"not found", "/v1/participants/zz", map[string]any{"check_in": true}, http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			method := http.MethodPatch
			if strings.Contains(tc.path, "milestones") {
				method = http.MethodPost
			}
			w := f.do(t, method, tc.path, admin, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			if tc.field != "" {
				assert.Equal(t, tc.field, decode[errorBody](t, w).Field)
			}
		})
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	f := newFixture(t)
	user := token(t, auth.RoleUser)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/v1/participants"},
		{http.MethodPost, "/v1/participants"},
		{http.MethodDelete, "/v1/participants/p1"},
		{http.MethodGet, "/v1/stats"},
		{http.MethodGet, "/v1/exports/participants.csv"},
		{http.MethodPost, "/v1/imports"},
	} {
		assert.Equal(t, http.StatusUnauthorized, f.do(t, route.method, route.path, "", nil).Code, route.path)
		assert.Equal(t, http.StatusForbidden, f.do(t, route.method, route.path, user, nil).Code, route.path)
	}
}

func TestCreateListDelete(t *testing.T) {
	f := newFixture(t)
	admin := token(t, auth.RoleAdmin)

	w := f.do(t, http.MethodPost, "/v1/participants", admin, map[string]any{"child_name": "Dewi", "parent_name": "Eko", "email": "bad"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/v1/participants", admin, map[string]any{"child_name": "Dewi", "parent_name": "Eko"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[participantResponse](t, w).Participant.ID
	require.NotEmpty(t, id)

	w = f.do(t, http.MethodGet, "/v1/participants?order=recent", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Participants []participant.Participant `json:"participants"`
	}](t, w)
	require.Len(t, list.Participants, 3)
	assert.Equal(t, id, list.Participants[0].ID)

	w = f.do(t, http.MethodGet, "/v1/participants?order=oldest", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodDelete, "/v1/participants/"+id, admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/v1/stats", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, decode[statsResponse](t, w).Total)
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	admin := token(t, auth.RoleAdmin)
	f.do(t, http.MethodPatch, "/v1/participants/p1", admin, map[string]any{"check_in": true})

	w := f.do(t, http.MethodGet, "/v1/exports/participants.csv", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "participants_")
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")

	recs, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, participant.ExportHeader, recs[0])
	assert.Equal(t, "Ali", recs[1][0])
	assert.Equal(t, "Yes", recs[1][7])
	assert.Equal(t, "-", recs[2][8])
}

func TestImportQueuesJob(t *testing.T) {
	f := newFixture(t)
	admin := token(t, auth.RoleAdmin)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "batch.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("nama_anak,nama_orang_tua\nGita,Hadi\nIndra,Joko\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/imports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	st := decode[importjob.Status](t, w)
	assert.Equal(t, importjob.StateQueued, st.State)
	assert.Equal(t, 2, st.Rows)
	assert.Equal(t, "batch.csv", st.Source)

	runner := importjob.NewRunner(f.queue, f.svc, f.statuses, logging.Discard(), time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = runner.Run(ctx) }()

	require.Eventually(t, func() bool {
		w := f.do(t, http.MethodGet, "/v1/imports/"+st.ID, admin, nil)
		return w.Code == http.StatusOK && decode[importjob.Status](t, w).State == importjob.StateDone
	}, 2*time.Second, 10*time.Millisecond)

	all, err := f.store.List(context.Background(), participant.OrderByName)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/imports/unknown", admin, nil).Code)
}

func TestImportRejectsBadCSV(t *testing.T) {
	f := newFixture(t)
	admin := token(t, auth.RoleAdmin)

	for _, in := range []string{"email\nx@y.z\n", "child_name,parent_name\n"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/imports", strings.NewReader(in))
		req.Header.Set("Content-Type", "text/csv")
		req.Header.Set("Authorization", "Bearer "+admin)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, in)
	}
}

func TestImportRejectsOversizedUpload(t *testing.T) {
	f := newFixture(t)
	f.handler.maxImportBytes = 64
	admin := token(t, auth.RoleAdmin)
	csvBody := "child_name,parent_name\n" + strings.Repeat("Gita,Hadi\n", 90)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "big.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte(csvBody))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/imports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/v1/imports", strings.NewReader(csvBody))
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Authorization", "Bearer "+admin)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
}

func TestHealthzAndMetrics(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","db":true}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusFor(t *testing.T) {
	user := auth.Actor{ID: "u", Role: auth.RoleUser}
	denied := &participant.DeniedError{Actor: "x", Reason: "no"}
	assert.Equal(t, http.StatusUnauthorized, statusFor(denied, auth.Anonymous))
	assert.Equal(t, http.StatusForbidden, statusFor(denied, user))
	assert.Equal(t, http.StatusConflict, statusFor(participant.ErrConflict, user))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(participant.ErrStore, user))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(context.Canceled, user))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError, user))
}
