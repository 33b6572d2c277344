package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/report"
	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/shift"
	"github.com/pontaj-digital/pontaj-backend-go/internal/handler/http/response"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/i18n"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/jwt"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

// ===== FAKES =====

type fakeShiftService struct {
	shift.ShiftService

	clockIn   func(req shift.ClockInRequest) (shift.SegmentResponse, error)
	clockOut  func(req shift.ClockOutRequest) (shift.ClockOutResponse, error)
	startBrk  func(actor shift.Actor) (shift.SegmentResponse, error)
	getActive func(actor shift.Actor) (*shift.SegmentResponse, error)
	getByID   func(id string) (shift.SegmentResponse, error)
	approve   func(req shift.ApproveOvertimeRequest) (shift.SegmentResponse, error)
}

func (f *fakeShiftService) ClockIn(ctx context.Context, req shift.ClockInRequest) (shift.SegmentResponse, error) {
	return f.clockIn(req)
}

func (f *fakeShiftService) ClockOut(ctx context.Context, req shift.ClockOutRequest) (shift.ClockOutResponse, error) {
	return f.clockOut(req)
}

func (f *fakeShiftService) StartBreak(ctx context.Context, actor shift.Actor) (shift.SegmentResponse, error) {
	return f.startBrk(actor)
}

func (f *fakeShiftService) GetActive(ctx context.Context, actor shift.Actor) (*shift.SegmentResponse, error) {
	return f.getActive(actor)
}

func (f *fakeShiftService) GetByID(ctx context.Context, id string) (shift.SegmentResponse, error) {
	return f.getByID(id)
}

func (f *fakeShiftService) ApproveOvertime(ctx context.Context, req shift.ApproveOvertimeRequest) (shift.SegmentResponse, error) {
	return f.approve(req)
}

type fakeReportService struct {
	summaryCalls int
}

func (f *fakeReportService) ActiveWorkers(ctx context.Context, req report.ActiveWorkersRequest) (report.ActiveWorkersReport, error) {
	return report.ActiveWorkersReport{Date: req.Date}, nil
}

func (f *fakeReportService) Summary(ctx context.Context, req report.SummaryRequest) (report.SummaryReport, error) {
	f.summaryCalls++
	return report.SummaryReport{From: req.From, To: req.To}, nil
}

// ===== SETUP =====

type testServer struct {
	router  http.Handler
	jwt     jwt.Service
	shifts  *fakeShiftService
	reports *fakeReportService
	hub     *sse.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	translator, err := i18n.New("ro")
	require.NoError(t, err)
	response.UseTranslator(translator)

	ts := &testServer{
		jwt:     jwt.NewJWTService(handlerTestSecret, time.Hour, time.Minute),
		shifts:  &fakeShiftService{},
		reports: &fakeReportService{},
		hub:     sse.NewHub(4),
	}
	ts.router = NewRouter(
		RouterConfig{CORSOrigins: []string{"http://localhost:5173"}},
		ts.jwt,
		translator,
		NewShiftHandler(ts.shifts),
		NewReportHandler(ts.reports),
		NewStreamHandler(ts.jwt, ts.hub, 50*time.Millisecond),
	)
	return ts
}

func (ts *testServer) token(t *testing.T, userID, role string) string {
	t.Helper()
	token, _, err := ts.jwt.GenerateAccessToken(userID, role)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}, headers ...string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var resp response.Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

const segmentID = "7f3c1c2e-4b8a-4d8e-9a61-1f0b5e2a9c11"

// ===== AUTH =====

func TestShiftHandler_RequiresToken(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodGet, "/api/v1/shifts/active", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
}

func TestShiftHandler_RejectsStreamTokenAsAccess(t *testing.T) {
	ts := newTestServer(t)
	sseToken, _, err := ts.jwt.GenerateSSEToken("worker-1", shift.RoleWorker)
	require.NoError(t, err)

	w, _ := ts.do(t, http.MethodGet, "/api/v1/shifts/active", sseToken, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ===== CLOCK IN =====

func TestShiftHandler_ClockIn_Success(t *testing.T) {
	ts := newTestServer(t)
	var got shift.ClockInRequest
	ts.shifts.clockIn = func(req shift.ClockInRequest) (shift.SegmentResponse, error) {
		got = req
		return shift.SegmentResponse{ID: segmentID, Status: shift.StatusActive}, nil
	}
	lat, lon := 44.4268, 26.1025

	w, resp := ts.do(t, http.MethodPost, "/api/v1/shifts/clock-in", ts.token(t, "worker-1", shift.RoleWorker),
		shift.ClockInRequest{SiteID: "site-1", Latitude: &lat, Longitude: &lon},
		"Accept-Language", "en")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Shift started.", resp.Message)
	assert.Equal(t, shift.Actor{UserID: "worker-1", Role: shift.RoleWorker}, got.Actor)
	assert.Equal(t, "site-1", got.SiteID)
}

func TestShiftHandler_ClockIn_ValidationError(t *testing.T) {
	ts := newTestServer(t)
	ts.shifts.clockIn = func(req shift.ClockInRequest) (shift.SegmentResponse, error) {
		t.Fatal("service must not be called")
		return shift.SegmentResponse{}, nil
	}
	lat := 44.4268

	w, resp := ts.do(t, http.MethodPost, "/api/v1/shifts/clock-in", ts.token(t, "worker-1", shift.RoleWorker),
		shift.ClockInRequest{SiteID: "site-1", Latitude: &lat})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "location")
}

func TestShiftHandler_ClockIn_MalformedBody(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shifts/clock-in", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+ts.token(t, "worker-1", shift.RoleWorker))
	w := httptest.NewRecorder()

	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ===== ERROR MAPPING =====

func TestShiftHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		lang       string
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{name: "already clocked in", err: shift.ErrAlreadyClockedIn, lang: "en", wantStatus: http.StatusConflict, wantCode: "ALREADY_CLOCKED_IN"},
		{name: "break taken", err: shift.ErrBreakAlreadyTaken, lang: "en", wantStatus: http.StatusConflict, wantCode: "BREAK_ALREADY_TAKEN", wantMsg: "You already took your break for this shift."},
		{name: "generic state", err: fmt.Errorf("%w: segment is still live", shift.ErrInvalidState), lang: "en", wantStatus: http.StatusConflict, wantCode: "INVALID_STATE"},
		{name: "no active shift ro", err: shift.ErrNoActiveShift, lang: "ro-RO", wantStatus: http.StatusNotFound, wantCode: "NO_ACTIVE_SHIFT", wantMsg: "Nu ai o tură activă."},
		{name: "invalid segment", err: fmt.Errorf("%w: overlapping break intervals", shift.ErrInvalidSegment), lang: "en", wantStatus: http.StatusUnprocessableEntity, wantCode: "INVALID_SEGMENT"},
		{name: "gps required", err: shift.ErrGPSRequired, lang: "en", wantStatus: http.StatusBadRequest, wantCode: "GPS_REQUIRED"},
		{name: "before schedule", err: shift.ErrBeforeSchedule, lang: "en", wantStatus: http.StatusBadRequest, wantCode: "BEFORE_SCHEDULE"},
		{name: "infrastructure", err: fmt.Errorf("failed to update segment: %w", context.DeadlineExceeded), lang: "en", wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.shifts.startBrk = func(actor shift.Actor) (shift.SegmentResponse, error) {
				return shift.SegmentResponse{}, tt.err
			}

			w, resp := ts.do(t, http.MethodPost, "/api/v1/shifts/break/start", ts.token(t, "worker-1", shift.RoleWorker), nil,
				"Accept-Language", tt.lang)

			assert.Equal(t, tt.wantStatus, w.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, resp.Error.Message)
			}
		})
	}
}

// ===== CLOCK OUT =====

func TestShiftHandler_ClockOut_OvertimeWarning(t *testing.T) {
	ts := newTestServer(t)
	ts.shifts.clockOut = func(req shift.ClockOutRequest) (shift.ClockOutResponse, error) {
		return shift.ClockOutResponse{Overtime: shift.OvertimeResponse{Minutes: 150, MaxMinutes: 120, Warning: true}}, nil
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/shifts/clock-out", nil)
	req.Header.Set("Authorization", "Bearer "+ts.token(t, "worker-1", shift.RoleWorker))
	req.Header.Set("Accept-Language", "en")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "You exceeded the 120 minute overtime limit.", resp.Message)
}

// ===== READS =====

func TestShiftHandler_GetActive_Null(t *testing.T) {
	ts := newTestServer(t)
	ts.shifts.getActive = func(actor shift.Actor) (*shift.SegmentResponse, error) {
		return nil, nil
	}

	w, _ := ts.do(t, http.MethodGet, "/api/v1/shifts/active", ts.token(t, "worker-1", shift.RoleWorker), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":null}`, w.Body.String())
}

func TestShiftHandler_Get_OwnershipCheck(t *testing.T) {
	ts := newTestServer(t)
	ts.shifts.getByID = func(id string) (shift.SegmentResponse, error) {
		return shift.SegmentResponse{ID: id, WorkerID: "worker-2"}, nil
	}

	w, _ := ts.do(t, http.MethodGet, "/api/v1/shifts/"+segmentID, ts.token(t, "worker-1", shift.RoleWorker), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/shifts/"+segmentID, ts.token(t, "lead-1", shift.RoleTeamLead), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/shifts/not-a-uuid", ts.token(t, "lead-1", shift.RoleTeamLead), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ===== ADMIN =====

func TestShiftHandler_ApproveOvertime_AdminOnly(t *testing.T) {
	ts := newTestServer(t)
	var got shift.ApproveOvertimeRequest
	ts.shifts.approve = func(req shift.ApproveOvertimeRequest) (shift.SegmentResponse, error) {
		got = req
		return shift.SegmentResponse{ID: req.SegmentID, OvertimeApproved: true}, nil
	}
	path := "/api/v1/admin/shifts/" + segmentID + "/overtime/approve"

	w, _ := ts.do(t, http.MethodPost, path, ts.token(t, "lead-1", shift.RoleTeamLead), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = ts.do(t, http.MethodPost, path, ts.token(t, "admin-1", shift.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", got.ApprovedBy)
	assert.Equal(t, segmentID, got.SegmentID)
}

func TestReportHandler_Roles(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(t, http.MethodGet, "/api/v1/admin/reports/active-workers?date=2025-03-10", ts.token(t, "w", shift.RoleWorker), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp := ts.do(t, http.MethodGet, "/api/v1/admin/reports/active-workers?date=2025-03-10", ts.token(t, "lead", shift.RoleTeamLead), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-03-10", resp.Data.(map[string]interface{})["date"])

	w, _ = ts.do(t, http.MethodGet, "/api/v1/admin/reports/summary?from=2025-03-01&to=2025-03-10", ts.token(t, "lead", shift.RoleTeamLead), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, ts.reports.summaryCalls)

	w, _ = ts.do(t, http.MethodGet, "/api/v1/admin/reports/summary?from=2025-03-01&to=2025-03-10", ts.token(t, "admin", shift.RoleAdmin), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ts.reports.summaryCalls)
}

// ===== STREAM =====

func TestStreamTopic(t *testing.T) {
	assert.Equal(t, "worker-1", streamTopic("worker-1", shift.RoleWorker, "worker-2"))
	assert.Equal(t, "worker-2", streamTopic("lead-1", shift.RoleTeamLead, "worker-2"))
	assert.Equal(t, sse.TopicSupervisors, streamTopic("admin-1", shift.RoleAdmin, ""))
	assert.Equal(t, sse.TopicSupervisors, streamTopic("manager-1", shift.RoleSiteManager, ""))
	assert.Equal(t, "worker-2", streamTopic("manager-1", shift.RoleSiteManager, "worker-2"))

	// unrecognised roles never reach other workers or the supervisor feed
	assert.Equal(t, "user-1", streamTopic("user-1", "", ""))
	assert.Equal(t, "user-1", streamTopic("user-1", "", "worker-2"))
	assert.Equal(t, "user-1", streamTopic("user-1", "GUEST", sse.TopicSupervisors))
	assert.Equal(t, "user-1", streamTopic("user-1", "admin", ""))
}

func TestStreamHandler_Stream(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	sseToken, _, err := ts.jwt.GenerateSSEToken("worker-1", shift.RoleWorker)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/shifts/stream?token="+sseToken, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	require.Eventually(t, func() bool { return ts.hub.SubscriberCount("worker-1") == 1 }, time.Second, 10*time.Millisecond)
	ts.hub.Publish("worker-1", sse.Event{
		Event: shift.EventSegmentUpdated,
		Data:  shift.SegmentEvent{Type: shift.EventSegmentUpdated, Segment: shift.SegmentResponse{ID: segmentID}},
	})

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if line == "event: segment_updated\n" {
			break
		}
	}
	data, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, data, segmentID)
}

func TestStreamHandler_InvalidToken(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/shifts/stream?token="+ts.token(t, "worker-1", shift.RoleWorker), nil)
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStreamHandler_GetToken(t *testing.T) {
	ts := newTestServer(t)

	w, resp := ts.do(t, http.MethodGet, "/api/v1/shifts/stream/token", ts.token(t, "worker-1", shift.RoleWorker), nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	userID, role, err := ts.jwt.ValidateSSEToken(data["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "worker-1", userID)
	assert.Equal(t, shift.RoleWorker, role)
	assert.EqualValues(t, 60, data["expires_in"])
}
