package ultravox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"healthmate/internal/audit"
	"healthmate/internal/auth"
	"healthmate/internal/calls"
	"healthmate/internal/config"
	"healthmate/internal/webhook"

	"github.com/gin-gonic/gin"
)

type fixture struct {
	router  *gin.Engine
	calls   *calls.Service
	repo    *calls.MemoryRepo
	audit   *audit.MemoryRepo
	tickets *auth.Manager
	limiter *calls.MemoryLimiter
}

func newFixture(t *testing.T, webhookURL string, stream StreamConfig) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := calls.NewMemoryRepo()
	callSvc := calls.NewService(repo)
	auditRepo := audit.NewMemoryRepo()
	auditSvc := audit.NewService(auditRepo)
	tickets, err := auth.NewManager(config.TicketConfig{Secret: "secret", Issuer: "healthmate", TTL: time.Minute})
	if err != nil {
		t.Fatalf("tickets: %v", err)
	}
	limiter := calls.NewMemoryLimiter()

	svc := NewService(ServiceConfig{WebhookURL: webhookURL, APIKey: "uv-key"}, webhook.NewClient(time.Second), callSvc, auditSvc, tickets, nil)
	h := Handlers{
		Service: svc,
		Calls:   callSvc,
		Events:  auditSvc,
		Stream:  NewStreamHandler(stream, callSvc, limiter, auditSvc),
	}

	r := gin.New()
	g := r.Group("/api/ultravox", auth.RequireCredentials("uv-key", "agent-1"))
	g.POST("", h.CreateCall)
	g.GET("/calls/:call_id", h.GetCall)
	g.GET("/calls/:call_id/events", h.CallEvents)
	g.GET("/calls/:call_id/stream", auth.RequireCallTicket(tickets), h.StreamCall)

	return &fixture{router: r, calls: callSvc, repo: repo, audit: auditRepo, tickets: tickets, limiter: limiter}
}

func (f *fixture) createCall(t *testing.T) CallInit {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/ultravox", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res CallInit
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return res
}

func upstream(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected upstream request: %s %q", r.Method, r.Header.Get("Content-Type"))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCreateCall_RealCall(t *testing.T) {
	srv := upstream(t, http.StatusOK, `{"callId":"c-42","joinUrl":"wss://voice.example.com/join/c-42"}`)
	f := newFixture(t, srv.URL, StreamConfig{})

	res := f.createCall(t)
	if res.Mock || res.Error != "" {
		t.Fatalf("expected real call, got %+v", res)
	}
	if res.CallID != "c-42" || res.JoinURL != "wss://voice.example.com/join/c-42" || res.APIKey != "uv-key" {
		t.Fatalf("unexpected payload: %+v", res)
	}
	if _, err := f.tickets.VerifyCallTicket(res.Ticket, "c-42", time.Now()); err != nil {
		t.Fatalf("ticket must verify: %v", err)
	}

	c, err := f.calls.Get(context.Background(), "c-42")
	if err != nil || c.Status != calls.CallStatusCreated || c.Mock {
		t.Fatalf("unexpected stored call: %+v %v", c, err)
	}
	if len(f.audit.Events()) != 0 {
		t.Fatalf("real call must not be audited as fallback")
	}
}

func TestCreateCall_FallsBackToMock(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		errHas string
	}{
		{"non-2xx", http.StatusBadGateway, "upstream down", "502"},
		{"malformed json", http.StatusOK, "{not json", "decode"},
		{"missing joinUrl", http.StatusOK, `{"callId":"c1"}`, "invalid URL"},
		{"relative joinUrl", http.StatusOK, `{"callId":"c1","joinUrl":"/join/c1"}`, "invalid URL"},
		{"garbage joinUrl", http.StatusOK, `{"callId":"c1","joinUrl":"not a url"}`, "invalid URL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := upstream(t, tc.status, tc.body)
			f := newFixture(t, srv.URL, StreamConfig{})

			res := f.createCall(t)
			if !res.Mock || res.Error == "" || !strings.Contains(res.Error, tc.errHas) {
				t.Fatalf("expected mock with %q error, got %+v", tc.errHas, res)
			}
			if res.JoinURL != MockJoinURL || !strings.HasPrefix(res.CallID, "mock-call-") {
				t.Fatalf("expected mock call data, got %+v", res)
			}
			if res.APIKey != "uv-key" || res.Ticket == "" {
				t.Fatalf("expected api key and ticket, got %+v", res)
			}

			evs := f.audit.Events()
			if len(evs) != 1 || evs[0].Type != audit.EventTypeMockFallback || evs[0].CallID != res.CallID {
				t.Fatalf("expected mock_fallback audit, got %+v", evs)
			}
			c, err := f.calls.Get(context.Background(), res.CallID)
			if err != nil || !c.Mock || c.FallbackReason != res.Error {
				t.Fatalf("unexpected stored call: %+v %v", c, err)
			}
		})
	}
}

func TestCreateCall_UnreachableWebhook(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:1/webhook", StreamConfig{})
	res := f.createCall(t)
	if !res.Mock || res.Error == "" {
		t.Fatalf("expected mock fallback, got %+v", res)
	}
}

func TestCreateCall_MissingCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/ultravox", auth.RequireCredentials("", "agent"), Handlers{}.CreateCall)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/ultravox", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestGetCall(t *testing.T) {
	srv := upstream(t, http.StatusInternalServerError, "")
	f := newFixture(t, srv.URL, StreamConfig{})
	res := f.createCall(t)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ultravox/calls/"+res.CallID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var c calls.Call
	_ = json.Unmarshal(w.Body.Bytes(), &c)
	if c.CallID != res.CallID || !c.Mock {
		t.Fatalf("unexpected call: %+v", c)
	}

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ultravox/calls/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCreateCall_SameMillisecondFallbacksGetDistinctCalls(t *testing.T) {
	callSvc := calls.NewService(calls.NewMemoryRepo())
	auditRepo := audit.NewMemoryRepo()
	tickets, err := auth.NewManager(config.TicketConfig{Secret: "secret", Issuer: "healthmate", TTL: time.Minute})
	if err != nil {
		t.Fatalf("tickets: %v", err)
	}
	svc := NewService(ServiceConfig{WebhookURL: "http://127.0.0.1:1/webhook", APIKey: "uv-key"},
		webhook.NewClient(time.Second), callSvc, audit.NewService(auditRepo), tickets, nil)
	fixed := time.UnixMilli(1700000000000)
	svc.clock = func() time.Time { return fixed }

	a := svc.CreateCall(context.Background(), "10.0.0.1")
	b := svc.CreateCall(context.Background(), "10.0.0.2")

	if a.CallID != "mock-call-1700000000000" {
		t.Fatalf("unexpected first call id %q", a.CallID)
	}
	if b.CallID == a.CallID || !strings.HasPrefix(b.CallID, "mock-call-1700000000000-") {
		t.Fatalf("expected a distinct mock id, got %q", b.CallID)
	}
	if _, err := tickets.VerifyCallTicket(b.Ticket, a.CallID, fixed); err == nil {
		t.Fatalf("second ticket must not open the first call")
	}
	if _, err := tickets.VerifyCallTicket(b.Ticket, b.CallID, fixed); err != nil {
		t.Fatalf("second ticket must open its own call: %v", err)
	}
	if _, err := callSvc.Get(context.Background(), b.CallID); err != nil {
		t.Fatalf("second call not recorded: %v", err)
	}
	evs := auditRepo.Events()
	if len(evs) != 2 || evs[1].CallID != b.CallID {
		t.Fatalf("expected fallback audit per call, got %+v", evs)
	}
}

func TestCreateCall_DuplicateRealCallGetsNoTicket(t *testing.T) {
	srv := upstream(t, http.StatusOK, `{"callId":"c-7","joinUrl":"wss://voice.example.com/join/c-7"}`)
	f := newFixture(t, srv.URL, StreamConfig{})

	first := f.createCall(t)
	second := f.createCall(t)
	if first.Ticket == "" {
		t.Fatalf("first call must carry a ticket")
	}
	if second.CallID != "c-7" || second.Ticket != "" {
		t.Fatalf("unrecorded duplicate must not get a ticket: %+v", second)
	}
}

func TestCallEvents(t *testing.T) {
	srv := upstream(t, http.StatusBadGateway, "down")
	f := newFixture(t, srv.URL, StreamConfig{})
	res := f.createCall(t)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ultravox/calls/"+res.CallID+"/events", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		CallID string        `json:"call_id"`
		Events []audit.Event `json:"events"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.CallID != res.CallID || len(body.Events) != 1 || body.Events[0].Type != audit.EventTypeMockFallback {
		t.Fatalf("unexpected events: %+v", body)
	}
	if !strings.Contains(body.Events[0].Reason, "502") {
		t.Fatalf("expected fallback reason, got %q", body.Events[0].Reason)
	}

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ultravox/calls/missing/events", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
