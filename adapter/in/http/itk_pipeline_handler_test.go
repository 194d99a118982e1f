package http

import (
	"bytes"
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"itk_server/core/service/events"
	"itk_server/core/service/newsletter"
	"itk_server/core/service/pipeline"
	"itk_server/core/service/reply"
	"itk_server/infra/middleware"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type fakePipeline struct {
	summary *pipeline.RunSummary
}

func (f *fakePipeline) Run(ctx context.Context) *pipeline.RunSummary { return f.summary }

type fakeHobbyParser struct {
	tags   []string
	gotID  uuid.UUID
	called bool
}

func (f *fakeHobbyParser) ParseAndStore(ctx context.Context, userID uuid.UUID) ([]string, error) {
	f.called = true
	f.gotID = userID
	return f.tags, nil
}

type fakeEventSearcher struct {
	gotCity  string
	gotLimit int
}

func (f *fakeEventSearcher) SearchCityLimited(ctx context.Context, city string, limit int) (*events.SearchSummary, error) {
	f.gotCity = city
	f.gotLimit = limit
	return &events.SearchSummary{PairsProcessed: 7}, nil
}

type fakeVenues struct {
	cityCalls  int
	pilotCalls int
}

func (f *fakeVenues) DiscoverCity(ctx context.Context, city string, forceRefresh bool) (int, error) {
	f.cityCalls++
	return 3, nil
}

func (f *fakeVenues) DiscoverPilotCities(ctx context.Context, forceRefresh bool) (int, error) {
	f.pilotCalls++
	return 10, nil
}

func (f *fakeVenues) RefreshEvents(ctx context.Context, city string, forceRefresh bool) (int, error) {
	return 5, nil
}

type fakeDrafter struct {
	userCalls int
	allCalls  int
}

func (f *fakeDrafter) DraftUser(ctx context.Context, userID uuid.UUID) (int, error) {
	f.userCalls++
	return 1, nil
}

func (f *fakeDrafter) DraftAll(ctx context.Context) (int, error) {
	f.allCalls++
	return 4, nil
}

type fakeSender struct{}

func (f *fakeSender) SendUnsent(ctx context.Context, userID *uuid.UUID) (*newsletter.DispatchSummary, error) {
	return &newsletter.DispatchSummary{Considered: 4, Sent: 3, Skipped: 1}, nil
}

type fakeReplies struct {
	gotPayload map[string]any
}

func (f *fakeReplies) ProcessPayload(ctx context.Context, payload map[string]any) (*reply.ProcessResult, error) {
	f.gotPayload = payload
	return &reply.ProcessResult{Processed: true, Intent: "feedback"}, nil
}

const testSecret = "cron-secret"

func newTestApp(t *testing.T) (*fiber.App, *fakeHobbyParser, *fakeEventSearcher, *fakeVenues, *fakeDrafter, *fakeReplies) {
	t.Helper()

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})

	hobbies := &fakeHobbyParser{tags: []string{"pottery", "live music"}}
	searcher := &fakeEventSearcher{}
	venues := &fakeVenues{}
	drafter := &fakeDrafter{}
	replies := &fakeReplies{}

	handler := NewPipelineHandler(
		&fakePipeline{summary: &pipeline.RunSummary{UsersSeen: 2, SentNewsletters: 2}},
		hobbies, searcher, venues, drafter, &fakeSender{},
	)
	group := app.Group("/api/pipeline", middleware.CronAuth(testSecret))
	handler.Register(group)

	webhook := NewWebhookHandler(replies, "")
	webhook.Register(app.Group("/api/email"))

	return app, hobbies, searcher, venues, drafter, replies
}

func doJSON(t *testing.T, app *fiber.App, method, path, secret, body string) (*nethttp.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if secret != "" {
		req.Header.Set("X-Cron-Secret", secret)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, path, err)
	}

	raw, _ := io.ReadAll(resp.Body)
	var decoded map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode response %q: %v", string(raw), err)
		}
	}
	return resp, decoded
}

func TestPipelineEndpointsRequireCronSecret(t *testing.T) {
	app, _, _, _, _, _ := newTestApp(t)

	resp, _ := doJSON(t, app, "POST", "/api/pipeline/run", "", "")
	if resp.StatusCode != nethttp.StatusUnauthorized {
		t.Errorf("missing secret: status = %d, want 401", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, "POST", "/api/pipeline/run", "wrong", "")
	if resp.StatusCode != nethttp.StatusUnauthorized {
		t.Errorf("wrong secret: status = %d, want 401", resp.StatusCode)
	}
}

func TestRunEndpointReturnsSummary(t *testing.T) {
	app, _, _, _, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/api/pipeline/run", testSecret, "")
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["users_seen"].(float64) != 2 {
		t.Errorf("users_seen = %v", body["users_seen"])
	}
}

func TestParseHobbiesValidatesUserID(t *testing.T) {
	app, hobbies, _, _, _, _ := newTestApp(t)

	resp, _ := doJSON(t, app, "POST", "/api/pipeline/parse-hobbies", testSecret, `{"user_id":"not-a-uuid"}`)
	if resp.StatusCode != nethttp.StatusBadRequest {
		t.Errorf("invalid uuid: status = %d, want 400", resp.StatusCode)
	}
	if hobbies.called {
		t.Error("service called despite invalid user_id")
	}

	id := uuid.New()
	resp, body := doJSON(t, app, "POST", "/api/pipeline/parse-hobbies", testSecret, `{"user_id":"`+id.String()+`"}`)
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if hobbies.gotID != id {
		t.Errorf("service got user %s, want %s", hobbies.gotID, id)
	}
	if body["detail"] != "Hobbies parsed" || body["processed"].(float64) != 2 {
		t.Errorf("body = %v", body)
	}
}

func TestSearchEventsPassesCityAndLimit(t *testing.T) {
	app, _, searcher, _, _, _ := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/api/pipeline/search-events", testSecret, `{"city":"Austin","limit":25}`)
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if searcher.gotCity != "Austin" || searcher.gotLimit != 25 {
		t.Errorf("searcher got (%q, %d)", searcher.gotCity, searcher.gotLimit)
	}
	if body["processed"].(float64) != 7 {
		t.Errorf("processed = %v", body["processed"])
	}
}

func TestDiscoverVenuesRoutesByCityPresence(t *testing.T) {
	app, _, _, venues, _, _ := newTestApp(t)

	doJSON(t, app, "POST", "/api/pipeline/discover-venues", testSecret, `{"city":"austin"}`)
	if venues.cityCalls != 1 || venues.pilotCalls != 0 {
		t.Errorf("city body: cityCalls=%d pilotCalls=%d", venues.cityCalls, venues.pilotCalls)
	}

	doJSON(t, app, "POST", "/api/pipeline/discover-venues", testSecret, "")
	if venues.pilotCalls != 1 {
		t.Errorf("empty body: pilotCalls=%d, want 1", venues.pilotCalls)
	}
}

func TestDraftEmailsScopesToUser(t *testing.T) {
	app, _, _, _, drafter, _ := newTestApp(t)

	doJSON(t, app, "POST", "/api/pipeline/draft-emails", testSecret, `{"user_id":"`+uuid.New().String()+`"}`)
	if drafter.userCalls != 1 || drafter.allCalls != 0 {
		t.Errorf("scoped draft: userCalls=%d allCalls=%d", drafter.userCalls, drafter.allCalls)
	}

	doJSON(t, app, "POST", "/api/pipeline/draft-emails", testSecret, "")
	if drafter.allCalls != 1 {
		t.Errorf("unscoped draft: allCalls=%d, want 1", drafter.allCalls)
	}
}

func TestInboundReplyWebhook(t *testing.T) {
	app, _, _, _, _, replies := newTestApp(t)

	resp, body := doJSON(t, app, "POST", "/api/email/inbound-reply", "", `{"from":"sam@example.com","text":"more pottery please"}`)
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["processed"] != true {
		t.Errorf("processed = %v", body["processed"])
	}
	if replies.gotPayload["from"] != "sam@example.com" {
		t.Errorf("payload from = %v", replies.gotPayload["from"])
	}

	resp, _ = doJSON(t, app, "POST", "/api/email/inbound-reply", "", "not json")
	if resp.StatusCode != nethttp.StatusBadRequest {
		t.Errorf("malformed payload: status = %d, want 400", resp.StatusCode)
	}
}

func TestWebhookSecretEnforcedWhenConfigured(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
	webhook := NewWebhookHandler(&fakeReplies{}, "hook-secret")
	webhook.Register(app.Group("/api/email"))

	req := httptest.NewRequest("POST", "/api/email/inbound-reply", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != nethttp.StatusUnauthorized {
		t.Errorf("missing webhook secret: status = %d, want 401", resp.StatusCode)
	}

	req = httptest.NewRequest("POST", "/api/email/inbound-reply", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Secret", "hook-secret")
	resp, err = app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != nethttp.StatusOK {
		t.Errorf("valid webhook secret: status = %d, want 200", resp.StatusCode)
	}
}
