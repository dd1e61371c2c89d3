package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poslog/poslog/pkg/models"
)

func TestIngestLog(t *testing.T) {
	server, store, _ := setupTestServer(t)

	body := `{"level":"ERROR","label":"api","message":"boom","context":{"user":"bob"},"scenarioId":"run-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/logs", strings.NewReader(body))
	rec := doRequest(t, server, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]int64
	decodeBody(t, rec.Body, &resp)
	if resp["id"] == 0 {
		t.Error("expected assigned id in response")
	}

	result, err := store.List(context.Background(), models.ListFilter{}, models.ListPage{Limit: 10})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 stored record, got %d", len(result.Items))
	}
	rec0 := result.Items[0]
	if rec0.Level != "ERROR" || rec0.Label != "api" || rec0.Message != "boom" {
		t.Errorf("unexpected stored record: %+v", rec0)
	}
	if rec0.Context == nil || *rec0.Context != `{"user":"bob"}` {
		t.Errorf("expected serialized context, got %v", rec0.Context)
	}
	if rec0.ScenarioID == nil || *rec0.ScenarioID != "run-1" {
		t.Errorf("expected scenario id, got %v", rec0.ScenarioID)
	}
}

func TestIngestLogValidation(t *testing.T) {
	server, _, _ := setupTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing level", `{"label":"api","message":"m"}`},
		{"missing label", `{"level":"INFO","message":"m"}`},
		{"missing message", `{"level":"INFO","label":"api"}`},
		{"bad scenario id", `{"level":"INFO","label":"api","message":"m","scenarioId":"bad id"}`},
		{"bad timestamp", `{"level":"INFO","label":"api","message":"m","timestamp":"yesterday"}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/logs", strings.NewReader(c.body))
			rec := doRequest(t, server, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestListLogs(t *testing.T) {
	server, store, guard := setupTestServer(t)
	cookie := sessionCookie(t, guard)

	for i := 0; i < 3; i++ {
		_, err := store.Insert(context.Background(), models.InsertLog{
			Level:     "INFO",
			Label:     "svc",
			Message:   fmt.Sprintf("message %d", i),
			Timestamp: fmt.Sprintf("2025-06-01T12:00:0%dZ", i),
		})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/logs?limit=2", nil)
	req.AddCookie(cookie)
	rec := doRequest(t, server, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Items      []models.LogRecord `json:"items"`
		NextCursor string             `json:"nextCursor"`
		HasMore    bool               `json:"hasMore"`
	}
	decodeBody(t, rec.Body, &resp)

	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Items))
	}
	if !resp.HasMore {
		t.Error("expected hasMore")
	}
	if resp.Items[0].Message != "message 2" {
		t.Errorf("expected newest first, got %q", resp.Items[0].Message)
	}
	wantCursor := fmt.Sprintf("%d", resp.Items[1].ID)
	if resp.NextCursor != wantCursor {
		t.Errorf("expected nextCursor %s, got %s", wantCursor, resp.NextCursor)
	}
}

func TestListLogsEndBoundIncludesWholeSecond(t *testing.T) {
	server, store, guard := setupTestServer(t)
	cookie := sessionCookie(t, guard)

	for _, in := range []models.InsertLog{
		{Level: "INFO", Label: "svc", Message: "inside", Timestamp: "2025-06-01T10:00:00.500Z"},
		{Level: "INFO", Label: "svc", Message: "after", Timestamp: "2025-06-01T10:00:01Z"},
	} {
		if _, err := store.Insert(context.Background(), in); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	// A second-precision end must still match the record stored at .500
	// within that second.
	req := httptest.NewRequest(http.MethodGet, "/api/logs?end=2025-06-01T10:00:00Z", nil)
	req.AddCookie(cookie)
	rec := doRequest(t, server, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Items []models.LogRecord `json:"items"`
	}
	decodeBody(t, rec.Body, &resp)
	if len(resp.Items) != 1 || resp.Items[0].Message != "inside" {
		t.Fatalf("expected only the in-second record, got %+v", resp.Items)
	}
}

func TestListLogsRejectsUnknownParam(t *testing.T) {
	server, _, guard := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/logs?severity=ERROR", nil)
	req.AddCookie(sessionCookie(t, guard))
	rec := doRequest(t, server, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown parameter, got %d", rec.Code)
	}
}

func TestListScenariosEndpoint(t *testing.T) {
	server, store, guard := setupTestServer(t)
	cookie := sessionCookie(t, guard)

	for _, in := range []models.InsertLog{
		{Level: "INFO", Label: "svc", Message: "1", ScenarioID: "s1", Timestamp: "2025-06-01T10:00:00Z"},
		{Level: "ERROR", Label: "svc", Message: "2", ScenarioID: "s1", Timestamp: "2025-06-01T10:10:00Z"},
		{Level: "INFO", Label: "svc", Message: "3", ScenarioID: "s2", Timestamp: "2025-06-01T11:00:00Z"},
	} {
		if _, err := store.Insert(context.Background(), in); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/logs/scenarios", nil)
	req.AddCookie(cookie)
	rec := doRequest(t, server, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Scenarios []models.ScenarioSummary `json:"scenarios"`
	}
	decodeBody(t, rec.Body, &resp)
	if len(resp.Scenarios) != 2 {
		t.Fatalf("expected 2 scenarios, got %d", len(resp.Scenarios))
	}
	if resp.Scenarios[0].ScenarioID != "s2" {
		t.Errorf("expected most recent scenario first, got %s", resp.Scenarios[0].ScenarioID)
	}

	// Out-of-range limit.
	req = httptest.NewRequest(http.MethodGet, "/api/logs/scenarios?limit=101", nil)
	req.AddCookie(cookie)
	rec = doRequest(t, server, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for limit 101, got %d", rec.Code)
	}
}

func TestDeleteLogEndpoint(t *testing.T) {
	server, store, guard := setupTestServer(t)
	cookie := sessionCookie(t, guard)

	id, err := store.Insert(context.Background(), models.InsertLog{Level: "INFO", Label: "svc", Message: "m"})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/logs/%d", id), nil)
	req.AddCookie(cookie)
	rec := doRequest(t, server, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	// Repeat delete.
	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/logs/%d", id), nil)
	req.AddCookie(cookie)
	rec = doRequest(t, server, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on repeat delete, got %d", rec.Code)
	}

	// Non-numeric id.
	req = httptest.NewRequest(http.MethodDelete, "/api/logs/abc", nil)
	req.AddCookie(cookie)
	rec = doRequest(t, server, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric id, got %d", rec.Code)
	}
}

func TestDeleteAllLogsEndpoint(t *testing.T) {
	server, store, guard := setupTestServer(t)
	cookie := sessionCookie(t, guard)

	for i := 0; i < 3; i++ {
		if _, err := store.Insert(context.Background(), models.InsertLog{Level: "INFO", Label: "svc", Message: "m"}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/logs", nil)
	req.AddCookie(cookie)
	rec := doRequest(t, server, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]int64
	decodeBody(t, rec.Body, &resp)
	if resp["deleted"] != 3 {
		t.Errorf("expected 3 deleted, got %d", resp["deleted"])
	}
}
