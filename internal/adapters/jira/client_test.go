package jira

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sakarnDev/jira-worklog/internal/config"
)

func newTestClient(baseURL string) *Client {
	cfg := config.Config{
		JiraBaseURL:  baseURL,
		JiraEmail:    "bot@example.com",
		JiraAPIToken: "token",
		HTTPTimeout:  5 * time.Second,
	}
	return NewClient(cfg, zerolog.Nop())
}

func TestSearchUsers_SendsQueryAndBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/user/search" {
			t.Errorf("path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "a@b.c" {
			t.Errorf("query %q", got)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "bot@example.com" || pass != "token" {
			t.Errorf("basic auth %q/%q ok=%v", user, pass, ok)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"accountId":"acc-1","emailAddress":"a@b.c","displayName":"A"}]`))
	}))
	defer srv.Close()

	users, err := newTestClient(srv.URL).SearchUsers(context.Background(), "a@b.c", 2)
	if err != nil {
		t.Fatalf("search users: %v", err)
	}
	if len(users) != 1 || users[0].AccountID != "acc-1" {
		t.Fatalf("users %+v", users)
	}
}

func TestSearchIssues_PassesPageTokenAndFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("fields") != "summary" {
			t.Errorf("fields %q", q.Get("fields"))
		}
		if q.Get("maxResults") != "100" {
			t.Errorf("maxResults %q", q.Get("maxResults"))
		}
		if q.Get("nextPageToken") != "tok-1" {
			t.Errorf("nextPageToken %q", q.Get("nextPageToken"))
		}
		w.Write([]byte(`{"issues":[{"key":"ABC-1","fields":{"summary":"s"}}],"nextPageToken":"tok-2"}`))
	}))
	defer srv.Close()

	res, err := newTestClient(srv.URL).SearchIssues(context.Background(), "worklogAuthor = currentUser()", 100, "tok-1")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Issues) != 1 || res.Issues[0].Key != "ABC-1" || res.NextPageToken != "tok-2" {
		t.Fatalf("result %+v", res)
	}
}

func TestIssueWorklogs_PassesWindowHints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/issue/ABC-1/worklog" {
			t.Errorf("path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("startedAfter") != "1717200000000" || q.Get("startedBefore") != "1717286400000" {
			t.Errorf("window hints %q/%q", q.Get("startedAfter"), q.Get("startedBefore"))
		}
		w.Write([]byte(`{"startAt":0,"maxResults":100,"total":1,"worklogs":[
            {"id":"1","author":{"accountId":"acc-1"},"started":"2024-06-01T09:00:00.000+0000","timeSpentSeconds":3600,"comment":"did work"}
        ]}`))
	}))
	defer srv.Close()

	list, err := newTestClient(srv.URL).IssueWorklogs(context.Background(), "ABC-1", 1717200000000, 1717286400000, 0, 100)
	if err != nil {
		t.Fatalf("worklogs: %v", err)
	}
	if list.Total != 1 || len(list.Worklogs) != 1 || list.Worklogs[0].TimeSpentSeconds != 3600 {
		t.Fatalf("list %+v", list)
	}
}

func TestDoJSON_4xxSurfacesBodyWithoutRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errorMessages":["bad jql"]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).SearchIssues(context.Background(), "nope", 100, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status=400") || !strings.Contains(err.Error(), "bad jql") {
		t.Fatalf("error must carry upstream status and body: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", calls)
	}
}

func TestDoJSON_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).SearchUsers(context.Background(), "a@b.c", 1); err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestDoJSON_MissingConfigIsNotConfigured(t *testing.T) {
	c := NewClient(config.Config{HTTPTimeout: time.Second}, zerolog.Nop())
	_, err := c.SearchUsers(context.Background(), "a@b.c", 1)
	if err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNewClient_PrefersBearerWhenPATSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer pat-token" {
			t.Errorf("auth header %q", got)
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := config.Config{JiraBaseURL: srv.URL, JiraPAT: "pat-token", HTTPTimeout: 5 * time.Second}
	if _, err := NewClient(cfg, zerolog.Nop()).SearchUsers(context.Background(), "a@b.c", 1); err != nil {
		t.Fatalf("search: %v", err)
	}
}
