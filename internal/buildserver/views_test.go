package buildserver_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/waabox/opsdeck/internal/buildserver"
	"github.com/waabox/opsdeck/internal/domain"
)

// fakeView serves one view's config.xml and records pushes.
type fakeView struct {
	mu     sync.Mutex
	config string
	pushes int
	// mutateAfterGet, when set, changes the stored config right after that GET.
	mutateAfterGet int
	gets           int
}

func (f *fakeView) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.URL.Path != "/view/team/config.xml" {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			f.gets++
			w.Write([]byte(f.config))
			if f.mutateAfterGet == f.gets {
				f.config = strings.Replace(f.config, "</jobNames>", "<string>intruder</string></jobNames>", 1)
			}
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			f.config = string(body)
			f.pushes++
		}
	}
}

func (f *fakeView) snapshot() (string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config, f.pushes
}

func TestAddJobsToView_CommaListIsIdempotent(t *testing.T) {
	view := &fakeView{config: `<hudson.model.ListView><name>team</name><jobNames>a</jobNames></hudson.model.ListView>`}
	c := newTestClient(t, view.handler())

	first := c.AddJobsToView(context.Background(), "team", []string{"a", "b"})
	if !first.OK() {
		t.Fatalf("unexpected failure: %v", first.Err())
	}
	second := c.AddJobsToView(context.Background(), "team", []string{"a", "b"})
	if !second.OK() {
		t.Fatalf("unexpected failure: %v", second.Err())
	}

	cfg, pushes := view.snapshot()
	if !strings.Contains(cfg, "<jobNames>a,b</jobNames>") {
		t.Errorf("expected comma list a,b, got %s", cfg)
	}
	if pushes != 1 {
		t.Errorf("expected exactly 1 push, got %d", pushes)
	}
	if got := strings.Join(second.OrEmpty(), ","); got != "a,b" {
		t.Errorf("expected members a,b, got %s", got)
	}
}

func TestAddJobsToView_ExactMembership(t *testing.T) {
	view := &fakeView{config: `<hudson.model.ListView><jobNames>api-gateway</jobNames></hudson.model.ListView>`}
	c := newTestClient(t, view.handler())

	out := c.AddJobsToView(context.Background(), "team", []string{"api"})
	if !out.OK() {
		t.Fatalf("unexpected failure: %v", out.Err())
	}
	if got := strings.Join(out.OrEmpty(), ","); got != "api-gateway,api" {
		t.Errorf("expected api-gateway,api, got %s", got)
	}
}

func TestAddJobsToView_StringChildren(t *testing.T) {
	view := &fakeView{config: `<hudson.model.ListView>
  <jobNames>
    <comparator class="hudson.util.CaseInsensitiveComparator"/>
    <string>a</string>
  </jobNames>
</hudson.model.ListView>`}
	c := newTestClient(t, view.handler())

	for i := 0; i < 2; i++ {
		if out := c.AddJobsToView(context.Background(), "team", []string{"b", "a", "b"}); !out.OK() {
			t.Fatalf("unexpected failure: %v", out.Err())
		}
	}

	cfg, pushes := view.snapshot()
	if strings.Count(cfg, "<string>a</string>") != 1 || strings.Count(cfg, "<string>b</string>") != 1 {
		t.Errorf("expected a and b exactly once, got %s", cfg)
	}
	if !strings.Contains(cfg, "<comparator") {
		t.Errorf("expected comparator to survive, got %s", cfg)
	}
	if pushes != 1 {
		t.Errorf("expected exactly 1 push, got %d", pushes)
	}
}

func TestAddJobsToView_ConcurrentChangeIsConflict(t *testing.T) {
	view := &fakeView{
		config:         `<hudson.model.ListView><jobNames><string>a</string></jobNames></hudson.model.ListView>`,
		mutateAfterGet: 1,
	}
	c := newTestClient(t, view.handler())

	out := c.AddJobsToView(context.Background(), "team", []string{"b"})
	if out.OK() {
		t.Fatal("expected conflict")
	}
	if !errors.Is(out.Err(), domain.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", out.Err())
	}
	if _, pushes := view.snapshot(); pushes != 0 {
		t.Errorf("expected no push, got %d", pushes)
	}
	if msg := out.Message("added", "Error adding jobs to view"); !strings.HasPrefix(msg, "Error adding jobs to view: view team was modified") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestAddJobsToView_MissingViewFails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	out := c.AddJobsToView(context.Background(), "team", []string{"a"})
	if out.OK() {
		t.Fatal("expected failure")
	}
	if out.OrEmpty() != nil {
		t.Errorf("expected empty members, got %v", out.OrEmpty())
	}
	if !errors.Is(out.Err(), domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", out.Err())
	}
}

func TestCreateView_PostsListView(t *testing.T) {
	var body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/createView" || r.URL.Query().Get("name") != "team" {
			t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	})

	if err := c.CreateView(context.Background(), "team", "Team jobs"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"<hudson.model.ListView>", "<name>team</name>", "<description>Team jobs</description>", "<jobNames>"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in %s", want, body)
		}
	}
}

func TestViews(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"views":[{"name":"all","url":"http://ci/"},{"name":"team","url":"http://ci/view/team/"}]}`))
	})

	views, err := c.Views(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 2 || views[1] != (buildserver.View{Name: "team", URL: "http://ci/view/team/"}) {
		t.Errorf("unexpected views %+v", views)
	}
}

func TestViewConfig_RoundTrip(t *testing.T) {
	const cfg = `<hudson.model.ListView><name>team</name><jobNames>a</jobNames></hudson.model.ListView>`
	view := &fakeView{config: cfg}
	c := newTestClient(t, view.handler())

	got, err := c.ViewConfig(context.Background(), "team")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != cfg {
		t.Errorf("unexpected config %q", got)
	}

	updated := strings.Replace(cfg, "<jobNames>a</jobNames>", "<jobNames>a,b</jobNames>", 1)
	if err := c.ReconfigView(context.Background(), "team", updated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, pushes := view.snapshot()
	if pushes != 1 || stored != updated {
		t.Errorf("expected one push of the new config, got %d pushes, %q", pushes, stored)
	}
}

func TestDeleteView_OneRequest(t *testing.T) {
	var calls []string
	var mu sync.Mutex
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusFound)
	})

	if err := c.DeleteView(context.Background(), "team"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 || calls[0] != "POST /view/team/doDelete" {
		t.Errorf("unexpected requests %v", calls)
	}
}

func TestViewOperations_KeepRemoteDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("No view named ghost"))
	})

	_, err := c.ViewConfig(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) || domain.Detail(err) != "No view named ghost" {
		t.Errorf("unexpected view config error %v", err)
	}
	err = c.ReconfigView(context.Background(), "ghost", "<x/>")
	if !errors.Is(err, domain.ErrNotFound) || domain.Detail(err) != "No view named ghost" {
		t.Errorf("unexpected reconfig error %v", err)
	}
	err = c.DeleteView(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) || domain.Detail(err) != "No view named ghost" {
		t.Errorf("unexpected delete error %v", err)
	}
}
