package buildserver_test

import (
	"net/http"
	"testing"

	"github.com/waabox/opsdeck/internal/buildserver"
	"github.com/waabox/opsdeck/internal/domain"
)

var repo = domain.Repository{Owner: "waabox", Name: "api"}

func TestPipelineSource_ListPipelinesHonoursLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/job/api/api/json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"builds":[
			{"number":3,"building":true,"timestamp":1700000000000},
			{"number":2,"result":"FAILURE","duration":60000},
			{"number":1,"result":"SUCCESS","duration":30000}
		]}`))
	})

	pipelines, err := buildserver.NewPipelineSource(c, "", 2).ListPipelines(repo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pipelines) != 2 {
		t.Fatalf("expected 2 pipelines, got %d", len(pipelines))
	}
	if pipelines[0].ID != "3" || pipelines[0].Status != domain.StatusRunning {
		t.Errorf("unexpected first pipeline %+v", pipelines[0])
	}
	if pipelines[1].Status != domain.StatusFailed {
		t.Errorf("expected failed, got '%s'", pipelines[1].Status)
	}
}

func TestPipelineSource_GetPipelineWithStages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/job/deploy/5/api/json":
			w.Write([]byte(`{"number":5,"result":"SUCCESS","duration":90000}`))
		case "/job/deploy/5/wfapi/describe":
			w.Write([]byte(`{"stages":[
				{"id":"6","name":"Build","status":"SUCCESS","durationMillis":40000},
				{"id":"12","name":"Deploy","status":"NOT_EXECUTED"}
			]}`))
		default:
			http.NotFound(w, r)
		}
	})

	p, err := buildserver.NewPipelineSource(c, "deploy", 5).GetPipeline(repo, "5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(p.Jobs))
	}
	if p.Jobs[0].ID != "5/6" || p.Jobs[0].Status != domain.StatusSuccess {
		t.Errorf("unexpected first job %+v", p.Jobs[0])
	}
	if p.Jobs[1].Status != domain.StatusCancelled {
		t.Errorf("expected cancelled, got '%s'", p.Jobs[1].Status)
	}
}

func TestPipelineSource_GetPipelineWithoutStageView(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/job/api/9/api/json" {
			w.Write([]byte(`{"number":9,"result":"ABORTED"}`))
			return
		}
		http.NotFound(w, r)
	})

	p, err := buildserver.NewPipelineSource(c, "", 5).GetPipeline(repo, "9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Jobs) != 1 || p.Jobs[0].ID != "9/build" || p.Jobs[0].Status != domain.StatusCancelled {
		t.Errorf("unexpected jobs %+v", p.Jobs)
	}
}

func TestPipelineSource_GetJobLogsUsesBuildConsole(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/job/api/9/consoleText" {
			w.Write([]byte("Finished: ABORTED"))
			return
		}
		http.NotFound(w, r)
	})

	logs, err := buildserver.NewPipelineSource(c, "", 5).GetJobLogs(repo, "9/12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logs != "Finished: ABORTED" {
		t.Errorf("unexpected logs %q", logs)
	}
}

func TestPipelineSource_CancelStopsBuild(t *testing.T) {
	stopped := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/job/api/9/stop" {
			stopped = true
			return
		}
		http.NotFound(w, r)
	})

	if err := buildserver.NewPipelineSource(c, "", 5).CancelPipeline(repo, "9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stopped {
		t.Error("expected stop request")
	}
}

func TestPipelineSource_InvalidBuildNumber(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	if _, err := buildserver.NewPipelineSource(c, "", 5).GetPipeline(repo, "abc"); err == nil {
		t.Error("expected error for non-numeric build id")
	}
}
