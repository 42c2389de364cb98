package proposals

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coparent/rota/core/events"
	"github.com/coparent/rota/core/preview"
	"github.com/coparent/rota/core/proposal"
	"github.com/coparent/rota/core/rebalance"
)

func newTestServer(t *testing.T) (*httptest.Server, *[]events.ProposalEvent) {
	t.Helper()
	cfg := rebalance.Config{GuardianA: "alice", GuardianB: "bob"}
	cfg.SetDefaults()
	stage := preview.NewStage(rebalance.New(cfg, nil), nil, nil)
	workflow := proposal.NewWorkflow(proposal.NewMemoryStore(), 0, nil)

	var published []events.ProposalEvent
	h := NewHandler(workflow, stage, cfg, func(ev events.ProposalEvent) { published = append(published, ev) })
	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &published
}

const createBody = `{
	"createdBy": "bob",
	"title": "work trip",
	"calendar": [
		{"date":"2024-06-01","assignedTo":"alice"},
		{"date":"2024-06-02","assignedTo":"alice"},
		{"date":"2024-06-03","assignedTo":"alice"},
		{"date":"2024-06-04","assignedTo":"bob"},
		{"date":"2024-06-05","assignedTo":"bob"},
		{"date":"2024-06-06","assignedTo":"bob"},
		{"date":"2024-06-07","assignedTo":"alice"},
		{"date":"2024-06-08","assignedTo":"alice"},
		{"date":"2024-06-09","assignedTo":"alice"}
	],
	"disruptions": {"2024-06-04": "bob"}
}`

func createProposal(t *testing.T, srv *httptest.Server) proposal.Proposal {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/proposals", "application/json", strings.NewReader(createBody))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", resp.StatusCode)
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || env.Proposal == nil {
		t.Fatalf("bad envelope %+v", env)
	}
	return *env.Proposal
}

func postJSON(t *testing.T, url, body string) (*http.Response, envelope) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp, env
}

func TestCreateAndGet(t *testing.T) {
	srv, published := newTestServer(t)
	p := createProposal(t, srv)
	if p.Status != proposal.StatusPending {
		t.Fatalf("expected pending, got %s", p.Status)
	}
	if len(p.DisruptedDates) != 1 || p.DisruptedDates[0] != "2024-06-04" {
		t.Fatalf("disrupted dates lost: %+v", p.DisruptedDates)
	}
	if day, _ := p.ProposedCalendar.At("2024-06-04"); day.AssignedTo != "alice" {
		t.Fatalf("proposed calendar not rebalanced: %+v", day)
	}

	resp, err := http.Get(srv.URL + "/api/proposals/" + p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d", resp.StatusCode)
	}
	if len(*published) != 1 || (*published)[0].Status != "pending" {
		t.Fatalf("create event missing: %+v", *published)
	}
}

func TestAcceptFlow(t *testing.T) {
	srv, published := newTestServer(t)
	p := createProposal(t, srv)

	resp, env := postJSON(t, fmt.Sprintf("%s/api/proposals/%s/accept", srv.URL, p.ID), `{"reviewer":"alice"}`)
	if resp.StatusCode != http.StatusOK || !env.Success {
		t.Fatalf("accept failed: %d %+v", resp.StatusCode, env)
	}
	if env.Proposal.Status != proposal.StatusAccepted {
		t.Fatalf("status %s", env.Proposal.Status)
	}
	if last := (*published)[len(*published)-1]; last.Status != "accepted" || last.Actor != "alice" {
		t.Fatalf("accept event wrong: %+v", last)
	}
}

func TestSelfReviewForbidden(t *testing.T) {
	srv, _ := newTestServer(t)
	p := createProposal(t, srv)

	resp, env := postJSON(t, fmt.Sprintf("%s/api/proposals/%s/accept", srv.URL, p.ID), `{"reviewer":"bob"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if env.Success || env.Error == "" {
		t.Fatalf("error envelope missing: %+v", env)
	}
}

func TestDoubleResolveConflicts(t *testing.T) {
	srv, _ := newTestServer(t)
	p := createProposal(t, srv)

	if resp, _ := postJSON(t, fmt.Sprintf("%s/api/proposals/%s/accept", srv.URL, p.ID), `{"reviewer":"alice"}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("first accept status %d", resp.StatusCode)
	}
	resp, env := postJSON(t, fmt.Sprintf("%s/api/proposals/%s/reject", srv.URL, p.ID), `{"reviewer":"alice","reason":"late"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if !strings.Contains(env.Error, "accepted") {
		t.Fatalf("error should name the current state: %q", env.Error)
	}
}

func TestWithdrawByCreator(t *testing.T) {
	srv, _ := newTestServer(t)
	p := createProposal(t, srv)

	resp, env := postJSON(t, fmt.Sprintf("%s/api/proposals/%s/withdraw", srv.URL, p.ID), `{"reviewer":"bob"}`)
	if resp.StatusCode != http.StatusOK || env.Proposal.Status != proposal.StatusWithdrawn {
		t.Fatalf("withdraw failed: %d %+v", resp.StatusCode, env)
	}
}

func TestUnknownProposal(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/proposals/does-not-exist")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestListEnvelope(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/proposals")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || env.Proposals == nil {
		t.Fatalf("expected empty list envelope, got %+v", env)
	}
}
