package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vk/pipecanvas/internal/schedule"
)

// SchedulerServer is an in-memory fake of the scheduler service's REST
// surface, good enough for session and app level tests.
type SchedulerServer struct {
	mu        sync.Mutex
	schedules []schedule.Schedule
	runs      map[string][]schedule.RunSummary
	details   map[string]*schedule.RunDetail
	actions   []string

	srv *httptest.Server
}

// NewSchedulerServer starts the fake. Callers own Close.
func NewSchedulerServer() *SchedulerServer {
	s := &SchedulerServer{
		runs:    make(map[string][]schedule.RunSummary),
		details: make(map[string]*schedule.RunDetail),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the base URL of the fake service.
func (s *SchedulerServer) URL() string { return s.srv.URL }

// Close shuts the fake down.
func (s *SchedulerServer) Close() { s.srv.Close() }

// SeedRun registers a run summary and its detail for a job.
func (s *SchedulerServer) SeedRun(jobID string, summary schedule.RunSummary, logs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary.JobID = jobID
	s.runs[jobID] = append([]schedule.RunSummary{summary}, s.runs[jobID]...)
	s.details[summary.ID] = &schedule.RunDetail{RunSummary: summary, Logs: logs}
}

// Actions returns the pause/resume/run-now/delete calls observed, as
// "action jobID" strings in arrival order.
func (s *SchedulerServer) Actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.actions))
	copy(out, s.actions)
	return out
}

// Schedules returns the stored schedules.
func (s *SchedulerServer) Schedules() []schedule.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schedule.Schedule, len(s.schedules))
	copy(out, s.schedules)
	return out
}

func (s *SchedulerServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	path := strings.TrimPrefix(r.URL.Path, "/pipeline/schedules")
	switch {
	case path == "" && r.Method == http.MethodPost:
		var created schedule.Schedule
		if err := json.NewDecoder(r.Body).Decode(&created); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		created.ID = "job-" + uuid.NewString()[:8]
		s.schedules = append(s.schedules, created)
		json.NewEncoder(w).Encode(created)
	case path == "" && r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(s.schedules)
	case strings.HasPrefix(path, "/runs/") && r.Method == http.MethodGet:
		runID := strings.TrimPrefix(path, "/runs/")
		detail, ok := s.details[runID]
		if !ok {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(detail)
	case strings.HasSuffix(path, "/runs") && r.Method == http.MethodGet:
		jobID := strings.Trim(strings.TrimSuffix(path, "/runs"), "/")
		list := s.runs[jobID]
		if list == nil {
			list = []schedule.RunSummary{}
		}
		json.NewEncoder(w).Encode(list)
	case r.Method == http.MethodDelete:
		jobID := strings.Trim(path, "/")
		s.actions = append(s.actions, "delete "+jobID)
		for i, sched := range s.schedules {
			if sched.ID == jobID {
				s.schedules = append(s.schedules[:i], s.schedules[i+1:]...)
				break
			}
		}
	case r.Method == http.MethodPost:
		parts := strings.Split(strings.Trim(path, "/"), "/")
		if len(parts) != 2 {
			http.NotFound(w, r)
			return
		}
		s.actions = append(s.actions, parts[1]+" "+parts[0])
	default:
		http.NotFound(w, r)
	}
}
