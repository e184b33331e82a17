package api

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"linkedin-harvester/internal/database"
	"linkedin-harvester/internal/harvester"
	"linkedin-harvester/internal/monitoring"
	"linkedin-harvester/pkg/types"
)

type Server struct {
	harvester *harvester.Harvester
	db        *database.DB // nil when the archive is disabled
	monitor   *monitoring.Monitor
	logger    *logrus.Logger
	port      string

	mu   sync.RWMutex
	runs map[string]*runEntry
}

// runEntry is the completed snapshot of one run, kept so results can be
// re-fetched and downloaded after the run ends. Each run owns its own entry;
// nothing here is shared between runs.
type runEntry struct {
	Result  *types.RunResult      `json:"result"`
	Records []types.ContactRecord `json:"records"`
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Count   int         `json:"count,omitempty"`
}

type ExtractRequest struct {
	RunID    string `json:"run_id,omitempty"`
	PostURL  string `json:"post_url"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

func NewServer(h *harvester.Harvester, db *database.DB, monitor *monitoring.Monitor, logger *logrus.Logger, port string) *Server {
	return &Server{
		harvester: h,
		db:        db,
		monitor:   monitor,
		logger:    logger,
		port:      port,
		runs:      make(map[string]*runEntry),
	}
}

func (s *Server) Start() error {
	mux := s.Routes()
	s.logger.Infof("Starting API server on port %s", s.port)
	return http.ListenAndServe(":"+s.port, mux)
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.corsMiddleware(s.handleRoot))
	mux.HandleFunc("/api/extract", s.corsMiddleware(s.handleExtract))
	mux.HandleFunc("/api/runs/", s.corsMiddleware(s.handleRuns))
	mux.HandleFunc("/api/archive/", s.corsMiddleware(s.handleArchive))
	mux.HandleFunc("/api/stats", s.corsMiddleware(s.handleStats))
	mux.HandleFunc("/api/health", s.corsMiddleware(s.handleHealth))
	return mux
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	response := APIResponse{
		Success: true,
		Data: map[string]string{
			"message":   "LinkedIn Comment Harvester API",
			"version":   "1.0.0",
			"endpoints": "/api/extract, /api/runs/{id}, /api/runs/{id}/download, /api/archive/runs, /api/archive/runs/{id}, /api/stats, /api/health",
		},
	}
	s.writeJSON(w, response)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.PostURL == "" {
		s.writeError(w, "post_url is required", http.StatusBadRequest)
		return
	}

	runID := req.RunID
	if runID == "" {
		runID = fmt.Sprintf("run_%d", time.Now().UnixNano())
	}

	start := time.Now()
	// The request context doubles as the cooperative cancel signal: a client
	// disconnect stops the loop at its next iteration.
	result, err := s.harvester.Run(r.Context(), harvester.Request{
		RunID:    runID,
		PostURL:  req.PostURL,
		Email:    req.Email,
		Password: req.Password,
	})

	records := s.loadRecords(runID, result)
	entry := &runEntry{Result: result, Records: records}

	s.mu.Lock()
	s.runs[runID] = entry
	s.mu.Unlock()

	if s.monitor != nil {
		s.monitor.RecordRun(runID, result.EmailsFound, time.Since(start), err != nil)
	}

	if err != nil {
		s.logger.Errorf("Run %s failed: %v", runID, err)
		s.writeJSONStatus(w, APIResponse{
			Success: false,
			Data:    entry,
			Error:   result.Error,
		}, http.StatusBadGateway)
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    entry,
		Count:   result.EmailsFound,
	})
}

// loadRecords reads a finished run's records back from the sink file so the
// API can return and export them. A missing file just means no results.
func (s *Server) loadRecords(runID string, result *types.RunResult) []types.ContactRecord {
	if result == nil || result.ResultFile == "" {
		return nil
	}
	records, err := harvester.ReadResultFile(result.ResultFile)
	if err != nil {
		s.logger.Debugf("No result file for run %s: %v", runID, err)
		return nil
	}
	return records
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if rest == "" {
		s.writeError(w, "Run ID is required", http.StatusBadRequest)
		return
	}

	parts := strings.SplitN(rest, "/", 2)
	runID := parts[0]

	s.mu.RLock()
	entry, ok := s.runs[runID]
	s.mu.RUnlock()
	if !ok {
		s.writeError(w, fmt.Sprintf("Unknown run: %s", runID), http.StatusNotFound)
		return
	}

	if len(parts) == 2 && parts[1] == "download" {
		s.handleDownload(w, r, entry)
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    entry,
		Count:   len(entry.Records),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, entry *runEntry) {
	if len(entry.Records) == 0 {
		s.writeError(w, "No data to download", http.StatusBadRequest)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=contacts.csv")

		writer := csv.NewWriter(w)
		writer.Write([]string{"Name", "Email"})
		for _, rec := range entry.Records {
			writer.Write([]string{rec.DisplayName, rec.Email})
		}
		writer.Flush()

	case "txt":
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("Content-Disposition", "attachment; filename=contacts.txt")

		var lines []string
		for _, rec := range entry.Records {
			lines = append(lines, fmt.Sprintf("%s - %s", rec.DisplayName, rec.Email))
		}
		w.Write([]byte(strings.Join(lines, "\n") + "\n"))

	default:
		s.writeError(w, fmt.Sprintf("Unsupported format: %s", format), http.StatusBadRequest)
	}
}

// handleArchive serves the Postgres-backed views of past runs: a summary
// listing and per-run contact detail. Only available when the archive is
// enabled; the flat-file sink remains the authoritative result location.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeError(w, "Archive not enabled", http.StatusNotFound)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/archive/")
	switch {
	case rest == "runs":
		summaries, err := s.db.GetRunSummaries(parseLimit(r, 50))
		if err != nil {
			s.logger.Errorf("Failed to list archived runs: %v", err)
			s.writeError(w, "Failed to list archived runs", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, APIResponse{Success: true, Data: summaries, Count: len(summaries)})

	case strings.HasPrefix(rest, "runs/"):
		runID := strings.TrimPrefix(rest, "runs/")
		if runID == "" {
			s.writeError(w, "Run ID is required", http.StatusBadRequest)
			return
		}
		contacts, err := s.db.GetContactsByRun(runID, parseLimit(r, 1000))
		if err != nil {
			s.logger.Errorf("Failed to fetch archived contacts for %s: %v", runID, err)
			s.writeError(w, "Failed to fetch archived contacts", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, APIResponse{Success: true, Data: contacts, Count: len(contacts)})

	default:
		s.writeError(w, "Not found", http.StatusNotFound)
	}
}

func parseLimit(r *http.Request, defaultLimit int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultLimit
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.monitor == nil {
		s.writeError(w, "Metrics not enabled", http.StatusNotFound)
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    s.monitor.GetMetrics(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var data map[string]interface{}
	if s.monitor != nil {
		data = s.monitor.GetHealthStatus()
	} else {
		data = map[string]interface{}{"status": "healthy"}
	}
	data["timestamp"] = time.Now().Format(time.RFC3339)

	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			s.writeError(w, "Database connection failed", http.StatusServiceUnavailable)
			return
		}
		data["database"] = "connected"
		if count, err := s.db.CountContacts(); err == nil {
			data["archived_contacts"] = count
		}
	}

	s.writeJSON(w, APIResponse{Success: true, Data: data})
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeJSONStatus(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSONStatus(w, APIResponse{Success: false, Error: message}, statusCode)
}
