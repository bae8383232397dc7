package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"theta_preview/native/internal/domain"
)

// MockServer is a stateful fake of the camera's command endpoint.
type MockServer struct {
	*httptest.Server

	mu            sync.Mutex
	options       map[string]any
	settings      map[string]any
	state         map[string]any
	shootingPolls int               // polls answering "shooting" after each takePicture
	remaining     int               // polls left in the current capture
	failures      map[string]int    // command name -> HTTP status to answer with
	bodies        map[string]string // command name -> raw 200 body
	commands      []string
	requests      []map[string]any
}

// NewMockServer starts a mock camera with realistic default values.
func NewMockServer() *MockServer {
	m := &MockServer{
		options: map[string]any{
			"exposureProgram":      2,
			"iso":                  100,
			"shutterSpeed":         0.01666666,
			"whiteBalance":         "auto",
			"_colorTemperature":    5000,
			"exposureCompensation": 0,
			"_filter":              "off",
		},
		settings: map[string]any{
			"_shutterVolume":    100,
			"fileFormat":        map[string]any{"type": "jpeg", "width": 5376, "height": 2688},
			"remainingPictures": 1234,
		},
		state:    map[string]any{"batteryLevel": 0.87, "_batteryState": "disconnect"},
		failures: make(map[string]int),
		bodies:   make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CommandPath, m.handleCommand)
	m.Server = httptest.NewServer(mux)
	return m
}

// CommandURL is the full URL of the mock command endpoint.
func (m *MockServer) CommandURL() string {
	return m.URL + CommandPath
}

// SetShootingPolls sets how many getShootingStatus polls report "shooting"
// after a takePicture.
func (m *MockServer) SetShootingPolls(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shootingPolls = n
}

// FailCommand makes the named command answer with the given HTTP status.
// A status of 0 clears the failure.
func (m *MockServer) FailCommand(name string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == 0 {
		delete(m.failures, name)
		return
	}
	m.failures[name] = status
}

// RespondWith makes the named command answer 200 with body verbatim.
// An empty body restores the normal answer.
func (m *MockServer) RespondWith(name, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if body == "" {
		delete(m.bodies, name)
		return
	}
	m.bodies[name] = body
}

// SetOption overrides one camera option.
func (m *MockServer) SetOption(name string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options[name] = value
}

// Option returns the current value of one camera option.
func (m *MockServer) Option(name string) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.options[name]
}

// Setting returns the current value of one camera setting.
func (m *MockServer) Setting(name string) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings[name]
}

// Commands returns the command names received so far, in order.
func (m *MockServer) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

// Requests returns the decoded request bodies received so far, in order.
func (m *MockServer) Requests() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]any(nil), m.requests...)
}

// Count returns how many times the named command was received.
func (m *MockServer) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.commands {
		if c == name {
			n++
		}
	}
	return n
}

func (m *MockServer) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Name       string          `json:"name"`
		Parameters json.RawMessage `json:"parameters"`
	}
	var raw map[string]any
	body, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(body, &raw)
	}
	if err == nil {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.commands = append(m.commands, req.Name)
	m.requests = append(m.requests, raw)
	status, failing := m.failures[req.Name]
	canned, hasCanned := m.bodies[req.Name]
	m.mu.Unlock()

	if failing {
		w.WriteHeader(status)
		return
	}
	if hasCanned {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = io.WriteString(w, canned)
		return
	}

	var params struct {
		Options     map[string]any `json:"options"`
		OptionNames []string       `json:"optionNames"`
	}
	if len(req.Parameters) > 0 {
		_ = json.Unmarshal(req.Parameters, &params)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch req.Name {
	case CmdTakePicture:
		m.remaining = m.shootingPolls
		writeJSON(w, map[string]any{"name": req.Name, "state": "done"})
	case CmdGetShootingStatus:
		status := domain.ShootingStatusIdle
		if m.remaining > 0 {
			m.remaining--
			status = domain.ShootingStatusShooting
		}
		writeJSON(w, map[string]any{"status": status})
	case CmdSetOptions:
		for k, v := range params.Options {
			m.options[k] = v
		}
		writeJSON(w, map[string]any{"name": req.Name, "state": "done"})
	case CmdGetOptions:
		writeJSON(w, map[string]any{"results": map[string]any{"options": pick(m.options, params.OptionNames)}})
	case CmdSetSettings:
		for k, v := range params.Options {
			m.settings[k] = v
		}
		writeJSON(w, map[string]any{"name": req.Name, "state": "done"})
	case CmdGetSettings:
		writeJSON(w, map[string]any{"results": map[string]any{"options": pick(m.settings, params.OptionNames)}})
	case CmdGetStatus:
		writeJSON(w, map[string]any{"state": m.state})
	case CmdStartLivePreview, CmdStopLivePreview:
		writeJSON(w, map[string]any{"name": req.Name, "state": "done"})
	default:
		writeJSON(w, map[string]any{"name": "unknown", "state": "error"})
	}
}

func pick(src map[string]any, names []string) map[string]any {
	out := make(map[string]any, len(names))
	for _, n := range names {
		if v, ok := src[n]; ok {
			out[n] = v
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}
