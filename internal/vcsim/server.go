// Package vcsim is an in-memory stand-in for the parts of the vCenter REST
// API that guestdir talks to: API sessions and guest filesystem directories.
package vcsim

import (
	"encoding/json"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const sessionHeader = "vmware-api-session-id"

// Server holds the simulated inventory. The zero value is not usable; call New.
type Server struct {
	mu sync.Mutex

	username string
	password string

	// GuestUser and GuestPassword are the guest OS credentials every VM accepts.
	GuestUser     string
	GuestPassword string

	legacy bool

	tokens   map[string]bool
	vms      map[string]*guestFS
	forced   map[string]int // action -> status to answer with
	calls    map[string]int
	requests []Request
}

// guestFS is the content of one VM's guest filesystem.
type guestFS struct {
	dirs  map[string]bool
	files map[string]bool
}

// Request records one call the server received.
type Request struct {
	Method string
	Path   string
	Action string
	Body   map[string]any
}

// New creates a server accepting the given management-plane credentials.
func New(username, password string) *Server {
	return &Server{
		username:      username,
		password:      password,
		GuestUser:     "root",
		GuestPassword: "guest",
		tokens:        map[string]bool{},
		vms:           map[string]*guestFS{},
		forced:        map[string]int{},
		calls:         map[string]int{},
	}
}

// AddVM registers a VM whose guest already contains dirs. The root
// directory always exists.
func (s *Server) AddVM(id string, dirs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := map[string]bool{"/": true}
	for _, d := range dirs {
		set[path.Clean(d)] = true
	}
	s.vms[id] = &guestFS{dirs: set, files: map[string]bool{}}
}

// AddFile places a regular file at p in the guest of vm. Parent
// directories are not created.
func (s *Server) AddFile(vm, p string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g, ok := s.vms[vm]; ok {
		g.files[path.Clean(p)] = true
	}
}

// SetLegacy makes the server behave like vCenter before 7.0.2: /api/session
// is missing and every JSON document is wrapped in {"value": ...}.
func (s *Server) SetLegacy(legacy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.legacy = legacy
}

// HasDir reports whether dir exists in the guest of vm.
func (s *Server) HasDir(vm, dir string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.vms[vm]
	return g != nil && g.dirs[path.Clean(dir)]
}

// HasFile reports whether a regular file exists at p in the guest of vm.
func (s *Server) HasFile(vm, p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.vms[vm]
	return g != nil && g.files[path.Clean(p)]
}

// Dirs returns the sorted directory list of vm.
func (s *Server) Dirs(vm string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	g := s.vms[vm]
	if g == nil {
		return nil
	}
	for d := range g.dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// ForceStatus makes every later call of action ("create", "get", "login", ...)
// answer with status and an error document.
func (s *Server) ForceStatus(action string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced[action] = status
}

// Calls returns how many times action was requested.
func (s *Server) Calls(action string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[action]
}

// Requests returns every call received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// ExpireSessions invalidates all issued tokens.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]bool{}
}

// Handler returns the HTTP handler serving the simulated API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Post("/api/session", s.handleLogin)
	r.Get("/api/session", s.handleSessionGet)
	r.Delete("/api/session", s.handleLogout)

	r.Post("/rest/com/vmware/cis/session", s.handleLegacySession)
	r.Delete("/rest/com/vmware/cis/session", s.handleLogout)

	r.Post("/api/vcenter/vm/{vm}/guest/filesystem", s.handleFilesystem)
	r.Post("/api/vcenter/vm/{vm}/guest/filesystem/directories", s.handleDirectories)

	return r
}

func (s *Server) record(r *http.Request, action string, body map[string]any) {
	s.calls[action]++
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Action: action,
		Body:   body,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(r, "login", nil)

	if s.legacy {
		http.NotFound(w, r)
		return
	}
	if status, ok := s.forced["login"]; ok {
		s.writeError(w, status, "UNAUTHENTICATED", "forced failure")
		return
	}
	user, pass, ok := r.BasicAuth()
	if !ok || user != s.username || pass != s.password {
		s.writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required.")
		return
	}

	token := uuid.NewString()
	s.tokens[token] = true
	writeJSON(w, http.StatusCreated, token)
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(r, "session_get", nil)

	if !s.tokens[r.Header.Get(sessionHeader)] {
		s.writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required.")
		return
	}
	s.writeDoc(w, http.StatusOK, map[string]any{"user": s.username})
}

func (s *Server) handleLegacySession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.URL.Query().Get("~action") == "get" {
		s.record(r, "session_get", nil)
		if !s.tokens[r.Header.Get(sessionHeader)] {
			s.writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required.")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"value": map[string]any{"user": s.username}})
		return
	}

	s.record(r, "login", nil)
	user, pass, ok := r.BasicAuth()
	if !ok || user != s.username || pass != s.password {
		s.writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required.")
		return
	}
	token := uuid.NewString()
	s.tokens[token] = true
	writeJSON(w, http.StatusOK, map[string]any{"value": token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(r, "logout", nil)

	token := r.Header.Get(sessionHeader)
	if !s.tokens[token] {
		s.writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required.")
		return
	}
	delete(s.tokens, token)
	w.WriteHeader(http.StatusNoContent)
}

// guestRequest validates the session and guest credentials shared by all
// guest filesystem calls. It returns the VM's filesystem, or nil after
// writing an error response.
func (s *Server) guestRequest(w http.ResponseWriter, r *http.Request, action string) (*guestFS, map[string]any) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.record(r, action, body)

	if !s.tokens[r.Header.Get(sessionHeader)] {
		s.writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required.")
		return nil, nil
	}
	if status, ok := s.forced[action]; ok {
		s.writeError(w, status, "ERROR", "forced failure")
		return nil, nil
	}

	g, ok := s.vms[chi.URLParam(r, "vm")]
	if !ok {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "Virtual machine not found.")
		return nil, nil
	}

	creds, _ := body["credentials"].(map[string]any)
	if creds["user_name"] != s.GuestUser || creds["password"] != s.GuestPassword {
		s.writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Guest authentication failed.")
		return nil, nil
	}

	return g, body
}

func (s *Server) handleFilesystem(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.URL.Query().Get("action") != "get" {
		s.writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "unsupported action")
		return
	}
	g, body := s.guestRequest(w, r, "get")
	if g == nil {
		return
	}

	p, _ := body["path"].(string)
	if p == "" {
		s.writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "path is required")
		return
	}

	fileType, size := "DIRECTORY", 4096
	switch clean := path.Clean(p); {
	case g.dirs[clean]:
	case g.files[clean]:
		fileType, size = "FILE", 12
	default:
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "File "+p+" was not found.")
		return
	}

	s.writeDoc(w, http.StatusOK, map[string]any{
		"type": fileType,
		"size": size,
		"attributes": map[string]any{
			"hidden":         strings.HasPrefix(path.Base(p), "."),
			"read_only":      false,
			"symlink_target": nil,
		},
	})
}

func (s *Server) handleDirectories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action := r.URL.Query().Get("action")
	g, body := s.guestRequest(w, r, action)
	if g == nil {
		return
	}

	switch action {
	case "create":
		s.create(w, g, body)
	case "createTemporary":
		s.createTemporary(w, g, body)
	case "delete":
		s.remove(w, g, body)
	case "move":
		s.move(w, g, body)
	default:
		s.writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "unsupported action "+action)
	}
}

func (s *Server) create(w http.ResponseWriter, g *guestFS, body map[string]any) {
	p, _ := body["path"].(string)
	if p == "" {
		s.writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "path is required")
		return
	}
	p = path.Clean(p)
	if g.dirs[p] || g.files[p] {
		s.writeError(w, http.StatusBadRequest, "ALREADY_EXISTS", "File "+p+" already exists.")
		return
	}

	parents, _ := body["create_parents"].(bool)
	if !g.dirs[path.Dir(p)] && !parents {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "Parent directory of "+p+" was not found.")
		return
	}
	for d := path.Dir(p); !g.dirs[d]; d = path.Dir(d) {
		if g.files[d] {
			s.writeError(w, http.StatusBadRequest, "NOT_A_DIRECTORY", d+" is not a directory.")
			return
		}
	}
	for d := p; !g.dirs[d]; d = path.Dir(d) {
		g.dirs[d] = true
	}

	s.writeDoc(w, http.StatusCreated, p)
}

func (s *Server) createTemporary(w http.ResponseWriter, g *guestFS, body map[string]any) {
	parent, _ := body["parent_path"].(string)
	if parent == "" {
		parent = "/tmp"
	}
	parent = path.Clean(parent)
	if !g.dirs[parent] {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "Directory "+parent+" was not found.")
		return
	}

	prefix, _ := body["prefix"].(string)
	suffix, _ := body["suffix"].(string)
	p := path.Join(parent, prefix+uuid.NewString()[:8]+suffix)
	g.dirs[p] = true

	s.writeDoc(w, http.StatusCreated, p)
}

func (s *Server) remove(w http.ResponseWriter, g *guestFS, body map[string]any) {
	p, _ := body["path"].(string)
	p = path.Clean(p)
	if g.files[p] {
		s.writeError(w, http.StatusBadRequest, "NOT_A_DIRECTORY", p+" is not a directory.")
		return
	}
	if p == "/" || !g.dirs[p] {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "Directory "+p+" was not found.")
		return
	}

	subdirs, files := descendants(g.dirs, p), descendants(g.files, p)
	recursive, _ := body["recursive"].(bool)
	if len(subdirs)+len(files) > 0 && !recursive {
		s.writeError(w, http.StatusBadRequest, "NOT_ALLOWED_IN_CURRENT_STATE", "Directory "+p+" is not empty.")
		return
	}

	for _, c := range subdirs {
		delete(g.dirs, c)
	}
	for _, c := range files {
		delete(g.files, c)
	}
	delete(g.dirs, p)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) move(w http.ResponseWriter, g *guestFS, body map[string]any) {
	src, _ := body["path"].(string)
	dst, _ := body["new_path"].(string)
	src, dst = path.Clean(src), path.Clean(dst)

	if g.files[src] {
		s.writeError(w, http.StatusBadRequest, "NOT_A_DIRECTORY", src+" is not a directory.")
		return
	}
	if !g.dirs[src] {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "Directory "+src+" was not found.")
		return
	}
	if g.dirs[dst] || g.files[dst] {
		s.writeError(w, http.StatusBadRequest, "ALREADY_EXISTS", "File "+dst+" already exists.")
		return
	}
	if !g.dirs[path.Dir(dst)] {
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", "Parent directory of "+dst+" was not found.")
		return
	}

	for _, set := range []map[string]bool{g.dirs, g.files} {
		for _, c := range descendants(set, src) {
			delete(set, c)
			set[dst+strings.TrimPrefix(c, src)] = true
		}
	}
	delete(g.dirs, src)
	g.dirs[dst] = true
	w.WriteHeader(http.StatusNoContent)
}

func descendants(set map[string]bool, p string) []string {
	prefix := strings.TrimSuffix(p, "/") + "/"
	var out []string
	for d := range set {
		if strings.HasPrefix(d, prefix) {
			out = append(out, d)
		}
	}
	return out
}

// writeDoc writes v, wrapped in {"value": ...} when emulating an old release.
func (s *Server) writeDoc(w http.ResponseWriter, status int, v any) {
	if s.legacy {
		v = map[string]any{"value": v}
	}
	writeJSON(w, status, v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, errorType, message string) {
	s.writeDoc(w, status, map[string]any{
		"error_type": errorType,
		"messages": []map[string]any{{
			"id":              "vapi.guest." + strings.ToLower(errorType),
			"default_message": message,
			"args":            []string{},
		}},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
