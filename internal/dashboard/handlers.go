package dashboard

import (
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"

	"fdiadmin/internal/auth"
	"fdiadmin/internal/backend"
	"fdiadmin/internal/console"
	"fdiadmin/internal/models"
	"fdiadmin/internal/uptime"
)

var (
	templates   *template.Template
	templatesMu sync.RWMutex
)

func InitTemplates(t *template.Template) {
	templatesMu.Lock()
	defer templatesMu.Unlock()
	templates = t
}

// ParseTemplates parses the console pages from fsys.
func ParseTemplates(fsys fs.FS) (*template.Template, error) {
	funcMap := template.FuncMap{
		"csrfField":   csrf.TemplateField,
		"csrfToken":   csrf.Token,
		"deref":       models.Deref,
		"levels":      func() []models.Level { return models.Levels },
		"notifyLevel": notifyLevel,
	}
	return template.New("").Funcs(funcMap).ParseFS(fsys, "internal/dashboard/templates/*.html")
}

// notifyLevel preselects the lowest level a content targets, or none.
func notifyLevel(targets []models.Level) models.Level {
	for _, l := range models.Levels {
		for _, t := range targets {
			if t == l {
				return l
			}
		}
	}
	return 0
}

type BackendStatus interface {
	Last() uptime.Status
}

// Env is what the console handlers share.
type Env struct {
	Store      auth.Store
	API        *backend.Client
	Workspaces *console.Workspaces
	Recorder   console.ActionRecorder
	Backend    BackendStatus
}

func (e *Env) usersView(r *http.Request) *console.UsersView {
	session := auth.SessionFromContext(r.Context())
	return e.Workspaces.Users(session.ID, func() *console.UsersView {
		return console.NewUsersView(e.API.WithToken(session.Token), e.Recorder)
	})
}

func (e *Env) contentsView(r *http.Request) *console.ContentsView {
	session := auth.SessionFromContext(r.Context())
	return e.Workspaces.Contents(session.ID, func() *console.ContentsView {
		return console.NewContentsView(e.API.WithToken(session.Token), e.Recorder)
	})
}

// Page is the part of every template's data the layout reads.
type Page struct {
	Title   string
	Nav     string
	Backend uptime.Status
	Notice  *console.Result
	Request *http.Request
}

func (e *Env) page(r *http.Request, title, nav string) Page {
	p := Page{Title: title, Nav: nav, Request: r}
	if e.Backend != nil {
		p.Backend = e.Backend.Last()
	}
	return p
}

func render(w http.ResponseWriter, status int, name string, data interface{}) {
	templatesMu.RLock()
	t := templates
	templatesMu.RUnlock()

	if t == nil {
		log.Println("Templates not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("Error rendering %s: %v", name, err)
	}
}

func RegisterHandlers(r *mux.Router, env *Env) {
	r.HandleFunc("/", gateHandler(env)).Methods("GET")
	r.HandleFunc("/login", loginPageHandler(env)).Methods("GET")
	r.HandleFunc("/login", loginHandler(env)).Methods("POST")
	r.HandleFunc("/logout", logoutHandler(env)).Methods("POST")

	usersRouter := r.PathPrefix("/users").Subrouter()
	usersRouter.Use(auth.RequireSession(env.Store, "/login"))
	usersRouter.HandleFunc("", usersPageHandler(env)).Methods("GET")
	usersRouter.HandleFunc("/reload", reloadUsersHandler(env)).Methods("POST")
	usersRouter.HandleFunc("/export.xlsx", exportUsersHandler(env)).Methods("GET")
	usersRouter.HandleFunc("/edit/save", saveEditHandler(env)).Methods("POST")
	usersRouter.HandleFunc("/edit/cancel", cancelEditHandler(env)).Methods("POST")
	usersRouter.HandleFunc("/{id:[0-9]+}/approve", approveHandler(env)).Methods("POST")
	usersRouter.HandleFunc("/{id:[0-9]+}/level", changeLevelHandler(env)).Methods("POST")
	usersRouter.HandleFunc("/{id:[0-9]+}/edit", beginEditHandler(env)).Methods("POST")
	usersRouter.HandleFunc("/{id:[0-9]+}/delete", confirmDeleteHandler(env)).Methods("GET")
	usersRouter.HandleFunc("/{id:[0-9]+}/delete", deleteHandler(env)).Methods("POST")

	contentsRouter := r.PathPrefix("/contents").Subrouter()
	contentsRouter.Use(auth.RequireSession(env.Store, "/login"))
	contentsRouter.HandleFunc("", contentsPageHandler(env)).Methods("GET")
	contentsRouter.HandleFunc("/reload", reloadContentsHandler(env)).Methods("POST")
	contentsRouter.HandleFunc("/publish", publishHandler(env)).Methods("POST")
	contentsRouter.HandleFunc("/{id:[0-9]+}/notify", notifyHandler(env)).Methods("POST")
}

// gateHandler sends visitors with a stored token to the users page and everyone else to login.
// The token is not checked against the API here.
func gateHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := env.Store.Load(r); err == nil {
			http.Redirect(w, r, "/users", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

type loginData struct {
	Page
	Error string
}

func loginPageHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := env.Store.Load(r); err == nil {
			http.Redirect(w, r, "/users", http.StatusSeeOther)
			return
		}
		render(w, http.StatusOK, "login.html", loginData{Page: env.page(r, "Login", "login")})
	}
}

func loginHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form console.LoginForm
		token, ok := form.Submit(r.Context(), env.API, r.FormValue("password"))
		if !ok {
			data := loginData{Page: env.page(r, "Login", "login"), Error: form.Error()}
			status := http.StatusUnauthorized
			if form.State() != console.LoginFailed {
				data.Error = "Password is required"
				status = http.StatusBadRequest
			}
			render(w, status, "login.html", data)
			return
		}

		if _, err := env.Store.Save(w, r, token); err != nil {
			log.Printf("Error creating session: %v", err)
			http.Error(w, "Error creating session", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/users", http.StatusSeeOther)
	}
}

// logoutHandler forgets the token whatever state the session is in.
func logoutHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if session, err := env.Store.Load(r); err == nil {
			env.Workspaces.Drop(session.ID)
		}
		if err := env.Store.Clear(w, r); err != nil {
			log.Printf("Error clearing session: %v", err)
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}
