package dashboard

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"fdiadmin/internal/console"
	"fdiadmin/internal/models"
)

type contentsData struct {
	Page
	Items []models.Content
}

func contentsPageHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := env.contentsView(r)
		if !view.Loaded() {
			view.Reload(r.Context())
		}

		data := contentsData{
			Page:  env.page(r, "Contents", "contents"),
			Items: view.Items(),
		}
		if notice, ok := view.TakeNotice(); ok {
			data.Notice = &notice
		}
		render(w, http.StatusOK, "contents.html", data)
	}
}

func reloadContentsHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env.contentsView(r).Reload(r.Context())
		http.Redirect(w, r, "/contents", http.StatusSeeOther)
	}
}

func publishHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}

		pub := console.Publication{
			Title: r.PostForm.Get("title"),
			Body:  r.PostForm.Get("body"),
			Link:  r.PostForm.Get("link"),
		}
		for _, raw := range r.PostForm["levels"] {
			level, err := models.ParseLevel(raw)
			if err != nil {
				http.Error(w, "Invalid level", http.StatusBadRequest)
				return
			}
			pub.Levels = append(pub.Levels, level)
		}

		env.contentsView(r).Publish(r.Context(), pub)
		http.Redirect(w, r, "/contents", http.StatusSeeOther)
	}
}

func notifyHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID, err := strconv.Atoi(mux.Vars(r)["id"])
		if err != nil {
			http.Error(w, "Invalid content ID", http.StatusBadRequest)
			return
		}
		level, err := models.ParseLevel(r.FormValue("level"))
		if err != nil {
			http.Error(w, "Invalid level", http.StatusBadRequest)
			return
		}

		env.contentsView(r).Notify(r.Context(), contentID, level)
		http.Redirect(w, r, "/contents", http.StatusSeeOther)
	}
}
