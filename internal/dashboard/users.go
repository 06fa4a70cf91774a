package dashboard

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"fdiadmin/internal/console"
	"fdiadmin/internal/export"
	"fdiadmin/internal/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type usersData struct {
	Page
	Users   []models.User
	Total   int
	Search  string
	Editing *console.Editing
}

func userIDFromRequest(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["id"])
}

// usersLocation is the users page with the current search kept.
func usersLocation(view *console.UsersView) string {
	if term := view.Search(); term != "" {
		return "/users?q=" + url.QueryEscape(term)
	}
	return "/users"
}

func usersPageHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := env.usersView(r)
		if q, ok := r.URL.Query()["q"]; ok {
			view.SetSearch(q[0])
		}
		if !view.Loaded() {
			view.Reload(r.Context())
		}

		data := usersData{
			Page:   env.page(r, "Users", "users"),
			Users:  view.Visible(),
			Total:  len(view.Users()),
			Search: view.Search(),
		}
		if notice, ok := view.TakeNotice(); ok {
			data.Notice = &notice
		}
		if editing, ok := view.Editing(); ok {
			data.Editing = &editing
		}
		render(w, http.StatusOK, "users.html", data)
	}
}

func reloadUsersHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := env.usersView(r)
		view.Reload(r.Context())
		http.Redirect(w, r, usersLocation(view), http.StatusSeeOther)
	}
}

func approveHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			http.Error(w, "Invalid user ID", http.StatusBadRequest)
			return
		}

		view := env.usersView(r)
		view.Approve(r.Context(), userID)
		http.Redirect(w, r, usersLocation(view), http.StatusSeeOther)
	}
}

func changeLevelHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			http.Error(w, "Invalid user ID", http.StatusBadRequest)
			return
		}
		level, err := models.ParseLevel(r.FormValue("level"))
		if err != nil {
			http.Error(w, "Invalid level", http.StatusBadRequest)
			return
		}

		view := env.usersView(r)
		view.ChangeLevel(r.Context(), userID, level)
		http.Redirect(w, r, usersLocation(view), http.StatusSeeOther)
	}
}

func beginEditHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			http.Error(w, "Invalid user ID", http.StatusBadRequest)
			return
		}

		view := env.usersView(r)
		switch err = view.BeginEdit(userID); {
		case errors.Is(err, console.ErrEditInProgress):
			http.Error(w, "Save or cancel the current edit first", http.StatusConflict)
			return
		case errors.Is(err, console.ErrUnknownUser):
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		http.Redirect(w, r, usersLocation(view)+"#user-"+strconv.Itoa(userID), http.StatusSeeOther)
	}
}

func saveEditHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := env.usersView(r)

		draft := console.Draft{
			FirstName: r.FormValue("first_name"),
			LastName:  r.FormValue("last_name"),
			Phone:     r.FormValue("phone"),
			Email:     r.FormValue("email"),
			Address:   r.FormValue("address"),
			Notes:     r.FormValue("notes"),
		}
		// Without an open slot Save reports the missing edit itself.
		_ = view.UpdateDraft(draft)
		view.Save(r.Context())
		http.Redirect(w, r, usersLocation(view), http.StatusSeeOther)
	}
}

func cancelEditHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := env.usersView(r)
		view.Cancel()
		http.Redirect(w, r, usersLocation(view), http.StatusSeeOther)
	}
}

type confirmDeleteData struct {
	Page
	User models.User
}

func confirmDeleteHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			http.Error(w, "Invalid user ID", http.StatusBadRequest)
			return
		}

		view := env.usersView(r)
		for _, u := range view.Users() {
			if u.ID == userID {
				render(w, http.StatusOK, "confirm_delete.html", confirmDeleteData{
					Page: env.page(r, "Delete user", "users"),
					User: u,
				})
				return
			}
		}
		http.Error(w, "User not found", http.StatusNotFound)
	}
}

func deleteHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			http.Error(w, "Invalid user ID", http.StatusBadRequest)
			return
		}

		view := env.usersView(r)
		view.Delete(r.Context(), userID, r.FormValue("confirm") == "yes")
		http.Redirect(w, r, usersLocation(view), http.StatusSeeOther)
	}
}

func exportUsersHandler(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := env.usersView(r)
		if !view.Loaded() {
			view.Reload(r.Context())
		}

		var buf bytes.Buffer
		if err := export.WriteUsers(&buf, view.Visible()); err != nil {
			log.Printf("Error exporting users: %v", err)
			http.Error(w, "Error exporting users", http.StatusInternalServerError)
			return
		}

		name := fmt.Sprintf("users_%s.xlsx", time.Now().Format("20060102_150405"))
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		if _, err := w.Write(buf.Bytes()); err != nil {
			log.Printf("Error writing export: %v", err)
		}
	}
}
