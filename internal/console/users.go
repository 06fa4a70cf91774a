package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"fdiadmin/internal/models"
)

var (
	ErrNotEditing     = errors.New("no user is being edited")
	ErrEditInProgress = errors.New("another user is already being edited")
	ErrUnknownUser    = errors.New("user is not in the current listing")
	ErrNotPending     = errors.New("user is not pending approval")
)

// UserService is the part of the API the users view drives.
type UserService interface {
	ListUsers(ctx context.Context, status models.Status) ([]models.User, error)
	ApproveUser(ctx context.Context, userID int, approve bool) (*models.ApproveResult, error)
	ChangeUserLevel(ctx context.Context, userID int, level models.Level) (*models.LevelChange, error)
	UpdateUser(ctx context.Context, userID int, record models.UserRecord) (json.RawMessage, error)
	DeleteUser(ctx context.Context, userID int) (*models.DeleteResult, error)
}

// Draft holds the staged text fields of the user being edited.
type Draft struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Address   string
	Notes     string
}

func DraftFrom(u models.User) Draft {
	return Draft{
		FirstName: models.Deref(u.FirstName),
		LastName:  models.Deref(u.LastName),
		Phone:     models.Deref(u.Phone),
		Email:     models.Deref(u.Email),
		Address:   models.Deref(u.Address),
		Notes:     models.Deref(u.Notes),
	}
}

// Editing is the single edit slot: which user, and the staged fields.
type Editing struct {
	UserID int
	Draft  Draft
}

// ActionRecorder counts view actions by outcome.
type ActionRecorder interface {
	RecordAction(action string, outcome string)
}

// UsersView keeps the reconciled listing and the edit slot for one admin session.
// Every mutation is followed by a full reload; the lock is never held across API calls,
// so overlapping actions may complete in any order.
type UsersView struct {
	svc      UserService
	recorder ActionRecorder

	mu      sync.Mutex
	users   []models.User
	loaded  bool
	search  string
	editing *Editing
	notice  *Result
}

func NewUsersView(svc UserService, recorder ActionRecorder) *UsersView {
	return &UsersView{svc: svc, recorder: recorder}
}

// Users returns a snapshot of the full listing.
func (v *UsersView) Users() []models.User {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.User, len(v.users))
	copy(out, v.users)
	return out
}

func (v *UsersView) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

func (v *UsersView) SetSearch(term string) {
	v.mu.Lock()
	v.search = term
	v.mu.Unlock()
}

func (v *UsersView) Search() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.search
}

// Visible is the listing narrowed by the current search term.
func (v *UsersView) Visible() []models.User {
	v.mu.Lock()
	term := v.search
	v.mu.Unlock()
	return Filter(v.Users(), term)
}

func (v *UsersView) Editing() (Editing, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.editing == nil {
		return Editing{}, false
	}
	return *v.editing, true
}

// TakeNotice returns the last action result once.
func (v *UsersView) TakeNotice() (Result, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.notice == nil {
		return Result{}, false
	}
	r := *v.notice
	v.notice = nil
	return r, true
}

// Reload fetches the full and the pending listings concurrently and replaces
// the listing once both have arrived. On failure the listing is emptied.
func (v *UsersView) Reload(ctx context.Context) Result {
	n, err := v.reload(ctx)
	if err != nil {
		return v.finish(failed("load users", err))
	}
	return succeeded("load users", "%d users loaded", n)
}

func (v *UsersView) reload(ctx context.Context) (int, error) {
	var all, pending []models.User

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = v.svc.ListUsers(gctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		pending, err = v.svc.ListUsers(gctx, models.StatusPending)
		return err
	})

	if err := g.Wait(); err != nil {
		v.mu.Lock()
		v.users = nil
		v.loaded = true
		v.mu.Unlock()
		return 0, err
	}

	merged := ComputeStatus(all, PendingIDs(pending))

	v.mu.Lock()
	v.users = merged
	v.loaded = true
	v.mu.Unlock()
	return len(merged), nil
}

func (v *UsersView) Approve(ctx context.Context, userID int) Result {
	const action = "approve"

	u, ok := v.lookup(userID)
	if !ok {
		return v.finish(failed(action, ErrUnknownUser))
	}
	if !u.IsPending() {
		return v.finish(failed(action, ErrNotPending))
	}

	if _, err := v.svc.ApproveUser(ctx, userID, true); err != nil {
		return v.finish(failed(action, err))
	}
	return v.reconcile(ctx, succeeded(action, "%s approved", u.DisplayName()))
}

// ChangeLevel commits immediately and leaves any edit draft untouched.
func (v *UsersView) ChangeLevel(ctx context.Context, userID int, level models.Level) Result {
	const action = "change level"

	if _, err := v.svc.ChangeUserLevel(ctx, userID, level); err != nil {
		return v.finish(failed(action, err))
	}
	return v.reconcile(ctx, succeeded(action, "user %d moved to level %d", userID, level))
}

// Delete issues the request only when the admin confirmed it.
func (v *UsersView) Delete(ctx context.Context, userID int, confirmed bool) Result {
	const action = "delete"

	if !confirmed {
		return v.finish(skipped(action, "deletion cancelled"))
	}
	if _, err := v.svc.DeleteUser(ctx, userID); err != nil {
		return v.finish(failed(action, err))
	}
	return v.reconcile(ctx, succeeded(action, "user %d deleted", userID))
}

// BeginEdit opens the edit slot for a listed user. Re-opening the same user is a no-op.
func (v *UsersView) BeginEdit(userID int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.editing != nil {
		if v.editing.UserID == userID {
			return nil
		}
		return ErrEditInProgress
	}
	for _, u := range v.users {
		if u.ID == userID {
			v.editing = &Editing{UserID: userID, Draft: DraftFrom(u)}
			return nil
		}
	}
	return ErrUnknownUser
}

func (v *UsersView) UpdateDraft(d Draft) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.editing == nil {
		return ErrNotEditing
	}
	v.editing.Draft = d
	return nil
}

// Cancel discards the draft without any request.
func (v *UsersView) Cancel() {
	v.mu.Lock()
	v.editing = nil
	v.mu.Unlock()
}

// Save sends the full staged record and always leaves edit mode.
func (v *UsersView) Save(ctx context.Context) Result {
	const action = "save"

	v.mu.Lock()
	slot := v.editing
	v.editing = nil
	var (
		base  models.User
		found bool
	)
	if slot != nil {
		for _, u := range v.users {
			if u.ID == slot.UserID {
				base, found = u, true
				break
			}
		}
	}
	v.mu.Unlock()

	if slot == nil {
		return v.finish(failed(action, ErrNotEditing))
	}
	if !found {
		return v.finish(failed(action, ErrUnknownUser))
	}

	record := models.UserRecord{
		ID:         base.ID,
		TelegramID: base.TelegramID,
		FirstName:  slot.Draft.FirstName,
		LastName:   slot.Draft.LastName,
		Phone:      slot.Draft.Phone,
		Email:      slot.Draft.Email,
		Address:    slot.Draft.Address,
		Notes:      slot.Draft.Notes,
		Level:      base.Level,
	}
	if _, err := v.svc.UpdateUser(ctx, base.ID, record); err != nil {
		return v.finish(failed(action, err))
	}
	return v.reconcile(ctx, succeeded(action, "user %d saved", base.ID))
}

func (v *UsersView) lookup(userID int) (models.User, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, u := range v.users {
		if u.ID == userID {
			return u, true
		}
	}
	return models.User{}, false
}

// reconcile reloads after a successful mutation; a failed reload turns the result into a failure.
func (v *UsersView) reconcile(ctx context.Context, done Result) Result {
	if _, err := v.reload(ctx); err != nil {
		return v.finish(Result{
			Action:  done.Action,
			Outcome: OutcomeFailed,
			Message: fmt.Sprintf("%s, but %s", done.Message, describe("reload", err)),
			Err:     err,
		})
	}
	return v.finish(done)
}

func (v *UsersView) finish(r Result) Result {
	if r.Failed() {
		log.Printf("Error during %s: %v", r.Action, r.Err)
	}
	if v.recorder != nil {
		v.recorder.RecordAction(r.Action, string(r.Outcome))
	}
	v.mu.Lock()
	v.notice = &r
	v.mu.Unlock()
	return r
}
