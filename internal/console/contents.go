package console

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"

	"fdiadmin/internal/models"
)

var (
	ErrMissingTitle = errors.New("title is required")
	ErrMissingBody  = errors.New("body is required")
	ErrInvalidLevel = errors.New("level must be between 1 and 4")
)

// ContentService is the part of the API the contents view drives.
type ContentService interface {
	History(ctx context.Context) ([]models.Content, error)
	PublishContent(ctx context.Context, title, body string, link *string, levels []models.Level) (*models.PublishResult, error)
	SendNotification(ctx context.Context, contentID int, level models.Level) (*models.NotificationResult, error)
}

// Publication is a content item as entered in the publish form.
type Publication struct {
	Title  string
	Body   string
	Link   string
	Levels []models.Level
}

// normalize trims the text fields and sorts and de-duplicates the levels.
func (p Publication) normalize() (Publication, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.Body = strings.TrimSpace(p.Body)
	p.Link = strings.TrimSpace(p.Link)
	if p.Title == "" {
		return p, ErrMissingTitle
	}
	if p.Body == "" {
		return p, ErrMissingBody
	}

	seen := make(map[models.Level]struct{}, len(p.Levels))
	levels := make([]models.Level, 0, len(p.Levels))
	for _, l := range p.Levels {
		if !l.Valid() {
			return p, ErrInvalidLevel
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	p.Levels = levels
	return p, nil
}

// ContentsView keeps the publication history for one admin session.
type ContentsView struct {
	svc      ContentService
	recorder ActionRecorder

	mu     sync.Mutex
	items  []models.Content
	loaded bool
	notice *Result
}

func NewContentsView(svc ContentService, recorder ActionRecorder) *ContentsView {
	return &ContentsView{svc: svc, recorder: recorder}
}

func (v *ContentsView) Items() []models.Content {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.Content, len(v.items))
	copy(out, v.items)
	return out
}

func (v *ContentsView) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

func (v *ContentsView) TakeNotice() (Result, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.notice == nil {
		return Result{}, false
	}
	r := *v.notice
	v.notice = nil
	return r, true
}

// Reload replaces the history. On failure the history is emptied.
func (v *ContentsView) Reload(ctx context.Context) Result {
	if err := v.reload(ctx); err != nil {
		return v.finish(failed("load history", err))
	}
	return succeeded("load history", "history loaded")
}

func (v *ContentsView) reload(ctx context.Context) error {
	items, err := v.svc.History(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.loaded = true
	if err != nil {
		v.items = nil
		return err
	}
	v.items = items
	return nil
}

// Publish validates the form, publishes it and reloads the history.
func (v *ContentsView) Publish(ctx context.Context, p Publication) Result {
	const action = "publish"

	p, err := p.normalize()
	if err != nil {
		return v.finish(failed(action, err))
	}

	var link *string
	if p.Link != "" {
		link = &p.Link
	}
	res, err := v.svc.PublishContent(ctx, p.Title, p.Body, link, p.Levels)
	if err != nil {
		return v.finish(failed(action, err))
	}

	done := succeeded(action, "content %d published", res.ContentID)
	if err := v.reload(ctx); err != nil {
		done = Result{
			Action:  action,
			Outcome: OutcomeFailed,
			Message: done.Message + ", but " + describe("reload", err),
			Err:     err,
		}
	}
	return v.finish(done)
}

// Notify asks the API to announce a published item to one level's channel.
func (v *ContentsView) Notify(ctx context.Context, contentID int, level models.Level) Result {
	const action = "send notification"

	if !level.Valid() {
		return v.finish(failed(action, ErrInvalidLevel))
	}
	res, err := v.svc.SendNotification(ctx, contentID, level)
	if err != nil {
		return v.finish(failed(action, err))
	}
	return v.finish(succeeded(action, "content %d sent to level %d (%s)", res.ContentID, res.Level, res.Status))
}

func (v *ContentsView) finish(r Result) Result {
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
