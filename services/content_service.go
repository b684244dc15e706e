package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/gookit/validate"

	"selfAPI/internal/stats"
	"selfAPI/internal/store"
	"selfAPI/internal/types/dsa"
	"selfAPI/internal/types/project"
	"selfAPI/internal/types/record"
	"selfAPI/internal/types/social"
	"selfAPI/internal/types/task"
	"selfAPI/internal/types/video"
)

var ErrValidation = errors.New("validation failed")

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := slices.Sorted(maps.Keys(e.Fields))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func newValidationError(errs validate.Errors) *ValidationError {
	fields := make(map[string]string, len(errs))
	for field, msgs := range errs.All() {
		keys := make([]string, 0, len(msgs))
		for k := range msgs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > 0 {
			fields[jsonName(field)] = msgs[keys[0]]
		}
	}
	return &ValidationError{Fields: fields}
}

// jsonName lower-cases the first letter so struct field names line up with
// the JSON keys clients send.
func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// Entity is implemented by the pointer types of every content record.
type Entity interface {
	ApplyDefaults()
	ActivityDate() string
	ExternalID() string
}

// ContentService is the CRUD surface of one collection. T is the record
// struct and PT its pointer type.
type ContentService[T any, PT interface {
	*T
	Entity
}] struct {
	store      store.Store
	calendar   *stats.Calendar
	collection string
	sortField  string
	sortFn     func([]PT)
	onChange   func(collection string)
}

func NewContentService[T any, PT interface {
	*T
	Entity
}](st store.Store, cal *stats.Calendar, collection, sortField string) *ContentService[T, PT] {
	return &ContentService[T, PT]{
		store:      st,
		calendar:   cal,
		collection: collection,
		sortField:  sortField,
	}
}

func (s *ContentService[T, PT]) Collection() string {
	return s.collection
}

// SetOnChange registers a callback run after every successful write.
func (s *ContentService[T, PT]) SetOnChange(fn func(collection string)) {
	s.onChange = fn
}

func (s *ContentService[T, PT]) changed() {
	if s.onChange != nil {
		s.onChange(s.collection)
	}
}

func (s *ContentService[T, PT]) decode(doc *store.Document) (PT, error) {
	body := make(map[string]any, len(doc.Fields)+4)
	maps.Copy(body, doc.Fields)
	body["id"] = doc.ID
	body["createdAt"] = doc.CreatedAt
	body["updatedAt"] = doc.UpdatedAt
	if doc.ExternalID != "" {
		body["apiId"] = doc.ExternalID
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s document: %w", s.collection, err)
	}

	item := PT(new(T))
	if err := json.Unmarshal(raw, item); err != nil {
		return nil, fmt.Errorf("failed to decode %s document: %w", s.collection, err)
	}
	return item, nil
}

func encode(item any) (map[string]any, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	for _, k := range record.Keys {
		delete(fields, k)
	}
	return fields, nil
}

func (s *ContentService[T, PT]) validate(item PT) error {
	v := validate.Struct(item)
	if !v.Validate() {
		return newValidationError(v.Errors)
	}

	if !s.calendar.Parse(item.ActivityDate()).Valid() {
		return &ValidationError{Fields: map[string]string{
			s.sortField: "must be a date (YYYY-MM-DD) or an ISO 8601 timestamp",
		}}
	}
	return nil
}

func (s *ContentService[T, PT]) List(ctx context.Context) ([]PT, error) {
	docs, err := s.store.Find(ctx, s.collection, s.sortField)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.collection, err)
	}

	items := make([]PT, 0, len(docs))
	for _, doc := range docs {
		item, err := s.decode(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if s.sortFn != nil {
		s.sortFn(items)
	}
	return items, nil
}

func (s *ContentService[T, PT]) Get(ctx context.Context, id string) (PT, error) {
	doc, err := s.store.Get(ctx, s.collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s record: %w", s.collection, err)
	}
	return s.decode(doc)
}

func (s *ContentService[T, PT]) Create(ctx context.Context, item PT) (PT, error) {
	item.ApplyDefaults()
	if err := s.validate(item); err != nil {
		return nil, err
	}

	fields, err := encode(item)
	if err != nil {
		return nil, err
	}

	doc, err := s.store.Create(ctx, s.collection, &store.Document{
		ExternalID: item.ExternalID(),
		Fields:     fields,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", s.collection, err)
	}

	s.changed()
	return s.decode(doc)
}

// Update merges patch onto the stored record, validates the result and
// writes it back. Record metadata in the patch is ignored.
func (s *ContentService[T, PT]) Update(ctx context.Context, id string, patch map[string]any) (PT, error) {
	doc, err := s.store.Get(ctx, s.collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s record: %w", s.collection, err)
	}

	merged := *doc
	merged.Fields = maps.Clone(doc.Fields)
	if merged.Fields == nil {
		merged.Fields = map[string]any{}
	}
	for k, v := range patch {
		if slices.Contains(record.Keys, k) {
			continue
		}
		merged.Fields[k] = v
	}

	item, err := s.decode(&merged)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	item.ApplyDefaults()
	if err := s.validate(item); err != nil {
		return nil, err
	}

	fields, err := encode(item)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, s.collection, id, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s record: %w", s.collection, err)
	}

	s.changed()
	return s.decode(updated)
}

func (s *ContentService[T, PT]) Delete(ctx context.Context, id string) (PT, error) {
	doc, err := s.store.Delete(ctx, s.collection, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete %s record: %w", s.collection, err)
	}

	s.changed()
	return s.decode(doc)
}

// Dates returns the activity date of every record, for the stats engine.
func (s *ContentService[T, PT]) Dates(ctx context.Context) ([]string, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(items))
	for _, item := range items {
		dates = append(dates, item.ActivityDate())
	}
	return dates, nil
}

type (
	DSAService       = ContentService[dsa.Entry, *dsa.Entry]
	VideoService     = ContentService[video.Entry, *video.Entry]
	InstagramService = ContentService[social.InstagramPost, *social.InstagramPost]
	LinkedInService  = ContentService[social.LinkedInPost, *social.LinkedInPost]
	ProjectService   = ContentService[project.Project, *project.Project]
	TaskService      = ContentService[task.Task, *task.Task]
)

// Catalog groups the content collections served by the API.
type Catalog struct {
	DSA       *DSAService
	Videos    *VideoService
	Instagram *InstagramService
	LinkedIn  *LinkedInService
	Projects  *ProjectService
	Tasks     *TaskService
}

func NewCatalog(st store.Store, cal *stats.Calendar) *Catalog {
	projects := NewContentService[project.Project](st, cal, store.CollectionProjects, "startDate")
	projects.sortFn = project.SortForDisplay

	return &Catalog{
		DSA:       NewContentService[dsa.Entry](st, cal, store.CollectionDSA, "date"),
		Videos:    NewContentService[video.Entry](st, cal, store.CollectionVideos, "date"),
		Instagram: NewContentService[social.InstagramPost](st, cal, store.CollectionInstagram, "date"),
		LinkedIn:  NewContentService[social.LinkedInPost](st, cal, store.CollectionLinkedIn, "date"),
		Projects:  projects,
		Tasks:     NewContentService[task.Task](st, cal, store.CollectionTasks, "date"),
	}
}

// OnChange registers fn on every collection.
func (c *Catalog) OnChange(fn func(collection string)) {
	c.DSA.SetOnChange(fn)
	c.Videos.SetOnChange(fn)
	c.Instagram.SetOnChange(fn)
	c.LinkedIn.SetOnChange(fn)
	c.Projects.SetOnChange(fn)
	c.Tasks.SetOnChange(fn)
}

const (
	NameDSA       = "dsa"
	NameVideos    = "videos"
	NameInstagram = "instagram"
	NameLinkedIn  = "linkedin"
	NameProjects  = "projects"
	NameTasks     = "tasks"
)

// Names lists the public collection names in display order.
var Names = []string{NameDSA, NameVideos, NameInstagram, NameLinkedIn, NameProjects}

// PrivateNames are collections only the admin can read.
var PrivateNames = []string{NameTasks}

// DatesSource is satisfied by every ContentService.
type DatesSource interface {
	Collection() string
	Dates(ctx context.Context) ([]string, error)
}

func (c *Catalog) Source(name string) (DatesSource, bool) {
	switch name {
	case NameDSA:
		return c.DSA, true
	case NameVideos:
		return c.Videos, true
	case NameInstagram:
		return c.Instagram, true
	case NameLinkedIn:
		return c.LinkedIn, true
	case NameProjects:
		return c.Projects, true
	}
	return nil, false
}
