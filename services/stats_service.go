package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/coocood/freecache"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"selfAPI/internal/stats"
	"selfAPI/internal/types/dsa"
	"selfAPI/internal/types/project"
	"selfAPI/internal/types/task"
	"selfAPI/internal/types/video"
)

var ErrUnknownCollection = errors.New("unknown collection")

const recentLimit = 3

type DSAOverview struct {
	Total         int               `json:"total"`
	CurrentStreak int               `json:"current_streak"`
	Yearly        stats.YearlyStats `json:"yearly"`
	Recent        []*dsa.Entry      `json:"recent"`
}

type InstagramOverview struct {
	Total      int               `json:"total"`
	Yearly     stats.YearlyStats `json:"yearly"`
	TotalViews int               `json:"total_views"`
	TotalLikes int               `json:"total_likes"`
}

type VideoOverview struct {
	Total  int            `json:"total"`
	Recent []*video.Entry `json:"recent"`
}

type Dashboard struct {
	DSA       DSAOverview         `json:"dsa"`
	Instagram InstagramOverview   `json:"instagram"`
	Videos    VideoOverview       `json:"videos"`
	LinkedIn  int                 `json:"linkedin_total"`
	Projects  []*project.Project  `json:"projects"`
	Last7Days map[string][]string `json:"last_7_days"`
}

type AdminOverview struct {
	DSAStreak      int            `json:"dsa_streak"`
	TodayDSA       []*dsa.Entry   `json:"today_dsa"`
	TasksCompleted int            `json:"tasks_completed"`
	TasksTotal     int            `json:"tasks_total"`
	TodayTasks     []*task.Task   `json:"today_tasks"`
	Counts         map[string]int `json:"counts"`
}

// StatsService computes activity summaries and caches them until the
// collection changes or the day rolls over.
type StatsService struct {
	catalog  *Catalog
	calendar *stats.Calendar
	cache    *freecache.Cache
	ttl      int
	logger   zerolog.Logger

	mu          sync.Mutex
	generations map[string]uint64
}

// NewStatsService caches summaries in sizeMB megabytes for ttlSeconds.
// sizeMB <= 0 disables the cache.
func NewStatsService(catalog *Catalog, cal *stats.Calendar, sizeMB, ttlSeconds int, logger zerolog.Logger) *StatsService {
	s := &StatsService{
		catalog:     catalog,
		calendar:    cal,
		ttl:         max(ttlSeconds, 1),
		logger:      logger.With().Str("component", "stats").Logger(),
		generations: make(map[string]uint64),
	}
	if sizeMB > 0 {
		s.cache = freecache.NewCache(sizeMB * 1024 * 1024)
	}
	return s
}

// Invalidate drops cached summaries of one store collection.
func (s *StatsService) Invalidate(collection string) {
	s.mu.Lock()
	s.generations[collection]++
	s.mu.Unlock()
}

func (s *StatsService) cacheKey(collection string) []byte {
	s.mu.Lock()
	gen := s.generations[collection]
	s.mu.Unlock()
	return fmt.Appendf(nil, "summary:%s:%d:%d", collection, gen, s.calendar.Today())
}

func (s *StatsService) Summary(ctx context.Context, name string) (*stats.Summary, error) {
	src, ok := s.catalog.Source(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}

	key := s.cacheKey(src.Collection())
	if s.cache != nil {
		if raw, err := s.cache.Get(key); err == nil {
			var summary stats.Summary
			if err := json.Unmarshal(raw, &summary); err == nil {
				return &summary, nil
			}
		}
	}

	dates, err := src.Dates(ctx)
	if err != nil {
		return nil, err
	}
	summary := s.calendar.Summarize(name, dates)

	if s.cache != nil {
		if raw, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(key, raw, s.ttl); err != nil {
				s.logger.Debug().Err(err).Str("collection", name).Msg("summary not cached")
			}
		}
	}

	return summary, nil
}

func datesOf[T interface{ ActivityDate() string }](items []T) []string {
	dates := make([]string, 0, len(items))
	for _, item := range items {
		dates = append(dates, item.ActivityDate())
	}
	return dates
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// Dashboard is the summary shown on the public home page.
func (s *StatsService) Dashboard(ctx context.Context) (*Dashboard, error) {
	entries, err := s.catalog.DSA.List(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := s.catalog.Instagram.List(ctx)
	if err != nil {
		return nil, err
	}
	videos, err := s.catalog.Videos.List(ctx)
	if err != nil {
		return nil, err
	}
	linkedin, err := s.catalog.LinkedIn.List(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := s.catalog.Projects.List(ctx)
	if err != nil {
		return nil, err
	}

	dsaDates := datesOf(entries)
	postDates := datesOf(posts)

	d := &Dashboard{
		DSA: DSAOverview{
			Total:         len(entries),
			CurrentStreak: s.calendar.Streak(dsaDates),
			Yearly:        s.calendar.YearlyStats(dsaDates),
			Recent:        firstN(entries, recentLimit),
		},
		Instagram: InstagramOverview{
			Total:  len(posts),
			Yearly: s.calendar.YearlyStats(postDates),
		},
		Videos: VideoOverview{
			Total:  len(videos),
			Recent: firstN(videos, recentLimit),
		},
		LinkedIn:  len(linkedin),
		Last7Days: make(map[string][]string),
	}

	for _, p := range posts {
		d.Instagram.TotalViews += p.Views
		d.Instagram.TotalLikes += p.Likes
	}

	var featured []*project.Project
	for _, p := range projects {
		if p.Featured {
			featured = append(featured, p)
		}
	}
	if len(featured) == 0 {
		featured = projects
	}
	d.Projects = firstN(featured, recentLimit)

	for name, dates := range map[string][]string{
		NameDSA:       dsaDates,
		NameInstagram: postDates,
		NameVideos:    datesOf(videos),
		NameLinkedIn:  datesOf(linkedin),
	} {
		active := []string{}
		for _, day := range s.calendar.ActivityGrid(dates, 7) {
			if day.Active {
				active = append(active, day.Date)
			}
		}
		d.Last7Days[name] = active
	}

	return d, nil
}

// AdminOverview backs the admin landing page.
func (s *StatsService) AdminOverview(ctx context.Context) (*AdminOverview, error) {
	entries, err := s.catalog.DSA.List(ctx)
	if err != nil {
		return nil, err
	}

	tasks, err := s.catalog.Tasks.List(ctx)
	if err != nil {
		return nil, err
	}

	today := s.calendar.Today()
	o := &AdminOverview{
		DSAStreak:  s.calendar.Streak(datesOf(entries)),
		TodayDSA:   []*dsa.Entry{},
		TasksTotal: len(tasks),
		TodayTasks: []*task.Task{},
		Counts:     make(map[string]int),
	}
	for _, e := range entries {
		if s.calendar.Parse(e.Date) == today {
			o.TodayDSA = append(o.TodayDSA, e)
		}
	}
	for _, t := range tasks {
		if t.Completed {
			o.TasksCompleted++
		}
		if s.calendar.Parse(t.Date) == today {
			o.TodayTasks = append(o.TodayTasks, t)
		}
	}

	for _, name := range Names {
		src, _ := s.catalog.Source(name)
		dates, err := src.Dates(ctx)
		if err != nil {
			return nil, err
		}
		o.Counts[name] = len(dates)
	}

	return o, nil
}
