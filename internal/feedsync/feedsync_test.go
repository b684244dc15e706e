package feedsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"selfAPI/internal/instagram"
	"selfAPI/internal/store"
	"selfAPI/internal/vercel"
	"selfAPI/internal/youtube"
)

type fakeVideos struct {
	configured bool
	videos     []youtube.Video
	err        error
	calls      int
}

func (f *fakeVideos) Configured() bool { return f.configured }

func (f *fakeVideos) LatestVideos(ctx context.Context) ([]youtube.Video, error) {
	f.calls++
	return f.videos, f.err
}

type fakeNotifier struct {
	titles []string
	bodies []string
}

func (f *fakeNotifier) Notify(ctx context.Context, title, body string, data map[string]string) error {
	f.titles = append(f.titles, title)
	f.bodies = append(f.bodies, body)
	return nil
}

func newSyncer(st store.Store, opts ...Option) *Syncer {
	return NewSyncer(st, zerolog.Nop(), opts...)
}

func TestRun_SecondIdenticalSyncDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	feed := &fakeVideos{configured: true, videos: []youtube.Video{
		{ID: "v1", Title: "Sliding window", PublishedAt: "2024-03-10T08:00:00Z"},
	}}
	src := NewYouTubeSource(feed)
	syncer := newSyncer(st)

	first := syncer.Run(ctx, src)
	assert.Equal(t, StatusSynced, first.Status())
	assert.Equal(t, 1, first.UpsertedCount)
	assert.Equal(t, 0, first.MatchedCount)
	assert.Empty(t, first.Errors)

	docs, err := st.Find(ctx, store.CollectionVideos, "date")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	_, err = st.Update(ctx, store.CollectionVideos, docs[0].ID, map[string]any{"views": 1200})
	require.NoError(t, err)

	feed.videos[0].Title = "Sliding window (remastered)"
	second := syncer.Run(ctx, src)
	assert.Equal(t, 0, second.UpsertedCount)
	assert.Equal(t, 1, second.MatchedCount)

	docs, err = st.Find(ctx, store.CollectionVideos, "date")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Sliding window (remastered)", docs[0].Fields["title"])
	assert.Equal(t, 1200, docs[0].Fields["views"])
	assert.Equal(t, "v1", docs[0].ExternalID)
}

func TestRun_MissingCredentialsSkips(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	existing, err := st.Create(ctx, store.CollectionVideos, &store.Document{Fields: map[string]any{"title": "manual"}})
	require.NoError(t, err)

	feed := &fakeVideos{configured: false}
	res := newSyncer(st).Run(ctx, NewYouTubeSource(feed))

	assert.True(t, res.Skipped)
	assert.ErrorIs(t, NewYouTubeSource(feed).Ready(), ErrMissingCredentials)
	assert.Equal(t, 0, res.UpsertedCount)
	assert.Equal(t, 0, res.MatchedCount)
	assert.NotNil(t, res.Errors)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 0, feed.calls)

	docs, err := st.Find(ctx, store.CollectionVideos, "date")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, existing.ID, docs[0].ID)
	assert.Equal(t, "manual", docs[0].Fields["title"])
}

func TestRun_FetchFailureLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	notifier := &fakeNotifier{}
	feed := &fakeVideos{configured: true, err: errors.New("quota exceeded")}

	res := newSyncer(st, WithNotifier(notifier)).Run(ctx, NewYouTubeSource(feed))

	assert.True(t, res.Failed)
	assert.Equal(t, StatusFailed, res.Status())
	assert.Contains(t, res.FailureReason, "quota exceeded")
	assert.Equal(t, []string{"youtube sync failed"}, notifier.titles)

	docs, err := st.Find(ctx, store.CollectionVideos, "date")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestRun_RecordsPerItemErrors(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	notifier := &fakeNotifier{}
	feed := &fakeVideos{configured: true, videos: []youtube.Video{
		{ID: "v1", PublishedAt: "2024-03-10T08:00:00Z"},
		{ID: "", PublishedAt: "2024-03-09T08:00:00Z"},
		{ID: "v3", PublishedAt: "last tuesday"},
	}}

	res := newSyncer(st, WithNotifier(notifier)).Run(ctx, NewYouTubeSource(feed))

	assert.False(t, res.Failed)
	assert.Equal(t, 1, res.UpsertedCount)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "#1", res.Errors[0].Ref)
	assert.Equal(t, "v3", res.Errors[1].Ref)
	assert.Len(t, notifier.titles, 1)
}

func TestYouTubeSource_AgainstAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items": [{"id": {"videoId": "abc"}, "snippet": {"title": "Tries", "publishedAt": "2024-03-10T08:00:00Z"}}]}`)
	}))
	defer srv.Close()

	client, err := youtube.New(context.Background(), youtube.Config{APIKey: "k", ChannelID: "c", Endpoint: srv.URL + "/"})
	require.NoError(t, err)

	st := store.NewMemoryStore()
	res := newSyncer(st).Run(context.Background(), NewYouTubeSource(client))
	require.Equal(t, 1, res.UpsertedCount)

	docs, err := st.Find(context.Background(), store.CollectionVideos, "date")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", docs[0].Fields["link"])
	assert.Equal(t, "YouTube", docs[0].Fields["platform"])
	assert.Equal(t, 0, docs[0].Fields["likes"])
}

func TestMapMedia(t *testing.T) {
	item := mapMedia(0, instagram.Media{
		ID:        "m1",
		Caption:   "day 40",
		MediaType: instagram.MediaTypeImage,
		MediaURL:  "https://cdn/m1.jpg",
		Permalink: "https://instagram.com/p/m1",
		Timestamp: "2024-03-10T10:00:00+0000",
	})

	require.NoError(t, item.Err)
	assert.Equal(t, "m1", item.Op.ExternalID)
	assert.Equal(t, "https://cdn/m1.jpg", item.Op.Set["thumbnail_url"])
	assert.Equal(t, "https://instagram.com/p/m1", item.Op.Set["link"])
	assert.Equal(t, "Post", item.Op.SetOnInsert["type"])
	assert.NotContains(t, item.Op.Set, "views")

	bad := mapMedia(2, instagram.Media{})
	assert.Equal(t, "#2", bad.Ref)
	assert.Error(t, bad.Err)
}

func TestMapProject(t *testing.T) {
	item := mapProject(0, vercel.Project{
		ID:        "prj_1",
		Name:      "habit-tracker",
		Framework: "nextjs",
		CreatedAt: 1710000000000,
		Link:      &vercel.Link{Org: "me", Repo: "habits"},
		Alias:     []vercel.Alias{"habits.vercel.app"},
	})

	require.NoError(t, item.Err)
	assert.Equal(t, "Habit Tracker", item.Op.Set["title"])
	assert.Equal(t, "A project built with nextjs.", item.Op.Set["description"])
	assert.Equal(t, "2024-03-09", item.Op.Set["startDate"])
	assert.Equal(t, "https://habits.vercel.app", item.Op.Set["liveUrl"])
	assert.Equal(t, "https://github.com/me/habits", item.Op.Set["githubUrl"])
	assert.Equal(t, "Completed", item.Op.SetOnInsert["status"])

	noFramework := mapProject(1, vercel.Project{ID: "prj_2", Name: "x", CreatedAt: 1})
	assert.Equal(t, "A project built with modern technologies.", noFramework.Op.Set["description"])
	assert.NotContains(t, noFramework.Op.Set, "liveUrl")
}

func TestRun_FailureReasonHidesCredentials(t *testing.T) {
	const token = "SECRET-TOKEN-123"

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()

	notifier := &fakeNotifier{}
	syncer := newSyncer(store.NewMemoryStore(), WithNotifier(notifier))
	src := NewInstagramSource(instagram.New(instagram.Config{AccessToken: token, BaseURL: closed.URL}))

	res := syncer.Run(context.Background(), src)
	assert.Equal(t, StatusFailed, res.Status())
	assert.NotEmpty(t, res.FailureReason)
	assert.NotContains(t, res.FailureReason, token)
	require.Len(t, notifier.bodies, 1)
	assert.NotContains(t, notifier.bodies[0], token)
}
