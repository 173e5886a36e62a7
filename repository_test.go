package spmapper_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"spmapper"
	"spmapper/caml"
	"spmapper/memory"
	"spmapper/taxonomy"
)

var tasks = spmapper.ListByTitle("Tasks")

func seedTasks(t *testing.T, site *memory.Site, titles ...string) []int {
	t.Helper()
	ids := make([]int, 0, len(titles))
	for i, title := range titles {
		bag := fullBag()
		delete(bag, "ID")
		delete(bag, "Created")
		bag["Title"] = title
		bag["Priority"] = i + 1
		id, err := site.Seed(tasks, bag)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestRepositoryGetAll(t *testing.T) {
	site := newTaskSite(t)
	seedTasks(t, site, "one", "two", "three")
	repo := spmapper.NewRepository[Task](site)

	got, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "two", got[1].Title)
	assert.Equal(t, 2, got[1].Priority)
	assert.Equal(t, []string{"Finance", "Legal"}, got[2].Tags.Labels())
	assert.Equal(t, int64(1), site.Stats().RoundTrips())
}

func TestRepositoryGetAllRowLimit(t *testing.T) {
	site := newTaskSite(t)
	seedTasks(t, site, "one", "two", "three")
	repo := spmapper.NewRepository[Task](site, spmapper.WithRowLimit(2))

	got, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRepositoryQueryCAML(t *testing.T) {
	site := newTaskSite(t)
	seedTasks(t, site, "one", "two", "three")
	repo := spmapper.NewRepository[Note](site)

	t.Run("explicit view", func(t *testing.T) {
		view := caml.ViewFields("Title").WithRowLimit(1).String()
		got, err := repo.QueryCAML(context.Background(), view)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "one", got[0].Title)
		assert.Equal(t, 1, got[0].ID)
	})

	t.Run("blank view selects everything", func(t *testing.T) {
		got, err := repo.QueryCAML(context.Background(), "")
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("view missing a mapped field", func(t *testing.T) {
		_, err := spmapper.NewRepository[Task](site).QueryCAML(context.Background(), caml.ViewFields("Title").String())
		assert.True(t, spmapper.IsSchemaError(err))
	})
}

func TestRepositoryQueryByPredicateNotImplemented(t *testing.T) {
	site := newTaskSite(t)
	repo := spmapper.NewRepository[Task](site)

	for _, pred := range []spmapper.Predicate{
		nil,
		spmapper.Eq("Title", "one"),
		spmapper.And{spmapper.Gt("Priority", 1), spmapper.Or{spmapper.IsNull("DueDate"), spmapper.Contains("Title", "o")}},
	} {
		got, err := repo.Query(context.Background(), pred)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, spmapper.ErrNotImplemented)
		assert.True(t, spmapper.IsNotImplemented(err))
	}
	assert.Zero(t, site.Stats().RoundTrips())
}

func TestRepositoryGetByID(t *testing.T) {
	site := newTaskSite(t)
	ids := seedTasks(t, site, "one", "two")
	repo := spmapper.NewRepository[Task](site)

	task, err := repo.GetByID(context.Background(), ids[1])
	require.NoError(t, err)
	assert.Equal(t, "two", task.Title)
	assert.Equal(t, ids[1], task.GetID())

	_, err = repo.GetByID(context.Background(), 99)
	assert.Equal(t, spmapper.NewRecordNotFoundError("Tasks", 99), err)
	assert.ErrorIs(t, err, spmapper.ErrRecordNotFound)
	assert.Equal(t, int64(2), site.Stats().ItemLoads)
}

func TestRepositoryInsert(t *testing.T) {
	site := newTaskSite(t)
	repo := spmapper.NewRepository[Task](site)
	ctx := context.Background()

	due := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	err := repo.Insert(ctx, Task{
		Title:      "new",
		Priority:   5,
		Due:        &due,
		Department: taxonomy.FieldValue{Label: "Legal", TermGUID: legalID, WssID: 12},
		Summary:    "read only",
		Created:    time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	stats := site.Stats()
	assert.Equal(t, int64(1), stats.FieldLoads)
	assert.Equal(t, int64(1), stats.Executes)

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, 5, got.Priority)
	require.NotNil(t, got.Due)
	assert.True(t, due.Equal(*got.Due))
	assert.Equal(t, "Legal", got.Department.Label)
	assert.Empty(t, got.Summary)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), got.Created)
}

func TestRepositoryBatchesUseTwoRoundTrips(t *testing.T) {
	site := newTaskSite(t)
	repo := spmapper.NewRepository[Task](site)
	ctx := context.Background()

	require.NoError(t, repo.InsertBatch(ctx, []Task{{Title: "a"}, {Title: "b"}, {Title: "c"}}))
	stats := site.Stats()
	assert.Equal(t, int64(2), stats.RoundTrips())
	assert.Equal(t, int64(3), stats.Items)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	for i := range all {
		all[i].Done = true
	}
	require.NoError(t, repo.UpdateBatch(ctx, all))
	assert.Equal(t, int64(5), site.Stats().RoundTrips())

	all, err = repo.GetAll(ctx)
	require.NoError(t, err)
	for _, task := range all {
		assert.True(t, task.Done)
	}

	require.NoError(t, repo.DeleteBatch(ctx, all[:2]))
	stats = site.Stats()
	assert.Equal(t, int64(7), stats.RoundTrips())
	assert.Equal(t, int64(1), stats.Items)
}

func TestRepositoryEmptyBatches(t *testing.T) {
	site := newTaskSite(t)
	repo := spmapper.NewRepository[Task](site)
	ctx := context.Background()

	require.NoError(t, repo.InsertBatch(ctx, nil))
	require.NoError(t, repo.DeleteBatch(ctx, nil))
	assert.Equal(t, int64(3), site.Stats().RoundTrips())
}

func TestRepositoryUpdateAndDelete(t *testing.T) {
	site := newTaskSite(t)
	ids := seedTasks(t, site, "one")
	repo := spmapper.NewRepository[Task](site)
	ctx := context.Background()

	task, err := repo.GetByID(ctx, ids[0])
	require.NoError(t, err)
	task.Title = "renamed"
	task.Approval = 1
	require.NoError(t, repo.Update(ctx, task))

	task, err = repo.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "renamed", task.Title)
	assert.Equal(t, 1, task.Approval)

	require.NoError(t, repo.Delete(ctx, task))
	_, err = repo.GetByID(ctx, ids[0])
	assert.True(t, spmapper.IsRecordNotFoundError(err))
}

func TestRepositoryBatchFailurePropagates(t *testing.T) {
	site := newTaskSite(t)
	ids := seedTasks(t, site, "one", "two")
	repo := spmapper.NewRepository[Note](site)

	err := repo.UpdateBatch(context.Background(), []Note{
		{Item: spmapper.Item{ID: ids[0]}, Title: "first"},
		{Item: spmapper.Item{ID: 42}, Title: "missing"},
		{Item: spmapper.Item{ID: ids[1]}, Title: "never"},
	})
	assert.ErrorIs(t, err, spmapper.ErrRecordNotFound)

	second, err := repo.GetByID(context.Background(), ids[1])
	require.NoError(t, err)
	assert.Equal(t, "two", second.Title)
}

func TestRepositoryConfigErrors(t *testing.T) {
	site := newTaskSite(t)
	repo := spmapper.NewRepository[Unlisted](site)
	ctx := context.Background()

	_, err := repo.GetAll(ctx)
	assert.ErrorIs(t, err, spmapper.ErrMissingListInfo)
	assert.ErrorIs(t, repo.Insert(ctx, Unlisted{}), spmapper.ErrMissingListInfo)
	assert.ErrorIs(t, repo.Delete(ctx, Unlisted{}), spmapper.ErrMissingListInfo)
	assert.Zero(t, site.Stats().RoundTrips())
}

func TestRepositoryNilEntities(t *testing.T) {
	site := newTaskSite(t)
	repo := spmapper.NewRepository[*Task](site)
	ctx := context.Background()

	err := repo.Delete(ctx, nil)
	assert.True(t, spmapper.IsConfigError(err))
	assert.Zero(t, site.Stats().RoundTrips())

	err = repo.DeleteBatch(ctx, []*Task{{Item: spmapper.Item{ID: 1}}, nil})
	assert.True(t, spmapper.IsConfigError(err))
	assert.Zero(t, site.Stats().Executes)

	assert.True(t, spmapper.IsConfigError(repo.Insert(ctx, nil)))
	assert.True(t, spmapper.IsConfigError(repo.Update(ctx, nil)))
	assert.Zero(t, site.Stats().Executes)
}

func TestRepositoryEntitiesDoNotShareStorage(t *testing.T) {
	site := newTaskSite(t)
	repo := spmapper.NewRepository[Task](site)
	ctx := context.Background()

	task := Task{Title: "tagged", Tags: taxonomy.Collection{{Label: "Finance", TermGUID: financeID, WssID: 11}}}
	require.NoError(t, repo.Insert(ctx, task))
	task.Tags[0].Label = "changed after insert"

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Finance"}, got.Tags.Labels())

	got.Tags[0].Label = "changed after read"
	again, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Finance"}, again.Tags.Labels())
}

func TestRepositoryUnknownList(t *testing.T) {
	site := memory.NewSite()
	repo := spmapper.NewRepository[Task](site)

	_, err := repo.GetAll(context.Background())
	assert.ErrorIs(t, err, spmapper.ErrListNotFound)
}

type failingClient struct {
	spmapper.Client
	err error
}

func (c failingClient) Execute(context.Context, ...spmapper.Mutation) error { return c.err }

func TestRepositoryReturnsClientErrorsUnchanged(t *testing.T) {
	boom := errors.New("server returned 503")
	client := failingClient{Client: newTaskSite(t), err: boom}
	repo := spmapper.NewRepository[Task](client)

	err := repo.Insert(context.Background(), Task{Title: "x"})
	assert.Same(t, boom, err)
}

func TestRepositoryTracingAndLogging(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	site := newTaskSite(t)
	seedTasks(t, site, "one")
	repo := spmapper.NewRepository[Task](site, spmapper.WithTracerProvider(tp), spmapper.WithLogger(logger))
	ctx := context.Background()

	_, err := repo.GetAll(ctx)
	require.NoError(t, err)
	_, err = repo.Query(ctx, spmapper.Eq("Title", "one"))
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "spmapper.get_all", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "Tasks", attrs["sharepoint.list"])
	assert.Equal(t, "spmapper_test.Task", attrs["spmapper.entity"])
	assert.Equal(t, "1", attrs["spmapper.items"])

	assert.Equal(t, "spmapper.query", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	assert.Contains(t, buf.String(), "operation completed")
	assert.Contains(t, buf.String(), "operation failed")
}
