package sqlsite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spmapper"
	"spmapper/taxonomy"
)

type Ticket struct {
	spmapper.Item `splist:"Tickets"`

	Title    string              `spfield:"Title"`
	Priority int                 `spfield:"Priority"`
	Done     bool                `spfield:"Done"`
	Due      *time.Time          `spfield:"DueDate"`
	Area     taxonomy.FieldValue `spfield:"Area"`
	Tags     taxonomy.Collection `spfield:"Tags"`
	Created  time.Time           `spfield:"Created"`
}

func TestRepositoryRoundTrip(t *testing.T) {
	site := openSite(t)
	ctx := context.Background()

	_, err := site.CreateList(ctx, "Tickets",
		spmapper.Field{InternalName: "Priority", TypeName: "Number"},
		spmapper.Field{InternalName: "Done", TypeName: "Boolean"},
		spmapper.Field{InternalName: "DueDate", TypeName: "DateTime"},
		spmapper.Field{InternalName: "Area", TypeName: "TaxonomyFieldType"},
		spmapper.Field{InternalName: "Tags", TypeName: "TaxonomyFieldTypeMulti"},
	)
	require.NoError(t, err)

	repo := spmapper.NewRepository[Ticket](site)
	due := time.Date(2024, 4, 2, 17, 30, 0, 0, time.UTC)
	area := taxonomy.FieldValue{Label: "Billing", TermGUID: uuid.MustParse("7e0f6c1e-3f8a-4b4e-9a51-0d2c6b1f8e11"), WssID: 3}
	tags := taxonomy.Collection{
		{Label: "Urgent", TermGUID: uuid.MustParse("a1b2c3d4-0000-4000-8000-000000000001"), WssID: 4},
		{Label: "Customer", TermGUID: uuid.MustParse("a1b2c3d4-0000-4000-8000-000000000002"), WssID: 5},
	}

	err = repo.InsertBatch(ctx, []Ticket{
		{Title: "printer", Priority: 2, Due: &due, Area: area, Tags: tags},
		{Title: "vpn", Priority: 1, Done: true},
	})
	require.NoError(t, err)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	first := all[0]
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, "printer", first.Title)
	assert.Equal(t, 2, first.Priority)
	require.NotNil(t, first.Due)
	assert.True(t, due.Equal(*first.Due))
	assert.Equal(t, area, first.Area)
	assert.Equal(t, []string{"Urgent", "Customer"}, first.Tags.Labels())
	assert.True(t, fixed.Equal(first.Created))
	assert.Nil(t, all[1].Due)
	assert.True(t, all[1].Done)

	first.Priority = 5
	first.Due = nil
	require.NoError(t, repo.Update(ctx, first))

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Priority)
	assert.Nil(t, got.Due)
	assert.Equal(t, area, got.Area)

	require.NoError(t, repo.Delete(ctx, all[1]))
	_, err = repo.GetByID(ctx, all[1].ID)
	assert.ErrorIs(t, err, spmapper.ErrRecordNotFound)

	// Insert and Update load fields then execute; Delete only executes.
	assert.Equal(t, int64(2+1+2+1+1+1), site.Stats().RoundTrips())
}
