package spmapper_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"spmapper"
	"spmapper/memory"
	"spmapper/taxonomy"
)

type Task struct {
	spmapper.Item `splist:"Tasks"`

	Title      string              `spfield:"Title"`
	Priority   int                 `spfield:"Priority"`
	Done       bool                `spfield:"Done"`
	Due        *time.Time          `spfield:"DueDate"`
	Approval   int                 `spfield:"_ModerationStatus"`
	Department taxonomy.FieldValue `spfield:"Department"`
	Tags       taxonomy.Collection `spfield:"Tags"`
	Summary    string              `spfield:"Summary"`
	Created    time.Time           `spfield:"Created"`

	Notes string // unmapped
}

type Unlisted struct {
	spmapper.Item
	Title string `spfield:"Title"`
}

var (
	departmentID = uuid.MustParse("7e0f6c1e-3f8a-4b4e-9a51-0d2c6b1f8e11")
	financeID    = uuid.MustParse("a1b2c3d4-0000-4000-8000-000000000001")
	legalID      = uuid.MustParse("a1b2c3d4-0000-4000-8000-000000000002")
)

func taskFields() []spmapper.Field {
	return []spmapper.Field{
		{InternalName: "Priority", Title: "Priority", TypeName: "Number"},
		{InternalName: "Done", Title: "Done", TypeName: "Boolean"},
		{InternalName: "DueDate", Title: "Due Date", TypeName: "DateTime"},
		{InternalName: "Department", Title: "Department", TypeName: "TaxonomyFieldType"},
		{InternalName: "Tags", Title: "Tags", TypeName: "TaxonomyFieldTypeMulti"},
		{InternalName: "Summary", Title: "Summary", TypeName: "Calculated", ReadOnly: true},
	}
}

func newTaskSite(t *testing.T) *memory.Site {
	t.Helper()
	site := memory.NewSite(memory.WithClock(func() time.Time {
		return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	}))
	_, err := site.CreateList("Tasks", taskFields()...)
	require.NoError(t, err)
	return site
}

func rawTerm(label string, id uuid.UUID, wssID int) map[string]any {
	return map[string]any{
		taxonomy.ObjectTypeKey: taxonomy.ValueObjectType,
		"Label":                label,
		"TermGuid":             id.String(),
		"WssId":                wssID,
	}
}

func rawTerms(children ...map[string]any) map[string]any {
	items := make([]any, len(children))
	for i, c := range children {
		items[i] = c
	}
	return map[string]any{
		taxonomy.ObjectTypeKey: taxonomy.CollectionObjectType,
		taxonomy.ChildItemsKey: items,
	}
}

// fullBag returns a bag carrying every field Task maps.
func fullBag() spmapper.FieldValues {
	return spmapper.FieldValues{
		"ID":                7,
		"Title":             "Draft report",
		"Priority":          2,
		"Done":              false,
		"DueDate":           nil,
		"_ModerationStatus": 0,
		"Department":        rawTerm("Finance", financeID, 11),
		"Tags":              rawTerms(rawTerm("Finance", financeID, 11), rawTerm("Legal", legalID, 12)),
		"Summary":           "ok",
		"Created":           time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}
