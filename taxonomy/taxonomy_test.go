package taxonomy_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spmapper/taxonomy"
)

var termID = uuid.MustParse("2f6d2b5a-9b34-4a3e-8d7c-1c2b3a4d5e6f")

func rawValue(label string, wssID any) map[string]any {
	return map[string]any{
		taxonomy.ObjectTypeKey: taxonomy.ValueObjectType,
		"Label":                label,
		"TermGuid":             termID.String(),
		"WssId":                wssID,
	}
}

func TestFromMap(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]any
		want    taxonomy.FieldValue
		wantErr error
	}{
		{
			name: "int wss id",
			raw:  rawValue("Finance", 7),
			want: taxonomy.FieldValue{Label: "Finance", TermGUID: termID, WssID: 7},
		},
		{
			name: "string wss id",
			raw:  rawValue("Finance", "12"),
			want: taxonomy.FieldValue{Label: "Finance", TermGUID: termID, WssID: 12},
		},
		{
			name: "json number wss id",
			raw:  rawValue("Legal", float64(3)),
			want: taxonomy.FieldValue{Label: "Legal", TermGUID: termID, WssID: 3},
		},
		{
			name:    "no marker",
			raw:     map[string]any{"Label": "Finance", "TermGuid": termID.String(), "WssId": 1},
			wantErr: taxonomy.ErrNotTaxonomyValue,
		},
		{
			name:    "collection marker",
			raw:     map[string]any{taxonomy.ObjectTypeKey: taxonomy.CollectionObjectType},
			wantErr: taxonomy.ErrNotTaxonomyValue,
		},
		{
			name:    "bad wss id",
			raw:     rawValue("Finance", "seven"),
			wantErr: taxonomy.ErrMalformed,
		},
		{
			name: "bad term guid",
			raw: map[string]any{
				taxonomy.ObjectTypeKey: taxonomy.ValueObjectType,
				"Label":                "Finance",
				"TermGuid":             "not-a-guid",
				"WssId":                1,
			},
			wantErr: taxonomy.ErrMalformed,
		},
		{
			name:    "marker only",
			raw:     map[string]any{taxonomy.ObjectTypeKey: taxonomy.ValueObjectType},
			wantErr: taxonomy.ErrMalformed,
		},
		{
			name:    "nil wss id",
			raw:     rawValue("Finance", nil),
			wantErr: taxonomy.ErrMalformed,
		},
		{
			name: "missing label",
			raw: map[string]any{
				taxonomy.ObjectTypeKey: taxonomy.ValueObjectType,
				"TermGuid":             termID.String(),
				"WssId":                1,
			},
			wantErr: taxonomy.ErrMalformed,
		},
		{
			name: "empty term guid",
			raw: map[string]any{
				taxonomy.ObjectTypeKey: taxonomy.ValueObjectType,
				"Label":                "Finance",
				"TermGuid":             "",
				"WssId":                1,
			},
			wantErr: taxonomy.ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := taxonomy.FromMap(tt.raw)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollectionFromMap(t *testing.T) {
	raw := map[string]any{
		taxonomy.ObjectTypeKey: taxonomy.CollectionObjectType,
		taxonomy.ChildItemsKey: []any{rawValue("Finance", 1), rawValue("Legal", 2)},
	}

	got, err := taxonomy.CollectionFromMap(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Finance", "Legal"}, got.Labels())
	assert.Equal(t, 2, got[1].WssID)
}

func TestCollectionFromMapErrors(t *testing.T) {
	t.Run("missing marker", func(t *testing.T) {
		_, err := taxonomy.CollectionFromMap(map[string]any{taxonomy.ChildItemsKey: []any{}})
		assert.ErrorIs(t, err, taxonomy.ErrNotTaxonomyCollection)
	})

	t.Run("missing child items", func(t *testing.T) {
		_, err := taxonomy.CollectionFromMap(map[string]any{taxonomy.ObjectTypeKey: taxonomy.CollectionObjectType})
		assert.ErrorIs(t, err, taxonomy.ErrMissingChildItems)
	})

	t.Run("child without marker", func(t *testing.T) {
		child := rawValue("Finance", 1)
		delete(child, taxonomy.ObjectTypeKey)
		_, err := taxonomy.CollectionFromMap(map[string]any{
			taxonomy.ObjectTypeKey: taxonomy.CollectionObjectType,
			taxonomy.ChildItemsKey: []any{child},
		})
		assert.ErrorIs(t, err, taxonomy.ErrNotTaxonomyValue)
	})

	t.Run("child not a mapping", func(t *testing.T) {
		_, err := taxonomy.CollectionFromMap(map[string]any{
			taxonomy.ObjectTypeKey: taxonomy.CollectionObjectType,
			taxonomy.ChildItemsKey: []any{"Finance"},
		})
		assert.ErrorIs(t, err, taxonomy.ErrMalformed)
	})
}

func TestJSONRoundTripThroughRawShape(t *testing.T) {
	in := taxonomy.Collection{
		{Label: "Finance", TermGUID: termID, WssID: 4},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	out, err := taxonomy.CollectionFromMap(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func ExampleFieldValue_String() {
	v := taxonomy.FieldValue{Label: "Finance", WssID: 4}
	fmt.Println(v, v.IsZero(), taxonomy.FieldValue{}.IsZero())

	// Output:
	// Finance false true
}
