package descriptor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniql-engine/crudql/engine/config"
	"github.com/omniql-engine/crudql/engine/models"
)

func ptr[T any](v T) *T { return &v }

func TestBuild(t *testing.T) {
	tests := []struct {
		name   string
		params models.Params
		want   *models.Descriptor
	}{
		{
			name:   "empty bag",
			params: models.Params{},
			want:   &models.Descriptor{},
		},
		{
			name:   "select",
			params: models.Params{Select: "id,name, status.*"},
			want:   &models.Descriptor{Select: map[string]bool{"id": true, "name": true, "status.*": true}},
		},
		{
			name:   "join kept verbatim",
			params: models.Params{Join: "status,status.category"},
			want:   &models.Descriptor{Relations: []string{"status", "status.category"}},
		},
		{
			name:   "sort",
			params: models.Params{Sort: "name,ASC;id,DESC"},
			want: &models.Descriptor{Order: []models.Order{
				{Field: "name", Direction: models.Ascending},
				{Field: "id", Direction: models.Descending},
			}},
		},
		{
			name:   "sort default direction",
			params: models.Params{Sort: "name"},
			want:   &models.Descriptor{Order: []models.Order{{Field: "name", Direction: models.Ascending}}},
		},
		{
			name:   "sort nulls placement",
			params: models.Params{Sort: "name,desc,nulls_last;id,asc,Nulls First"},
			want: &models.Descriptor{Order: []models.Order{
				{Field: "name", Direction: models.Descending, Nulls: models.NullsLast},
				{Field: "id", Direction: models.Ascending, Nulls: models.NullsFirst},
			}},
		},
		{
			name:   "sort skips empty field",
			params: models.Params{Sort: ";,DESC;id"},
			want:   &models.Descriptor{Order: []models.Order{{Field: "id", Direction: models.Ascending}}},
		},
		{
			name:   "cache",
			params: models.Params{Cache: "TRUE"},
			want:   &models.Descriptor{Cache: ptr(true)},
		},
		{
			name:   "limit only",
			params: models.Params{Limit: "10"},
			want:   &models.Descriptor{Take: ptr(10)},
		},
		{
			name:   "page and limit",
			params: models.Params{Page: "2", Limit: "10"},
			want:   &models.Descriptor{Skip: ptr(10), Take: ptr(10)},
		},
		{
			name:   "page with default limit",
			params: models.Params{Page: "2"},
			want:   &models.Descriptor{Skip: ptr(25), Take: ptr(25)},
		},
		{
			name:   "first page",
			params: models.Params{Page: "1", Limit: "5"},
			want:   &models.Descriptor{Skip: ptr(0), Take: ptr(5)},
		},
		{
			name:   "filter",
			params: models.Params{Filter: "name||$eq||mlad"},
			want: &models.Descriptor{Where: []models.AndGroup{
				models.NewAndGroup(models.Entry{Field: "name", Value: models.Eq("mlad")}),
			}},
		},
		{
			name:   "whitespace filter",
			params: models.Params{Filter: "   "},
			want:   &models.Descriptor{},
		},
	}

	b := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.Build(tt.params)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Build mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildEmptyFilterForms(t *testing.T) {
	b := New(nil)
	absent, _ := b.Build(models.Params{})
	empty, _ := b.Build(models.Params{Filter: ""})
	blank, _ := b.Build(models.Params{Filter: " \t "})

	assert.True(t, absent.IsEmpty())
	assert.Empty(t, cmp.Diff(absent, empty))
	assert.Empty(t, cmp.Diff(absent, blank))
	assert.NotContains(t, blank.ToMap(), "where")
}

func TestBuildIsIdempotent(t *testing.T) {
	b := New(nil)
	params := models.Params{
		Select: "id,name",
		Sort:   "name,DESC",
		Page:   "3",
		Filter: "a||$in||1,2||$or||b||!$eq||x",
	}
	first, err := b.Build(params)
	require.NoError(t, err)
	second, err := b.Build(params)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(first, second))
}

func TestBuildDropsInvalidValues(t *testing.T) {
	got, err := New(nil).Build(models.Params{
		Limit: "ten",
		Page:  "0",
		Cache: "maybe",
		Sort:  "name,sideways",
	})
	require.Error(t, err)
	assert.Nil(t, got.Skip)
	assert.Nil(t, got.Take)
	assert.Nil(t, got.Cache)
	assert.Equal(t, []models.Order{{Field: "name", Direction: models.Ascending}}, got.Order)
}

func TestPaginateMaxLimit(t *testing.T) {
	cfg, err := config.New(map[string]any{"maxLimit": 50, "defaultLimit": 100})
	require.NoError(t, err)

	skip, take, err := Paginate(cfg, "500", "")
	require.NoError(t, err)
	assert.Nil(t, skip)
	assert.Equal(t, 50, *take)

	skip, take, err = Paginate(cfg, "", "3")
	require.NoError(t, err)
	assert.Equal(t, 100, *skip)
	assert.Equal(t, 50, *take)
}

func TestPaginateRejectsZeroLimit(t *testing.T) {
	for _, tc := range []struct{ limit, page string }{{"0", ""}, {"0", "2"}, {"-3", ""}} {
		skip, take, err := Paginate(config.Default(), tc.limit, tc.page)
		assert.Error(t, err, "limit %q", tc.limit)
		if tc.page == "" {
			assert.Nil(t, take)
			assert.Nil(t, skip)
			continue
		}
		assert.Equal(t, 25, *skip)
		assert.Equal(t, 25, *take)
	}
}

func TestToMap(t *testing.T) {
	d, err := New(nil).Build(models.Params{
		Select: "id",
		Sort:   "id,DESC,NULLS_LAST",
		Page:   "2",
		Limit:  "10",
		Filter: "name||$ne||x;age||$between||1,5",
	})
	require.NoError(t, err)

	want := map[string]any{
		"select": map[string]any{"id": true},
		"order":  map[string]any{"id": map[string]any{"direction": "DESC", "nulls": "NULLS LAST"}},
		"skip":   10,
		"take":   10,
		"where": []any{map[string]any{
			"name": map[string]any{"$ne": "x"},
			"age":  map[string]any{"$between": []any{int64(1), int64(5)}},
		}},
	}
	assert.Equal(t, want, d.ToMap())

	pb, err := d.ToProto()
	require.NoError(t, err)
	assert.Equal(t, float64(10), pb.GetFields()["skip"].GetNumberValue())
}
