package users_test

import (
	"testing"

	users "github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageQuery(t *testing.T) {
	tests := []struct {
		name     string
		page     string
		perpage  string
		wantErr  bool
		wantSkip int
		wantTake int
	}{
		{
			name:     "Absent values use defaults",
			page:     "",
			perpage:  "",
			wantSkip: 0,
			wantTake: users.DefaultPerPage,
		},
		{
			name:     "Explicit first page",
			page:     "1",
			perpage:  "",
			wantSkip: 0,
			wantTake: users.DefaultPerPage,
		},
		{
			name:     "Second page with custom size",
			page:     "2",
			perpage:  "10",
			wantSkip: 10,
			wantTake: 10,
		},
		{
			name:     "Zero values behave like defaults",
			page:     "0",
			perpage:  "0",
			wantSkip: 0,
			wantTake: users.DefaultPerPage,
		},
		{
			name:    "Non integer page",
			page:    "abc",
			perpage: "",
			wantErr: true,
		},
		{
			name:    "Non integer perpage",
			page:    "1",
			perpage: "ten",
			wantErr: true,
		},
		{
			name:    "Float page",
			page:    "1.5",
			perpage: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := users.ParsePageQuery(tt.page, tt.perpage)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantSkip, q.Skip())
			assert.Equal(t, tt.wantTake, q.Take())
		})
	}
}

func TestPageQueryMeta(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		q := users.PageQuery{}
		meta := q.Meta(61)

		assert.Equal(t, 1, meta.CurrentPage)
		assert.Equal(t, 3, meta.Pages)
		assert.Equal(t, users.DefaultPerPage, meta.PerPage)
	})

	t.Run("Exact multiple", func(t *testing.T) {
		q := users.PageQuery{Page: 2, PerPage: 10}
		meta := q.Meta(30)

		assert.Equal(t, 2, meta.CurrentPage)
		assert.Equal(t, 3, meta.Pages)
		assert.Equal(t, 10, meta.PerPage)
	})

	t.Run("Empty collection", func(t *testing.T) {
		q := users.PageQuery{PerPage: 10}
		meta := q.Meta(0)

		assert.Equal(t, 1, meta.CurrentPage)
		assert.Equal(t, 0, meta.Pages)
	})
}
