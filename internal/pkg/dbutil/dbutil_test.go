package dbutil

import (
	"testing"

	"github.com/didi/gendry/builder"
	"github.com/stretchr/testify/require"
)

func TestFinalize_RewritesLimitAndPlaceholders(t *testing.T) {
	where := map[string]interface{}{
		"genre":    "pop",
		"_orderby": "id asc",
		"_limit":   []uint{0, 100},
	}
	query, args, err := builder.BuildSelect("tracks", where, []string{"id"})
	require.NoError(t, err)

	query, args = Finalize(query, args)
	require.NotContains(t, query, "?")
	require.Contains(t, query, "LIMIT $2 OFFSET $3")
	require.Len(t, args, 3)
	require.Equal(t, "pop", args[0])
	require.EqualValues(t, 100, args[1])
	require.EqualValues(t, 0, args[2])
}

func TestFinalize_WithoutLimit(t *testing.T) {
	query, args := Finalize("SELECT id FROM tracks WHERE id=?", []interface{}{"t1"})
	require.Equal(t, "SELECT id FROM tracks WHERE id=$1", query)
	require.Equal(t, []interface{}{"t1"}, args)
}
