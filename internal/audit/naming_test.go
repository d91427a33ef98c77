package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTableName_UsesDayInLocation(t *testing.T) {
	at := time.Date(2026, time.March, 4, 23, 30, 0, 0, time.UTC)

	name, err := TableName("user_location", at, time.UTC)
	require.NoError(t, err)
	require.Equal(t, "user_location_04032026", name)

	jst := time.FixedZone("JST", 9*60*60)
	name, err = TableName("user_location", at, jst)
	require.NoError(t, err)
	require.Equal(t, "user_location_05032026", name)

	name, err = TableName("user_location", at, nil)
	require.NoError(t, err)
	require.Equal(t, "user_location_04032026", name)
}

func TestTableName_RejectsUnsafeBaseName(t *testing.T) {
	for _, base := range []string{"", "User", "1abc", "a-b", "users; drop table users"} {
		_, err := TableName(base, time.Now(), time.UTC)
		require.ErrorIs(t, err, ErrInvalidBaseName, base)
	}
}

func TestValidTableName(t *testing.T) {
	require.True(t, ValidTableName("user_location_04032026"))
	require.False(t, ValidTableName("user_location"))
	require.False(t, ValidTableName("user_location_0403202"))
	require.False(t, ValidTableName(`users"; --_04032026`))
	require.False(t, ValidTableName("_04032026"))
	require.False(t, ValidTableName("User_location_04032026"))
}
