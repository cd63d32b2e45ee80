package rowsnap_test

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/rowsnap"
)

func TestAccessor_Type(t *testing.T) {
	t.Parallel()

	var (
		n  int
		s  *string
		mu sync.Mutex
		b  []byte
	)
	tcs := []struct {
		name string
		acc  rowsnap.Accessor
		want reflect.Type
	}{
		{name: "ref", acc: rowsnap.Ref(&n), want: reflect.TypeFor[int]()},
		{name: "ptr", acc: rowsnap.Ptr(&s), want: reflect.TypeFor[string]()},
		{name: "locked", acc: rowsnap.Locked(&mu, &b), want: reflect.TypeFor[[]byte]()},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.acc.Type())
		})
	}
}

func TestRef_Set(t *testing.T) {
	t.Parallel()

	var n int
	acc := rowsnap.Ref(&n)

	require.NoError(t, acc.Set(int64(7)))
	assert.Equal(t, 7, n)
	require.NoError(t, acc.Set([]byte("12")))
	assert.Equal(t, 12, n)
	require.NoError(t, acc.Set(nil))
	assert.Equal(t, 0, n)

	err := acc.Set("seven")
	require.ErrorIs(t, err, rowsnap.ErrBind)
	assert.Equal(t, 0, n)

	v, ok := acc.Get()
	assert.True(t, ok)
	assert.Equal(t, 0, v)
}

func TestPtr_GetSet(t *testing.T) {
	t.Parallel()

	var p *string
	acc := rowsnap.Ptr(&p)

	_, ok := acc.Get()
	assert.False(t, ok)

	require.NoError(t, acc.Set([]byte("neo")))
	require.NotNil(t, p)
	v, ok := acc.Get()
	assert.True(t, ok)
	assert.Equal(t, "neo", v)

	require.NoError(t, acc.Set(nil))
	assert.Nil(t, p)
}

func TestFields_Bind(t *testing.T) {
	t.Parallel()

	var a, b int
	var f rowsnap.Fields
	f.Bind("a", rowsnap.Ref(&a)).Bind("b", rowsnap.Ref(&b)).Bind("a", rowsnap.Ref(&b))

	assert.Equal(t, []string{"a", "b"}, f.ColumnNames())

	b = 3
	acc, ok := f.Field("a")
	require.True(t, ok)
	v, _ := acc.Get()
	assert.Equal(t, 3, v)

	_, ok = f.Field("c")
	assert.False(t, ok)
}
