package sqlbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64 { return &v }

func TestSelect_MatchAll(t *testing.T) {
	st, err := Select("art_catalog", "orders", nil, Page{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `art_catalog`.`orders`", st.SQL)
	assert.Empty(t, st.Args)
}

func TestSelect_EmptyFilterEqualsNilFilter(t *testing.T) {
	a, err := Select("s", "t", map[string]any{}, Page{Limit: i64(5)}, []string{"a"})
	require.NoError(t, err)
	b, err := Select("s", "t", nil, Page{Limit: i64(5)}, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSelect_FilterIsBoundNotInterpolated(t *testing.T) {
	st, err := Select("s", "order_items", map[string]any{
		"order_id": int64(1),
		"item_id":  "5'; DROP TABLE orders; --",
	}, Page{}, []string{"item_id", "quantity"})
	require.NoError(t, err)

	assert.Equal(t, "SELECT `item_id`, `quantity` FROM `s`.`order_items` WHERE `item_id` = ? AND `order_id` = ?", st.SQL)
	assert.Equal(t, []any{"5'; DROP TABLE orders; --", int64(1)}, st.Args)
	assert.NotContains(t, st.SQL, "DROP")
}

func TestSelect_Pagination(t *testing.T) {
	tests := []struct {
		name   string
		page   Page
		suffix string
		args   []any
	}{
		{"none", Page{}, "", nil},
		{"limit only", Page{Limit: i64(10)}, " LIMIT ?", []any{int64(10)}},
		{"offset and limit", Page{Offset: i64(20), Limit: i64(10)}, " LIMIT ? OFFSET ?", []any{int64(10), int64(20)}},
		{"offset only uses sentinel", Page{Offset: i64(20)}, " LIMIT ? OFFSET ?", []any{MaxLimit, int64(20)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := Select("", "orders", nil, tt.page, nil)
			require.NoError(t, err)
			assert.Equal(t, "SELECT * FROM `orders`"+tt.suffix, st.SQL)
			assert.Equal(t, tt.args, st.Args)
		})
	}
}

func TestSelect_NegativePage(t *testing.T) {
	_, err := Select("s", "t", nil, Page{Offset: i64(-1)}, nil)
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, err = Select("s", "t", nil, Page{Limit: i64(-3)}, nil)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestSelect_RejectsBadIdentifiers(t *testing.T) {
	cases := []struct {
		schema, table string
		filter        map[string]any
		fields        []string
	}{
		{"s", "orders; DROP", nil, nil},
		{"s`x", "orders", nil, nil},
		{"s", "orders", map[string]any{"a = 1 OR 1": 1}, nil},
		{"s", "orders", nil, []string{"*"}},
		{"s", "", nil, nil},
	}
	for _, c := range cases {
		_, err := Select(c.schema, c.table, c.filter, Page{}, c.fields)
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	}
}

func TestSelectPrefix(t *testing.T) {
	st, err := SelectPrefix("s", "orders", "customer_id", "ab_%", Page{Limit: i64(2)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM `s`.`orders` WHERE `customer_id` LIKE ? ESCAPE '!' LIMIT ?", st.SQL)
	assert.Equal(t, []any{"ab!_!%%", int64(2)}, st.Args)
}

func TestInsert(t *testing.T) {
	st, err := Insert("s", "orders", map[string]any{"customer_id": "u1", "datetime_placed": "2024-01-01 00:00:00"})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `s`.`orders` (`customer_id`, `datetime_placed`) VALUES (?, ?)", st.SQL)
	assert.Equal(t, []any{"u1", "2024-01-01 00:00:00"}, st.Args)

	_, err = Insert("s", "orders", nil)
	assert.ErrorIs(t, err, ErrNoFields)
}

func TestUpdate(t *testing.T) {
	st, err := Update("s", "orders",
		map[string]any{"order_id": int64(7)},
		map[string]any{"customer_id": "u2", "datetime_placed": "2024-02-02 10:00:00"},
	)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `s`.`orders` SET `customer_id` = ?, `datetime_placed` = ? WHERE `order_id` = ?", st.SQL)
	assert.Equal(t, []any{"u2", "2024-02-02 10:00:00", int64(7)}, st.Args)
}

func TestUpdate_RequiresConditions(t *testing.T) {
	_, err := Update("s", "orders", nil, map[string]any{"customer_id": "u"})
	assert.ErrorIs(t, err, ErrNoConditions)

	_, err = Update("s", "orders", map[string]any{"order_id": 1}, map[string]any{})
	assert.ErrorIs(t, err, ErrNoFields)
}

func TestDelete(t *testing.T) {
	st, err := Delete("s", "order_items", map[string]any{"order_id": int64(1), "item_id": int64(5)})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `s`.`order_items` WHERE `item_id` = ? AND `order_id` = ?", st.SQL)
	assert.Equal(t, []any{int64(5), int64(1)}, st.Args)
}

func TestDelete_NeverDeletesAll(t *testing.T) {
	_, err := Delete("s", "order_items", nil)
	assert.ErrorIs(t, err, ErrNoConditions)

	_, err = Delete("s", "order_items", map[string]any{})
	assert.ErrorIs(t, err, ErrNoConditions)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "a!!b!%c!_d", escapeLike("a!b%c_d"))
}
