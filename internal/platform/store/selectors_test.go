package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type dated struct {
	ID     string
	Parent string
	Date   time.Time
	Weight *float64
	Text   string
}

func (d dated) EntityID() string { return d.ID }
func (d dated) ParentID() string { return d.Parent }

func fp(v float64) *float64 { return &v }

func day(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

func TestSelectors_ZeroState(t *testing.T) {
	var s State[dated, struct{}]

	_, ok := ByID(s, "x")
	assert.False(t, ok)
	assert.Empty(t, ForParent(s, "p"))
	assert.NotNil(t, ForParent(s, "p"))
	assert.Equal(t, 0, Count(s.Items, func(dated) bool { return true }))
	_, ok = Average(s.Items, func(d dated) (float64, bool) { return 0, false })
	assert.False(t, ok)
	_, ok = Latest(s.Items, func(d dated) time.Time { return d.Date })
	assert.False(t, ok)

	v := Status(s)
	assert.Equal(t, ViewStatus{IsEmpty: true}, v)
}

func TestSelectors_Projections(t *testing.T) {
	s := State[dated, struct{}]{Items: []dated{
		{ID: "a", Parent: "p1", Date: day(1), Weight: fp(60), Text: "Nausées matinales"},
		{ID: "b", Parent: "p1", Date: day(10), Weight: fp(64)},
		{ID: "c", Parent: "p2", Date: day(20), Text: "RAS"},
	}}

	got, ok := ByID(s, "b")
	assert.True(t, ok)
	assert.Equal(t, day(10), got.Date)

	assert.Len(t, InDateRange(s.Items, func(d dated) time.Time { return d.Date }, day(5), day(20)), 2)
	assert.Len(t, InDateRange(s.Items, func(d dated) time.Time { return d.Date }, time.Time{}, day(1)), 1)

	avg, ok := Average(s.Items, func(d dated) (float64, bool) {
		if d.Weight == nil {
			return 0, false
		}
		return *d.Weight, true
	})
	assert.True(t, ok)
	assert.InDelta(t, 62.0, avg, 0.001)

	groups, order := GroupBy(s.Items, func(d dated) string { return d.Parent })
	assert.Equal(t, []string{"p1", "p2"}, order)
	assert.Len(t, groups["p1"], 2)

	latest, _ := Latest(s.Items, func(d dated) time.Time { return d.Date })
	assert.Equal(t, "c", latest.ID)

	assert.Len(t, Filter(s.Items, func(d dated) bool { return Contains(d.Text, "NAUSÉES") }), 1)
	assert.Len(t, ForParent(s, "p1"), 2)
}

func TestForParent_PrefersScopedCollection(t *testing.T) {
	s := State[dated, struct{}]{
		Items:        []dated{{ID: "a", Parent: "p1"}},
		ByParent:     []dated{{ID: "a", Parent: "p1"}, {ID: "z", Parent: "p1"}},
		ParentKey:    "p1",
		ParentStatus: ParentReady,
	}
	assert.Len(t, ForParent(s, "p1"), 2)
	assert.Len(t, ForParent(s, "p2"), 0)
}
