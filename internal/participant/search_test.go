package participant

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func named(id, child, parent, email string, created time.Time) Participant {
	return Participant{ID: id, ChildName: child, ParentName: parent, Email: email, Status: StatusPending, CreatedAt: created, UpdatedAt: created}
}

func TestSearch(t *testing.T) {
	all := []Participant{
		named("1", "Budi Santoso", "Ani", "ani@example.com", t0),
		named("2", "ali", "Rudi", "rudi@example.com", t0.Add(time.Second)),
		named("3", "Citra", "Alisha", "citra@example.com", t0.Add(2*time.Second)),
		named("4", "Dewi", "Eko", "eko@mail.id", t0.Add(3*time.Second)),
	}

	res := Search(all, "  ALI ", 0)
	require.Len(t, res, 2)
	assert.Equal(t, "2", res[0].ID, "child name order, case folded")
	assert.Equal(t, "3", res[1].ID, "parent name match")

	res = Search(all, "budi", 0)
	require.Len(t, res, 1)
	assert.Equal(t, "1", res[0].ID)

	res = Search(all, "MAIL.ID", 0)
	require.Len(t, res, 1)
	assert.Equal(t, "4", res[0].ID)

	assert.Empty(t, Search(all, "zzz", 0))
}

func TestSearchBlankQuery(t *testing.T) {
	all := []Participant{named("1", "Ali", "Budi", "", t0)}
	for _, q := range []string{"", "   ", "\t\n"} {
		res := Search(all, q, 0)
		assert.NotNil(t, res)
		assert.Empty(t, res)
	}
}

func TestSearchCapsResults(t *testing.T) {
	var all []Participant
	for i := 0; i < 80; i++ {
		all = append(all, named(fmt.Sprintf("%03d", i), fmt.Sprintf("Ali %03d", i), "P", "", t0))
	}
	assert.Len(t, Search(all, "ali", 0), DefaultSearchLimit)
	assert.Len(t, Search(all, "ali", 10), 10)
}

func TestSearchTiesKeepCreationOrder(t *testing.T) {
	all := []Participant{
		named("b", "Ali", "X", "", t0.Add(time.Second)),
		named("a", "Ali", "Y", "", t0.Add(2*time.Second)),
		named("c", "Ali", "Z", "", t0),
	}
	res := Search(all, "ali", 0)
	require.Len(t, res, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{res[0].ID, res[1].ID, res[2].ID})
}

func TestSearchCaseOnlyTiesKeepCreationOrder(t *testing.T) {
	all := []Participant{
		named("second", "Ali", "X", "", t0.Add(time.Second)),
		named("first", "ali", "Y", "", t0),
	}
	res := Search(all, "ali", 0)
	require.Len(t, res, 2)
	assert.Equal(t, []string{"first", "second"}, []string{res[0].ID, res[1].ID})
}

func TestSearchDoesNotModifyInput(t *testing.T) {
	all := []Participant{
		named("1", "Zed", "Ali", "", t0),
		named("2", "Ali", "Q", "", t0),
	}
	res := Search(all, "ali", 0)
	res[0].ChildName = "changed"
	assert.Equal(t, "Zed", all[0].ChildName)
	assert.Equal(t, "Ali", all[1].ChildName)
}

func TestNormalizeQuery(t *testing.T) {
	assert.Equal(t, "", NormalizeQuery("  "))
	assert.Equal(t, "ali budi", NormalizeQuery(" Ali   BUDI "))
	assert.Equal(t, "strasse", NormalizeQuery("STRASSE"))
}

func TestSortByRecent(t *testing.T) {
	ps := []Participant{
		named("1", "A", "", "", t0),
		named("2", "B", "", "", t0.Add(time.Hour)),
		named("3", "C", "", "", t0.Add(time.Minute)),
	}
	SortByRecent(ps)
	assert.Equal(t, []string{"2", "3", "1"}, []string{ps[0].ID, ps[1].ID, ps[2].ID})
}
