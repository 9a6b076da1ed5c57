package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func entry(id, category string, meta map[string]interface{}) Entry {
	return Entry{ID: id, Category: category, Metadata: meta}
}

func TestMergeByCategoryReplacesOnlyTouchedCategories(t *testing.T) {
	existing := []Entry{
		entry("cpu-0", "cpu", map[string]interface{}{"usage": 10.0}),
		entry("ram-0", "ram", map[string]interface{}{"used": 1.0}),
		entry("net-0", "network", map[string]interface{}{"rx": 5.0}),
	}
	fresh := []Entry{
		entry("cpu-0", "cpu", map[string]interface{}{"usage": 42.0}),
	}

	merged := MergeByCategory(existing, fresh, []string{"cpu"})

	assert.Len(t, merged, 3)
	assert.Equal(t, 42.0, FindByCategory(merged, "cpu").Metadata["usage"])
	assert.Equal(t, 1.0, FindByCategory(merged, "ram").Metadata["used"])
	assert.Equal(t, 5.0, FindByCategory(merged, "network").Metadata["rx"])
}

func TestMergeByCategoryIsCaseInsensitive(t *testing.T) {
	existing := []Entry{entry("cpu-0", "CPU", nil)}
	fresh := []Entry{entry("cpu-1", "cpu", nil)}

	merged := MergeByCategory(existing, fresh, []string{"cpu"})

	assert.Len(t, merged, 1)
	assert.Equal(t, "cpu-1", merged[0].ID)
}

func TestMergeByCategoryDropsCategoryWithNoFreshEntries(t *testing.T) {
	// A touched category with no fresh entry this iteration loses its old
	// value; untouched categories keep theirs.
	existing := []Entry{
		entry("cpu-0", "cpu", nil),
		entry("ram-0", "ram", nil),
	}

	merged := MergeByCategory(existing, nil, []string{"cpu"})

	assert.Len(t, merged, 1)
	assert.Nil(t, FindByCategory(merged, "cpu"))
	assert.NotNil(t, FindByCategory(merged, "ram"))
}

func TestMergeIdempotence(t *testing.T) {
	existing := []Entry{
		entry("cpu-0", "cpu", map[string]interface{}{"usage": 10.0}),
		entry("ram-0", "ram", map[string]interface{}{"used": 1.0}),
	}
	fresh := []Entry{
		entry("cpu-0", "cpu", map[string]interface{}{"usage": 42.0}),
	}

	once := MergeByCategory(existing, fresh, []string{"cpu"})
	twice := MergeByCategory(once, fresh, []string{"cpu"})

	assert.True(t, EntriesEqual(once, twice))
}

func TestEntriesEqualComparesMetadataDeeply(t *testing.T) {
	a := []Entry{entry("cpu-0", "cpu", map[string]interface{}{"usage": 10.0})}
	b := []Entry{entry("cpu-0", "cpu", map[string]interface{}{"usage": 10.0})}
	c := []Entry{entry("cpu-0", "cpu", map[string]interface{}{"usage": 11.0})}

	assert.True(t, EntriesEqual(a, b))
	assert.False(t, EntriesEqual(a, c))
	assert.False(t, EntriesEqual(a, nil))
}

func TestStoreMergeSkipsUnchangedResult(t *testing.T) {
	store := NewStore()
	fresh := []Entry{entry("cpu-0", "cpu", map[string]interface{}{"usage": 10.0})}

	assert.True(t, store.MergeSysdata(fresh, []string{"cpu"}, "test"))
	// Second identical merge must report no change.
	assert.False(t, store.MergeSysdata(fresh, []string{"cpu"}, "test"))

	changed := []Entry{entry("cpu-0", "cpu", map[string]interface{}{"usage": 11.0})}
	assert.True(t, store.MergeSysdata(changed, []string{"cpu"}, "test"))
}

func TestStoreBroadcastsUpdatesToSubscribers(t *testing.T) {
	store := NewStore()
	ch := store.Subscribe()
	defer store.Unsubscribe(ch)

	store.Replace(Registry{}, "startup")

	u := <-ch
	assert.Equal(t, "startup", u.Source)
	assert.Empty(t, u.Categories)

	store.MergeSysdata([]Entry{entry("cpu-0", "cpu", nil)}, []string{"cpu"}, "tier:cpu")
	u = <-ch
	assert.Equal(t, "tier:cpu", u.Source)
	assert.Equal(t, []string{"cpu"}, u.Categories)
}
