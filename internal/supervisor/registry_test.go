package supervisor

import (
	"sync"
	"testing"

	"github.com/mevdschee/openspec-ui/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestSourceRegistryUpdateReplaces(t *testing.T) {
	reg := NewSourceRegistry([]config.Source{
		{ID: "a", Name: "a", Path: "/a", Valid: true},
		{ID: "b", Name: "b", Path: "/b", Valid: false},
	})
	assert.Len(t, reg.Sources(), 2)
	assert.Len(t, reg.Valid(), 1)

	reg.Update([]config.Source{{ID: "c", Name: "c", Path: "/c", Valid: true}})
	assert.Equal(t, []config.Source{{ID: "c", Name: "c", Path: "/c", Valid: true}}, reg.Sources())

	_, ok := reg.Lookup("a")
	assert.False(t, ok)
}

func TestSourceRegistrySnapshotsAreCopies(t *testing.T) {
	input := []config.Source{{ID: "a", Path: "/a", Valid: true}}
	reg := NewSourceRegistry(input)
	input[0].Path = "/changed"

	snap := reg.Sources()
	snap[0].Path = "/mutated"
	assert.Equal(t, "/a", reg.Sources()[0].Path)
}

func TestSourceRegistryLookupLastDuplicateWins(t *testing.T) {
	reg := NewSourceRegistry([]config.Source{
		{ID: "dup", Path: "/first", Valid: true},
		{ID: "other", Path: "/other", Valid: true},
		{ID: "dup", Path: "/second", Valid: true},
	})
	s, ok := reg.Lookup("dup")
	assert.True(t, ok)
	assert.Equal(t, "/second", s.Path)
}

func TestSourceRegistryConcurrentAccess(t *testing.T) {
	reg := NewSourceRegistry(nil)
	lists := [][]config.Source{
		{{ID: "a"}, {ID: "b"}},
		{{ID: "c"}, {ID: "d"}, {ID: "e"}},
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				reg.Update(lists[(i+j)%2])
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				got := reg.Sources()
				// never a mix of two lists
				if len(got) != 0 {
					assert.Contains(t, []int{2, 3}, len(got))
					if len(got) == 2 {
						assert.Equal(t, "a", got[0].ID)
					} else {
						assert.Equal(t, "c", got[0].ID)
					}
				}
			}
		}()
	}
	wg.Wait()
}
