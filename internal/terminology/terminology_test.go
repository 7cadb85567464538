package terminology_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/chaptertran/internal/terminology"
)

func TestMap_Sorted(t *testing.T) {
	m := terminology.Map{"李伟": "Li Wei", "北京": "Beijing", "龙": "Dragon"}

	entries := m.Sorted()
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].Source, entries[i].Source)
	}
}

func TestMap_CloneIsIndependent(t *testing.T) {
	m := terminology.Map{"李伟": "Li Wei"}
	c := m.Clone()
	c["北京"] = "Beijing"

	assert.Len(t, m, 1)
	assert.Len(t, c, 2)

	var nilMap terminology.Map
	assert.NotNil(t, nilMap.Clone())
}

func TestMap_Fingerprint(t *testing.T) {
	a := terminology.Map{"李伟": "Li Wei", "北京": "Beijing"}
	b := terminology.Map{"北京": "Beijing", "李伟": "Li Wei"}
	c := terminology.Map{"北京": "Peking", "李伟": "Li Wei"}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.NotEqual(t, terminology.Map{}.Fingerprint(), a.Fingerprint())
}

func TestScope_SetAndSnapshot(t *testing.T) {
	s := terminology.NewScope(terminology.Map{"李伟": "Li Wei", " ": "blank"})
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Set(" 北京 ", "Beijing"))
	snap := s.Snapshot()
	assert.Equal(t, "Beijing", snap["北京"])

	// Later writes do not leak into an earlier snapshot.
	require.NoError(t, s.Set("龙", "Dragon"))
	_, ok := snap["龙"]
	assert.False(t, ok)

	assert.ErrorIs(t, s.Set("", "x"), terminology.ErrEmptyTerm)
	assert.ErrorIs(t, s.Set("x", "  "), terminology.ErrEmptyTerm)
}

func TestScope_NormalizesKeys(t *testing.T) {
	s := terminology.NewScope(nil)
	// "é" decomposed (e + combining acute) and precomposed share one key.
	require.NoError(t, s.Set("cafe\u0301", "cafe"))
	require.NoError(t, s.Set("caf\u00e9", "caf\u00e9"))

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "café", s.Snapshot()["caf\u00e9"])
}

func TestScope_DeleteAndMerge(t *testing.T) {
	s := terminology.NewScope(terminology.Map{"李伟": "Li Wei"})

	added := s.Merge(terminology.Map{"李伟": "Wei Li", "北京": "Beijing", "空": ""})
	assert.Equal(t, 1, added)
	assert.Equal(t, "Wei Li", s.Snapshot()["李伟"])
	assert.Equal(t, 2, s.Len())

	assert.True(t, s.Delete("北京"))
	assert.False(t, s.Delete("北京"))
	assert.Equal(t, 1, s.Len())
}

func TestScope_ConcurrentAccess(t *testing.T) {
	s := terminology.NewScope(nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = s.Set(string(rune('甲'+i)), "x")
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, s.Len())
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		source string
		known  terminology.Map
		want   terminology.Map
	}{
		{
			name:   "run before full stop",
			source: "他遇见了李伟。",
			want:   terminology.Map{"见了李伟": "[见了李伟]"},
		},
		{
			name:   "short runs at comma and end",
			source: "北京，上海",
			want:   terminology.Map{"北京": "[北京]", "上海": "[上海]"},
		},
		{
			name:   "single ideograph ignored",
			source: "龙。",
			want:   terminology.Map{},
		},
		{
			name:   "run not followed by terminator",
			source: "李伟说hello",
			want:   terminology.Map{},
		},
		{
			name:   "whitespace ends a run",
			source: "长安 城",
			want:   terminology.Map{"长安": "[长安]"},
		},
		{
			name:   "known terms skipped",
			source: "北京，上海！",
			known:  terminology.Map{"北京": "Beijing"},
			want:   terminology.Map{"上海": "[上海]"},
		},
		{
			name:   "empty",
			source: "",
			want:   terminology.Map{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, terminology.Extract(tt.source, tt.known))
		})
	}
}
