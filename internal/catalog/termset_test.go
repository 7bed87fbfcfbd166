package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddTermTag(t *testing.T) {
	tests := []struct {
		name      string
		tags      []string
		tag       string
		expected  []string
		wantAdded bool
	}{
		{"nil set", nil, "Fall", []string{"Fall"}, true},
		{"empty set", []string{}, "Fall", []string{"Fall"}, true},
		{"absent tag appended last", []string{"Winter"}, "Fall", []string{"Winter", "Fall"}, true},
		{"present tag is a no-op", []string{"Fall", "Winter"}, "Fall", []string{"Fall", "Winter"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, added := AddTermTag(tt.tags, tt.tag)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.wantAdded, added)
		})
	}
}

func TestAddTermTag_DoesNotAliasInput(t *testing.T) {
	in := make([]string, 1, 4)
	in[0] = "Winter"

	out, _ := AddTermTag(in, "Fall")
	out[0] = "Changed"

	assert.Equal(t, "Winter", in[0])
}

func TestAddTermTag_RepeatedApplicationIsIdempotent(t *testing.T) {
	var tags []string
	for i := 0; i < 5; i++ {
		tags, _ = AddTermTag(tags, "Fall")
	}
	assert.Equal(t, []string{"Fall"}, tags)
}

func TestNormalizeTermTags(t *testing.T) {
	assert.Equal(t, []string{"Fall", "Winter"}, NormalizeTermTags([]string{"Fall", "", "Winter", "Fall"}))
	assert.Empty(t, NormalizeTermTags(nil))
}

func TestEqualTermTags(t *testing.T) {
	assert.True(t, EqualTermTags(nil, []string{}))
	assert.True(t, EqualTermTags([]string{"Fall"}, []string{"Fall"}))
	assert.False(t, EqualTermTags([]string{"Fall"}, []string{"Winter"}))
	assert.False(t, EqualTermTags([]string{"Fall"}, []string{"Fall", "Winter"}))
}
