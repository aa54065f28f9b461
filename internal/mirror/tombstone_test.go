package mirror

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTombstoneNames(t *testing.T) {
	at := time.Date(2026, 3, 15, 12, 4, 59, 0, time.UTC)

	assert.Equal(t, "docs/report.pdf[MODIFIED 202603151204]", ModifiedName("docs/report.pdf", at))
	assert.Equal(t, "docs/report.pdf[DELETED 202603151204]", DeletedName("docs/report.pdf", at))
	assert.Equal(t, "docs/report.pdf[DELETED 202603151204].empty", DeletedMarkerName("docs/report.pdf", at))
}

func TestTombstoneNamesUseUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	at := time.Date(2026, 3, 15, 17, 4, 0, 0, loc)

	assert.Equal(t, "a.txt[MODIFIED 202603151204]", ModifiedName("a.txt", at))
}

func TestIsTombstone(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"report.pdf", false},
		{"report.pdf[MODIFIED 202603151204]", true},
		{"report.pdf[DELETED 202603151204]", true},
		{"report.pdf[DELETED 202603151204].empty", true},
		{"docs/a[DELETED 202603151204]/b.txt", true},
		{"MODIFIED.txt", false},
		{"[DELETED].txt", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTombstone(tt.name), tt.name)
	}
}
