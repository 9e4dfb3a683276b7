package mined

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMine(t *testing.T) {
	t.Parallel()

	m := New()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "bare year",
			text: "Boston street map of 1888 reprint",
			want: []string{"1888-01-01"},
		},
		{
			name: "explicit iso date wins over its year",
			text: "Surveyed 2016-05-03 in the field",
			want: []string{"2016-05-03"},
		},
		{
			name: "mixed, deduplicated, first appearance order",
			text: "From 1950 to 1950 and again in 2001",
			want: []string{"1950-01-01", "2001-01-01"},
		},
		{
			name: "invalid month rejected",
			text: "code 2020-13-40 in title",
			want: []string{"2020-01-01"},
		},
		{
			name: "no dates",
			text: "roads of the kingdom",
			want: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, m.Mine(tc.text))
		})
	}
}
