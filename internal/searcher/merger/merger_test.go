package merger

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/textindex/internal/searcher/ranker"
)

func TestMerge(t *testing.T) {
	a := []ranker.Result{{Ref: "a1", Score: 3, Source: "a"}, {Ref: "x", Score: 1, Source: "a"}}
	b := []ranker.Result{{Ref: "b1", Score: 2, Source: "b"}, {Ref: "x", Score: 1, Source: "b"}, {Ref: "b0", Score: 1, Source: "b"}}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"all", 0, []string{"a/a1", "b/b1", "b/b0", "a/x", "b/x"}},
		{"top three", 3, []string{"a/a1", "b/b1", "b/b0"}},
		{"limit above size", 10, []string{"a/a1", "b/b1", "b/b0", "a/x", "b/x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge([][]ranker.Result{a, b}, tt.limit)
			keys := make([]string, len(got))
			for i, r := range got {
				keys[i] = r.Source + "/" + r.Ref
			}
			if !reflect.DeepEqual(keys, tt.want) {
				t.Errorf("Merge = %v, want %v", keys, tt.want)
			}
		})
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := Merge(nil, 0); got == nil || len(got) != 0 {
		t.Errorf("Merge(nil, 0) = %#v, want empty slice", got)
	}
	if got := Merge([][]ranker.Result{{}, {}}, 5); len(got) != 0 {
		t.Errorf("Merge(empty, 5) = %v", got)
	}
}
