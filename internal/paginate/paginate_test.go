package paginate

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func render(links []Link) string {
	parts := make([]string, len(links))
	for i, l := range links {
		parts[i] = l.String()
	}
	return strings.Join(parts, " ")
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		n, size, want int
	}{
		{0, 5, 1},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{30, 5, 6},
		{31, 5, 7},
		{7, 0, 2},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.n, tt.size); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.n, tt.size, got, tt.want)
		}
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

	p := Paginate(items, 5, 3)
	if len(p.Items) != 2 || p.Items[0] != 11 || p.Items[1] != 12 {
		t.Errorf("page 3 = %v, want [11 12]", p.Items)
	}
	if p.TotalPages != 3 || p.Total != 12 {
		t.Errorf("unexpected totals %+v", p)
	}

	if out := Paginate(items, 5, 9); len(out.Items) != 0 || out.Items == nil {
		t.Errorf("out of range page should be a non-nil empty slice, got %#v", out.Items)
	}
	if out := Paginate(items, 5, 0); out.Page != 1 || out.Items[0] != 1 {
		t.Errorf("page 0 should behave like page 1, got %+v", out)
	}
	if out := Paginate([]int(nil), 5, 1); len(out.Items) != 0 || out.TotalPages != 1 {
		t.Errorf("empty input: %+v", out)
	}
}

func TestPaginateHugeSizes(t *testing.T) {
	items := []int{1, 2, 3}
	tests := []struct {
		name      string
		size      int
		page      int
		wantItems int
	}{
		{"first page of huge size", 1 << 62, 1, 3},
		{"third page of huge size", 1 << 62, 3, 0},
		{"max int size", math.MaxInt, 2, 0},
		{"huge page number", 2, math.MaxInt, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(items, tt.size, tt.page)
			if len(p.Items) != tt.wantItems {
				t.Fatalf("items = %v, want %d", p.Items, tt.wantItems)
			}
			if p.TotalPages < 1 || p.Total != 3 {
				t.Fatalf("unexpected totals %+v", p)
			}
		})
	}
	if got := TotalPages(3, math.MaxInt); got != 1 {
		t.Fatalf("TotalPages(3, MaxInt) = %d, want 1", got)
	}
}

func TestPaginateRoundTrip(t *testing.T) {
	for n := 0; n <= 23; n++ {
		items := make([]int, n)
		for i := range items {
			items[i] = i
		}
		for _, size := range []int{1, 3, 5, 7} {
			total := TotalPages(n, size)
			var joined []int
			for page := 1; page <= total; page++ {
				joined = append(joined, Paginate(items, size, page).Items...)
			}
			if len(joined) != n {
				t.Fatalf("n=%d size=%d: concatenated %d items", n, size, len(joined))
			}
			for i, v := range joined {
				if v != i {
					t.Fatalf("n=%d size=%d: item %d = %d", n, size, i, v)
				}
			}
		}
	}
}

func TestPaginateDoesNotAliasAppend(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6}
	p := Paginate(items, 2, 1)
	_ = append(p.Items, 99)
	if items[2] != 3 {
		t.Errorf("appending to a page overwrote the source: %v", items)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct{ page, total, want int }{
		{0, 5, 1},
		{1, 5, 1},
		{6, 5, 5},
		{3, 5, 3},
		{2, 0, 1},
	}
	for _, tt := range tests {
		if got := Clamp(tt.page, tt.total); got != tt.want {
			t.Errorf("Clamp(%d, %d) = %d, want %d", tt.page, tt.total, got, tt.want)
		}
	}
}

func TestLinks(t *testing.T) {
	tests := []struct {
		current, total int
		want           string
	}{
		{1, 1, "1"},
		{1, 0, "1"},
		{2, 5, "1 2 3 4 5"},
		{1, 10, "1 2 3 4 … 10"},
		{3, 10, "1 2 3 4 … 10"},
		{4, 10, "1 … 3 4 5 … 10"},
		{7, 10, "1 … 6 7 8 … 10"},
		{8, 10, "1 … 7 8 9 10"},
		{10, 10, "1 … 7 8 9 10"},
		{3, 6, "1 2 3 4 … 6"},
		{4, 6, "1 … 3 4 5 6"},
	}
	for _, tt := range tests {
		got := render(Links(tt.current, tt.total))
		if got != tt.want {
			t.Errorf("Links(%d, %d) = %q, want %q", tt.current, tt.total, got, tt.want)
		}
	}
}

func TestLinkJSON(t *testing.T) {
	data, err := json.Marshal(Links(7, 10))
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"page":1},{"ellipsis":true},{"page":6},{"page":7},{"page":8},{"ellipsis":true},{"page":10}]`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}
