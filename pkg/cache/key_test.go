package cache

import "testing"

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "endpoint without query",
			key:  Key{URL: "https://example.substack.com/api/v1/archive"},
			want: "substack:example.substack.com/api/v1/archive",
		},
		{
			name: "endpoint with query",
			key: Key{
				URL:   "https://example.substack.com/api/v1/archive",
				Query: "sort=new&offset=0&limit=15",
			},
			want: "substack:example.substack.com/api/v1/archive:sort=new&offset=0&limit=15",
		},
		{
			name: "trailing slash normalized",
			key:  Key{URL: "https://substack.com/api/v1/categories/"},
			want: "substack:substack.com/api/v1/categories",
		},
		{
			name: "unparseable url used verbatim",
			key:  Key{URL: "not-a-url"},
			want: "substack:not-a-url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_DistinctQueriesDistinctKeys(t *testing.T) {
	a := Key{URL: "https://example.substack.com/api/v1/archive", Query: "sort=new&offset=0&limit=15"}
	b := Key{URL: "https://example.substack.com/api/v1/archive", Query: "sort=top&offset=0&limit=15"}

	if a.String() == b.String() {
		t.Error("different queries produced the same cache key")
	}
}
