package model

import "testing"

func TestPageNormalize(t *testing.T) {
	cases := []struct {
		in, want Page
	}{
		{Page{}, Page{Page: 1, Limit: 10}},
		{Page{Page: -3, Limit: 0}, Page{Page: 1, Limit: 10}},
		{Page{Page: 2, Limit: 25}, Page{Page: 2, Limit: 25}},
		{Page{Page: 1, Limit: 5000}, Page{Page: 1, Limit: 100}},
	}
	for _, tc := range cases {
		if got := tc.in.Normalize(); got != tc.want {
			t.Fatalf("Normalize(%+v) = %+v; want %+v", tc.in, got, tc.want)
		}
	}
}

func TestPageOffset(t *testing.T) {
	p := Page{Page: 3, Limit: 20}
	if got := p.Offset(); got != 40 {
		t.Fatalf("got %d; want 40", got)
	}
}
