package main

import "testing"

func TestParseRange(t *testing.T) {
	tests := []struct {
		in         string
		start, end int
		wantErr    bool
	}{
		{in: "4:5", start: 4, end: 5},
		{in: "7", start: 7, end: 7},
		{in: "0:0", start: 0, end: 0},
		{in: "5:4", wantErr: true},
		{in: "-1:2", wantErr: true},
		{in: "a:2", wantErr: true},
		{in: "1:", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			start, end, err := parseRange(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseRange(%q) = %d, %d; want an error", tt.in, start, end)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRange(%q): %v", tt.in, err)
			}
			if start != tt.start || end != tt.end {
				t.Errorf("parseRange(%q) = %d, %d; want %d, %d", tt.in, start, end, tt.start, tt.end)
			}
		})
	}
}
