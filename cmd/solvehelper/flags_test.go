package main

import (
	"reflect"
	"testing"
)

func TestIntFlag(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		want     int
		wantRest []string
		wantErr  bool
	}{
		{"absent", []string{"abc300_a"}, 40, []string{"abc300_a"}, false},
		{"separate", []string{"abc300_a", "--minutes", "25"}, 25, []string{"abc300_a"}, false},
		{"equals", []string{"--minutes=0", "abc300_a"}, 0, []string{"abc300_a"}, false},
		{"missing value", []string{"--minutes"}, 0, nil, true},
		{"not a number", []string{"--minutes", "soon"}, 0, nil, true},
		{"negative", []string{"--minutes=-5"}, 0, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rest, err := intFlag(tt.args, "--minutes", 40)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v; wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want || !reflect.DeepEqual(rest, tt.wantRest) {
				t.Errorf("intFlag() = %d, %v; want %d, %v", got, rest, tt.want, tt.wantRest)
			}
		})
	}
}
