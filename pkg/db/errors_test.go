package db

import (
	"errors"
	"testing"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "postgres", err: errors.New(`ERROR: duplicate key value violates unique constraint "checkout_runs_pkey"`), want: true},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: checkout_runs.id"), want: true},
		{name: "named match", err: errors.New(`duplicate key value violates unique constraint "checkout_runs_pkey"`), constraint: "checkout_runs_pkey", want: true},
		{name: "named miss", err: errors.New(`duplicate key value violates unique constraint "other"`), constraint: "checkout_runs_pkey", want: false},
		{name: "unrelated", err: errors.New("connection refused"), want: false},
	}
	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
	}
}
