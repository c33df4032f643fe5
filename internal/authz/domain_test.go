package authz

import (
	"sort"
	"testing"
)

func boolPtr(v bool) *bool {
	return &v
}

func TestDecidePrecedence(t *testing.T) {
	cases := []struct {
		name string
		in   DecisionInput
		want bool
	}{
		{"no override, role denies", DecisionInput{}, false},
		{"no override, role grants", DecisionInput{RoleGrants: true}, true},
		{"revoke beats role grant", DecisionInput{Override: boolPtr(false), RoleGrants: true}, false},
		{"revoke without role grant", DecisionInput{Override: boolPtr(false)}, false},
		{"grant beats role denial", DecisionInput{Override: boolPtr(true)}, true},
		{"grant agrees with role", DecisionInput{Override: boolPtr(true), RoleGrants: true}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.in); got != tc.want {
				t.Fatalf("Decide(%+v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestDecideZeroValueDenies(t *testing.T) {
	// An unknown user or permission produces the zero input.
	if Decide(DecisionInput{}) {
		t.Fatal("zero input must deny")
	}
}

func TestEffectiveSet(t *testing.T) {
	rows := EffectiveRows{
		RoleNames: []string{"courses.view", "enrollments.view", "enrollments.approve"},
		Overrides: map[string]bool{
			"enrollments.approve": false,
			"library.lend":        true,
		},
	}

	got := EffectiveSet(rows)
	sort.Strings(got)

	want := []string{"courses.view", "enrollments.view", "library.lend"}
	if len(got) != len(want) {
		t.Fatalf("expected %d names, got %v", len(want), got)
	}
	for i, name := range want {
		if got[i] != name {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestEffectiveSetEmptyInputs(t *testing.T) {
	if got := EffectiveSet(EffectiveRows{}); len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}

	// A revoke for a permission the role never granted stays a no-op.
	got := EffectiveSet(EffectiveRows{Overrides: map[string]bool{"payments.refund": false}})
	if len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
}

func TestNormalizeNames(t *testing.T) {
	got := NormalizeNames([]string{" Courses.View ", "courses.view", "", "LIBRARY.LEND", "library.lend"})
	want := []string{"courses.view", "library.lend"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestNormalizeNamesEmpty(t *testing.T) {
	if got := NormalizeNames(nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
	if got := NormalizeNames([]string{"  ", ""}); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}
