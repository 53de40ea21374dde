package model_test

import (
	"reflect"
	"testing"

	"github.com/canopy-pki/canopy/internal/camgmt/model"
)

func TestParseCaStatus(t *testing.T) {
	cases := []struct {
		in   string
		want model.CaStatus
		ok   bool
	}{
		{"active", model.CaStatusActive, true},
		{"ACTIVE", model.CaStatusActive, true},
		{"Inactive", model.CaStatusInactive, true},
		{"retired", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := model.ParseCaStatus(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseCaStatus(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseDuplicationMode_namesAndNumericAliases(t *testing.T) {
	cases := []struct {
		in   string
		want model.DuplicationMode
		ok   bool
	}{
		{"forbidden", model.DupForbidden, true},
		{"1", model.DupForbidden, true},
		{"forbiddenWithinProfile", model.DupForbiddenWithinProfile, true},
		{"FORBIDDENWITHINPROFILE", model.DupForbiddenWithinProfile, true},
		{"2", model.DupForbiddenWithinProfile, true},
		{"permitted", model.DupPermitted, true},
		{"3", model.DupPermitted, true},
		{"0", 0, false},
		{"4", 0, false},
		{"allowed", 0, false},
	}
	for _, tc := range cases {
		got, ok := model.ParseDuplicationMode(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseDuplicationMode(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseValidityMode(t *testing.T) {
	for _, in := range []string{"strict", "STRICT", "Lax", "cutoff"} {
		if _, ok := model.ParseValidityMode(in); !ok {
			t.Errorf("ParseValidityMode(%q) rejected a valid mode", in)
		}
	}
	if _, ok := model.ParseValidityMode("loose"); ok {
		t.Error("ParseValidityMode accepted an unknown mode")
	}
}

func TestParsePermissions_collectsEveryInvalidName(t *testing.T) {
	mask, invalid := model.ParsePermissions([]string{"enroll", "frobnicate", "revoke", "launch"})
	if !mask.Has(model.PermEnroll) || !mask.Has(model.PermRevoke) {
		t.Errorf("mask 0x%x missing valid permissions", uint32(mask))
	}
	want := []string{"frobnicate", "launch"}
	if !reflect.DeepEqual(invalid, want) {
		t.Errorf("invalid = %v, want %v", invalid, want)
	}
}

func TestParsePermissions_all(t *testing.T) {
	mask, invalid := model.ParsePermissions([]string{"all"})
	if len(invalid) != 0 {
		t.Fatalf("unexpected invalid names %v", invalid)
	}
	if mask != model.PermAll {
		t.Errorf("mask = 0x%x, want PermAll", uint32(mask))
	}
	if got := mask.Names(); !reflect.DeepEqual(got, []string{"all"}) {
		t.Errorf("Names() = %v, want [all]", got)
	}
}

func TestPermissionNames_sorted(t *testing.T) {
	mask := model.PermRevoke | model.PermEnroll | model.PermGenCRL
	got := mask.Names()
	want := []string{"enroll", "gen-crl", "revoke"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestPermissionHas(t *testing.T) {
	mask := model.PermEnroll | model.PermRevoke
	if !mask.Has(model.PermEnroll) {
		t.Error("Has(PermEnroll) = false")
	}
	if mask.Has(model.PermEnroll | model.PermRemove) {
		t.Error("Has should require every bit of the query")
	}
}
