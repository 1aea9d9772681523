package participant

import "testing"

func TestNormalizeIsOrderIndependent(t *testing.T) {
	pairs := []struct {
		a, b Ref
	}{
		{UserRef("u-1"), OrgRef("o-1")},
		{OrgRef("o-1"), UserRef("u-1")},
		{UserRef("u-2"), UserRef("u-1")},
		{OrgRef("o-9"), OrgRef("o-2")},
	}
	for _, pair := range pairs {
		x1, y1 := Normalize(pair.a, pair.b)
		x2, y2 := Normalize(pair.b, pair.a)
		if !x1.Equal(x2) || !y1.Equal(y2) {
			t.Fatalf("normalize not symmetric for %v/%v: (%v,%v) vs (%v,%v)", pair.a, pair.b, x1, y1, x2, y2)
		}
		if y1.Less(x1) {
			t.Fatalf("normalize returned unordered pair (%v, %v)", x1, y1)
		}
	}
}

func TestNormalizeSortsByKindThenID(t *testing.T) {
	a, b := Normalize(UserRef("aaa"), OrgRef("zzz"))
	if a.Kind != KindOrg || b.Kind != KindUser {
		t.Fatalf("expected org slot before user slot, got %v then %v", a, b)
	}

	a, b = Normalize(UserRef("zzz"), UserRef("aaa"))
	if a.ID != "aaa" || b.ID != "zzz" {
		t.Fatalf("expected id order within same kind, got %v then %v", a, b)
	}
}

func TestNewRefValidation(t *testing.T) {
	if _, err := NewRef(KindUser, "  "); err != ErrIDRequired {
		t.Fatalf("expected ErrIDRequired, got %v", err)
	}
	if _, err := NewRef("robot", "x"); err != ErrInvalidKind {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
	ref, err := NewRef(KindOrg, " acme ")
	if err != nil {
		t.Fatalf("new ref: %v", err)
	}
	if ref.ID != "acme" {
		t.Fatalf("expected trimmed id, got %q", ref.ID)
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"user":         KindUser,
		"ORG":          KindOrg,
		"organization": KindOrg,
		"company":      KindOrg,
	}
	for raw, want := range cases {
		got, err := ParseKind(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %v want %v", raw, got, want)
		}
	}
	if _, err := ParseKind(""); err != ErrKindRequired {
		t.Fatalf("expected ErrKindRequired, got %v", err)
	}
	if _, err := ParseKind("bot"); err != ErrInvalidKind {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestRefEqualAndLess(t *testing.T) {
	if !UserRef("a").Equal(UserRef("a")) {
		t.Fatal("identical refs must be equal")
	}
	if UserRef("a").Equal(OrgRef("a")) {
		t.Fatal("kind must participate in equality")
	}
	if !OrgRef("a").Less(UserRef("a")) {
		t.Fatal("org kind sorts before user kind")
	}
}
