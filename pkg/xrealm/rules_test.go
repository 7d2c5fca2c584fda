package xrealm

import "testing"

func TestParseRule_RealmRule(t *testing.T) {
	t.Parallel()

	rule, ok := ParseRule("xr:@EU.EXAMPLE.COM")
	if !ok {
		t.Fatal("expected xr:@EU.EXAMPLE.COM to parse")
	}
	rr, isRealm := rule.(RealmRule)
	if !isRealm {
		t.Fatalf("expected RealmRule, got %T", rule)
	}
	if rr.Realm != "EU.EXAMPLE.COM" {
		t.Errorf("expected realm EU.EXAMPLE.COM, got %q", rr.Realm)
	}
	if rule.Key() != "xr:@EU.EXAMPLE.COM" {
		t.Errorf("round-trip key mismatch: %q", rule.Key())
	}
}

func TestParseRule_PrincipalRule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key   string
		name  string
		realm string
	}{
		{"xr:alice", "alice", ""},
		{"xr:alice@EU.EXAMPLE.COM", "alice", "EU.EXAMPLE.COM"},
		{"xr:host/web01@US.EXAMPLE.COM", "host/web01", "US.EXAMPLE.COM"},
	}
	for _, tc := range tests {
		rule, ok := ParseRule(tc.key)
		if !ok {
			t.Errorf("expected %q to parse", tc.key)
			continue
		}
		pr, isPrinc := rule.(PrincipalRule)
		if !isPrinc {
			t.Errorf("%q: expected PrincipalRule, got %T", tc.key, rule)
			continue
		}
		if pr.Name != tc.name || pr.Realm != tc.realm {
			t.Errorf("%q: got (%q, %q), want (%q, %q)", tc.key, pr.Name, pr.Realm, tc.name, tc.realm)
		}
		if rule.Key() != tc.key {
			t.Errorf("%q: round-trip key mismatch: %q", tc.key, rule.Key())
		}
	}
}

func TestParseRule_Malformed(t *testing.T) {
	t.Parallel()

	// Foreign and malformed keys are skipped, never errors, never matches.
	for _, key := range []string{
		"",
		"xr:",
		"xr:@",
		"xr:alice@",
		"xr:@@",
		"other:alice",
		"session_key",
		"XR:@EU.EXAMPLE.COM", // prefix is case-sensitive
	} {
		if rule, ok := ParseRule(key); ok {
			t.Errorf("expected %q to be rejected, parsed as %#v", key, rule)
		}
	}
}

func TestParseRules_SkipsForeignKeys(t *testing.T) {
	t.Parallel()

	rules := ParseRules([]string{
		"xr:@EU.EXAMPLE.COM",
		"require_auth",
		"xr:alice",
		"xr:",
	})
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d: %#v", len(rules), rules)
	}
}

func TestMatchAny_RealmRule(t *testing.T) {
	t.Parallel()

	rules := ParseRules([]string{"xr:@EU.EXAMPLE.COM"})
	client := Principal{Name: "alice", Realm: "EU.EXAMPLE.COM"}

	if _, ok := MatchAny(rules, "EU.EXAMPLE.COM", client, "EU.EXAMPLE.COM"); !ok {
		t.Error("expected realm rule to match its origin realm")
	}
	if _, ok := MatchAny(rules, "ASIA.EXAMPLE.COM", client, "EU.EXAMPLE.COM"); ok {
		t.Error("expected realm rule not to match a different origin realm")
	}
	// Realm rules key off the origin realm, not the client's realm field.
	transited := Principal{Name: "bob", Realm: "ASIA.EXAMPLE.COM"}
	if _, ok := MatchAny(rules, "EU.EXAMPLE.COM", transited, "EU.EXAMPLE.COM"); !ok {
		t.Error("expected realm rule to match on origin realm regardless of client realm")
	}
}

func TestMatchAny_PrincipalExactMatchOnly(t *testing.T) {
	t.Parallel()

	rules := ParseRules([]string{"xr:alice@EU.EXAMPLE.COM"})

	if _, ok := MatchAny(rules, "EU.EXAMPLE.COM", Principal{Name: "alice", Realm: "EU.EXAMPLE.COM"}, "EU.EXAMPLE.COM"); !ok {
		t.Error("expected exact principal to match")
	}
	if _, ok := MatchAny(rules, "EU.EXAMPLE.COM", Principal{Name: "bob", Realm: "EU.EXAMPLE.COM"}, "EU.EXAMPLE.COM"); ok {
		t.Error("a rule for alice must not match bob in the same realm")
	}
	if _, ok := MatchAny(rules, "US.EXAMPLE.COM", Principal{Name: "alice", Realm: "US.EXAMPLE.COM"}, "EU.EXAMPLE.COM"); ok {
		t.Error("a rule for alice@EU must not match alice from another realm")
	}
}

func TestMatchAny_BareNameUsesDefaultRealm(t *testing.T) {
	t.Parallel()

	rules := ParseRules([]string{"xr:alice"})

	// Bare names are interpreted against the edge's hop realm.
	if _, ok := MatchAny(rules, "EU.EXAMPLE.COM", Principal{Name: "alice", Realm: "EU.EXAMPLE.COM"}, "EU.EXAMPLE.COM"); !ok {
		t.Error("expected bare-name rule to match the default realm client")
	}
	if _, ok := MatchAny(rules, "ASIA.EXAMPLE.COM", Principal{Name: "alice", Realm: "ASIA.EXAMPLE.COM"}, "EU.EXAMPLE.COM"); ok {
		t.Error("bare-name rule must not match a client outside the default realm")
	}
}

func TestMatchAny_OrderIndependent(t *testing.T) {
	t.Parallel()

	client := Principal{Name: "alice", Realm: "EU.EXAMPLE.COM"}
	forward := ParseRules([]string{"xr:bob", "xr:@ASIA.EXAMPLE.COM", "xr:alice@EU.EXAMPLE.COM"})
	reverse := ParseRules([]string{"xr:alice@EU.EXAMPLE.COM", "xr:@ASIA.EXAMPLE.COM", "xr:bob"})

	_, okForward := MatchAny(forward, "EU.EXAMPLE.COM", client, "EU.EXAMPLE.COM")
	_, okReverse := MatchAny(reverse, "EU.EXAMPLE.COM", client, "EU.EXAMPLE.COM")
	if !okForward || !okReverse {
		t.Error("match outcome must not depend on entry order")
	}

	// Duplicate entries behave like a single entry.
	dup := ParseRules([]string{"xr:@EU.EXAMPLE.COM", "xr:@EU.EXAMPLE.COM"})
	if _, ok := MatchAny(dup, "EU.EXAMPLE.COM", client, "EU.EXAMPLE.COM"); !ok {
		t.Error("duplicate entries must still match")
	}
}

func TestMatchAny_EmptyEntries(t *testing.T) {
	t.Parallel()

	if _, ok := MatchAny(nil, "EU.EXAMPLE.COM", Principal{Name: "alice", Realm: "EU.EXAMPLE.COM"}, "EU.EXAMPLE.COM"); ok {
		t.Error("empty entry set must not match")
	}
}
