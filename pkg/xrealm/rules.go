package xrealm

import "strings"

// AttrPrefix is the reserved attribute key prefix marking cross-realm
// authorization entries on a trust edge principal. Keys without this prefix
// belong to other tooling and are ignored.
const AttrPrefix = "xr:"

// Rule is a parsed authorization entry from a trust edge. Entries are parsed
// once at read time into this typed form rather than re-matching prefixed
// strings; the storage format stays the raw attribute key for compatibility
// with existing administrative tooling.
type Rule interface {
	// Key returns the storage form of the rule, including the prefix.
	Key() string
	// matches reports whether the rule authorizes the given request
	// identity. defaultRealm supplies the implicit realm context for
	// bare-name principal rules (the edge's hop realm).
	matches(originRealm string, client Principal, defaultRealm string) bool
}

// RealmRule authorizes every principal whose origin realm equals Realm.
// The origin realm is the head of the transit path, not the immediate hop.
type RealmRule struct {
	Realm string
}

// Key returns the xr:@REALM storage form.
func (r RealmRule) Key() string { return AttrPrefix + "@" + r.Realm }

func (r RealmRule) matches(originRealm string, _ Principal, _ string) bool {
	return originRealm != "" && originRealm == r.Realm
}

// PrincipalRule authorizes a single principal, exactly. A rule with an empty
// Realm was stored as a bare name and is evaluated against the default realm
// supplied at match time.
type PrincipalRule struct {
	Name  string
	Realm string // empty for bare-name rules
}

// Key returns the xr:name or xr:name@REALM storage form.
func (r PrincipalRule) Key() string {
	if r.Realm == "" {
		return AttrPrefix + r.Name
	}
	return AttrPrefix + r.Name + "@" + r.Realm
}

func (r PrincipalRule) matches(_ string, client Principal, defaultRealm string) bool {
	if client.Name != r.Name {
		return false
	}
	if r.Realm == "" {
		return client.Realm == defaultRealm
	}
	return client.Realm == r.Realm
}

// ParseRule parses one attribute key. ok is false for keys without the
// reserved prefix and for malformed entries (empty remainder, "xr:@",
// "xr:name@"); such keys never match and never raise errors.
func ParseRule(key string) (Rule, bool) {
	rest, found := strings.CutPrefix(key, AttrPrefix)
	if !found || rest == "" {
		return nil, false
	}
	if realm, isRealm := strings.CutPrefix(rest, "@"); isRealm {
		if realm == "" {
			return nil, false
		}
		return RealmRule{Realm: realm}, true
	}
	idx := strings.LastIndex(rest, "@")
	if idx < 0 {
		return PrincipalRule{Name: rest}, true
	}
	name, realm := rest[:idx], rest[idx+1:]
	if name == "" || realm == "" {
		return nil, false
	}
	return PrincipalRule{Name: name, Realm: realm}, true
}

// ParseRules parses a raw attribute key set, silently skipping foreign and
// malformed keys.
func ParseRules(keys []string) []Rule {
	rules := make([]Rule, 0, len(keys))
	for _, key := range keys {
		if rule, ok := ParseRule(key); ok {
			rules = append(rules, rule)
		}
	}
	return rules
}

// MatchAny reports whether any rule authorizes the client. Entries are
// unordered; the first match wins and which entry matched does not affect
// the outcome. Returns the matched rule for decision detail.
func MatchAny(rules []Rule, originRealm string, client Principal, defaultRealm string) (Rule, bool) {
	for _, rule := range rules {
		if rule.matches(originRealm, client, defaultRealm) {
			return rule, true
		}
	}
	return nil, false
}
