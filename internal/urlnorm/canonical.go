// Package urlnorm produces stable canonical forms of story URLs. Two outlets
// syndicating the same underlying link (different tracking params, host case,
// or scheme) must canonicalize identically, since the canonical URL is part of
// the item identity key.
package urlnorm

import (
	"net/url"
	"sort"
	"strings"
)

// trackingQueryKeys is the deny-list of click-id style query parameters.
// Extend here; prefix matching for utm_* happens separately.
var trackingQueryKeys = map[string]struct{}{
	"fbclid":   {},
	"gclid":    {},
	"dclid":    {},
	"msclkid":  {},
	"twclid":   {},
	"igshid":   {},
	"mc_cid":   {},
	"mc_eid":   {},
	"ref_src":  {},
	"cmpid":    {},
	"s_cid":    {},
	"spm":      {},
	"_hsenc":   {},
	"_hsmi":    {},
	"vero_id":  {},
	"wickedid": {},
	"yclid":    {},
}

// Canonicalize normalizes a story URL. It is a total function: input that
// cannot be parsed is returned unchanged. The transformation order is fixed so
// the output is deterministic and Canonicalize is idempotent.
func Canonicalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return raw
	}

	if parsed.Scheme == "http" {
		parsed.Scheme = "https"
	}

	host := strings.ToLower(parsed.Hostname())
	// Strip the literal "www" label only; www2.example.com stays as-is.
	host = strings.TrimPrefix(host, "www.")
	if port := parsed.Port(); port != "" {
		host = host + ":" + port
	}
	parsed.Host = host

	if path := parsed.EscapedPath(); strings.HasSuffix(path, "/") && path != "/" {
		parsed.Path = strings.TrimSuffix(path, "/")
		parsed.RawPath = ""
	}

	parsed.RawQuery = normalizeQuery(parsed.Query())
	parsed.Fragment = ""
	parsed.RawFragment = ""

	return parsed.String()
}

func normalizeQuery(q url.Values) string {
	for key := range q {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			q.Del(key)
			continue
		}
		if _, denied := trackingQueryKeys[lower]; denied {
			q.Del(key)
		}
	}
	if len(q) == 0 {
		return ""
	}

	keys := make([]string, 0, len(q))
	for key := range q {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	reordered := url.Values{}
	for _, key := range keys {
		for _, value := range q[key] {
			reordered.Add(key, value)
		}
	}
	return reordered.Encode()
}
