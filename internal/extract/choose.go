package extract

import "strings"

// ChooseBest picks the address most likely to reach the firm.
//
// Addresses on the site's own domain (or a subdomain of it) beat third-party
// ones. Within that tier the earliest-ranked prefix wins (the whole local part
// must equal it, so "mailroom@" does not rank as "mail@"), and ties fall back
// to discovery order. siteDomain is compared with any "www." removed.
func ChooseBest(candidates []string, siteDomain string, prefixes []string) string {
	if len(candidates) == 0 {
		return ""
	}

	site := strings.TrimPrefix(strings.ToLower(siteDomain), "www.")
	pool := candidates
	if site != "" {
		var own []string
		for _, c := range candidates {
			if onDomain(c, site) {
				own = append(own, c)
			}
		}
		if len(own) > 0 {
			pool = own
		}
	}

	for _, prefix := range prefixes {
		prefix = strings.TrimSuffix(prefix, "@")
		for _, c := range pool {
			if localPart(c) == prefix {
				return c
			}
		}
	}
	return pool[0]
}

func localPart(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return ""
	}
	return email[:at]
}

func onDomain(email, site string) bool {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	d := strings.TrimPrefix(strings.ToLower(email[at+1:]), "www.")
	return d == site || strings.HasSuffix(d, "."+site)
}
