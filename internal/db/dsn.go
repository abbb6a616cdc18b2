package db

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	kvPairRegex   = regexp.MustCompile(`(?i)\b(host|user|password|dbname|port|sslmode)=`)
	passwordRegex = regexp.MustCompile(`(?i)(password=)(\S+)`)
	urlPassRegex  = regexp.MustCompile(`^(\w+://[^:/@]*:)[^@]*(@)`)
)

// NormalizeDSN accepts either a URL style DSN (postgres://...) or a lib/pq key=value list.
// It trims quotes and whitespace and, if given key=value form, returns it cleaned
// with sslmode=disable added when missing.
func NormalizeDSN(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'")
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return s
	}
	if !kvPairRegex.MatchString(s) {
		return s
	}
	cleaned := strings.Join(strings.Fields(s), " ")
	if !strings.Contains(strings.ToLower(cleaned), "sslmode=") {
		cleaned += " sslmode=disable"
	}
	return cleaned
}

// ToURLDSN converts a key=value DSN to URL form, as golang-migrate expects.
// Incomplete input is returned unchanged.
func ToURLDSN(kvDSN string) string {
	if kvDSN == "" || strings.HasPrefix(strings.ToLower(kvDSN), "postgres") {
		return kvDSN
	}
	m := map[string]string{}
	for _, part := range strings.Fields(kvDSN) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 {
			m[strings.ToLower(kv[0])] = kv[1]
		}
	}
	host, user, dbname := m["host"], m["user"], m["dbname"]
	if host == "" || user == "" || dbname == "" {
		return kvDSN
	}
	u := &url.URL{Scheme: "postgres", Host: host, Path: "/" + dbname}
	if port := m["port"]; port != "" {
		u.Host = host + ":" + port
	}
	if pass := m["password"]; pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}
	if sslm, ok := m["sslmode"]; ok {
		u.RawQuery = url.Values{"sslmode": []string{sslm}}.Encode()
	}
	return u.String()
}

// MaskDSN hides the password of a DSN for logging.
func MaskDSN(dsn string) string {
	if urlPassRegex.MatchString(dsn) {
		return urlPassRegex.ReplaceAllString(dsn, `${1}***${2}`)
	}
	return passwordRegex.ReplaceAllString(dsn, `${1}***`)
}
