package connector

import (
	"strings"
)

const jdbcScheme = "jdbc:teradata://"

// BuildJDBCURL assembles a Teradata JDBC URL. It returns "" without a host.
func BuildJDBCURL(host, database, connType, extra string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	var suffix []string
	if database = strings.TrimSpace(database); database != "" {
		suffix = append(suffix, "DATABASE="+database)
	}
	if connType = strings.TrimSpace(connType); connType != "" {
		suffix = append(suffix, "LOGMECH="+connType)
	}
	if cleaned := strings.Trim(strings.TrimSpace(extra), ","); cleaned != "" {
		suffix = append(suffix, cleaned)
	}

	if len(suffix) == 0 {
		return jdbcScheme + host
	}
	return jdbcScheme + host + "/" + strings.Join(suffix, ",")
}

// parseJDBCURL splits a Teradata JDBC URL into its host and upper-cased
// parameters. ok is false when url does not use the Teradata scheme.
func parseJDBCURL(url string) (host string, params map[string]string, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(url), jdbcScheme)
	if !found {
		return "", nil, false
	}

	params = map[string]string{}
	host, query, _ := strings.Cut(rest, "/")
	for _, kv := range strings.Split(query, ",") {
		k, v, hasValue := strings.Cut(strings.TrimSpace(kv), "=")
		if !hasValue || k == "" {
			continue
		}
		params[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return host, params, true
}
