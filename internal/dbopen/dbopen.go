// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package dbopen

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

var ErrDatabaseNotConfigured = errors.New("database connection configuration is unavailable")

// LookupFunc returns the value of a configuration variable, or "" when unset.
type LookupFunc func(name string) string

// GetDatabaseURLFromEnv builds a PostgreSQL URL from PREFIX_* environment
// variables. See GetDatabaseURL.
func GetDatabaseURLFromEnv(prefix string) (string, error) {
	return GetDatabaseURL(prefix, os.Getenv)
}

// GetDatabaseURL returns PREFIX_URL when set. Otherwise it assembles a URL
// from PREFIX_HOST, PREFIX_DBNAME (both required), PREFIX_PORT (default
// 5432), PREFIX_USER, PREFIX_PASSWORD and PREFIX_SSLMODE. A trailing "_"
// is added to prefix when missing.
func GetDatabaseURL(prefix string, lookup LookupFunc) (string, error) {
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	get := func(name string) string { return lookup(prefix + name) }

	if urlStr := get("URL"); urlStr != "" {
		return urlStr, nil
	}

	host, dbname := get("HOST"), get("DBNAME")
	var missing []string
	if host == "" {
		missing = append(missing, prefix+"HOST")
	}
	if dbname == "" {
		missing = append(missing, prefix+"DBNAME")
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	port := get("PORT")
	if port == "" {
		port = "5432"
	}

	u := &url.URL{
		Scheme: "postgresql",
		Host:   host + ":" + port,
		Path:   dbname,
	}
	if user := get("USER"); user != "" {
		if pass := get("PASSWORD"); pass != "" {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}

	q := u.Query()
	if sslmode := get("SSLMODE"); sslmode != "" {
		q.Set("sslmode", sslmode)
	}
	if appName := applicationName(lookup("OTEL_SERVICE_NAME")); appName != "" {
		q.Set("application_name", appName)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// applicationName maps a service name onto the characters postgres accepts
// in application_name, truncated to 63 bytes.
func applicationName(name string) string {
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' {
			return r
		}
		return '_'
	}, name)
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}
