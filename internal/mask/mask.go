// Package mask redacts sensitive values for logs and reports: account
// numbers, email addresses and amounts never appear in cleartext
// anywhere observable.
package mask

import "strings"

// Account keeps only the last four digits: "****1234".
func Account(account string) string {
	if account == "" {
		return ""
	}
	if len(account) <= 4 {
		return "****"
	}
	return "****" + account[len(account)-4:]
}

// Email keeps the first character of the local part: "u***@***.com".
func Email(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return "***"
	}
	domain := addr[at+1:]
	tld := "***"
	if dot := strings.LastIndex(domain, "."); dot >= 0 {
		tld = "***" + domain[dot:]
	}
	return addr[:1] + "***@" + tld
}

// Amount hides monetary values entirely.
func Amount() string {
	return "***"
}
