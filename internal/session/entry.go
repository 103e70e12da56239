package session

import (
	"fmt"
	"net/url"
	"strings"
)

// Entry is the navigation intent carried by the URL the app was opened with
type Entry struct {
	InviteCode string
	ReferralID string
	Mode       string
	Page       string
}

// IsZero reports whether the entry carries nothing
func (e Entry) IsZero() bool {
	return e == Entry{}
}

// Telegram passes the start parameter under either key
var startParamKeys = []string{"tgWebAppStartParam", "startapp"}

const startParamSeparator = "__"

// ParseEntry extracts invite, referral, mode and page parameters from an
// entry URL. Plain query keys win over values packed into the Telegram start
// parameter ("invite_<code>__ref_<id>__page_<name>").
func ParseEntry(rawURL string) (Entry, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Entry{}, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid entry url: %w", err)
	}
	q := u.Query()

	var entry Entry
	for _, key := range startParamKeys {
		if v := q.Get(key); v != "" {
			entry = parseStartParam(v)
			break
		}
	}

	if v := q.Get("invite"); v != "" {
		entry.InviteCode = v
	}
	if v := q.Get("ref"); v != "" {
		entry.ReferralID = v
	}
	if v := q.Get("mode"); v != "" {
		entry.Mode = v
	}
	if v := q.Get("page"); v != "" {
		entry.Page = v
	}
	return entry, nil
}

func parseStartParam(param string) Entry {
	var entry Entry
	for _, part := range strings.Split(param, startParamSeparator) {
		prefix, value, ok := strings.Cut(part, "_")
		if !ok || value == "" {
			continue
		}
		switch prefix {
		case "invite":
			entry.InviteCode = value
		case "ref":
			entry.ReferralID = value
		case "page":
			entry.Page = value
		case "mode":
			entry.Mode = value
		}
	}
	return entry
}
