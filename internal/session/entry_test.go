package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Entry
	}{
		{
			name: "empty",
			url:  "",
			want: Entry{},
		},
		{
			name: "query keys",
			url:  "https://app.example/?invite=INV1&ref=17&mode=signup&page=rewards",
			want: Entry{InviteCode: "INV1", ReferralID: "17", Mode: "signup", Page: "rewards"},
		},
		{
			name: "web app start param",
			url:  "https://app.example/?tgWebAppStartParam=invite_XYZ__ref_99__page_profile",
			want: Entry{InviteCode: "XYZ", ReferralID: "99", Page: "profile"},
		},
		{
			name: "startapp key",
			url:  "https://t.me/bot/app?startapp=ref_5",
			want: Entry{ReferralID: "5"},
		},
		{
			name: "query overrides start param",
			url:  "https://app.example/?startapp=invite_A__page_home&invite=B",
			want: Entry{InviteCode: "B", Page: "home"},
		},
		{
			name: "malformed start param segments are skipped",
			url:  "https://app.example/?startapp=garbage__ref__invite_C",
			want: Entry{InviteCode: "C"},
		},
		{
			name: "values may contain underscores",
			url:  "https://app.example/?startapp=page_my_games",
			want: Entry{Page: "my_games"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntry(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEntryInvalidURL(t *testing.T) {
	_, err := ParseEntry("http://[::1")
	assert.Error(t, err)
}

func TestEntryIsZero(t *testing.T) {
	assert.True(t, Entry{}.IsZero())
	assert.False(t, Entry{Page: "x"}.IsZero())
}
