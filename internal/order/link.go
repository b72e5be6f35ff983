package order

import (
	"net/url"
	"regexp"
	"strings"
)

var mobileUA = regexp.MustCompile(`(?i)Android|iPhone|iPad|iPod|Windows Phone`)

// Links holds the outbound WhatsApp URL and the one fallback tried when it is blocked.
type Links struct {
	Primary  string
	Fallback string
}

// IsMobile reports whether the user agent looks like a phone or tablet.
func IsMobile(userAgent string) bool {
	return mobileUA.MatchString(userAgent)
}

// BuildLinks picks the app link for mobile agents and WhatsApp Web otherwise.
func BuildLinks(phone, message, userAgent string) Links {
	text := encodeURIComponent(message)
	var primary string
	if IsMobile(userAgent) {
		primary = "https://api.whatsapp.com/send/?phone=" + phone + "&text=" + text + "&type=phone_number&app_absent=0"
	} else {
		primary = "https://web.whatsapp.com/send?phone=" + phone + "&text=" + text
	}
	return Links{
		Primary:  primary,
		Fallback: "https://wa.me/" + phone + "?text=" + text,
	}
}

// encodeURIComponent escapes like the browser function of the same name: spaces become %20.
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
