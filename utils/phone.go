package utils

import "strings"

const (
	jidUserSuffix   = "@s.whatsapp.net"
	jidLegacySuffix = "@c.us"
)

func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPhoneBR strips formatting characters and prefixes the Brazilian country code.
func FormatPhoneBR(phone string) string {
	phone = strings.NewReplacer("+", "", "-", "", " ", "", "(", "", ")", "").Replace(phone)
	if !strings.HasPrefix(phone, "55") {
		phone = "55" + phone
	}
	return phone
}

func PhoneToJID(phone string) string {
	if strings.Contains(phone, "@") {
		return phone
	}
	return FormatPhoneBR(phone) + jidUserSuffix
}

func JIDToPhone(jid string) string {
	jid = strings.TrimSuffix(jid, jidUserSuffix)
	return strings.TrimSuffix(jid, jidLegacySuffix)
}

// IsDirectChatJID rejects groups, status broadcasts and linked-device ids.
func IsDirectChatJID(jid string) bool {
	if jid == "" {
		return false
	}
	return !strings.Contains(jid, "@g.us") &&
		!strings.Contains(jid, "status@broadcast") &&
		!strings.Contains(jid, "@lid")
}

// PhoneSuffix returns the last n digits of phone, or all of them when shorter.
func PhoneSuffix(phone string, n int) string {
	d := DigitsOnly(phone)
	if len(d) <= n {
		return d
	}
	return d[len(d)-n:]
}
