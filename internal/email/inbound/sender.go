// Package inbound turns inbound-email webhook payloads into the sender,
// subject and body the support pipeline works with.
package inbound

import (
	"bytes"
	"encoding/json"
	"io"
	"regexp"
	"strings"

	gomessage "github.com/emersion/go-message"
	gomail "github.com/emersion/go-message/mail"
	htmlcharset "golang.org/x/net/html/charset"
)

func init() {
	gomessage.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return htmlcharset.NewReaderLabel(charset, input)
	}
}

const minSenderLength = 5

var angleAddr = regexp.MustCompile(`<([^>]+)>`)

// senderParser recognizes one wire shape of the "from" field. matched is false
// when raw is not of that shape, so the next parser gets a turn.
type senderParser func(raw json.RawMessage) (addr string, matched bool)

// senderParsers lists the known shapes in priority order.
var senderParsers = []senderParser{
	parseStringSender,
	parseObjectSender,
	parseArraySender,
}

// ExtractSender recovers a single mailbox address from a loosely shaped
// "from" value: a string, an {address}/{email} object, or an array whose
// first element is either. ok is false when no valid address was found.
func ExtractSender(raw json.RawMessage) (addr string, ok bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}

	for _, parse := range senderParsers {
		if candidate, matched := parse(raw); matched {
			return validateSender(candidate)
		}
	}
	return "", false
}

func validateSender(addr string) (string, bool) {
	addr = strings.TrimSpace(addr)
	if !strings.Contains(addr, "@") || len(addr) < minSenderLength {
		return "", false
	}
	return addr, true
}

func parseStringSender(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return addressFromString(s), true
}

type senderObject struct {
	Address *string `json:"address"`
	Email   *string `json:"email"`
}

func parseObjectSender(raw json.RawMessage) (string, bool) {
	if raw[0] != '{' {
		return "", false
	}
	var obj senderObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		// an object with non-string fields is still an object, just not a usable one
		return "", true
	}
	if obj.Address != nil && strings.TrimSpace(*obj.Address) != "" {
		return addressFromString(*obj.Address), true
	}
	if obj.Email != nil {
		return addressFromString(*obj.Email), true
	}
	return "", true
}

// elementParsers are the shapes accepted inside an array. Nested arrays are
// not a known provider shape.
var elementParsers = []senderParser{
	parseStringSender,
	parseObjectSender,
}

func parseArraySender(raw json.RawMessage) (string, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return "", false
	}
	if len(items) == 0 {
		return "", true
	}

	first := bytes.TrimSpace(items[0])
	if len(first) == 0 {
		return "", true
	}
	for _, parse := range elementParsers {
		if addr, matched := parse(first); matched {
			return addr, true
		}
	}
	return "", true
}

// addressFromString parses RFC 5322 mailboxes first and falls back to the
// text between angle brackets, then to a bare token containing "@". A value
// naming more than one mailbox yields "".
func addressFromString(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if list, err := gomail.ParseAddressList(value); err == nil {
		if len(list) != 1 {
			return ""
		}
		return strings.TrimSpace(list[0].Address)
	}
	if m := angleAddr.FindAllStringSubmatch(value, 2); m != nil {
		if len(m) > 1 {
			return ""
		}
		return strings.TrimSpace(m[0][1])
	}
	if strings.Contains(value, "@") && !strings.ContainsAny(value, ",; \t\r\n") {
		return value
	}
	return ""
}
