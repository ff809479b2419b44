package domain

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrCardFieldsMissing = errors.New("card fields missing")
	ErrCardNumberInvalid = errors.New("card number invalid")
	ErrExpiryInvalid     = errors.New("expiry must be MM/YY")
	ErrCardExpired       = errors.New("card expired")
	ErrCVCInvalid        = errors.New("cvc invalid")
)

// CardType is the card brand derived from the number prefix.
type CardType string

const (
	CardTypeVisa       CardType = "visa"
	CardTypeMastercard CardType = "mastercard"
	CardTypeAmex       CardType = "amex"
	CardTypeDiscover   CardType = "discover"
	CardTypeDiners     CardType = "diners"
	CardTypeJCB        CardType = "jcb"
	CardTypeUnknown    CardType = "unknown"
)

var cardPatterns = []struct {
	cardType CardType
	pattern  *regexp.Regexp
}{
	{CardTypeVisa, regexp.MustCompile(`^4[0-9]{12}(?:[0-9]{3})?$`)},
	{CardTypeMastercard, regexp.MustCompile(`^5[1-5][0-9]{14}$`)},
	{CardTypeAmex, regexp.MustCompile(`^3[47][0-9]{13}$`)},
	{CardTypeDiscover, regexp.MustCompile(`^6(?:011|5[0-9]{2})[0-9]{12}$`)},
	{CardTypeDiners, regexp.MustCompile(`^3(?:0[0-5]|[68][0-9])[0-9]{11}$`)},
	{CardTypeJCB, regexp.MustCompile(`^(?:2131|1800|35\d{3})\d{11}$`)},
}

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/([0-9]{2})$`)

// Card is raw card input. It lives only for the duration of one settle call.
type Card struct {
	Number string `json:"-"`
	Expiry string `json:"-"` // MM/YY
	CVC    string `json:"-"`
}

// NormalizeCardNumber strips spaces and dashes.
func NormalizeCardNumber(number string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(number)
}

// DetectCardType returns the brand of a normalized card number.
func DetectCardType(number string) CardType {
	for _, p := range cardPatterns {
		if p.pattern.MatchString(number) {
			return p.cardType
		}
	}
	return CardTypeUnknown
}

// LuhnValid reports whether number is 13-19 digits with a valid Luhn checksum.
func LuhnValid(number string) bool {
	if len(number) < 13 || len(number) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ParseExpiry parses MM/YY into a month and a four-digit year.
func ParseExpiry(expiry string) (month int, year int, err error) {
	m := expiryPattern.FindStringSubmatch(strings.ReplaceAll(expiry, " ", ""))
	if m == nil {
		return 0, 0, ErrExpiryInvalid
	}
	month, _ = strconv.Atoi(m[1])
	yy, _ := strconv.Atoi(m[2])
	return month, 2000 + yy, nil
}

// ExpiryIsPast reports whether a card expiring at month/year is no longer
// valid at now. A card is valid through the end of its expiry month.
func ExpiryIsPast(month, year int, now time.Time) bool {
	if year != now.Year() {
		return year < now.Year()
	}
	return month < int(now.Month())
}

// ProcessorExpiry formats MM/YY as MMYY.
func ProcessorExpiry(expiry string) string {
	return strings.ReplaceAll(strings.ReplaceAll(expiry, " ", ""), "/", "")
}

// Validate checks the card before any network call. It returns one of the
// Err* sentinels above.
func (c Card) Validate(now time.Time) error {
	number := NormalizeCardNumber(c.Number)
	if number == "" || strings.TrimSpace(c.Expiry) == "" || c.CVC == "" {
		return ErrCardFieldsMissing
	}
	if !LuhnValid(number) {
		return ErrCardNumberInvalid
	}

	month, year, err := ParseExpiry(c.Expiry)
	if err != nil {
		return err
	}
	if ExpiryIsPast(month, year, now) {
		return ErrCardExpired
	}

	want := 3
	if DetectCardType(number) == CardTypeAmex {
		want = 4
	}
	if len(c.CVC) != want {
		return ErrCVCInvalid
	}
	for i := 0; i < len(c.CVC); i++ {
		if c.CVC[i] < '0' || c.CVC[i] > '9' {
			return ErrCVCInvalid
		}
	}
	return nil
}
