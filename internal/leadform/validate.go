// Package leadform holds the field rules for the site's lead-capture forms.
// The API and the terminal enquiry client share them so a lead rejected
// locally is never sent.
package leadform

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nyaruka/phonenumbers"

	"academy_site/internal/domain"
)

const (
	FieldFullName = "fullName"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldType     = "type"
	FieldSource   = "source"
	FieldInterest = "interest"
	FieldMessage  = "message"
)

// Upper bounds follow the leads table columns.
const (
	minNameLen     = 3
	maxNameLen     = 120
	maxEmailLen    = 254
	maxPhoneLen    = 32
	maxSourceLen   = 64
	maxInterestLen = 128
	maxMessageLen  = 2000
)

var emailRe = regexp.MustCompile(`^[\w.\-]+@([\w-]+.)+[\w-]{2,4}$`)

type Options struct {
	// Region is the ISO 3166 region used for numbers without a +country
	// prefix.
	Region string
}

var DefaultOptions = Options{Region: "IN"}

// Validate returns one message per failing field. An empty result means the
// lead may be submitted. The lead is normalized first.
func Validate(l domain.Lead, opts Options) domain.FieldErrors {
	l = l.Normalized()
	errs := domain.FieldErrors{}

	switch n := utf8.RuneCountInString(l.FullName); {
	case n == 0:
		errs[FieldFullName] = "Full name is required"
	case n < minNameLen:
		errs[FieldFullName] = "Full name must be at least 3 characters"
	case n > maxNameLen:
		errs[FieldFullName] = "Full name is too long"
	}

	switch {
	case l.Email == "":
		errs[FieldEmail] = "Email is required"
	case utf8.RuneCountInString(l.Email) > maxEmailLen:
		errs[FieldEmail] = "Email address is too long"
	case !emailRe.MatchString(l.Email):
		errs[FieldEmail] = "Enter a valid email address"
	}

	phoneRequired := l.Type != domain.LeadBrochure
	if l.Phone == "" {
		if phoneRequired {
			errs[FieldPhone] = "Phone number is required"
		}
	} else if utf8.RuneCountInString(l.Phone) > maxPhoneLen {
		errs[FieldPhone] = "Phone number is too long"
	} else if msg := checkPhone(l.Phone, opts.Region); msg != "" {
		errs[FieldPhone] = msg
	}

	switch l.Type {
	case "", domain.LeadContact, domain.LeadBrochure:
	default:
		errs[FieldType] = "Unknown form type"
	}

	if utf8.RuneCountInString(l.Source) > maxSourceLen {
		errs[FieldSource] = "Source is too long"
	}
	if utf8.RuneCountInString(l.Interest) > maxInterestLen {
		errs[FieldInterest] = "Interest is too long"
	}
	if utf8.RuneCountInString(l.Message) > maxMessageLen {
		errs[FieldMessage] = "Message is too long"
	}
	return errs
}

// FormatPhone returns raw in E.164 form when it parses as a valid number
// for region, and raw unchanged otherwise.
func FormatPhone(raw, region string) string {
	if region == "" {
		region = DefaultOptions.Region
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

func checkPhone(raw, region string) string {
	if region == "" {
		region = DefaultOptions.Region
	}
	num, err := phonenumbers.Parse(raw, region)
	national := digits(raw)
	if err == nil {
		if nsn := phonenumbers.GetNationalSignificantNumber(num); nsn != "" {
			national = nsn
		}
	}
	switch {
	case allSame(national, '0'):
		return "Phone number cannot be all zeros"
	case repeating(national):
		return "Phone number cannot be a single repeated digit"
	case sequential(national):
		return "Phone number cannot be a sequence of digits"
	case err != nil || !phonenumbers.IsValidNumber(num):
		return "Enter a valid phone number"
	}
	return ""
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allSame(s string, c byte) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != c {
			return false
		}
	}
	return true
}

func repeating(s string) bool { return s != "" && allSame(s, s[0]) }

// sequential reports whether the whole number is one ascending run
// (1234567890, with 9 rolling over to 0) or descending run (9876543210).
// Runs shorter than three digits never match.
func sequential(s string) bool {
	if len(s) < 3 {
		return false
	}
	up, down := true, true
	for i := 1; i < len(s); i++ {
		prev, cur := int(s[i-1]-'0'), int(s[i]-'0')
		if cur != (prev+1)%10 {
			up = false
		}
		if cur != (prev+9)%10 {
			down = false
		}
	}
	return up || down
}
