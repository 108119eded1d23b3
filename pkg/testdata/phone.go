package testdata

import (
	"fmt"
	"strconv"
)

const defaultPhonePrefix = "+xxx"

const mixedPrefix = "[use various different prefix types like +xxx, 00xxx and other, mix the prefixes randomly not periodically]"

// PhoneNumberGenerator asks for real phone numbers.
// Options: country, prefix, phone_format and mix_format ("true" mixes formats and ignores prefix and phone_format).
type PhoneNumberGenerator struct{}

// Name implements Generator
func (PhoneNumberGenerator) Name() string { return "phone_number" }

// SystemMessage asks for a JSON list of phone numbers, honouring the format and options of req
func (PhoneNumberGenerator) SystemMessage(req Request) string {
	msg := "You generate list of just phone numbers, nothing else, in json. " +
		"Call the list 'phone_numbers' and each list item is a dictionary with the key 'phone_number', " +
		"don't use any newline characters, don't create all numbers 1 to 9 instead randomize the sequence of numbers"

	prefix := req.Option("prefix")
	if prefix == "" {
		prefix = defaultPhonePrefix
	}
	format := req.Option("phone_format")
	if mixFormat(req) {
		format, prefix = "", mixedPrefix
	}

	if format == "" {
		return msg + ", phone number format is not defined fully, but use this prefix/prefix definition: " + prefix +
			" and the typical format for the country specified if the country is specified."
	}
	return msg + ", phone number format is exactly defined as: " + format +
		", ignore prefix instruction a do not output in other phone number format then specified phone number format"
}

// UserMessage asks for req.Amount phone numbers
func (PhoneNumberGenerator) UserMessage(req Request) string {
	country := req.Option("country")
	mixed := mixFormat(req)

	switch {
	case country != "" && !mixed:
		return fmt.Sprintf("Give me a list of %d different real phone numbers from %s all in the absolutely same format "+
			"regarding prefix, '-' signs and spaces between numbers. In any circumstances do not mix formats.", req.Amount, country)
	case country == "" && !mixed:
		return fmt.Sprintf("Give me a list of %d different real phone numbers from different countries in the world, "+
			"all in the absolutely same format, without dashes or spaces, regarding prefix, '-' signs and spaces between numbers. "+
			"In any circumstances do not mix formats.", req.Amount)
	case country != "":
		return fmt.Sprintf("Give me a list of %d different real phone numbers from %s in different but valid formats used in real world, "+
			"always include all possible real phone number formats, ignore prefix and phone number format defined earlier, "+
			"randomize numbers and do not make all of them 123456789.", req.Amount, country)
	default:
		return fmt.Sprintf("Give me a list of %d different real phone numbers from different countries in the world "+
			"in different but valid formats used in real world, always include all possible real phone number formats, "+
			"ignore prefix and phone number format defined earlier, randomize numbers and do not make all of them 123456789.", req.Amount)
	}
}

// Extract decodes {"phone_numbers": [{"phone_number": ...}]}
func (PhoneNumberGenerator) Extract(payload string) ([]string, error) {
	return extractList(payload, "phone_numbers", "phone_number")
}

func mixFormat(req Request) bool {
	mixed, err := strconv.ParseBool(req.Option("mix_format"))
	return err == nil && mixed
}
