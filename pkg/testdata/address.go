package testdata

import "fmt"

// AddressGenerator asks for headquarters addresses of real companies
type AddressGenerator struct{}

// Name implements Generator
func (AddressGenerator) Name() string { return "address" }

// SystemMessage asks for a JSON list of addresses, honouring the format and options of req
func (AddressGenerator) SystemMessage(req Request) string {
	msg := "You generate a list of just addresses nothing else not the company name, in json. " +
		"Call the list 'addresses' and each list item is a dictionary with the key 'address', don't use any newline characters"
	if req.Format != "" {
		msg += ", in the format: " + req.Format
	}
	return msg
}

// UserMessage asks for req.Amount addresses
func (AddressGenerator) UserMessage(req Request) string {
	country := req.Option("country")
	if country == "" {
		country = "different countries around the world"
	}
	return fmt.Sprintf("Give me a list %d different companies from %s and the address of their HQ", req.Amount, country)
}

// Extract decodes {"addresses": [{"address": ...}]}
func (AddressGenerator) Extract(payload string) ([]string, error) {
	return extractList(payload, "addresses", "address")
}
