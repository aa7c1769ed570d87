//go:build go1.18

package domain

import "testing"

// FuzzParseFilingID tests that parsing never panics on arbitrary input
// and always returns either a valid ID or an error.
func FuzzParseFilingID(f *testing.F) {
	f.Add("")
	f.Add("1")
	f.Add("9223372036854775807")
	f.Add("9223372036854775808")
	f.Add("-1")
	f.Add("'; DROP TABLE filings;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseFilingID(input)
		if err != nil {
			return
		}
		if id.IsNil() {
			t.Errorf("parsed a nil identifier from %q", input)
		}
		roundTrip, err := ParseFilingID(id.String())
		if err != nil {
			t.Errorf("valid ID failed round-trip: %v", err)
		}
		if roundTrip != id {
			t.Error("round-trip changed ID value")
		}
	})
}
