package domain

import "testing"

// FuzzParsePublicID checks that the lookup-facing parser never panics on
// arbitrary input and that accepted values round-trip unchanged.
func FuzzParsePublicID(f *testing.F) {
	f.Add("M-123456")
	f.Add("C-654321")
	f.Add("")
	f.Add("M123456")
	f.Add("M-12345678901234567890")
	f.Add("'; DROP TABLE workers;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("M-12345٠") // arabic-indic digit

	f.Fuzz(func(t *testing.T, input string) {
		publicID, err := ParsePublicID(input)
		if err != nil {
			return
		}
		roundTrip, err := ParsePublicID(string(publicID))
		if err != nil {
			t.Errorf("accepted id %q failed round-trip: %v", publicID, err)
		}
		if roundTrip != publicID {
			t.Errorf("round-trip changed %q to %q", publicID, roundTrip)
		}
	})
}
