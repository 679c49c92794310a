package pagination

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestEncodeDecodeCursor_RoundTrip(t *testing.T) {
	c := Cursor{
		V:   1,
		Src: "topa",
		Sid: "snap-123",
		St:  "paid",
		Fh:  "9f86d081884c7d65",
		Off: 200,
		Ps:  50,
		Ag:  "maria",
		Sd:  "2024-03-01",
		M:   "hybrid-by-payment-date",
	}
	tok, err := EncodeCursor(c)
	if err != nil {
		t.Fatalf("EncodeCursor error: %v", err)
	}
	// token should be url-safe base64 (no '+', '/', '=')
	if strings.ContainsAny(tok, "+/=") {
		t.Fatalf("token contains non-url-safe chars: %q", tok)
	}
	out, err := DecodeCursor(tok)
	if err != nil {
		t.Fatalf("DecodeCursor error: %v", err)
	}
	if out.Src != c.Src || out.Sid != c.Sid || out.St != c.St || out.Fh != c.Fh || out.Off != c.Off || out.Ps != c.Ps {
		t.Fatalf("roundtrip mismatch: got %+v want %+v", out, c)
	}
	if out.Ag != c.Ag || out.Sd != c.Sd || out.M != c.M {
		t.Fatalf("filter params lost: got %+v", out)
	}
	if out.Iat == 0 {
		t.Fatalf("issued-at should be defaulted")
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	cases := []string{
		"",    // empty
		"!!!", // not base64
		base64.RawURLEncoding.EncodeToString([]byte("not-json")),
		// missing required fields
		mustB64(`{"v":1}`),
		mustB64(`{"v":1,"src":"","sid":"s","st":"paid","off":0,"ps":10}`),
		mustB64(`{"v":1,"src":"x","sid":"","st":"paid","off":0,"ps":10}`),
		mustB64(`{"v":1,"src":"x","sid":"s","st":"","off":0,"ps":10}`),
		mustB64(`{"v":1,"src":"x","sid":"s","st":"paid","off":-1,"ps":10}`),
		mustB64(`{"v":1,"src":"x","sid":"s","st":"paid","off":0,"ps":0}`),
	}
	for i, tok := range cases {
		if _, err := DecodeCursor(tok); err == nil {
			t.Fatalf("case %d: expected error for token %q", i, tok)
		}
	}
}

func TestNextOffset(t *testing.T) {
	if got := NextOffset(-5, 10); got != 10 {
		t.Fatalf("got %d", got)
	}
	if got := NextOffset(20, 0); got != 20 {
		t.Fatalf("got %d", got)
	}
}

func FuzzDecodeCursor(f *testing.F) {
	seeds := []string{
		"", "abc", mustB64(`{"v":1}`), mustB64(`{"src":"x"}`),
		mustB64(`{"v":1,"src":"x","sid":"s","st":"paid","off":0,"ps":1}`),
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, token string) {
		_, _ = DecodeCursor(token)
	})
}

func mustB64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}
