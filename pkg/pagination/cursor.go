package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Cursor is the canonical, opaque pagination token (pre-encoding) with short field names to
// minimize payload size. It is serialized to minified JSON and encoded with URL-safe base64.
//
// Fields:
//   - v:   version of the cursor schema
//   - src: source id
//   - sid: snapshot id the listing was computed from
//   - st:  funnel stage being listed
//   - fh:  filter hash binding the cursor to one scope
//   - off: record offset from the start of the listing
//   - ps:  page size in records
//   - iat: issued-at timestamp (unix seconds)
//
// The remaining fields carry the original filter so a caller can resume with
// the cursor alone.
type Cursor struct {
	V   int    `json:"v"`
	Src string `json:"src"`
	Sid string `json:"sid"`
	St  string `json:"st"`
	Fh  string `json:"fh"`
	Off int    `json:"off"`
	Ps  int    `json:"ps"`
	Iat int64  `json:"iat"`

	Sd string `json:"sd,omitempty"` // start date, YYYY-MM-DD
	Ed string `json:"ed,omitempty"` // end date, YYYY-MM-DD
	Ag string `json:"ag,omitempty"` // agent
	Co string `json:"co,omitempty"` // company
	Sq string `json:"sq,omitempty"` // squad
	M  string `json:"m,omitempty"`  // date mode
	Gx bool   `json:"gx,omitempty"` // generated excludes paid
}

// EncodeCursor serializes and encodes the cursor as URL-safe base64 (without padding).
func EncodeCursor(c Cursor) (string, error) {
	if err := validate(&c); err != nil {
		return "", err
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeCursor decodes a URL-safe base64 token and parses the JSON cursor.
func DecodeCursor(token string) (*Cursor, error) {
	t := strings.TrimSpace(token)
	if t == "" {
		return nil, errors.New("cursor: empty token")
	}
	data, err := base64.RawURLEncoding.DecodeString(t)
	if err != nil {
		return nil, fmt.Errorf("cursor: invalid base64: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("cursor: invalid json: %w", err)
	}
	if err := validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// validate performs structural checks and defaulting.
func validate(c *Cursor) error {
	if c.V <= 0 {
		c.V = 1
	}
	if c.Iat == 0 {
		c.Iat = time.Now().Unix()
	}
	if strings.TrimSpace(c.Src) == "" {
		return errors.New("cursor: src (source id) required")
	}
	if strings.TrimSpace(c.Sid) == "" {
		return errors.New("cursor: sid (snapshot id) required")
	}
	if strings.TrimSpace(c.St) == "" {
		return errors.New("cursor: st (stage) required")
	}
	if c.Off < 0 {
		return errors.New("cursor: off must be >= 0")
	}
	if c.Ps <= 0 {
		return errors.New("cursor: ps must be > 0")
	}
	return nil
}

// NextOffset computes the next offset after returning n units.
func NextOffset(curr, n int) int {
	if curr < 0 {
		curr = 0
	}
	if n <= 0 {
		return curr
	}
	return curr + n
}
