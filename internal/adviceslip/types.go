package adviceslip

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Advice is a single piece of advice. Two values with the same ID are the
// same advice.
type Advice struct {
	ID   int
	Text string
}

// Placeholder is shown until the first real advice arrives.
var Placeholder = Advice{
	ID:   0,
	Text: "Press space to get your first piece of advice!",
}

// Valid reports whether a carries a usable id and text.
func (a Advice) Valid() bool {
	return a.ID >= 0 && strings.TrimSpace(a.Text) != ""
}

// SlipResponse mirrors the payload returned by /advice and /advice/{id}.
type SlipResponse struct {
	Slip    *Slip    `json:"slip"`
	Message *Message `json:"message"`
}

// Slip is the wire form of an advice record.
type Slip struct {
	ID     SlipID `json:"id"`
	Advice string `json:"advice"`
}

// Message is returned in place of a slip when the API has nothing to give.
type Message struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SlipID accepts both numeric and string encoded ids.
type SlipID int

// UnmarshalJSON implements json.Unmarshaler.
func (id *SlipID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return fmt.Errorf("slip id is null")
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		trimmed = strings.TrimSpace(s)
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return fmt.Errorf("slip id %q: %w", trimmed, err)
	}
	*id = SlipID(n)
	return nil
}

// ToAdvice converts the wire slip into the domain value.
func (s Slip) ToAdvice() Advice {
	return Advice{ID: int(s.ID), Text: strings.TrimSpace(s.Advice)}
}
