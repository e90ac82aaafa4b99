// Package twiml models the voice-markup document returned to the telephony
// carrier. Each instruction is a typed verb; Render is the single place a
// document is serialized, so escaping of caller-influenced text (contact
// names, spoken queries) happens in exactly one spot.
package twiml

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Verb is one voice instruction inside a <Response> document.
type Verb interface {
	verb()
}

// Say speaks text to the caller.
type Say struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

// Pause waits silently for the given number of seconds.
type Pause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr,omitempty"`
}

// Gather collects digits and/or speech and posts them to Action.
type Gather struct {
	XMLName       xml.Name `xml:"Gather"`
	Input         string   `xml:"input,attr,omitempty"`
	Action        string   `xml:"action,attr,omitempty"`
	Method        string   `xml:"method,attr,omitempty"`
	NumDigits     int      `xml:"numDigits,attr,omitempty"`
	Timeout       int      `xml:"timeout,attr,omitempty"`
	SpeechTimeout string   `xml:"speechTimeout,attr,omitempty"`
	FinishOnKey   string   `xml:"finishOnKey,attr,omitempty"`
	Hints         string   `xml:"hints,attr,omitempty"`
	Say           []Say    `xml:"Say"`
}

// Record records the caller and posts recording metadata to Action.
type Record struct {
	XMLName     xml.Name `xml:"Record"`
	Action      string   `xml:"action,attr,omitempty"`
	Method      string   `xml:"method,attr,omitempty"`
	MaxLength   int      `xml:"maxLength,attr,omitempty"`
	Timeout     int      `xml:"timeout,attr,omitempty"`
	FinishOnKey string   `xml:"finishOnKey,attr,omitempty"`
}

// Redirect transfers control of the call to another webhook.
type Redirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr,omitempty"`
	URL     string   `xml:",chardata"`
}

// Hangup ends the call.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

func (Say) verb()      {}
func (Pause) verb()    {}
func (Gather) verb()   {}
func (Record) verb()   {}
func (Redirect) verb() {}
func (Hangup) verb()   {}

// Render serializes the verbs into a complete <Response> document.
func Render(verbs ...Verb) (string, error) {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString("<Response>")
	for _, v := range verbs {
		out, err := xml.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("twiml: marshal %T: %w", v, err)
		}
		b.Write(out)
	}
	b.WriteString("</Response>")
	return b.String(), nil
}
