// Package twiml renders the provider instruction documents the engine
// serves back to the telephony provider during call setup.
package twiml

import (
	"encoding/xml"
	"fmt"
)

// Response is the root TwiML document.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

// Pause waits the given number of seconds.
type Pause struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr"`
}

// Play streams an audio asset to the call.
type Play struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

// Hangup ends the call.
type Hangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// Voicemail builds the drop sequence: a leading pause so the greeting beep
// does not clip the start of the recording, the recording itself, a trailing
// pause so the last words survive, then hangup.
func Voicemail(audioURL string) Response {
	return Response{
		Verbs: []any{
			Pause{Length: 1},
			Play{URL: audioURL},
			Pause{Length: 2},
			Hangup{},
		},
	}
}

// Render serializes the document with the XML declaration.
func Render(r Response) ([]byte, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("twiml: marshal: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
