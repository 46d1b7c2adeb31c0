package twiml

import (
	"strings"
	"testing"
)

func TestVoicemailDocument(t *testing.T) {
	doc, err := Render(Voicemail("https://cdn.example.com/drop.mp3"))
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	got := string(doc)
	if !strings.HasPrefix(got, "<?xml") {
		t.Errorf("missing xml declaration: %s", got)
	}

	want := `<Response><Pause length="1"></Pause><Play>https://cdn.example.com/drop.mp3</Play><Pause length="2"></Pause><Hangup></Hangup></Response>`
	if !strings.HasSuffix(got, want) {
		t.Errorf("document = %s, want suffix %s", got, want)
	}
}
