package transport

import "testing"

func TestLinkIDParse(t *testing.T) {
	id := NewLinkID()
	back, err := ParseLinkID(id.String())
	if err != nil || back != id {
		t.Fatalf("parse %s: %v %v", id, back, err)
	}
	if _, err := ParseLinkID("nope"); err == nil {
		t.Fatalf("expected parse error")
	}
	if NewLinkID() == id {
		t.Fatalf("ids collide")
	}
}

func TestStateString(t *testing.T) {
	for st, want := range map[State]string{
		StateUnconnected: "unconnected",
		StateConnecting:  "connecting",
		StateConnected:   "connected",
		StateClosed:      "closed",
	} {
		if st.String() != want {
			t.Fatalf("%d.String() = %q", st, st.String())
		}
	}
}
