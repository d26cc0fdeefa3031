package dialogue

import "testing"

func TestEnglishList(t *testing.T) {
	tests := []struct {
		items []string
		conj  string
		want  string
	}{
		{nil, "and", ""},
		{[]string{"kitchen"}, "and", "kitchen"},
		{[]string{"kitchen", "landing"}, "and", "kitchen and landing"},
		{[]string{"lamp", "light", "blind"}, "or", "lamp, light, or blind"},
	}

	for _, tt := range tests {
		if got := englishList(tt.items, tt.conj); got != tt.want {
			t.Errorf("englishList(%v, %q) = %q, want %q", tt.items, tt.conj, got, tt.want)
		}
	}
}

func TestPastTense(t *testing.T) {
	tests := map[string]string{
		"turn_off":    "Turned off",
		"turn_on":     "Turned on",
		"toggle":      "Toggled",
		"close_cover": "Closed cover",
		"open_cover":  "Opened cover",
		"stop_cover":  "Stopped cover",
		"media_pause": "Paused",
		"empty":       "Emptied",
		"play":        "Played",
	}

	for action, want := range tests {
		if got := pastTense(action); got != want {
			t.Errorf("pastTense(%q) = %q, want %q", action, got, want)
		}
	}
}

func TestPlural(t *testing.T) {
	if got := plural(1, "device"); got != "1 device" {
		t.Errorf("plural(1) = %q", got)
	}
	if got := plural(0, "device"); got != "0 devices" {
		t.Errorf("plural(0) = %q", got)
	}
	if got := plural(3, "location"); got != "3 locations" {
		t.Errorf("plural(3) = %q", got)
	}
}

func TestSlotsCloneIsDeep(t *testing.T) {
	amount := 0.5
	s := Slots{Device: []string{"lamp"}, Amount: &amount, Satellite: "kitchen"}

	c := s.Clone()
	c.Device[0] = "kettle"
	*c.Amount = 0.9

	if s.Device[0] != "lamp" || *s.Amount != 0.5 {
		t.Errorf("Clone shares memory with the original: %+v", s)
	}
	if r := s.Reset(); r.Satellite != "kitchen" || r.Device != nil {
		t.Errorf("Reset() = %+v, want only the satellite kept", r)
	}
}
